package domain

import "github.com/shopspring/decimal"

// PriceRange — ценовой сегмент товара.
type PriceRange string

const (
	PriceBudget       PriceRange = "budget"
	PriceMidRange     PriceRange = "mid-range"
	PricePremium      PriceRange = "premium"
	PriceUltraPremium PriceRange = "ultra-premium"
)

var (
	midRangeFrom = decimal.NewFromInt(100)
	premiumFrom  = decimal.NewFromInt(500)
	ultraFrom    = decimal.NewFromInt(1000)
)

// PriceRangeOf возвращает сегмент для цены в основных единицах валюты.
func PriceRangeOf(price decimal.Decimal) PriceRange {
	switch {
	case price.LessThan(midRangeFrom):
		return PriceBudget
	case price.LessThan(premiumFrom):
		return PriceMidRange
	case price.LessThan(ultraFrom):
		return PricePremium
	default:
		return PriceUltraPremium
	}
}

// CentsToMajor переводит цену из центов в основные единицы.
func CentsToMajor(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// FormatPrice форматирует цену с двумя знаками после точки.
func FormatPrice(price decimal.Decimal) string {
	return price.StringFixed(2)
}
