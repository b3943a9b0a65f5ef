// Package normalizer превращает запись каталога в текст для эмбеддинга и строковые метаданные.
// Пакет не делает ввода-вывода: одинаковый вход всегда даёт одинаковый результат.
package normalizer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/DRSN-tech/wine-search/internal/domain"
	"github.com/DRSN-tech/wine-search/pkg/e"
)

const (
	nestedSeparator = ". "
	flatSeparator   = " "
)

// Ключи метаданных, общие для обеих схем.
const (
	KeyVarietal    = "varietal"
	KeyVintage     = "vintage"
	KeyCountry     = "country"
	KeyRegion      = "region"
	KeyAppellation = "appellation"
	KeyType        = "type"
	KeyPrice       = "price"
	KeyPriceRange  = "priceRange"
	KeyBody        = "body"
	KeySweetness   = "sweetness"
	KeyAcidity     = "acidity"
	KeyTannin      = "tannin"
	KeyFruitiness  = "fruitiness"
	KeySearchText  = "searchText"
)

// Ключи вложенной схемы.
const (
	KeyTitle         = "title"
	KeyStatus        = "status"
	KeySKU           = "sku"
	KeyRegionCountry = "regionCountry"
)

// Ключи плоской схемы.
const (
	KeyName         = "name"
	KeyVarietalType = "varietalType"
)

// Normalize строит NormalizedRecord для одной записи, выбирая правила по тегу схемы.
func Normalize(raw domain.RawProduct) (domain.NormalizedRecord, error) {
	const op = "normalizer.Normalize"

	switch {
	case raw.Schema == domain.SchemaNested && raw.Nested != nil:
		rec, err := normalizeNested(*raw.Nested)
		if err != nil {
			return domain.NormalizedRecord{}, e.Wrap(op, err)
		}
		return rec, nil
	case raw.Schema == domain.SchemaFlat && raw.Flat != nil:
		rec, err := normalizeFlat(*raw.Flat)
		if err != nil {
			return domain.NormalizedRecord{}, e.Wrap(op, err)
		}
		return rec, nil
	}

	return domain.NormalizedRecord{}, e.Wrap(op, fmt.Errorf("%w: %q", e.ErrUnknownSchema, raw.Schema))
}

// NormalizeAll нормализует записи одну к одной, сохраняя порядок. Первая ошибка прерывает обработку.
func NormalizeAll(raws []domain.RawProduct) ([]domain.NormalizedRecord, error) {
	out := make([]domain.NormalizedRecord, 0, len(raws))
	for i, raw := range raws {
		rec, err := Normalize(raw)
		if err != nil {
			return nil, fmt.Errorf("product #%d: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func normalizeNested(p domain.NestedProduct) (domain.NormalizedRecord, error) {
	if strings.TrimSpace(p.ID.String()) == "" {
		return domain.NormalizedRecord{}, e.ErrMissingProductID
	}

	wine := p.Wine.OrZero()
	taste := wine.TasteProfile.OrZero()
	variant := p.FirstVariant().OrZero()

	title := str(p.Title)
	varietal := str(wine.Varietal)
	vintage := year(wine.Vintage)
	country := str(wine.CountryCode)
	region := str(wine.Region)
	appellation := str(wine.Appellation)
	wineType := scalar(wine.Type)
	status := str(p.AdminStatus)

	price, priceRange := "", ""
	if cents, ok := variant.Price.Get(); ok {
		major := domain.CentsToMajor(cents)
		price = domain.FormatPrice(major)
		priceRange = string(domain.PriceRangeOf(major))
	}

	facets := tasteFacets{
		body:       scalar(taste.Body),
		sweetness:  scalar(taste.Sweetness),
		acidity:    scalar(taste.Acidity),
		tannin:     scalar(taste.Tannin),
		fruitiness: scalar(taste.Fruitiness),
	}

	var f fragments
	f.add(title)
	f.addf("Varietal: %s", varietal)
	f.addf("Vintage: %s", vintage)
	f.addf("Country: %s", country)
	f.addf("Region: %s", region)
	f.addf("Appellation: %s", appellation)
	f.addf("Price: $%s", price)
	f.addf("Type: %s", wineType)
	f.addf("Status: %s", status)
	f.addf("Body: %s", facets.body)
	f.addf("Sweetness: %s", facets.sweetness)
	f.addf("Acidity: %s", facets.acidity)
	f.addf("Tannin: %s", facets.tannin)
	f.addf("Fruitiness: %s", facets.fruitiness)
	text := f.join(nestedSeparator)

	meta := domain.Metadata{
		KeyTitle:         title,
		KeyVarietal:      varietal,
		KeyVintage:       vintage,
		KeyCountry:       country,
		KeyRegion:        region,
		KeyAppellation:   appellation,
		KeyType:          wineType,
		KeyPrice:         price,
		KeyPriceRange:    priceRange,
		KeyStatus:        status,
		KeySKU:           str(variant.SKU),
		KeyRegionCountry: joinPresent(", ", region, country),
		KeySearchText:    strings.ToLower(text),
	}
	facets.fill(meta)

	return domain.NormalizedRecord{
		ID:       p.ID,
		Schema:   domain.SchemaNested,
		Text:     text,
		Metadata: meta,
	}, nil
}

func normalizeFlat(p domain.FlatProduct) (domain.NormalizedRecord, error) {
	if strings.TrimSpace(p.SKU.String()) == "" {
		return domain.NormalizedRecord{}, e.ErrMissingProductID
	}

	taste := p.TastingProfile.OrZero()

	name := str(p.WineName)
	wineType := scalar(p.Type)
	varietal := str(p.Varietal)
	vintage := year(p.Vintage)
	country := str(p.Country)
	region := str(p.Region)
	appellation := str(p.Appellation)

	price, priceRange := "", ""
	if major, ok := p.Price.Get(); ok {
		price = domain.FormatPrice(major)
		priceRange = string(domain.PriceRangeOf(major))
	}

	facets := tasteFacets{
		body:       scalar(taste.Body),
		sweetness:  scalar(taste.Sweetness),
		acidity:    scalar(taste.Acidity),
		tannin:     scalar(taste.Tannin),
		fruitiness: scalar(taste.Fruitness),
	}

	var f fragments
	f.add(name)
	f.addf("made from %s", varietal)
	f.addf("vintage %s", vintage)
	f.addf("from %s", country)
	f.addf("region %s", region)
	f.addf("appellation %s", appellation)
	f.addf("priced at $%s", price)
	f.addf("%s wine", wineType)
	f.addf("body %s", facets.body)
	f.addf("sweetness %s", facets.sweetness)
	f.addf("acidity %s", facets.acidity)
	f.addf("tannin %s", facets.tannin)
	f.addf("fruitiness %s", facets.fruitiness)
	text := f.join(flatSeparator)

	varietalType := varietal
	if wineType != "" {
		varietalType = joinPresent(" ", varietal, wineType+" wine")
	}

	meta := domain.Metadata{
		KeyName:         name,
		KeyType:         wineType,
		KeyVarietal:     varietal,
		KeyVintage:      vintage,
		KeyCountry:      country,
		KeyRegion:       region,
		KeyAppellation:  appellation,
		KeyPrice:        price,
		KeyPriceRange:   priceRange,
		KeyVarietalType: varietalType,
		KeySearchText:   strings.ToLower(text),
	}
	facets.fill(meta)

	return domain.NormalizedRecord{
		ID:       p.SKU,
		Schema:   domain.SchemaFlat,
		Text:     text,
		Metadata: meta,
	}, nil
}

type tasteFacets struct {
	body, sweetness, acidity, tannin, fruitiness string
}

func (t tasteFacets) fill(meta domain.Metadata) {
	meta[KeyBody] = t.body
	meta[KeySweetness] = t.sweetness
	meta[KeyAcidity] = t.acidity
	meta[KeyTannin] = t.tannin
	meta[KeyFruitiness] = t.fruitiness
}

// fragments собирает только непустые части текста.
type fragments []string

func (f *fragments) add(s string) {
	if s != "" {
		*f = append(*f, s)
	}
}

// addf добавляет фрагмент, только если значение присутствует.
func (f *fragments) addf(format, value string) {
	if value != "" {
		*f = append(*f, fmt.Sprintf(format, value))
	}
}

func (f fragments) join(sep string) string {
	return strings.Join(f, sep)
}

func str(o domain.Option[string]) string {
	return strings.TrimSpace(o.OrZero())
}

func scalar(o domain.Option[domain.Scalar]) string {
	return strings.TrimSpace(o.OrZero().String())
}

// year возвращает год урожая строкой; 0 считается отсутствующим значением.
func year(o domain.Option[int]) string {
	v, ok := o.Get()
	if !ok || v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

func joinPresent(sep string, parts ...string) string {
	var f fragments
	for _, p := range parts {
		f.add(p)
	}
	return f.join(sep)
}
