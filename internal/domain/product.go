package domain

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Schema — тег варианта исходной записи каталога.
type Schema string

const (
	// SchemaNested — удалённый каталог: вложенный объект wine и варианты с ценой в центах.
	SchemaNested Schema = "nested"
	// SchemaFlat — статический каталог: плоские поля и цена в основных единицах.
	SchemaFlat Schema = "flat"
)

// ProductID — идентификатор товара. В источнике бывает строкой или числом.
type ProductID string

func (id *ProductID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ProductID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("product id: unsupported value %s", data)
	}
	*id = ProductID(n.String())
	return nil
}

// UnmarshalYAML принимает sku из yaml-каталога как строку или число.
func (id *ProductID) UnmarshalYAML(unmarshal func(any) error) error {
	var raw any
	if err := unmarshal(&raw); err != nil {
		return err
	}
	if raw == nil {
		*id = ""
		return nil
	}
	*id = ProductID(fmt.Sprint(raw))
	return nil
}

func (id ProductID) String() string {
	return string(id)
}

// TasteProfile — вкусовые характеристики во вложенной схеме. Каждая может быть null.
type TasteProfile struct {
	Body       Option[Scalar] `json:"body"`
	Sweetness  Option[Scalar] `json:"sweetness"`
	Acidity    Option[Scalar] `json:"acidity"`
	Tannin     Option[Scalar] `json:"tannin"`
	Fruitiness Option[Scalar] `json:"fruitiness"`
}

// WineDetails — блок wine вложенной схемы.
type WineDetails struct {
	Varietal     Option[string]       `json:"varietal"`
	Vintage      Option[int]          `json:"vintage"`
	CountryCode  Option[string]       `json:"countryCode"`
	Region       Option[string]       `json:"region"`
	Appellation  Option[string]       `json:"appellation"`
	Type         Option[Scalar]       `json:"type"`
	TasteProfile Option[TasteProfile] `json:"tasteProfile"`
}

// Variant — торговое предложение товара. Цена в центах.
type Variant struct {
	Price Option[int64]  `json:"price"`
	SKU   Option[string] `json:"sku"`
}

// NestedProduct — запись удалённого каталога.
type NestedProduct struct {
	ID          ProductID           `json:"id"`
	Title       Option[string]      `json:"title"`
	Wine        Option[WineDetails] `json:"wine"`
	Variants    []Variant           `json:"variants"`
	AdminStatus Option[string]      `json:"adminStatus"`
}

// FirstVariant возвращает первый вариант товара, если он есть.
func (p NestedProduct) FirstVariant() Option[Variant] {
	if len(p.Variants) == 0 {
		return None[Variant]()
	}
	return Some(p.Variants[0])
}

// FlatTastingProfile — вкусовые характеристики плоской схемы (поле fruitness пишется так в источнике).
type FlatTastingProfile struct {
	Body      Option[Scalar] `json:"body" yaml:"body"`
	Sweetness Option[Scalar] `json:"sweetness" yaml:"sweetness"`
	Acidity   Option[Scalar] `json:"acidity" yaml:"acidity"`
	Tannin    Option[Scalar] `json:"tannin" yaml:"tannin"`
	Fruitness Option[Scalar] `json:"fruitness" yaml:"fruitness"`
}

// FlatProduct — запись статического каталога.
type FlatProduct struct {
	SKU            ProductID                  `json:"sku" yaml:"sku"`
	WineName       Option[string]             `json:"wine_name" yaml:"wine_name"`
	Type           Option[Scalar]             `json:"type" yaml:"type"`
	Varietal       Option[string]             `json:"varietal" yaml:"varietal"`
	Vintage        Option[int]                `json:"vintage" yaml:"vintage"`
	Country        Option[string]             `json:"country" yaml:"country"`
	Region         Option[string]             `json:"region" yaml:"region"`
	Appellation    Option[string]             `json:"appellation" yaml:"appellation"`
	Price          Option[decimal.Decimal]    `json:"price" yaml:"price"`
	TastingProfile Option[FlatTastingProfile] `json:"tasting_profile" yaml:"tasting_profile"`
}

// RawProduct — запись каталога в одной из двух схем. Заполнено ровно одно из полей Nested/Flat.
type RawProduct struct {
	Schema Schema
	Nested *NestedProduct
	Flat   *FlatProduct
}

func NewNestedRawProduct(p NestedProduct) RawProduct {
	return RawProduct{Schema: SchemaNested, Nested: &p}
}

func NewFlatRawProduct(p FlatProduct) RawProduct {
	return RawProduct{Schema: SchemaFlat, Flat: &p}
}

// ID возвращает идентификатор записи независимо от схемы.
func (r RawProduct) ID() ProductID {
	switch {
	case r.Schema == SchemaNested && r.Nested != nil:
		return r.Nested.ID
	case r.Schema == SchemaFlat && r.Flat != nil:
		return r.Flat.SKU
	}
	return ""
}

// MarshalJSON отдаёт исходную запись без обёртки, как её вернул каталог.
func (r RawProduct) MarshalJSON() ([]byte, error) {
	switch r.Schema {
	case SchemaNested:
		return json.Marshal(r.Nested)
	case SchemaFlat:
		return json.Marshal(r.Flat)
	}
	return nil, fmt.Errorf("raw product: unknown schema %q", r.Schema)
}

// Catalog — страница каталога.
type Catalog struct {
	TotalItems int          `json:"totalItems"`
	Products   []RawProduct `json:"products"`
}

func NewCatalog(products []RawProduct) *Catalog {
	return &Catalog{
		TotalItems: len(products),
		Products:   products,
	}
}
