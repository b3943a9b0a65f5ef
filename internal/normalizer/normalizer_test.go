package normalizer

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/DRSN-tech/wine-search/internal/domain"
	"github.com/DRSN-tech/wine-search/pkg/e"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nestedFull() domain.NestedProduct {
	return domain.NestedProduct{
		ID:    "gid://shopify/Product/1",
		Title: domain.Some("Chateau Margaux"),
		Wine: domain.Some(domain.WineDetails{
			Varietal:    domain.Some("Cabernet Sauvignon"),
			Vintage:     domain.Some(2015),
			CountryCode: domain.Some("FR"),
			Region:      domain.Some("Bordeaux"),
			Appellation: domain.Some("Margaux"),
			Type:        domain.Some(domain.Scalar("red")),
			TasteProfile: domain.Some(domain.TasteProfile{
				Body:       domain.Some(domain.Scalar("full")),
				Sweetness:  domain.Some(domain.Scalar("dry")),
				Acidity:    domain.Some(domain.Scalar("medium")),
				Tannin:     domain.Some(domain.Scalar("high")),
				Fruitiness: domain.Some(domain.Scalar("4")),
			}),
		}),
		Variants:    []domain.Variant{{Price: domain.Some(int64(54999)), SKU: domain.Some("CM-2015")}},
		AdminStatus: domain.Some("ACTIVE"),
	}
}

func flatFull() domain.FlatProduct {
	return domain.FlatProduct{
		SKU:         "W-100",
		WineName:    domain.Some("Barolo Riserva"),
		Type:        domain.Some(domain.Scalar("red")),
		Varietal:    domain.Some("Nebbiolo"),
		Vintage:     domain.Some(2016),
		Country:     domain.Some("Italy"),
		Region:      domain.Some("Piedmont"),
		Appellation: domain.Some("Barolo DOCG"),
		Price:       domain.Some(decimal.RequireFromString("89.5")),
		TastingProfile: domain.Some(domain.FlatTastingProfile{
			Body:      domain.Some(domain.Scalar("full")),
			Sweetness: domain.Some(domain.Scalar("dry")),
			Acidity:   domain.Some(domain.Scalar("high")),
			Tannin:    domain.Some(domain.Scalar("high")),
			Fruitness: domain.Some(domain.Scalar("medium")),
		}),
	}
}

func TestNormalize_NestedFullRecord(t *testing.T) {
	rec, err := Normalize(domain.NewNestedRawProduct(nestedFull()))
	require.NoError(t, err)

	want := "Chateau Margaux. Varietal: Cabernet Sauvignon. Vintage: 2015. Country: FR. " +
		"Region: Bordeaux. Appellation: Margaux. Price: $549.99. Type: red. Status: ACTIVE. " +
		"Body: full. Sweetness: dry. Acidity: medium. Tannin: high. Fruitiness: 4"
	assert.Equal(t, want, rec.Text)
	assert.Equal(t, domain.ProductID("gid://shopify/Product/1"), rec.ID)

	assert.Equal(t, "549.99", rec.Metadata[KeyPrice])
	assert.Equal(t, "premium", rec.Metadata[KeyPriceRange])
	assert.Equal(t, "2015", rec.Metadata[KeyVintage])
	assert.Equal(t, "Bordeaux, FR", rec.Metadata[KeyRegionCountry])
	assert.Equal(t, "CM-2015", rec.Metadata[KeySKU])
	assert.Equal(t, "4", rec.Metadata[KeyFruitiness])
	assert.Equal(t, strings.ToLower(want), rec.Metadata[KeySearchText])
}

func TestNormalize_NestedSkipsAbsentFields(t *testing.T) {
	p := nestedFull()
	wine := p.Wine.OrZero()
	wine.Vintage = domain.None[int]()
	wine.Region = domain.Some("  ")
	p.Wine = domain.Some(wine)

	rec, err := Normalize(domain.NewNestedRawProduct(p))
	require.NoError(t, err)

	assert.NotContains(t, rec.Text, "Vintage")
	assert.NotContains(t, rec.Text, "Region")
	assert.NotContains(t, rec.Text, ". .")
	assert.NotContains(t, rec.Text, "..")
	assert.Contains(t, rec.Text, "Varietal: Cabernet Sauvignon. Country: FR. Appellation: Margaux")
	assert.Equal(t, "FR", rec.Metadata[KeyRegionCountry])

	v, ok := rec.Metadata[KeyVintage]
	assert.True(t, ok)
	assert.Equal(t, "", v)
}

func TestNormalize_NestedNullFacetKeepsKey(t *testing.T) {
	raw := []byte(`{
		"id": 7,
		"title": "Sancerre",
		"wine": {"varietal": "Sauvignon Blanc", "tasteProfile": {"body": "light", "tannin": null}},
		"variants": [],
		"adminStatus": null
	}`)
	var p domain.NestedProduct
	require.NoError(t, json.Unmarshal(raw, &p))

	rec, err := Normalize(domain.NewNestedRawProduct(p))
	require.NoError(t, err)

	assert.Equal(t, domain.ProductID("7"), rec.ID)
	assert.Equal(t, "Sancerre. Varietal: Sauvignon Blanc. Body: light", rec.Text)

	for _, key := range []string{KeyTannin, KeySweetness, KeyStatus, KeyPrice, KeyPriceRange, KeySKU, KeyVintage} {
		v, ok := rec.Metadata[key]
		assert.True(t, ok, key)
		assert.Equal(t, "", v, key)
	}
	assert.NotContains(t, rec.Metadata[KeyTannin], "null")
}

func TestNormalize_NestedWithoutWine(t *testing.T) {
	rec, err := Normalize(domain.NewNestedRawProduct(domain.NestedProduct{
		ID:    "1",
		Title: domain.Some("Gift card"),
	}))
	require.NoError(t, err)

	assert.Equal(t, "Gift card", rec.Text)
	assert.Len(t, rec.Metadata, 18)
}

func TestNormalize_FlatFullRecord(t *testing.T) {
	rec, err := Normalize(domain.NewFlatRawProduct(flatFull()))
	require.NoError(t, err)

	want := "Barolo Riserva made from Nebbiolo vintage 2016 from Italy region Piedmont " +
		"appellation Barolo DOCG priced at $89.50 red wine body full sweetness dry " +
		"acidity high tannin high fruitiness medium"
	assert.Equal(t, want, rec.Text)
	assert.Equal(t, domain.ProductID("W-100"), rec.ID)
	assert.Equal(t, "budget", rec.Metadata[KeyPriceRange])
	assert.Equal(t, "89.50", rec.Metadata[KeyPrice])
	assert.Equal(t, "Nebbiolo red wine", rec.Metadata[KeyVarietalType])
	assert.Equal(t, "medium", rec.Metadata[KeyFruitiness])
	assert.Len(t, rec.Metadata, 16)
}

func TestNormalize_FlatSkipsAbsentFields(t *testing.T) {
	p := flatFull()
	p.Vintage = domain.None[int]()
	p.Type = domain.None[domain.Scalar]()
	p.TastingProfile = domain.None[domain.FlatTastingProfile]()

	rec, err := Normalize(domain.NewFlatRawProduct(p))
	require.NoError(t, err)

	assert.Equal(t, "Barolo Riserva made from Nebbiolo from Italy region Piedmont appellation Barolo DOCG priced at $89.50", rec.Text)
	assert.NotContains(t, rec.Text, "undefined")
	assert.NotContains(t, rec.Text, "null")
	assert.NotContains(t, rec.Text, "  ")
	assert.Equal(t, "Nebbiolo", rec.Metadata[KeyVarietalType])
	assert.Equal(t, "", rec.Metadata[KeyBody])
}

func TestNormalize_UnknownSchema(t *testing.T) {
	_, err := Normalize(domain.RawProduct{Schema: "legacy"})
	assert.ErrorIs(t, err, e.ErrUnknownSchema)

	_, err = Normalize(domain.RawProduct{Schema: domain.SchemaFlat})
	assert.ErrorIs(t, err, e.ErrUnknownSchema)
}

func TestNormalize_MissingID(t *testing.T) {
	_, err := Normalize(domain.NewFlatRawProduct(domain.FlatProduct{WineName: domain.Some("x")}))
	assert.ErrorIs(t, err, e.ErrMissingProductID)
}

func TestNormalize_Deterministic(t *testing.T) {
	raw := domain.NewNestedRawProduct(nestedFull())
	a, err := Normalize(raw)
	require.NoError(t, err)
	b, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNormalizeAll_PreservesOrder(t *testing.T) {
	raws := []domain.RawProduct{
		domain.NewFlatRawProduct(domain.FlatProduct{SKU: "c"}),
		domain.NewNestedRawProduct(domain.NestedProduct{ID: "a"}),
		domain.NewFlatRawProduct(domain.FlatProduct{SKU: "b"}),
	}

	recs, err := NormalizeAll(raws)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, domain.ProductID("c"), recs[0].ID)
	assert.Equal(t, domain.ProductID("a"), recs[1].ID)
	assert.Equal(t, domain.ProductID("b"), recs[2].ID)

	empty, err := NormalizeAll(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestNormalizeAll_FailsWholeBatch(t *testing.T) {
	raws := []domain.RawProduct{
		domain.NewFlatRawProduct(domain.FlatProduct{SKU: "ok"}),
		{Schema: "bogus"},
	}

	recs, err := NormalizeAll(raws)
	assert.Nil(t, recs)
	assert.ErrorIs(t, err, e.ErrUnknownSchema)
	assert.Contains(t, err.Error(), "product #1")
}
