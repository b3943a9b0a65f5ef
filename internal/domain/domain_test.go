package domain

import (
	"encoding/json"
	"testing"

	"github.com/DRSN-tech/wine-search/pkg/e"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceRangeOf_Boundaries(t *testing.T) {
	cases := []struct {
		price string
		want  PriceRange
	}{
		{"0", PriceBudget},
		{"99.99", PriceBudget},
		{"100", PriceMidRange},
		{"499.99", PriceMidRange},
		{"500", PricePremium},
		{"999.99", PricePremium},
		{"1000", PriceUltraPremium},
		{"25000", PriceUltraPremium},
	}

	for _, tc := range cases {
		t.Run(tc.price, func(t *testing.T) {
			assert.Equal(t, tc.want, PriceRangeOf(decimal.RequireFromString(tc.price)))
		})
	}
}

func TestCentsToMajor(t *testing.T) {
	assert.Equal(t, "45.00", FormatPrice(CentsToMajor(4500)))
	assert.Equal(t, "99.99", FormatPrice(CentsToMajor(9999)))
	assert.Equal(t, PriceMidRange, PriceRangeOf(CentsToMajor(10000)))
}

func TestOption_JSON(t *testing.T) {
	var v struct {
		A Option[int]    `json:"a"`
		B Option[int]    `json:"b"`
		C Option[string] `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 2018, "b": null}`), &v))

	got, ok := v.A.Get()
	assert.True(t, ok)
	assert.Equal(t, 2018, got)
	assert.False(t, v.B.Valid())
	assert.False(t, v.C.Valid())
	assert.Equal(t, "", v.C.OrZero())

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 2018, "b": null, "c": null}`, string(out))
}

func TestScalarAndProductID_AcceptMixedTypes(t *testing.T) {
	var v struct {
		ID    ProductID `json:"id"`
		Num   ProductID `json:"num"`
		Body  Scalar    `json:"body"`
		Level Scalar    `json:"level"`
		Flag  Scalar    `json:"flag"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"id":"gid-1","num":42,"body":"full","level":3,"flag":true}`), &v))

	assert.Equal(t, ProductID("gid-1"), v.ID)
	assert.Equal(t, ProductID("42"), v.Num)
	assert.Equal(t, Scalar("full"), v.Body)
	assert.Equal(t, Scalar("3"), v.Level)
	assert.Equal(t, Scalar("true"), v.Flag)
}

func TestRawProduct_MarshalsUnderlyingRecord(t *testing.T) {
	raw := NewFlatRawProduct(FlatProduct{SKU: "W-1", WineName: Some("Rioja")})

	out, err := json.Marshal(raw)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(out, &m))
	assert.Equal(t, "W-1", m["sku"])
	assert.Equal(t, "Rioja", m["wine_name"])
	assert.Equal(t, ProductID("W-1"), raw.ID())
}

func TestNestedProduct_FirstVariant(t *testing.T) {
	p := NestedProduct{ID: "1"}
	assert.False(t, p.FirstVariant().Valid())

	p.Variants = []Variant{{SKU: Some("A")}, {SKU: Some("B")}}
	v, ok := p.FirstVariant().Get()
	require.True(t, ok)
	assert.Equal(t, "A", v.SKU.OrZero())
}

func TestBatch_ZipKeepsPositions(t *testing.T) {
	b := NewBatch([]string{"a", "b", "c"})
	assert.Equal(t, []string{"A", "B", "C"}, b.Texts(func(s string) string { return string(rune(s[0] - 32)) }))

	aligned, err := b.Zip([][]float32{{1, 0}, {2, 0}, {3, 0}})
	require.NoError(t, err)
	require.Len(t, aligned, 3)
	for i, item := range []string{"a", "b", "c"} {
		assert.Equal(t, item, aligned[i].Item)
		assert.Equal(t, float32(i+1), aligned[i].Vector[0])
	}
}

func TestBatch_ZipRejectsMisalignedVectors(t *testing.T) {
	b := NewBatch([]string{"a", "b"})

	_, err := b.Zip([][]float32{{1}})
	assert.ErrorIs(t, err, e.ErrVectorCountMismatch)

	_, err = b.Zip([][]float32{{1}, {}})
	assert.ErrorIs(t, err, e.ErrVectorEmbeddingEmpty)

	_, err = b.Zip([][]float32{{1, 2}, {1}})
	assert.ErrorIs(t, err, e.ErrVectorDimensionMismatch)
}

func TestBatch_Empty(t *testing.T) {
	b := NewBatch[string](nil)
	assert.True(t, b.Empty())
	assert.Empty(t, b.Texts(func(s string) string { return s }))

	aligned, err := b.Zip(nil)
	require.NoError(t, err)
	assert.Empty(t, aligned)
}
