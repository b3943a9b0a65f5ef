package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/DRSN-tech/wine-search/internal/domain"
	"github.com/DRSN-tech/wine-search/pkg/e"
	"github.com/jimlawless/whereami"
	"gopkg.in/yaml.v3"
)

//go:embed data/wines.json
var embeddedWines []byte

// StaticSource отдаёт каталог в плоской схеме, загруженный один раз при старте.
type StaticSource struct {
	products []domain.RawProduct
}

// NewStaticSource читает каталог из файла (.json, .yaml, .yml). При пустом пути берётся встроенный каталог.
func NewStaticSource(path string) (*StaticSource, error) {
	data, format := embeddedWines, "json"
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		data = raw
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}

	products, err := ParseFlatCatalog(data, format)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &StaticSource{products: products}, nil
}

// FetchCatalog возвращает копию каталога, чтобы вызывающий код не менял общий срез.
func (s *StaticSource) FetchCatalog(context.Context) (*domain.Catalog, error) {
	products := make([]domain.RawProduct, len(s.products))
	copy(products, s.products)
	return domain.NewCatalog(products), nil
}

// ParseFlatCatalog разбирает массив записей плоской схемы.
func ParseFlatCatalog(data []byte, format string) ([]domain.RawProduct, error) {
	var flat []domain.FlatProduct

	switch format {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&flat); err != nil {
			return nil, fmt.Errorf("decode json catalog: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &flat); err != nil {
			return nil, fmt.Errorf("decode yaml catalog: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", format)
	}

	products := make([]domain.RawProduct, 0, len(flat))
	for _, p := range flat {
		products = append(products, domain.NewFlatRawProduct(p))
	}

	return products, nil
}
