package usecase

import (
	"context"
	"time"

	"github.com/DRSN-tech/wine-search/internal/domain"
)

// CatalogSource отдаёт текущую страницу каталога.
type CatalogSource interface {
	FetchCatalog(ctx context.Context) (*domain.Catalog, error)
}

// EmbeddingInfra превращает тексты в векторы: i-й вектор соответствует i-му тексту.
type EmbeddingInfra interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
}

type MessageProducer interface {
	WriteRawMessage(ctx context.Context, req *WriteRawMessageReq) error
}

// EventEncoder сериализует события для outbox.
type EventEncoder interface {
	EncodeProductIndexed(event *ProductIndexedEvent) ([]byte, error)
}

// PipelineMetrics собирает метрики конвейера индексации и поиска.
type PipelineMetrics interface {
	ObserveStage(stage string, d time.Duration)
	AddNormalized(schema domain.Schema, n int)
	ObserveEmbedding(texts int)
	AddUpserted(n int)
	IncQuery(outcome string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveStage(string, time.Duration) {}
func (nopMetrics) AddNormalized(domain.Schema, int) {}
func (nopMetrics) ObserveEmbedding(int) {}
func (nopMetrics) AddUpserted(int) {}
func (nopMetrics) IncQuery(string) {}
