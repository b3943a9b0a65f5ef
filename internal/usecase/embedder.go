package usecase

import (
	"context"

	"github.com/DRSN-tech/wine-search/internal/domain"
	"github.com/DRSN-tech/wine-search/pkg/e"
)

// BatchEmbedder отправляет тексты пачки в embedding-сервис одним вызовом
// и сопоставляет векторы записям по позиции.
type BatchEmbedder struct {
	infra   EmbeddingInfra
	metrics PipelineMetrics
}

func NewBatchEmbedder(infra EmbeddingInfra, metrics PipelineMetrics) *BatchEmbedder {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &BatchEmbedder{
		infra:   infra,
		metrics: metrics,
	}
}

// Embed возвращает записи с их векторами в исходном порядке. Пустой вход не вызывает сервис.
func (b *BatchEmbedder) Embed(ctx context.Context, records []domain.NormalizedRecord) ([]domain.Aligned[domain.NormalizedRecord], error) {
	return EmbedBatch(ctx, b, domain.NewBatch(records), func(r domain.NormalizedRecord) string {
		return r.Text
	})
}

// ModelName возвращает модель, которой посчитаны векторы. Нужна для ключей кэша и реестра.
func (b *BatchEmbedder) ModelName() string {
	return b.infra.ModelName()
}

// EmbedBatch общий путь для индексации и поиска: один вызов сервиса на пачку,
// ошибка сервиса или несовпадение числа векторов проваливают всю пачку.
func EmbedBatch[T any](ctx context.Context, b *BatchEmbedder, batch domain.Batch[T], text func(T) string) ([]domain.Aligned[T], error) {
	const op = "BatchEmbedder.Embed"

	if batch.Empty() {
		return []domain.Aligned[T]{}, nil
	}

	texts := batch.Texts(text)
	vectors, err := b.infra.Embed(ctx, texts)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	b.metrics.ObserveEmbedding(len(texts))

	aligned, err := batch.Zip(vectors)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return aligned, nil
}
