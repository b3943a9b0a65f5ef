package usecase

import (
	"context"
	"time"

	"github.com/DRSN-tech/wine-search/internal/domain"
)

// EmbeddingRepository векторный индекс.
type EmbeddingRepository interface {
	Upsert(ctx context.Context, entries []domain.IndexEntry) (*domain.UpsertAck, error)
	Query(ctx context.Context, q domain.IndexQuery) ([]domain.Match, error)
}

// QueryCacheRepository хранит векторы поисковых запросов.
type QueryCacheRepository interface {
	GetVector(ctx context.Context, key string) ([]float32, bool, error)
	SetVector(ctx context.Context, key string, vector []float32, ttl time.Duration) error
}

type IndexedProductRepository interface {
	UpsertBatch(ctx context.Context, products []IndexedProduct) error
}

type OutboxRepository interface {
	Create(ctx context.Context, event *OutboxEvent) (*OutboxEvent, error)
	GetAndMarkAsProcessing(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkAsProcessed(ctx context.Context, id int64) error
	// ReleaseToPending возвращает событие в очередь после временной ошибки брокера
	ReleaseToPending(ctx context.Context, id int64) error
	MarkAsFailed(ctx context.Context, id int64) error
}

type SnapshotRepository interface {
	Save(ctx context.Context, req *SaveSnapshotReq) (string, error)
}
