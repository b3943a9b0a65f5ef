package usecase

import (
	"time"

	"github.com/DRSN-tech/wine-search/internal/domain"
)

// CATALOG USECASE

// QueryReq запрос семантического поиска. Пустая строка и TopK <= 0 заменяются значениями по умолчанию.
type QueryReq struct {
	Query string
	TopK  int
}

// QueryRes найденные точки в порядке убывания близости.
type QueryRes struct {
	Query   string         `json:"query"`
	Matches []domain.Match `json:"matches"`
}

// QueryDefaults значения запроса по умолчанию.
type QueryDefaults struct {
	Query string
	TopK  int
}

// INFRASTRUCTURE

// WriteRawMessageReq готовое сообщение для брокера.
type WriteRawMessageReq struct {
	Key     string
	Payload []byte
}

// ProductIndexedEvent событие о том, что товар попал в векторный индекс.
type ProductIndexedEvent struct {
	EventID   string
	ProductID domain.ProductID
	Schema    domain.Schema
	Model     string
	RunID     string
	Metadata  domain.Metadata
	IndexedAt time.Time
}

// SaveSnapshotReq снимок каталога, из которого строился индекс.
type SaveSnapshotReq struct {
	TenantID string
	RunID    string
	Catalog  *domain.Catalog
}

// REPOSITORIES

// IndexedProduct запись реестра проиндексированных товаров.
type IndexedProduct struct {
	ID        domain.ProductID
	Schema    domain.Schema
	Text      string
	Metadata  domain.Metadata
	Model     string
	RunID     string
	IndexedAt time.Time
}

type OutboxStatus string

const (
	Pending    OutboxStatus = "pending"
	Processing OutboxStatus = "processing"
	Processed  OutboxStatus = "processed"
	Failed     OutboxStatus = "failed"
)

const EventProductIndexed = "product.indexed"

// OutboxEvent событие, ожидающее публикации в брокер.
type OutboxEvent struct {
	ID          int64
	EventID     string
	EventType   string
	ProductID   string
	Payload     []byte
	Status      OutboxStatus
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// MAPPERS

func NewQueryReq(query string, topK int) *QueryReq {
	return &QueryReq{
		Query: query,
		TopK:  topK,
	}
}

func NewQueryRes(query string, matches []domain.Match) *QueryRes {
	if matches == nil {
		matches = []domain.Match{}
	}
	return &QueryRes{
		Query:   query,
		Matches: matches,
	}
}

func NewWriteRawMessageReq(key string, payload []byte) *WriteRawMessageReq {
	return &WriteRawMessageReq{
		Key:     key,
		Payload: payload,
	}
}

func NewSaveSnapshotReq(tenantID, runID string, catalog *domain.Catalog) *SaveSnapshotReq {
	return &SaveSnapshotReq{
		TenantID: tenantID,
		RunID:    runID,
		Catalog:  catalog,
	}
}

func NewIndexedProduct(rec domain.NormalizedRecord, model, runID string, at time.Time) IndexedProduct {
	return IndexedProduct{
		ID:        rec.ID,
		Schema:    rec.Schema,
		Text:      rec.Text,
		Metadata:  rec.Metadata,
		Model:     model,
		RunID:     runID,
		IndexedAt: at,
	}
}

func NewProductIndexedEvent(eventID string, p IndexedProduct) *ProductIndexedEvent {
	return &ProductIndexedEvent{
		EventID:   eventID,
		ProductID: p.ID,
		Schema:    p.Schema,
		Model:     p.Model,
		RunID:     p.RunID,
		Metadata:  p.Metadata,
		IndexedAt: p.IndexedAt,
	}
}

func NewOutboxEvent(eventID, eventType, productID string, payload []byte, at time.Time) *OutboxEvent {
	return &OutboxEvent{
		EventID:   eventID,
		EventType: eventType,
		ProductID: productID,
		Payload:   payload,
		Status:    Pending,
		CreatedAt: at,
	}
}
