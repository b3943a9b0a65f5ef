package pgdb

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/DRSN-tech/wine-search/internal/domain"
	"github.com/DRSN-tech/wine-search/internal/usecase"
	"github.com/jackc/pgx/v5/pgconn"
)

// IndexedProductModel представляет запись таблицы indexed_products в PostgreSQL.
type IndexedProductModel struct {
	ProductID string    `db:"product_id"`
	Schema    string    `db:"schema"`
	Text      string    `db:"search_text"`
	Metadata  []byte    `db:"metadata"`
	Model     string    `db:"embedding_model"`
	RunID     string    `db:"run_id"`
	IndexedAt time.Time `db:"indexed_at"`
}

// OutboxEventModel представляет запись таблицы outbox_events в PostgreSQL.
type OutboxEventModel struct {
	ID          int64      `db:"id"`
	EventID     string     `db:"event_id"`
	EventType   string     `db:"event_type"`
	ProductID   string     `db:"product_id"`
	Payload     []byte     `db:"payload"`
	Status      string     `db:"status"`
	CreatedAt   time.Time  `db:"created_at"`
	ProcessedAt *time.Time `db:"processed_at"`
}

func toIndexedProductModel(p usecase.IndexedProduct) (*IndexedProductModel, error) {
	metadata := p.Metadata
	if metadata == nil {
		metadata = domain.Metadata{}
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, err
	}

	return &IndexedProductModel{
		ProductID: p.ID.String(),
		Schema:    string(p.Schema),
		Text:      p.Text,
		Metadata:  raw,
		Model:     p.Model,
		RunID:     p.RunID,
		IndexedAt: p.IndexedAt,
	}, nil
}

func toOutboxEventModel(event *usecase.OutboxEvent) *OutboxEventModel {
	return &OutboxEventModel{
		ID:          event.ID,
		EventID:     event.EventID,
		EventType:   event.EventType,
		ProductID:   event.ProductID,
		Payload:     event.Payload,
		Status:      string(event.Status),
		CreatedAt:   event.CreatedAt,
		ProcessedAt: event.ProcessedAt,
	}
}

func toOutboxEvent(model *OutboxEventModel) *usecase.OutboxEvent {
	return &usecase.OutboxEvent{
		ID:          model.ID,
		EventID:     model.EventID,
		EventType:   model.EventType,
		ProductID:   model.ProductID,
		Payload:     model.Payload,
		Status:      usecase.OutboxStatus(model.Status),
		CreatedAt:   model.CreatedAt,
		ProcessedAt: model.ProcessedAt,
	}
}

func toOutboxEvents(models []*OutboxEventModel) []*usecase.OutboxEvent {
	events := make([]*usecase.OutboxEvent, 0, len(models))
	for _, m := range models {
		events = append(events, toOutboxEvent(m))
	}
	return events
}

// postgresDuplicate сообщает, что запись нарушила уникальный индекс (23505)
func postgresDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
