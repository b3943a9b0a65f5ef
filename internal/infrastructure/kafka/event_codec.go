package kafka

import (
	"fmt"
	"time"

	"github.com/DRSN-tech/wine-search/internal/domain"
	"github.com/DRSN-tech/wine-search/internal/usecase"
	"github.com/DRSN-tech/wine-search/pkg/e"
	"github.com/jimlawless/whereami"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Поля события product.indexed
const (
	fieldEventID   = "event_id"
	fieldEventType = "event_type"
	fieldProductID = "product_id"
	fieldSchema    = "schema"
	fieldModel     = "embedding_model"
	fieldRunID     = "run_id"
	fieldIndexedAt = "indexed_at"
	fieldMetadata  = "metadata"
)

// EventCodec кодирует события индексации в protobuf (google.protobuf.Struct)
type EventCodec struct{}

func NewEventCodec() *EventCodec {
	return &EventCodec{}
}

func (EventCodec) EncodeProductIndexed(event *usecase.ProductIndexedEvent) ([]byte, error) {
	metadata := make(map[string]any, len(event.Metadata))
	for k, v := range event.Metadata {
		metadata[k] = v
	}

	msg, err := structpb.NewStruct(map[string]any{
		fieldEventID:   event.EventID,
		fieldEventType: usecase.EventProductIndexed,
		fieldProductID: event.ProductID.String(),
		fieldSchema:    string(event.Schema),
		fieldModel:     event.Model,
		fieldRunID:     event.RunID,
		fieldIndexedAt: event.IndexedAt.UTC().Format(time.RFC3339Nano),
		fieldMetadata:  metadata,
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	data, err := proto.Marshal(msg)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return data, nil
}

// DecodeProductIndexed разбирает событие, закодированное EncodeProductIndexed
func (EventCodec) DecodeProductIndexed(data []byte) (*usecase.ProductIndexedEvent, error) {
	var msg structpb.Struct
	if err := proto.Unmarshal(data, &msg); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	fields := msg.GetFields()
	if t := fields[fieldEventType].GetStringValue(); t != usecase.EventProductIndexed {
		return nil, e.Wrap(whereami.WhereAmI(), fmt.Errorf("unexpected event type %q", t))
	}

	indexedAt, err := time.Parse(time.RFC3339Nano, fields[fieldIndexedAt].GetStringValue())
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	metadata := domain.Metadata{}
	for k, v := range fields[fieldMetadata].GetStructValue().GetFields() {
		metadata[k] = v.GetStringValue()
	}

	return &usecase.ProductIndexedEvent{
		EventID:   fields[fieldEventID].GetStringValue(),
		ProductID: domain.ProductID(fields[fieldProductID].GetStringValue()),
		Schema:    domain.Schema(fields[fieldSchema].GetStringValue()),
		Model:     fields[fieldModel].GetStringValue(),
		RunID:     fields[fieldRunID].GetStringValue(),
		Metadata:  metadata,
		IndexedAt: indexedAt,
	}, nil
}
