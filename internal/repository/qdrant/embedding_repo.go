package qdrant

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/DRSN-tech/wine-search/internal/cfg"
	"github.com/DRSN-tech/wine-search/internal/domain"
	"github.com/DRSN-tech/wine-search/pkg/e"
	"github.com/google/uuid"
	"github.com/jimlawless/whereami"
	"github.com/qdrant/go-client/qdrant"
)

// PayloadIDKey ключ payload, в котором хранится исходный идентификатор товара.
const PayloadIDKey = "id"

// pointNamespace пространство имён для детерминированных UUID точек из произвольных id.
var pointNamespace = uuid.MustParse("6f1c2a7e-93b4-4d0c-9a4e-5b8d2f7c1e30")

// pointsAPI часть qdrant.Client, которой пользуется репозиторий.
type pointsAPI interface {
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
}

// EmbeddingRepo репозиторий для работы с embedding-векторами в Qdrant
type EmbeddingRepo struct {
	client pointsAPI
	cfg    *cfg.QdrantCfg
}

func NewEmbeddingRepo(client *qdrant.Client, cfg *cfg.QdrantCfg) *EmbeddingRepo {
	return newEmbeddingRepo(client, cfg)
}

func newEmbeddingRepo(client pointsAPI, cfg *cfg.QdrantCfg) *EmbeddingRepo {
	return &EmbeddingRepo{
		client: client,
		cfg:    cfg,
	}
}

// PointID переводит идентификатор товара в UUID точки. UUID остаётся как есть,
// остальные id превращаются в SHA-1 UUID, поэтому повторная запись попадает в ту же точку.
func PointID(id domain.ProductID) string {
	if parsed, err := uuid.Parse(id.String()); err == nil {
		return parsed.String()
	}
	return uuid.NewSHA1(pointNamespace, []byte(id)).String()
}

// Upsert сохраняет или обновляет точки одним запросом и ждёт применения изменений.
func (q *EmbeddingRepo) Upsert(ctx context.Context, entries []domain.IndexEntry) (*domain.UpsertAck, error) {
	points := make([]*qdrant.PointStruct, 0, len(entries))
	ids := make([]domain.ProductID, 0, len(entries))
	for _, entry := range entries {
		payload := make(map[string]any, len(entry.Metadata)+1)
		for k, v := range entry.Metadata {
			payload[k] = v
		}
		payload[PayloadIDKey] = entry.ID.String()

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(PointID(entry.ID)),
			Vectors: qdrant.NewVectors(entry.Vector...),
			Payload: qdrant.NewValueMap(payload),
		})
		ids = append(ids, entry.ID)
	}

	wait := true
	res, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.cfg.QdrantCollectionName,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &domain.UpsertAck{
		Count:       len(points),
		IDs:         ids,
		Status:      strings.ToLower(res.GetStatus().String()),
		OperationID: res.GetOperationId(),
	}, nil
}

// Query возвращает topK ближайших точек по косинусной близости.
func (q *EmbeddingRepo) Query(ctx context.Context, query domain.IndexQuery) ([]domain.Match, error) {
	limit := uint64(query.TopK)
	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.cfg.QdrantCollectionName,
		Query:          qdrant.NewQuery(query.Vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(query.WithMetadata),
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	matches := make([]domain.Match, 0, len(points))
	for _, p := range points {
		matches = append(matches, toMatch(p, query.WithMetadata))
	}

	return matches, nil
}

func toMatch(p *qdrant.ScoredPoint, withMetadata bool) domain.Match {
	match := domain.Match{
		ID:    domain.ProductID(pointIDString(p.GetId())),
		Score: p.GetScore(),
	}

	payload := p.GetPayload()
	if id, ok := payload[PayloadIDKey]; ok && id.GetStringValue() != "" {
		match.ID = domain.ProductID(id.GetStringValue())
	}

	if withMetadata {
		match.Metadata = make(domain.Metadata, len(payload))
		for k, v := range payload {
			if k == PayloadIDKey {
				continue
			}
			match.Metadata[k] = valueString(v)
		}
	}

	return match
}

func pointIDString(id *qdrant.PointId) string {
	switch v := id.GetPointIdOptions().(type) {
	case *qdrant.PointId_Num:
		return strconv.FormatUint(v.Num, 10)
	case *qdrant.PointId_Uuid:
		return v.Uuid
	}
	return ""
}

// valueString приводит значение payload к строке. Метаданные пишутся строками,
// но точки, записанные другими клиентами, могут содержать числа и булевы значения.
func valueString(v *qdrant.Value) string {
	switch k := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return k.StringValue
	case *qdrant.Value_IntegerValue:
		return strconv.FormatInt(k.IntegerValue, 10)
	case *qdrant.Value_DoubleValue:
		return strconv.FormatFloat(k.DoubleValue, 'f', -1, 64)
	case *qdrant.Value_BoolValue:
		return strconv.FormatBool(k.BoolValue)
	case nil, *qdrant.Value_NullValue:
		return ""
	}
	return fmt.Sprint(v)
}
