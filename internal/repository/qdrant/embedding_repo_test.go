package qdrant

import (
	"context"
	"errors"
	"testing"

	"github.com/DRSN-tech/wine-search/internal/cfg"
	"github.com/DRSN-tech/wine-search/internal/domain"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePoints struct {
	upserts []*qdrant.UpsertPoints
	queries []*qdrant.QueryPoints
	result  []*qdrant.ScoredPoint
	err     error
}

func (f *fakePoints) Upsert(_ context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error) {
	f.upserts = append(f.upserts, req)
	if f.err != nil {
		return nil, f.err
	}
	op := uint64(42)
	return &qdrant.UpdateResult{OperationId: &op, Status: qdrant.UpdateStatus_Completed}, nil
}

func (f *fakePoints) Query(_ context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error) {
	f.queries = append(f.queries, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func testCfg() *cfg.QdrantCfg {
	return &cfg.QdrantCfg{QdrantCollectionName: "wines", VectorSize: 2}
}

func TestPointID(t *testing.T) {
	u := uuid.NewString()
	assert.Equal(t, u, PointID(domain.ProductID(u)))

	a := PointID("gid://shopify/Product/1")
	assert.Equal(t, a, PointID("gid://shopify/Product/1"))
	assert.NotEqual(t, a, PointID("gid://shopify/Product/2"))
	_, err := uuid.Parse(a)
	assert.NoError(t, err)
}

func TestEmbeddingRepo_Upsert(t *testing.T) {
	api := &fakePoints{}
	repo := newEmbeddingRepo(api, testCfg())

	ack, err := repo.Upsert(context.Background(), []domain.IndexEntry{
		domain.NewIndexEntry("W-1", []float32{0.1, 0.2}, domain.Metadata{"type": "red", "vintage": ""}),
		domain.NewIndexEntry("W-2", []float32{0.3, 0.4}, domain.Metadata{"type": "white"}),
	})
	require.NoError(t, err)

	assert.Equal(t, &domain.UpsertAck{
		Count:       2,
		IDs:         []domain.ProductID{"W-1", "W-2"},
		Status:      "completed",
		OperationID: 42,
	}, ack)

	require.Len(t, api.upserts, 1)
	req := api.upserts[0]
	assert.Equal(t, "wines", req.CollectionName)
	require.NotNil(t, req.Wait)
	assert.True(t, *req.Wait)
	require.Len(t, req.Points, 2)

	p := req.Points[0]
	assert.Equal(t, PointID("W-1"), p.GetId().GetUuid())
	assert.Equal(t, "W-1", p.GetPayload()[PayloadIDKey].GetStringValue())
	assert.Equal(t, "red", p.GetPayload()["type"].GetStringValue())
	_, hasVintage := p.GetPayload()["vintage"]
	assert.True(t, hasVintage)
}

func TestEmbeddingRepo_Query(t *testing.T) {
	api := &fakePoints{result: []*qdrant.ScoredPoint{
		{
			Id:    qdrant.NewIDUUID(PointID("W-9")),
			Score: 0.93,
			Payload: qdrant.NewValueMap(map[string]any{
				"id":      "W-9",
				"type":    "red",
				"vintage": int64(2019),
			}),
		},
		{
			Id:    qdrant.NewIDNum(7),
			Score: 0.5,
		},
	}}
	repo := newEmbeddingRepo(api, testCfg())

	matches, err := repo.Query(context.Background(), domain.IndexQuery{Vector: []float32{1, 0}, TopK: 5, WithMetadata: true})
	require.NoError(t, err)

	require.Len(t, api.queries, 1)
	req := api.queries[0]
	assert.Equal(t, "wines", req.CollectionName)
	assert.Equal(t, uint64(5), req.GetLimit())

	require.Len(t, matches, 2)
	assert.Equal(t, domain.ProductID("W-9"), matches[0].ID)
	assert.InDelta(t, 0.93, matches[0].Score, 1e-6)
	assert.Equal(t, domain.Metadata{"type": "red", "vintage": "2019"}, matches[0].Metadata)
	assert.Equal(t, domain.ProductID("7"), matches[1].ID)
}

func TestEmbeddingRepo_PropagatesErrors(t *testing.T) {
	boom := errors.New("unavailable")
	repo := newEmbeddingRepo(&fakePoints{err: boom}, testCfg())

	_, err := repo.Upsert(context.Background(), []domain.IndexEntry{domain.NewIndexEntry("a", []float32{1}, nil)})
	assert.ErrorIs(t, err, boom)

	_, err = repo.Query(context.Background(), domain.IndexQuery{Vector: []float32{1}, TopK: 1})
	assert.ErrorIs(t, err, boom)
}
