package app

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	config "github.com/DRSN-tech/wine-search/internal/cfg"
	"github.com/DRSN-tech/wine-search/internal/domain"
	"github.com/DRSN-tech/wine-search/internal/usecase"
	"github.com/DRSN-tech/wine-search/pkg/e"
	"github.com/DRSN-tech/wine-search/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func localConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Http:      &config.HTTPConfig{Port: "0"},
		Grpc:      &config.GRPCConfig{Port: "0", NetworkMode: "tcp"},
		Catalog:   &config.CatalogCfg{Source: config.CatalogStatic, TenantID: "default"},
		Embedding: &config.EmbeddingCfg{Provider: config.EmbeddingHash, Dimensions: 64},
		VectorStore: &config.VectorStoreCfg{
			Backend:    config.VectorStoreBolt,
			BoltPath:   filepath.Join(t.TempDir(), "index.db"),
			BoltBucket: "wines",
		},
		Qdrant:          &config.QdrantCfg{},
		Redis:           &config.RedisCfg{},
		Db:              &config.PGDBCfg{},
		Kafka:           &config.KafkaCfg{},
		Minio:           &config.MinIOCfg{},
		Query:           &config.QueryCfg{DefaultQuery: "red wine", DefaultTopK: 5},
		ShutdownTimeout: time.Second,
	}
}

func TestApp_LocalPipeline(t *testing.T) {
	ctx := context.Background()
	a, err := NewApp(ctx, localConfig(t), logger.NewNop())
	require.NoError(t, err)
	defer a.Close(ctx)

	uc := a.CatalogUC()

	records, err := uc.TextData(ctx)
	require.NoError(t, err)
	require.Len(t, records, 10)

	ack, err := uc.Insert(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, ack.Count)
	for i, rec := range records {
		assert.Equal(t, rec.ID, ack.IDs[i])
	}

	// Повторная индексация перезаписывает точки
	_, err = uc.Insert(ctx)
	require.NoError(t, err)

	res, err := uc.Query(ctx, usecase.NewQueryReq("", 0))
	require.NoError(t, err)
	assert.Equal(t, "red wine", res.Query)
	require.Len(t, res.Matches, 5)
	for i := 1; i < len(res.Matches); i++ {
		assert.GreaterOrEqual(t, res.Matches[i-1].Score, res.Matches[i].Score)
	}
	assert.NotEmpty(t, res.Matches[0].Metadata)

	res, err = uc.Query(ctx, usecase.NewQueryReq("anything", 50))
	require.NoError(t, err)
	assert.Len(t, res.Matches, 10)
	ids := map[domain.ProductID]bool{}
	for _, m := range res.Matches {
		ids[m.ID] = true
	}
	assert.Len(t, ids, 10)
}

func TestApp_UnknownProviders(t *testing.T) {
	cfg := localConfig(t)
	cfg.Embedding.Provider = "cohere"
	_, err := NewApp(context.Background(), cfg, logger.NewNop())
	assert.ErrorIs(t, err, e.ErrUnknownProvider)

	cfg = localConfig(t)
	cfg.VectorStore.Backend = "pinecone"
	_, err = NewApp(context.Background(), cfg, logger.NewNop())
	assert.ErrorIs(t, err, e.ErrUnknownProvider)

	cfg = localConfig(t)
	cfg.Catalog.Source = "ftp"
	_, err = NewApp(context.Background(), cfg, logger.NewNop())
	assert.ErrorIs(t, err, e.ErrUnknownProvider)
}

func TestNewApp_WarnsWhenKafkaHasNoRegistry(t *testing.T) {
	ctx := context.Background()
	cfg := localConfig(t)
	cfg.Kafka = &config.KafkaCfg{Enabled: true, Brokers: []string{"localhost:9092"}, Topic: "wine.indexed"}

	var buf bytes.Buffer
	a, err := NewApp(ctx, cfg, logger.New(&buf, slog.LevelWarn))
	require.NoError(t, err)
	defer a.Close(ctx)

	assert.Nil(t, a.outbox)
	assert.Contains(t, buf.String(), "PostgreSQL registry is disabled")
	assert.Contains(t, buf.String(), "localhost:9092")
}
