package app

import (
	"context"
	"fmt"
	"time"

	config "github.com/DRSN-tech/wine-search/internal/cfg"
	"github.com/DRSN-tech/wine-search/internal/infrastructure/catalog"
	embedding "github.com/DRSN-tech/wine-search/internal/infrastructure/embedding-service"
	"github.com/DRSN-tech/wine-search/internal/infrastructure/kafka"
	boltRepo "github.com/DRSN-tech/wine-search/internal/repository/bolt"
	s3Repo "github.com/DRSN-tech/wine-search/internal/repository/minio"
	"github.com/DRSN-tech/wine-search/internal/repository/pgdb"
	qdrantRepo "github.com/DRSN-tech/wine-search/internal/repository/qdrant"
	"github.com/DRSN-tech/wine-search/internal/repository/redis"
	"github.com/DRSN-tech/wine-search/internal/usecase"
	"github.com/DRSN-tech/wine-search/pkg/clients"
	"github.com/DRSN-tech/wine-search/pkg/closer"
	"github.com/DRSN-tech/wine-search/pkg/e"
	"github.com/DRSN-tech/wine-search/pkg/logger"
	"github.com/DRSN-tech/wine-search/pkg/postgres"
	"github.com/jimlawless/whereami"
)

func newCatalogSource(cfg *config.CatalogCfg, log logger.Logger) (usecase.CatalogSource, error) {
	switch cfg.Source {
	case config.CatalogRemote:
		log.Infof("catalog source: remote %s (tenant %s)", cfg.ServerURL, cfg.TenantID)
		return catalog.NewRemoteSource(cfg, nil, log), nil
	case config.CatalogStatic:
		src, err := catalog.NewStaticSource(cfg.StaticPath)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		log.Infof("catalog source: static %q", cfg.StaticPath)
		return src, nil
	}
	return nil, e.Wrap(whereami.WhereAmI(), fmt.Errorf("%w: catalog source %q", e.ErrUnknownProvider, cfg.Source))
}

func newEmbeddingInfra(cfg *config.EmbeddingCfg, log logger.Logger) (usecase.EmbeddingInfra, error) {
	switch cfg.Provider {
	case config.EmbeddingOpenAI:
		return embedding.NewOpenAIService(cfg, nil, log), nil
	case config.EmbeddingHash:
		return embedding.NewHashService(cfg.Dimensions), nil
	}
	return nil, e.Wrap(whereami.WhereAmI(), fmt.Errorf("%w: embedding provider %q", e.ErrUnknownProvider, cfg.Provider))
}

func newEmbeddingRepo(ctx context.Context, cfg *config.Config, cl *closer.Closer, log logger.Logger) (usecase.EmbeddingRepository, error) {
	switch cfg.VectorStore.Backend {
	case config.VectorStoreQdrant:
		qdrantClient, err := clients.NewQdrantClient(cfg.Qdrant)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		cl.Add("qdrant", func(context.Context) error { return qdrantClient.Close() })

		qdrantCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := clients.EnsureCollection(qdrantCtx, qdrantClient); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		log.Infof("vector store: qdrant %s:%d/%s", cfg.Qdrant.Host, cfg.Qdrant.Port, cfg.Qdrant.QdrantCollectionName)
		return qdrantRepo.NewEmbeddingRepo(qdrantClient.Client, cfg.Qdrant), nil

	case config.VectorStoreBolt:
		repo, err := boltRepo.Open(cfg.VectorStore.BoltPath, cfg.VectorStore.BoltBucket)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		cl.Add("bolt", func(context.Context) error { return repo.Close() })

		log.Infof("vector store: bolt %s (%d points)", cfg.VectorStore.BoltPath, repo.Len())
		return repo, nil
	}
	return nil, e.Wrap(whereami.WhereAmI(), fmt.Errorf("%w: vector store %q", e.ErrUnknownProvider, cfg.VectorStore.Backend))
}

func newQueryCache(ctx context.Context, cfg *config.RedisCfg, cl *closer.Closer, log logger.Logger) (usecase.QueryCacheRepository, error) {
	redisClient := clients.NewRedisClient(cfg)
	cl.Add("redis", func(context.Context) error { return redisClient.Close() })

	redisCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(redisCtx); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	log.Infof("query cache: redis %s, ttl %s", cfg.Addr, cfg.QueryTTL)
	return redis.NewQueryCacheRepo(redisClient.Client, log), nil
}

func newSnapshotRepo(ctx context.Context, cfg *config.MinIOCfg, log logger.Logger) (usecase.SnapshotRepository, error) {
	minioClient, err := clients.NewMinIOClient(cfg)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	minioCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := clients.EnsureBucket(minioCtx, minioClient, cfg.BucketName); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	log.Infof("catalog snapshots: minio %s/%s", cfg.MinioEndpoint, cfg.BucketName)
	return s3Repo.NewSnapshotRepo(minioClient, cfg), nil
}

// registry реестр индексации в PostgreSQL и его outbox
type registry struct {
	db       *postgres.PgDatabase
	products *pgdb.IndexedProductRepo
	outbox   *pgdb.OutboxEventRepo
}

func initPGDB(ctx context.Context, cfg *config.PGDBCfg, cl *closer.Closer, log logger.Logger) (*registry, error) {
	db, err := postgres.Connect(ctx, cfg)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	cl.Add("postgres", func(context.Context) error {
		db.Close()
		return nil
	})

	if err := db.RunMigrations(log); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.Ping(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &registry{
		db:       db,
		products: pgdb.NewIndexedProductRepo(db.Pool),
		outbox:   pgdb.NewOutboxEventRepo(db.Pool),
	}, nil
}

func newProducer(cfg *config.KafkaCfg, cl *closer.Closer, log logger.Logger) *kafka.Producer {
	producer := kafka.NewProducer(log, cfg)
	cl.Add("kafka producer", func(context.Context) error { return producer.Close() })

	if err := producer.EnsureTopic(10 * time.Second); err != nil {
		// Топик может создать и сам брокер при первой записи
		log.Warnf("failed to ensure kafka topic %s: %v", cfg.Topic, err)
	}

	return producer
}
