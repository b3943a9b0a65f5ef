package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	config "github.com/DRSN-tech/wine-search/internal/cfg"
	v1Grpc "github.com/DRSN-tech/wine-search/internal/delivery/v1/grpc"
	v1Http "github.com/DRSN-tech/wine-search/internal/delivery/v1/http"
	v1Mcp "github.com/DRSN-tech/wine-search/internal/delivery/v1/mcp"
	"github.com/DRSN-tech/wine-search/internal/infrastructure/kafka"
	"github.com/DRSN-tech/wine-search/internal/metrics"
	"github.com/DRSN-tech/wine-search/internal/usecase"
	"github.com/DRSN-tech/wine-search/pkg/closer"
	"github.com/DRSN-tech/wine-search/pkg/e"
	"github.com/DRSN-tech/wine-search/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/jimlawless/whereami"
)

const serviceName = "wine-search"

// App связывает конфигурацию, инфраструктуру и use case каталога
type App struct {
	cfg       *config.Config
	logger    logger.Logger
	closer    *closer.Closer
	metrics   *metrics.Metrics
	catalogUC *usecase.CatalogUseCase
	outbox    *kafka.OutboxWorker
}

// NewApp поднимает все подключения. Необязательные бэкенды (Redis, PostgreSQL,
// Kafka, MinIO) подключаются, только если включены в конфигурации.
func NewApp(ctx context.Context, cfg *config.Config, log logger.Logger) (app *App, err error) {
	cl := closer.NewCloser()
	defer func() {
		if err != nil {
			if closeErr := cl.Close(context.Background()); closeErr != nil {
				log.Warnf("failed to release resources: %v", closeErr)
			}
		}
	}()

	m := metrics.New(serviceName, true)

	source, err := newCatalogSource(cfg.Catalog, log)
	if err != nil {
		return nil, err
	}

	infra, err := newEmbeddingInfra(cfg.Embedding, log)
	if err != nil {
		return nil, err
	}
	log.Infof("embedding model: %s", infra.ModelName())

	embRepo, err := newEmbeddingRepo(ctx, cfg, cl, log)
	if err != nil {
		return nil, err
	}

	catalogUC := usecase.NewCatalogUC(
		source,
		usecase.NewBatchEmbedder(infra, m),
		embRepo,
		log,
		usecase.QueryDefaults{Query: cfg.Query.DefaultQuery, TopK: cfg.Query.DefaultTopK},
	).WithMetrics(m)

	if cfg.Redis.Enabled {
		cache, err := newQueryCache(ctx, cfg.Redis, cl, log)
		if err != nil {
			return nil, err
		}
		catalogUC.WithQueryCache(cache, cfg.Redis.QueryTTL)
	}

	if cfg.Minio.Enabled {
		snapshots, err := newSnapshotRepo(ctx, cfg.Minio, log)
		if err != nil {
			return nil, err
		}
		catalogUC.WithSnapshots(snapshots, cfg.Catalog.TenantID)
	}

	var outbox *kafka.OutboxWorker
	if cfg.Db.Enabled {
		reg, err := initPGDB(ctx, cfg.Db, cl, log)
		if err != nil {
			return nil, err
		}
		catalogUC.WithRegistry(reg.products, reg.outbox, reg.db.Pool, kafka.NewEventCodec())

		if cfg.Kafka.Enabled {
			producer := newProducer(cfg.Kafka, cl, log)
			outbox = kafka.NewOutboxWorker(reg.outbox, log, producer, reg.db.Dsn)
		}
	} else if cfg.Kafka.Enabled {
		// События берутся только из outbox в PostgreSQL
		log.Warnf("Kafka is configured (brokers: %v) but PostgreSQL registry is disabled, index events will not be published", cfg.Kafka.Brokers)
	}

	return &App{
		cfg:       cfg,
		logger:    log,
		closer:    cl,
		metrics:   m,
		catalogUC: catalogUC,
		outbox:    outbox,
	}, nil
}

// CatalogUC отдаёт use case каталога для команд CLI
func (a *App) CatalogUC() usecase.CatalogUC {
	return a.catalogUC
}

// Close освобождает подключения в обратном порядке
func (a *App) Close(ctx context.Context) error {
	return a.closer.Close(ctx)
}

// Run запускает HTTP и gRPC серверы и outbox-воркер, ждёт сигнала или фатальной ошибки
// и останавливает всё с таймаутом ShutdownTimeout.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	grpcSrv := v1Grpc.NewGRPCServer(a.cfg.Grpc, a.logger)
	grpcSrv.RegisterServices()

	grpcErrCh := make(chan error, 1)
	go func() {
		a.logger.Infof("gRPC server starting on %s:%s", a.cfg.Grpc.NetworkMode, a.cfg.Grpc.Port)
		if err := grpcSrv.Start(); err != nil {
			grpcErrCh <- err
		}
	}()

	r := chi.NewRouter()
	router := v1Http.NewRouter(r, a.logger)
	router.Init(a.catalogUC, a.metrics, a.metrics.Handler(), v1Mcp.NewServer(a.catalogUC, a.logger).Handler())

	httpSrv := v1Http.NewServer(r, a.cfg.Http)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("HTTP server started on port %s", a.cfg.Http.Port)
		if err := httpSrv.Run(); err != nil {
			errCh <- err
		}
	}()

	if a.outbox != nil {
		a.outbox.Start(ctx)
	}

	grpcSrv.SetServing(true)

	// === Ожидание сигнала или ошибки ===
	var appErr error
	select {
	case appErr = <-errCh:
		a.logger.Errorf(appErr, "HTTP server fatal error")
	case appErr = <-grpcErrCh:
		a.logger.Errorf(appErr, "gRPC server fatal error")
	case <-ctx.Done():
		a.logger.Infof("Received shutdown signal, stopping gracefully...")
	}

	// === Graceful shutdown ===
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer shutdownCancel()

	grpcSrv.SetServing(false)

	if err := httpSrv.Stop(shutdownCtx); err != nil {
		a.logger.Errorf(err, "HTTP server shutdown error")
	} else {
		a.logger.Infof("HTTP server stopped")
	}

	if err := grpcSrv.Stop(shutdownCtx); err != nil {
		if !errors.Is(err, context.DeadlineExceeded) {
			a.logger.Errorf(err, "gRPC server shutdown error")
		} else {
			a.logger.Warnf("gRPC server shutdown timeout")
		}
	}

	if a.outbox != nil {
		a.outbox.Stop()
	}

	if err := a.Close(shutdownCtx); err != nil {
		a.logger.Warnf("shutdown: %v", err)
	}

	a.logger.Infof("Application shutdown complete")
	if appErr != nil {
		return e.Wrap(whereami.WhereAmI(), appErr)
	}
	return nil
}
