package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/DRSN-tech/wine-search/internal/domain"
	"github.com/DRSN-tech/wine-search/internal/normalizer"
	"github.com/DRSN-tech/wine-search/pkg/e"
	"github.com/DRSN-tech/wine-search/pkg/logger"
	"github.com/DRSN-tech/wine-search/pkg/tr"
	transaction "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	stageFetch     = "fetch"
	stageNormalize = "normalize"
	stageEmbed     = "embed"
	stageUpsert    = "upsert"
	stageQuery     = "query"

	QueryOK       = "ok"
	QueryCacheHit = "cache_hit"
	QueryFailed   = "error"
)

// CatalogUseCase собирает конвейер: каталог -> нормализация -> эмбеддинги -> векторный индекс.
// Реестр, кэш запросов и снимки каталога необязательны и не влияют на результат операций.
type CatalogUseCase struct {
	catalog       CatalogSource
	embedder      *BatchEmbedder
	embeddingRepo EmbeddingRepository
	logger        logger.Logger
	defaults      QueryDefaults
	metrics       PipelineMetrics

	cacheRepo QueryCacheRepository
	cacheTTL  time.Duration

	registryRepo IndexedProductRepository
	outboxRepo   OutboxRepository
	dbPool       transaction.Transactional
	encoder      EventEncoder

	snapshotRepo SnapshotRepository
	tenantID     string

	now func() time.Time
}

func NewCatalogUC(
	catalog CatalogSource,
	embedder *BatchEmbedder,
	embeddingRepo EmbeddingRepository,
	logger logger.Logger,
	defaults QueryDefaults,
) *CatalogUseCase {
	if strings.TrimSpace(defaults.Query) == "" {
		defaults.Query = "red wine"
	}
	if defaults.TopK <= 0 {
		defaults.TopK = 5
	}

	return &CatalogUseCase{
		catalog:       catalog,
		embedder:      embedder,
		embeddingRepo: embeddingRepo,
		logger:        logger,
		defaults:      defaults,
		metrics:       nopMetrics{},
		now:           time.Now,
	}
}

// WithMetrics подключает сбор метрик.
func (c *CatalogUseCase) WithMetrics(m PipelineMetrics) *CatalogUseCase {
	if m != nil {
		c.metrics = m
	}
	return c
}

// WithQueryCache включает кэш векторов поисковых запросов.
func (c *CatalogUseCase) WithQueryCache(repo QueryCacheRepository, ttl time.Duration) *CatalogUseCase {
	c.cacheRepo = repo
	c.cacheTTL = ttl
	return c
}

// WithRegistry включает запись реестра и outbox-событий после успешной индексации.
func (c *CatalogUseCase) WithRegistry(
	registryRepo IndexedProductRepository,
	outboxRepo OutboxRepository,
	dbPool transaction.Transactional,
	encoder EventEncoder,
) *CatalogUseCase {
	c.registryRepo = registryRepo
	c.outboxRepo = outboxRepo
	c.dbPool = dbPool
	c.encoder = encoder
	return c
}

// WithSnapshots включает сохранение снимков каталога при индексации.
func (c *CatalogUseCase) WithSnapshots(repo SnapshotRepository, tenantID string) *CatalogUseCase {
	c.snapshotRepo = repo
	c.tenantID = tenantID
	return c
}

// Products возвращает каталог без изменений.
func (c *CatalogUseCase) Products(ctx context.Context) (*domain.Catalog, error) {
	const op = "CatalogUseCase.Products"

	catalog, err := c.fetchCatalog(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return catalog, nil
}

// TextData возвращает нормализованные записи каталога.
func (c *CatalogUseCase) TextData(ctx context.Context) ([]domain.NormalizedRecord, error) {
	const op = "CatalogUseCase.TextData"

	catalog, err := c.fetchCatalog(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	records, err := c.normalize(catalog.Products)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return records, nil
}

// Insert нормализует каталог, считает эмбеддинги одним вызовом и записывает точки в индекс одним вызовом.
// Подтверждение индекса возвращается как есть.
func (c *CatalogUseCase) Insert(ctx context.Context) (*domain.UpsertAck, error) {
	const op = "CatalogUseCase.Insert"

	runID := uuid.NewString()

	catalog, err := c.fetchCatalog(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	// Снимок каталога не влияет на индексацию
	c.saveSnapshot(ctx, runID, catalog)

	records, err := c.normalize(catalog.Products)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	// id записи становится ключом точки: повтор в пачке молча перезаписал бы первую точку
	if err := checkUniqueIDs(records); err != nil {
		return nil, e.Wrap(op, err)
	}

	start := c.now()
	aligned, err := c.embedder.Embed(ctx, records)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	c.metrics.ObserveStage(stageEmbed, time.Since(start))

	if len(aligned) == 0 {
		c.logger.Infof("Catalog is empty, nothing to index. run_id: %s", runID)
		return &domain.UpsertAck{Count: 0, IDs: []domain.ProductID{}}, nil
	}

	entries := make([]domain.IndexEntry, 0, len(aligned))
	for _, a := range aligned {
		entries = append(entries, domain.NewIndexEntry(a.Item.ID, a.Vector, a.Item.Metadata))
	}

	start = c.now()
	ack, err := c.embeddingRepo.Upsert(ctx, entries)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	c.metrics.ObserveStage(stageUpsert, time.Since(start))
	c.metrics.AddUpserted(len(entries))

	c.logger.Infof("Indexed %d products. run_id: %s, model: %s", len(entries), runID, c.embedder.ModelName())

	// Ошибка реестра не отменяет уже выполненную запись в индекс
	if err := c.registerIndexed(ctx, runID, records); err != nil {
		c.logger.Warnf("Failed to register indexed products: %v", e.Wrap(op, err))
	}

	return ack, nil
}

// Query ищет ближайшие к запросу товары. Вектор запроса считается той же моделью, что и при индексации.
func (c *CatalogUseCase) Query(ctx context.Context, req *QueryReq) (*QueryRes, error) {
	const op = "CatalogUseCase.Query"

	query := strings.TrimSpace(req.Query)
	if query == "" {
		query = c.defaults.Query
	}
	topK := req.TopK
	if topK <= 0 {
		topK = c.defaults.TopK
	}

	start := c.now()
	vector, cached, err := c.queryVector(ctx, query)
	if err != nil {
		c.metrics.IncQuery(QueryFailed)
		return nil, e.Wrap(op, err)
	}

	matches, err := c.embeddingRepo.Query(ctx, domain.IndexQuery{
		Vector:       vector,
		TopK:         topK,
		WithMetadata: true,
	})
	if err != nil {
		c.metrics.IncQuery(QueryFailed)
		return nil, e.Wrap(op, err)
	}
	c.metrics.ObserveStage(stageQuery, time.Since(start))

	if cached {
		c.metrics.IncQuery(QueryCacheHit)
	} else {
		c.metrics.IncQuery(QueryOK)
	}

	return NewQueryRes(query, matches), nil
}

// queryVector считает вектор запроса как пачку из одного текста. Кэш используется только здесь.
func (c *CatalogUseCase) queryVector(ctx context.Context, query string) ([]float32, bool, error) {
	const op = "CatalogUseCase.queryVector"

	key := QueryCacheKey(c.embedder.ModelName(), query)
	if c.cacheRepo != nil {
		vector, ok, err := c.cacheRepo.GetVector(ctx, key)
		if err != nil {
			c.logger.Warnf("Failed to read query vector from cache: %v", e.Wrap(op, err))
		} else if ok {
			return vector, true, nil
		}
	}

	aligned, err := EmbedBatch(ctx, c.embedder, domain.NewBatch([]string{query}), func(s string) string { return s })
	if err != nil {
		return nil, false, err
	}
	vector := aligned[0].Vector

	if c.cacheRepo != nil {
		if err := c.cacheRepo.SetVector(ctx, key, vector, c.cacheTTL); err != nil {
			c.logger.Warnf("Failed to cache query vector: %v", e.Wrap(op, err))
		}
	}

	return vector, false, nil
}

func (c *CatalogUseCase) fetchCatalog(ctx context.Context) (*domain.Catalog, error) {
	start := c.now()
	catalog, err := c.catalog.FetchCatalog(ctx)
	if err != nil {
		return nil, err
	}
	c.metrics.ObserveStage(stageFetch, time.Since(start))
	return catalog, nil
}

func (c *CatalogUseCase) normalize(products []domain.RawProduct) ([]domain.NormalizedRecord, error) {
	start := c.now()
	records, err := normalizer.NormalizeAll(products)
	if err != nil {
		return nil, err
	}
	c.metrics.ObserveStage(stageNormalize, time.Since(start))

	perSchema := make(map[domain.Schema]int, 2)
	for _, r := range records {
		perSchema[r.Schema]++
	}
	for schema, n := range perSchema {
		c.metrics.AddNormalized(schema, n)
	}

	return records, nil
}

func checkUniqueIDs(records []domain.NormalizedRecord) error {
	seen := make(map[domain.ProductID]int, len(records))
	for i, r := range records {
		if first, ok := seen[r.ID]; ok {
			return fmt.Errorf("%w: %s at positions %d and %d", e.ErrDuplicateProductID, r.ID, first, i)
		}
		seen[r.ID] = i
	}
	return nil
}

func (c *CatalogUseCase) saveSnapshot(ctx context.Context, runID string, catalog *domain.Catalog) {
	const op = "CatalogUseCase.saveSnapshot"

	if c.snapshotRepo == nil {
		return
	}

	key, err := c.snapshotRepo.Save(ctx, NewSaveSnapshotReq(c.tenantID, runID, catalog))
	if err != nil {
		c.logger.Warnf("Failed to save catalog snapshot: %v", e.Wrap(op, err))
		return
	}
	c.logger.Debugf("Catalog snapshot saved. key: %s", key)
}

// registerIndexed записывает реестр и outbox-события в одной транзакции.
func (c *CatalogUseCase) registerIndexed(ctx context.Context, runID string, records []domain.NormalizedRecord) (err error) {
	const op = "CatalogUseCase.registerIndexed"

	if c.registryRepo == nil || c.dbPool == nil {
		return nil
	}

	ctx, tx, err := transaction.NewTransaction(ctx, pgx.TxOptions{}, c.dbPool)
	if err != nil {
		return e.Wrap(op, err)
	}
	defer func() {
		if err != nil && tx != nil && tx.IsActive() {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				c.logger.Warnf("Rollback failed: %v", e.Wrap(op, rbErr))
			}
		}
	}()

	pgTx, ok := tx.Transaction().(pgx.Tx)
	if !ok {
		return e.Wrap(op, e.ErrTransactionNotFound)
	}
	ctx = tr.WithTx(ctx, pgTx)

	now := c.now().UTC()
	model := c.embedder.ModelName()
	products := make([]IndexedProduct, 0, len(records))
	for _, r := range records {
		products = append(products, NewIndexedProduct(r, model, runID, now))
	}

	if err = c.registryRepo.UpsertBatch(ctx, products); err != nil {
		return e.Wrap(op, err)
	}

	if c.outboxRepo != nil && c.encoder != nil {
		for _, p := range products {
			eventID := uuid.NewString()
			payload, encErr := c.encoder.EncodeProductIndexed(NewProductIndexedEvent(eventID, p))
			if encErr != nil {
				err = fmt.Errorf("encode event for %s: %w", p.ID, encErr)
				return e.Wrap(op, err)
			}

			event := NewOutboxEvent(eventID, EventProductIndexed, p.ID.String(), payload, now)
			if _, err = c.outboxRepo.Create(ctx, event); err != nil {
				return e.Wrap(op, err)
			}
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return e.Wrap(op, err)
	}

	return nil
}

// QueryCacheKey собирает ключ кэша вектора запроса из модели и хэша текста.
func QueryCacheKey(model, query string) string {
	sum := sha256.Sum256([]byte(query))
	return fmt.Sprintf("query:%s:%s", model, hex.EncodeToString(sum[:]))
}
