package cfg

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/DRSN-tech/wine-search/pkg/e"
	"github.com/DRSN-tech/wine-search/pkg/logger"
	"github.com/jimlawless/whereami"
)

const (
	CatalogRemote = "remote"
	CatalogStatic = "static"

	EmbeddingOpenAI = "openai"
	EmbeddingHash   = "hash"

	VectorStoreQdrant = "qdrant"
	VectorStoreBolt   = "bolt"
)

type Config struct {
	Http            *HTTPConfig
	Grpc            *GRPCConfig
	Catalog         *CatalogCfg
	Embedding       *EmbeddingCfg
	VectorStore     *VectorStoreCfg
	Qdrant          *QdrantCfg
	Redis           *RedisCfg
	Db              *PGDBCfg
	Kafka           *KafkaCfg
	Minio           *MinIOCfg
	Query           *QueryCfg
	ShutdownTimeout time.Duration
}

type HTTPConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type GRPCConfig struct {
	Port        string
	NetworkMode string
}

// CatalogCfg описывает источник каталога. Для remote обязателен ServerURL.
type CatalogCfg struct {
	Source     string
	ServerURL  string
	TenantID   string
	Page       int
	Limit      int
	Timeout    time.Duration
	StaticPath string // пустой путь: встроенный каталог
}

type EmbeddingCfg struct {
	Provider       string
	BaseURL        string
	APIKey         string
	Model          string
	Dimensions     int
	Timeout        time.Duration
	MaxRetries     int // число попыток, 1 значит без повторов
	RetryBaseDelay time.Duration
}

type VectorStoreCfg struct {
	Backend    string
	BoltPath   string
	BoltBucket string
}

type QdrantCfg struct {
	Port                 int
	Host                 string
	ApiKey               string
	QdrantCollectionName string // имя коллекции в Qdrant
	UseTLS               bool
	VectorSize           uint64
}

type RedisCfg struct {
	Enabled     bool
	Addr        string
	Password    string
	User        string
	DB          int
	MaxRetries  int
	DialTimeout time.Duration
	Timeout     time.Duration
	QueryTTL    time.Duration
}

type PGDBCfg struct {
	Enabled  bool
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type KafkaCfg struct {
	Enabled           bool
	Topic             string
	Brokers           []string
	NetworkMode       string
	Partitions        int
	ReplicationFactor int
}

type MinIOCfg struct {
	Enabled           bool
	MinioEndpoint     string // Адрес конечной точки Minio
	BucketName        string // Бакет для снимков каталога
	MinioRootUser     string
	MinioRootPassword string
	MinioUseSSL       bool
}

type QueryCfg struct {
	DefaultQuery string
	DefaultTopK  int
}

// Load безопасно загружает конфигурацию и возвращает ошибку в случае неудачи.
func Load(log logger.Logger) (*Config, error) {
	http, err := loadHTTPConfig(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	catalog, err := loadCatalogCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	vectorSize, err := parseIntEnv("VECTOR_SIZE", 1536)
	if err != nil || vectorSize <= 0 {
		log.Errorf(e.ErrIncorrectEnvVariable, "invalid VECTOR_SIZE")
		return nil, e.Wrap("VECTOR_SIZE", e.ErrIncorrectEnvVariable)
	}

	embedding, err := loadEmbeddingCfg(log, vectorSize)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	vectorStore, err := loadVectorStoreCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	qdrant, err := loadQdrantCfg(log, vectorSize)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	redis, err := loadRedisCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	db, err := loadPGDBCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	kafka, err := loadKafkaCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	minio, err := loadMinIOCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	query, err := loadQueryCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	shutdownTimeout, err := parseDurationEnv("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		log.Errorf(err, "invalid SHUTDOWN_TIMEOUT")
		return nil, err
	}

	return &Config{
		Http:            http,
		Grpc:            loadGRPCConfig(),
		Catalog:         catalog,
		Embedding:       embedding,
		VectorStore:     vectorStore,
		Qdrant:          qdrant,
		Redis:           redis,
		Db:              db,
		Kafka:           kafka,
		Minio:           minio,
		Query:           query,
		ShutdownTimeout: shutdownTimeout,
	}, nil
}

func loadHTTPConfig(log logger.Logger) (*HTTPConfig, error) {
	const (
		defaultPort         = "8080"
		defaultReadTimeout  = 5 * time.Second
		defaultWriteTimeout = 60 * time.Second
		defaultIdleTimeout  = 60 * time.Second
	)

	port := getEnvOrDefault("HTTP_PORT", defaultPort)

	readTimeout, err := parseDurationEnv("HTTP_READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_READ_TIMEOUT")
		return nil, err
	}

	// /insert ждёт каталог, embedding-сервис и индекс, поэтому таймаут записи больше чтения
	writeTimeout, err := parseDurationEnv("HTTP_WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_WRITE_TIMEOUT")
		return nil, err
	}

	idleTimeout, err := parseDurationEnv("KEEP_ALIVE", defaultIdleTimeout)
	if err != nil {
		log.Errorf(err, "invalid KEEP_ALIVE")
		return nil, err
	}

	return &HTTPConfig{
		Port:         port,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}, nil
}

func loadGRPCConfig() *GRPCConfig {
	const (
		defaultPort        = "8091"
		defaultNetworkMode = "tcp"
	)

	return &GRPCConfig{
		Port:        getEnvOrDefault("GRPC_PORT", defaultPort),
		NetworkMode: getEnvOrDefault("GRPC_NETWORK_MODE", defaultNetworkMode),
	}
}

func loadCatalogCfg(log logger.Logger) (*CatalogCfg, error) {
	const (
		defaultTenantID = "default"
		defaultPage     = 1
		defaultLimit    = 50
		defaultTimeout  = 30 * time.Second
	)

	serverURL := getEnv("CATALOG_SERVER_URL")
	defaultSource := CatalogStatic
	if serverURL != "" {
		defaultSource = CatalogRemote
	}

	source := strings.ToLower(getEnvOrDefault("CATALOG_SOURCE", defaultSource))
	switch source {
	case CatalogRemote:
		if serverURL == "" {
			err := fmt.Errorf("CATALOG_SERVER_URL is required for remote catalog")
			log.Errorf(err, "missing CATALOG_SERVER_URL")
			return nil, err
		}
		if _, err := url.ParseRequestURI(serverURL); err != nil {
			log.Errorf(err, "invalid CATALOG_SERVER_URL")
			return nil, e.Wrap("CATALOG_SERVER_URL", e.ErrIncorrectEnvVariable)
		}
	case CatalogStatic:
	default:
		return nil, fmt.Errorf("%w: catalog source %q", e.ErrUnknownProvider, source)
	}

	page, err := parseIntEnv("CATALOG_PAGE", defaultPage)
	if err != nil {
		return nil, e.Wrap("CATALOG_PAGE", err)
	}

	limit, err := parseIntEnv("CATALOG_LIMIT", defaultLimit)
	if err != nil {
		return nil, e.Wrap("CATALOG_LIMIT", err)
	}

	timeout, err := parseDurationEnv("CATALOG_TIMEOUT", defaultTimeout)
	if err != nil {
		log.Errorf(err, "invalid CATALOG_TIMEOUT")
		return nil, err
	}

	return &CatalogCfg{
		Source:     source,
		ServerURL:  serverURL,
		TenantID:   getEnvOrDefault("CATALOG_TENANT_ID", defaultTenantID),
		Page:       page,
		Limit:      limit,
		Timeout:    timeout,
		StaticPath: getEnv("CATALOG_STATIC_PATH"),
	}, nil
}

func loadEmbeddingCfg(log logger.Logger, dimensions int) (*EmbeddingCfg, error) {
	const (
		defaultBaseURL        = "https://api.openai.com/v1"
		defaultModel          = "text-embedding-3-small"
		defaultTimeout        = 30 * time.Second
		defaultMaxRetries     = 1
		defaultRetryBaseDelay = 500 * time.Millisecond
	)

	apiKey := getEnv("EMBEDDING_API_KEY")
	defaultProvider := EmbeddingHash
	if apiKey != "" {
		defaultProvider = EmbeddingOpenAI
	}

	provider := strings.ToLower(getEnvOrDefault("EMBEDDING_PROVIDER", defaultProvider))
	if provider != EmbeddingOpenAI && provider != EmbeddingHash {
		return nil, fmt.Errorf("%w: embedding provider %q", e.ErrUnknownProvider, provider)
	}

	timeout, err := parseDurationEnv("EMBEDDING_TIMEOUT", defaultTimeout)
	if err != nil {
		log.Errorf(err, "invalid EMBEDDING_TIMEOUT")
		return nil, err
	}

	maxRetries, err := parseIntEnv("EMBEDDING_MAX_RETRIES", defaultMaxRetries)
	if err != nil || maxRetries < 1 {
		return nil, e.Wrap("EMBEDDING_MAX_RETRIES", e.ErrIncorrectEnvVariable)
	}

	retryBaseDelay, err := parseDurationEnv("EMBEDDING_RETRY_BASE_DELAY", defaultRetryBaseDelay)
	if err != nil {
		log.Errorf(err, "invalid EMBEDDING_RETRY_BASE_DELAY")
		return nil, err
	}

	return &EmbeddingCfg{
		Provider:       provider,
		BaseURL:        strings.TrimRight(getEnvOrDefault("EMBEDDING_BASE_URL", defaultBaseURL), "/"),
		APIKey:         apiKey,
		Model:          getEnvOrDefault("EMBEDDING_MODEL", defaultModel),
		Dimensions:     dimensions,
		Timeout:        timeout,
		MaxRetries:     maxRetries,
		RetryBaseDelay: retryBaseDelay,
	}, nil
}

func loadVectorStoreCfg() (*VectorStoreCfg, error) {
	const (
		defaultBoltPath   = "data/index.db"
		defaultBoltBucket = "wines"
	)

	defaultBackend := VectorStoreBolt
	if getEnv("QDRANT_HOST") != "" {
		defaultBackend = VectorStoreQdrant
	}

	backend := strings.ToLower(getEnvOrDefault("VECTOR_STORE", defaultBackend))
	if backend != VectorStoreQdrant && backend != VectorStoreBolt {
		return nil, fmt.Errorf("%w: vector store %q", e.ErrUnknownProvider, backend)
	}

	return &VectorStoreCfg{
		Backend:    backend,
		BoltPath:   getEnvOrDefault("BOLT_PATH", defaultBoltPath),
		BoltBucket: getEnvOrDefault("BOLT_BUCKET", defaultBoltBucket),
	}, nil
}

func loadQdrantCfg(logger logger.Logger, vectorSize int) (*QdrantCfg, error) {
	const (
		defaultQdrantGRPCPort = "6334"
		defaultUseTLS         = false
		defaultCollection     = "wines"
	)

	strPort := getEnvOrDefault("QDRANT_GRPC_PORT", defaultQdrantGRPCPort)
	port, err := strconv.Atoi(strPort)
	if err != nil {
		logger.Errorf(err, "invalid QDRANT_GRPC_PORT")
		return nil, err
	}

	useTLS, err := strconv.ParseBool(getEnvOrDefault("QDRANT_USE_TLS", strconv.FormatBool(defaultUseTLS)))
	if err != nil {
		logger.Errorf(err, "invalid QDRANT_USE_TLS")
		return nil, err
	}

	return &QdrantCfg{
		Host:                 getEnvOrDefault("QDRANT_HOST", "localhost"),
		Port:                 port,
		ApiKey:               getEnv("QDRANT__SERVICE__API_KEY"),
		QdrantCollectionName: getEnvOrDefault("COLLECTION_NAME", defaultCollection),
		UseTLS:               useTLS,
		VectorSize:           uint64(vectorSize),
	}, nil
}

func loadRedisCfg(log logger.Logger) (*RedisCfg, error) {
	const (
		defaultDB           = 0
		defaultMaxRetries   = 3
		defaultDialTimeout  = 5 * time.Second
		defaultReadTimeout  = 3 * time.Second
		defaultWriteTimeout = 3 * time.Second
		defaultQueryTTL     = 10 * time.Minute
	)

	addr := getEnv("REDIS_ADDR")
	if addr == "" {
		return &RedisCfg{Enabled: false}, nil
	}

	db, err := parseIntEnv("REDIS_DB_ID", defaultDB)
	if err != nil {
		log.Errorf(err, "invalid REDIS_DB_ID")
		return nil, err
	}

	maxRetries, err := parseIntEnv("REDIS_MAX_RETRIES", defaultMaxRetries)
	if err != nil {
		log.Errorf(err, "invalid REDIS_MAX_RETRIES")
		return nil, err
	}

	dialTimeout, err := parseDurationEnv("REDIS_DIAL_TIMEOUT", defaultDialTimeout)
	if err != nil {
		log.Errorf(err, "invalid REDIS_DIAL_TIMEOUT")
		return nil, err
	}

	readTimeout, err := parseDurationEnv("REDIS_READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid REDIS_READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("REDIS_WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid REDIS_WRITE_TIMEOUT")
		return nil, err
	}

	queryTTL, err := parseDurationEnv("QUERY_CACHE_TTL", defaultQueryTTL)
	if err != nil {
		log.Errorf(err, "invalid QUERY_CACHE_TTL")
		return nil, err
	}

	timeout := readTimeout
	if writeTimeout > timeout {
		timeout = writeTimeout
	}

	return &RedisCfg{
		Enabled:     true,
		Addr:        addr,
		Password:    getEnv("REDIS_PASSWORD"),
		User:        getEnv("REDIS_USER"),
		DB:          db,
		MaxRetries:  maxRetries,
		DialTimeout: dialTimeout,
		Timeout:     timeout,
		QueryTTL:    queryTTL,
	}, nil
}

func loadPGDBCfg(log logger.Logger) (*PGDBCfg, error) {
	const (
		defaultHost    = "localhost"
		defaultPort    = "5432"
		defaultSSLMode = "disable"
	)

	dbName := getEnv("POSTGRES_DB")
	if dbName == "" {
		return &PGDBCfg{Enabled: false}, nil
	}

	user := getEnv("POSTGRES_USER")
	if user == "" {
		err := fmt.Errorf("POSTGRES_USER is required")
		log.Errorf(err, "missing POSTGRES_USER")
		return nil, err
	}

	password := getEnv("POSTGRES_PASSWORD")
	if password == "" {
		err := fmt.Errorf("POSTGRES_PASSWORD is required")
		log.Errorf(err, "missing POSTGRES_PASSWORD")
		return nil, err
	}

	return &PGDBCfg{
		Enabled:  true,
		Host:     getEnvOrDefault("POSTGRES_HOST", defaultHost),
		Port:     getEnvOrDefault("POSTGRES_PORT", defaultPort),
		User:     user,
		Password: password,
		DBName:   dbName,
		SSLMode:  getEnvOrDefault("SSL_MODE", defaultSSLMode),
	}, nil
}

// DSN строит строку подключения к PostgreSQL.
func (c *PGDBCfg) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.DBName,
		c.SSLMode,
	)
}

func loadKafkaCfg() (*KafkaCfg, error) {
	const (
		defaultTopic             = "wine.indexed"
		defaultPartitions        = 3
		defaultReplicationFactor = 1
		defaultNetworkMode       = "tcp"
	)

	brokerStr := getEnv("KAFKA_BROKERS")
	if brokerStr == "" {
		return &KafkaCfg{Enabled: false}, nil
	}

	var brokers []string
	for _, b := range strings.Split(brokerStr, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return nil, e.Wrap("KAFKA_BROKERS", e.ErrIncorrectEnvVariable)
	}

	partitions, err := parseIntEnv("KAFKA_PARTITIONS", defaultPartitions)
	if err != nil {
		return nil, e.Wrap("KAFKA_PARTITIONS", err)
	}

	replicationFactor, err := parseIntEnv("REPLICATION_FACTOR", defaultReplicationFactor)
	if err != nil {
		return nil, e.Wrap("REPLICATION_FACTOR", err)
	}

	return &KafkaCfg{
		Enabled:           true,
		Brokers:           brokers,
		Topic:             getEnvOrDefault("KAFKA_TOPIC", defaultTopic),
		Partitions:        partitions,
		ReplicationFactor: replicationFactor,
		NetworkMode:       getEnvOrDefault("KAFKA_NETWORK_MODE", defaultNetworkMode),
	}, nil
}

func loadMinIOCfg(log logger.Logger) (*MinIOCfg, error) {
	const (
		defaultUseSSL = false
		defaultBucket = "catalog-snapshots"
	)

	endpoint := getEnv("MINIO_ENDPOINT")
	if endpoint == "" {
		return &MinIOCfg{Enabled: false}, nil
	}

	useSSL, err := strconv.ParseBool(getEnvOrDefault("MINIO_USE_SSL", strconv.FormatBool(defaultUseSSL)))
	if err != nil {
		log.Errorf(err, "invalid MINIO_USE_SSL")
		return nil, err
	}

	return &MinIOCfg{
		Enabled:           true,
		MinioEndpoint:     endpoint,
		BucketName:        getEnvOrDefault("BUCKET_NAME", defaultBucket),
		MinioRootUser:     getEnv("MINIO_ROOT_USER"),
		MinioRootPassword: getEnv("MINIO_ROOT_PASSWORD"),
		MinioUseSSL:       useSSL,
	}, nil
}

func loadQueryCfg() (*QueryCfg, error) {
	const (
		defaultQuery = "red wine"
		defaultTopK  = 5
	)

	topK, err := parseIntEnv("QUERY_DEFAULT_TOP_K", defaultTopK)
	if err != nil || topK <= 0 {
		return nil, e.Wrap("QUERY_DEFAULT_TOP_K", e.ErrIncorrectEnvVariable)
	}

	return &QueryCfg{
		DefaultQuery: getEnvOrDefault("QUERY_DEFAULT_TEXT", defaultQuery),
		DefaultTopK:  topK,
	}, nil
}

// getEnv возвращает значение переменной окружения.
// Возвращает пустую строку, если переменная не задана.
func getEnv(key string) string {
	return os.Getenv(key)
}

// getEnvOrDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

// parseDurationEnv считывает длительность или возвращает значение по умолчанию.
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	if v := os.Getenv(key); v != "" {
		return time.ParseDuration(v)
	}

	return defaultValue, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}

	intValue, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue, e.ErrIncorrectEnvVariable
	}

	return intValue, nil
}
