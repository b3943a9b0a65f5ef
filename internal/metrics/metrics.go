// Package metrics собирает метрики конвейера индексации и HTTP-запросов в
// собственный реестр Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/DRSN-tech/wine-search/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wine_search"

type Metrics struct {
	Registry *prometheus.Registry

	stageDuration  *prometheus.HistogramVec
	normalized     *prometheus.CounterVec
	embeddingBatch prometheus.Histogram
	upserted       prometheus.Counter
	queries        *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// New создаёт реестр с метриками сервиса. Все метрики получают метку service.
func New(serviceName string, withDefaultCollectors bool) *Metrics {
	registry := prometheus.NewRegistry()
	wrapped := prometheus.WrapRegistererWith(prometheus.Labels{"service": serviceName}, registry)

	m := &Metrics{
		Registry: registry,
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		normalized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "normalized_products_total",
			Help:      "Number of normalized catalog products by schema",
		}, []string{"schema"}),
		embeddingBatch: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "embedding_batch_size",
			Help:      "Number of texts sent in one embedding request",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		upserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upserted_points_total",
			Help:      "Number of points written to the vector index",
		}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Number of semantic queries by outcome",
		}, []string{"outcome"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}

	wrapped.MustRegister(
		m.stageDuration,
		m.normalized,
		m.embeddingBatch,
		m.upserted,
		m.queries,
		m.httpDuration,
	)

	if withDefaultCollectors {
		wrapped.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewBuildInfoCollector(),
		)
	}

	return m
}

// Handler отдаёт метрики реестра для Prometheus
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) AddNormalized(schema domain.Schema, n int) {
	m.normalized.WithLabelValues(string(schema)).Add(float64(n))
}

func (m *Metrics) ObserveEmbedding(texts int) {
	m.embeddingBatch.Observe(float64(texts))
}

func (m *Metrics) AddUpserted(n int) {
	m.upserted.Add(float64(n))
}

func (m *Metrics) IncQuery(outcome string) {
	m.queries.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRequest(route string, status int, d time.Duration) {
	m.httpDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(d.Seconds())
}
