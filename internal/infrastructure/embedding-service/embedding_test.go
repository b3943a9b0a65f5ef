package embedding_service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DRSN-tech/wine-search/internal/cfg"
	"github.com/DRSN-tech/wine-search/pkg/e"
	"github.com/DRSN-tech/wine-search/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenAI(url string, retries int) *OpenAIService {
	return NewOpenAIService(&cfg.EmbeddingCfg{
		BaseURL:        url + "/",
		APIKey:         "sk-test",
		Model:          "text-embedding-3-small",
		Timeout:        5 * time.Second,
		MaxRetries:     retries,
		RetryBaseDelay: time.Millisecond,
	}, nil, logger.NewNop())
}

func TestOpenAIService_PlacesVectorsByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"a", "bb", "ccc"}, req.Input)
		assert.Equal(t, "text-embedding-3-small", req.Model)

		fmt.Fprint(w, `{"data":[
			{"index":2,"embedding":[3,3]},
			{"index":0,"embedding":[1,1]},
			{"index":1,"embedding":[2,2]}
		],"model":"text-embedding-3-small"}`)
	}))
	defer srv.Close()

	vectors, err := newOpenAI(srv.URL, 1).Embed(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 1}, {2, 2}, {3, 3}}, vectors)
}

func TestOpenAIService_SingleAttemptByDefault(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"rate limited","type":"requests"}}`)
	}))
	defer srv.Close()

	_, err := newOpenAI(srv.URL, 1).Embed(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, e.ErrEmbeddingStatus)
	assert.Contains(t, err.Error(), "rate limited")
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenAIService_RetriesWithinBudget(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"data":[{"index":0,"embedding":[0.5]}]}`)
	}))
	defer srv.Close()

	vectors, err := newOpenAI(srv.URL, 3).Embed(context.Background(), []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.5}}, vectors)
	assert.Equal(t, int32(3), calls.Load())
}

func TestOpenAIService_RejectsMisalignedResponses(t *testing.T) {
	cases := map[string]string{
		"count":     `{"data":[{"index":0,"embedding":[1]}]}`,
		"duplicate": `{"data":[{"index":0,"embedding":[1]},{"index":0,"embedding":[2]}]}`,
		"range":     `{"data":[{"index":0,"embedding":[1]},{"index":5,"embedding":[2]}]}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, body)
			}))
			defer srv.Close()

			_, err := newOpenAI(srv.URL, 1).Embed(context.Background(), []string{"a", "b"})
			assert.ErrorIs(t, err, e.ErrVectorCountMismatch)
		})
	}
}

func TestOpenAIService_APIErrorInSuccessfulResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":{"message":"model not found"}}`)
	}))
	defer srv.Close()

	_, err := newOpenAI(srv.URL, 1).Embed(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, e.ErrEmbeddingAPI)
}

func TestOpenAIService_RejectsOversizedResponse(t *testing.T) {
	body := `{"data":[{"index":0,"embedding":[0.25,0.5]}]}`
	prev := maxResponseSize
	maxResponseSize = len(body) - 1
	t.Cleanup(func() { maxResponseSize = prev })

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	_, err := newOpenAI(srv.URL, 1).Embed(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, e.ErrResponseTooLarge)

	maxResponseSize = len(body)
	vectors, err := newOpenAI(srv.URL, 1).Embed(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.25, 0.5}}, vectors)
}

func TestHashService_DeterministicAndNormalized(t *testing.T) {
	svc := NewHashService(64)
	assert.Equal(t, "hash-64", svc.ModelName())

	texts := []string{"Full bodied red wine from Bordeaux", "Full bodied red wine from Bordeaux", ""}
	vectors, err := svc.Embed(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, 3)

	assert.Equal(t, vectors[0], vectors[1])
	for _, v := range vectors {
		assert.Len(t, v, 64)
		assert.InDelta(t, 1.0, norm(v), 1e-5)
	}
}

func TestHashService_SimilarTextsAreCloser(t *testing.T) {
	svc := NewHashService(256)
	vectors, err := svc.Embed(context.Background(), []string{
		"red wine cabernet sauvignon bordeaux",
		"bordeaux red wine cabernet",
		"sparkling champagne brut",
	})
	require.NoError(t, err)

	assert.Greater(t, dot(vectors[0], vectors[1]), dot(vectors[0], vectors[2]))
}

func TestHashService_RespectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHashService(8).Embed(ctx, []string{"x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func norm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}
