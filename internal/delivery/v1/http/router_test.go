package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/DRSN-tech/wine-search/internal/domain"
	"github.com/DRSN-tech/wine-search/internal/usecase"
	"github.com/DRSN-tech/wine-search/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUC struct {
	catalog *domain.Catalog
	records []domain.NormalizedRecord
	ack     *domain.UpsertAck
	res     *usecase.QueryRes
	err     error
	panics  bool

	lastQuery *usecase.QueryReq
}

func (f *fakeUC) Products(context.Context) (*domain.Catalog, error) {
	if f.panics {
		panic("boom")
	}
	return f.catalog, f.err
}

func (f *fakeUC) TextData(context.Context) ([]domain.NormalizedRecord, error) {
	return f.records, f.err
}

func (f *fakeUC) Insert(context.Context) (*domain.UpsertAck, error) {
	return f.ack, f.err
}

func (f *fakeUC) Query(_ context.Context, req *usecase.QueryReq) (*usecase.QueryRes, error) {
	f.lastQuery = req
	return f.res, f.err
}

type observed struct {
	route  string
	status int
}

type fakeObserver struct {
	mu    sync.Mutex
	calls []observed
}

func (o *fakeObserver) ObserveRequest(route string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, observed{route, status})
}

func newTestRouter(uc usecase.CatalogUC, observer RequestObserver) http.Handler {
	mux := chi.NewRouter()
	NewRouter(mux, logger.NewNop()).Init(uc, observer, nil, nil)
	return mux
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestProducts(t *testing.T) {
	uc := &fakeUC{catalog: domain.NewCatalog([]domain.RawProduct{
		domain.NewFlatRawProduct(domain.FlatProduct{SKU: "WS-1"}),
	})}

	rec := do(t, newTestRouter(uc, nil), http.MethodGet, "/products")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		TotalItems int               `json:"totalItems"`
		Products   []json.RawMessage `json:"products"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.TotalItems)
	assert.Len(t, body.Products, 1)
}

func TestUnstructuredFailures(t *testing.T) {
	uc := &fakeUC{err: errors.New("catalog source returned non-2xx status")}
	router := newTestRouter(uc, nil)

	for _, path := range []string{"/products", "/text-data"} {
		t.Run(path, func(t *testing.T) {
			rec := do(t, router, http.MethodGet, path)
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
			assert.Equal(t, "internal server error\n", rec.Body.String())
		})
	}
}

func TestStructuredFailures(t *testing.T) {
	uc := &fakeUC{err: errors.New("index unavailable")}
	router := newTestRouter(uc, nil)

	for _, path := range []string{"/insert", "/query?q=rioja"} {
		t.Run(path, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, path)
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.JSONEq(t, `{"error":"index unavailable"}`, rec.Body.String())
		})
	}
}

func TestInsert(t *testing.T) {
	uc := &fakeUC{ack: &domain.UpsertAck{Count: 2, IDs: []domain.ProductID{"a", "b"}, Status: "completed"}}

	rec := do(t, newTestRouter(uc, nil), http.MethodPost, "/insert")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":2,"ids":["a","b"],"status":"completed"}`, rec.Body.String())
}

func TestQuery(t *testing.T) {
	uc := &fakeUC{res: usecase.NewQueryRes("rioja", []domain.Match{{ID: "WS-4", Score: 0.5}})}
	router := newTestRouter(uc, nil)

	rec := do(t, router, http.MethodGet, "/query?q=rioja&topK=3")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"query":"rioja","matches":[{"id":"WS-4","score":0.5}]}`, rec.Body.String())
	assert.Equal(t, usecase.NewQueryReq("rioja", 3), uc.lastQuery)

	rec = do(t, router, http.MethodGet, "/query")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, usecase.NewQueryReq("", 0), uc.lastQuery)
}

func TestQuery_InvalidTopK(t *testing.T) {
	for _, raw := range []string{"abc", "0", "-2", "1.5"} {
		t.Run(raw, func(t *testing.T) {
			uc := &fakeUC{}
			rec := do(t, newTestRouter(uc, nil), http.MethodGet, "/query?q=x&topK="+raw)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "topK must be a positive integer")
			assert.Nil(t, uc.lastQuery)
		})
	}
}

func TestUnknownPathListsEndpoints(t *testing.T) {
	rec := do(t, newTestRouter(&fakeUC{}, nil), http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rec.Code)

	var body EndpointsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, Endpoints, body.Endpoints)
}

func TestPanicIsRecovered(t *testing.T) {
	rec := do(t, newTestRouter(&fakeUC{panics: true}, nil), http.MethodGet, "/products")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRequestsAreObserved(t *testing.T) {
	observer := &fakeObserver{}
	router := newTestRouter(&fakeUC{ack: &domain.UpsertAck{IDs: []domain.ProductID{}}}, observer)

	do(t, router, http.MethodPost, "/insert")
	do(t, router, http.MethodGet, "/nope")

	assert.Equal(t, []observed{
		{route: "/insert", status: http.StatusOK},
		{route: "other", status: http.StatusOK},
	}, observer.calls)
}
