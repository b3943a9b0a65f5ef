package http

import (
	"net/http"
	"time"

	_ "github.com/DRSN-tech/wine-search/docs" // Импорт сгенерированных файлов
	"github.com/DRSN-tech/wine-search/internal/usecase"
	"github.com/DRSN-tech/wine-search/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

// RequestObserver принимает длительность обработанных запросов
type RequestObserver interface {
	ObserveRequest(route string, status int, d time.Duration)
}

type Router struct {
	router *chi.Mux
	logger logger.Logger
}

func NewRouter(router *chi.Mux, logger logger.Logger) *Router {
	return &Router{router: router, logger: logger}
}

// Init регистрирует маршруты. metrics и mcp могут быть nil.
func (r *Router) Init(uc usecase.CatalogUC, observer RequestObserver, metrics http.Handler, mcp http.Handler) {
	r.router.Use(middleware.RequestID)
	r.router.Use(middleware.Recoverer)
	if observer != nil {
		r.router.Use(observeRequests(observer))
	}

	r.router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"), // ссылка на JSON
	))
	if metrics != nil {
		r.router.Method(http.MethodGet, "/metrics", metrics)
	}
	if mcp != nil {
		r.router.Handle("/mcp", mcp)
	}

	h := NewCatalogHandler(uc, r.logger)
	registerCatalogRoutes(r.router, h)
}

func registerCatalogRoutes(router chi.Router, h *CatalogHandler) {
	router.HandleFunc("/products", h.products)
	router.HandleFunc("/text-data", h.textData)
	router.HandleFunc("/insert", h.insert)
	router.HandleFunc("/query", h.query)
	router.NotFound(h.endpoints)
	router.MethodNotAllowed(h.endpoints)
}

func observeRequests(observer RequestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "other"
			}
			observer.ObserveRequest(route, ww.Status(), time.Since(start))
		})
	}
}
