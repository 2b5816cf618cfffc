// Package api exposes enrichment and batch import over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/chico-rentals/rental-cli/internal/importer"
	"github.com/chico-rentals/rental-cli/internal/model"
)

// Enricher enriches a single identifier.
type Enricher interface {
	Enrich(ctx context.Context, raw string) model.EnrichmentResult
}

// Importer runs a batch import.
type Importer interface {
	Import(ctx context.Context, batch importer.Batch, opts importer.Options) model.BatchImportResult
}

// PropertyReader reads stored properties.
type PropertyReader interface {
	Get(ctx context.Context, key string) (*model.Property, error)
	Count(ctx context.Context) (int, error)
}

// Deps are the collaborators behind the routes.
type Deps struct {
	Enricher   Enricher
	Importer   Importer
	Properties PropertyReader

	// ImportOptions are the defaults for import requests; a request may
	// override ChunkSize.
	ImportOptions        importer.Options
	ListingImportOptions importer.Options

	AllowedOrigins []string
	Logger         *zap.Logger
}

// NewRouter returns a chi router with endpoints registered.
func NewRouter(d Deps) chi.Router {
	if d.Logger == nil {
		d.Logger = zap.L()
	}
	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(d.Logger))
	r.Use(middleware.Recoverer)

	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	})
	r.Use(c.Handler)

	h := &handlers{deps: d}
	r.Get("/health", h.health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/enrich/{id}", h.enrich)
		r.Get("/properties/count", h.countProperties)
		r.Get("/properties/{apn}", h.getProperty)
		r.Post("/import", h.importIdentifiers)
		r.Post("/import/listings", h.importListings)
	})
	return r
}

// requestLogger logs each request with its status and latency.
func requestLogger(log *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			reqID := middleware.GetReqID(r.Context())
			t0 := time.Now()
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", time.Since(t0)),
				zap.String("request_id", reqID),
			}
			if status < 500 {
				log.Info("http request", fields...)
			} else {
				log.Warn("http request", fields...)
			}
		})
	}
}
