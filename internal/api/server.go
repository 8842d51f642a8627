// Package api exposes the HTTP interface: a scrape trigger plus read
// endpoints over the stored page data.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"pageinsights/internal/cache"
	"pageinsights/internal/ingest"
	"pageinsights/internal/insights"
	"pageinsights/internal/model"
	"pageinsights/internal/scraper"
	"pageinsights/internal/storage/postgres"
	"pageinsights/internal/telemetry"
)

// Crawler triggers one full page scrape.
type Crawler interface {
	Crawl(ctx context.Context, pageID string) scraper.CrawlResult
}

// Ingestor persists one crawl result.
type Ingestor interface {
	Process(ctx context.Context, res scraper.CrawlResult) ingest.Result
}

// PageReader serves the page read path.
type PageReader interface {
	GetByPageID(ctx context.Context, pageID string) (*model.Page, error)
	ListPages(ctx context.Context, filter postgres.PageFilter, limit, offset int) ([]model.Page, error)
	CountPages(ctx context.Context, filter postgres.PageFilter) (int64, error)
}

// PostReader serves the post read path.
type PostReader interface {
	ListByPage(ctx context.Context, pageID int64, limit, offset int) ([]model.Post, error)
	CountByPage(ctx context.Context, pageID int64) (int64, error)
}

// CommentReader serves comments embedded in post listings.
type CommentReader interface {
	ListByPost(ctx context.Context, postID int64, limit, offset int) ([]model.Comment, error)
}

// UserReader serves the employee read path.
type UserReader interface {
	ListByPage(ctx context.Context, pageID int64, limit, offset int) ([]model.User, error)
	CountByPage(ctx context.Context, pageID int64) (int64, error)
}

// InsightsProvider computes engagement stats for one page.
type InsightsProvider interface {
	PageStats(ctx context.Context, pageID string) (*insights.Stats, error)
}

// Summarizer generates an optional AI page summary.
type Summarizer interface {
	Available() bool
	Summarize(ctx context.Context, page *model.Page, stats *insights.Stats) (string, error)
}

// Deps collects everything the server handles requests with. Cache may
// be a disabled instance but not nil; Ready may be nil.
type Deps struct {
	Crawler    Crawler
	Ingestor   Ingestor
	Pages      PageReader
	Posts      PostReader
	Comments   CommentReader
	Users      UserReader
	Insights   InsightsProvider
	Summarizer Summarizer
	Cache      *cache.Cache
	Ready      func(ctx context.Context) error
	Logger     *zap.Logger
}

// Server wires HTTP handlers to the scrape and read paths.
type Server struct {
	router chi.Router
	deps   Deps
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{deps: deps, logger: logger}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(telemetry.Middleware)
	// The scrape endpoint drives a full headless browser session with
	// retries, so the budget is generous.
	r.Use(timeoutMiddleware(3 * time.Minute))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", telemetry.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/scraper/pages/{page_id}", s.scrapePage)
		r.Route("/pages", func(r chi.Router) {
			r.Get("/", s.listPages)
			r.Route("/{page_id}", func(r chi.Router) {
				r.Get("/", s.getPage)
				r.Get("/posts", s.listPosts)
				r.Get("/employees", s.listEmployees)
				r.Get("/insights", s.getInsights)
				r.Get("/summary", s.getSummary)
			})
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		if err := s.deps.Ready(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type requestIDKey struct{}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered",
					zap.String("path", r.URL.Path),
					zap.Any("panic", rec),
				)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, `{"error":"request timed out"}`)
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
