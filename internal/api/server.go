// Package api exposes the HTTP interface for the rank tracker service.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ranktrakr/ranktrakr/internal/metrics"
	"github.com/ranktrakr/ranktrakr/internal/serp"
	"github.com/ranktrakr/ranktrakr/internal/store"
	"github.com/ranktrakr/ranktrakr/internal/tracker"
)

// KeywordStore is the keyword CRUD surface the handlers need.
type KeywordStore interface {
	List(ctx context.Context, q store.Querier) ([]store.Keyword, error)
	Get(ctx context.Context, q store.Querier, id int64) (store.Keyword, error)
	Insert(ctx context.Context, q store.Querier, keyword, targetDomain string) (store.Keyword, error)
	Delete(ctx context.Context, q store.Querier, id int64) error
}

// RankingStore is the snapshot surface the handlers need.
type RankingStore interface {
	Latest(ctx context.Context, q store.Querier) ([]store.LatestRanking, error)
	LatestFor(ctx context.Context, q store.Querier, keywordID int64) (*store.Snapshot, error)
	History(ctx context.Context, q store.Querier, keywordID int64, windowDays int) ([]store.Snapshot, error)
	UpsertSnapshot(ctx context.Context, q store.Querier, keywordID int64, keyword string, f store.SnapshotFields) error
	RecordNoMatch(ctx context.Context, q store.Querier, keywordID int64, keyword string) error
}

// SerpClient resolves keywords against the provider.
type SerpClient interface {
	FetchBestMatch(ctx context.Context, keyword, targetDomain string, loc serp.Location) (*serp.Match, error)
	Preview(ctx context.Context, keyword, targetDomain string, loc serp.Location, topN int) (serp.Preview, error)
	Ping(ctx context.Context) error
}

// CycleRunner runs one full update cycle.
type CycleRunner interface {
	Run(ctx context.Context) (tracker.Summary, error)
}

// Pinger reports database liveness; satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server wires HTTP handlers to the stores, the SERP client and the cycle.
type Server struct {
	router   chi.Router
	db       store.Querier
	pinger   Pinger
	keywords KeywordStore
	rankings RankingStore
	client   SerpClient
	cycle    CycleRunner
	defaults serp.Location
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	db store.Querier,
	pinger Pinger,
	keywords KeywordStore,
	rankings RankingStore,
	client SerpClient,
	cycle CycleRunner,
	defaults serp.Location,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		db:       db,
		pinger:   pinger,
		keywords: keywords,
		rankings: rankings,
		client:   client,
		cycle:    cycle,
		defaults: defaults,
		logger:   logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/keywords", func(r chi.Router) {
		r.Use(timeoutMiddleware(60 * time.Second))
		r.Get("/", s.listKeywords)
		r.Post("/", s.createKeyword)
		r.Post("/update", s.triggerUpdate)
		r.Get("/debug/serp", s.debugSERP)
		r.Get("/debug/ping", s.debugPing)
		r.Get("/{id}", s.getKeyword)
		r.Delete("/{id}", s.deleteKeyword)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := s.pinger.Ping(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	writeData(w, http.StatusOK, map[string]string{"status": "ready"})
}

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON response", zap.Error(err))
	}
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Error: msg})
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		reqID, _ := r.Context().Value(requestIDKey{}).(string)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.String("request_id", reqID),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	// TimeoutHandler writes the body verbatim, so it has to be a
	// pre-encoded envelope to keep error responses uniform.
	body, _ := json.Marshal(envelope{Success: false, Error: "request timed out"})
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, string(body))
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
