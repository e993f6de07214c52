// Package api exposes the studio over HTTP.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/yangwenmai/cloudpoem/internal/engine"
	"github.com/yangwenmai/cloudpoem/internal/store"
)

const (
	// maxJSONBody caps JSON request bodies (1 MB).
	maxJSONBody int64 = 1 << 20
	// maxAudioBody caps speech-to-text uploads (10 MB).
	maxAudioBody int64 = 10 << 20
)

// Studio is the generation surface the handlers drive.
type Studio interface {
	GeneratePoetry(ctx context.Context, mood string) (*engine.Poetry, error)
	GenerateImage(ctx context.Context, req engine.ImageRequest) (*engine.Illustration, error)
	Transcribe(ctx context.Context, filename string, audio []byte) (string, error)
	Status() engine.Status
}

// Server holds the HTTP handlers and dependencies.
type Server struct {
	studio     Studio
	journal    store.GenerationReader
	logger     *slog.Logger
	validate   *validator.Validate
	corsOrigin string
	limiter    *ipLimiter
	trustProxy bool
	router     chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithJournal enables GET /api/generations.
func WithJournal(r store.GenerationReader) Option {
	return func(s *Server) { s.journal = r }
}

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithCORSOrigin sets the allowed origin (default "*").
func WithCORSOrigin(origin string) Option {
	return func(s *Server) { s.corsOrigin = origin }
}

// WithRateLimit allows perMinute generation requests per client IP.
// Zero or less disables the limit.
func WithRateLimit(perMinute int) Option {
	return func(s *Server) {
		if perMinute > 0 {
			s.limiter = newIPLimiter(perMinute, time.Now)
		} else {
			s.limiter = nil
		}
	}
}

// WithTrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
// Off by default: the rate limiter then keys on the connection address.
func WithTrustProxy(on bool) Option {
	return func(s *Server) { s.trustProxy = on }
}

// New creates a new API server.
func New(studio Studio, opts ...Option) *Server {
	s := &Server{
		studio:     studio,
		logger:     slog.Default(),
		validate:   newValidator(),
		corsOrigin: "*",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Handler returns the root http.Handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if s.trustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.cors)
	r.Use(jsonContent)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/generations", s.handleListGenerations)

		r.Group(func(r chi.Router) {
			r.Use(s.rateLimit)
			r.With(limitBody(maxJSONBody)).Post("/generate-poetry", s.handleGeneratePoetry)
			r.With(limitBody(maxJSONBody)).Post("/generate-image", s.handleGenerateImage)
			r.With(limitBody(maxAudioBody)).Post("/speech-to-text", s.handleSpeechToText)
		})
	})
	s.router = r
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// limitBody restricts the request body to n bytes.
func limitBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, n)
			next.ServeHTTP(w, r)
		})
	}
}

func jsonContent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.allow(clientIP(r)) {
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, errorResponse{
				Error: "请求过于频繁，请稍后再试",
				Code:  "RateLimitError",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
