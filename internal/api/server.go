// Package api exposes the wave engine over HTTP.
//
// Every /api route needs a bearer token; the caller identity comes from the
// token, never from the request body. /health is open.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/engine"
)

// Config configures a Server.
type Config struct {
	JWTSecret      string
	JWTIssuer      string
	AllowedOrigins []string
	Logger         *slog.Logger
}

// Server routes HTTP requests to the engine.
type Server struct {
	engine   *engine.Engine
	logger   *slog.Logger
	validate *validator.Validate
	handler  http.Handler
}

// NewServer builds the router. A JWT secret is required.
func NewServer(e *engine.Engine, cfg Config) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("api: jwt secret is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s := &Server{
		engine:   e,
		logger:   logger,
		validate: newValidator(),
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.health).Methods(http.MethodGet)

	waves := r.PathPrefix("/api/waves").Subrouter()
	waves.Use(NewAuthMiddleware([]byte(cfg.JWTSecret), cfg.JWTIssuer))
	waves.HandleFunc("", s.createWave).Methods(http.MethodPost)
	waves.HandleFunc("/nearby", s.nearby).Methods(http.MethodGet)
	waves.HandleFunc("/{waveId}", s.getWave).Methods(http.MethodGet)
	waves.HandleFunc("/{waveId}/participants", s.participants).Methods(http.MethodGet)
	waves.HandleFunc("/{waveId}/join", s.joinWave).Methods(http.MethodPost)
	waves.HandleFunc("/{waveId}", s.deleteWave).Methods(http.MethodDelete)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	s.handler = s.logRequests(corsHandler.Handler(r))
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
