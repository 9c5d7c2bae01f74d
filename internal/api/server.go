// Package api exposes the engine over HTTP and websockets.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/abhisek/viva/internal/engine"
	"github.com/abhisek/viva/internal/logger"
)

// Config holds server configuration.
type Config struct {
	Port           int           `koanf:"port"`
	AllowAll       bool          `koanf:"allow_all"` // allow all CORS origins (dev mode)
	RequestTimeout time.Duration `koanf:"request_timeout"`
	MaxAudioBytes  int64         `koanf:"max_audio_bytes"`
}

// DefaultConfig returns the standard server settings. The request timeout
// covers a full turn, transcription included.
func DefaultConfig() Config {
	return Config{
		Port:           8080,
		RequestTimeout: 5 * time.Minute,
		MaxAudioBytes:  25 << 20,
	}
}

// Server serves the interview API.
type Server struct {
	cfg        Config
	engine     *engine.Engine
	log        *logger.Logger
	router     chi.Router
	httpServer *http.Server
}

// New creates a Server.
func New(cfg Config, eng *engine.Engine, log *logger.Logger) *Server {
	s := &Server{cfg: cfg, engine: eng, log: logger.OrNop(log)}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLog)
	r.Use(middleware.Recoverer)

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/sessions", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if s.cfg.RequestTimeout > 0 {
				r.Use(middleware.Timeout(s.cfg.RequestTimeout))
			}
			r.Post("/", s.startSession)
			r.Get("/{id}", s.getSession)
			r.Post("/{id}/responses", s.submitResponse)
			r.Post("/{id}/end", s.endSession)
			r.Get("/{id}/question/audio", s.questionAudio)
		})
		r.Get("/{id}/ws", s.sessionSocket)
	})

	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// Start listens on the configured port until Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.log.Info("viva server listening", "addr", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
