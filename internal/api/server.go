package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/MikeSquared-Agency/pathfinder/internal/conversation"
	"github.com/MikeSquared-Agency/pathfinder/internal/store"
)

type Server struct {
	router   *chi.Mux
	port     int
	http     *http.Server
	ctrl     *conversation.Controller
	scores   store.ScoreStore
	validate *validator.Validate
	logger   *slog.Logger
}

func NewServer(port int, apiToken string, ctrl *conversation.Controller, scores store.ScoreStore, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		port:     port,
		ctrl:     ctrl,
		scores:   scores,
		validate: validator.New(),
		logger:   logger,
	}

	router.Get("/health", s.health)

	router.Route("/api/v1/sessions", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))
		r.Post("/", s.createSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Post("/messages", s.sendMessage)
			r.Get("/messages", s.transcript)
			r.Delete("/", s.resetSession)
			r.Get("/score", s.score)
		})
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.http = &http.Server{Addr: addr, Handler: s.router}
	s.logger.Info("API server starting", "addr", addr)
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
