// Package server exposes notes and question answering over HTTP using chi.
//
// Owner identity is taken from the X-Owner-ID header, which the fronting
// authentication gateway sets after login. Bearer token auth can be enabled
// to ensure only that gateway reaches the API.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/poiesic/memvault/answer"
	"github.com/poiesic/memvault/core"
	"github.com/poiesic/memvault/search"
)

// NoteService is the note store as seen by the handlers.
type NoteService interface {
	Create(ctx context.Context, note *core.Note) (*core.Note, error)
	Update(ctx context.Context, note *core.Note) (*core.Note, error)
	Get(ctx context.Context, owner core.OwnerID, id core.ID) (*core.Note, error)
	Delete(ctx context.Context, owner core.OwnerID, id core.ID) error
	List(ctx context.Context, owner core.OwnerID) ([]*core.Note, error)
	RemoveTag(ctx context.Context, owner core.OwnerID, id core.ID, tag string) (*core.Note, error)
}

// Asker answers questions over an owner's notes.
type Asker interface {
	Ask(ctx context.Context, owner core.OwnerID, question string, base *search.Filters) (*answer.Answer, error)
}

// Server is the memvault HTTP API server.
type Server struct {
	notes       NoteService
	asker       Asker
	authEnabled bool
	token       string
	askTimeout  time.Duration
	router      chi.Router
	logger      *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithAuthToken enables Bearer token authentication.
func WithAuthToken(token string) Option {
	return func(s *Server) {
		s.authEnabled = true
		s.token = token
	}
}

// WithAskTimeout bounds each question. Zero means no bound beyond the
// request context.
func WithAskTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.askTimeout = d
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "server")
	}
}

// New creates a Server.
func New(notes NoteService, asker Asker, opts ...Option) *Server {
	s := &Server{
		notes:  notes,
		asker:  asker,
		logger: slog.Default().With("component", "server"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(AuthMiddleware(s.authEnabled, s.token))
		r.Use(OwnerMiddleware)

		r.Post("/agent/memories/chat", s.handleChat)

		r.Get("/memories", s.handleListNotes)
		r.Post("/memories", s.handleCreateNote)
		r.Get("/memories/{id}", s.handleGetNote)
		r.Put("/memories/{id}", s.handleUpdateNote)
		r.Delete("/memories/{id}", s.handleDeleteNote)
		r.Delete("/memories/{id}/tags/{tag}", s.handleRemoveTag)
	})

	s.router = r
}
