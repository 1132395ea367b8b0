package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dgallion1/cvtree/internal/config"
	"github.com/dgallion1/cvtree/internal/pathstore"
	"github.com/dgallion1/cvtree/internal/session"
	"github.com/dgallion1/cvtree/internal/stats"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// DocumentStore persists serialized documents. *pathstore.Client implements it.
type DocumentStore interface {
	PutDocument(ctx context.Context, doc pathstore.Document) error
	GetDocument(ctx context.Context, id string) (*pathstore.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context, limit int) ([]string, error)
}

// Server is the HTTP API server for cvtree.
type Server struct {
	router   chi.Router
	sessions *session.Store
	store    DocumentStore // nil when persistence is disabled
	stats    *stats.Recorder
	log      *slog.Logger
	cfg      config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(sessions *session.Store, store DocumentStore, rec *stats.Recorder, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		sessions: sessions,
		store:    store,
		stats:    rec,
		log:      log,
		cfg:      cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/documents", s.handleCreateDocument)
		r.Post("/api/documents/restore", s.handleRestore)
		r.Route("/api/documents/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetDocument)
			r.Put("/", s.handleReloadDocument)
			r.Delete("/", s.handleDeleteDocument)
			r.Get("/text", s.handleGetText)
			r.Get("/preview", s.handlePreview)
			r.Post("/actions", s.handleActions)
			r.Post("/undo", s.handleUndo)
			r.Post("/redo", s.handleRedo)
			r.Post("/save", s.handleSave)
		})

		r.Get("/api/saved", s.handleListSaved)
		r.Delete("/api/saved/{id}", s.handleDeleteSaved)

		r.Post("/api/import", s.handleImport)
		r.Get("/api/stats", s.handleStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
