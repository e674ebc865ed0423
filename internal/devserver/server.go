// Package devserver is an in-memory implementation of the Hackloud REST API
// for local development and tests. State lives only as long as the process.
package devserver

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/me/hackloud/internal/config"
	"github.com/me/hackloud/internal/logging"
	"github.com/me/hackloud/pkg/model"
)

// Server is the development backend.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	config    config.DevServerConfig
	startTime time.Time
	now       func() time.Time

	mu          sync.RWMutex
	accounts    map[string]*account
	items       map[string]*blob
	assessments []model.Assessment
	avatars     map[string]*blob
}

// account is a user plus its password hash.
type account struct {
	user model.User
	hash []byte
}

// blob is stored content: a file, a folder (no data) or an avatar.
type blob struct {
	item  model.StorageItem
	owner string
	data  []byte
}

// Option configures optional Server behavior.
type Option func(*Server)

// WithClock replaces the time source used for timestamps and token expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New creates a new Server with all routes registered.
func New(cfg config.DevServerConfig, logger *slog.Logger, opts ...Option) *Server {
	logger = logging.OrDiscard(logger)
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger.With("component", "devserver"),
		config:    cfg,
		startTime: time.Now(),
		now:       time.Now,
		accounts:  make(map[string]*account),
		items:     make(map[string]*blob),
		avatars:   make(map[string]*blob),
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

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))

	r.Get("/health", s.handleHealth)
	r.Get("/uploads/{name}", s.handleGetUpload)

	r.Route("/users", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Route("/own", func(r chi.Router) {
				r.Get("/", s.handleGetOwnUser)
				r.Put("/", s.handleUpdateOwnUser)
				r.Put("/avatar", s.handleUpdateAvatar)
				r.Delete("/avatar", s.handleDeleteAvatar)
				r.Put("/password", s.handleUpdatePassword)
			})
			r.With(requireAdmin).Get("/", s.handleListUsers)
		})

		r.Get("/{id}", s.handleGetUser)
	})

	r.Route("/storage", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/", s.handleListStorage)
		r.Route("/folders", func(r chi.Router) {
			r.Post("/", s.handleCreateFolder)
			r.Put("/{id}", s.handleRenameItem(model.ItemFolder))
			r.Delete("/{id}", s.handleDeleteItem(model.ItemFolder))
		})
		r.Route("/files", func(r chi.Router) {
			r.Post("/", s.handleUploadFile)
			r.Put("/{id}", s.handleRenameItem(model.ItemFile))
			r.Delete("/{id}", s.handleDeleteItem(model.ItemFile))
			r.Get("/{id}/download", s.handleDownloadFile)
		})
	})

	r.Route("/assessments", func(r chi.Router) {
		r.Get("/", s.handleListAssessments)
		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/", s.handleCreateAssessment)
			r.With(requireAdmin).Delete("/{id}", s.handleDeleteAssessment)
		})
	})
}
