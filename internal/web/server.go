// Package web serves the cabinet portal: a home page plus a list, detail,
// add and delete route group for each resource, rendered with html/template.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/mesh-intelligence/cabinet/internal/metrics"
	"github.com/mesh-intelligence/cabinet/internal/repository"
	"github.com/mesh-intelligence/cabinet/pkg/types"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Repositories holds the collection behind each route group.
type Repositories struct {
	Books *repository.Repository[types.Book]
	Tasks *repository.Repository[types.Task]
	Items *repository.Repository[types.Item]
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the access and diagnostic logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics sets the collectors used for request metrics and /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// Server routes HTTP requests to the resource handlers.
type Server struct {
	addr    string
	repos   Repositories
	logger  *log.Logger
	metrics *metrics.Metrics
	views   *renderer
	handler http.Handler
}

// NewServer builds the router for repos. addr is used by ListenAndServe.
func NewServer(addr string, repos Repositories, opts ...Option) (*Server, error) {
	if repos.Books == nil || repos.Tasks == nil || repos.Items == nil {
		return nil, errors.New("every resource needs a repository")
	}
	s := &Server{addr: addr, repos: repos, logger: log.New(io.Discard, "", 0)}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}

	views, err := newRenderer(s.logger)
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}
	s.views = views

	mux := http.NewServeMux()
	s.handle(mux, "GET /{$}", http.HandlerFunc(s.handleHome))
	s.handle(mux, "GET /healthz", http.HandlerFunc(s.handleHealth))
	s.handle(mux, "GET /metrics", s.metrics.Handler())

	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("loading static assets: %w", err)
	}
	s.handle(mux, "GET /public/", http.StripPrefix("/public/", http.FileServerFS(static)))

	mount(s, mux, &resource[types.Book]{
		name:     types.BooksResource,
		repo:     repos.Books,
		fromForm: bookFromForm,
	})
	mount(s, mux, &resource[types.Task]{
		name:     types.TasksResource,
		repo:     repos.Tasks,
		fromForm: taskFromForm,
	})
	mount(s, mux, &resource[types.Item]{
		name:     types.ItemsResource,
		repo:     repos.Items,
		fromForm: itemFromForm,
	})

	s.handler = s.instrument(mux)
	return s, nil
}

// Handler returns the root handler with request logging and metrics.
func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe listens on the configured address and serves until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled. In-flight requests get
// shutdownTimeout to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          s.logger,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()
	s.logger.Printf("listening on %s", ln.Addr())

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Printf("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) handle(mux *http.ServeMux, pattern string, h http.Handler) {
	s.logger.Printf("registering handler: %s", pattern)
	mux.Handle(pattern, h)
}

type resourceLink struct {
	Name  string
	Title string
	Count int
}

type homePage struct {
	Resources []resourceLink
}

func (s *Server) handleHome(w http.ResponseWriter, _ *http.Request) {
	s.views.render(w, "home", homePage{Resources: []resourceLink{
		{Name: types.BooksResource, Title: titles[types.BooksResource], Count: s.repos.Books.Len()},
		{Name: types.TasksResource, Title: titles[types.TasksResource], Count: s.repos.Tasks.Len()},
		{Name: types.ItemsResource, Title: titles[types.ItemsResource], Count: s.repos.Items.Len()},
	}})
}

// HealthResponse is the JSON body of GET /healthz.
type HealthResponse struct {
	Status  string         `json:"status"`
	Records map[string]int `json:"records"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := HealthResponse{
		Status: "ok",
		Records: map[string]int{
			types.BooksResource: s.repos.Books.Len(),
			types.TasksResource: s.repos.Tasks.Len(),
			types.ItemsResource: s.repos.Items.Len(),
		},
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Printf("writing health response: %v", err)
	}
}
