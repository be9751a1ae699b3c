// Package server is the HTTP surface of the XRL service: the view path
// (fetch → classify → assembled layout page) and the render path (view
// page → serialized browser capture → manifest), plus the example-site
// and custom-site plumbing around them.
package server

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/xrl/fetcher"
	"github.com/hazyhaar/xrl/render"
)

//go:embed templates
var templatesFS embed.FS

//go:embed examples
var examplesFS embed.FS

// ManifestRenderer runs the capture pipeline for an assembled view URL.
// *render.Renderer implements it; tests substitute fakes.
type ManifestRenderer interface {
	Render(ctx context.Context, viewURL, baseURL string) (*render.Manifest, error)
}

// Server wires the handlers together.
type Server struct {
	cfg      *Config
	fetch    *fetcher.Fetcher
	renderer ManifestRenderer
	sites    *Registry
	tmpl     *template.Template
	logger   *slog.Logger
}

// New creates a Server.
func New(cfg *Config, fetch *fetcher.Fetcher, renderer ManifestRenderer, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("server: parse templates: %w", err)
	}

	return &Server{
		cfg:      cfg,
		fetch:    fetch,
		renderer: renderer,
		sites:    NewRegistry(cfg.CustomSites),
		tmpl:     tmpl,
		logger:   logger,
	}, nil
}

// Router builds the chi route table. Trailing slashes are not
// significant.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.StripSlashes)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/favicon.ico", s.handleFavicon)
	r.Get("/routes", s.handleRoutes)
	r.Get("/xrl", s.handleView)
	r.Get("/render", s.handleRender)
	r.Get("/images/{filename}", s.handleImage)
	r.Get("/custom/{num}", s.handleCustom)
	r.Get("/{name}", s.handleNamed)

	return r
}
