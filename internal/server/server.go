// Package server wires the legend engine, the Huma API and the viewer page
// onto a chi router.
package server

import (
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-legend/internal/api"
	"github.com/joeblew999/plat-legend/internal/api/editor"
	"github.com/joeblew999/plat-legend/internal/humastar"
	"github.com/joeblew999/plat-legend/internal/legend"
	"github.com/joeblew999/plat-legend/internal/mapview"
	"github.com/joeblew999/plat-legend/internal/metrics"
	"github.com/joeblew999/plat-legend/internal/service"
	"github.com/joeblew999/plat-legend/internal/templates"
)

// Config holds the server configuration.
type Config struct {
	Host    string
	Port    string
	DataDir string
	// Layers is the configuration table the App was loaded from.
	Layers string
	// DBOK reports whether Parquet lookup tables can be read.
	DBOK bool
}

// Deps are the long-lived components the server routes to.
type Deps struct {
	App      *service.App
	Surface  *legend.HTMLSurface
	Renderer *templates.Renderer
	Metrics  *metrics.Metrics
	Sources  *service.SourceService
	Tiles    *service.TileService
	Tables   api.TableReader
}

// Server is the legend HTTP server.
type Server struct {
	config  Config
	deps    Deps
	router  chi.Router
	humaAPI huma.API
	links   *humastar.Links
	logger  zerolog.Logger
}

// New creates the server and registers every route.
func New(cfg Config, deps Deps, logger zerolog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	s := &Server{
		config: cfg,
		deps:   deps,
		router: router,
		logger: logger.With().Str("component", "http").Logger(),
	}
	router.Use(s.accessLog)

	humaConfig := huma.DefaultConfig("plat-legend API", "1.0.0")
	humaConfig.Info.Description = "Config-driven map styling: layers, legends, zoom labels and base layers."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	// Links are derived after registration; the transformer reads s.links.
	humaConfig.Transformers = append(humaConfig.Transformers, func(ctx huma.Context, status string, v any) (any, error) {
		return s.links.Transformer()(ctx, status, v)
	})

	s.humaAPI = humachi.New(router, humaConfig)
	s.routes()
	s.links = humastar.AutoLinks(s.humaAPI, "/health")
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

func (s *Server) routes() {
	// Huma REST API routes (OpenAPI-documented JSON endpoints)
	api.RegisterRoutes(s.humaAPI, &api.Services{
		App:    s.deps.App,
		Source: s.deps.Sources,
		Tile:   s.deps.Tiles,
		Tables: s.deps.Tables,
	})
	api.NewInfoHandler(s.config.DataDir, s.config.Layers, s.config.DBOK).RegisterRoutes(s.humaAPI)

	// Datastar SSE routes
	if s.deps.Surface != nil && s.deps.Renderer != nil {
		legendHandler := editor.NewLegendHandler(s.deps.App, s.deps.Surface, s.deps.Renderer, s.logger)
		legendHandler.RegisterRoutes(s.humaAPI)
		editor.NewLayerHandler(legendHandler).RegisterRoutes(s.humaAPI)
		s.router.Get("/viewer", s.handleViewer)
	}

	s.router.Handle("/metrics", s.deps.Metrics.Handler())

	files := s.router.With(middleware.Timeout(30 * time.Second))
	sourcesDir := filepath.Join(s.config.DataDir, "sources")
	files.Handle("/sources/*", http.StripPrefix("/sources/", http.FileServer(http.Dir(sourcesDir))))
	tilesDir := filepath.Join(s.config.DataDir, "tiles")
	files.Handle("/tiles/*", http.StripPrefix("/tiles/", s.handleTiles(tilesDir)))
}

type viewerPage struct {
	Title  string
	View   mapview.View
	Legend template.HTML
}

func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) {
	page := viewerPage{Title: "plat-legend"}
	err := s.deps.App.Do(r.Context(), func() error {
		page.View = s.deps.App.Map().Snapshot()
		return nil
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	legendHTML, err := s.deps.Surface.HTML()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	page.Legend = template.HTML(legendHTML)

	html, err := s.deps.Renderer.Render("viewer-page", page)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}

// handleTiles serves PMTiles archives with the CORS and range headers the
// pmtiles.js protocol needs.
func (s *Server) handleTiles(tilesDir string) http.Handler {
	fs := http.FileServer(http.Dir(tilesDir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Range")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range, Accept-Ranges")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		fs.ServeHTTP(w, r)
	})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		s.deps.Metrics.ObserveHTTPRequest(r.Method, route, ww.Status(), time.Since(start))

		s.logger.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("http_request")
	})
}
