// Package server wires the atlas services, the Huma API and the page together.
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/joeblew999/fra-atlas/internal/api"
	"github.com/joeblew999/fra-atlas/internal/api/panel"
	"github.com/joeblew999/fra-atlas/internal/claims"
	"github.com/joeblew999/fra-atlas/internal/db"
	"github.com/joeblew999/fra-atlas/internal/service"
	"github.com/joeblew999/fra-atlas/internal/templates"
	"github.com/joeblew999/fra-atlas/internal/tiler"
	"github.com/joeblew999/fra-atlas/internal/tiler/gotiler"
)

// newPalette returns a seeded random palette, seeding from the clock when
// seed is zero.
func newPalette(seed uint64) *service.RandomPalette {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return service.NewRandomPalette(seed)
}

// Title is shown in the page header and the OpenAPI document.
const Title = "FRA Atlas"

// Config holds the server configuration.
type Config struct {
	Host string
	Port string
	// DataDir holds the DuckDB file; empty keeps the database in memory.
	DataDir string
	// Seed fixes the random layer colors. Zero seeds from the clock.
	Seed uint64
	// UploadRate is uploads per second; zero disables the limit.
	UploadRate  float64
	UploadBurst int
	// TileCacheSize caps cached vector tiles.
	TileCacheSize int
	Logger        *zap.Logger
}

// Server is the atlas HTTP server.
type Server struct {
	config   Config
	log      *zap.Logger
	mux      *http.ServeMux
	handler  http.Handler
	humaAPI  huma.API
	db       *sql.DB
	bus      *service.EventBus
	services *api.Services
	renderer *templates.Renderer

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new atlas server. A database that cannot be opened leaves
// the claims dashboard unavailable rather than failing startup.
func New(cfg Config) (*Server, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.TileCacheSize <= 0 {
		cfg.TileCacheSize = 4096
	}

	renderer, err := templates.Default()
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	mux := http.NewServeMux()

	humaConfig := huma.DefaultConfig(Title+" API", api.Version)
	humaConfig.Info.Description = "Forest rights claim atlas: GeoJSON layers, map focus, smart rules and the claims dashboard."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, api.LinkTransformer())

	humaAPI := humago.New(mux, humaConfig)

	bus := service.NewEventBus()
	layers := service.NewLayerStore(bus, service.WithPalette(newPalette(cfg.Seed)), service.WithLogger(log.Named("layers")))

	services := &api.Services{
		Layers: layers,
		Map:    service.NewMapService(bus),
		Panel:  service.NewPanel(layers, log.Named("panel")),
		Tiles:  tiler.NewCache(gotiler.New(), cfg.TileCacheSize, log.Named("tiles")),
		Log:    log,
	}
	if cfg.UploadRate > 0 {
		burst := cfg.UploadBurst
		if burst <= 0 {
			burst = 1
		}
		services.Uploads = rate.NewLimiter(rate.Limit(cfg.UploadRate), burst)
	}

	s := &Server{
		config:   cfg,
		log:      log,
		mux:      mux,
		humaAPI:  humaAPI,
		bus:      bus,
		services: services,
		renderer: renderer,
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	conn, err := db.Open(ctx, db.Config{DataDir: cfg.DataDir})
	if err != nil {
		log.Warn("claims database unavailable", zap.Error(err))
	} else {
		repo := claims.NewRepository(conn, log.Named("claims"))
		if err := repo.Seed(ctx, claims.Fixture); err != nil {
			log.Warn("seeding claims", zap.Error(err))
			conn.Close()
		} else {
			s.db = conn
			services.Claims = repo
		}
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		services.Panel.Watch(ctx, bus)
	}()

	s.routes()
	s.handler = RequestLogger(log.Named("http"))(mux)
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Services exposes the wired services.
func (s *Server) Services() *api.Services {
	return s.services
}

// Close stops background work and closes the database.
func (s *Server) Close() error {
	s.cancel()
	s.wg.Wait()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Server) routes() {
	// Register Huma REST API routes (OpenAPI-documented JSON endpoints)
	api.RegisterRoutes(s.humaAPI, s.services)
	api.NewInfoHandler(s.services, s.db != nil).RegisterRoutes(s.humaAPI)
	api.NewDBHandler(s.db).RegisterRoutes(s.humaAPI)

	// Register panel SSE routes using Huma + Datastar SDK
	panel.New(panel.Deps{
		Layers: s.services.Layers,
		Map:    s.services.Map,
		Panel:  s.services.Panel,
		Bus:    s.bus,
		Claims: s.services.Claims,
		Log:    s.log.Named("panel"),
		Forget: s.services.Tiles.Forget,
	}, s.renderer).RegisterRoutes(s.humaAPI)

	s.mux.HandleFunc("GET /{$}", s.handleIndex)
}

// PageData feeds the index page.
type PageData struct {
	Title    string
	Signals  string
	Regions  []service.FocusRegion
	Basemaps []service.Basemap
	States   []string
	Output   string
	View     service.View
}

func (s *Server) pageData(ctx context.Context) (PageData, error) {
	primary, secondary := s.services.Panel.Selection()
	var totals claims.Counts
	if s.services.Claims != nil {
		t, err := s.services.Claims.Totals(ctx, claims.Filter{})
		if err != nil {
			return PageData{}, err
		}
		totals = t
	}
	signals, err := json.Marshal(map[string]any{
		"error":     "",
		"success":   "",
		"files":     []any{},
		"primary":   primary,
		"secondary": secondary,
		"region":    "",
		"basemap":   s.services.Map.Basemap().Name,
		"state":     claims.AllStates,
		"search":    "",
		"totals":    totals,
	})
	if err != nil {
		return PageData{}, err
	}
	return PageData{
		Title:    Title,
		Signals:  string(signals),
		Regions:  s.services.Map.Regions(),
		Basemaps: service.Basemaps,
		States:   append([]string{claims.AllStates}, claims.States...),
		Output:   s.services.Panel.Output(),
		View:     s.services.Map.View(),
	}, nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data, err := s.pageData(r.Context())
	if err != nil {
		s.log.Error("building page", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.renderer.Execute(w, "index", data); err != nil {
		s.log.Error("rendering page", zap.Error(err))
	}
}
