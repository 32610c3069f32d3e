// Package panel contains the Datastar SSE handlers behind the atlas page: the
// layer list, the Smart Help panel, map focus and the claims dashboard.
package panel

import (
	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	"github.com/joeblew999/fra-atlas/internal/claims"
	"github.com/joeblew999/fra-atlas/internal/humastar"
	"github.com/joeblew999/fra-atlas/internal/service"
	"github.com/joeblew999/fra-atlas/internal/templates"
)

// Page element selectors patched by the handlers.
const (
	LayerList       = "#layer-list"
	PrimarySelect   = "#primary-select"
	SecondarySelect = "#secondary-select"
	RuleOutput      = "#rule-output"
	ClaimRows       = "#claim-rows"
	ClaimStats      = "#claim-stats"
	Demo            = "#demo"
)

// Deps are the services the panel drives.
type Deps struct {
	Layers *service.LayerStore
	Map    *service.MapService
	Panel  *service.Panel
	Bus    *service.EventBus
	Claims *claims.Repository
	Log    *zap.Logger
	// Forget drops derived per-layer state, e.g. cached tiles, on removal.
	Forget func(layerID string)
}

// Handler serves the panel's SSE endpoints.
type Handler struct {
	humastar.Handler
	Deps
}

// New creates a panel handler.
func New(deps Deps, renderer *templates.Renderer) *Handler {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	return &Handler{Handler: humastar.Handler{Renderer: renderer}, Deps: deps}
}

// RegisterRoutes registers the panel routes under /api/v1/panel.
func (h *Handler) RegisterRoutes(api huma.API) {
	tags := huma.OperationTags("panel")
	upload := func(o *huma.Operation) { o.MaxBodyBytes = maxUploadSignalBytes }

	huma.Get(api, "/api/v1/panel/layers", h.ListLayers, tags)
	huma.Post(api, "/api/v1/panel/upload", h.Upload, tags, upload)
	huma.Delete(api, "/api/v1/panel/layers/{id}", h.RemoveLayer, tags)
	huma.Post(api, "/api/v1/panel/select", h.Select, tags)
	huma.Post(api, "/api/v1/panel/landuse", h.LandUse, tags)
	huma.Post(api, "/api/v1/panel/changes", h.Changes, tags)
	huma.Post(api, "/api/v1/panel/focus", h.Focus, tags)
	huma.Put(api, "/api/v1/panel/basemap", h.Basemap, tags)
	huma.Post(api, "/api/v1/panel/claims", h.Claims, tags)
	huma.Get(api, "/api/v1/panel/demo", h.Demo, tags)
	huma.Get(api, "/api/v1/panel/events", h.Events, tags)
}
