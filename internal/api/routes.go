// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/joeblew999/fra-atlas/internal/claims"
	"github.com/joeblew999/fra-atlas/internal/geo"
	"github.com/joeblew999/fra-atlas/internal/service"
	"github.com/joeblew999/fra-atlas/internal/tiler"
)

// Version is reported by /health and /api/v1/info.
const Version = "0.1.0"

// Services holds the service dependencies for API handlers.
type Services struct {
	Layers *service.LayerStore
	Map    *service.MapService
	Panel  *service.Panel
	Claims *claims.Repository
	Tiles  *tiler.Cache
	// Uploads limits layer uploads; nil means unlimited.
	Uploads *rate.Limiter
	Log     *zap.Logger
}

// Types

type IDInput struct {
	ID string `path:"id" doc:"Layer ID" example:"claims.geojson-1718000000000"`
}

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"0.1.0"`
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
	log *zap.Logger
}

func NewAPIHandler(svc *Services) *APIHandler {
	log := svc.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &APIHandler{svc: svc, log: log}
}

// RegisterRoutes registers every REST route on api.
func RegisterRoutes(api huma.API, svc *Services) {
	huma.AutoRegister(api, NewAPIHandler(svc))
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: Version}}, nil
}

// httpError maps domain errors onto Huma status errors.
func (h *APIHandler) httpError(err error) error {
	switch {
	case errors.Is(err, geo.ErrMalformedInput):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, service.ErrUnknownLayer),
		errors.Is(err, service.ErrUnknownRegion),
		errors.Is(err, service.ErrUnknownBasemap):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, tiler.ErrInvalidTile):
		return huma.Error400BadRequest(err.Error())
	default:
		h.log.Error("request failed", zap.Error(err))
		return huma.Error500InternalServerError("internal error", err)
	}
}
