package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/fra-atlas/internal/service"
)

// MapBody is everything a client needs to draw the map.
type MapBody struct {
	View     service.View      `json:"view" doc:"Current viewport"`
	Basemap  service.Basemap   `json:"basemap" doc:"Selected base layer"`
	Overlays []service.Overlay `json:"overlays" doc:"Overlays in upload order"`
}

type FocusInput struct {
	Body struct {
		Region string `json:"region" required:"true" doc:"Focus region name" example:"Odisha"`
	}
}

type BasemapInput struct {
	Body struct {
		Name string `json:"name" required:"true" doc:"Basemap name" example:"Topo"`
	}
}

// RegisterMap registers map presentation routes.
func (h *APIHandler) RegisterMap(api huma.API) {
	huma.Get(api, "/api/v1/map", h.GetMap, huma.OperationTags("map"))
	huma.Get(api, "/api/v1/map/regions", h.GetRegions, huma.OperationTags("map"))
	huma.Post(api, "/api/v1/map/focus", h.FocusOn, huma.OperationTags("map"))
	huma.Get(api, "/api/v1/map/basemaps", h.GetBasemaps, huma.OperationTags("map"))
	huma.Put(api, "/api/v1/map/basemap", h.SetBasemap, huma.OperationTags("map"))
}

func (h *APIHandler) GetMap(ctx context.Context, input *struct{}) (*struct{ Body MapBody }, error) {
	return &struct{ Body MapBody }{Body: MapBody{
		View:     h.svc.Map.View(),
		Basemap:  h.svc.Map.Basemap(),
		Overlays: h.svc.Map.Overlays(h.svc.Layers.List()),
	}}, nil
}

func (h *APIHandler) GetRegions(ctx context.Context, input *struct{}) (*struct{ Body []service.FocusRegion }, error) {
	return &struct{ Body []service.FocusRegion }{Body: h.svc.Map.Regions()}, nil
}

func (h *APIHandler) FocusOn(ctx context.Context, input *FocusInput) (*struct{ Body service.View }, error) {
	v, err := h.svc.Map.FocusOn(input.Body.Region)
	if err != nil {
		return nil, h.httpError(err)
	}
	return &struct{ Body service.View }{Body: v}, nil
}

func (h *APIHandler) GetBasemaps(ctx context.Context, input *struct{}) (*struct{ Body []service.Basemap }, error) {
	return &struct{ Body []service.Basemap }{Body: service.Basemaps}, nil
}

func (h *APIHandler) SetBasemap(ctx context.Context, input *BasemapInput) (*struct{ Body service.Basemap }, error) {
	b, err := h.svc.Map.SetBasemap(input.Body.Name)
	if err != nil {
		return nil, h.httpError(err)
	}
	return &struct{ Body service.Basemap }{Body: b}, nil
}
