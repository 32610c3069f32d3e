package panel

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/fra-atlas/internal/humastar"
	"github.com/joeblew999/fra-atlas/internal/service"
)

func (h *Handler) Focus(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	region := signals.String("region")

	return h.Stream(func(sse humastar.SSE) {
		v, err := h.Map.FocusOn(region)
		if errors.Is(err, service.ErrUnknownRegion) {
			sse.Error("Unknown region: " + region)
			return
		}
		if err != nil {
			sse.Error(err.Error())
			return
		}
		sse.Signals(map[string]any{"region": region})
		sse.DispatchCustomEvent("resource-changed", map[string]any{
			"resource": service.ResourceMap, "action": service.ActionFocused, "id": region, "view": v,
		})
	}), nil
}

func (h *Handler) Basemap(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	name := signals.String("basemap")

	return h.Stream(func(sse humastar.SSE) {
		b, err := h.Map.SetBasemap(name)
		if err != nil {
			sse.Error("Unknown basemap: " + name)
			sse.Signals(map[string]any{"basemap": h.Map.Basemap().Name})
			return
		}
		sse.DispatchCustomEvent("resource-changed", map[string]any{
			"resource": service.ResourceMap, "action": service.ActionUpdated, "id": b.Name,
		})
	}), nil
}
