package panel

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/fra-atlas/internal/humastar"
	"github.com/joeblew999/fra-atlas/internal/service"
)

// Events streams state changes to the page until the client goes away.
func (h *Handler) Events(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			sse := humastar.NewSSE(humaCtx)
			ch := h.Bus.Subscribe()
			defer h.Bus.Unsubscribe(ch)

			done := humaCtx.Context().Done()
			for {
				select {
				case <-done:
					return
				case ev, ok := <-ch:
					if !ok {
						return
					}
					detail := map[string]any{
						"resource": ev.Resource,
						"action":   ev.Action,
						"id":       ev.ID,
					}
					switch ev.Resource {
					case service.ResourceLayers, service.ResourcePanel:
						h.patchLayers(sse)
					case service.ResourceMap:
						if ev.Action == service.ActionFocused {
							detail["view"] = h.Map.View()
						}
					}
					sse.DispatchCustomEvent("resource-changed", detail)
				}
			}
		},
	}, nil
}
