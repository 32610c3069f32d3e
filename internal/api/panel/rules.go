package panel

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/fra-atlas/internal/humastar"
)

func (h *Handler) LandUse(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		h.Panel.RunLandUse()
		sse.Patch(h.Render("report", h.Panel.Output()), RuleOutput)
	}), nil
}

func (h *Handler) Changes(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		h.Panel.RunChanges()
		sse.Patch(h.Render("report", h.Panel.Output()), RuleOutput)
	}), nil
}
