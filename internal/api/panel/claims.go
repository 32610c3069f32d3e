package panel

import (
	"bytes"
	"context"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	"github.com/joeblew999/fra-atlas/internal/api"
	"github.com/joeblew999/fra-atlas/internal/claims"
	"github.com/joeblew999/fra-atlas/internal/humastar"
)

func (h *Handler) Claims(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	f := claims.Filter{State: signals.String("state"), Search: signals.String("search")}

	return h.Stream(func(sse humastar.SSE) {
		if h.Deps.Claims == nil {
			sse.Error("Claims database not available")
			return
		}
		rows, err := h.Deps.Claims.Filter(ctx, f)
		if err != nil {
			h.Log.Error("filtering claims", zap.Error(err))
			sse.Error("Could not load claims")
			return
		}
		totals, err := h.Deps.Claims.Totals(ctx, f)
		if err != nil {
			h.Log.Error("totaling claims", zap.Error(err))
			sse.Error("Could not load claims")
			return
		}
		stats, err := h.Deps.Claims.StatsByState(ctx, f)
		if err != nil {
			h.Log.Error("claim stats", zap.Error(err))
			sse.Error("Could not load claims")
			return
		}

		var rowsHTML, statsHTML bytes.Buffer
		render := func(buf *bytes.Buffer, tmpl string, data any) bool {
			if err := h.Renderer.RenderToBuffer(buf, tmpl, data); err != nil {
				h.Log.Error("rendering claims", zap.String("template", tmpl), zap.Error(err))
				sse.Error("Could not render claims")
				return false
			}
			return true
		}
		if len(rows) == 0 && !render(&rowsHTML, "claims-empty", nil) {
			return
		}
		for _, c := range rows {
			if !render(&rowsHTML, "claim-row", c) {
				return
			}
		}
		for _, s := range stats {
			if !render(&statsHTML, "state-stats", s) {
				return
			}
		}
		sse.Patch(rowsHTML.String(), ClaimRows)
		sse.Patch(statsHTML.String(), ClaimStats)
		sse.Signals(map[string]any{"totals": totals})
	}), nil
}

func (h *Handler) Demo(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		sse.Replace(h.Render("demo", api.DemoMessage), Demo)
	}), nil
}
