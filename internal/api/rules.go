package api

import (
	"context"
	"fmt"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/fra-atlas/internal/rules"
	"github.com/joeblew999/fra-atlas/internal/service"
)

type LandUseInput struct {
	Body struct {
		LayerID string `json:"layerId,omitempty" doc:"Layer to summarize; empty means none selected"`
	}
}

type LandUseBody struct {
	rules.Summary
	Text string `json:"text" doc:"Human-readable report"`
}

type ChangesInput struct {
	Body struct {
		PrimaryID   string `json:"primaryId,omitempty" doc:"Primary layer; empty means none selected"`
		SecondaryID string `json:"secondaryId,omitempty" doc:"Secondary layer; empty means none selected"`
	}
}

type ChangesBody struct {
	rules.Changes
	Changed int    `json:"changed" doc:"Number of changed fields"`
	Text    string `json:"text" doc:"Human-readable report, at most 50 change lines"`
}

// RegisterRules registers the smart rule routes.
func (h *APIHandler) RegisterRules(api huma.API) {
	huma.Post(api, "/api/v1/rules/landuse", h.LandUse, huma.OperationTags("rules"))
	huma.Post(api, "/api/v1/rules/changes", h.Changes, huma.OperationTags("rules"))
}

// input resolves a layer ID for a rule. An empty ID is "not selected".
func (h *APIHandler) input(id string) (*rules.Input, error) {
	if id == "" {
		return nil, nil
	}
	l, ok := h.svc.Layers.Get(id)
	if !ok {
		return nil, h.httpError(fmt.Errorf("%w: %q", service.ErrUnknownLayer, id))
	}
	return l.Input(), nil
}

func (h *APIHandler) LandUse(ctx context.Context, input *LandUseInput) (*struct{ Body LandUseBody }, error) {
	layer, err := h.input(input.Body.LayerID)
	if err != nil {
		return nil, err
	}
	s := rules.Summarize(layer)
	return &struct{ Body LandUseBody }{Body: LandUseBody{Summary: s, Text: s.Text()}}, nil
}

func (h *APIHandler) Changes(ctx context.Context, input *ChangesInput) (*struct{ Body ChangesBody }, error) {
	primary, err := h.input(input.Body.PrimaryID)
	if err != nil {
		return nil, err
	}
	secondary, err := h.input(input.Body.SecondaryID)
	if err != nil {
		return nil, err
	}
	c := rules.DetectChanges(primary, secondary)
	return &struct{ Body ChangesBody }{Body: ChangesBody{Changes: c, Changed: c.Changed(), Text: c.Text()}}, nil
}
