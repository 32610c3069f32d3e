package panel

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	"github.com/joeblew999/fra-atlas/internal/geo"
	"github.com/joeblew999/fra-atlas/internal/humastar"
	"github.com/joeblew999/fra-atlas/internal/service"
)

// Base64 inflates uploads by a third, plus signal overhead.
const maxUploadSignalBytes = 70 << 20

// LayerItemData feeds the layer-item template.
type LayerItemData struct {
	ID       string
	Name     string
	FileName string
	Color    string
	Features int
}

// UploadedFile is one file of a Datastar file-input signal.
type UploadedFile struct {
	Name     string `json:"name"`
	Contents string `json:"contents"`
	Mime     string `json:"mime"`
}

// Bytes decodes the base64 contents, accepting a data URL prefix.
func (f UploadedFile) Bytes() ([]byte, error) {
	s := f.Contents
	if i := strings.Index(s, ";base64,"); i >= 0 && strings.HasPrefix(s, "data:") {
		s = s[i+len(";base64,"):]
	}
	return base64.StdEncoding.DecodeString(s)
}

func (h *Handler) ListLayers(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		h.patchLayers(sse)
	}), nil
}

// patchLayers re-renders the layer list and both selects, and syncs the
// selection signals.
func (h *Handler) patchLayers(sse humastar.SSE) {
	layers := h.Layers.List()
	primary, secondary := h.Panel.Selection()

	items := make([]any, 0, len(layers))
	for _, l := range layers {
		items = append(items, LayerItemData{
			ID: l.ID, Name: l.Name, FileName: l.FileName, Color: l.Color, Features: l.Data.Len(),
		})
	}
	sse.Patch(h.RenderList("layer-item", items, "No layers uploaded yet.", "Upload a GeoJSON file to get started."), LayerList)
	sse.Patch(h.RenderSelect("Select primary layer", options(layers, primary)), PrimarySelect)
	sse.Patch(h.RenderSelect("Select secondary layer", options(layers, secondary)), SecondarySelect)
	sse.Signals(map[string]any{"primary": primary, "secondary": secondary})
}

func options(layers []service.Layer, selected string) []humastar.SelectOptionData {
	out := make([]humastar.SelectOptionData, 0, len(layers))
	for _, l := range layers {
		out = append(out, humastar.SelectOptionData{Value: l.ID, Label: l.Name, Selected: l.ID == selected})
	}
	return out
}

func (h *Handler) Upload(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	var files []UploadedFile
	if err := signals.Decode("files", &files); err != nil || len(files) == 0 {
		return nil, huma.Error400BadRequest("A GeoJSON file is required")
	}

	return h.Stream(func(sse humastar.SSE) {
		var added []string
		for _, f := range files {
			raw, err := f.Bytes()
			if err != nil {
				sse.Error(fmt.Sprintf("Could not read %s", f.Name))
				return
			}
			l, err := h.Layers.Add(f.Name, raw)
			if errors.Is(err, geo.ErrMalformedInput) {
				h.Log.Info("upload rejected", zap.String("file", f.Name), zap.Error(err))
				sse.Error(fmt.Sprintf("%s is not a GeoJSON FeatureCollection", f.Name))
				return
			}
			if err != nil {
				sse.Error(err.Error())
				return
			}
			added = append(added, l.Name)
		}
		sse.Signals(map[string]any{"files": []any{}})
		sse.Success(fmt.Sprintf("Added %s", strings.Join(added, ", ")))
		h.patchLayers(sse)
	}), nil
}

type RemoveInput struct {
	ID string `path:"id" doc:"Layer ID to remove"`
}

func (h *Handler) RemoveLayer(ctx context.Context, input *RemoveInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		removed := h.Layers.Remove(input.ID)
		if h.Forget != nil {
			h.Forget(input.ID)
		}
		if !removed {
			h.patchLayers(sse)
			return
		}
		sse.Success("Layer removed")
		h.patchLayers(sse)
	}), nil
}

func (h *Handler) Select(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	primary, secondary := signals.String("primary"), signals.String("secondary")

	return h.Stream(func(sse humastar.SSE) {
		if err := h.Panel.Select(primary, secondary); err != nil {
			sse.Error("That layer is no longer available")
			h.patchLayers(sse)
			return
		}
		h.Bus.Publish(service.Event{Resource: service.ResourcePanel, Action: service.ActionSelected, ID: primary})
		sse.Signals(map[string]any{"primary": primary, "secondary": secondary})
	}), nil
}
