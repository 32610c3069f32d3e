package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/joeblew999/fra-atlas/internal/humastar"
	"github.com/joeblew999/fra-atlas/internal/service"
	"github.com/joeblew999/fra-atlas/internal/tiler"
)

// MaxUploadBytes caps a single GeoJSON upload.
const MaxUploadBytes = 50 << 20

// layerActions are the links advertised on a layer.
var layerActions = []humastar.ActionDef{
	{Rel: "delete", Pattern: "/api/v1/layers/%s", Method: http.MethodDelete, Title: "Remove layer"},
	{Rel: "alternate", Pattern: "/api/v1/layers/%s/geojson", Method: http.MethodGet, Title: "GeoJSON"},
}

// LayerBody is a layer summary carrying its action links.
type LayerBody struct {
	service.LayerInfo
}

// Actions implements humastar.Actor.
func (b LayerBody) Actions() []humastar.Action {
	return humastar.ActionsFor(url.PathEscape(b.ID), layerActions)
}

type LayerOutput struct {
	Body LayerBody
}

type LayersOutput struct {
	Body []service.LayerInfo
}

// UploadInput is a multipart upload with a single GeoJSON file.
type UploadInput struct {
	RawBody huma.MultipartFormFiles[struct {
		File huma.FormFile `form:"file" contentType:"application/geo+json,application/json,application/octet-stream,text/plain" required:"true" doc:"GeoJSON FeatureCollection"`
	}]
}

// RawUploadInput is a GeoJSON document sent as the request body.
type RawUploadInput struct {
	Filename string `query:"filename" required:"true" doc:"File name the layer is named after" example:"claims.geojson"`
	RawBody  []byte `contentType:"application/geo+json"`
}

type GeoJSONOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

type TileInput struct {
	IDInput
	Z int `path:"z" minimum:"0" maximum:"22" doc:"Zoom"`
	X int `path:"x" minimum:"0" doc:"Tile column"`
	Y int `path:"y" minimum:"0" doc:"Tile row"`
}

type TileOutput struct {
	Status          int
	ContentType     string `header:"Content-Type"`
	ContentEncoding string `header:"Content-Encoding"`
	CacheControl    string `header:"Cache-Control"`
	Body            []byte
}

// RegisterLayers registers layer store routes.
func (h *APIHandler) RegisterLayers(api huma.API) {
	upload := func(o *huma.Operation) {
		o.MaxBodyBytes = MaxUploadBytes
		o.Middlewares = append(o.Middlewares, h.rateLimit(api))
	}
	huma.Get(api, "/api/v1/layers", h.ListLayers, huma.OperationTags("layers"))
	huma.Post(api, "/api/v1/layers", h.UploadLayer, huma.OperationTags("layers"), upload)
	huma.Post(api, "/api/v1/layers/raw", h.UploadRawLayer, huma.OperationTags("layers"), upload)
	huma.Get(api, "/api/v1/layers/{id}", h.GetLayer, huma.OperationTags("layers"))
	huma.Get(api, "/api/v1/layers/{id}/geojson", h.GetLayerGeoJSON, huma.OperationTags("layers"))
	huma.Get(api, "/api/v1/layers/{id}/tiles/{z}/{x}/{y}", h.GetLayerTile, huma.OperationTags("layers"))
	huma.Delete(api, "/api/v1/layers/{id}", h.DeleteLayer, huma.OperationTags("layers"))
}

// rateLimit rejects uploads beyond the configured rate with 429.
func (h *APIHandler) rateLimit(api huma.API) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if h.svc.Uploads != nil && !h.svc.Uploads.Allow() {
			huma.WriteErr(api, ctx, http.StatusTooManyRequests, "upload rate exceeded, try again shortly")
			return
		}
		next(ctx)
	}
}

func (h *APIHandler) ListLayers(ctx context.Context, input *struct{}) (*LayersOutput, error) {
	layers := h.svc.Layers.List()
	out := make([]service.LayerInfo, 0, len(layers))
	for _, l := range layers {
		out = append(out, l.Info())
	}
	return &LayersOutput{Body: out}, nil
}

func (h *APIHandler) addLayer(fileName string, raw []byte) (*LayerOutput, error) {
	l, err := h.svc.Layers.Add(fileName, raw)
	if err != nil {
		h.log.Info("upload rejected", zap.String("file", fileName), zap.Error(err))
		return nil, h.httpError(err)
	}
	return &LayerOutput{Body: LayerBody{l.Info()}}, nil
}

func (h *APIHandler) UploadLayer(ctx context.Context, input *UploadInput) (*LayerOutput, error) {
	f := input.RawBody.Data().File
	defer f.Close()
	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, huma.Error400BadRequest("reading upload: " + err.Error())
	}
	return h.addLayer(f.Filename, raw)
}

func (h *APIHandler) UploadRawLayer(ctx context.Context, input *RawUploadInput) (*LayerOutput, error) {
	return h.addLayer(input.Filename, input.RawBody)
}

func (h *APIHandler) layer(id string) (service.Layer, error) {
	l, ok := h.svc.Layers.Get(id)
	if !ok {
		return service.Layer{}, h.httpError(fmt.Errorf("%w: %q", service.ErrUnknownLayer, id))
	}
	return l, nil
}

func (h *APIHandler) GetLayer(ctx context.Context, input *IDInput) (*LayerOutput, error) {
	l, err := h.layer(input.ID)
	if err != nil {
		return nil, err
	}
	return &LayerOutput{Body: LayerBody{l.Info()}}, nil
}

func (h *APIHandler) GetLayerGeoJSON(ctx context.Context, input *IDInput) (*GeoJSONOutput, error) {
	l, err := h.layer(input.ID)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(l.Data)
	if err != nil {
		return nil, h.httpError(err)
	}
	return &GeoJSONOutput{ContentType: "application/geo+json", Body: raw}, nil
}

func (h *APIHandler) GetLayerTile(ctx context.Context, input *TileInput) (*TileOutput, error) {
	l, err := h.layer(input.ID)
	if err != nil {
		return nil, err
	}
	t, err := tiler.ParseTile(input.Z, input.X, input.Y)
	if err != nil {
		return nil, h.httpError(err)
	}
	data, err := h.svc.Tiles.Tile(l.ID, func() *geojson.FeatureCollection { return l.Data.FeatureCollection() }, t)
	if err != nil {
		return nil, h.httpError(err)
	}
	if len(data) == 0 {
		return &TileOutput{Status: http.StatusNoContent}, nil
	}
	return &TileOutput{
		Status:          http.StatusOK,
		ContentType:     "application/vnd.mapbox-vector-tile",
		ContentEncoding: "gzip",
		CacheControl:    "public, max-age=3600",
		Body:            data,
	}, nil
}

// DeleteLayer removes a layer. Unknown IDs succeed without effect.
func (h *APIHandler) DeleteLayer(ctx context.Context, input *IDInput) (*struct{ Body MessageBody }, error) {
	msg := "Layer removed"
	if !h.svc.Layers.Remove(input.ID) {
		msg = "No such layer"
	}
	if h.svc.Tiles != nil {
		h.svc.Tiles.Forget(input.ID)
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: msg}}, nil
}
