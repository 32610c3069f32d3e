package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

type InfoHandler struct {
	svc  *Services
	dbOK bool
}

func NewInfoHandler(svc *Services, dbOK bool) *InfoHandler {
	return &InfoHandler{svc: svc, dbOK: dbOK}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
	huma.Get(api, "/api/demo", h.GetDemo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name     string   `json:"name" doc:"Service name"`
	Version  string   `json:"version" doc:"Service version"`
	Layers   int      `json:"layers" doc:"Number of loaded layers"`
	DB       bool     `json:"db" doc:"Whether database is available"`
	Features []string `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:     "fra-atlas",
		Version:  Version,
		Layers:   h.svc.Layers.Len(),
		DB:       h.dbOK,
		Features: []string{"geojson", "mvt", "smart-rules", "claims", "duckdb"},
	}}, nil
}

// DemoBody is the demo greeting.
type DemoBody struct {
	Message string `json:"message" doc:"Greeting" example:"Hello from Go server"`
}

// DemoMessage is returned by /api/demo.
const DemoMessage = "Hello from Go server"

func (h *InfoHandler) GetDemo(ctx context.Context, input *struct{}) (*struct{ Body DemoBody }, error) {
	return &struct{ Body DemoBody }{Body: DemoBody{Message: DemoMessage}}, nil
}
