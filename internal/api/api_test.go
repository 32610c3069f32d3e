package api

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/joeblew999/fra-atlas/internal/claims"
	"github.com/joeblew999/fra-atlas/internal/db"
	"github.com/joeblew999/fra-atlas/internal/rules"
	"github.com/joeblew999/fra-atlas/internal/service"
	"github.com/joeblew999/fra-atlas/internal/tiler"
	"github.com/joeblew999/fra-atlas/internal/tiler/gotiler"
)

const forestV1 = `{"type":"FeatureCollection","features":[
	{"type":"Feature","id":"a","geometry":{"type":"Point","coordinates":[78.1,22.5]},"properties":{"land_use":"Forest","owner":"X"}},
	{"type":"Feature","id":"b","geometry":{"type":"Point","coordinates":[79.0,23.0]},"properties":{"land_use":"Forest"}},
	{"type":"Feature","id":"c","geometry":{"type":"Point","coordinates":[79.5,23.5]},"properties":{"land_use":"Water"}}
]}`

const forestV2 = `{"type":"FeatureCollection","features":[
	{"type":"Feature","id":"a","geometry":{"type":"Point","coordinates":[78.1,22.5]},"properties":{"land_use":"Agriculture","owner":"X"}}
]}`

func newServices(t *testing.T) *Services {
	t.Helper()
	bus := service.NewEventBus()
	layers := service.NewLayerStore(bus,
		service.WithPalette(&service.CyclePalette{}),
		service.WithClock(func() time.Time { return time.UnixMilli(1718000000000) }))
	return &Services{
		Layers: layers,
		Map:    service.NewMapService(bus),
		Panel:  service.NewPanel(layers, nil),
		Tiles:  tiler.NewCache(gotiler.New(), 64, nil),
	}
}

func newTestAPI(t *testing.T, svc *Services) humatest.TestAPI {
	t.Helper()
	cfg := huma.DefaultConfig("Test API", Version)
	cfg.Transformers = append(cfg.Transformers, LinkTransformer())
	_, api := humatest.New(t, cfg)
	RegisterRoutes(api, svc)
	NewInfoHandler(svc, svc.Claims != nil).RegisterRoutes(api)
	return api
}

func upload(t *testing.T, api humatest.TestAPI, name, body string) service.LayerInfo {
	t.Helper()
	resp := api.Post("/api/v1/layers/raw?filename="+name, "Content-Type: application/geo+json", strings.NewReader(body))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var info service.LayerInfo
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &info))
	return info
}

func decode[T any](t *testing.T, body *bytes.Buffer) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body.Bytes(), &v))
	return v
}

func TestHealthAndDemo(t *testing.T) {
	api := newTestAPI(t, newServices(t))

	resp := api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, HealthBody{Status: "ok", Version: Version}, decode[HealthBody](t, resp.Body))
	assert.Contains(t, resp.Header().Values("Link"), `</api/v1/layers>; rel="layers"`)

	resp = api.Get("/api/demo")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "Hello from Go server", decode[DemoBody](t, resp.Body).Message)
}

func TestInfoCountsLayers(t *testing.T) {
	svc := newServices(t)
	api := newTestAPI(t, svc)
	upload(t, api, "claims.geojson", forestV1)

	info := decode[InfoBody](t, api.Get("/api/v1/info").Body)
	assert.Equal(t, "fra-atlas", info.Name)
	assert.Equal(t, 1, info.Layers)
	assert.False(t, info.DB)
}

func TestUploadRawLayer(t *testing.T) {
	svc := newServices(t)
	api := newTestAPI(t, svc)

	info := upload(t, api, "claims.geojson", forestV1)
	assert.Equal(t, "claims.geojson-1718000000000", info.ID)
	assert.Equal(t, "claims", info.Name)
	assert.Equal(t, 3, info.Features)
	assert.Equal(t, "hsl(152 70% 45%)", info.Color)

	list := decode[[]service.LayerInfo](t, api.Get("/api/v1/layers").Body)
	require.Len(t, list, 1)
	assert.Equal(t, info.ID, list[0].ID)
}

func TestUploadMalformedLeavesStoreUnchanged(t *testing.T) {
	svc := newServices(t)
	api := newTestAPI(t, svc)
	upload(t, api, "claims.geojson", forestV1)

	for _, body := range []string{`not json`, `{"type":"Feature"}`, `[1,2]`} {
		resp := api.Post("/api/v1/layers/raw?filename=bad.geojson", "Content-Type: application/geo+json", strings.NewReader(body))
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code, body)
	}
	assert.Equal(t, 1, svc.Layers.Len())
}

func TestUploadMultipart(t *testing.T) {
	api := newTestAPI(t, newServices(t))

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "survey.GeoJSON")
	require.NoError(t, err)
	_, err = io.WriteString(part, forestV2)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	resp := api.Post("/api/v1/layers", "Content-Type: "+w.FormDataContentType(), &buf)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	info := decode[service.LayerInfo](t, resp.Body)
	assert.Equal(t, "survey", info.Name)
	assert.Equal(t, 1, info.Features)

	links := resp.Header().Values("Link")
	assert.Contains(t, links, fmt.Sprintf(`</api/v1/layers/%s>; rel="delete"; method="DELETE"; title="Remove layer"`, info.ID))
}

func TestUploadRateLimited(t *testing.T) {
	svc := newServices(t)
	svc.Uploads = rate.NewLimiter(rate.Every(time.Hour), 1)
	api := newTestAPI(t, svc)

	upload(t, api, "a.geojson", forestV1)
	resp := api.Post("/api/v1/layers/raw?filename=b.geojson", "Content-Type: application/geo+json", strings.NewReader(forestV1))
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Equal(t, 1, svc.Layers.Len())
}

func TestGetAndDeleteLayer(t *testing.T) {
	svc := newServices(t)
	api := newTestAPI(t, svc)
	info := upload(t, api, "claims.geojson", forestV1)

	resp := api.Get("/api/v1/layers/" + info.ID)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Header().Values("Link"), fmt.Sprintf(`</api/v1/layers/%s>; rel="self"`, info.ID))

	assert.Equal(t, http.StatusNotFound, api.Get("/api/v1/layers/missing").Code)

	resp = api.Delete("/api/v1/layers/missing")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "No such layer", decode[MessageBody](t, resp.Body).Message)
	assert.Equal(t, 1, svc.Layers.Len())

	resp = api.Delete("/api/v1/layers/" + info.ID)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "Layer removed", decode[MessageBody](t, resp.Body).Message)
	assert.Equal(t, 0, svc.Layers.Len())
}

func TestLayerGeoJSON(t *testing.T) {
	api := newTestAPI(t, newServices(t))
	info := upload(t, api, "claims.geojson", forestV2)

	resp := api.Get("/api/v1/layers/" + info.ID + "/geojson")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/geo+json", resp.Header().Get("Content-Type"))

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			ID         string         `json:"id"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "a", fc.Features[0].ID)
	assert.Equal(t, "Agriculture", fc.Features[0].Properties["land_use"])
}

func TestLayerTiles(t *testing.T) {
	svc := newServices(t)
	api := newTestAPI(t, svc)
	info := upload(t, api, "claims.geojson", forestV2)

	tile := maptile.At(orb.Point{78.1, 22.5}, 7)
	resp := api.Get(fmt.Sprintf("/api/v1/layers/%s/tiles/7/%d/%d", info.ID, tile.X, tile.Y))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/vnd.mapbox-vector-tile", resp.Header().Get("Content-Type"))
	assert.Equal(t, "gzip", resp.Header().Get("Content-Encoding"))
	zr, err := gzip.NewReader(bytes.NewReader(resp.Body.Bytes()))
	require.NoError(t, err)
	raw, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.NotEmpty(t, raw)

	resp = api.Get(fmt.Sprintf("/api/v1/layers/%s/tiles/7/0/0", info.ID))
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = api.Get(fmt.Sprintf("/api/v1/layers/%s/tiles/2/9/0", info.ID))
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	_, renders := svc.Tiles.Stats()
	assert.Equal(t, 2, renders)
}

func TestMapRoutes(t *testing.T) {
	svc := newServices(t)
	api := newTestAPI(t, svc)
	info := upload(t, api, "claims.geojson", forestV1)

	m := decode[MapBody](t, api.Get("/api/v1/map").Body)
	assert.Equal(t, service.InitialZoom, m.View.Zoom)
	assert.Equal(t, "OSM", m.Basemap.Name)
	require.Len(t, m.Overlays, 1)
	assert.Equal(t, info.ID, m.Overlays[0].ID)
	assert.Equal(t, "claims", m.Overlays[0].Tooltip)

	resp := api.Post("/api/v1/map/focus", map[string]any{"region": "Tripura"})
	require.Equal(t, http.StatusOK, resp.Code)
	v := decode[service.View](t, resp.Body)
	assert.Equal(t, 8, v.Zoom)
	assert.True(t, v.Animate)

	resp = api.Post("/api/v1/map/focus", map[string]any{"region": "Atlantis"})
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "Tripura", svc.Map.View().Region)

	resp = api.Put("/api/v1/map/basemap", map[string]any{"name": "Topo"})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "Topo", svc.Map.Basemap().Name)
	assert.Equal(t, http.StatusNotFound, api.Put("/api/v1/map/basemap", map[string]any{"name": "Nope"}).Code)

	regions := decode[[]service.FocusRegion](t, api.Get("/api/v1/map/regions").Body)
	assert.Len(t, regions, len(service.FocusRegions))
}

func TestRuleRoutes(t *testing.T) {
	api := newTestAPI(t, newServices(t))
	v1 := upload(t, api, "v1.geojson", forestV1)
	v2 := upload(t, api, "v2.geojson", forestV2)

	resp := api.Post("/api/v1/rules/landuse", map[string]any{})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, rules.MsgSelectLayer, decode[LandUseBody](t, resp.Body).Text)

	resp = api.Post("/api/v1/rules/landuse", map[string]any{"layerId": v1.ID})
	require.Equal(t, http.StatusOK, resp.Code)
	lu := decode[LandUseBody](t, resp.Body)
	assert.Equal(t, 3, lu.Total)
	assert.Equal(t, "Land Use summary for \"v1\" (features: 3):\n- Forest: 2 (66.7%)\n- Water: 1 (33.3%)", lu.Text)

	resp = api.Post("/api/v1/rules/landuse", map[string]any{"layerId": "missing"})
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = api.Post("/api/v1/rules/changes", map[string]any{"primaryId": v1.ID})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, rules.MsgSelectTwoLayers, decode[ChangesBody](t, resp.Body).Text)

	resp = api.Post("/api/v1/rules/changes", map[string]any{"primaryId": v1.ID, "secondaryId": v2.ID})
	require.Equal(t, http.StatusOK, resp.Code)
	ch := decode[ChangesBody](t, resp.Body)
	assert.Equal(t, 2, ch.Delta)
	assert.Equal(t, 1, ch.Matched)
	assert.Equal(t, 1, ch.Changed)
	require.Len(t, ch.Records, 1)
	assert.Equal(t, rules.ChangeRecord{ID: "a", Property: "land_use", Old: "Forest", New: "Agriculture"}, ch.Records[0])
}

func seededClaims(t *testing.T, svc *Services) {
	t.Helper()
	ctx := context.Background()
	conn, err := db.Open(ctx, db.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	repo := claims.NewRepository(conn, nil)
	require.NoError(t, repo.Seed(ctx, claims.Fixture))
	svc.Claims = repo
}

func TestClaimsUnavailable(t *testing.T) {
	api := newTestAPI(t, newServices(t))
	assert.Equal(t, http.StatusServiceUnavailable, api.Get("/api/v1/claims").Code)
}

func TestClaimsRoutes(t *testing.T) {
	svc := newServices(t)
	seededClaims(t, svc)
	api := newTestAPI(t, svc)

	resp := api.Get("/api/v1/claims")
	require.Equal(t, http.StatusOK, resp.Code)
	all := decode[ClaimsBody](t, resp.Body)
	assert.Equal(t, 10, all.Total)
	assert.Len(t, all.Data, 10)
	assert.Equal(t, claims.Counts{Pending: 4, Claimed: 3, Rejected: 3}, all.Totals)

	resp = api.Get("/api/v1/claims?state=Odisha&limit=2")
	require.Equal(t, http.StatusOK, resp.Code)
	page := decode[ClaimsBody](t, resp.Body)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "OD-050", page.Data[0].ID)
	assert.Equal(t, claims.Counts{Pending: 1, Claimed: 1, Rejected: 1}, page.Totals)
	assert.Contains(t, resp.Header().Values("Link"), `</api/v1/claims?offset=2&limit=2>; rel="next"`)

	resp = api.Get("/api/v1/claims?search=rejected")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 3, decode[ClaimsBody](t, resp.Body).Total)

	resp = api.Get("/api/v1/claims/stats")
	require.Equal(t, http.StatusOK, resp.Code)
	stats := decode[[]claims.StateStats](t, resp.Body)
	require.Len(t, stats, 4)
	assert.Equal(t, "Madhya Pradesh", stats[0].State)
	assert.Equal(t, claims.Counts{Pending: 1, Claimed: 1, Rejected: 1}, stats[0].Counts)
}

func TestDBRoutes(t *testing.T) {
	_, api := humatest.New(t)

	conn, err := db.Open(context.Background(), db.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, claims.NewRepository(conn, nil).Seed(context.Background(), claims.Fixture))
	NewDBHandler(conn).RegisterRoutes(api)

	resp := api.Get("/api/v1/tables")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, []string{"claims"}, decode[TablesBody](t, resp.Body).Tables)

	resp = api.Post("/api/v1/query", map[string]any{"query": "SELECT count(*) AS n FROM claims WHERE state = 'Tripura'"})
	require.Equal(t, http.StatusOK, resp.Code)
	q := decode[QueryBody](t, resp.Body)
	assert.Equal(t, []string{"n"}, q.Columns)
	assert.Equal(t, 1, q.Count)
	assert.EqualValues(t, 2, q.Rows[0]["n"])

	resp = api.Post("/api/v1/query", map[string]any{"query": "SELECT * FROM nowhere"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestDBQueryReadOnly(t *testing.T) {
	_, api := humatest.New(t)

	conn, err := db.Open(context.Background(), db.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	repo := claims.NewRepository(conn, nil)
	require.NoError(t, repo.Seed(context.Background(), claims.Fixture))
	NewDBHandler(conn).RegisterRoutes(api)

	out := filepath.Join(t.TempDir(), "out.csv")
	secret := filepath.Join(t.TempDir(), "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("hidden"), 0o600))

	for _, q := range []string{
		"DROP TABLE claims",
		"DELETE FROM claims",
		"SELECT 1; DROP TABLE claims",
		fmt.Sprintf("COPY (SELECT 1) TO '%s'", out),
		fmt.Sprintf("SELECT * FROM read_text('%s')", secret),
	} {
		resp := api.Post("/api/v1/query", map[string]any{"query": q})
		assert.Equal(t, http.StatusBadRequest, resp.Code, q)
	}
	assert.NoFileExists(t, out)

	// Writes hidden behind a WITH clause are rolled back.
	api.Post("/api/v1/query", map[string]any{"query": "WITH t AS (SELECT 1) INSERT INTO claims SELECT * FROM claims"})

	all, err := repo.Filter(context.Background(), claims.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, len(claims.Fixture))

	resp := api.Post("/api/v1/query", map[string]any{"query": "  with t as (select 1 as n) select n from t;"})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 1, decode[QueryBody](t, resp.Body).Count)
}

func TestDBRoutesUnavailable(t *testing.T) {
	_, api := humatest.New(t)
	NewDBHandler(nil).RegisterRoutes(api)
	assert.Equal(t, http.StatusServiceUnavailable, api.Get("/api/v1/tables").Code)
}
