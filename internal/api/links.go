package api

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/fra-atlas/internal/humastar"
)

// links maps operation paths to their RFC 8288 Link header values.
// Enables restish hypermedia navigation via `restish links <url>`.
var links = map[string][]string{
	"/health": {
		`</api/v1/info>; rel="info"`,
		`</api/v1/layers>; rel="layers"`,
		`</api/v1/map>; rel="map"`,
		`</api/v1/claims>; rel="claims"`,
		`</openapi.json>; rel="service-desc"`,
		`</docs>; rel="service-doc"`,
	},
	"/api/v1/info": {
		`</health>; rel="health"`,
		`</api/v1/layers>; rel="layers"`,
	},
	"/api/v1/layers": {
		`</api/v1/layers/{id}>; rel="item"`,
		`</api/v1/map>; rel="map"`,
		`</api/v1/rules/landuse>; rel="landuse"`,
		`</api/v1/rules/changes>; rel="changes"`,
	},
	"/api/v1/layers/{id}": {
		`</api/v1/layers>; rel="collection"`,
	},
	"/api/v1/layers/{id}/geojson": {
		`</api/v1/layers>; rel="collection"`,
	},
	"/api/v1/map": {
		`</api/v1/map/regions>; rel="regions"`,
		`</api/v1/map/basemaps>; rel="basemaps"`,
		`</api/v1/layers>; rel="layers"`,
	},
	"/api/v1/map/regions": {
		`</api/v1/map/focus>; rel="focus"`,
	},
	"/api/v1/claims": {
		`</api/v1/claims/stats>; rel="stats"`,
		`</api/v1/query>; rel="search"`,
	},
	"/api/v1/tables": {
		`</api/v1/query>; rel="query"`,
	},
}

// LinkTransformer returns a Huma Transformer that injects the Link headers of
// this API.
func LinkTransformer() huma.Transformer {
	return humastar.LinkTransformer(links)
}
