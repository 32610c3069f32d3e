package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/fra-atlas/internal/claims"
	"github.com/joeblew999/fra-atlas/internal/humastar"
)

type ClaimsFilterInput struct {
	State  string `query:"state" default:"All" doc:"State name, or All" example:"Odisha"`
	Search string `query:"search" doc:"Case-insensitive text matched against id, claimant, village, status and state"`
}

func (in ClaimsFilterInput) filter() claims.Filter {
	return claims.Filter{State: in.State, Search: in.Search}
}

type ClaimsInput struct {
	ClaimsFilterInput
	humastar.PageInput
}

// ClaimsBody is a page of matching claims and the status totals over all of
// them.
type ClaimsBody struct {
	humastar.PageBody[claims.Claim]
	Totals claims.Counts `json:"totals" doc:"Matching claims by status"`
}

// RegisterClaims registers the claims dashboard routes.
func (h *APIHandler) RegisterClaims(api huma.API) {
	huma.Get(api, "/api/v1/claims", h.ListClaims, huma.OperationTags("claims"))
	huma.Get(api, "/api/v1/claims/stats", h.ClaimStats, huma.OperationTags("claims"))
}

func (h *APIHandler) ListClaims(ctx context.Context, input *ClaimsInput) (*struct{ Body ClaimsBody }, error) {
	if h.svc.Claims == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}
	f := input.filter()
	all, err := h.svc.Claims.Filter(ctx, f)
	if err != nil {
		return nil, h.httpError(err)
	}
	totals, err := h.svc.Claims.Totals(ctx, f)
	if err != nil {
		return nil, h.httpError(err)
	}
	return &struct{ Body ClaimsBody }{Body: ClaimsBody{
		PageBody: humastar.Paginate(all, input.PageInput),
		Totals:   totals,
	}}, nil
}

func (h *APIHandler) ClaimStats(ctx context.Context, input *ClaimsFilterInput) (*struct{ Body []claims.StateStats }, error) {
	if h.svc.Claims == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}
	stats, err := h.svc.Claims.StatsByState(ctx, input.filter())
	if err != nil {
		return nil, h.httpError(err)
	}
	return &struct{ Body []claims.StateStats }{Body: stats}, nil
}
