package claims

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/fra-atlas/internal/db"
)

func seeded(t *testing.T) *Repository {
	t.Helper()
	ctx := context.Background()
	conn, err := db.Open(ctx, db.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	r := NewRepository(conn, nil)
	require.NoError(t, r.Seed(ctx, Fixture))
	return r
}

func ids(cs []Claim) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.ID)
	}
	return out
}

func TestFilterAll(t *testing.T) {
	r := seeded(t)
	for _, f := range []Filter{{}, {State: AllStates}} {
		got, err := r.Filter(context.Background(), f)
		require.NoError(t, err)
		assert.Equal(t, Fixture, got)
	}
}

func TestFilterByState(t *testing.T) {
	r := seeded(t)
	got, err := r.Filter(context.Background(), Filter{State: "Odisha"})
	require.NoError(t, err)
	assert.Equal(t, []string{"OD-050", "OD-099", "OD-120"}, ids(got))
}

func TestFilterSearch(t *testing.T) {
	r := seeded(t)
	tests := []struct {
		filter Filter
		want   []string
	}{
		{Filter{Search: "asha"}, []string{"MP-001"}},
		{Filter{Search: "REJECTED"}, []string{"TR-101", "OD-099", "MP-010"}},
		{Filter{Search: "tg-2"}, []string{"TG-210", "TG-220"}},
		{Filter{State: "Tripura", Search: "pending"}, []string{"TR-111"}},
		{Filter{Search: "pradesh pending"}, []string{}},
		{Filter{Search: "Madhya Pradesh"}, []string{"MP-001", "MP-002", "MP-010"}},
		{Filter{State: "Kerala"}, []string{}},
	}
	for _, tt := range tests {
		got, err := r.Filter(context.Background(), tt.filter)
		require.NoError(t, err)
		assert.Equal(t, tt.want, ids(got), "%+v", tt.filter)
	}
}

func TestTotals(t *testing.T) {
	r := seeded(t)
	c, err := r.Totals(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, Counts{Pending: 4, Claimed: 3, Rejected: 3}, c)
	assert.Equal(t, len(Fixture), c.Total())

	c, err = r.Totals(context.Background(), Filter{State: "Telangana"})
	require.NoError(t, err)
	assert.Equal(t, Counts{Pending: 1, Claimed: 1}, c)
}

func TestStatsByState(t *testing.T) {
	r := seeded(t)
	got, err := r.StatsByState(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, []StateStats{
		{State: "Madhya Pradesh", Counts: Counts{Pending: 1, Claimed: 1, Rejected: 1}},
		{State: "Tripura", Counts: Counts{Pending: 1, Rejected: 1}},
		{State: "Odisha", Counts: Counts{Pending: 1, Claimed: 1, Rejected: 1}},
		{State: "Telangana", Counts: Counts{Pending: 1, Claimed: 1}},
	}, got)
}

func TestStatsByStateKeepsEmptyStates(t *testing.T) {
	r := seeded(t)
	got, err := r.StatsByState(context.Background(), Filter{State: "Tripura"})
	require.NoError(t, err)
	require.Len(t, got, len(States))
	assert.Equal(t, "Madhya Pradesh", got[0].State)
	assert.Zero(t, got[0].Total())
	assert.Equal(t, Counts{Pending: 1, Rejected: 1}, got[1].Counts)
}

func TestSeedReplaces(t *testing.T) {
	r := seeded(t)
	require.NoError(t, r.Seed(context.Background(), Fixture[:2]))
	got, err := r.Filter(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"MP-001", "MP-002"}, ids(got))
}
