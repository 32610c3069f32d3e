package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/joeblew999/fra-atlas/internal/geo"
)

// IDKeys are the property names consulted, in order, when a feature has no
// feature-level id.
var IDKeys = []string{"id", "claim_id", "gid"}

// ChangeRecord is one differing property of a matched feature.
type ChangeRecord struct {
	ID       string `json:"id" doc:"Matched feature identifier"`
	Property string `json:"property" doc:"Property name"`
	Old      string `json:"old" doc:"Value in the primary layer, undefined when absent"`
	New      string `json:"new" doc:"Value in the secondary layer, undefined when absent"`
}

func (r ChangeRecord) String() string {
	return fmt.Sprintf("%s: %s %s → %s", r.ID, r.Property, r.Old, r.New)
}

// Changes is the result of DetectChanges.
type Changes struct {
	Primary   string         `json:"primary,omitempty" doc:"Primary layer name"`
	Secondary string         `json:"secondary,omitempty" doc:"Secondary layer name"`
	Delta     int            `json:"delta" doc:"Primary feature count minus secondary feature count"`
	ByID      bool           `json:"byId" doc:"False when either layer had no resolvable ids"`
	Matched   int            `json:"matched" doc:"Identifiers present in both layers"`
	Records   []ChangeRecord `json:"records" doc:"Every changed field"`
	Message   string         `json:"message,omitempty" doc:"Guidance when two layers are not selected"`
}

// Changed is the full, untruncated number of changed fields.
func (c Changes) Changed() int { return len(c.Records) }

// FormatDelta renders a signed count delta with an explicit plus sign.
func FormatDelta(d int) string {
	if d > 0 {
		return fmt.Sprintf("+%d", d)
	}
	return fmt.Sprintf("%d", d)
}

// idIndex keeps first-seen id order; a repeated id replaces the earlier feature.
type idIndex struct {
	order []string
	byID  map[string]geo.Feature
}

// ResolveID returns a feature's identifier: its own id member, then IDKeys.
func ResolveID(f geo.Feature) (string, bool) {
	if id := f.ID(); id.Present() {
		return id.String(), true
	}
	if v, ok := f.Properties().First(IDKeys...); ok {
		return v.String(), true
	}
	return "", false
}

func buildIndex(c *geo.Collection) idIndex {
	idx := idIndex{byID: map[string]geo.Feature{}}
	for _, f := range c.Features() {
		id, ok := ResolveID(f)
		if !ok {
			continue
		}
		if _, seen := idx.byID[id]; !seen {
			idx.order = append(idx.order, id)
		}
		idx.byID[id] = f
	}
	return idx
}

// unionKeys lists a's keys, then keys only b has; each part sorted.
func unionKeys(a, b geo.Feature) []string {
	keys := a.Keys()
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		seen[k] = struct{}{}
	}
	var extra []string
	for _, k := range b.Keys() {
		if _, ok := seen[k]; !ok {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(keys, extra...)
}

// DetectChanges compares two layers feature by feature, matching on id.
func DetectChanges(primary, secondary *Input) Changes {
	if primary == nil || secondary == nil {
		return Changes{Message: MsgSelectTwoLayers, Records: []ChangeRecord{}}
	}

	c := Changes{
		Primary:   primary.Name,
		Secondary: secondary.Name,
		Delta:     primary.Data.Len() - secondary.Data.Len(),
		Records:   []ChangeRecord{},
	}

	a, b := buildIndex(primary.Data), buildIndex(secondary.Data)
	if len(a.order) == 0 || len(b.order) == 0 {
		return c
	}
	c.ByID = true

	for _, id := range a.order {
		fb, ok := b.byID[id]
		if !ok {
			continue
		}
		c.Matched++
		fa := a.byID[id]
		for _, k := range unionKeys(fa, fb) {
			va, vb := fa.Property(k), fb.Property(k)
			if !va.Equal(vb) {
				c.Records = append(c.Records, ChangeRecord{ID: id, Property: k, Old: va.String(), New: vb.String()})
			}
		}
	}
	return c
}

// Text renders the report, printing at most MaxChangeLines records.
func (c Changes) Text() string {
	if c.Message != "" {
		return c.Message
	}
	lines := []string{
		fmt.Sprintf(`Change detection between "%s" and "%s":`, c.Primary, c.Secondary),
		"- Feature count delta: " + FormatDelta(c.Delta),
	}
	if !c.ByID {
		lines = append(lines, "- No matching ids found; compared by counts only.")
		return strings.Join(lines, "\n")
	}
	lines = append(lines, fmt.Sprintf("- Matched by id: %d. Changed fields: %d", c.Matched, c.Changed()))
	for i, r := range c.Records {
		if i == MaxChangeLines {
			break
		}
		lines = append(lines, "  • "+r.String())
	}
	if rest := c.Changed() - MaxChangeLines; rest > 0 {
		lines = append(lines, fmt.Sprintf("  …and %d more", rest))
	}
	return strings.Join(lines, "\n")
}
