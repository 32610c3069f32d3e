package rules

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// CategoryKeys are checked in order to find a feature's land-use category.
var CategoryKeys = []string{"land_use", "landuse", "landUse", "category", "class"}

// UnknownCategory is used when no category key carries a non-blank value.
const UnknownCategory = "Unknown"

// CategoryCount is one line of a land-use summary.
type CategoryCount struct {
	Category string  `json:"category" doc:"Category value"`
	Count    int     `json:"count" doc:"Number of features"`
	Percent  float64 `json:"percent" doc:"Share of all features, rounded to one decimal"`
}

// Summary is the result of Summarize.
type Summary struct {
	Layer      string          `json:"layer,omitempty" doc:"Layer name"`
	Total      int             `json:"total" doc:"Total feature count"`
	Categories []CategoryCount `json:"categories" doc:"Counts by descending frequency"`
	Message    string          `json:"message,omitempty" doc:"Guidance when no layer is selected"`
}

// Summarize tallies features by land-use category.
func Summarize(layer *Input) Summary {
	if layer == nil {
		return Summary{Message: MsgSelectLayer, Categories: []CategoryCount{}}
	}

	features := layer.Data.Features()
	counts := map[string]int{}
	var order []string
	for _, f := range features {
		cat := UnknownCategory
		for _, key := range CategoryKeys {
			v := f.Property(key)
			if !v.Present() {
				continue
			}
			if s := strings.TrimSpace(v.String()); s != "" {
				cat = s
			}
			break
		}
		if _, seen := counts[cat]; !seen {
			order = append(order, cat)
		}
		counts[cat]++
	}

	total := len(features)
	s := Summary{Layer: layer.Name, Total: total, Categories: make([]CategoryCount, 0, len(order))}
	if total == 0 {
		return s
	}
	for _, cat := range order {
		s.Categories = append(s.Categories, CategoryCount{
			Category: cat,
			Count:    counts[cat],
			Percent:  math.Round(float64(counts[cat])/float64(total)*1000) / 10,
		})
	}
	sort.SliceStable(s.Categories, func(i, j int) bool {
		return s.Categories[i].Count > s.Categories[j].Count
	})
	return s
}

// Text renders the summary the way the panel shows it.
func (s Summary) Text() string {
	if s.Message != "" {
		return s.Message
	}
	lines := []string{fmt.Sprintf(`Land Use summary for "%s" (features: %d):`, s.Layer, s.Total)}
	for _, c := range s.Categories {
		lines = append(lines, fmt.Sprintf("- %s: %d (%.1f%%)", c.Category, c.Count, c.Percent))
	}
	return strings.Join(lines, "\n")
}
