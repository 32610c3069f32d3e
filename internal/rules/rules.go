// Package rules implements the Smart Help heuristics: a categorical land-use
// tally over one layer and a field-level diff between two layers.
//
// Both rules are pure. They never fail; an incomplete selection yields a
// report carrying only a guidance message.
package rules

import "github.com/joeblew999/fra-atlas/internal/geo"

// Guidance messages for incomplete selections.
const (
	MsgSelectLayer     = "Select a layer first."
	MsgSelectTwoLayers = "Select two layers to compare."
)

// MaxChangeLines caps the change records printed in a report. The full set is
// always computed and counted.
const MaxChangeLines = 50

// Input is a layer handed to a rule. A nil *Input means "not selected".
type Input struct {
	Name string
	Data *geo.Collection
}
