package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/joeblew999/fra-atlas/internal/rules"
)

// ErrUnknownLayer is returned when a selection names a layer not in the store.
var ErrUnknownLayer = errors.New("unknown layer")

// InitialOutput is shown before any rule has run.
const InitialOutput = "Use Smart Rules to analyze your data."

// Panel is the Smart Help panel: which layers are selected and the last report.
// A selection persists across layer changes and is cleared only when its
// layer is removed.
type Panel struct {
	mu        sync.RWMutex
	store     *LayerStore
	primary   string
	secondary string
	output    string
	log       *zap.Logger
}

// NewPanel selects the first and second layers currently in the store.
func NewPanel(store *LayerStore, log *zap.Logger) *Panel {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Panel{store: store, output: InitialOutput, log: log}
	layers := store.List()
	if len(layers) > 0 {
		p.primary = layers[0].ID
	}
	if len(layers) > 1 {
		p.secondary = layers[1].ID
	}
	return p
}

// Select sets both slots. An empty ID clears a slot.
func (p *Panel) Select(primary, secondary string) error {
	for _, id := range []string{primary, secondary} {
		if id == "" {
			continue
		}
		if _, ok := p.store.Get(id); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownLayer, id)
		}
	}
	p.mu.Lock()
	p.primary, p.secondary = primary, secondary
	p.mu.Unlock()
	return nil
}

// Selection returns the selected IDs, dropping any whose layer is gone.
func (p *Panel) Selection() (primary, secondary string) {
	p.mu.RLock()
	primary, secondary = p.primary, p.secondary
	p.mu.RUnlock()
	if _, ok := p.store.Get(primary); !ok {
		primary = ""
	}
	if _, ok := p.store.Get(secondary); !ok {
		secondary = ""
	}
	return primary, secondary
}

// Output returns the last report text.
func (p *Panel) Output() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.output
}

func (p *Panel) input(id string) *rules.Input {
	if id == "" {
		return nil
	}
	l, ok := p.store.Get(id)
	if !ok {
		return nil
	}
	return l.Input()
}

func (p *Panel) setOutput(s string) {
	p.mu.Lock()
	p.output = s
	p.mu.Unlock()
}

// RunLandUse summarizes the primary layer.
func (p *Panel) RunLandUse() rules.Summary {
	primary, _ := p.Selection()
	s := rules.Summarize(p.input(primary))
	p.setOutput(s.Text())
	return s
}

// RunChanges compares the primary layer against the secondary layer.
func (p *Panel) RunChanges() rules.Changes {
	primary, secondary := p.Selection()
	c := rules.DetectChanges(p.input(primary), p.input(secondary))
	p.setOutput(c.Text())
	return c
}

// forget clears any slot holding id.
func (p *Panel) forget(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	cleared := false
	if p.primary == id {
		p.primary, cleared = "", true
	}
	if p.secondary == id {
		p.secondary, cleared = "", true
	}
	return cleared
}

// Watch clears selections as their layers are deleted, until ctx is done.
func (p *Panel) Watch(ctx context.Context, bus *EventBus) {
	ch := bus.Subscribe()
	defer bus.Unsubscribe(ch)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if ev.Resource != ResourceLayers || ev.Action != ActionDeleted {
				continue
			}
			if p.forget(ev.ID) {
				p.log.Debug("selection cleared", zap.String("layer", ev.ID))
				bus.Publish(Event{Resource: ResourcePanel, Action: ActionSelected, ID: ev.ID})
			}
		}
	}
}
