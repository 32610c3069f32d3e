package service

import (
	"fmt"
	"math/rand/v2"
	"sync"
)

// Hues is the fixed overlay hue palette.
var Hues = []int{152, 189, 28, 210, 340, 260}

// HSL formats a palette hue as the CSS color used for overlays.
func HSL(hue int) string {
	return fmt.Sprintf("hsl(%d 70%% 45%%)", hue)
}

// Palette hands out overlay colors. Colors need not be unique.
type Palette interface {
	Next() string
}

// RandomPalette picks hues with a seeded generator, so a fixed seed gives a
// repeatable color sequence.
type RandomPalette struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomPalette creates a palette seeded with seed.
func NewRandomPalette(seed uint64) *RandomPalette {
	return &RandomPalette{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (p *RandomPalette) Next() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return HSL(Hues[p.rng.IntN(len(Hues))])
}

// CyclePalette walks the hues in order.
type CyclePalette struct {
	mu sync.Mutex
	i  int
}

func (p *CyclePalette) Next() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	h := Hues[p.i%len(Hues)]
	p.i++
	return HSL(h)
}
