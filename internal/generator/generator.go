// Package generator picks quotes and rewards for new races.
package generator

import (
	"math/rand"
	"time"

	"github.com/verte-zerg/typerush/internal/model"
)

// Generator draws uniformly at random from the corpus.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewWithSeed(time.Now().UnixNano())
}

// NewWithSeed returns a deterministic Generator.
func NewWithSeed(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// PickQuote selects a quote uniformly. It returns false for an empty list.
func (g *Generator) PickQuote(quotes []model.Quote) (model.Quote, bool) {
	if len(quotes) == 0 {
		return model.Quote{}, false
	}
	return quotes[g.rnd.Intn(len(quotes))], true
}

// PickReward selects a reward name uniformly, or "" when the pool is empty.
func (g *Generator) PickReward(pool []string) string {
	if len(pool) == 0 {
		return ""
	}
	return pool[g.rnd.Intn(len(pool))]
}
