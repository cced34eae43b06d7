package generator

import (
	"testing"

	"github.com/verte-zerg/typerush/internal/model"
)

func TestPickQuoteCoversCorpus(t *testing.T) {
	quotes := []model.Quote{{ID: 1, Text: "a"}, {ID: 2, Text: "b"}, {ID: 3, Text: "c"}}
	g := NewWithSeed(1)
	seen := map[int]int{}
	for i := 0; i < 300; i++ {
		q, ok := g.PickQuote(quotes)
		if !ok {
			t.Fatalf("expected a quote")
		}
		seen[q.ID]++
	}
	for _, q := range quotes {
		if seen[q.ID] < 50 {
			t.Fatalf("quote %d picked %d times, selection looks biased", q.ID, seen[q.ID])
		}
	}
	if _, ok := g.PickQuote(nil); ok {
		t.Fatalf("expected no quote from empty corpus")
	}
}

func TestPickRewardIsDeterministicPerSeed(t *testing.T) {
	pool := []string{"Pikachu", "Eevee", "Mew"}
	a, b := NewWithSeed(42), NewWithSeed(42)
	for i := 0; i < 10; i++ {
		if a.PickReward(pool) != b.PickReward(pool) {
			t.Fatalf("same seed should produce the same rewards")
		}
	}
	if got := a.PickReward(nil); got != "" {
		t.Fatalf("expected empty reward from empty pool, got %q", got)
	}
}
