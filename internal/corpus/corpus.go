// Package corpus loads practice quotes and the reward pool.
package corpus

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/typerush/internal/model"
)

//go:embed corpus.toml
var bundled string

// Corpus holds the quotes and reward names available to races.
type Corpus struct {
	Quotes  []model.Quote
	Rewards []string

	byID map[int]int
}

type fileCorpus struct {
	Quote   []model.Quote `toml:"quote"`
	Rewards struct {
		Names []string `toml:"names"`
	} `toml:"rewards"`
}

// Default returns the bundled corpus.
func Default() *Corpus {
	c, err := Parse(bundled)
	if err != nil {
		panic(fmt.Sprintf("bundled corpus is invalid: %v", err))
	}
	return c
}

// Load reads a corpus file. A file without a reward pool borrows the
// bundled one.
func Load(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}
	c, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(c.Rewards) == 0 {
		c.Rewards = Default().Rewards
	}
	return c, nil
}

// Parse decodes and validates a TOML corpus document.
func Parse(doc string) (*Corpus, error) {
	var raw fileCorpus
	if _, err := toml.Decode(doc, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse corpus: %w", err)
	}
	if len(raw.Quote) == 0 {
		return nil, fmt.Errorf("corpus has no quotes")
	}
	c := &Corpus{byID: make(map[int]int, len(raw.Quote))}
	for _, q := range raw.Quote {
		q.Text = normalizeText(q.Text)
		q.Source = strings.TrimSpace(q.Source)
		if q.Text == "" {
			return nil, fmt.Errorf("quote %d has empty text", q.ID)
		}
		if _, dup := c.byID[q.ID]; dup {
			return nil, fmt.Errorf("duplicate quote id %d", q.ID)
		}
		c.byID[q.ID] = len(c.Quotes)
		c.Quotes = append(c.Quotes, q)
	}
	for _, name := range raw.Rewards.Names {
		name = strings.TrimSpace(name)
		if name != "" {
			c.Rewards = append(c.Rewards, name)
		}
	}
	return c, nil
}

// QuoteByID looks up a quote.
func (c *Corpus) QuoteByID(id int) (model.Quote, bool) {
	i, ok := c.byID[id]
	if !ok {
		return model.Quote{}, false
	}
	return c.Quotes[i], true
}

// normalizeText folds line breaks and runs of whitespace into single spaces
// and drops control characters that cannot be typed.
func normalizeText(text string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.TrimSpace(text) {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}
