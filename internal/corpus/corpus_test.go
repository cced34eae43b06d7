package corpus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultCorpus(t *testing.T) {
	c := Default()
	if len(c.Quotes) < 10 {
		t.Fatalf("expected bundled quotes, got %d", len(c.Quotes))
	}
	if len(c.Rewards) == 0 {
		t.Fatalf("expected bundled rewards")
	}
	for _, q := range c.Quotes {
		if q.Text == "" || strings.Contains(q.Text, "  ") {
			t.Fatalf("quote %d text not normalized: %q", q.ID, q.Text)
		}
		got, ok := c.QuoteByID(q.ID)
		if !ok || got.Text != q.Text {
			t.Fatalf("lookup of quote %d failed", q.ID)
		}
	}
	if _, ok := c.QuoteByID(-1); ok {
		t.Fatalf("expected unknown quote to be missing")
	}
}

func TestParseRejectsBadCorpus(t *testing.T) {
	cases := map[string]string{
		"empty":     ``,
		"blank":     "[[quote]]\nid = 1\nsource = \"x\"\ntext = \"   \"\n",
		"duplicate": "[[quote]]\nid = 1\ntext = \"a\"\n[[quote]]\nid = 1\ntext = \"b\"\n",
		"syntax":    "[[quote]\n",
	}
	for name, doc := range cases {
		if _, err := Parse(doc); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadNormalizesAndBorrowsRewards(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.toml")
	doc := "[[quote]]\nid = 7\nsource = \" Me \"\ntext = \"\"\"\nhello\n   there\tworld\n\"\"\"\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write corpus: %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	q, ok := c.QuoteByID(7)
	if !ok || q.Text != "hello there world" || q.Source != "Me" {
		t.Fatalf("unexpected quote %+v", q)
	}
	if len(c.Rewards) != len(Default().Rewards) {
		t.Fatalf("expected bundled rewards to be borrowed")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected missing file error")
	}
}
