package stats

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Quote", "Best WPM", "Races"}
	rows := [][]string{
		{"Tolkien", "97", "12"},
		{"Austen", "108", "3"},
	}
	rightAlign := map[int]bool{1: true, 2: true}

	lines := formatTable(headers, rows, rightAlign)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Quote   Best WPM Races" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "Tolkien       97    12" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "Austen       108     3" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestFormatTableWideRunes(t *testing.T) {
	lines := formatTable([]string{"Name", "N"}, [][]string{{"ピカチュウ", "1"}, {"Eevee", "2"}}, nil)
	if lines[1] != "ピカチュウ 1" {
		t.Fatalf("unexpected wide row: %q", lines[1])
	}
	if lines[2] != "Eevee      2" {
		t.Fatalf("unexpected narrow row: %q", lines[2])
	}
}
