package stats

import "testing"

func TestTableAlignsColumns(t *testing.T) {
	tbl := newTable("Char", "Accuracy", "Correct").alignRight(1, 2)
	tbl.add("a", "97.50%", "12")
	tbl.add("<space>", "8.00%", "3")

	lines := tbl.lines()
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Char    Accuracy Correct" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "a         97.50%      12" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "<space>    8.00%       3" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestTableWideRunes(t *testing.T) {
	tbl := newTable("Char", "N").alignRight(1)
	tbl.add("日", "1")
	tbl.add("a", "22")
	lines := tbl.lines()
	if lines[1] != "日    1" {
		t.Fatalf("unexpected wide row: %q", lines[1])
	}
	if lines[2] != "a    22" {
		t.Fatalf("unexpected row: %q", lines[2])
	}
}

func TestTableEmpty(t *testing.T) {
	if lines := newTable().lines(); lines != nil {
		t.Fatalf("expected no lines, got %v", lines)
	}
}
