package main

import (
	"strings"
	"testing"
	"unicode/utf8"

	"voxpad/history"
)

func TestWrapTextKeepsRunesIntact(t *testing.T) {
	text := "Přepíšeme celý záznam a upravíme text, řečeno stručně a jasně."

	lines := wrapText(text, 16)
	for i, line := range lines {
		if !utf8.ValidString(line) {
			t.Errorf("line %d is not valid UTF-8: %q", i, line)
		}
		if n := utf8.RuneCountInString(line); n > 16 {
			t.Errorf("line %d is %d runes wide, want <= 16", i, n)
		}
	}

	// Nothing lost beyond the collapsed break spaces.
	joined := strings.Join(lines, " ")
	if strings.Join(strings.Fields(joined), " ") != strings.Join(strings.Fields(text), " ") {
		t.Errorf("wrapped text lost content: %q", joined)
	}
}

func TestWrapTextUnbreakableWord(t *testing.T) {
	lines := wrapText("žluťoučkýkůňúpělďábelské", 8)
	for i, line := range lines {
		if !utf8.ValidString(line) {
			t.Errorf("line %d is not valid UTF-8: %q", i, line)
		}
	}
	if len(lines) < 3 {
		t.Errorf("lines = %d, want the word split across several", len(lines))
	}
}

func TestNoteLineTruncatesOnRuneBoundary(t *testing.T) {
	e := history.Entry{Title: "Páteční poznámka o ničem podstatném"}

	line := noteLine(e, 12)
	if !utf8.ValidString(line) {
		t.Fatalf("truncated line is not valid UTF-8: %q", line)
	}
	if n := utf8.RuneCountInString(line); n != 12 {
		t.Errorf("line = %d runes, want 12", n)
	}
	if !strings.HasSuffix(line, "…") {
		t.Errorf("line = %q, want ellipsis suffix", line)
	}
}

func TestNoteLineFallsBackToText(t *testing.T) {
	e := history.Entry{Text: "bez názvu"}
	if got := noteLine(e, 40); got != "bez názvu" {
		t.Errorf("line = %q", got)
	}
}
