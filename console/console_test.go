package console

import (
	"strings"
	"testing"
)

func TestPrintWrapsAtWidth(t *testing.T) {
	var buf strings.Builder
	c := New(&buf, 20)
	c.Print("one two three four five", "hdr: ")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) < 2 {
		t.Fatalf("Expected wrapped output, got %q", buf.String())
	}
	if !strings.HasPrefix(lines[0], "hdr: ") {
		t.Errorf("first line should carry the header, got %q", lines[0])
	}
	for i, line := range lines[1:] {
		if !strings.HasPrefix(line, "     ") {
			t.Errorf("continuation line %d should be indented to the header width, got %q", i+1, line)
		}
	}
	joined := strings.Join(lines, "\n")
	for _, word := range []string{"one", "two", "three", "four", "five"} {
		if !strings.Contains(joined, word) {
			t.Errorf("word %q lost in wrapping: %q", word, joined)
		}
	}
}

func TestPrintShortMessageSingleLine(t *testing.T) {
	var buf strings.Builder
	c := New(&buf, 40)
	c.Print("short", "h: ")
	if got := buf.String(); got != "h: short\n" {
		t.Errorf("got %q, want %q", got, "h: short\n")
	}
}

func TestPrintBreaksAtLastFittingSpace(t *testing.T) {
	var buf strings.Builder
	c := New(&buf, 10)
	c.Print("aaaa bbbb cccc", "")
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if lines[0] != "aaaa bbbb" {
		t.Errorf("first line = %q, want %q", lines[0], "aaaa bbbb")
	}
	if lines[1] != "cccc" {
		t.Errorf("second line = %q, want %q (the break's space is consumed)", lines[1], "cccc")
	}
}

func TestPrintHardBreaksUnbrokenWord(t *testing.T) {
	var buf strings.Builder
	c := New(&buf, 8)
	c.Print("abcdefghijkl", "")
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if lines[0] != "abcdefgh" {
		t.Errorf("first line = %q, want the first 8 runes", lines[0])
	}
	if lines[1] != "ijkl" {
		t.Errorf("second line = %q, want the remainder", lines[1])
	}
}

func TestWarnSuppression(t *testing.T) {
	var buf strings.Builder
	c := New(&buf, 40)
	c.SuppressWarnings = true
	c.Warn("nothing to see")
	if buf.Len() != 0 {
		t.Errorf("suppressed warning still produced output: %q", buf.String())
	}
	c.SuppressWarnings = false
	c.Warn("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("warning text missing from output: %q", buf.String())
	}
}

func TestDefaultWidth(t *testing.T) {
	c := New(&strings.Builder{}, 0)
	if c.Width() != DefaultWidth {
		t.Errorf("width = %d, want the %d default", c.Width(), DefaultWidth)
	}
}
