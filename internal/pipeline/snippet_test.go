package pipeline

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSnippetReturnsShortTextUnchanged(t *testing.T) {
	if got := snippet("  Call to Order  ", 200); got != "Call to Order" {
		t.Fatalf("unexpected snippet %q", got)
	}
}

func TestSnippetPrefersWordBoundary(t *testing.T) {
	text := strings.Repeat("word ", 50)
	got := snippet(text, 42)
	if !strings.HasSuffix(got, "word…") {
		t.Fatalf("expected cut at a word boundary, got %q", got)
	}
	if len(got) > 42+len("…") {
		t.Fatalf("snippet too long: %d bytes", len(got))
	}
}

func TestSnippetNeverSplitsARune(t *testing.T) {
	// No spaces anywhere, so the byte cut cannot retreat to a word boundary
	// and must land on a rune boundary instead.
	text := strings.Repeat("é", 300)
	got := snippet(text, 501)
	if !utf8.ValidString(got) {
		t.Fatalf("snippet produced invalid UTF-8: %q", got)
	}
	if !strings.HasSuffix(got, "…") {
		t.Fatalf("expected truncation marker, got %q", got)
	}
	if got != strings.Repeat("é", 250)+"…" {
		t.Fatalf("expected cut after 250 runes, got %d bytes", len(got))
	}
}
