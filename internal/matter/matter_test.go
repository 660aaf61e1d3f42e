package matter_test

import (
	"reflect"
	"testing"
	"time"

	"minutebook/internal/matter"
	"minutebook/internal/store"
)

const (
	testMinConfidence   = 0.82
	testAmbiguityMargin = 0.05
)

func newIndex(t *testing.T, matters ...*store.Matter) *matter.Index {
	t.Helper()
	return matter.NewIndex(matters, testMinConfidence, testAmbiguityMargin)
}

func openMatter(id int64, lastSeen time.Time, identifiers, addresses []string) *store.Matter {
	return &store.Matter{
		ID:          id,
		Identifiers: identifiers,
		Addresses:   addresses,
		Status:      store.MatterOpen,
		FirstSeen:   lastSeen.AddDate(0, -6, 0),
		LastSeen:    lastSeen,
	}
}

func TestNormalizeIdentifierCollapsesFormatting(t *testing.T) {
	variants := []string{"2024-117", "2024.117", "2024 117", "  2024-117  ", "2024/117"}
	for _, variant := range variants {
		if got := matter.NormalizeIdentifier(variant); got != "2024117" {
			t.Fatalf("NormalizeIdentifier(%q) = %q, want 2024117", variant, got)
		}
	}
}

func TestSplitIdentifiersExpandsCompounds(t *testing.T) {
	got := matter.SplitIdentifiers("2024-117 & 2024-118, 2024-119 and 2024-117")
	want := []string{"2024117", "2024118", "2024119"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SplitIdentifiers = %v, want %v", got, want)
	}
	if got := matter.SplitIdentifiers("planning matters"); got != nil {
		t.Fatalf("digitless tokens must be dropped, got %v", got)
	}
}

func TestExtractIdentifiersFromProse(t *testing.T) {
	text := "Rezoning application (File No. 2024-117) and Bylaw 9120, first reading."
	got := matter.ExtractIdentifiers(text)
	want := []string{"2024117", "9120"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ExtractIdentifiers = %v, want %v", got, want)
	}
}

func TestExtractAddressesRequiresStreetSuffix(t *testing.T) {
	got := matter.ExtractAddresses("Rezoning of 123 Main Street and 45 Oak Crescent; we need a way forward on 7 priorities")
	want := []string{"123 main street", "45 oak crescent"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ExtractAddresses = %v, want %v", got, want)
	}
}

func TestMatchExactIdentifierIsConfidenceOne(t *testing.T) {
	seen := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	ix := newIndex(t,
		openMatter(1, seen, []string{"2024117"}, nil),
		openMatter(2, seen, []string{"9120"}, []string{"123 main street"}),
	)

	got := ix.Match(matter.Reference{Identifier: "File No. 2024-117"})
	if got.Outcome != matter.Matched || got.Matter.ID != 1 || got.Confidence != 1 {
		t.Fatalf("expected exact identifier match on matter 1, got %+v", got)
	}

	// Identifier embedded in prose resolves the same way.
	got = ix.Match(matter.Reference{Text: "Third reading of Bylaw No. 9120"})
	if got.Outcome != matter.Matched || got.Matter.ID != 2 {
		t.Fatalf("expected prose identifier match on matter 2, got %+v", got)
	}
}

func TestMatchIdentifierBeatsAddress(t *testing.T) {
	seen := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	ix := newIndex(t,
		openMatter(1, seen, []string{"2024117"}, []string{"123 main street"}),
		openMatter(2, seen, nil, []string{"123 main street"}),
	)

	got := ix.Match(matter.Reference{Identifier: "2024-117", Address: "123 Main Street"})
	if got.Outcome != matter.Matched || got.Matter.ID != 1 {
		t.Fatalf("identifier must win over shared address, got %+v", got)
	}
}

func TestMatchAddressVariantsResolve(t *testing.T) {
	seen := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	ix := newIndex(t, openMatter(7, seen, nil, []string{"123 main street"}))

	for _, address := range []string{"123 Main Street", "123  MAIN  Street", "123 Main Street W"} {
		got := ix.Match(matter.Reference{Address: address})
		if got.Outcome != matter.Matched || got.Matter.ID != 7 {
			t.Fatalf("Match(%q) = %+v, want matter 7", address, got)
		}
		if got.Confidence < testMinConfidence {
			t.Fatalf("Match(%q) confidence %v below floor", address, got.Confidence)
		}
	}
}

func TestMatchBelowFloorIsNoMatch(t *testing.T) {
	seen := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	ix := newIndex(t, openMatter(7, seen, nil, []string{"123 main street"}))

	// Shares only the street name; a wrong link is worse than none.
	got := ix.Match(matter.Reference{Address: "9800 Main Street"})
	if got.Outcome != matter.NoMatch {
		t.Fatalf("expected NoMatch for weak similarity, got %+v", got)
	}
	if got := ix.Match(matter.Reference{Text: "General correspondence"}); got.Outcome != matter.NoMatch {
		t.Fatalf("expected NoMatch for reference without keys, got %+v", got)
	}
}

func TestMatchTiePrefersMostRecentOpenMatter(t *testing.T) {
	older := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	ix := newIndex(t,
		openMatter(1, older, nil, []string{"44 oak crescent"}),
		openMatter(2, newer, nil, []string{"44 oak crescent"}),
	)

	got := ix.Match(matter.Reference{Address: "44 Oak Crescent"})
	if got.Outcome != matter.Matched || got.Matter.ID != 2 {
		t.Fatalf("expected most recently seen open matter, got %+v", got)
	}
}

func TestMatchTieSkipsClosedMatters(t *testing.T) {
	seen := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	closed := openMatter(1, seen, nil, []string{"44 oak crescent"})
	closed.Status = store.MatterClosed
	open := openMatter(2, seen.AddDate(-1, 0, 0), nil, []string{"44 oak crescent"})

	got := newIndex(t, closed, open).Match(matter.Reference{Address: "44 Oak Crescent"})
	if got.Outcome != matter.Matched || got.Matter.ID != 2 {
		t.Fatalf("expected the open matter despite older last-seen, got %+v", got)
	}
}

func TestMatchUnresolvableTieIsAmbiguous(t *testing.T) {
	seen := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	ix := newIndex(t,
		openMatter(1, seen, nil, []string{"44 oak crescent"}),
		openMatter(2, seen, nil, []string{"44 oak crescent"}),
	)

	if got := ix.Match(matter.Reference{Address: "44 Oak Crescent"}); got.Outcome != matter.Ambiguous {
		t.Fatalf("expected Ambiguous for same-day open matters, got %+v", got)
	}

	bothClosed := []*store.Matter{
		openMatter(1, seen, nil, []string{"44 oak crescent"}),
		openMatter(2, seen.AddDate(0, 1, 0), nil, []string{"44 oak crescent"}),
	}
	bothClosed[0].Status = store.MatterClosed
	bothClosed[1].Status = store.MatterClosed
	got := matter.NewIndex(bothClosed, testMinConfidence, testAmbiguityMargin).Match(matter.Reference{Address: "44 Oak Crescent"})
	if got.Outcome != matter.Ambiguous {
		t.Fatalf("expected Ambiguous when only closed matters tie, got %+v", got)
	}
}

func TestAddMakesMatterVisibleWithinRun(t *testing.T) {
	ix := newIndex(t)
	ref := matter.Reference{Identifier: "2026-0042"}

	if got := ix.Match(ref); got.Outcome != matter.NoMatch {
		t.Fatalf("expected NoMatch before Add, got %+v", got)
	}

	seen := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	ix.Add(openMatter(9, seen, []string{"20260042"}, nil))
	if ix.Len() != 1 {
		t.Fatalf("expected one indexed matter, got %d", ix.Len())
	}

	got := ix.Match(ref)
	if got.Outcome != matter.Matched || got.Matter.ID != 9 {
		t.Fatalf("expected match after Add, got %+v", got)
	}
}

func TestMatchIdentifiersAreNeverReassigned(t *testing.T) {
	seen := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	first := openMatter(1, seen, []string{"9120"}, nil)
	second := openMatter(2, seen, []string{"9120"}, nil)
	ix := newIndex(t, first, second)

	got := ix.Match(matter.Reference{Identifier: "Bylaw 9120"})
	if got.Outcome != matter.Matched || got.Matter.ID != 1 {
		t.Fatalf("duplicate identifier must keep its first binding, got %+v", got)
	}
}
