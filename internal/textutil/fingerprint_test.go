package textutil_test

import (
	"testing"

	"minutebook/internal/textutil"
)

func TestTokenizeKeepsNumbersAndDropsSingles(t *testing.T) {
	got := textutil.Tokenize("123 Main Street, Unit B")
	want := []string{"123", "main", "street", "unit"}
	if len(got) != len(want) {
		t.Fatalf("Tokenize() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Tokenize() = %v, want %v", got, want)
		}
	}
}

func TestNewFingerprintEmptyText(t *testing.T) {
	if fp := textutil.NewFingerprint("  ! "); fp != nil {
		t.Fatalf("expected nil fingerprint, got %d tokens", fp.TokenCount())
	}
}

func TestCosineSimilarityIdentical(t *testing.T) {
	a := textutil.NewFingerprint("123 Main Street rezoning application")
	b := textutil.NewFingerprint("123 Main Street rezoning application")
	if got := textutil.CosineSimilarity(a, b); got < 0.999 {
		t.Fatalf("CosineSimilarity(identical) = %v, want 1.0", got)
	}
}

func TestCosineSimilarityDisjoint(t *testing.T) {
	a := textutil.NewFingerprint("456 Oak Avenue")
	b := textutil.NewFingerprint("991 Birch Crescent")
	if got := textutil.CosineSimilarity(a, b); got != 0 {
		t.Fatalf("CosineSimilarity(disjoint) = %v, want 0", got)
	}
}

func TestCosineSimilarityPartialOverlap(t *testing.T) {
	a := textutil.NewFingerprint("123 Main Street")
	b := textutil.NewFingerprint("123 Main Street West")
	got := textutil.CosineSimilarity(a, b)
	if got <= 0 || got >= 1 {
		t.Fatalf("CosineSimilarity(partial) = %v, want between 0 and 1", got)
	}
}

func TestCosineSimilarityNilSafe(t *testing.T) {
	a := textutil.NewFingerprint("123 Main Street")
	if got := textutil.CosineSimilarity(a, nil); got != 0 {
		t.Fatalf("CosineSimilarity(nil) = %v, want 0", got)
	}
	if got := textutil.CosineSimilarity(nil, nil); got != 0 {
		t.Fatalf("CosineSimilarity(nil, nil) = %v, want 0", got)
	}
}
