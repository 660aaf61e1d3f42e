package matter

import (
	"sort"
	"sync"

	"minutebook/internal/store"
	"minutebook/internal/textutil"
)

// Outcome is the result class of a match attempt.
type Outcome string

const (
	// Matched means exactly one matter was resolved with sufficient confidence.
	Matched Outcome = "matched"
	// NoMatch means no known matter scored above the confidence floor. The
	// caller creates a new matter.
	NoMatch Outcome = "no_match"
	// Ambiguous means several matters tied and none could be preferred. The
	// caller must leave the item unlinked rather than guess.
	Ambiguous Outcome = "ambiguous"
)

// Result describes the outcome of matching one reference against the index.
type Result struct {
	Outcome    Outcome
	Matter     *store.Matter
	Confidence float64
}

// Index resolves agenda item references against known matters. It is loaded
// once per run from the store and extended with Add as new matters are
// created, so later meetings in the same run see them. Safe for concurrent
// use.
type Index struct {
	mu              sync.RWMutex
	minConfidence   float64
	ambiguityMargin float64
	entries         []*entry
	byIdentifier    map[string]*entry
	byAddress       map[string][]*entry
}

type entry struct {
	matter       *store.Matter
	fingerprints []*textutil.Fingerprint
}

// NewIndex builds an index over the given matters. Identifiers and addresses
// are assumed to be stored normalized; they are re-normalized here anyway so
// hand-inserted rows cannot poison lookups.
func NewIndex(matters []*store.Matter, minConfidence, ambiguityMargin float64) *Index {
	ix := &Index{
		minConfidence:   minConfidence,
		ambiguityMargin: ambiguityMargin,
		byIdentifier:    make(map[string]*entry),
		byAddress:       make(map[string][]*entry),
	}
	for _, m := range matters {
		ix.add(m)
	}
	return ix
}

// Add makes a newly created matter visible to subsequent matches within the
// same run.
func (ix *Index) Add(m *store.Matter) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.add(m)
}

// Len returns the number of indexed matters.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

func (ix *Index) add(m *store.Matter) {
	e := &entry{matter: m}
	for _, address := range m.Addresses {
		normalized := NormalizeAddress(address)
		if normalized == "" {
			continue
		}
		ix.byAddress[normalized] = append(ix.byAddress[normalized], e)
		if fp := textutil.NewFingerprint(normalized); fp != nil {
			e.fingerprints = append(e.fingerprints, fp)
		}
	}
	for _, identifier := range m.Identifiers {
		key := NormalizeIdentifier(identifier)
		if key == "" {
			continue
		}
		// First writer wins; identifiers are unique keys and an existing
		// binding is never overwritten.
		if _, taken := ix.byIdentifier[key]; !taken {
			ix.byIdentifier[key] = e
		}
	}
	ix.entries = append(ix.entries, e)
}

// Match resolves a reference. Identifier matches are exact and score 1;
// address matches are scored by token similarity and must clear the
// confidence floor. When several matters tie within the ambiguity margin the
// most recently seen open matter is preferred, and if none can be preferred
// the result is Ambiguous rather than a guess.
func (ix *Index) Match(ref Reference) Result {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	for _, key := range ref.IdentifierKeys() {
		if e, ok := ix.byIdentifier[key]; ok {
			return Result{Outcome: Matched, Matter: e.matter, Confidence: 1}
		}
	}

	candidates := ix.scoreAddresses(ref.AddressKeys())
	if len(candidates) == 0 {
		return Result{Outcome: NoMatch}
	}
	if len(candidates) == 1 {
		return Result{Outcome: Matched, Matter: candidates[0].entry.matter, Confidence: candidates[0].score}
	}

	best := candidates[0]
	if best.score-candidates[1].score >= ix.ambiguityMargin {
		return Result{Outcome: Matched, Matter: best.entry.matter, Confidence: best.score}
	}
	return ix.breakTie(candidates, best.score)
}

type scored struct {
	entry *entry
	score float64
}

func (ix *Index) scoreAddresses(addresses []string) []scored {
	if len(addresses) == 0 {
		return nil
	}

	bestByMatter := make(map[int64]scored)
	for _, address := range addresses {
		for _, e := range ix.byAddress[address] {
			ix.record(bestByMatter, e, 1)
		}
		fp := textutil.NewFingerprint(address)
		if fp == nil {
			continue
		}
		for _, e := range ix.entries {
			for _, candidate := range e.fingerprints {
				if score := textutil.CosineSimilarity(fp, candidate); score >= ix.minConfidence {
					ix.record(bestByMatter, e, score)
				}
			}
		}
	}

	candidates := make([]scored, 0, len(bestByMatter))
	for _, s := range bestByMatter {
		candidates = append(candidates, s)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].entry.matter.ID < candidates[j].entry.matter.ID
	})
	return candidates
}

func (ix *Index) record(bestByMatter map[int64]scored, e *entry, score float64) {
	id := e.matter.ID
	if existing, ok := bestByMatter[id]; ok && existing.score >= score {
		return
	}
	bestByMatter[id] = scored{entry: e, score: score}
}

// breakTie handles candidates within the ambiguity margin of the best score.
// An open matter seen more recently than every other tied open matter wins;
// anything less decisive is Ambiguous.
func (ix *Index) breakTie(candidates []scored, bestScore float64) Result {
	var open []scored
	for _, c := range candidates {
		if bestScore-c.score >= ix.ambiguityMargin {
			break
		}
		if c.entry.matter.IsOpen() {
			open = append(open, c)
		}
	}
	if len(open) == 0 {
		return Result{Outcome: Ambiguous}
	}
	if len(open) == 1 {
		return Result{Outcome: Matched, Matter: open[0].entry.matter, Confidence: open[0].score}
	}

	sort.Slice(open, func(i, j int) bool {
		return open[i].entry.matter.LastSeen.After(open[j].entry.matter.LastSeen)
	})
	if open[0].entry.matter.LastSeen.Equal(open[1].entry.matter.LastSeen) {
		return Result{Outcome: Ambiguous}
	}
	return Result{Outcome: Matched, Matter: open[0].entry.matter, Confidence: open[0].score}
}
