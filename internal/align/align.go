package align

import (
	"regexp"
	"strings"
)

// Kind classifies what a span of document text belongs to.
type Kind string

const (
	// KindItem is text under an agenda item marker.
	KindItem Kind = "item"
	// KindMotion is text under a motion marker within an item.
	KindMotion Kind = "motion"
	// KindUnanchored is text with no preceding marker. A document with zero
	// markers yields exactly one unanchored association; callers must treat
	// that as a valid outcome, not an error.
	KindUnanchored Kind = "unanchored"
)

// Segment is one speaker-labeled chunk of transcript.
type Segment struct {
	Speaker string
	Text    string
}

// KnownItem identifies an agenda item the document is aligned against.
type KnownItem struct {
	Ordinal string
	Title   string
}

// Span is a half-open byte range [Start, End) within the document text.
type Span struct {
	Start int
	End   int
}

// SegmentRange is an inclusive range of transcript segment indexes.
// First and Last are -1 when no segments belong to the association.
type SegmentRange struct {
	First int
	Last  int
}

// Association anchors a document span (and optionally a transcript segment
// range) to an agenda item or motion.
type Association struct {
	Kind     Kind
	Ordinal  string
	Span     Span
	Segments SegmentRange
}

var (
	itemMarkerPattern   = regexp.MustCompile(`(?i)^\s*(?:item\s+)?(\d+(?:\.\d+)*)[.):]?\s+\S`)
	motionMarkerPattern = regexp.MustCompile(`(?i)^\s*(?:motion\b|moved by\b|it was moved\b)`)
)

type marker struct {
	kind    Kind
	ordinal string
	offset  int
}

// Align walks the document in order, splits it into spans at item and motion
// markers, and assigns transcript segments to the association whose marker
// they follow. Ties are broken by document order, never by content similarity.
func Align(doc string, segments []Segment, known []KnownItem) []Association {
	markers := scanMarkers(doc, known)

	associations := buildSpans(doc, markers)
	assignSegments(associations, segments)
	return associations
}

func scanMarkers(doc string, known []KnownItem) []marker {
	knownSet := make(map[string]struct{}, len(known))
	for _, item := range known {
		knownSet[normalizeOrdinal(item.Ordinal)] = struct{}{}
	}

	var markers []marker
	seenOrdinals := make(map[string]struct{})
	offset := 0
	for _, line := range strings.SplitAfter(doc, "\n") {
		if m := detectMarker(line, knownSet, seenOrdinals); m != nil {
			m.offset = offset + leadingSpace(line)
			markers = append(markers, *m)
		}
		offset += len(line)
	}
	return markers
}

func detectMarker(line string, knownSet, seenOrdinals map[string]struct{}) *marker {
	if motionMarkerPattern.MatchString(line) {
		return &marker{kind: KindMotion}
	}
	match := itemMarkerPattern.FindStringSubmatch(line)
	if match == nil {
		return nil
	}
	ordinal := normalizeOrdinal(match[1])
	// With a known agenda, only its ordinals open spans; a repeated ordinal is
	// continuation text, so document order decides which occurrence wins.
	if len(knownSet) > 0 {
		if _, ok := knownSet[ordinal]; !ok {
			return nil
		}
	}
	if _, seen := seenOrdinals[ordinal]; seen {
		return nil
	}
	seenOrdinals[ordinal] = struct{}{}
	return &marker{kind: KindItem, ordinal: ordinal}
}

func buildSpans(doc string, markers []marker) []Association {
	noSegments := SegmentRange{First: -1, Last: -1}

	if len(markers) == 0 {
		return []Association{{
			Kind:     KindUnanchored,
			Span:     Span{Start: 0, End: len(doc)},
			Segments: noSegments,
		}}
	}

	var associations []Association
	if markers[0].offset > 0 && strings.TrimSpace(doc[:markers[0].offset]) != "" {
		associations = append(associations, Association{
			Kind:     KindUnanchored,
			Span:     Span{Start: 0, End: markers[0].offset},
			Segments: noSegments,
		})
	}

	currentItem := ""
	for i, m := range markers {
		end := len(doc)
		if i+1 < len(markers) {
			end = markers[i+1].offset
		}
		ordinal := m.ordinal
		if m.kind == KindItem {
			currentItem = m.ordinal
		} else {
			// Motions inherit the nearest preceding item marker.
			ordinal = currentItem
		}
		associations = append(associations, Association{
			Kind:     m.kind,
			Ordinal:  ordinal,
			Span:     Span{Start: m.offset, End: end},
			Segments: noSegments,
		})
	}
	return associations
}

// assignSegments walks the transcript once, advancing to the next association
// whenever a segment opens with that association's marker.
func assignSegments(associations []Association, segments []Segment) {
	if len(segments) == 0 {
		return
	}
	if len(associations) == 1 && associations[0].Kind == KindUnanchored {
		associations[0].Segments = SegmentRange{First: 0, Last: len(segments) - 1}
		return
	}

	current := -1
	for i, segment := range segments {
		if next := nextMatch(associations, current, segment.Text); next >= 0 {
			current = next
		}
		if current < 0 {
			continue
		}
		if associations[current].Segments.First == -1 {
			associations[current].Segments.First = i
		}
		associations[current].Segments.Last = i
	}
}

func nextMatch(associations []Association, current int, text string) int {
	for idx := current + 1; idx < len(associations); idx++ {
		assoc := associations[idx]
		switch assoc.Kind {
		case KindItem:
			if match := itemMarkerPattern.FindStringSubmatch(text); match != nil {
				if normalizeOrdinal(match[1]) == assoc.Ordinal {
					return idx
				}
			}
		case KindMotion:
			// A motion marker only advances to the very next association;
			// "Motion" openers recur too often to justify skipping items.
			if idx == current+1 && motionMarkerPattern.MatchString(text) {
				return idx
			}
		}
	}
	return -1
}

func normalizeOrdinal(ordinal string) string {
	return strings.TrimRight(strings.TrimSpace(strings.ToLower(ordinal)), ".")
}

func leadingSpace(line string) int {
	for i := 0; i < len(line); i++ {
		if line[i] != ' ' && line[i] != '\t' {
			return i
		}
	}
	return 0
}
