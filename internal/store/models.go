package store

import (
	"strings"
	"time"
)

// ProcessingState represents the pipeline lifecycle of an archived meeting.
type ProcessingState string

const (
	StateDiscovered  ProcessingState = "discovered"
	StateDownloaded  ProcessingState = "downloaded"
	StateTranscribed ProcessingState = "transcribed"
	StateStructured  ProcessingState = "structured"
	StateEmbedded    ProcessingState = "embedded"
	StateFailed      ProcessingState = "failed"
)

var allStates = []ProcessingState{
	StateDiscovered,
	StateDownloaded,
	StateTranscribed,
	StateStructured,
	StateEmbedded,
	StateFailed,
}

var stateSet = func() map[ProcessingState]struct{} {
	set := make(map[ProcessingState]struct{}, len(allStates))
	for _, state := range allStates {
		set[state] = struct{}{}
	}
	return set
}()

// stateRank orders the forward lifecycle; StateFailed sits outside the order.
var stateRank = map[ProcessingState]int{
	StateDiscovered:  0,
	StateDownloaded:  1,
	StateTranscribed: 2,
	StateStructured:  3,
	StateEmbedded:    4,
}

// AllStates returns the ordered list of known processing states.
func AllStates() []ProcessingState {
	cp := make([]ProcessingState, len(allStates))
	copy(cp, allStates)
	return cp
}

// ParseState converts a string into a known ProcessingState.
func ParseState(value string) (ProcessingState, bool) {
	normalized := ProcessingState(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := stateSet[normalized]
	return normalized, ok
}

// AtLeast reports whether the state has reached the given forward state.
// Failed meetings never satisfy AtLeast.
func (s ProcessingState) AtLeast(other ProcessingState) bool {
	rank, ok := stateRank[s]
	if !ok {
		return false
	}
	otherRank, ok := stateRank[other]
	if !ok {
		return false
	}
	return rank >= otherRank
}

// Matter status values.
const (
	MatterOpen   = "open"
	MatterClosed = "closed"
)

// Meeting is a single sitting of a governing body. Created when first observed
// on the portal, enriched as documents and video become available, never
// deleted.
type Meeting struct {
	ID            int64
	PortalID      string
	Body          string
	Type          string
	Date          time.Time
	HasAgenda     bool
	HasMinutes    bool
	HasTranscript bool
	HasVideo      bool
	Summary       string
	VideoHandle   string
	State         ProcessingState
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SetFailed marks the meeting as failed with the given error message.
func (m *Meeting) SetFailed(message string) {
	m.State = StateFailed
	m.ErrorMessage = message
}

// AgendaItem is one line item on a meeting's agenda. Owned by exactly one
// meeting and replaced wholesale when the meeting is re-ingested.
type AgendaItem struct {
	ID        int64
	MeetingID int64
	Position  int
	Ordinal   string
	Title     string
	Category  string
	MatterID  *int64
}

// Vote is a single roll-call vote on a motion.
type Vote struct {
	Member string `json:"member"`
	Value  string `json:"value"`
}

// Motion is a formal vote tied to an agenda item.
type Motion struct {
	ID           int64
	AgendaItemID int64
	Position     int
	Text         string
	Mover        string
	Seconder     string
	Result       string
	Votes        []Vote
}

// Matter is a recurring piece of civic business tracked across meetings.
// Identifier and address lists hold normalized keys; cosmetic variations of
// the same real-world item must resolve to the same row.
type Matter struct {
	ID          int64
	Identifiers []string
	Addresses   []string
	Category    string
	Status      string
	FirstSeen   time.Time
	LastSeen    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsOpen reports whether the matter is still active civic business.
func (m *Matter) IsOpen() bool {
	return m.Status != MatterClosed
}

// MotionInput carries a motion for structure replacement.
type MotionInput struct {
	Text     string
	Mover    string
	Seconder string
	Result   string
	Votes    []Vote
}

// ItemInput carries an agenda item with its motions for structure replacement.
type ItemInput struct {
	Position int
	Ordinal  string
	Title    string
	Category string
	MatterID *int64
	Motions  []MotionInput
}
