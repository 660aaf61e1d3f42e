package pipeline

import "time"

// MeetingStatus summarizes how a meeting fared in a run.
type MeetingStatus string

const (
	// StatusProcessed means every applicable phase completed.
	StatusProcessed MeetingStatus = "processed"
	// StatusPartial means the meeting was archived with gaps: one or more
	// phases hit a data-shape failure and the rest proceeded.
	StatusPartial MeetingStatus = "partial"
	// StatusFailed means a phase failed hard and later phases were skipped.
	StatusFailed MeetingStatus = "failed"
)

// MeetingResult is the per-meeting line of a run report.
type MeetingResult struct {
	MeetingID int64
	PortalID  string
	Status    MeetingStatus
	// Phase names where the meeting degraded or failed; empty when processed.
	Gaps []string
	Err  string
}

// Report summarizes one pipeline run.
type Report struct {
	RunID    string
	Mode     string
	Started  time.Time
	Finished time.Time
	Results  []MeetingResult
	Embedded int
	// EmbedErr records a non-fatal embedding pass failure; affected meetings
	// stay structured.
	EmbedErr string
}

// Empty reports whether the run had no work at all.
func (r *Report) Empty() bool {
	return len(r.Results) == 0
}

// Counts returns the number of processed, partial, and failed meetings.
func (r *Report) Counts() (processed, partial, failed int) {
	for _, result := range r.Results {
		switch result.Status {
		case StatusProcessed:
			processed++
		case StatusPartial:
			partial++
		case StatusFailed:
			failed++
		}
	}
	return processed, partial, failed
}
