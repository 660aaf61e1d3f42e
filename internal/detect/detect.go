// Package detect compares the remote portal and video platform against the
// local archive and reports which meetings have something new. Absence is a
// signal here: a meeting whose remote sources show nothing new never appears
// in the change set, so an empty result means a selective run has no work.
// An unreachable source counts as silent too; it never hides what the other
// source has.
package detect

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"minutebook/internal/logging"
	"minutebook/internal/portal"
	"minutebook/internal/store"
	"minutebook/internal/video"
)

// Reason identifies why a meeting appears in the change set.
type Reason string

const (
	// ReasonNewDocument means the portal lists a document the archive has not
	// ingested.
	ReasonNewDocument Reason = "new_document"
	// ReasonNewVideo means the platform has a recording the archive has not
	// ingested.
	ReasonNewVideo Reason = "new_video"
)

// Change is one detected difference between remote sources and the archive.
type Change struct {
	MeetingID    int64
	PortalID     string
	Reason       Reason
	DocumentType string
	VideoHandle  string
}

// DocumentSource is the portal surface the detector needs.
type DocumentSource interface {
	MeetingDocuments(ctx context.Context, portalID string) (portal.DocumentListing, error)
}

// VideoSource is the platform surface the detector needs.
type VideoSource interface {
	Lookup(ctx context.Context, portalID string, date time.Time) (video.LookupResult, error)
}

// MeetingLister is the store surface the detector needs.
type MeetingLister interface {
	ListMeetings(ctx context.Context, states ...store.ProcessingState) ([]*store.Meeting, error)
}

// Detector diffs remote sources against the local archive.
type Detector struct {
	store  MeetingLister
	docs   DocumentSource
	videos VideoSource
	logger *slog.Logger
}

// NewDetector constructs a detector over the given sources.
func NewDetector(st MeetingLister, docs DocumentSource, videos VideoSource, logger *slog.Logger) *Detector {
	return &Detector{
		store:  st,
		docs:   docs,
		videos: videos,
		logger: logging.NewComponentLogger(logger, "detect"),
	}
}

// Detect runs the document pass and the video pass over every archived
// meeting. The passes have no data dependency and are issued concurrently.
// A source that cannot be reached degrades to silence for that meeting, so
// an unreachable portal never blocks video detection or vice versa. The
// result is deterministic for a given remote state: document changes in
// meeting order, then video changes in meeting order.
func (d *Detector) Detect(ctx context.Context) ([]Change, error) {
	meetings, err := d.store.ListMeetings(ctx)
	if err != nil {
		return nil, err
	}

	var (
		wg                       sync.WaitGroup
		docChanges, videoChanges []Change
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		docChanges = d.documentPass(ctx, meetings)
	}()
	go func() {
		defer wg.Done()
		videoChanges = d.videoPass(ctx, meetings)
	}()
	wg.Wait()

	changes := append(docChanges, videoChanges...)
	d.logger.InfoContext(ctx, "detection complete",
		logging.Int("meetings", len(meetings)),
		logging.Int("changes", len(changes)))
	return changes, nil
}

func (d *Detector) documentPass(ctx context.Context, meetings []*store.Meeting) []Change {
	var changes []Change
	for _, meeting := range meetings {
		listing, err := d.docs.MeetingDocuments(ctx, meeting.PortalID)
		if err != nil {
			d.logger.WarnContext(ctx, "document listing unreachable, treating source as silent",
				logging.String(logging.FieldPortalID, meeting.PortalID),
				logging.Error(err))
			continue
		}
		if listing.Kind != portal.ListingOK {
			d.logger.DebugContext(ctx, "document listing unusable",
				logging.String(logging.FieldPortalID, meeting.PortalID),
				logging.String("listing", string(listing.Kind)))
			continue
		}
		for _, docType := range []string{portal.DocumentAgenda, portal.DocumentMinutes} {
			if !listing.Has(docType) || d.archived(meeting, docType) {
				continue
			}
			changes = append(changes, Change{
				MeetingID:    meeting.ID,
				PortalID:     meeting.PortalID,
				Reason:       ReasonNewDocument,
				DocumentType: docType,
			})
		}
	}
	return changes
}

func (d *Detector) videoPass(ctx context.Context, meetings []*store.Meeting) []Change {
	var changes []Change
	for _, meeting := range meetings {
		if meeting.HasVideo {
			continue
		}
		result, err := d.videos.Lookup(ctx, meeting.PortalID, meeting.Date)
		if err != nil {
			d.logger.WarnContext(ctx, "video lookup unreachable, treating source as silent",
				logging.String(logging.FieldPortalID, meeting.PortalID),
				logging.Error(err))
			continue
		}
		if result.Kind != video.LookupFound {
			continue
		}
		changes = append(changes, Change{
			MeetingID:   meeting.ID,
			PortalID:    meeting.PortalID,
			Reason:      ReasonNewVideo,
			VideoHandle: result.Handle,
		})
	}
	return changes
}

func (d *Detector) archived(meeting *store.Meeting, docType string) bool {
	switch docType {
	case portal.DocumentAgenda:
		return meeting.HasAgenda
	case portal.DocumentMinutes:
		return meeting.HasMinutes
	default:
		return false
	}
}
