package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"minutebook/internal/align"
	"minutebook/internal/detect"
	"minutebook/internal/logging"
	"minutebook/internal/matter"
	"minutebook/internal/portal"
	"minutebook/internal/services"
	"minutebook/internal/store"
	"minutebook/internal/video"
)

// PortalClient is the portal surface the pipeline needs.
type PortalClient interface {
	ListMeetings(ctx context.Context, since time.Time) ([]portal.MeetingRecord, error)
	MeetingDocuments(ctx context.Context, portalID string) (portal.DocumentListing, error)
	DownloadDocument(ctx context.Context, doc portal.Document, destination string) error
}

// VideoClient is the platform surface the pipeline needs.
type VideoClient interface {
	Lookup(ctx context.Context, portalID string, date time.Time) (video.LookupResult, error)
}

// TextExtractor converts an archived document into plain text.
type TextExtractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// SegmentTranscriber turns a hosted recording into transcript segments.
type SegmentTranscriber interface {
	Transcribe(ctx context.Context, mediaURL string) ([]align.Segment, error)
}

// Embedder generates vectors for the post-run embedding pass.
type Embedder interface {
	GenerateBatch(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// ChangeDetector produces the change set driving a selective run.
type ChangeDetector interface {
	Detect(ctx context.Context) ([]detect.Change, error)
}

// Outcome accumulates per-meeting artifacts as phases run. Phases communicate
// forward through it; nothing in it outlives the meeting's processing.
type Outcome struct {
	NeedsDocuments bool
	NeedsVideo     bool
	SkipTranscribe bool

	AgendaPath  string
	MinutesPath string
	MediaURL    string
	Segments    []align.Segment
	Structured  bool
	SummaryText string
}

func newOutcome(changes []detect.Change, skipTranscribe bool) *Outcome {
	outcome := &Outcome{NeedsDocuments: true, NeedsVideo: true, SkipTranscribe: skipTranscribe}
	if len(changes) == 0 {
		return outcome
	}
	// A selective run touches only the sources detection flagged.
	outcome.NeedsDocuments = false
	outcome.NeedsVideo = false
	for _, change := range changes {
		switch change.Reason {
		case detect.ReasonNewDocument:
			outcome.NeedsDocuments = true
		case detect.ReasonNewVideo:
			outcome.NeedsVideo = true
		}
	}
	return outcome
}

// Phase is one step of per-meeting processing.
type Phase interface {
	Name() string
	Execute(ctx context.Context, meeting *store.Meeting, outcome *Outcome) error
}

func documentPath(archiveDir, portalID, docType string) string {
	return filepath.Join(archiveDir, portalID, docType+".pdf")
}

func transcriptPath(archiveDir, portalID string) string {
	return filepath.Join(archiveDir, portalID, "transcript.json")
}

type downloadPhase struct {
	portal     PortalClient
	video      VideoClient
	archiveDir string
	logger     *slog.Logger
}

func (p *downloadPhase) Name() string { return "download" }

func (p *downloadPhase) Execute(ctx context.Context, meeting *store.Meeting, outcome *Outcome) error {
	if outcome.NeedsDocuments {
		if err := p.fetchDocuments(ctx, meeting, outcome); err != nil {
			return err
		}
	}
	if outcome.NeedsVideo && p.needsLookup(meeting, outcome) {
		result, err := p.video.Lookup(ctx, meeting.PortalID, meeting.Date)
		if err != nil {
			return err
		}
		if result.Kind == video.LookupFound {
			meeting.HasVideo = true
			meeting.VideoHandle = result.Handle
			outcome.MediaURL = result.MediaURL
		}
	}
	if (meeting.HasAgenda || meeting.HasMinutes || meeting.HasVideo) && !meeting.State.AtLeast(store.StateDownloaded) {
		meeting.State = store.StateDownloaded
		meeting.ErrorMessage = ""
	}
	return nil
}

func (p *downloadPhase) fetchDocuments(ctx context.Context, meeting *store.Meeting, outcome *Outcome) error {
	listing, err := p.portal.MeetingDocuments(ctx, meeting.PortalID)
	if err != nil {
		return err
	}
	if listing.Kind != portal.ListingOK {
		p.logger.DebugContext(ctx, "no usable document listing",
			logging.String(logging.FieldPortalID, meeting.PortalID),
			logging.String("listing", string(listing.Kind)))
		return nil
	}
	for _, doc := range listing.Documents {
		if doc.Type != portal.DocumentAgenda && doc.Type != portal.DocumentMinutes {
			continue
		}
		destination := documentPath(p.archiveDir, meeting.PortalID, doc.Type)
		if err := p.portal.DownloadDocument(ctx, doc, destination); err != nil {
			return err
		}
		switch doc.Type {
		case portal.DocumentAgenda:
			meeting.HasAgenda = true
			outcome.AgendaPath = destination
		case portal.DocumentMinutes:
			meeting.HasMinutes = true
			outcome.MinutesPath = destination
		}
	}
	return nil
}

func (p *downloadPhase) needsLookup(meeting *store.Meeting, outcome *Outcome) bool {
	if !meeting.HasVideo {
		return true
	}
	// A known recording still needs a fresh media URL when its transcript is
	// outstanding.
	return !meeting.HasTranscript && !outcome.SkipTranscribe
}

type transcribePhase struct {
	transcriber SegmentTranscriber
	video       VideoClient
	archiveDir  string
	logger      *slog.Logger
}

func (p *transcribePhase) Name() string { return "transcribe" }

func (p *transcribePhase) Execute(ctx context.Context, meeting *store.Meeting, outcome *Outcome) error {
	if outcome.SkipTranscribe || !meeting.HasVideo {
		return nil
	}

	path := transcriptPath(p.archiveDir, meeting.PortalID)
	if meeting.HasTranscript {
		segments, err := readTranscript(path)
		if err == nil {
			outcome.Segments = segments
			return nil
		}
		p.logger.WarnContext(ctx, "archived transcript unreadable, re-transcribing",
			logging.String(logging.FieldPortalID, meeting.PortalID),
			logging.Error(err))
	}

	mediaURL := outcome.MediaURL
	if mediaURL == "" {
		result, err := p.video.Lookup(ctx, meeting.PortalID, meeting.Date)
		if err != nil {
			return err
		}
		if result.Kind != video.LookupFound || result.MediaURL == "" {
			return nil
		}
		mediaURL = result.MediaURL
	}

	segments, err := p.transcriber.Transcribe(ctx, mediaURL)
	if err != nil {
		return err
	}
	if err := writeTranscript(path, segments); err != nil {
		return err
	}
	outcome.Segments = segments
	meeting.HasTranscript = true
	if !meeting.State.AtLeast(store.StateTranscribed) {
		meeting.State = store.StateTranscribed
	}
	return nil
}

func readTranscript(path string) ([]align.Segment, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var segments []align.Segment
	if err := json.Unmarshal(raw, &segments); err != nil {
		return nil, err
	}
	return segments, nil
}

func writeTranscript(path string, segments []align.Segment) error {
	encoded, err := json.MarshalIndent(segments, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrValidation, "transcribe", "archive transcript", "encode", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return services.Wrap(services.ErrUnavailable, "transcribe", "archive transcript", "create directory", err)
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return services.Wrap(services.ErrUnavailable, "transcribe", "archive transcript", path, err)
	}
	return nil
}

type structurePhase struct {
	extractor  TextExtractor
	store      *store.Store
	matters    *matter.Index
	archiveDir string
	logger     *slog.Logger
}

func (p *structurePhase) Name() string { return "structure" }

func (p *structurePhase) Execute(ctx context.Context, meeting *store.Meeting, outcome *Outcome) error {
	agendaPath := outcome.AgendaPath
	if agendaPath == "" && meeting.HasAgenda {
		agendaPath = documentPath(p.archiveDir, meeting.PortalID, portal.DocumentAgenda)
	}
	minutesPath := outcome.MinutesPath
	if minutesPath == "" && meeting.HasMinutes {
		minutesPath = documentPath(p.archiveDir, meeting.PortalID, portal.DocumentMinutes)
	}

	var known []align.KnownItem
	agendaText := ""
	if agendaPath != "" {
		text, err := p.extractor.ExtractText(ctx, agendaPath)
		if err != nil {
			return err
		}
		agendaText = text
		known = agendaItems(text)
	}

	// Minutes are authoritative when present; the agenda is the fallback.
	docText := agendaText
	if minutesPath != "" {
		text, err := p.extractor.ExtractText(ctx, minutesPath)
		if err != nil {
			return err
		}
		docText = text
	}
	if strings.TrimSpace(docText) == "" && len(outcome.Segments) == 0 {
		// Nothing structurable yet; the meeting stays where it is.
		return nil
	}

	associations := align.Align(docText, outcome.Segments, known)
	items := p.buildItems(ctx, meeting, docText, associations, known)
	if len(items) == 0 {
		return services.Wrap(services.ErrValidation, "structure", "build items", "document yielded no agenda items", nil)
	}

	if err := p.store.ReplaceStructure(ctx, meeting.ID, items); err != nil {
		return services.Wrap(services.ErrUnavailable, "structure", "replace structure", "", err)
	}

	meeting.Summary = summarize(items)
	outcome.SummaryText = embeddingText(meeting, items)
	outcome.Structured = true
	if !meeting.State.AtLeast(store.StateStructured) {
		meeting.State = store.StateStructured
	}
	return nil
}

// agendaItems derives the known agenda from the agenda document itself.
func agendaItems(agendaText string) []align.KnownItem {
	var items []align.KnownItem
	for _, assoc := range align.Align(agendaText, nil, nil) {
		if assoc.Kind != align.KindItem {
			continue
		}
		items = append(items, align.KnownItem{
			Ordinal: assoc.Ordinal,
			Title:   spanTitle(agendaText, assoc),
		})
	}
	return items
}

func (p *structurePhase) buildItems(ctx context.Context, meeting *store.Meeting, docText string, associations []align.Association, known []align.KnownItem) []store.ItemInput {
	titles := make(map[string]string, len(known))
	for _, item := range known {
		titles[item.Ordinal] = item.Title
	}

	var items []store.ItemInput
	for _, assoc := range associations {
		switch assoc.Kind {
		case align.KindItem, align.KindUnanchored:
			title := titles[assoc.Ordinal]
			if title == "" || assoc.Kind == align.KindUnanchored {
				title = spanTitle(docText, assoc)
			}
			if title == "" {
				title = "Proceedings"
			}
			item := store.ItemInput{
				Position: len(items) + 1,
				Ordinal:  assoc.Ordinal,
				Title:    title,
			}
			if assoc.Kind == align.KindItem {
				p.resolveMatter(ctx, meeting, &item, spanText(docText, assoc))
			}
			items = append(items, item)
		case align.KindMotion:
			if len(items) == 0 {
				items = append(items, store.ItemInput{Position: 1, Title: "Proceedings"})
			}
			last := &items[len(items)-1]
			last.Motions = append(last.Motions, buildMotion(spanText(docText, assoc)))
		}
	}
	return items
}

func (p *structurePhase) resolveMatter(ctx context.Context, meeting *store.Meeting, item *store.ItemInput, body string) {
	ref := matter.Reference{Text: item.Title + "\n" + body}
	if ref.IsEmpty() {
		return
	}
	seen := meeting.Date
	if seen.IsZero() {
		seen = time.Now().UTC()
	}

	result := p.matters.Match(ref)
	switch result.Outcome {
	case matter.Matched:
		id := result.Matter.ID
		item.MatterID = &id
		if err := p.store.TouchMatterSeen(ctx, id, seen); err != nil {
			p.logger.WarnContext(ctx, "failed to widen matter seen range",
				logging.Int64("matter_id", id), logging.Error(err))
		}
	case matter.NoMatch:
		created, err := p.store.InsertMatter(ctx, &store.Matter{
			Identifiers: ref.IdentifierKeys(),
			Addresses:   ref.AddressKeys(),
			FirstSeen:   seen,
			LastSeen:    seen,
		})
		if err != nil {
			p.logger.WarnContext(ctx, "failed to create matter",
				logging.String("title", item.Title), logging.Error(err))
			return
		}
		p.matters.Add(created)
		item.MatterID = &created.ID
	case matter.Ambiguous:
		// A wrong link is worse than none; the item stays unlinked.
		p.logger.InfoContext(ctx, "matter reference ambiguous, leaving item unlinked",
			logging.Int64(logging.FieldMeetingID, meeting.ID),
			logging.String("title", item.Title))
	}
}

var (
	motionResultPattern = regexp.MustCompile(`(?i)\b(carried|defeated|withdrawn|tabled)\b`)
	motionMoverPattern  = regexp.MustCompile(`(?i)moved by\s+((?:Councillor|Mayor|Chair)?\s*[A-Z][A-Za-z'-]+(?: [A-Z][A-Za-z'-]+)?)`)
)

func buildMotion(body string) store.MotionInput {
	motion := store.MotionInput{Text: snippet(body, 500)}
	if match := motionResultPattern.FindString(body); match != "" {
		motion.Result = strings.ToLower(match)
	}
	if match := motionMoverPattern.FindStringSubmatch(body); match != nil {
		motion.Mover = strings.TrimSpace(match[1])
	}
	return motion
}

func spanText(docText string, assoc align.Association) string {
	if assoc.Span.Start < 0 || assoc.Span.End > len(docText) || assoc.Span.Start >= assoc.Span.End {
		return ""
	}
	return docText[assoc.Span.Start:assoc.Span.End]
}

var itemTitlePrefix = regexp.MustCompile(`(?i)^\s*(?:item\s+)?\d+(?:\.\d+)*[.):]?\s*`)

func spanTitle(docText string, assoc align.Association) string {
	text := spanText(docText, assoc)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(itemTitlePrefix.ReplaceAllString(line, ""))
		if line != "" {
			return snippet(line, 200)
		}
	}
	return ""
}

func snippet(text string, limit int) string {
	text = strings.TrimSpace(text)
	if len(text) <= limit {
		return text
	}
	// Back the cut off to a rune boundary so a multibyte character is never
	// split in stored text.
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	cut := text[:limit]
	if idx := strings.LastIndexByte(cut, ' '); idx > limit/2 {
		cut = cut[:idx]
	}
	return cut + "…"
}

func summarize(items []store.ItemInput) string {
	motions := 0
	titles := make([]string, 0, 3)
	for _, item := range items {
		motions += len(item.Motions)
		if len(titles) < 3 {
			titles = append(titles, item.Title)
		}
	}
	summary := fmt.Sprintf("%d agenda items, %d motions", len(items), motions)
	if len(titles) > 0 {
		summary += ": " + strings.Join(titles, "; ")
	}
	return snippet(summary, 400)
}

func embeddingText(meeting *store.Meeting, items []store.ItemInput) string {
	var b strings.Builder
	b.WriteString(meeting.Body)
	if !meeting.Date.IsZero() {
		b.WriteString(" ")
		b.WriteString(meeting.Date.Format("2006-01-02"))
	}
	for _, item := range items {
		b.WriteString("\n")
		b.WriteString(item.Title)
		for _, motion := range item.Motions {
			b.WriteString("\n")
			b.WriteString(motion.Text)
		}
	}
	return b.String()
}
