package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"minutebook/internal/config"
	"minutebook/internal/detect"
	"minutebook/internal/logging"
	"minutebook/internal/matter"
	"minutebook/internal/services"
	"minutebook/internal/store"
)

// Deps carries the collaborators a Runner needs.
type Deps struct {
	Config      *config.Config
	Store       *store.Store
	Logger      *slog.Logger
	Portal      PortalClient
	Video       VideoClient
	Extractor   TextExtractor
	Transcriber SegmentTranscriber
	Embedder    Embedder
	Detector    ChangeDetector
	Metrics     *Metrics
}

// Options adjusts a run without touching configuration.
type Options struct {
	SkipTranscribe bool
	SkipEmbed      bool
}

// Runner drives meetings through the download, transcribe, and structure
// phases, then a single bulk embedding pass. One meeting's failure never
// stops its siblings; only fatal conditions abort the run.
type Runner struct {
	cfg         *config.Config
	store       *store.Store
	logger      *slog.Logger
	portal      PortalClient
	video       VideoClient
	extractor   TextExtractor
	transcriber SegmentTranscriber
	embedder    Embedder
	detector    ChangeDetector
	metrics     *Metrics
	opts        Options
}

// NewRunner validates dependencies and constructs a Runner.
func NewRunner(deps Deps, opts Options) (*Runner, error) {
	switch {
	case deps.Config == nil:
		return nil, errors.New("pipeline requires config")
	case deps.Store == nil:
		return nil, errors.New("pipeline requires store")
	case deps.Portal == nil:
		return nil, errors.New("pipeline requires portal client")
	case deps.Video == nil:
		return nil, errors.New("pipeline requires video client")
	case deps.Extractor == nil:
		return nil, errors.New("pipeline requires extractor")
	case deps.Transcriber == nil:
		return nil, errors.New("pipeline requires transcriber")
	}
	if deps.Config.Pipeline.SkipTranscription {
		opts.SkipTranscribe = true
	}
	if deps.Config.Pipeline.SkipEmbeddings {
		opts.SkipEmbed = true
	}
	return &Runner{
		cfg:         deps.Config,
		store:       deps.Store,
		logger:      logging.NewComponentLogger(deps.Logger, "pipeline"),
		portal:      deps.Portal,
		video:       deps.Video,
		extractor:   deps.Extractor,
		transcriber: deps.Transcriber,
		embedder:    deps.Embedder,
		detector:    deps.Detector,
		metrics:     deps.Metrics,
		opts:        opts,
	}, nil
}

// RunFull discovers meetings from the portal and processes every archived
// meeting, or only the named portal IDs when any are given.
func (r *Runner) RunFull(ctx context.Context, portalIDs ...string) (*Report, error) {
	selected := make(map[string]struct{}, len(portalIDs))
	for _, id := range portalIDs {
		selected[id] = struct{}{}
	}

	records, err := r.portal.ListMeetings(ctx, time.Time{})
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		if len(selected) > 0 {
			if _, ok := selected[record.PortalID]; !ok {
				continue
			}
		}
		if _, err := r.store.UpsertMeeting(ctx, &store.Meeting{
			PortalID:   record.PortalID,
			Body:       record.Body,
			Type:       record.Type,
			Date:       record.Date,
			HasAgenda:  false,
			HasMinutes: false,
		}); err != nil {
			return nil, services.Wrap(services.ErrUnavailable, "pipeline", "discovery", record.PortalID, err)
		}
	}

	meetings, err := r.store.ListMeetings(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrUnavailable, "pipeline", "list meetings", "", err)
	}
	if len(selected) > 0 {
		filtered := meetings[:0]
		for _, meeting := range meetings {
			if _, ok := selected[meeting.PortalID]; ok {
				filtered = append(filtered, meeting)
			}
		}
		meetings = filtered
	}
	return r.run(ctx, "full", meetings, nil)
}

// RunSelective detects remote changes and processes only affected meetings,
// scoped to what changed. An empty change set produces no work at all.
func (r *Runner) RunSelective(ctx context.Context) (*Report, error) {
	if r.detector == nil {
		return nil, errors.New("selective run requires a detector")
	}
	changes, err := r.detector.Detect(ctx)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		now := time.Now()
		report := &Report{RunID: uuid.NewString(), Mode: "selective", Started: now, Finished: now}
		r.logger.InfoContext(ctx, "no remote changes, nothing to do",
			logging.String(logging.FieldRunID, report.RunID))
		return report, nil
	}

	scope := make(map[int64][]detect.Change)
	for _, change := range changes {
		scope[change.MeetingID] = append(scope[change.MeetingID], change)
	}
	ids := make([]int64, 0, len(scope))
	for id := range scope {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	meetings := make([]*store.Meeting, 0, len(ids))
	for _, id := range ids {
		meeting, err := r.store.GetMeeting(ctx, id)
		if err != nil {
			return nil, services.Wrap(services.ErrUnavailable, "pipeline", "load meeting", "", err)
		}
		if meeting == nil {
			continue
		}
		meetings = append(meetings, meeting)
	}
	return r.run(ctx, "selective", meetings, scope)
}

type embedCandidate struct {
	meeting *store.Meeting
	text    string
}

func (r *Runner) run(ctx context.Context, mode string, meetings []*store.Meeting, scope map[int64][]detect.Change) (*Report, error) {
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := r.logger.With(logging.String(logging.FieldRunID, runID))
	r.metrics.countRun(mode)

	report := &Report{RunID: runID, Mode: mode, Started: time.Now()}
	if len(meetings) == 0 {
		report.Finished = time.Now()
		return report, nil
	}

	matters, err := r.store.ListMatters(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrUnavailable, "pipeline", "build matter index", "", err)
	}
	index := matter.NewIndex(matters, r.cfg.Matching.MinConfidence, r.cfg.Matching.AmbiguityMargin)
	phases := r.buildPhases(index, logger)

	maxParallel := r.cfg.Pipeline.MaxParallel
	if maxParallel < 1 {
		maxParallel = 1
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		fatalErr   error
		candidates []embedCandidate
	)
	semaphore := make(chan struct{}, maxParallel)
	for _, meeting := range meetings {
		wg.Add(1)
		go func(meeting *store.Meeting) {
			defer wg.Done()
			select {
			case semaphore <- struct{}{}:
				defer func() { <-semaphore }()
			case <-runCtx.Done():
				return
			}

			result, outcome, err := r.processMeeting(runCtx, phases, logger, meeting, scope[meeting.ID])

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if fatalErr == nil {
					fatalErr = err
					cancel()
				}
				return
			}
			report.Results = append(report.Results, result)
			r.metrics.countResult(result.Status)
			if outcome != nil && outcome.Structured {
				candidates = append(candidates, embedCandidate{meeting: meeting, text: outcome.SummaryText})
			}
		}(meeting)
	}
	wg.Wait()

	if fatalErr != nil {
		return nil, fatalErr
	}
	sort.Slice(report.Results, func(i, j int) bool {
		return report.Results[i].MeetingID < report.Results[j].MeetingID
	})

	r.embedPass(ctx, logger, report, candidates)

	report.Finished = time.Now()
	processed, partial, failed := report.Counts()
	logger.InfoContext(ctx, "run complete",
		logging.String("mode", mode),
		logging.Int("processed", processed),
		logging.Int("partial", partial),
		logging.Int("failed", failed),
		logging.Int("embedded", report.Embedded),
		logging.Duration("elapsed", report.Finished.Sub(report.Started)))
	return report, nil
}

func (r *Runner) buildPhases(index *matter.Index, logger *slog.Logger) []Phase {
	archiveDir := r.cfg.Paths.ArchiveDir
	return []Phase{
		&downloadPhase{portal: r.portal, video: r.video, archiveDir: archiveDir, logger: logger},
		&transcribePhase{transcriber: r.transcriber, video: r.video, archiveDir: archiveDir, logger: logger},
		&structurePhase{extractor: r.extractor, store: r.store, matters: index, archiveDir: archiveDir, logger: logger},
	}
}

// processMeeting runs every phase against one meeting. Data-shape failures
// degrade the meeting to partial and let later phases run; hard failures mark
// the meeting failed and stop it; fatal failures propagate and abort the run.
func (r *Runner) processMeeting(ctx context.Context, phases []Phase, logger *slog.Logger, meeting *store.Meeting, changes []detect.Change) (MeetingResult, *Outcome, error) {
	ctx = services.WithMeetingID(ctx, meeting.ID)
	logger = logger.With(
		logging.Int64(logging.FieldMeetingID, meeting.ID),
		logging.String(logging.FieldPortalID, meeting.PortalID))

	outcome := newOutcome(changes, r.opts.SkipTranscribe)
	result := MeetingResult{MeetingID: meeting.ID, PortalID: meeting.PortalID, Status: StatusProcessed}

	for _, phase := range phases {
		phaseCtx := services.WithPhase(ctx, phase.Name())
		started := time.Now()
		err := phase.Execute(phaseCtx, meeting, outcome)
		r.metrics.observePhase(phase.Name(), time.Since(started))

		if err == nil {
			if err := r.store.UpdateMeeting(ctx, meeting); err != nil {
				return result, nil, services.Wrap(services.ErrUnavailable, "pipeline", "persist meeting", "", err)
			}
			continue
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return result, nil, err
		}

		switch services.Classify(err) {
		case services.ClassFatal:
			return result, nil, err
		case services.ClassDataShape:
			result.Status = StatusPartial
			result.Gaps = append(result.Gaps, phase.Name())
			if result.Err == "" {
				result.Err = err.Error()
			}
			logger.WarnContext(ctx, "phase degraded, continuing",
				logging.String(logging.FieldPhase, phase.Name()),
				logging.Error(err))
		default:
			meeting.SetFailed(fmt.Sprintf("%s: %s", phase.Name(), err.Error()))
			if uerr := r.store.UpdateMeeting(ctx, meeting); uerr != nil {
				return result, nil, services.Wrap(services.ErrUnavailable, "pipeline", "persist failure", "", uerr)
			}
			result.Status = StatusFailed
			result.Gaps = append(result.Gaps, phase.Name())
			result.Err = err.Error()
			logger.ErrorContext(ctx, "meeting failed",
				logging.String(logging.FieldPhase, phase.Name()),
				logging.Error(err))
			return result, outcome, nil
		}
	}
	return result, outcome, nil
}

// embedPass generates vectors for every meeting structured in this run, in
// one batch. Failures here never fail the run; affected meetings simply stay
// structured and are picked up next time.
func (r *Runner) embedPass(ctx context.Context, logger *slog.Logger, report *Report, candidates []embedCandidate) {
	if r.opts.SkipEmbed || !r.cfg.Embeddings.Enabled || r.embedder == nil || len(candidates) == 0 {
		return
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].meeting.ID < candidates[j].meeting.ID
	})

	texts := make([]string, len(candidates))
	for i, candidate := range candidates {
		texts[i] = candidate.text
	}
	vectors, err := r.embedder.GenerateBatch(ctx, texts)
	if err != nil {
		report.EmbedErr = err.Error()
		logger.WarnContext(ctx, "embedding pass failed, meetings stay structured", logging.Error(err))
		return
	}

	for i, candidate := range candidates {
		meeting := candidate.meeting
		if err := r.store.SaveEmbedding(ctx, meeting.ID, r.embedder.Model(), vectors[i]); err != nil {
			report.EmbedErr = err.Error()
			logger.WarnContext(ctx, "failed to save embedding",
				logging.Int64(logging.FieldMeetingID, meeting.ID), logging.Error(err))
			continue
		}
		meeting.State = store.StateEmbedded
		if err := r.store.UpdateMeeting(ctx, meeting); err != nil {
			report.EmbedErr = err.Error()
			continue
		}
		report.Embedded++
	}
}
