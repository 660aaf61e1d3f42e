package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// UpsertMeeting records a meeting observed on the portal. A new portal ID
// inserts a discovered meeting; an existing one is enriched in place
// (lifecycle flags only ever turn on, the summary is kept unless empty).
func (s *Store) UpsertMeeting(ctx context.Context, meeting *Meeting) (*Meeting, error) {
	if meeting == nil {
		return nil, errors.New("meeting is nil")
	}
	if strings.TrimSpace(meeting.PortalID) == "" {
		return nil, errors.New("meeting portal ID is required")
	}

	existing, err := s.GetMeetingByPortalID(ctx, meeting.PortalID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	if existing == nil {
		state := meeting.State
		if state == "" {
			state = StateDiscovered
		}
		res, err := s.db.ExecContext(
			ctx,
			`INSERT INTO meetings (
                portal_id, body, meeting_type, meeting_date,
                has_agenda, has_minutes, has_transcript, has_video,
                summary, video_handle, state, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			meeting.PortalID,
			meeting.Body,
			nullableString(meeting.Type),
			meeting.Date.UTC().Format(time.RFC3339Nano),
			boolToInt(meeting.HasAgenda),
			boolToInt(meeting.HasMinutes),
			boolToInt(meeting.HasTranscript),
			boolToInt(meeting.HasVideo),
			nullableString(meeting.Summary),
			nullableString(meeting.VideoHandle),
			state,
			timestamp,
			timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("insert meeting: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("last insert id: %w", err)
		}
		return s.GetMeeting(ctx, id)
	}

	existing.Body = meeting.Body
	if meeting.Type != "" {
		existing.Type = meeting.Type
	}
	if !meeting.Date.IsZero() {
		existing.Date = meeting.Date
	}
	existing.HasAgenda = existing.HasAgenda || meeting.HasAgenda
	existing.HasMinutes = existing.HasMinutes || meeting.HasMinutes
	existing.HasTranscript = existing.HasTranscript || meeting.HasTranscript
	existing.HasVideo = existing.HasVideo || meeting.HasVideo
	if existing.Summary == "" {
		existing.Summary = meeting.Summary
	}
	if meeting.VideoHandle != "" {
		existing.VideoHandle = meeting.VideoHandle
	}
	if err := s.UpdateMeeting(ctx, existing); err != nil {
		return nil, err
	}
	return s.GetMeeting(ctx, existing.ID)
}

// UpdateMeeting persists changes to an existing meeting.
func (s *Store) UpdateMeeting(ctx context.Context, meeting *Meeting) error {
	if meeting == nil {
		return errors.New("meeting is nil")
	}
	meeting.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE meetings
         SET body = ?, meeting_type = ?, meeting_date = ?,
             has_agenda = ?, has_minutes = ?, has_transcript = ?, has_video = ?,
             summary = ?, video_handle = ?, state = ?, error_message = ?, updated_at = ?
         WHERE id = ?`,
		meeting.Body,
		nullableString(meeting.Type),
		meeting.Date.UTC().Format(time.RFC3339Nano),
		boolToInt(meeting.HasAgenda),
		boolToInt(meeting.HasMinutes),
		boolToInt(meeting.HasTranscript),
		boolToInt(meeting.HasVideo),
		nullableString(meeting.Summary),
		nullableString(meeting.VideoHandle),
		meeting.State,
		nullableString(meeting.ErrorMessage),
		meeting.UpdatedAt.Format(time.RFC3339Nano),
		meeting.ID,
	)
	if err != nil {
		return fmt.Errorf("update meeting: %w", err)
	}
	return nil
}

// GetMeeting fetches a meeting by identifier.
func (s *Store) GetMeeting(ctx context.Context, id int64) (*Meeting, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE id = ?`, id)
	meeting, err := scanMeeting(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get meeting: %w", err)
	}
	return meeting, nil
}

// GetMeetingByPortalID fetches a meeting by its portal identifier.
func (s *Store) GetMeetingByPortalID(ctx context.Context, portalID string) (*Meeting, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE portal_id = ?`, portalID)
	meeting, err := scanMeeting(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get meeting by portal id: %w", err)
	}
	return meeting, nil
}

// ListMeetings returns meetings filtered by state set (or all meetings when no
// state is provided), ordered by meeting date.
func (s *Store) ListMeetings(ctx context.Context, states ...ProcessingState) ([]*Meeting, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + meetingColumns + ` FROM meetings`
	orderClause := ` ORDER BY meeting_date, id`

	if len(states) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(states))
		args := make([]any, len(states))
		for i, state := range states {
			args[i] = state
		}
		query := baseQuery + ` WHERE state IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list meetings: %w", err)
	}
	defer rows.Close()

	var meetings []*Meeting
	for rows.Next() {
		meeting, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		meetings = append(meetings, meeting)
	}
	return meetings, rows.Err()
}

// SaveEmbedding records the embedding vector generated for a meeting,
// replacing any prior generation.
func (s *Store) SaveEmbedding(ctx context.Context, meetingID int64, model string, vector []float32) error {
	vectorJSON, err := marshalJSON(vector)
	if err != nil {
		return fmt.Errorf("marshal embedding vector: %w", err)
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO embeddings (meeting_id, model, vector_json, created_at)
         VALUES (?, ?, ?, ?)
         ON CONFLICT(meeting_id) DO UPDATE SET model = excluded.model,
             vector_json = excluded.vector_json, created_at = excluded.created_at`,
		meetingID,
		nullableString(model),
		vectorJSON,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save embedding: %w", err)
	}
	return nil
}
