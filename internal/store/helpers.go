package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

const meetingColumns = "id, portal_id, body, meeting_type, meeting_date, has_agenda, has_minutes, has_transcript, has_video, summary, video_handle, state, error_message, created_at, updated_at"

func scanMeeting(scanner interface{ Scan(dest ...any) error }) (*Meeting, error) {
	var (
		id            int64
		portalID      string
		body          string
		meetingType   sql.NullString
		meetingDate   sql.NullString
		hasAgenda     sql.NullInt64
		hasMinutes    sql.NullInt64
		hasTranscript sql.NullInt64
		hasVideo      sql.NullInt64
		summary       sql.NullString
		videoHandle   sql.NullString
		stateStr      string
		errorMessage  sql.NullString
		createdRaw    sql.NullString
		updatedRaw    sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&portalID,
		&body,
		&meetingType,
		&meetingDate,
		&hasAgenda,
		&hasMinutes,
		&hasTranscript,
		&hasVideo,
		&summary,
		&videoHandle,
		&stateStr,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	meeting := &Meeting{
		ID:            id,
		PortalID:      portalID,
		Body:          body,
		Type:          meetingType.String,
		HasAgenda:     hasAgenda.Int64 != 0,
		HasMinutes:    hasMinutes.Int64 != 0,
		HasTranscript: hasTranscript.Int64 != 0,
		HasVideo:      hasVideo.Int64 != 0,
		Summary:       summary.String,
		VideoHandle:   videoHandle.String,
		State:         ProcessingState(stateStr),
		ErrorMessage:  errorMessage.String,
	}
	if date, err := parseTimeString(meetingDate.String); err == nil {
		meeting.Date = date
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		meeting.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		meeting.UpdatedAt = updated
	}
	return meeting, nil
}

const matterColumns = "id, identifiers_json, addresses_json, category, status, first_seen, last_seen, created_at, updated_at"

func scanMatter(scanner interface{ Scan(dest ...any) error }) (*Matter, error) {
	var (
		id          int64
		identifiers string
		addresses   string
		category    sql.NullString
		status      string
		firstRaw    sql.NullString
		lastRaw     sql.NullString
		createdRaw  sql.NullString
		updatedRaw  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&identifiers,
		&addresses,
		&category,
		&status,
		&firstRaw,
		&lastRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	matter := &Matter{
		ID:       id,
		Category: category.String,
		Status:   status,
	}
	if err := json.Unmarshal([]byte(identifiers), &matter.Identifiers); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(addresses), &matter.Addresses); err != nil {
		return nil, err
	}
	if first, err := parseTimeString(firstRaw.String); err == nil {
		matter.FirstSeen = first
	}
	if last, err := parseTimeString(lastRaw.String); err == nil {
		matter.LastSeen = last
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		matter.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		matter.UpdatedAt = updated
	}
	return matter, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func unmarshalVotes(raw string, votes *[]Vote) error {
	return json.Unmarshal([]byte(raw), votes)
}

func marshalJSON(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
