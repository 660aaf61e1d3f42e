package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// InsertMatter records a new matter. Identifier and address lists must already
// be normalized by the matcher.
func (s *Store) InsertMatter(ctx context.Context, matter *Matter) (*Matter, error) {
	if matter == nil {
		return nil, errors.New("matter is nil")
	}
	if len(matter.Identifiers) == 0 && len(matter.Addresses) == 0 {
		return nil, errors.New("matter requires at least one identifier or address")
	}

	identifiersJSON, err := marshalJSON(matter.Identifiers)
	if err != nil {
		return nil, fmt.Errorf("marshal identifiers: %w", err)
	}
	addressesJSON, err := marshalJSON(matter.Addresses)
	if err != nil {
		return nil, fmt.Errorf("marshal addresses: %w", err)
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	status := matter.Status
	if status == "" {
		status = MatterOpen
	}
	firstSeen := matter.FirstSeen
	if firstSeen.IsZero() {
		firstSeen = now
	}
	lastSeen := matter.LastSeen
	if lastSeen.IsZero() {
		lastSeen = firstSeen
	}

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO matters (identifiers_json, addresses_json, category, status, first_seen, last_seen, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		identifiersJSON,
		addressesJSON,
		nullableString(matter.Category),
		status,
		firstSeen.UTC().Format(time.RFC3339Nano),
		lastSeen.UTC().Format(time.RFC3339Nano),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert matter: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("matter insert id: %w", err)
	}
	return s.GetMatter(ctx, id)
}

// GetMatter fetches a matter by identifier.
func (s *Store) GetMatter(ctx context.Context, id int64) (*Matter, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+matterColumns+` FROM matters WHERE id = ?`, id)
	matter, err := scanMatter(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get matter: %w", err)
	}
	return matter, nil
}

// ListMatters returns all matters ordered by identifier.
func (s *Store) ListMatters(ctx context.Context) ([]*Matter, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+matterColumns+` FROM matters ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list matters: %w", err)
	}
	defer rows.Close()

	var matters []*Matter
	for rows.Next() {
		matter, err := scanMatter(rows)
		if err != nil {
			return nil, err
		}
		matters = append(matters, matter)
	}
	return matters, rows.Err()
}

// TouchMatterSeen widens a matter's first/last-seen window to include the
// given observation date. Bounds only ever widen; identifiers are untouched.
func (s *Store) TouchMatterSeen(ctx context.Context, id int64, seen time.Time) error {
	matter, err := s.GetMatter(ctx, id)
	if err != nil {
		return err
	}
	if matter == nil {
		return errors.New("matter not found")
	}

	seen = seen.UTC()
	changed := false
	if seen.Before(matter.FirstSeen) {
		matter.FirstSeen = seen
		changed = true
	}
	if seen.After(matter.LastSeen) {
		matter.LastSeen = seen
		changed = true
	}
	if !changed {
		return nil
	}

	_, err = s.db.ExecContext(
		ctx,
		`UPDATE matters SET first_seen = ?, last_seen = ?, updated_at = ? WHERE id = ?`,
		matter.FirstSeen.Format(time.RFC3339Nano),
		matter.LastSeen.Format(time.RFC3339Nano),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("touch matter seen: %w", err)
	}
	return nil
}

// SetMatterStatus updates a matter's open/closed status.
func (s *Store) SetMatterStatus(ctx context.Context, id int64, status string) error {
	if status != MatterOpen && status != MatterClosed {
		return fmt.Errorf("unknown matter status %q", status)
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE matters SET status = ?, updated_at = ? WHERE id = ?`,
		status,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("set matter status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("matter status rows affected: %w", err)
	}
	if affected == 0 {
		return errors.New("matter not found")
	}
	return nil
}
