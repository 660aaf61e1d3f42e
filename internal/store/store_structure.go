package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ReplaceStructure atomically replaces a meeting's agenda items and motions
// with the provided set. Prior items and their motions are deleted in the same
// transaction, so downstream readers never observe structure from two
// ingestions at once. Re-running with identical inputs yields identical
// content.
func (s *Store) ReplaceStructure(ctx context.Context, meetingID int64, items []ItemInput) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin structure tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Motions cascade from agenda_items.
	if _, err := tx.ExecContext(ctx, `DELETE FROM agenda_items WHERE meeting_id = ?`, meetingID); err != nil {
		return fmt.Errorf("clear agenda items: %w", err)
	}

	for _, item := range items {
		res, err := tx.ExecContext(
			ctx,
			`INSERT INTO agenda_items (meeting_id, position, ordinal, title, category, matter_id)
             VALUES (?, ?, ?, ?, ?, ?)`,
			meetingID,
			item.Position,
			nullableString(item.Ordinal),
			item.Title,
			nullableString(item.Category),
			item.MatterID,
		)
		if err != nil {
			return fmt.Errorf("insert agenda item %d: %w", item.Position, err)
		}
		itemID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("agenda item insert id: %w", err)
		}

		for position, motion := range item.Motions {
			votesJSON := ""
			if len(motion.Votes) > 0 {
				votesJSON, err = marshalJSON(motion.Votes)
				if err != nil {
					return fmt.Errorf("marshal votes: %w", err)
				}
			}
			if _, err := tx.ExecContext(
				ctx,
				`INSERT INTO motions (agenda_item_id, position, text, mover, seconder, result, votes_json)
                 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				itemID,
				position,
				motion.Text,
				nullableString(motion.Mover),
				nullableString(motion.Seconder),
				nullableString(motion.Result),
				nullableString(votesJSON),
			); err != nil {
				return fmt.Errorf("insert motion: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit structure: %w", err)
	}
	return nil
}

// ListAgendaItems returns a meeting's agenda items ordered by position.
func (s *Store) ListAgendaItems(ctx context.Context, meetingID int64) ([]*AgendaItem, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, meeting_id, position, ordinal, title, category, matter_id
         FROM agenda_items WHERE meeting_id = ? ORDER BY position`,
		meetingID,
	)
	if err != nil {
		return nil, fmt.Errorf("list agenda items: %w", err)
	}
	defer rows.Close()

	var items []*AgendaItem
	for rows.Next() {
		var (
			item     AgendaItem
			ordinal  sql.NullString
			category sql.NullString
			matterID sql.NullInt64
		)
		if err := rows.Scan(&item.ID, &item.MeetingID, &item.Position, &ordinal, &item.Title, &category, &matterID); err != nil {
			return nil, err
		}
		item.Ordinal = ordinal.String
		item.Category = category.String
		if matterID.Valid {
			id := matterID.Int64
			item.MatterID = &id
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}

// ListMotions returns an agenda item's motions ordered by position.
func (s *Store) ListMotions(ctx context.Context, agendaItemID int64) ([]*Motion, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, agenda_item_id, position, text, mover, seconder, result, votes_json
         FROM motions WHERE agenda_item_id = ? ORDER BY position`,
		agendaItemID,
	)
	if err != nil {
		return nil, fmt.Errorf("list motions: %w", err)
	}
	defer rows.Close()

	var motions []*Motion
	for rows.Next() {
		var (
			motion   Motion
			mover    sql.NullString
			seconder sql.NullString
			result   sql.NullString
			votes    sql.NullString
		)
		if err := rows.Scan(&motion.ID, &motion.AgendaItemID, &motion.Position, &motion.Text, &mover, &seconder, &result, &votes); err != nil {
			return nil, err
		}
		motion.Mover = mover.String
		motion.Seconder = seconder.String
		motion.Result = result.String
		if votes.Valid && votes.String != "" {
			if err := unmarshalVotes(votes.String, &motion.Votes); err != nil {
				return nil, fmt.Errorf("parse votes: %w", err)
			}
		}
		motions = append(motions, &motion)
	}
	return motions, rows.Err()
}

// LinkItemToMatter associates an agenda item with a matter.
func (s *Store) LinkItemToMatter(ctx context.Context, agendaItemID, matterID int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE agenda_items SET matter_id = ? WHERE id = ?`, matterID, agendaItemID)
	if err != nil {
		return fmt.Errorf("link item to matter: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("link item rows affected: %w", err)
	}
	if affected == 0 {
		return errors.New("agenda item not found")
	}
	return nil
}
