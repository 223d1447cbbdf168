package storage

import (
	"context"
	"fmt"
	"time"
)

// AddParticipant registers a user for an open giveaway. The insert is a single
// conditional write: it is ignored when the user is already registered or the
// giveaway is not open. Returns true when a new row was created.
func (s *Store) AddParticipant(ctx context.Context, code string, telegramID int64, joinedAt time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO participants (tg_id, giveaway_code, joined_at)
		SELECT ?, ?, ?
		WHERE EXISTS (
			SELECT 1 FROM giveaways WHERE code = ? AND status = 'open'
		)
	`, telegramID, code, toMillis(joinedAt), code)
	if err != nil {
		return false, fmt.Errorf("failed to insert participant: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

// GetParticipant retrieves a participant registration. Returns nil, nil when absent.
func (s *Store) GetParticipant(ctx context.Context, code string, telegramID int64) (*Participant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tg_id, giveaway_code, joined_at
		FROM participants
		WHERE giveaway_code = ? AND tg_id = ?
	`, code, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var (
		p        Participant
		joinedAt int64
	)
	if err := rows.Scan(&p.ID, &p.TelegramID, &p.GiveawayCode, &joinedAt); err != nil {
		return nil, fmt.Errorf("failed to scan participant: %w", err)
	}
	p.JoinedAt = fromMillis(joinedAt)
	return &p, nil
}

// CountParticipants returns the number of registered participants
func (s *Store) CountParticipants(ctx context.Context, code string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM participants WHERE giveaway_code = ?
	`, code).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count participants: %w", err)
	}
	return count, nil
}

// ListParticipantIDs returns the distinct Telegram ids of all participants, ascending
func (s *Store) ListParticipantIDs(ctx context.Context, code string) ([]int64, error) {
	return participantIDs(ctx, s.db, code, nil)
}

func participantIDs(ctx context.Context, q querier, code string, upTo *time.Time) ([]int64, error) {
	query := `SELECT DISTINCT tg_id FROM participants WHERE giveaway_code = ?`
	args := []interface{}{code}
	if upTo != nil {
		query += ` AND joined_at <= ?`
		args = append(args, toMillis(*upTo))
	}
	query += ` ORDER BY tg_id ASC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
