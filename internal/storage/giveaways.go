package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GiveawaySeed holds the config-derived fields of a giveaway row
type GiveawaySeed struct {
	Code          string
	OrganizerLink string
	PrizeCount    int
	PrizeLabel    string
	CreatedAt     time.Time
}

// DrawFunc picks winners out of the eligible participant ids for the given number of places
type DrawFunc func(eligible []int64, places int) ([]Winner, error)

// Finalization is the outcome of a successful finalize transaction
type Finalization struct {
	Giveaway *Giveaway
	Eligible []int64
	Winners  []Winner
}

const giveawayColumns = `id, code, organizer_link, prize_count, prize_label, status, created_at, start_at, end_at, results_at`

// EnsureGiveaway creates the giveaway row if missing. While the giveaway is open
// the config-derived fields are refreshed from the seed.
func (s *Store) EnsureGiveaway(ctx context.Context, seed GiveawaySeed) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO giveaways (code, organizer_link, prize_count, prize_label, status, created_at)
		VALUES (?, ?, ?, ?, 'open', ?)
		ON CONFLICT(code) DO UPDATE SET
			organizer_link = excluded.organizer_link,
			prize_count = excluded.prize_count,
			prize_label = excluded.prize_label
		WHERE giveaways.status = 'open'
	`, seed.Code, seed.OrganizerLink, seed.PrizeCount, seed.PrizeLabel, toMillis(seed.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to ensure giveaway: %w", err)
	}
	return nil
}

// GetGiveaway retrieves a giveaway by code. Returns nil, nil when it does not exist.
func (s *Store) GetGiveaway(ctx context.Context, code string) (*Giveaway, error) {
	return getGiveaway(ctx, s.db, code)
}

func getGiveaway(ctx context.Context, q querier, code string) (*Giveaway, error) {
	var (
		g                         Giveaway
		createdAt                 int64
		startAt, endAt, resultsAt sql.NullInt64
	)
	err := q.QueryRowContext(ctx, `
		SELECT `+giveawayColumns+`
		FROM giveaways
		WHERE code = ?
	`, code).Scan(
		&g.ID,
		&g.Code,
		&g.OrganizerLink,
		&g.PrizeCount,
		&g.PrizeLabel,
		&g.Status,
		&createdAt,
		&startAt,
		&endAt,
		&resultsAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get giveaway by code: %w", err)
	}

	g.CreatedAt = fromMillis(createdAt)
	g.StartAt = timePtr(startAt)
	g.EndAt = timePtr(endAt)
	g.ResultsAt = timePtr(resultsAt)
	return &g, nil
}

// SetStartAt updates the start time of an open giveaway
func (s *Store) SetStartAt(ctx context.Context, code string, startAt time.Time) error {
	return s.updateOpen(ctx, `UPDATE giveaways SET start_at = ? WHERE code = ? AND status = 'open'`, toMillis(startAt), code)
}

// SetEndAt updates the end time of an open giveaway
func (s *Store) SetEndAt(ctx context.Context, code string, endAt time.Time) error {
	return s.updateOpen(ctx, `UPDATE giveaways SET end_at = ? WHERE code = ? AND status = 'open'`, toMillis(endAt), code)
}

func (s *Store) updateOpen(ctx context.Context, query string, args ...interface{}) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update giveaway: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotOpen
	}
	return nil
}

// FinalizeGiveaway moves an open giveaway to finished in a single transaction:
// compare-and-swap on the status, eligible participant selection, draw and winner rows.
// Returns ErrNotOpen if another caller already finalized it.
func (s *Store) FinalizeGiveaway(ctx context.Context, code string, resultsAt time.Time, draw DrawFunc) (*Finalization, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE giveaways
		SET status = 'finished', results_at = ?
		WHERE code = ? AND status = 'open'
	`, toMillis(resultsAt), code)
	if err != nil {
		return nil, fmt.Errorf("failed to finalize giveaway: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return nil, ErrNotOpen
	}

	g, err := getGiveaway(ctx, tx, code)
	if err != nil {
		return nil, err
	}

	eligible, err := participantIDs(ctx, tx, code, &resultsAt)
	if err != nil {
		return nil, err
	}

	winners, err := draw(eligible, g.PrizeCount)
	if err != nil {
		return nil, fmt.Errorf("failed to draw winners: %w", err)
	}

	for i := range winners {
		winners[i].GiveawayCode = code
		_, err := tx.ExecContext(ctx, `
			INSERT INTO winners (giveaway_code, tg_id, place)
			VALUES (?, ?, ?)
		`, code, winners[i].TelegramID, winners[i].Place)
		if err != nil {
			return nil, fmt.Errorf("failed to insert winner: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &Finalization{
		Giveaway: g,
		Eligible: eligible,
		Winners:  winners,
	}, nil
}

// ListWinners returns the drawn winners of a giveaway ordered by place
func (s *Store) ListWinners(ctx context.Context, code string) ([]Winner, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT giveaway_code, tg_id, place
		FROM winners
		WHERE giveaway_code = ?
		ORDER BY place ASC
	`, code)
	if err != nil {
		return nil, fmt.Errorf("failed to list winners: %w", err)
	}
	defer rows.Close()

	var winners []Winner
	for rows.Next() {
		var w Winner
		if err := rows.Scan(&w.GiveawayCode, &w.TelegramID, &w.Place); err != nil {
			return nil, fmt.Errorf("failed to scan winner: %w", err)
		}
		winners = append(winners, w)
	}
	return winners, rows.Err()
}
