package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// RecordDelivery stores the outcome of one send within a fan-out batch
func (s *Store) RecordDelivery(ctx context.Context, d *Delivery) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO deliveries (batch_id, giveaway_code, kind, tg_id, status, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, d.BatchID, d.GiveawayCode, d.Kind, d.TelegramID, d.Status, d.Reason, toMillis(d.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert delivery: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	d.ID = id
	return nil
}

// ListDeliveries returns all delivery records of a batch in insertion order
func (s *Store) ListDeliveries(ctx context.Context, batchID string) ([]Delivery, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, batch_id, giveaway_code, kind, tg_id, status, reason, created_at
		FROM deliveries
		WHERE batch_id = ?
		ORDER BY id ASC
	`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list deliveries: %w", err)
	}
	defer rows.Close()

	var deliveries []Delivery
	for rows.Next() {
		var (
			d         Delivery
			createdAt int64
		)
		if err := rows.Scan(&d.ID, &d.BatchID, &d.GiveawayCode, &d.Kind, &d.TelegramID, &d.Status, &d.Reason, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan delivery: %w", err)
		}
		d.CreatedAt = fromMillis(createdAt)
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}

// LatestBatchID returns the id of the most recent batch for a giveaway, or "" if none
func (s *Store) LatestBatchID(ctx context.Context, code string) (string, error) {
	var batchID string
	err := s.db.QueryRowContext(ctx, `
		SELECT batch_id
		FROM deliveries
		WHERE giveaway_code = ?
		ORDER BY id DESC
		LIMIT 1
	`, code).Scan(&batchID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get latest batch: %w", err)
	}
	return batchID, nil
}
