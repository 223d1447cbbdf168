package service

import (
	"time"

	"giveawaybot/internal/storage"
)

// Status is the lifecycle state shown to users, derived from stored times and status
type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

// CalcStatus derives the giveaway status at now. A stored finished status always wins;
// a time past EndAt reads as finished even before the watcher writes it.
func CalcStatus(g *storage.Giveaway, now time.Time) Status {
	if g.IsFinished() {
		return StatusFinished
	}
	if g.StartAt != nil && now.Before(*g.StartAt) {
		return StatusPending
	}
	if g.EndAt != nil && now.After(*g.EndAt) {
		return StatusFinished
	}
	return StatusActive
}

// ResultsTimestamp picks the results time for a finalize at now: the configured
// end when it has been reached, otherwise now (manual early end or no end set).
func ResultsTimestamp(g *storage.Giveaway, now time.Time) time.Time {
	if g.EndAt != nil && !g.EndAt.After(now) {
		return g.EndAt.UTC()
	}
	return now.UTC()
}

// IsDue reports whether the deadline watcher should finalize the giveaway
func IsDue(g *storage.Giveaway, now time.Time) bool {
	return !g.IsFinished() && g.EndAt != nil && !now.Before(*g.EndAt)
}
