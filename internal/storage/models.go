package storage

import (
	"time"
)

// GiveawayStatus is the stored lifecycle state of a giveaway
type GiveawayStatus string

const (
	GiveawayStatusOpen     GiveawayStatus = "open"
	GiveawayStatusFinished GiveawayStatus = "finished"
)

// Giveaway represents the single giveaway configured for a deployment
type Giveaway struct {
	ID            int64          `json:"id" db:"id"`
	Code          string         `json:"code" db:"code"`
	OrganizerLink string         `json:"organizer_link" db:"organizer_link"`
	PrizeCount    int            `json:"prize_count" db:"prize_count"`
	PrizeLabel    string         `json:"prize_label" db:"prize_label"`
	Status        GiveawayStatus `json:"status" db:"status"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	StartAt       *time.Time     `json:"start_at,omitempty" db:"start_at"`
	EndAt         *time.Time     `json:"end_at,omitempty" db:"end_at"`
	ResultsAt     *time.Time     `json:"results_at,omitempty" db:"results_at"`
}

// IsFinished reports whether finalize has already run for the giveaway
func (g *Giveaway) IsFinished() bool {
	return g.Status == GiveawayStatusFinished
}

// Participant is a user registered for a giveaway
type Participant struct {
	ID           int64     `json:"id" db:"id"`
	TelegramID   int64     `json:"telegram_id" db:"tg_id"`
	GiveawayCode string    `json:"giveaway_code" db:"giveaway_code"`
	JoinedAt     time.Time `json:"joined_at" db:"joined_at"`
}

// Winner is a participant drawn for a prize place (1-based)
type Winner struct {
	GiveawayCode string `json:"giveaway_code" db:"giveaway_code"`
	TelegramID   int64  `json:"telegram_id" db:"tg_id"`
	Place        int    `json:"place" db:"place"`
}

// DeliveryKind distinguishes the fan-out that produced a delivery record
type DeliveryKind string

const (
	DeliveryKindResults   DeliveryKind = "results"
	DeliveryKindBroadcast DeliveryKind = "broadcast"
)

// DeliveryStatus is the outcome of a single outbound send
type DeliveryStatus string

const (
	DeliveryStatusSent   DeliveryStatus = "sent"
	DeliveryStatusFailed DeliveryStatus = "failed"
)

// Delivery records what happened to one recipient of a fan-out batch
type Delivery struct {
	ID           int64          `json:"id" db:"id"`
	BatchID      string         `json:"batch_id" db:"batch_id"`
	GiveawayCode string         `json:"giveaway_code" db:"giveaway_code"`
	Kind         DeliveryKind   `json:"kind" db:"kind"`
	TelegramID   int64          `json:"telegram_id" db:"tg_id"`
	Status       DeliveryStatus `json:"status" db:"status"`
	Reason       string         `json:"reason,omitempty" db:"reason"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
}
