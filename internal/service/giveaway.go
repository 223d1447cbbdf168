package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"giveawaybot/internal/logger"
	"giveawaybot/internal/storage"
)

// Finalize triggers
const (
	TriggerManual   = "manual"
	TriggerDeadline = "deadline"
)

// JoinResult is returned by a successful join or re-confirmation
type JoinResult struct {
	Giveaway    *storage.Giveaway
	Participant *storage.Participant
	// Created is false when the user had already joined
	Created bool
}

// FinalizeResult describes one completed finalize run
type FinalizeResult struct {
	Trigger  string
	Giveaway *storage.Giveaway
	Eligible []int64
	Winners  []storage.Winner
	Batch    *BatchResult
}

// View is a read-only snapshot of the giveaway for one user
type View struct {
	Giveaway     *storage.Giveaway
	Status       Status
	Participants int
	// Participant is nil when the user has not joined
	Participant *storage.Participant
}

// GiveawayService implements the giveaway lifecycle on top of the store
type GiveawayService struct {
	store    *storage.Store
	notifier *Notifier
	metrics  *Metrics
	code     string
	now      func() time.Time
	draw     storage.DrawFunc
}

// NewGiveawayService creates a service bound to the giveaway with the given code
func NewGiveawayService(store *storage.Store, notifier *Notifier, metrics *Metrics, code string) *GiveawayService {
	return &GiveawayService{
		store:    store,
		notifier: notifier,
		metrics:  metrics,
		code:     code,
		now:      time.Now,
		draw:     DrawWinners,
	}
}

// Code returns the giveaway code the service is bound to
func (s *GiveawayService) Code() string {
	return s.code
}

// Now returns the service clock
func (s *GiveawayService) Now() time.Time {
	return s.now()
}

// Giveaway loads the current giveaway row
func (s *GiveawayService) Giveaway(ctx context.Context) (*storage.Giveaway, error) {
	g, err := s.store.GetGiveaway(ctx, s.code)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrGiveawayNotFound
	}
	return g, nil
}

// Status returns the giveaway with its derived status
func (s *GiveawayService) Status(ctx context.Context) (*storage.Giveaway, Status, error) {
	g, err := s.Giveaway(ctx)
	if err != nil {
		return nil, "", err
	}
	return g, CalcStatus(g, s.now()), nil
}

// View builds the snapshot shown to userID
func (s *GiveawayService) View(ctx context.Context, userID int64) (*View, error) {
	g, status, err := s.Status(ctx)
	if err != nil {
		return nil, err
	}
	count, err := s.store.CountParticipants(ctx, s.code)
	if err != nil {
		return nil, err
	}
	p, err := s.store.GetParticipant(ctx, s.code, userID)
	if err != nil {
		return nil, err
	}
	return &View{
		Giveaway:     g,
		Status:       status,
		Participants: count,
		Participant:  p,
	}, nil
}

// Join registers userID as a participant. The caller is expected to have verified
// the channel subscription. Joining twice is not an error: the existing row is returned.
func (s *GiveawayService) Join(ctx context.Context, userID int64) (*JoinResult, error) {
	g, status, err := s.Status(ctx)
	if err != nil {
		return nil, err
	}
	switch status {
	case StatusFinished:
		return nil, ErrGiveawayFinished
	case StatusPending:
		return nil, ErrNotStarted
	}

	created, err := s.store.AddParticipant(ctx, s.code, userID, s.now())
	if err != nil {
		return nil, err
	}

	p, err := s.store.GetParticipant(ctx, s.code, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		// The conditional insert lost to a concurrent finalize
		return nil, ErrGiveawayFinished
	}

	if created {
		if s.metrics != nil {
			s.metrics.Joins.Inc()
		}
		logger.Debug(userID, "participant_joined", fmt.Sprintf("code=%s", s.code))
	}

	return &JoinResult{
		Giveaway:    g,
		Participant: p,
		Created:     created,
	}, nil
}

// ParticipantCount returns the number of joined users
func (s *GiveawayService) ParticipantCount(ctx context.Context) (int, error) {
	return s.store.CountParticipants(ctx, s.code)
}

// SetStart changes the start time of an open giveaway
func (s *GiveawayService) SetStart(ctx context.Context, startAt time.Time) (*storage.Giveaway, error) {
	g, err := s.Giveaway(ctx)
	if err != nil {
		return nil, err
	}
	if g.IsFinished() {
		return nil, ErrAlreadyFinished
	}
	if g.EndAt != nil && !g.EndAt.After(startAt) {
		return nil, ErrInvalidWindow
	}
	if err := s.store.SetStartAt(ctx, s.code, startAt.UTC()); err != nil {
		return nil, s.mapStoreErr(err)
	}
	return s.Giveaway(ctx)
}

// SetEnd changes the end time of an open giveaway
func (s *GiveawayService) SetEnd(ctx context.Context, endAt time.Time) (*storage.Giveaway, error) {
	g, err := s.Giveaway(ctx)
	if err != nil {
		return nil, err
	}
	if g.IsFinished() {
		return nil, ErrAlreadyFinished
	}
	if g.StartAt != nil && !endAt.After(*g.StartAt) {
		return nil, ErrInvalidWindow
	}
	if err := s.store.SetEndAt(ctx, s.code, endAt.UTC()); err != nil {
		return nil, s.mapStoreErr(err)
	}
	return s.Giveaway(ctx)
}

// SetTimes applies optional start and end values, validating the resulting window as a whole
func (s *GiveawayService) SetTimes(ctx context.Context, startAt, endAt *time.Time) (*storage.Giveaway, error) {
	g, err := s.Giveaway(ctx)
	if err != nil {
		return nil, err
	}
	if g.IsFinished() {
		return nil, ErrAlreadyFinished
	}

	start, end := g.StartAt, g.EndAt
	if startAt != nil {
		start = startAt
	}
	if endAt != nil {
		end = endAt
	}
	if start != nil && end != nil && !end.After(*start) {
		return nil, ErrInvalidWindow
	}

	if startAt != nil {
		if err := s.store.SetStartAt(ctx, s.code, startAt.UTC()); err != nil {
			return nil, s.mapStoreErr(err)
		}
	}
	if endAt != nil {
		if err := s.store.SetEndAt(ctx, s.code, endAt.UTC()); err != nil {
			return nil, s.mapStoreErr(err)
		}
	}
	return s.Giveaway(ctx)
}

// Finalize closes the giveaway, draws winners among the eligible participants and
// sends the results. Only the caller that wins the status transition notifies;
// every other caller gets ErrAlreadyFinished.
func (s *GiveawayService) Finalize(ctx context.Context, trigger string) (*FinalizeResult, error) {
	g, err := s.Giveaway(ctx)
	if err != nil {
		return nil, err
	}
	if g.IsFinished() {
		return nil, ErrAlreadyFinished
	}

	resultsAt := ResultsTimestamp(g, s.now())
	fin, err := s.store.FinalizeGiveaway(ctx, s.code, resultsAt, s.draw)
	if err != nil {
		return nil, s.mapStoreErr(err)
	}

	if s.metrics != nil {
		s.metrics.Finalizations.WithLabelValues(trigger).Inc()
	}
	logger.Info().
		Str("code", s.code).
		Str("trigger", trigger).
		Time("results_at", resultsAt).
		Int("eligible", len(fin.Eligible)).
		Int("winners", len(fin.Winners)).
		Msg("giveaway finalized")

	result := &FinalizeResult{
		Trigger:  trigger,
		Giveaway: fin.Giveaway,
		Eligible: fin.Eligible,
		Winners:  fin.Winners,
	}

	// The draw is committed, so every eligible participant must hear about it even
	// when the caller is cancelled mid fan-out
	batch, err := s.notifier.NotifyResults(context.WithoutCancel(ctx), fin.Giveaway, fin.Eligible, fin.Winners)
	result.Batch = batch
	if err != nil {
		return result, fmt.Errorf("results fan-out interrupted: %w", err)
	}
	return result, nil
}

// FinalizeIfDue finalizes the giveaway when its end time has been reached.
// Returns nil, nil when there is nothing to do.
func (s *GiveawayService) FinalizeIfDue(ctx context.Context) (*FinalizeResult, error) {
	g, err := s.Giveaway(ctx)
	if err != nil {
		return nil, err
	}
	if !IsDue(g, s.now()) {
		return nil, nil
	}

	result, err := s.Finalize(ctx, TriggerDeadline)
	if errors.Is(err, ErrAlreadyFinished) {
		return nil, nil
	}
	return result, err
}

// Broadcast fans text out to every participant
func (s *GiveawayService) Broadcast(ctx context.Context, text string) (*BatchResult, error) {
	return s.notifier.Broadcast(ctx, s.code, text)
}

// Winners returns the drawn winners ordered by place
func (s *GiveawayService) Winners(ctx context.Context) ([]storage.Winner, error) {
	return s.store.ListWinners(ctx, s.code)
}

// Deliveries returns the delivery records of a batch. An empty batchID selects the
// latest batch of the giveaway; the resolved id is returned alongside.
func (s *GiveawayService) Deliveries(ctx context.Context, batchID string) ([]storage.Delivery, string, error) {
	if batchID == "" {
		latest, err := s.store.LatestBatchID(ctx, s.code)
		if err != nil {
			return nil, "", err
		}
		if latest == "" {
			return nil, "", nil
		}
		batchID = latest
	}
	deliveries, err := s.store.ListDeliveries(ctx, batchID)
	if err != nil {
		return nil, "", err
	}
	return deliveries, batchID, nil
}

func (s *GiveawayService) mapStoreErr(err error) error {
	if errors.Is(err, storage.ErrNotOpen) {
		return ErrAlreadyFinished
	}
	return err
}
