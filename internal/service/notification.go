package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"giveawaybot/internal/logger"
	"giveawaybot/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
	"gopkg.in/telebot.v3"
)

// NotifierOptions configures fan-out pacing and message content
type NotifierOptions struct {
	OrganizerID int64
	// Per-place prize labels; places without a label use the giveaway's default label
	PrizeLabels []string
	// Pause between the two results messages sent to one participant
	ResultsDelay time.Duration
	// Minimum spacing between broadcast sends; zero disables throttling
	BroadcastInterval time.Duration
}

// BatchResult summarizes one fan-out batch. Per-recipient outcomes are stored as deliveries.
type BatchResult struct {
	BatchID string
	Kind    storage.DeliveryKind
	Total   int
	Sent    int
	Failed  int
}

// Notifier fans out results and organizer broadcasts to participants
type Notifier struct {
	bot     Messenger
	store   *storage.Store
	metrics *Metrics
	opts    NotifierOptions
	limiter *rate.Limiter
	now     func() time.Time
}

// NewNotifier creates a notifier sending through bot and recording deliveries in store
func NewNotifier(bot Messenger, store *storage.Store, metrics *Metrics, opts NotifierOptions) *Notifier {
	limit := rate.Inf
	if opts.BroadcastInterval > 0 {
		limit = rate.Every(opts.BroadcastInterval)
	}
	return &Notifier{
		bot:     bot,
		store:   store,
		metrics: metrics,
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
		now:     time.Now,
	}
}

// NotifyResults sends every eligible participant the "summarizing" message followed,
// after a pause, by their personal result. Failures are recorded and skipped.
func (n *Notifier) NotifyResults(ctx context.Context, g *storage.Giveaway, eligible []int64, winners []storage.Winner) (*BatchResult, error) {
	batch := n.newBatch(storage.DeliveryKindResults, len(eligible))

	places := make(map[int64]int, len(winners))
	for _, w := range winners {
		places[w.TelegramID] = w.Place
	}

	logger.Info().
		Str("batch_id", batch.BatchID).
		Str("code", g.Code).
		Int("recipients", len(eligible)).
		Int("winners", len(winners)).
		Msg("results fan-out started")

	for _, uid := range eligible {
		if err := ctx.Err(); err != nil {
			return batch, err
		}

		var text string
		if place, ok := places[uid]; ok {
			text = WinText(g, uid, place, n.prizeLabel(g, place))
		} else {
			text = NoWinText(g, uid, len(winners))
		}

		err := n.sendPair(ctx, uid, ResultsIntroText, text)
		n.record(ctx, batch, g.Code, uid, err)
	}

	logger.Info().
		Str("batch_id", batch.BatchID).
		Int("sent", batch.Sent).
		Int("failed", batch.Failed).
		Msg("results fan-out finished")
	return batch, nil
}

// Broadcast sends an organizer message to every distinct participant, throttled
func (n *Notifier) Broadcast(ctx context.Context, code, text string) (*BatchResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyBroadcast
	}

	ids, err := n.store.ListParticipantIDs(ctx, code)
	if err != nil {
		return nil, err
	}

	batch := n.newBatch(storage.DeliveryKindBroadcast, len(ids))
	for _, uid := range ids {
		if err := n.limiter.Wait(ctx); err != nil {
			return batch, err
		}
		msg := BroadcastText(n.usernameLabel(uid), uid, text)
		_, err := n.bot.Send(&telebot.User{ID: uid}, msg, telebot.NoPreview)
		n.record(ctx, batch, code, uid, err)
	}

	logger.Info().
		Str("batch_id", batch.BatchID).
		Int("sent", batch.Sent).
		Int("total", batch.Total).
		Msg("broadcast finished")
	return batch, nil
}

// NotifyOrganizer sends a service message to the organizer, logging failures
func (n *Notifier) NotifyOrganizer(text string) {
	if n.opts.OrganizerID == 0 {
		return
	}
	if _, err := n.bot.Send(&telebot.User{ID: n.opts.OrganizerID}, text, telebot.NoPreview); err != nil {
		logger.Error(n.opts.OrganizerID, "organizer_notification_failed", err)
	}
}

func (n *Notifier) sendPair(ctx context.Context, uid int64, first, second string) error {
	if _, err := n.bot.Send(&telebot.User{ID: uid}, first); err != nil {
		return err
	}
	if n.opts.ResultsDelay > 0 {
		timer := time.NewTimer(n.opts.ResultsDelay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	_, err := n.bot.Send(&telebot.User{ID: uid}, second, telebot.NoPreview)
	return err
}

// usernameLabel looks up the participant's username; lookup failures fall back to a generic label
func (n *Notifier) usernameLabel(uid int64) string {
	chat, err := n.bot.ChatByID(uid)
	if err != nil || chat == nil || chat.Username == "" {
		return "participant"
	}
	return chat.Username
}

func (n *Notifier) prizeLabel(g *storage.Giveaway, place int) string {
	if place >= 1 && place <= len(n.opts.PrizeLabels) && n.opts.PrizeLabels[place-1] != "" {
		return n.opts.PrizeLabels[place-1]
	}
	return g.PrizeLabel
}

func (n *Notifier) newBatch(kind storage.DeliveryKind, total int) *BatchResult {
	return &BatchResult{
		BatchID: uuid.NewString(),
		Kind:    kind,
		Total:   total,
	}
}

func (n *Notifier) record(ctx context.Context, batch *BatchResult, code string, uid int64, sendErr error) {
	d := &storage.Delivery{
		BatchID:      batch.BatchID,
		GiveawayCode: code,
		Kind:         batch.Kind,
		TelegramID:   uid,
		Status:       storage.DeliveryStatusSent,
		CreatedAt:    n.now(),
	}
	if sendErr != nil {
		d.Status = storage.DeliveryStatusFailed
		d.Reason = sendErr.Error()
		batch.Failed++
		logger.Debug(uid, "delivery_failed", fmt.Sprintf("batch_id=%s kind=%s error=%v", batch.BatchID, batch.Kind, sendErr))
	} else {
		batch.Sent++
	}

	if n.metrics != nil {
		n.metrics.Deliveries.WithLabelValues(string(d.Kind), string(d.Status)).Inc()
	}

	// Audit rows are best effort; the fan-out continues on storage errors
	if err := n.store.RecordDelivery(context.WithoutCancel(ctx), d); err != nil {
		logger.Error(uid, "delivery_record_failed", err)
	}
}
