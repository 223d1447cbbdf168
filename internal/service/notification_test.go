package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"giveawaybot/internal/storage"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyResultsSendsTwoMessagesEach(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	env := newTestEnv(t, now)
	ctx := context.Background()

	g, err := env.store.GetGiveaway(ctx, testCode)
	require.NoError(t, err)

	winners := []storage.Winner{{GiveawayCode: testCode, TelegramID: 200, Place: 1}}
	batch, err := env.notifier.NotifyResults(ctx, g, []int64{100, 200}, winners)
	require.NoError(t, err)

	assert.Equal(t, 2, batch.Total)
	assert.Equal(t, 2, batch.Sent)
	assert.Equal(t, 0, batch.Failed)
	assert.NotEmpty(t, batch.BatchID)

	winnerMsgs := env.bot.messagesTo(200)
	require.Len(t, winnerMsgs, 2)
	assert.Equal(t, ResultsIntroText, winnerMsgs[0])
	assert.Contains(t, winnerMsgs[1], "You won in giveaway [#632, your ID: 200]")
	assert.Contains(t, winnerMsgs[1], "Prize place: 1 (100 USD)")
	assert.Contains(t, winnerMsgs[1], "https://t.me/organizer")

	otherMsgs := env.bot.messagesTo(100)
	require.Len(t, otherMsgs, 2)
	assert.Equal(t, ResultsIntroText, otherMsgs[0])
	assert.Contains(t, otherMsgs[1], "you were not picked")
}

func TestNotifyResultsUsesPerPlaceLabels(t *testing.T) {
	env := newTestEnv(t, time.Now())
	env.notifier.opts.PrizeLabels = []string{"iPhone", ""}
	ctx := context.Background()

	g, err := env.store.GetGiveaway(ctx, testCode)
	require.NoError(t, err)

	winners := []storage.Winner{
		{TelegramID: 1, Place: 1},
		{TelegramID: 2, Place: 2},
		{TelegramID: 3, Place: 3},
	}
	_, err = env.notifier.NotifyResults(ctx, g, []int64{1, 2, 3}, winners)
	require.NoError(t, err)

	assert.Contains(t, env.bot.messagesTo(1)[1], "Prize place: 1 (iPhone)")
	assert.Contains(t, env.bot.messagesTo(2)[1], "Prize place: 2 (100 USD)")
	assert.Contains(t, env.bot.messagesTo(3)[1], "Prize place: 3 (100 USD)")
}

func TestNotifyResultsRecordsFailures(t *testing.T) {
	env := newTestEnv(t, time.Now())
	env.bot.failFor[300] = errors.New("Forbidden: bot was blocked by the user")
	ctx := context.Background()

	g, err := env.store.GetGiveaway(ctx, testCode)
	require.NoError(t, err)

	batch, err := env.notifier.NotifyResults(ctx, g, []int64{100, 300}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, batch.Sent)
	assert.Equal(t, 1, batch.Failed)

	deliveries, err := env.store.ListDeliveries(ctx, batch.BatchID)
	require.NoError(t, err)
	require.Len(t, deliveries, 2)

	byUser := make(map[int64]storage.Delivery)
	for _, d := range deliveries {
		byUser[d.TelegramID] = d
	}
	assert.Equal(t, storage.DeliveryStatusSent, byUser[100].Status)
	assert.Equal(t, storage.DeliveryStatusFailed, byUser[300].Status)
	assert.Contains(t, byUser[300].Reason, "blocked")
	assert.Equal(t, storage.DeliveryKindResults, byUser[300].Kind)

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Deliveries.WithLabelValues("results", "sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Deliveries.WithLabelValues("results", "failed")))
}

func TestNotifyResultsStopsOnCancel(t *testing.T) {
	env := newTestEnv(t, time.Now())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g, err := env.store.GetGiveaway(context.Background(), testCode)
	require.NoError(t, err)

	_, err = env.notifier.NotifyResults(ctx, g, []int64{1, 2}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, env.bot.messages())
}

func TestBroadcast(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	env := newTestEnv(t, now)
	env.bot.usernames[100] = "alice"
	ctx := context.Background()

	for _, id := range []int64{100, 200} {
		_, err := env.store.AddParticipant(ctx, testCode, id, now)
		require.NoError(t, err)
	}

	batch, err := env.notifier.Broadcast(ctx, testCode, "  Stream starts at 20:00  ")
	require.NoError(t, err)
	assert.Equal(t, 2, batch.Total)
	assert.Equal(t, 2, batch.Sent)
	assert.Equal(t, storage.DeliveryKindBroadcast, batch.Kind)

	assert.Equal(t, []string{"✉️ Message from the organizer for alice [id 100]\n\nStream starts at 20:00"}, env.bot.messagesTo(100))
	assert.Equal(t, []string{"✉️ Message from the organizer for participant [id 200]\n\nStream starts at 20:00"}, env.bot.messagesTo(200))

	latest, err := env.store.LatestBatchID(ctx, testCode)
	require.NoError(t, err)
	assert.Equal(t, batch.BatchID, latest)
}

func TestBroadcastRejectsEmptyText(t *testing.T) {
	env := newTestEnv(t, time.Now())

	_, err := env.notifier.Broadcast(context.Background(), testCode, " \n\t ")
	assert.ErrorIs(t, err, ErrEmptyBroadcast)
	assert.Empty(t, env.bot.messages())
}

func TestBroadcastIsThrottled(t *testing.T) {
	now := time.Now()
	store := setupTestStore(t)
	bot := newFakeMessenger()
	notifier := NewNotifier(bot, store, nil, NotifierOptions{BroadcastInterval: 20 * time.Millisecond})
	ctx := context.Background()

	for _, id := range []int64{1, 2, 3} {
		_, err := store.AddParticipant(ctx, testCode, id, now)
		require.NoError(t, err)
	}

	start := time.Now()
	batch, err := notifier.Broadcast(ctx, testCode, "hello")
	require.NoError(t, err)
	assert.Equal(t, 3, batch.Sent)
	// First send is immediate, the next two wait one interval each
	assert.GreaterOrEqual(t, time.Since(start), 35*time.Millisecond)
}

func TestNotifyOrganizer(t *testing.T) {
	env := newTestEnv(t, time.Now())
	env.notifier.NotifyOrganizer("report")
	assert.Equal(t, []string{"report"}, env.bot.messagesTo(1))

	env.notifier.opts.OrganizerID = 0
	env.notifier.NotifyOrganizer("ignored")
	assert.Len(t, env.bot.messages(), 1)
}

func TestBroadcastTextFormat(t *testing.T) {
	text := BroadcastText("bob", 42, "hi")
	assert.True(t, strings.HasPrefix(text, "✉️ Message from the organizer for bob [id 42]"))
	assert.True(t, strings.HasSuffix(text, "\n\nhi"))
}
