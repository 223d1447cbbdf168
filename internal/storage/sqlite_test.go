package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCode = "632"

func setupTestDB(t *testing.T) *Store {
	t.Helper()
	// Use in-memory database for tests
	s, err := Open(":memory:")
	require.NoError(t, err, "Failed to initialize test database")
	t.Cleanup(func() { s.Close() })

	err = s.EnsureGiveaway(context.Background(), GiveawaySeed{
		Code:          testCode,
		OrganizerLink: "https://t.me/organizer",
		PrizeCount:    3,
		PrizeLabel:    "100 USD",
		CreatedAt:     time.Date(2024, 12, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return s
}

func takeFirst(eligible []int64, places int) ([]Winner, error) {
	var winners []Winner
	for i := 0; i < places && i < len(eligible); i++ {
		winners = append(winners, Winner{TelegramID: eligible[i], Place: i + 1})
	}
	return winners, nil
}

func TestEnsureGiveawayCreatesOpenRow(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	g, err := s.GetGiveaway(ctx, testCode)
	require.NoError(t, err)
	require.NotNil(t, g)

	assert.Equal(t, testCode, g.Code)
	assert.Equal(t, GiveawayStatusOpen, g.Status)
	assert.Equal(t, 3, g.PrizeCount)
	assert.Equal(t, "100 USD", g.PrizeLabel)
	assert.Equal(t, time.Date(2024, 12, 1, 10, 0, 0, 0, time.UTC), g.CreatedAt)
	assert.Nil(t, g.StartAt)
	assert.Nil(t, g.EndAt)
	assert.Nil(t, g.ResultsAt)
}

func TestEnsureGiveawayRefreshesConfigWhileOpen(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	err := s.EnsureGiveaway(ctx, GiveawaySeed{
		Code:          testCode,
		OrganizerLink: "https://t.me/other",
		PrizeCount:    5,
		PrizeLabel:    "sticker pack",
		CreatedAt:     time.Now(),
	})
	require.NoError(t, err)

	g, err := s.GetGiveaway(ctx, testCode)
	require.NoError(t, err)
	assert.Equal(t, "https://t.me/other", g.OrganizerLink)
	assert.Equal(t, 5, g.PrizeCount)
	// created_at is kept from the first insert
	assert.Equal(t, time.Date(2024, 12, 1, 10, 0, 0, 0, time.UTC), g.CreatedAt)
}

func TestGetGiveawayNotFound(t *testing.T) {
	s := setupTestDB(t)

	g, err := s.GetGiveaway(context.Background(), "missing")
	require.NoError(t, err, "GetGiveaway should not fail for a missing code")
	assert.Nil(t, g)
}

func TestSetTimes(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	start := time.Date(2024, 12, 30, 12, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SetStartAt(ctx, testCode, start))
	require.NoError(t, s.SetEndAt(ctx, testCode, end))

	g, err := s.GetGiveaway(ctx, testCode)
	require.NoError(t, err)
	require.NotNil(t, g.StartAt)
	require.NotNil(t, g.EndAt)
	assert.True(t, g.StartAt.Equal(start))
	assert.True(t, g.EndAt.Equal(end))
}

func TestSetTimesRejectedAfterFinish(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	_, err := s.FinalizeGiveaway(ctx, testCode, time.Now(), takeFirst)
	require.NoError(t, err)

	err = s.SetEndAt(ctx, testCode, time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, ErrNotOpen)
	err = s.SetStartAt(ctx, "missing", time.Now())
	assert.ErrorIs(t, err, ErrNotOpen)
}

func TestAddParticipantIsIdempotent(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	joined := time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC)

	created, err := s.AddParticipant(ctx, testCode, 12345, joined)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.AddParticipant(ctx, testCode, 12345, joined.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, created, "second insert for the same user must be ignored")

	count, err := s.CountParticipants(ctx, testCode)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	p, err := s.GetParticipant(ctx, testCode, 12345)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.True(t, p.JoinedAt.Equal(joined), "joined_at must keep the first registration time")
}

func TestAddParticipantConcurrent(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AddParticipant(ctx, testCode, 777, time.Now())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	count, err := s.CountParticipants(ctx, testCode)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAddParticipantRejectedWhenFinished(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	_, err := s.FinalizeGiveaway(ctx, testCode, time.Now(), takeFirst)
	require.NoError(t, err)

	created, err := s.AddParticipant(ctx, testCode, 1, time.Now())
	require.NoError(t, err)
	assert.False(t, created)

	created, err = s.AddParticipant(ctx, "missing", 1, time.Now())
	require.NoError(t, err)
	assert.False(t, created)
}

func TestFinalizeDrawsOnlyFromEarlierJoins(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	t1 := time.Date(2024, 12, 31, 21, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	t3 := t2.Add(time.Hour)

	for id, joined := range map[int64]time.Time{30: t1, 10: t2, 20: t3} {
		_, err := s.AddParticipant(ctx, testCode, id, joined)
		require.NoError(t, err)
	}

	all, err := s.ListParticipantIDs(ctx, testCode)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 20, 30}, all)

	var drawnFrom []int64
	fin, err := s.FinalizeGiveaway(ctx, testCode, t2, func(eligible []int64, places int) ([]Winner, error) {
		drawnFrom = eligible
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 30}, drawnFrom)
	assert.Equal(t, []int64{10, 30}, fin.Eligible)
}

func TestFinalizeGiveaway(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	end := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := s.AddParticipant(ctx, testCode, 1, end.Add(-time.Hour))
	require.NoError(t, err)
	_, err = s.AddParticipant(ctx, testCode, 2, end.Add(-time.Minute))
	require.NoError(t, err)
	_, err = s.AddParticipant(ctx, testCode, 3, end.Add(time.Second))
	require.NoError(t, err)

	fin, err := s.FinalizeGiveaway(ctx, testCode, end, takeFirst)
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2}, fin.Eligible)
	require.Len(t, fin.Winners, 2)
	assert.Equal(t, testCode, fin.Winners[0].GiveawayCode)
	assert.True(t, fin.Giveaway.IsFinished())
	require.NotNil(t, fin.Giveaway.ResultsAt)
	assert.True(t, fin.Giveaway.ResultsAt.Equal(end))

	winners, err := s.ListWinners(ctx, testCode)
	require.NoError(t, err)
	assert.Equal(t, fin.Winners, winners)
}

func TestFinalizeGiveawayOnlyOnce(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.FinalizeGiveaway(ctx, testCode, time.Now(), takeFirst)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case assert.ErrorIs(t, err, ErrNotOpen):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, 4, conflicts)
}

func TestDeliveries(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	batchID, err := s.LatestBatchID(ctx, testCode)
	require.NoError(t, err)
	assert.Empty(t, batchID)

	now := time.Date(2025, 1, 1, 0, 0, 5, 0, time.UTC)
	records := []*Delivery{
		{BatchID: "b1", GiveawayCode: testCode, Kind: DeliveryKindResults, TelegramID: 1, Status: DeliveryStatusSent, CreatedAt: now},
		{BatchID: "b1", GiveawayCode: testCode, Kind: DeliveryKindResults, TelegramID: 2, Status: DeliveryStatusFailed, Reason: "blocked", CreatedAt: now},
		{BatchID: "b2", GiveawayCode: testCode, Kind: DeliveryKindBroadcast, TelegramID: 1, Status: DeliveryStatusSent, CreatedAt: now},
	}
	for _, d := range records {
		require.NoError(t, s.RecordDelivery(ctx, d))
		assert.NotZero(t, d.ID)
	}

	list, err := s.ListDeliveries(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, DeliveryStatusFailed, list[1].Status)
	assert.Equal(t, "blocked", list[1].Reason)
	assert.True(t, list[0].CreatedAt.Equal(now))

	batchID, err = s.LatestBatchID(ctx, testCode)
	require.NoError(t, err)
	assert.Equal(t, "b2", batchID)
}
