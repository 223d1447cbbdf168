package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"giveawaybot/internal/storage"

	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"
)

const testCode = "632"

type sentMessage struct {
	To   int64
	Text string
}

// fakeMessenger records sends instead of talking to Telegram
type fakeMessenger struct {
	mu        sync.Mutex
	sent      []sentMessage
	failFor   map[int64]error
	usernames map[int64]string
	roles     map[int64]telebot.MemberStatus
	memberErr error
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{
		failFor:   make(map[int64]error),
		usernames: make(map[int64]string),
		roles:     make(map[int64]telebot.MemberStatus),
	}
}

func (m *fakeMessenger) Send(to telebot.Recipient, what interface{}, _ ...interface{}) (*telebot.Message, error) {
	id, err := strconv.ParseInt(to.Recipient(), 10, 64)
	if err != nil {
		return nil, err
	}
	if err := m.failFor[id]; err != nil {
		return nil, err
	}
	text, _ := what.(string)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{To: id, Text: text})
	return &telebot.Message{Text: text}, nil
}

func (m *fakeMessenger) ChatByID(id int64) (*telebot.Chat, error) {
	name, ok := m.usernames[id]
	if !ok {
		return nil, errors.New("chat not found")
	}
	return &telebot.Chat{ID: id, Username: name}, nil
}

func (m *fakeMessenger) ChatMemberOf(_, user telebot.Recipient) (*telebot.ChatMember, error) {
	if m.memberErr != nil {
		return nil, m.memberErr
	}
	id, _ := strconv.ParseInt(user.Recipient(), 10, 64)
	role, ok := m.roles[id]
	if !ok {
		role = telebot.Left
	}
	return &telebot.ChatMember{Role: role}, nil
}

func (m *fakeMessenger) messages() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sentMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

func (m *fakeMessenger) messagesTo(id int64) []string {
	var texts []string
	for _, msg := range m.messages() {
		if msg.To == id {
			texts = append(texts, msg.Text)
		}
	}
	return texts
}

func setupTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(":memory:")
	require.NoError(t, err, "Failed to initialize test database")
	t.Cleanup(func() { s.Close() })

	err = s.EnsureGiveaway(context.Background(), storage.GiveawaySeed{
		Code:          testCode,
		OrganizerLink: "https://t.me/organizer",
		PrizeCount:    3,
		PrizeLabel:    "100 USD",
		CreatedAt:     time.Date(2024, 12, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return s
}

// testClock is a settable clock safe to read from the watcher goroutine
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

type testEnv struct {
	clock    *testClock
	store    *storage.Store
	bot      *fakeMessenger
	metrics  *Metrics
	notifier *Notifier
	service  *GiveawayService
}

// newTestEnv wires the service over an in-memory store with a fixed clock and no send delays
func newTestEnv(t *testing.T, now time.Time) *testEnv {
	t.Helper()
	store := setupTestStore(t)
	bot := newFakeMessenger()
	metrics := NewMetrics()
	clock := &testClock{now: now}
	notifier := NewNotifier(bot, store, metrics, NotifierOptions{OrganizerID: 1})
	notifier.now = clock.Now
	svc := NewGiveawayService(store, notifier, metrics, testCode)
	svc.now = clock.Now
	return &testEnv{
		clock:    clock,
		store:    store,
		bot:      bot,
		metrics:  metrics,
		notifier: notifier,
		service:  svc,
	}
}

func (e *testEnv) setClock(now time.Time) {
	e.clock.Set(now)
}
