package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123456:ABC-DEF")
	t.Setenv("CHANNEL_USERNAME", "@mychannel")
	t.Setenv("ORGANIZER_LINK", "https://t.me/organizer")
	t.Setenv("ORGANIZER_ADMIN_ID", "7738555379")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "632", cfg.Giveaway.Code)
	assert.Equal(t, "mychannel", cfg.Giveaway.ChannelUsername, "leading @ is stripped")
	assert.Equal(t, int64(7738555379), cfg.Giveaway.OrganizerID)
	assert.Equal(t, 3, cfg.Giveaway.PrizeCount)
	assert.Equal(t, "giveaway.db", cfg.Storage.DBPath)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 20*time.Second, cfg.Workers.WatchInterval)
	assert.Equal(t, time.Second, cfg.Workers.ResultsMessageDelay)
	assert.Equal(t, 50*time.Millisecond, cfg.Workers.BroadcastInterval)
	assert.Equal(t, 10*time.Minute, cfg.Workers.PendingActionTTL)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoadPrizeLabels(t *testing.T) {
	setRequired(t)
	t.Setenv("PRIZE_LABELS", "iPhone, 100 USD ,stickers")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"iPhone", "100 USD", "stickers"}, cfg.Giveaway.PrizeLabels)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "token without colon", key: "BOT_TOKEN", value: "abcdef"},
		{name: "token with space", key: "BOT_TOKEN", value: "123:abc def"},
		{name: "non-numeric organizer id", key: "ORGANIZER_ADMIN_ID", value: "admin"},
		{name: "zero prize count", key: "PRIZE_COUNT", value: "0"},
		{name: "unknown timezone", key: "GIVEAWAY_TIMEZONE", value: "Mars/Olympus"},
		{name: "bad duration", key: "WATCH_INTERVAL", value: "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.value)

			cfg, err := Load()
			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}

func TestLoadMissingToken(t *testing.T) {
	setRequired(t)
	t.Setenv("BOT_TOKEN", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLocation(t *testing.T) {
	cfg := &Config{}
	cfg.Giveaway.Timezone = "Europe/Moscow"

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Moscow", loc.String())
}
