package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from the environment (and an optional .env file).
type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Telegram struct {
		BotToken    string        `env:"BOT_TOKEN,required"`
		PollTimeout time.Duration `env:"TELEGRAM_POLL_TIMEOUT" envDefault:"10s"`
	}

	Giveaway struct {
		Code            string   `env:"GIVEAWAY_CODE" envDefault:"632"`
		ChannelUsername string   `env:"CHANNEL_USERNAME,required"`
		OrganizerLink   string   `env:"ORGANIZER_LINK,required"`
		OrganizerID     int64    `env:"ORGANIZER_ADMIN_ID,required"`
		PrizeCount      int      `env:"PRIZE_COUNT" envDefault:"3"`
		PrizeLabel      string   `env:"PRIZE_LABEL" envDefault:"a prize"`
		PrizeLabels     []string `env:"PRIZE_LABELS" envSeparator:","`
		// Human-readable start/end applied at startup, parsed like /set_start input
		Start    string `env:"GIVEAWAY_START"`
		End      string `env:"GIVEAWAY_END"`
		Timezone string `env:"GIVEAWAY_TIMEZONE" envDefault:"Local"`
	}

	Storage struct {
		DBPath string `env:"DB_PATH" envDefault:"giveaway.db"`
	}

	// Redis is optional; when Addr is empty pending admin actions are kept in memory
	Redis struct {
		Addr     string `env:"REDIS_ADDR"`
		Password string `env:"REDIS_PASSWORD"`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	HTTP struct {
		// Empty address disables the HTTP server
		Addr        string        `env:"HTTP_ADDR" envDefault:":8080"`
		InitDataTTL time.Duration `env:"INIT_DATA_TTL" envDefault:"24h"`
	}

	Workers struct {
		WatchInterval       time.Duration `env:"WATCH_INTERVAL" envDefault:"20s"`
		ResultsMessageDelay time.Duration `env:"RESULTS_MESSAGE_DELAY" envDefault:"1s"`
		BroadcastInterval   time.Duration `env:"BROADCAST_INTERVAL" envDefault:"50ms"`
		PendingActionTTL    time.Duration `env:"PENDING_ACTION_TTL" envDefault:"10m"`
	}
}

// Load reads the .env file if present, then the environment, and validates the result.
func Load() (*Config, error) {
	// A missing .env is fine: in production variables are set directly
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values the struct tags cannot express
func (c *Config) Validate() error {
	token := c.Telegram.BotToken
	if !strings.Contains(token, ":") || strings.ContainsAny(token, " \t\n") {
		return errors.New("invalid BOT_TOKEN: expected <id>:<secret> without spaces")
	}

	c.Giveaway.ChannelUsername = strings.TrimPrefix(strings.TrimSpace(c.Giveaway.ChannelUsername), "@")
	if c.Giveaway.ChannelUsername == "" {
		return errors.New("invalid CHANNEL_USERNAME: empty")
	}
	if strings.TrimSpace(c.Giveaway.Code) == "" {
		return errors.New("invalid GIVEAWAY_CODE: empty")
	}
	if c.Giveaway.OrganizerID <= 0 {
		return fmt.Errorf("invalid ORGANIZER_ADMIN_ID: %d", c.Giveaway.OrganizerID)
	}
	if c.Giveaway.PrizeCount < 1 {
		return fmt.Errorf("invalid PRIZE_COUNT: %d", c.Giveaway.PrizeCount)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid GIVEAWAY_TIMEZONE: %w", err)
	}
	if c.Workers.WatchInterval <= 0 {
		return fmt.Errorf("invalid WATCH_INTERVAL: %s", c.Workers.WatchInterval)
	}
	for i, label := range c.Giveaway.PrizeLabels {
		c.Giveaway.PrizeLabels[i] = strings.TrimSpace(label)
	}
	return nil
}

// Location returns the timezone used to interpret and display naive datetimes
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Giveaway.Timezone)
}
