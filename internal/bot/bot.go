package bot

import (
	"fmt"
	"time"

	"giveawaybot/internal/logger"

	"gopkg.in/telebot.v3"
)

// commands is the menu registered with Telegram at startup
var commands = []telebot.Command{
	{Text: "start", Description: "Take part in the giveaway"},
	{Text: "admin", Description: "Organizer menu"},
	{Text: "broadcast", Description: "Send a message to all participants"},
	{Text: "set_start", Description: "Set the start time"},
	{Text: "set_end", Description: "Set the end time"},
	{Text: "show_times", Description: "Show start and end times"},
	{Text: "end", Description: "Finish the giveaway now"},
}

// New creates a long-polling bot. Handler errors are logged with the sender id.
func New(token string, pollTimeout time.Duration) (*telebot.Bot, error) {
	b, err := telebot.NewBot(telebot.Settings{
		Token: token,
		Poller: &telebot.LongPoller{
			Timeout: pollTimeout,
		},
		OnError: func(err error, c telebot.Context) {
			var userID int64
			if c != nil && c.Sender() != nil {
				userID = c.Sender().ID
			}
			logger.Error(userID, "handler_failed", err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return b, nil
}

// Register binds the handlers to b and publishes the command menu
func Register(b *telebot.Bot, h *Handlers) {
	if b.Me != nil {
		h.botUsername = b.Me.Username
	}
	for _, r := range h.routes() {
		b.Handle(r.endpoint, r.handler)
	}
	if err := b.SetCommands(commands); err != nil {
		logger.Error(0, "set_commands_failed", err)
	}
}

// Start drops any configured webhook and blocks polling for updates until b.Stop is called
func Start(b *telebot.Bot) {
	if err := b.RemoveWebhook(); err != nil {
		logger.Error(0, "remove_webhook_failed", err)
	}
	logger.Info().Str("bot", b.Me.Username).Msg("bot started")
	b.Start()
}
