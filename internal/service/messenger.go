package service

import (
	"gopkg.in/telebot.v3"
)

// Messenger is the subset of *telebot.Bot the services talk to
type Messenger interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
	ChatByID(id int64) (*telebot.Chat, error)
	ChatMemberOf(chat, user telebot.Recipient) (*telebot.ChatMember, error)
}

// channelRecipient addresses a public channel by its @username
type channelRecipient string

func (c channelRecipient) Recipient() string {
	return "@" + string(c)
}

// SubscriptionChecker checks channel membership. Any API failure (bot is not an
// admin of the channel, private channel, network) counts as not subscribed.
type SubscriptionChecker struct {
	bot     Messenger
	channel channelRecipient
	metrics *Metrics
}

// NewSubscriptionChecker creates a checker for the channel username (without @)
func NewSubscriptionChecker(bot Messenger, channelUsername string, metrics *Metrics) *SubscriptionChecker {
	return &SubscriptionChecker{
		bot:     bot,
		channel: channelRecipient(channelUsername),
		metrics: metrics,
	}
}

// ChannelURL returns the public link of the channel
func (c *SubscriptionChecker) ChannelURL() string {
	return "https://t.me/" + string(c.channel)
}

// IsSubscribed reports whether the user is a member, administrator or creator of the channel
func (c *SubscriptionChecker) IsSubscribed(userID int64) (bool, error) {
	member, err := c.bot.ChatMemberOf(c.channel, &telebot.User{ID: userID})
	if err != nil {
		c.observe("error")
		return false, err
	}

	switch member.Role {
	case telebot.Member, telebot.Administrator, telebot.Creator:
		c.observe("subscribed")
		return true, nil
	default:
		c.observe("not_subscribed")
		return false, nil
	}
}

func (c *SubscriptionChecker) observe(result string) {
	if c.metrics != nil {
		c.metrics.SubscriptionChecks.WithLabelValues(result).Inc()
	}
}
