package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"giveawaybot/internal/logger"
	"giveawaybot/internal/service"
	"giveawaybot/internal/timeparse"

	"github.com/skip2/go-qrcode"
	"gopkg.in/telebot.v3"
)

// Deps are the collaborators of the bot handlers
type Deps struct {
	Service       *service.GiveawayService
	Subscriptions *service.SubscriptionChecker
	Pending       service.PendingActions
	Parser        *timeparse.Parser
	OrganizerID   int64
}

// Handlers implements the bot commands and callbacks
type Handlers struct {
	svc         *service.GiveawayService
	subs        *service.SubscriptionChecker
	pending     service.PendingActions
	tp          *timeparse.Parser
	organizerID int64
	kb          *keyboards
	botUsername string
}

// NewHandlers creates the handlers
func NewHandlers(d Deps) *Handlers {
	return &Handlers{
		svc:         d.Service,
		subs:        d.Subscriptions,
		pending:     d.Pending,
		tp:          d.Parser,
		organizerID: d.OrganizerID,
		kb:          newKeyboards(d.Subscriptions.ChannelURL()),
	}
}

type route struct {
	endpoint interface{}
	handler  telebot.HandlerFunc
}

func (h *Handlers) routes() []route {
	// silent drops non-organizer updates; deny answers them
	silent := h.organizerOnly("")
	deny := func(text string) telebot.MiddlewareFunc { return h.organizerOnly(text) }

	return []route{
		{"/start", h.OnStart},
		{&h.kb.checkSub, h.OnCheckSubscription},
		{"/admin", deny(adminOnlyText)(h.OnAdmin)},
		{"/end", deny(endOrganizerOnly)(h.OnEnd)},
		{"/broadcast", silent(h.OnBroadcast)},
		{"/set_start", silent(h.OnSetStart)},
		{"/set_end", silent(h.OnSetEnd)},
		{"/show_times", silent(h.OnShowTimes)},
		{&h.kb.adminBroadcast, silent(h.OnAdminBroadcast)},
		{&h.kb.adminShowTimes, silent(h.OnAdminShowTimes)},
		{&h.kb.adminQR, silent(h.OnAdminQR)},
		{telebot.OnText, silent(h.OnText)},
	}
}

func (h *Handlers) organizerOnly(denyText string) telebot.MiddlewareFunc {
	return func(next telebot.HandlerFunc) telebot.HandlerFunc {
		return func(c telebot.Context) error {
			if c.Sender() != nil && c.Sender().ID == h.organizerID {
				return next(c)
			}
			if c.Callback() != nil {
				return c.Respond()
			}
			if denyText != "" {
				return c.Send(denyText)
			}
			return nil
		}
	}
}

// OnStart shows the giveaway state and, while it is active, the subscription prompt
func (h *Handlers) OnStart(c telebot.Context) error {
	userID := c.Sender().ID
	logger.Debug(userID, "command_start", fmt.Sprintf("username=%s first_name=%s", c.Sender().Username, c.Sender().FirstName))

	view, err := h.svc.View(context.Background(), userID)
	if err != nil {
		return h.sendLookupError(c, userID, err)
	}

	g := view.Giveaway
	switch {
	case view.Status == service.StatusFinished:
		return c.Send(finishedText(g, h.tp), telebot.NoPreview)
	case view.Status == service.StatusPending:
		return c.Send(pendingText(g, h.tp), telebot.NoPreview)
	case view.Participant != nil:
		return c.Send(participantText(g, view.Status, userID, h.tp), telebot.NoPreview)
	}

	logger.Debug(userID, "subscribe_prompt_sent", "")
	return c.Send(subscribePromptText, h.kb.subscribe)
}

// OnCheckSubscription verifies the channel membership and registers the participant
func (h *Handlers) OnCheckSubscription(c telebot.Context) error {
	ctx := context.Background()
	userID := c.Sender().ID

	g, status, err := h.svc.Status(ctx)
	if err != nil {
		logger.Error(userID, "check_sub_lookup_failed", err)
		return c.Respond(&telebot.CallbackResponse{Text: notFoundText, ShowAlert: true})
	}
	if status == service.StatusFinished {
		h.editOrSend(c, finishedText(g, h.tp))
		return c.Respond()
	}

	subscribed, err := h.subs.IsSubscribed(userID)
	if err != nil {
		logger.Debug(userID, "subscription_check_failed", err.Error())
	}
	if !subscribed {
		return c.Respond(&telebot.CallbackResponse{Text: subscribeFirstText, ShowAlert: true})
	}

	res, err := h.svc.Join(ctx, userID)
	switch {
	case errors.Is(err, service.ErrGiveawayFinished):
		if g, err = h.svc.Giveaway(ctx); err == nil {
			h.editOrSend(c, finishedText(g, h.tp))
		}
		return c.Respond()
	case errors.Is(err, service.ErrNotStarted):
		return c.Respond(&telebot.CallbackResponse{Text: notStartedText, ShowAlert: true})
	case err != nil:
		logger.Error(userID, "join_failed", err)
		return c.Respond(&telebot.CallbackResponse{Text: internalErrorText, ShowAlert: true})
	}

	logger.Debug(userID, "join_confirmed", fmt.Sprintf("created=%t", res.Created))
	status = service.CalcStatus(res.Giveaway, h.svc.Now())
	h.editOrSend(c, participantText(res.Giveaway, status, userID, h.tp))
	return c.Respond(&telebot.CallbackResponse{Text: joinConfirmedText})
}

// OnAdmin shows the organizer menu
func (h *Handlers) OnAdmin(c telebot.Context) error {
	logger.Debug(c.Sender().ID, "command_admin", "")
	return c.Send(adminMenuText, h.kb.admin)
}

// OnBroadcast sends /broadcast <text> right away; without text it waits for the next message
func (h *Handlers) OnBroadcast(c telebot.Context) error {
	userID := c.Sender().ID
	text := strings.TrimSpace(c.Message().Payload)
	if text == "" {
		return h.armBroadcast(c, userID)
	}
	logger.Debug(userID, "command_broadcast", fmt.Sprintf("length=%d", len(text)))
	return h.runBroadcast(c, userID, text)
}

// OnAdminBroadcast arms the broadcast capture from the admin menu
func (h *Handlers) OnAdminBroadcast(c telebot.Context) error {
	if err := h.armBroadcast(c, c.Sender().ID); err != nil {
		return err
	}
	return c.Respond(&telebot.CallbackResponse{Text: broadcastArmedText})
}

// OnText consumes a pending broadcast armed by the same organizer
func (h *Handlers) OnText(c telebot.Context) error {
	userID := c.Sender().ID
	text := c.Message().Text
	if strings.HasPrefix(text, "/") {
		return nil
	}

	action, ok, err := h.pending.Take(context.Background(), userID)
	if err != nil {
		logger.Error(userID, "pending_take_failed", err)
		return nil
	}
	if !ok {
		return nil
	}

	switch action {
	case service.PendingBroadcast:
		logger.Debug(userID, "broadcast_captured", fmt.Sprintf("length=%d", len(text)))
		return h.runBroadcast(c, userID, text)
	}
	return nil
}

func (h *Handlers) armBroadcast(c telebot.Context, userID int64) error {
	if err := h.pending.Arm(context.Background(), userID, service.PendingBroadcast); err != nil {
		logger.Error(userID, "pending_arm_failed", err)
		return c.Send(internalErrorText)
	}
	logger.Debug(userID, "broadcast_armed", "")
	return c.Send(broadcastPrompt)
}

func (h *Handlers) runBroadcast(c telebot.Context, userID int64, text string) error {
	if strings.TrimSpace(text) == "" {
		return c.Send(emptyBroadcastText)
	}
	if err := c.Send(broadcastSending); err != nil {
		return err
	}

	batch, err := h.svc.Broadcast(context.Background(), text)
	if errors.Is(err, service.ErrEmptyBroadcast) {
		return c.Send(emptyBroadcastText)
	}
	if err != nil {
		logger.Error(userID, "broadcast_failed", err)
		if batch == nil {
			return c.Send(internalErrorText)
		}
	}

	logger.Debug(userID, "broadcast_done", fmt.Sprintf("batch_id=%s sent=%d total=%d", batch.BatchID, batch.Sent, batch.Total))
	return c.Send(broadcastDoneText(batch))
}

// OnSetStart handles /set_start <datetime>
func (h *Handlers) OnSetStart(c telebot.Context) error {
	return h.setTime(c, "start")
}

// OnSetEnd handles /set_end <datetime>
func (h *Handlers) OnSetEnd(c telebot.Context) error {
	return h.setTime(c, "end")
}

func (h *Handlers) setTime(c telebot.Context, which string) error {
	userID := c.Sender().ID
	input := strings.TrimSpace(c.Message().Payload)
	if input == "" {
		return c.Send(fmt.Sprintf("Specify the %[1]s time: /set_%[1]s YYYY-MM-DD HH:MM\nor: /set_%[1]s DD.MM.YYYY HH:MM", which))
	}

	at, err := h.tp.Parse(input, h.svc.Now())
	if err != nil {
		logger.Debug(userID, "set_time_parse_failed", fmt.Sprintf("which=%s input=%q", which, input))
		return c.Send(badDateText)
	}

	ctx := context.Background()
	set := h.svc.SetStart
	if which == "end" {
		set = h.svc.SetEnd
	}
	g, err := set(ctx, at)
	switch {
	case errors.Is(err, service.ErrAlreadyFinished):
		return c.Send(alreadyFinishedText)
	case errors.Is(err, service.ErrInvalidWindow):
		return c.Send(invalidWindowText)
	case err != nil:
		return h.sendLookupError(c, userID, err)
	}

	logger.Debug(userID, "set_time", fmt.Sprintf("which=%s at=%s", which, at.Format("2006-01-02T15:04:05Z07:00")))
	if which == "end" {
		return c.Send("✅ End set: " + h.tp.Format(g.EndAt))
	}
	return c.Send("✅ Start set: " + h.tp.Format(g.StartAt))
}

// OnShowTimes handles /show_times
func (h *Handlers) OnShowTimes(c telebot.Context) error {
	g, err := h.svc.Giveaway(context.Background())
	if err != nil {
		return h.sendLookupError(c, c.Sender().ID, err)
	}
	return c.Send(timesText(g, h.tp))
}

// OnAdminShowTimes is the admin menu variant of /show_times
func (h *Handlers) OnAdminShowTimes(c telebot.Context) error {
	if err := h.OnShowTimes(c); err != nil {
		return err
	}
	return c.Respond()
}

// OnAdminQR sends a QR code of the bot's join link
func (h *Handlers) OnAdminQR(c telebot.Context) error {
	link := h.joinLink()
	if link == "" {
		return c.Respond(&telebot.CallbackResponse{Text: internalErrorText, ShowAlert: true})
	}

	png, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		logger.Error(c.Sender().ID, "qr_encode_failed", err)
		return c.Respond(&telebot.CallbackResponse{Text: internalErrorText, ShowAlert: true})
	}

	photo := &telebot.Photo{
		File:    telebot.FromReader(bytes.NewReader(png)),
		Caption: link,
	}
	if err := c.Send(photo); err != nil {
		return err
	}
	return c.Respond()
}

// OnEnd finishes the giveaway now and reports the outcome to the organizer
func (h *Handlers) OnEnd(c telebot.Context) error {
	ctx := context.Background()
	userID := c.Sender().ID
	logger.Debug(userID, "command_end", "")

	g, err := h.svc.Giveaway(ctx)
	if err != nil {
		return h.sendLookupError(c, userID, err)
	}
	if g.IsFinished() {
		return c.Send(alreadyFinishedText)
	}
	if err := c.Send(finishingText); err != nil {
		return err
	}

	result, err := h.svc.Finalize(ctx, service.TriggerManual)
	switch {
	case errors.Is(err, service.ErrAlreadyFinished):
		return c.Send(alreadyFinishedText)
	case err != nil && result == nil:
		return h.sendLookupError(c, userID, err)
	case err != nil:
		// Finished, but the fan-out stopped early; the report shows how far it got
		logger.Error(userID, "end_fanout_interrupted", err)
	}

	return c.Send(service.FinalizeReportText(result, h.tp.Format(result.Giveaway.ResultsAt)))
}

func (h *Handlers) joinLink() string {
	if h.botUsername == "" {
		return ""
	}
	return fmt.Sprintf("https://t.me/%s?start=%s", h.botUsername, h.svc.Code())
}

func (h *Handlers) editOrSend(c telebot.Context, text string) {
	if err := c.Edit(text, telebot.NoPreview); err != nil {
		if err := c.Send(text, telebot.NoPreview); err != nil {
			logger.Error(c.Sender().ID, "send_failed", err)
		}
	}
}

func (h *Handlers) sendLookupError(c telebot.Context, userID int64, err error) error {
	if errors.Is(err, service.ErrGiveawayNotFound) {
		return c.Send(notFoundText)
	}
	logger.Error(userID, "giveaway_lookup_failed", err)
	return c.Send(internalErrorText)
}
