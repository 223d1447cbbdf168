package bot

import (
	"fmt"

	"giveawaybot/internal/service"
	"giveawaybot/internal/storage"
	"giveawaybot/internal/timeparse"
)

const (
	notFoundText        = "Error: giveaway not found."
	internalErrorText   = "Something went wrong. Please try again later."
	notStartedText      = "⏳ The giveaway has not started yet."
	subscribeFirstText  = "Subscribe to the channel first."
	joinConfirmedText   = "Participation confirmed!"
	adminOnlyText       = "❌ This command is only available to the organizer."
	endOrganizerOnly    = "Only the organizer can end the giveaway."
	alreadyFinishedText = "The giveaway is already finished."
	invalidWindowText   = "The start must be before the end."
	badDateText         = "Could not understand the date. Example: 2025-10-05 21:00"
	finishingText       = "🎲 Finishing the giveaway and sending the results…"
	broadcastPrompt     = "✍️ Send the broadcast text as a single message (or use /broadcast <text>)."
	broadcastArmedText  = "Waiting for the text 👍"
	broadcastSending    = "📤 Sending… This may take a while."
	emptyBroadcastText  = "Empty text. Press /admin and choose «📣 Send to everyone» again."

	subscribePromptText = "🛑 To take part in the giveaway you need to subscribe to the organizer's channel.\n\n" +
		"After subscribing press «♻ Check subscription»."

	adminMenuText = "🔧 Admin menu.\n\n" +
		"• Press «📣 Send to everyone», then send the text as a single message and I will deliver it to every participant.\n" +
		"• Or use the command: /broadcast <text>\n" +
		"• Start and end times: «🕒 Show times», /set_start and /set_end.\n" +
		"• «🔳 Join QR code» sends a QR code with the bot link.\n" +
		"• /end finishes the giveaway right away."
)

var statusWords = map[service.Status]string{
	service.StatusPending:  "pending",
	service.StatusActive:   "active",
	service.StatusFinished: "finished",
}

func giveawayBody(g *storage.Giveaway, status service.Status, tp *timeparse.Parser) string {
	return fmt.Sprintf("👑 Giveaway organizer: %s\n"+
		"🏟️ Prize places: %d\n"+
		"🟢 Start: %s\n"+
		"🔚 End: %s\n"+
		"⌚️ Created: %s\n"+
		"⌚️ Results: %s\n\n"+
		"✅ Status: %s",
		g.OrganizerLink,
		g.PrizeCount,
		tp.Format(g.StartAt),
		tp.Format(g.EndAt),
		tp.Format(&g.CreatedAt),
		tp.Format(g.ResultsAt),
		statusWords[status])
}

func participantText(g *storage.Giveaway, status service.Status, userID int64, tp *timeparse.Parser) string {
	if status == service.StatusFinished {
		return finishedText(g, tp)
	}
	return fmt.Sprintf("🎁 You are now a participant of giveaway [#%s, your ID: %d]\n\n", g.Code, userID) +
		giveawayBody(g, status, tp)
}

func finishedText(g *storage.Giveaway, tp *timeparse.Parser) string {
	return fmt.Sprintf("❌ Giveaway [#%s] has ended.\n\n", g.Code) +
		giveawayBody(g, service.StatusFinished, tp)
}

func pendingText(g *storage.Giveaway, tp *timeparse.Parser) string {
	return notStartedText + "\n\n" +
		fmt.Sprintf("🎁 Giveaway [#%s]\n\n", g.Code) +
		giveawayBody(g, service.StatusPending, tp)
}

func timesText(g *storage.Giveaway, tp *timeparse.Parser) string {
	return fmt.Sprintf("🕒 Current times:\n🟢 Start: %s\n🔚 End: %s", tp.Format(g.StartAt), tp.Format(g.EndAt))
}

func broadcastDoneText(b *service.BatchResult) string {
	return fmt.Sprintf("✅ Done. Delivered: %d of %d.", b.Sent, b.Total)
}
