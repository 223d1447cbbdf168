package service

import (
	"fmt"

	"giveawaybot/internal/storage"
)

// ResultsIntroText is the first of the two results messages
const ResultsIntroText = "🎲 The bot is summarizing the results..."

// WinText is sent to a drawn winner
func WinText(g *storage.Giveaway, uid int64, place int, prize string) string {
	return fmt.Sprintf("🎁 You won in giveaway [#%s, your ID: %d]\n\n"+
		"🎖️ Prize place: %d (%s)\n\n"+
		"To receive your prize, contact the giveaway organizer: %s",
		g.Code, uid, place, prize, g.OrganizerLink)
}

// NoWinText is sent to eligible participants who were not drawn
func NoWinText(g *storage.Giveaway, uid int64, winners int) string {
	return fmt.Sprintf("📋 Giveaway [#%s, your ID: %d] has ended.\n\n"+
		"%d prize place(s) were drawn among all participants and you were not picked this time.\n"+
		"Thank you for taking part!",
		g.Code, uid, winners)
}

// BroadcastText wraps an organizer message for one recipient
func BroadcastText(username string, uid int64, text string) string {
	return fmt.Sprintf("✉️ Message from the organizer for %s [id %d]\n\n%s", username, uid, text)
}

// FinalizeReportText summarizes a finalize run for the organizer
func FinalizeReportText(r *FinalizeResult, resultsAt string) string {
	return fmt.Sprintf("🏁 Giveaway #%s finished.\n"+
		"Results fixed at: %s\n"+
		"Participants drawn from: %d\n"+
		"Winners: %d\n"+
		"Result messages delivered: %d of %d",
		r.Giveaway.Code, resultsAt, len(r.Eligible), len(r.Winners), r.Batch.Sent, r.Batch.Total)
}
