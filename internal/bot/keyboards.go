package bot

import (
	"gopkg.in/telebot.v3"
)

// Callback data of the inline buttons
const (
	uniqueCheckSub       = "check_sub"
	uniqueAdminBroadcast = "admin_broadcast"
	uniqueAdminShowTimes = "admin_showtimes"
	uniqueAdminQR        = "admin_qr"
)

type keyboards struct {
	subscribe *telebot.ReplyMarkup
	admin     *telebot.ReplyMarkup

	checkSub       telebot.Btn
	adminBroadcast telebot.Btn
	adminShowTimes telebot.Btn
	adminQR        telebot.Btn
}

func newKeyboards(channelURL string) *keyboards {
	k := &keyboards{
		subscribe: &telebot.ReplyMarkup{},
		admin:     &telebot.ReplyMarkup{},
	}

	k.checkSub = k.subscribe.Data("♻ Check subscription", uniqueCheckSub)
	k.subscribe.Inline(
		k.subscribe.Row(k.subscribe.URL("🔔 Subscribe", channelURL)),
		k.subscribe.Row(k.checkSub),
	)

	k.adminBroadcast = k.admin.Data("📣 Send to everyone", uniqueAdminBroadcast)
	k.adminShowTimes = k.admin.Data("🕒 Show times", uniqueAdminShowTimes)
	k.adminQR = k.admin.Data("🔳 Join QR code", uniqueAdminQR)
	k.admin.Inline(
		k.admin.Row(k.adminBroadcast),
		k.admin.Row(k.adminShowTimes),
		k.admin.Row(k.adminQR),
	)
	return k
}
