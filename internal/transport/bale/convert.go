package bale

import (
	"github.com/Domenick1991/barberbooking/internal/domain"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ToUpdate maps a raw update onto a domain update. Updates that carry no
// user action, or unknown button data, are reported as not ok.
func ToUpdate(u tgbotapi.Update) (domain.Update, bool) {
	switch {
	case u.CallbackQuery != nil:
		cq := u.CallbackQuery
		if cq.From == nil {
			return domain.Update{}, false
		}
		ev, err := domain.ParseCallback(cq.Data)
		if err != nil {
			return domain.Update{}, false
		}
		chatID := cq.From.ID
		if cq.Message != nil && cq.Message.Chat != nil {
			chatID = cq.Message.Chat.ID
		}
		return domain.Update{UserID: cq.From.ID, ChatID: chatID, Event: ev}, true

	case u.Message != nil:
		m := u.Message
		if m.From == nil || m.Chat == nil {
			return domain.Update{}, false
		}
		if m.SuccessfulPayment != nil {
			return domain.Update{
				UserID: m.From.ID,
				ChatID: m.Chat.ID,
				Event:  domain.PaymentCompleted{TrackingCode: m.SuccessfulPayment.InvoicePayload},
			}, true
		}
		if m.Text == "" {
			return domain.Update{}, false
		}
		return domain.Update{UserID: m.From.ID, ChatID: m.Chat.ID, Event: domain.ParseText(m.Text)}, true
	}
	return domain.Update{}, false
}

// Keyboard builds an inline keyboard. Buttons whose event has no callback
// form are dropped, and so are rows left empty.
func Keyboard(rows [][]domain.Button) *tgbotapi.InlineKeyboardMarkup {
	var out [][]tgbotapi.InlineKeyboardButton
	for _, r := range rows {
		var buttons []tgbotapi.InlineKeyboardButton
		for _, b := range r {
			data := domain.CallbackData(b.Event)
			if data == "" {
				continue
			}
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, data))
		}
		if len(buttons) > 0 {
			out = append(out, buttons)
		}
	}
	if len(out) == 0 {
		return nil
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(out...)
	return &markup
}

func Chattable(msg domain.Outbound) tgbotapi.Chattable {
	if inv := msg.Invoice; inv != nil {
		cfg := tgbotapi.NewInvoice(msg.ChatID, inv.Title, inv.Description, inv.Payload, inv.ProviderToken, "", inv.Currency,
			[]tgbotapi.LabeledPrice{{Label: inv.PriceLabel, Amount: inv.Amount}})
		// the API rejects a null tip list
		cfg.SuggestedTipAmounts = []int{}
		return cfg
	}

	m := tgbotapi.NewMessage(msg.ChatID, msg.Text)
	if kb := Keyboard(msg.Keyboard); kb != nil {
		m.ReplyMarkup = *kb
	}
	return m
}
