// Package keyboard builds Telegram inline keyboards.
package keyboard

import tele "gopkg.in/telebot.v4"

// MaxCallbackData is Telegram's limit for callback_data, in bytes.
const MaxCallbackData = 64

// InlineBtn describes one inline button.
type InlineBtn struct {
	Text   string
	Unique string
	Data   string
}

// CallbackData returns the callback_data telebot sends for the button: "\f<unique>|<data>".
func (b InlineBtn) CallbackData() string {
	if b.Data == "" {
		return "\f" + b.Unique
	}
	return "\f" + b.Unique + "|" + b.Data
}

// InlineButtons places each button on its own row.
func InlineButtons(buttons []InlineBtn) *tele.ReplyMarkup {
	rows := make([][]InlineBtn, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, []InlineBtn{b})
	}
	return InlineButtonsRows(rows...)
}

// InlineButtonsRows builds an inline keyboard from rows of buttons.
func InlineButtonsRows(rows ...[]InlineBtn) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	inline := make([][]tele.InlineButton, len(rows))
	for i, row := range rows {
		r := make([]tele.InlineButton, len(row))
		for j, btn := range row {
			r[j] = *markup.Data(btn.Text, btn.Unique, btn.Data).Inline()
		}
		inline[i] = r
	}
	markup.InlineKeyboard = inline
	return markup
}
