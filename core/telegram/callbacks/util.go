// Package callbacks decodes Telegram callback queries.
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// ParseCallbackData splits telebot's "\f<unique>|<payload>" encoding.
func ParseCallbackData(cb *tele.Callback) (unique, payload string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	return SplitData(cb.Data)
}

// SplitData splits raw callback_data into the unique key and payload.
func SplitData(raw string) (unique, payload string) {
	raw = strings.TrimPrefix(raw, "\f")
	parts := strings.SplitN(raw, "|", 2)
	unique = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		payload = parts[1]
	}
	return unique, payload
}
