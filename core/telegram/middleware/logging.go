package middleware

import (
	"log/slog"

	"github.com/m3rciful/roombot/core/logger"
	"github.com/m3rciful/roombot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/roombot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// LoggerMiddleware builds the update context and logs one sampled receipt line per update.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		if keep, _ := logger.Sample("tg.update"); keep {
			logger.LogEvent(ctx, logger.TG, slog.LevelDebug, "update.received", receiptAttrs(c)...)
		}
		return next(c)
	}
}

func receiptAttrs(c tele.Context) []slog.Attr {
	attrs := []slog.Attr{slog.String("status", "ok")}
	if chat := c.Chat(); chat != nil {
		attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
	}
	if user := c.Sender(); user != nil && user.Username != "" {
		attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
	}
	upd := c.Update()
	switch {
	case upd.Callback != nil:
		key, payload := callbacks.ParseCallbackData(upd.Callback)
		if key != "" {
			attrs = append(attrs, slog.String("cb_key", logger.SanitizeLimit(key, 128)))
		}
		if payload != "" {
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(payload, 256)))
		}
	case upd.Message != nil:
		if t := c.Text(); t != "" {
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(t, 256)))
		}
	}
	return attrs
}
