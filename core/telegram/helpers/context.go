// Package helpers carries per-update logging context through telebot handlers.
package helpers

import (
	"context"
	"strconv"

	"github.com/m3rciful/roombot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const contextKey = "logger_ctx"

// StoreContext attaches ctx to the telebot context for downstream handlers.
func StoreContext(c tele.Context, ctx context.Context) {
	if c == nil || ctx == nil {
		return
	}
	c.Set(contextKey, ctx)
}

// ContextFrom returns the context stored by StoreContext.
func ContextFrom(c tele.Context) (context.Context, bool) {
	if c == nil {
		return nil, false
	}
	if v := c.Get(contextKey); v != nil {
		if ctx, ok := v.(context.Context); ok {
			return ctx, true
		}
	}
	return nil, false
}

// BuildContext returns the stored context or builds one carrying the rid and
// update metadata of c.
func BuildContext(c tele.Context) context.Context {
	if cached, ok := ContextFrom(c); ok {
		return cached
	}
	eventID, personID, roomID := UpdateMeta(c)
	ctx := logger.WithRID(context.Background(), logger.BuildRID(eventID))
	ctx = logger.WithEventMeta(ctx, eventID, personID, roomID)
	ctx = logger.WithLogger(ctx, logger.TG)
	StoreContext(c, ctx)
	return ctx
}

// UpdateMeta returns the update id, sender id and chat id of c as strings.
func UpdateMeta(c tele.Context) (eventID, personID, roomID string) {
	eventID = strconv.Itoa(c.Update().ID)
	if u := c.Sender(); u != nil {
		personID = strconv.FormatInt(u.ID, 10)
	}
	if ch := c.Chat(); ch != nil {
		roomID = strconv.FormatInt(ch.ID, 10)
	}
	return eventID, personID, roomID
}
