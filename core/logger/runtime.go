package logger

import (
	"context"
	"log/slog"
	"strings"
	"unicode"
)

// contextKey is a private type to avoid collisions in context.
type contextKey string

const (
	ctxRID      contextKey = "rid"
	ctxEventID  contextKey = "event_id"
	ctxPersonID contextKey = "person_id"
	ctxRoomID   contextKey = "room_id"
	ctxLogger   contextKey = "logger"
	ctxHandler  contextKey = "handler"
)

// WithLogger stores the provided slog.Logger in context for propagation across layers.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxLogger, log)
}

// FromContext extracts slog.Logger from context or returns global default.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return L
	}
	if v := ctx.Value(ctxLogger); v != nil {
		if l, ok := v.(*slog.Logger); ok {
			return l
		}
	}
	return L
}

// WithRID attaches request correlation id into context.
func WithRID(ctx context.Context, rid string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRID, rid)
}

// RIDFrom extracts rid from context if present.
func RIDFrom(ctx context.Context) string {
	return stringValue(ctx, ctxRID)
}

// WithEventMeta attaches the inbound event, sender and room identifiers to context.
func WithEventMeta(ctx context.Context, eventID, personID, roomID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if eventID != "" {
		ctx = context.WithValue(ctx, ctxEventID, eventID)
	}
	if personID != "" {
		ctx = context.WithValue(ctx, ctxPersonID, personID)
	}
	if roomID != "" {
		ctx = context.WithValue(ctx, ctxRoomID, roomID)
	}
	return ctx
}

// WithHandler stores handler identifier in context for downstream logs.
func WithHandler(ctx context.Context, handler string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if handler == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxHandler, handler)
}

// HandlerFrom returns handler identifier from context if present.
func HandlerFrom(ctx context.Context) string {
	return stringValue(ctx, ctxHandler)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v := ctx.Value(key); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// PersonIDFrom extracts the sender identifier from context.
func PersonIDFrom(ctx context.Context) string {
	return stringValue(ctx, ctxPersonID)
}

// RoomIDFrom extracts the room identifier from context.
func RoomIDFrom(ctx context.Context) string {
	return stringValue(ctx, ctxRoomID)
}

// EventIDFrom extracts the inbound event identifier from context.
func EventIDFrom(ctx context.Context) string {
	return stringValue(ctx, ctxEventID)
}

// Sanitize trims non-printable runes from s to keep logs clean.
// It removes control characters (Unicode categories Cc, Cf) except for tab and newline.
func Sanitize(s string) string {
	if s == "" {
		return s
	}
	b := strings.Builder{}
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' {
			b.WriteRune(r)
			continue
		}
		if unicode.IsControl(r) || unicode.Is(unicode.Cf, r) {
			// skip
			continue
		}
		// also skip DEL character
		if r == 0x7F {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SanitizeLimit applies Sanitize and limits the output length in runes.
func SanitizeLimit(s string, max int) string {
	if max <= 0 {
		return ""
	}
	cleaned := Sanitize(s)
	// fast path
	if len([]rune(cleaned)) <= max {
		return cleaned
	}
	r := []rune(cleaned)
	return string(r[:max])
}

// BuildRID returns a short correlation identifier derived from the inbound event id.
// Platform ids are long opaque strings, only their tail is kept. Empty ids map to "-".
func BuildRID(eventID string) string {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return "-"
	}
	const keep = 12
	r := []rune(eventID)
	if len(r) <= keep {
		return eventID
	}
	return string(r[len(r)-keep:])
}
