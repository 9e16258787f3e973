package logger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"

	timeFormatMillis = "2006-01-02T15:04:05.000Z07:00"
)

// lineHandler renders every record as a single line: a JSON object or key=value pairs.
// Keys listed in the rank table come first, the rest follow alphabetically.
type lineHandler struct {
	level  slog.Leveler
	out    *sink
	format logFormat
	rank   map[string]int
	preset []slog.Attr
	group  string
}

func newLineHandler(level slog.Leveler, out *sink, format logFormat, order []string) *lineHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	if len(order) == 0 {
		order = defaultKeyOrder
	}
	rank := make(map[string]int, len(order))
	for i, key := range order {
		if _, dup := rank[key]; !dup {
			rank[key] = i
		}
	}
	return &lineHandler{level: level, out: out, format: format, rank: rank}
}

func (h *lineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *lineHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.out == nil {
		return errors.New("logger: sink not initialized")
	}
	fields := make(map[string]any, 16)
	ts := r.Time.UTC()
	fields["ts"] = ts.Truncate(time.Millisecond).Format(timeFormatMillis)
	fields["level"] = normalizeLevel(r.Level.String())
	if h.format == formatJSON {
		fields["ts_unix_nano"] = ts.UnixNano()
	}
	for _, a := range h.preset {
		h.put(fields, h.group, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.put(fields, h.group, a)
		return true
	})
	fillFromContext(ctx, fields)
	fillDefaults(fields, r.Message)

	line, err := h.encode(fields)
	if err != nil {
		return err
	}
	return h.out.write(append(line, '\n'))
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.preset = append(append([]slog.Attr(nil), h.preset...), attrs...)
	return &clone
}

func (h *lineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.group = joinKey(h.group, name)
	return &clone
}

// put flattens groups into dotted keys and drops empty values.
func (h *lineHandler) put(fields map[string]any, prefix string, a slog.Attr) {
	key := joinKey(prefix, a.Key)
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, child := range v.Group() {
			h.put(fields, key, child)
		}
		return
	}
	if key == "" {
		return
	}
	key, val := plainValue(key, v)
	if val == nil {
		return
	}
	if s, ok := val.(string); ok && s == "" {
		return
	}
	fields[key] = val
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	}
	return prefix + "." + key
}

// plainValue converts v to a JSON-friendly value. Durations become whole milliseconds
// under a key ending in _ms.
func plainValue(key string, v slog.Value) (string, any) {
	switch v.Kind() {
	case slog.KindString:
		return key, strings.TrimSpace(v.String())
	case slog.KindBool:
		return key, v.Bool()
	case slog.KindInt64:
		return key, v.Int64()
	case slog.KindUint64:
		return key, v.Uint64()
	case slog.KindFloat64:
		return key, v.Float64()
	case slog.KindDuration:
		return durationKey(key), RoundMS(v.Duration()).Milliseconds()
	case slog.KindTime:
		return key, v.Time().UTC().Format(time.RFC3339Nano)
	}
	switch x := v.Any().(type) {
	case nil:
		return key, nil
	case error:
		return key, x.Error()
	case time.Duration:
		return durationKey(key), RoundMS(x).Milliseconds()
	case fmt.Stringer:
		return key, x.String()
	default:
		return key, fmt.Sprint(x)
	}
}

// durationKey renames duration attributes so their unit is explicit: duration -> duration_ms.
func durationKey(key string) string {
	switch {
	case key == "duration":
		return "duration_ms"
	case strings.HasSuffix(key, "_duration"):
		return strings.TrimSuffix(key, "_duration") + "_duration_ms"
	case !strings.HasSuffix(key, "_ms"):
		return key + "_ms"
	}
	return key
}

func fillFromContext(ctx context.Context, fields map[string]any) {
	if ctx == nil {
		return
	}
	for key, value := range map[string]string{
		"rid":       RIDFrom(ctx),
		"event_id":  EventIDFrom(ctx),
		"person_id": PersonIDFrom(ctx),
		"room_id":   RoomIDFrom(ctx),
		"handler":   HandlerFrom(ctx),
	} {
		if value == "" {
			continue
		}
		if _, set := fields[key]; !set {
			fields[key] = value
		}
	}
}

// fillDefaults guarantees event and component, and keeps status and outcome within
// their vocabularies. Unknown statuses are kept lowercased; unknown outcomes are dropped.
func fillDefaults(fields map[string]any, msg string) {
	if s, _ := fields["event"].(string); s == "" {
		fields["event"] = "unknown"
		if msg != "" {
			fields["event"] = msg
		}
	}
	if s, _ := fields["component"].(string); s == "" {
		fields["component"] = "app"
	}
	if s, ok := fields["status"].(string); ok {
		fields["status"], _ = normalizeStatus(s)
	}
	if s, ok := fields["outcome"].(string); ok {
		if o, known := normalizeOutcome(s); known {
			fields["outcome"] = o
		} else {
			delete(fields, "outcome")
		}
	}
}

func (h *lineHandler) sortedKeys(fields map[string]any) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, iRanked := h.rank[keys[i]]
		rj, jRanked := h.rank[keys[j]]
		switch {
		case iRanked && jRanked:
			return ri < rj
		case iRanked != jRanked:
			return iRanked
		}
		return keys[i] < keys[j]
	})
	return keys
}

func (h *lineHandler) encode(fields map[string]any) ([]byte, error) {
	keys := h.sortedKeys(fields)
	var b strings.Builder
	if h.format == formatJSON {
		b.WriteByte('{')
		for i, k := range keys {
			data, err := json.Marshal(fields[k])
			if err != nil {
				return nil, fmt.Errorf("logger: encode %s: %w", k, err)
			}
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(k))
			b.WriteByte(':')
			b.Write(data)
		}
		b.WriteByte('}')
		return []byte(b.String()), nil
	}
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(kvValue(fields[k]))
	}
	return []byte(b.String()), nil
}

func kvValue(v any) string {
	s := fmt.Sprint(v)
	if strings.IndexFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) >= 0 {
		return strconv.Quote(s)
	}
	return s
}
