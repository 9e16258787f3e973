// Package bot routes inbound chat events to command and submission handlers and delivers
// the resulting replies.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/m3rciful/roombot/core/chat"
	"github.com/m3rciful/roombot/core/command"
	"github.com/m3rciful/roombot/core/logger"
	"github.com/m3rciful/roombot/core/netutil"
	"github.com/m3rciful/roombot/core/sender"
)

// SubmissionHandler applies a decoded card submission.
type SubmissionHandler func(ctx context.Context, sub chat.Submission, who *chat.Submitter) []chat.Reply

// Options configures a Router.
type Options struct {
	// Dispatcher delivers replies asynchronously. Nil delivers inline.
	Dispatcher *sender.Dispatcher
	RateLimit  RateLimitOptions
}

// Router turns platform events into handler calls. Its methods never return errors:
// failures are logged and the event is dropped.
type Router struct {
	platform    chat.Platform
	registry    *command.Registry
	submissions map[chat.SubmissionKind]SubmissionHandler
	dispatcher  *sender.Dispatcher
	limiter     *limiter
	log         *slog.Logger

	selfMu sync.Mutex
	self   *chat.Identity
}

// NewRouter builds a router over platform and the commands in reg.
func NewRouter(platform chat.Platform, reg *command.Registry, opts Options) *Router {
	return &Router{
		platform:    platform,
		registry:    reg,
		submissions: make(map[chat.SubmissionKind]SubmissionHandler),
		dispatcher:  opts.Dispatcher,
		limiter:     newLimiter(opts.RateLimit),
		log:         logger.Component("bot"),
	}
}

// HandleSubmission registers h for submissions of the given kinds.
func (r *Router) HandleSubmission(h SubmissionHandler, kinds ...chat.SubmissionKind) {
	for _, kind := range kinds {
		r.submissions[kind] = h
	}
}

// Registry returns the command registry.
func (r *Router) Registry() *command.Registry { return r.registry }

// OnMessage handles a message-created event.
func (r *Router) OnMessage(ctx context.Context, ev chat.MessageEvent) {
	ctx = eventContext(ctx, ev.ID, ev.SenderID, ev.RoomID)
	start := time.Now()
	defer r.recoverPanic(ctx, "message")

	self, err := r.identity(ctx)
	if err != nil {
		r.summary(ctx, "message", start, "fail", "fail", 0, err)
		return
	}
	if ev.SenderID == self.ID {
		r.summary(ctx, "self", start, "skip", "ignored", 0, nil)
		return
	}
	if !r.limiter.allow(KindMessage, ev.SenderID) {
		r.summary(ctx, "message", start, "rate_limited", "rate_limited", 0, nil)
		return
	}

	text, err := r.platform.MessageText(ctx, ev.MessageRef)
	if err != nil {
		r.summary(ctx, "message", start, "fail", "fail", 0, fmt.Errorf("fetch message: %w", err))
		return
	}
	cmd, ok := command.Parse(text)
	if !ok {
		r.summary(ctx, "unknown_command", start, "skip", "ignored", 0, nil)
		return
	}
	spec, ok := r.registry.Lookup(cmd.Name)
	if !ok {
		r.summary(ctx, handlerName(cmd.Name), start, "skip", "ignored", 0, nil)
		return
	}

	senderEmail := ev.SenderEmail
	if senderEmail == "" {
		if senderEmail, err = r.platform.PersonEmail(ctx, ev.SenderID); err != nil {
			r.summary(ctx, handlerName(cmd.Name), start, "fail", "fail", 0, fmt.Errorf("resolve sender: %w", err))
			return
		}
	}

	name := handlerName(cmd.Name)
	ctx = logger.WithHandler(ctx, name)
	replies := spec.Handler(ctx, chat.Request{
		EventID:  ev.ID,
		RoomID:   ev.RoomID,
		SenderID: ev.SenderID,
		Sender:   senderEmail,
		Arg:      cmd.Arg,
	})
	r.deliver(ctx, name, replies)
	r.summary(ctx, name, start, "ok", "ok", len(replies), nil)
}

// OnSubmission handles a card-submitted event.
func (r *Router) OnSubmission(ctx context.Context, ev chat.SubmissionEvent) {
	ctx = eventContext(ctx, ev.ID, ev.SubmitterID, ev.RoomID)
	start := time.Now()
	defer r.recoverPanic(ctx, "submission")

	if !r.limiter.allow(KindSubmission, ev.SubmitterID) {
		r.summary(ctx, "submission", start, "rate_limited", "rate_limited", 0, nil)
		return
	}

	inputs, err := r.platform.SubmissionInputs(ctx, ev.SubmissionRef)
	if err != nil {
		r.summary(ctx, "submission", start, "fail", "fail", 0, fmt.Errorf("fetch submission: %w", err))
		return
	}
	sub, err := chat.DecodeSubmission(inputs)
	if err != nil {
		r.summary(ctx, "submission", start, "skip", "ignored", 0, nil,
			slog.String("cause", err.Error()))
		return
	}
	name := "submission." + string(sub.Kind())
	h, ok := r.submissions[sub.Kind()]
	if !ok {
		r.summary(ctx, name, start, "skip", "ignored", 0, nil)
		return
	}

	ctx = logger.WithHandler(ctx, name)
	replies := h(ctx, sub, chat.NewSubmitter(ev.SubmitterID, r.platform.PersonEmail))
	r.deliver(ctx, name, replies)
	r.summary(ctx, name, start, "ok", "ok", len(replies), nil)
}

// identity returns the bot's own identity, fetching it on first use. Failed lookups are
// not cached.
func (r *Router) identity(ctx context.Context) (chat.Identity, error) {
	r.selfMu.Lock()
	defer r.selfMu.Unlock()
	if r.self != nil {
		return *r.self, nil
	}
	self, err := r.platform.Self(ctx)
	if err != nil {
		return chat.Identity{}, fmt.Errorf("resolve self: %w", err)
	}
	r.self = &self
	return self, nil
}

// deliver sends replies in order as one job. A retryable failure resumes from the reply
// that failed; other failures skip that reply.
func (r *Router) deliver(ctx context.Context, action string, replies []chat.Reply) {
	if len(replies) == 0 {
		return
	}
	next := 0
	var failed []error
	run := func(ctx context.Context) error {
		for next < len(replies) {
			if err := replies[next].Send(ctx, r.platform); err != nil {
				if netutil.ShouldRetry(err) {
					return err
				}
				failed = append(failed, err)
			}
			if then := replies[next].Then; then != nil {
				then(ctx)
			}
			next++
		}
		return errors.Join(failed...)
	}
	target := replies[0].RoomID
	if replies[0].Direct() {
		target = replies[0].ToPerson
	}
	if err := sender.Deliver(ctx, r.dispatcher, action, target, run); err != nil {
		logger.LogEvent(ctx, r.log, slog.LevelWarn, "reply.failed",
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	}
}

func (r *Router) recoverPanic(ctx context.Context, kind string) {
	if rec := recover(); rec != nil {
		logger.LogEvent(ctx, r.log, slog.LevelError, "panic",
			slog.String("status", "fail"),
			slog.String("kind", kind),
			slog.Any("err", rec),
			slog.String("stack", string(debug.Stack())),
		)
	}
}

func (r *Router) summary(ctx context.Context, handler string, start time.Time, status, outcome string, replies int, err error, extras ...slog.Attr) {
	level := slog.LevelInfo
	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("handler", handler),
		slog.String("outcome", outcome),
		slog.Int("replies", replies),
		slog.Duration("duration", time.Since(start)),
	}
	if err != nil {
		level = slog.LevelWarn
		attrs = append(attrs, slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
	}
	if status == "skip" {
		keep, held := logger.Sample("skip." + handler)
		if !keep {
			return
		}
		if held > 0 {
			attrs = append(attrs, slog.Int("suppressed", held))
		}
	}
	logger.LogEvent(ctx, r.log, level, "handler.handled", append(attrs, extras...)...)
}

func eventContext(ctx context.Context, eventID, personID, roomID string) context.Context {
	ctx = logger.WithRID(ctx, logger.BuildRID(eventID))
	return logger.WithEventMeta(ctx, eventID, personID, roomID)
}

func handlerName(command string) string {
	return strings.ReplaceAll(command, " ", "_")
}
