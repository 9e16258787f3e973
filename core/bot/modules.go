package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m3rciful/roombot/core/chat"
	"github.com/m3rciful/roombot/core/command"
	"github.com/m3rciful/roombot/core/logger"
)

// Module is a conversational feature that contributes commands.
type Module interface {
	Name() string
	Register(reg *command.Registry) error
}

// SubmissionModule is a Module that also consumes card submissions.
type SubmissionModule interface {
	Module
	SubmissionKinds() []chat.SubmissionKind
	HandleSubmission(ctx context.Context, sub chat.Submission, who *chat.Submitter) []chat.Reply
}

// Install registers every module's commands and submission handlers, then "help".
func Install(r *Router, mods ...Module) error {
	for _, m := range mods {
		if err := m.Register(r.registry); err != nil {
			return fmt.Errorf("bot: install %s: %w", m.Name(), err)
		}
		attrs := []slog.Attr{slog.String("status", "ok"), slog.String("module", m.Name())}
		if sm, ok := m.(SubmissionModule); ok {
			r.HandleSubmission(sm.HandleSubmission, sm.SubmissionKinds()...)
			attrs = append(attrs, slog.Int("submission_kinds", len(sm.SubmissionKinds())))
		}
		logger.Wire.LogAttrs(context.Background(), slog.LevelInfo, "module.installed", attrs...)
	}
	if err := r.registry.RegisterHelp(); err != nil {
		return fmt.Errorf("bot: install help: %w", err)
	}
	return nil
}
