package poll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/roombot/core/cards"
	"github.com/m3rciful/roombot/core/chat"
	"github.com/m3rciful/roombot/core/command"
	"github.com/m3rciful/roombot/core/logger"
)

// Recorder keeps a history of finished polls.
type Recorder interface {
	RecordPoll(ctx context.Context, p Poll) error
}

// Module exposes the poll commands and card submissions.
type Module struct {
	svc *Service
	rec Recorder
	log *slog.Logger
}

// NewModule wires svc to chat. rec may be nil.
func NewModule(svc *Service, rec Recorder) *Module {
	return &Module{svc: svc, rec: rec, log: logger.Component("poll")}
}

// Name identifies the module in logs and configuration.
func (m *Module) Name() string { return "poll" }

// SubmissionKinds lists the card submissions the module consumes.
func (m *Module) SubmissionKinds() []chat.SubmissionKind {
	return []chat.SubmissionKind{chat.KindPollDetails, chat.KindPollOption, chat.KindPollVote}
}

// Service returns the underlying poll service.
func (m *Module) Service() *Service { return m.svc }

// Register adds the poll commands to reg.
func (m *Module) Register(reg *command.Registry) error {
	specs := []command.Spec{
		{Name: command.CreatePoll, Description: "Create a new poll.", Handler: m.create},
		{Name: command.AddOption, Description: "Add an option to an existing poll.", Handler: m.addOption},
		{Name: command.StartPoll, Description: "Start the poll and allow voting.", Handler: m.start},
		{Name: command.EndPoll, Description: "End the poll and show results.", Handler: m.end},
	}
	for _, spec := range specs {
		if err := reg.Register(spec); err != nil {
			return err
		}
	}
	return nil
}

func (m *Module) create(ctx context.Context, req chat.Request) []chat.Reply {
	if !m.svc.Create(req.RoomID, req.Sender) {
		logger.LogEvent(ctx, m.log, slog.LevelDebug, "poll.create.exists")
		return nil
	}
	logger.LogEvent(ctx, m.log, slog.LevelInfo, "poll.created",
		slog.String("status", "ok"),
		slog.String("author", req.Sender),
	)
	return []chat.Reply{chat.ToPerson(req.Sender, cards.FallbackText, DetailsForm(req.RoomID))}
}

func (m *Module) addOption(ctx context.Context, req chat.Request) []chat.Reply {
	p, ok := m.svc.Get(req.RoomID)
	if !ok {
		return nil
	}
	if p.Ended {
		return m.refuse(ctx, req.RoomID, "add_option", ErrEnded)
	}
	return []chat.Reply{chat.ToPerson(req.Sender, cards.FallbackText, OptionForm(req.RoomID))}
}

func (m *Module) start(ctx context.Context, req chat.Request) []chat.Reply {
	p, err := m.svc.Start(req.RoomID, req.Sender)
	if err != nil {
		return m.refuse(ctx, req.RoomID, "start", err)
	}
	logger.LogEvent(ctx, m.log, slog.LevelInfo, "poll.started",
		slog.String("status", "ok"),
		slog.Int("options", len(p.Options)),
	)
	return []chat.Reply{chat.ToRoom(req.RoomID, cards.FallbackText, VotingCard(p))}
}

func (m *Module) end(ctx context.Context, req chat.Request) []chat.Reply {
	p, err := m.svc.End(req.RoomID, req.Sender)
	if err != nil {
		return m.refuse(ctx, req.RoomID, "end", err)
	}
	logger.LogEvent(ctx, m.log, slog.LevelInfo, "poll.ended",
		slog.String("status", "ok"),
		slog.Int("votes", p.TotalVotes()),
	)
	results := chat.ToRoom(req.RoomID, cards.FallbackText, ResultsCard(p))
	if m.rec != nil {
		results.Then = func(ctx context.Context) { m.record(ctx, p) }
	}
	return []chat.Reply{results}
}

// HandleSubmission applies a decoded card submission.
func (m *Module) HandleSubmission(ctx context.Context, sub chat.Submission, who *chat.Submitter) []chat.Reply {
	switch s := sub.(type) {
	case chat.PollDetails:
		email, err := who.Email(ctx)
		if err != nil {
			logger.LogEvent(ctx, m.log, slog.LevelWarn, "poll.details.lookup_failed",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
			return nil
		}
		if _, err := m.svc.Describe(s.RoomID, email, s.Name, s.Description); err != nil {
			return m.refuse(ctx, s.RoomID, "describe", err)
		}
		return []chat.Reply{chat.ToRoom(s.RoomID, "Poll created with title: "+s.Name, nil)}

	case chat.PollOption:
		_, name, err := m.svc.AddOption(s.RoomID, s.Text)
		if err != nil {
			return m.refuse(ctx, s.RoomID, "add_option", err)
		}
		return []chat.Reply{chat.ToRoom(s.RoomID, fmt.Sprintf("Option added to poll \"%s\": %s", name, s.Text), nil)}

	case chat.PollVote:
		if err := m.svc.Vote(s.RoomID, s.Index); err != nil {
			logger.LogEvent(ctx, m.log, slog.LevelDebug, "poll.vote.ignored",
				slog.String("outcome", "ignored"),
				slog.String("cause", err.Error()),
			)
		}
		return nil
	}
	return nil
}

// refuse turns a service error into the room message for it. A missing poll stays silent.
func (m *Module) refuse(ctx context.Context, roomID, op string, err error) []chat.Reply {
	text := refusal(op, err)
	logger.LogEvent(ctx, m.log, slog.LevelInfo, "poll.refused",
		slog.String("status", "denied"),
		slog.String("op", op),
		slog.String("cause", err.Error()),
	)
	if text == "" {
		return nil
	}
	return []chat.Reply{chat.ToRoom(roomID, text, nil)}
}

func refusal(op string, err error) string {
	switch {
	case errors.Is(err, ErrNotAuthor):
		switch op {
		case "start":
			return "Error: only the poll author can start the poll"
		case "end":
			return "Error: only the poll's author can end the poll"
		}
		return "Error: only the poll author can edit the poll"
	case errors.Is(err, ErrAlreadyStarted):
		return "Error: poll already started"
	case errors.Is(err, ErrEnded):
		return "Error: poll has already ended"
	case errors.Is(err, ErrNotStarted):
		return "Error: poll hasn't been started yet"
	case errors.Is(err, ErrNoOptions):
		return "Error: add at least one option before starting the poll"
	}
	return ""
}

func (m *Module) record(ctx context.Context, p Poll) {
	if err := m.rec.RecordPoll(ctx, p); err != nil {
		logger.LogEvent(ctx, m.log, slog.LevelWarn, "poll.archive.failed",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}
}
