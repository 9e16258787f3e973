package game

import (
	"context"
	"log/slog"

	"github.com/m3rciful/roombot/core/chat"
	"github.com/m3rciful/roombot/core/command"
	"github.com/m3rciful/roombot/core/logger"
)

// Recorder keeps a history of stopped games.
type Recorder interface {
	RecordGame(ctx context.Context, g Game) error
}

// Module exposes the game commands.
type Module struct {
	svc *Service
	rec Recorder
	log *slog.Logger
}

// NewModule wires svc to chat. rec may be nil.
func NewModule(svc *Service, rec Recorder) *Module {
	return &Module{svc: svc, rec: rec, log: logger.Component("game")}
}

// Name identifies the module in logs and configuration.
func (m *Module) Name() string { return "game" }

// Service returns the underlying game service.
func (m *Module) Service() *Service { return m.svc }

// Register adds the game commands to reg.
func (m *Module) Register(reg *command.Registry) error {
	specs := []command.Spec{
		{Name: command.StartGame, Description: "Start a new flag guessing game.", Handler: m.start},
		{Name: command.Guess, Usage: "guess <country_name>", Description: "Guess which country the flag represents.", Handler: m.guess},
		{Name: command.Scoreboard, Description: "Show the current scoreboard.", Handler: m.scoreboard},
		{Name: command.StopGame, Description: "End the game.", Handler: m.stop},
	}
	for _, spec := range specs {
		if err := reg.Register(spec); err != nil {
			return err
		}
	}
	return nil
}

func (m *Module) start(ctx context.Context, req chat.Request) []chat.Reply {
	g, ok := m.svc.Start(req.RoomID, req.Sender)
	if !ok {
		logger.LogEvent(ctx, m.log, slog.LevelDebug, "game.start.exists")
		return nil
	}
	logger.LogEvent(ctx, m.log, slog.LevelInfo, "game.started",
		slog.String("status", "ok"),
		slog.String("starter", req.Sender),
	)
	return []chat.Reply{chat.ToRoom(req.RoomID, "Game Started!", FlagCard(g.Answer))}
}

func (m *Module) guess(ctx context.Context, req chat.Request) []chat.Reply {
	res, err := m.svc.Guess(req.RoomID, req.Sender, req.Arg)
	if err != nil {
		return nil
	}
	if !res.Correct {
		return []chat.Reply{chat.ToRoom(req.RoomID, "Wrong guess, "+req.Sender+". Try again!", nil)}
	}
	logger.LogEvent(ctx, m.log, slog.LevelInfo, "game.guess.correct",
		slog.String("status", "ok"),
		slog.String("player", req.Sender),
		slog.Int("score", res.Score),
	)
	return []chat.Reply{
		chat.ToRoom(req.RoomID, "Correct, "+req.Sender+"! Your score has been updated.", nil),
		chat.ToRoom(req.RoomID, "New Flag! Guess again!", FlagCard(res.Next)),
	}
}

func (m *Module) scoreboard(_ context.Context, req chat.Request) []chat.Reply {
	players, err := m.svc.Scoreboard(req.RoomID)
	if err != nil {
		return nil
	}
	return []chat.Reply{chat.ToRoom(req.RoomID, "Here is the current scoreboard:", ScoreboardCard(players))}
}

func (m *Module) stop(ctx context.Context, req chat.Request) []chat.Reply {
	g, ok := m.svc.Stop(req.RoomID)
	if !ok {
		return []chat.Reply{chat.ToRoom(req.RoomID, "No game is currently running.", nil)}
	}
	logger.LogEvent(ctx, m.log, slog.LevelInfo, "game.stopped",
		slog.String("status", "ok"),
		slog.Int("players", len(g.Players)),
	)
	bye := chat.ToRoom(req.RoomID, "Game has been stopped. Thanks for playing!", nil)
	if m.rec != nil {
		bye.Then = func(ctx context.Context) { m.record(ctx, g) }
	}
	return []chat.Reply{bye}
}

func (m *Module) record(ctx context.Context, g Game) {
	if err := m.rec.RecordGame(ctx, g); err != nil {
		logger.LogEvent(ctx, m.log, slog.LevelWarn, "game.archive.failed",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}
}
