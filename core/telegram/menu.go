package telegram

import (
	"context"
	"log/slog"
	"strings"

	"github.com/m3rciful/roombot/core/command"
	"github.com/m3rciful/roombot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// CommandMenu lists the registry's commands in Telegram's slash form, "start poll" as "start_poll".
func CommandMenu(reg *command.Registry) []tele.Command {
	var list []tele.Command
	for _, spec := range reg.Specs() {
		list = append(list, tele.Command{
			Text:        strings.ReplaceAll(spec.Name, " ", "_"),
			Description: spec.Description,
		})
	}
	return list
}

type commandSetter interface {
	SetCommands(opts ...interface{}) error
}

// InitBotCommands publishes the command menu.
func InitBotCommands(bot commandSetter, reg *command.Registry) {
	commands := CommandMenu(reg)
	if len(commands) == 0 {
		return
	}
	if err := bot.SetCommands(commands); err != nil {
		logger.LogEvent(context.Background(), logger.Wire, slog.LevelError, "register.commands.set_failed",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return
	}
	logger.LogEvent(context.Background(), logger.Wire, slog.LevelInfo, "register.commands",
		slog.String("status", "ok"),
		slog.Int("count", len(commands)),
	)
}
