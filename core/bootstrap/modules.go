package bootstrap

import (
	"github.com/m3rciful/roombot/core/bot"
	coreconfig "github.com/m3rciful/roombot/core/config"
	"github.com/m3rciful/roombot/core/game"
	"github.com/m3rciful/roombot/core/poll"
)

// Modules holds the enabled conversational modules and their services.
type Modules struct {
	// Polls and Games are nil when the module is disabled.
	Polls *poll.Service
	Games *game.Service
	List  []bot.Module
}

// BuildModules creates the modules enabled in cfg, in configuration order.
// rec may be nil.
func BuildModules(cfg *coreconfig.Config, rec Recorder) Modules {
	var mods Modules
	var pollRec poll.Recorder
	var gameRec game.Recorder
	if rec != nil {
		pollRec, gameRec = rec, rec
	}
	for _, name := range cfg.Modules {
		switch name {
		case coreconfig.ModulePoll:
			mods.Polls = poll.NewService()
			mods.List = append(mods.List, poll.NewModule(mods.Polls, pollRec))
		case coreconfig.ModuleGame:
			mods.Games = game.NewService(nil)
			mods.List = append(mods.List, game.NewModule(mods.Games, gameRec))
		}
	}
	return mods
}
