// Package command parses chat text into bot commands and keeps the command registry.
package command

import "strings"

// Command names understood by the bot.
const (
	CreatePoll = "create poll"
	AddOption  = "add option"
	StartPoll  = "start poll"
	EndPoll    = "end poll"
	Help       = "help"
	StartGame  = "start game"
	Guess      = "guess"
	Scoreboard = "scoreboard"
	StopGame   = "stop game"
)

var vocabulary = map[string]bool{
	CreatePoll: true,
	AddOption:  true,
	StartPoll:  true,
	EndPoll:    true,
	Help:       true,
	StartGame:  true,
	Scoreboard: true,
	StopGame:   true,
}

// Command is a recognized command and its argument.
type Command struct {
	Name string
	Arg  string
}

// Normalize drops the leading mention token and joins the remaining words with single spaces.
func Normalize(text string) string {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return ""
	}
	return strings.Join(fields[1:], " ")
}

// Parse classifies text. Keywords match exactly; "guess" needs a non-empty argument.
// The second result is false for anything outside the vocabulary.
func Parse(text string) (Command, bool) {
	body := Normalize(text)
	if body == "" {
		return Command{}, false
	}
	if arg, ok := strings.CutPrefix(body, Guess+" "); ok {
		return Command{Name: Guess, Arg: arg}, true
	}
	if vocabulary[body] {
		return Command{Name: body}, true
	}
	return Command{}, false
}
