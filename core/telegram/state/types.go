package state

import "github.com/m3rciful/roombot/core/cards"

// State identifies a conversation step.
type State string

const (
	// StateIdle indicates there is no active conversation with the user.
	StateIdle State = "idle"
	// StateForm indicates the user is answering a form.
	StateForm State = "form"
)

// Session stores the form a user is filling in.
type Session struct {
	State  State
	Fields []cards.TextInput
	Values map[string]string
	Step   int
}

// Step is the result of feeding one answer to a form.
type Step struct {
	// Prompt is the next question. Empty when the form is complete.
	Prompt string
	// Inputs holds every answer plus the hidden values once Done.
	Inputs map[string]string
	Done   bool
	// Rejected is set when the answer was not accepted and Prompt repeats the question.
	Rejected bool
}

// Manager orchestrates user form conversations.
type Manager interface {
	Begin(userID int64, card *cards.Card) (prompt string, ok bool)
	Answer(userID int64, text string) (Step, bool)
	Cancel(userID int64) bool
	InProgress(userID int64) bool
}
