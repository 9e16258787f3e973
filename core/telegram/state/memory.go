package state

import (
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/m3rciful/roombot/core/cards"
)

type memoryManager struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewMemoryManager constructs an in-memory Manager.
func NewMemoryManager() Manager {
	return &memoryManager{
		sessions: make(map[int64]*Session),
	}
}

// Begin starts a form for the card's text inputs, replacing any unfinished one.
// It reports false when the card has no text inputs.
func (m *memoryManager) Begin(userID int64, card *cards.Card) (string, bool) {
	fields := card.TextInputs()
	if len(fields) == 0 {
		return "", false
	}
	values := card.HiddenValues()
	if values == nil {
		values = make(map[string]string)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = &Session{State: StateForm, Fields: fields, Values: values}
	return prompt(fields[0]), true
}

// Answer records text as the answer to the current question.
// It reports false when the user has no form in progress.
func (m *memoryManager) Answer(userID int64, text string) (Step, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[userID]
	if !ok || sess.State != StateForm {
		return Step{}, false
	}
	field := sess.Fields[sess.Step]
	if field.MaxLength > 0 && utf8.RuneCountInString(text) > field.MaxLength {
		return Step{
			Prompt:   fmt.Sprintf("Please keep it under %d characters.\n%s", field.MaxLength, prompt(field)),
			Rejected: true,
		}, true
	}
	sess.Values[field.ID] = text
	sess.Step++
	if sess.Step < len(sess.Fields) {
		return Step{Prompt: prompt(sess.Fields[sess.Step])}, true
	}

	delete(m.sessions, userID)
	return Step{Inputs: sess.Values, Done: true}, true
}

// Cancel drops the user's form.
func (m *memoryManager) Cancel(userID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[userID]
	delete(m.sessions, userID)
	return ok
}

// InProgress reports whether the user is answering a form.
func (m *memoryManager) InProgress(userID int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[userID]
	return ok && sess.State != StateIdle
}

func prompt(f cards.TextInput) string {
	if f.Label != "" {
		return f.Label
	}
	if f.Placeholder != "" {
		return f.Placeholder
	}
	return f.ID
}
