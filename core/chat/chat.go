// Package chat defines the contract between conversational modules and the chat platform:
// inbound events, the outbound reply shape and the Platform adapter interface.
package chat

import (
	"context"

	"github.com/m3rciful/roombot/core/cards"
)

// Identity is a chat account as reported by the platform.
type Identity struct {
	ID          string
	Email       string
	DisplayName string
}

// MessageEvent announces that a message was posted. The text itself is fetched by MessageRef.
type MessageEvent struct {
	ID          string
	SenderID    string
	SenderEmail string
	RoomID      string
	MessageRef  string
}

// SubmissionEvent announces that a user submitted a card. Inputs are fetched by SubmissionRef.
type SubmissionEvent struct {
	ID            string
	SubmissionRef string
	SubmitterID   string
	// RoomID is where the card was submitted. It may be empty; submissions carry
	// their own roomId input.
	RoomID string
}

// Platform is implemented by each chat transport.
type Platform interface {
	// Self returns the bot's own identity. Messages from it are ignored.
	Self(ctx context.Context) (Identity, error)
	// MessageText fetches the text of a posted message.
	MessageText(ctx context.Context, ref string) (string, error)
	// SubmissionInputs fetches the submitted input values of a card.
	SubmissionInputs(ctx context.Context, ref string) (map[string]string, error)
	// PersonEmail resolves the email (or platform handle) of a person id.
	PersonEmail(ctx context.Context, personID string) (string, error)
	// SendToRoom posts text and an optional card to a room.
	SendToRoom(ctx context.Context, roomID, text string, card *cards.Card) error
	// SendToPerson posts text and an optional card directly to a person.
	SendToPerson(ctx context.Context, email, text string, card *cards.Card) error
}

// Request is a parsed command addressed to a module.
type Request struct {
	EventID  string
	RoomID   string
	SenderID string
	// Sender is the sender's email or handle, used as poll author and game player name.
	Sender string
	// Arg is the command argument, e.g. the guessed text. Empty for most commands.
	Arg string
}

// Reply is one outbound message. ToPerson switches delivery from the room to a direct message.
type Reply struct {
	RoomID   string
	ToPerson string
	Text     string
	Card     *cards.Card
	// Then runs once after the reply was sent or given up on, on the delivering goroutine.
	Then func(ctx context.Context)
}

// ToRoom builds a room reply.
func ToRoom(roomID, text string, card *cards.Card) Reply {
	return Reply{RoomID: roomID, Text: text, Card: card}
}

// ToPerson builds a direct reply.
func ToPerson(email, text string, card *cards.Card) Reply {
	return Reply{ToPerson: email, Text: text, Card: card}
}

// Direct reports whether the reply goes to a person rather than a room.
func (r Reply) Direct() bool { return r.ToPerson != "" }

// Send delivers the reply through p.
func (r Reply) Send(ctx context.Context, p Platform) error {
	if r.Direct() {
		return p.SendToPerson(ctx, r.ToPerson, r.Text, r.Card)
	}
	return p.SendToRoom(ctx, r.RoomID, r.Text, r.Card)
}
