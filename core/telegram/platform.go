package telegram

import (
	"context"
	"fmt"
	"strconv"

	"github.com/m3rciful/roombot/core/cards"
	"github.com/m3rciful/roombot/core/chat"
	"github.com/m3rciful/roombot/core/telegram/format"
	"github.com/m3rciful/roombot/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

// Messenger is the part of the Bot API the platform sends through. *tele.Bot implements it.
type Messenger interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Platform adapts a Telegram bot to chat.Platform. Rooms are chat ids; people are handles.
type Platform struct {
	api   Messenger
	me    *tele.User
	inbox *Inbox
	dir   *Directory
	forms state.Manager
}

// NewPlatform wraps api. me is the bot's own user.
func NewPlatform(api Messenger, me *tele.User) *Platform {
	return &Platform{
		api:   api,
		me:    me,
		inbox: NewInbox(),
		dir:   NewDirectory(),
		forms: state.NewMemoryManager(),
	}
}

func (p *Platform) Self(context.Context) (chat.Identity, error) {
	if p.me == nil {
		return chat.Identity{}, fmt.Errorf("telegram: bot identity unknown")
	}
	return chat.Identity{
		ID:          strconv.FormatInt(p.me.ID, 10),
		Email:       Handle(p.me),
		DisplayName: p.me.FirstName,
	}, nil
}

func (p *Platform) MessageText(_ context.Context, ref string) (string, error) {
	return p.inbox.TakeText(ref)
}

func (p *Platform) SubmissionInputs(_ context.Context, ref string) (map[string]string, error) {
	return p.inbox.TakeInputs(ref)
}

func (p *Platform) PersonEmail(_ context.Context, personID string) (string, error) {
	id, err := strconv.ParseInt(personID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("telegram: person id %q: %w", personID, err)
	}
	if h, ok := p.dir.Handle(id); ok {
		return h, nil
	}
	return personID, nil
}

// SendToRoom posts to a chat. Text inputs on the card are not asked in rooms.
func (p *Platform) SendToRoom(_ context.Context, roomID, text string, card *cards.Card) error {
	chatID, err := strconv.ParseInt(roomID, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram: room id %q: %w", roomID, err)
	}
	return p.send(tele.ChatID(chatID), text, card, "")
}

// SendToPerson posts to a user's private chat. A card with text inputs starts a
// form there and its first question is appended to the message.
func (p *Platform) SendToPerson(_ context.Context, handle, text string, card *cards.Card) error {
	userID, ok := p.dir.UserID(handle)
	if !ok {
		return fmt.Errorf("telegram: unknown person %q", handle)
	}
	prompt, started := p.forms.Begin(userID, card)
	if err := p.send(tele.ChatID(userID), text, card, prompt); err != nil {
		if started {
			p.forms.Cancel(userID)
		}
		return err
	}
	return nil
}

func (p *Platform) send(to tele.Recipient, text string, card *cards.Card, prompt string) error {
	msg, err := Render(text, card)
	if err != nil {
		return err
	}
	if prompt != "" {
		if msg.Text != "" {
			msg.Text += "\n\n"
		}
		msg.Text += format.V1(prompt)
	}
	if msg.Text == "" {
		msg.Text = format.V1(cards.FallbackText)
	}
	opts := &tele.SendOptions{ParseMode: tele.ModeMarkdown}
	if msg.Markup != nil {
		opts.ReplyMarkup = msg.Markup
	}
	_, err = p.api.Send(to, msg.Text, opts)
	return err
}

// Directory exposes the user directory fed by inbound updates.
func (p *Platform) Directory() *Directory { return p.dir }

// Inbox exposes the parked texts and inputs.
func (p *Platform) Inbox() *Inbox { return p.inbox }

// Forms exposes the private form conversations.
func (p *Platform) Forms() state.Manager { return p.forms }
