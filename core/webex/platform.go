package webex

import (
	"context"
	"errors"
	"fmt"

	"github.com/m3rciful/roombot/core/cards"
	"github.com/m3rciful/roombot/core/chat"
)

// Platform adapts API to chat.Platform.
type Platform struct {
	client API
}

// NewPlatform wraps client.
func NewPlatform(client API) *Platform {
	return &Platform{client: client}
}

func (p *Platform) Self(ctx context.Context) (chat.Identity, error) {
	me, err := p.client.Me(ctx)
	if err != nil {
		return chat.Identity{}, err
	}
	return chat.Identity{ID: me.ID, Email: me.PrimaryEmail(), DisplayName: me.DisplayName}, nil
}

func (p *Platform) MessageText(ctx context.Context, ref string) (string, error) {
	msg, err := p.client.GetMessage(ctx, ref)
	if err != nil {
		return "", err
	}
	return msg.Text, nil
}

// SubmissionInputs flattens the submitted inputs to strings. Adaptive Card inputs are strings
// already; other JSON values are formatted.
func (p *Platform) SubmissionInputs(ctx context.Context, ref string) (map[string]string, error) {
	action, err := p.client.GetAttachmentAction(ctx, ref)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(action.Inputs))
	for k, v := range action.Inputs {
		switch val := v.(type) {
		case string:
			out[k] = val
		case nil:
			out[k] = ""
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out, nil
}

func (p *Platform) PersonEmail(ctx context.Context, personID string) (string, error) {
	person, err := p.client.GetPerson(ctx, personID)
	if err != nil {
		return "", err
	}
	email := person.PrimaryEmail()
	if email == "" {
		return "", errors.New("webex: person has no email")
	}
	return email, nil
}

func (p *Platform) SendToRoom(ctx context.Context, roomID, text string, card *cards.Card) error {
	_, err := p.client.CreateMessage(ctx, buildMessage(MessageRequest{RoomID: roomID}, text, card))
	return err
}

func (p *Platform) SendToPerson(ctx context.Context, email, text string, card *cards.Card) error {
	_, err := p.client.CreateMessage(ctx, buildMessage(MessageRequest{ToPersonEmail: email}, text, card))
	return err
}

func buildMessage(req MessageRequest, text string, card *cards.Card) MessageRequest {
	req.Text = text
	req.Markdown = text
	if card != nil {
		req.Attachments = []Attachment{RenderCard(card)}
	}
	return req
}
