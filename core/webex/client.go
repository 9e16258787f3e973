// Package webex adapts the Webex REST API, through the go-cisco-webex-teams SDK, to
// chat.Platform and serves the bot's webhooks.
package webex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	webexteams "github.com/jbogarin/go-cisco-webex-teams/sdk"

	"github.com/m3rciful/roombot/core/logger"
)

// APIError is a non-2xx answer from the Webex API.
type APIError struct {
	Status     int
	Message    string
	TrackingID string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.TrackingID != "" {
		return fmt.Sprintf("webex: %d %s (tracking id %s)", e.Status, msg, e.TrackingID)
	}
	return fmt.Sprintf("webex: %d %s", e.Status, msg)
}

// Retryable reports whether the request may succeed when repeated.
func (e *APIError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// HTTPStatus returns the response status code.
func (e *APIError) HTTPStatus() int { return e.Status }

// Person is a Webex user or bot.
type Person struct {
	ID          string
	Emails      []string
	DisplayName string
}

// PrimaryEmail returns the first email of the person.
func (p Person) PrimaryEmail() string {
	if len(p.Emails) == 0 {
		return ""
	}
	return p.Emails[0]
}

// Message is a posted message.
type Message struct {
	ID          string
	RoomID      string
	PersonID    string
	PersonEmail string
	Text        string
}

// Attachment is a card attached to a message.
type Attachment struct {
	ContentType string
	Content     map[string]any
}

// MessageRequest creates a message in a room or a direct conversation.
type MessageRequest struct {
	RoomID        string
	ToPersonEmail string
	Text          string
	Markdown      string
	Attachments   []Attachment
}

// AttachmentAction is a card submission.
type AttachmentAction struct {
	ID        string
	MessageID string
	PersonID  string
	RoomID    string
	Inputs    map[string]any
}

// API is the part of the Webex REST API the bot uses.
type API interface {
	Me(ctx context.Context) (Person, error)
	GetPerson(ctx context.Context, id string) (Person, error)
	GetMessage(ctx context.Context, id string) (Message, error)
	GetAttachmentAction(ctx context.Context, id string) (AttachmentAction, error)
	CreateMessage(ctx context.Context, req MessageRequest) (Message, error)
	ListWebhooks(ctx context.Context) ([]Webhook, error)
	CreateWebhook(ctx context.Context, wh Webhook) (Webhook, error)
	DeleteWebhook(ctx context.Context, id string) error
}

// Options configures a Client.
type Options struct {
	Token string
}

// Client implements API on the Webex Teams SDK.
type Client struct {
	sdk *webexteams.Client
}

var _ API = (*Client)(nil)

// NewClient returns a Client authenticated with the bot token.
func NewClient(opts Options) *Client {
	sdk := webexteams.NewClient()
	sdk.SetAuthToken(opts.Token)
	return &Client{sdk: sdk}
}

// Me returns the identity behind the token.
func (c *Client) Me(ctx context.Context) (Person, error) {
	var me *webexteams.Person
	err := call(ctx, http.MethodGet, "/people/me", func() (response, error) {
		var resp response
		var err error
		me, resp, err = c.sdk.People.GetMe()
		return resp, err
	})
	if err != nil || me == nil {
		return Person{}, orMissing(err, "person")
	}
	return Person{ID: me.ID, Emails: me.Emails, DisplayName: me.DisplayName}, nil
}

// GetPerson fetches a person by id.
func (c *Client) GetPerson(ctx context.Context, id string) (Person, error) {
	var p *webexteams.Person
	err := call(ctx, http.MethodGet, "/people/{id}", func() (response, error) {
		var resp response
		var err error
		p, resp, err = c.sdk.People.GetPerson(id)
		return resp, err
	})
	if err != nil || p == nil {
		return Person{}, orMissing(err, "person")
	}
	return Person{ID: p.ID, Emails: p.Emails, DisplayName: p.DisplayName}, nil
}

// GetMessage fetches a message by id.
func (c *Client) GetMessage(ctx context.Context, id string) (Message, error) {
	var m *webexteams.Message
	err := call(ctx, http.MethodGet, "/messages/{id}", func() (response, error) {
		var resp response
		var err error
		m, resp, err = c.sdk.Messages.GetMessage(id)
		return resp, err
	})
	if err != nil || m == nil {
		return Message{}, orMissing(err, "message")
	}
	return fromSDKMessage(m), nil
}

// GetAttachmentAction fetches a card submission by id.
func (c *Client) GetAttachmentAction(ctx context.Context, id string) (AttachmentAction, error) {
	var a *webexteams.AttachmentAction
	err := call(ctx, http.MethodGet, "/attachment/actions/{id}", func() (response, error) {
		var resp response
		var err error
		a, resp, err = c.sdk.AttachmentActions.GetAttachmentAction(id)
		return resp, err
	})
	if err != nil || a == nil {
		return AttachmentAction{}, orMissing(err, "attachment action")
	}
	out := AttachmentAction{
		ID:        a.ID,
		MessageID: a.MessageID,
		PersonID:  a.PersonID,
		RoomID:    a.RoomID,
		Inputs:    make(map[string]any, len(a.Inputs)),
	}
	for k, v := range a.Inputs {
		out.Inputs[k] = v
	}
	return out, nil
}

// CreateMessage posts a message.
func (c *Client) CreateMessage(ctx context.Context, req MessageRequest) (Message, error) {
	body := &webexteams.MessageCreateRequest{
		RoomID:        req.RoomID,
		ToPersonEmail: req.ToPersonEmail,
		Text:          req.Text,
		Markdown:      req.Markdown,
	}
	for _, att := range req.Attachments {
		body.Attachments = append(body.Attachments, webexteams.Attachment{
			ContentType: att.ContentType,
			Content:     att.Content,
		})
	}
	var m *webexteams.Message
	err := call(ctx, http.MethodPost, "/messages", func() (response, error) {
		var resp response
		var err error
		m, resp, err = c.sdk.Messages.CreateMessage(body)
		return resp, err
	})
	if err != nil {
		return Message{}, err
	}
	if m == nil {
		return Message{}, nil
	}
	return fromSDKMessage(m), nil
}

func fromSDKMessage(m *webexteams.Message) Message {
	return Message{
		ID:          m.ID,
		RoomID:      m.RoomID,
		PersonID:    m.PersonID,
		PersonEmail: m.PersonEmail,
		Text:        m.Text,
	}
}

// response is what the SDK hands back next to every result.
type response interface {
	IsError() bool
	StatusCode() int
	Body() []byte
	Header() http.Header
}

// call runs an SDK request and maps its outcome. The SDK takes no context, so a done ctx
// abandons the request instead of cancelling it.
func call(ctx context.Context, method, path string, do func() (response, error)) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("webex: %s %s: %w", method, path, err)
	}
	type outcome struct {
		resp response
		err  error
	}
	done := make(chan outcome, 1)
	start := time.Now()
	go func() {
		resp, err := do()
		done <- outcome{resp: resp, err: err}
	}()

	select {
	case <-ctx.Done():
		err := fmt.Errorf("webex: %s %s: %w", method, path, ctx.Err())
		logCall(ctx, method, path, 0, start, err)
		return err
	case out := <-done:
		if out.err != nil {
			err := fmt.Errorf("webex: %s %s: %w", method, path, out.err)
			logCall(ctx, method, path, 0, start, err)
			return err
		}
		if out.resp == nil {
			logCall(ctx, method, path, 0, start, nil)
			return nil
		}
		if out.resp.IsError() {
			apiErr := newAPIError(out.resp)
			logCall(ctx, method, path, apiErr.Status, start, apiErr)
			return apiErr
		}
		logCall(ctx, method, path, out.resp.StatusCode(), start, nil)
		return nil
	}
}

func newAPIError(resp response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode(), TrackingID: resp.Header().Get("Trackingid")}
	var payload struct {
		Message    string `json:"message"`
		TrackingID string `json:"trackingId"`
	}
	if err := json.Unmarshal(resp.Body(), &payload); err == nil {
		apiErr.Message = payload.Message
		if payload.TrackingID != "" {
			apiErr.TrackingID = payload.TrackingID
		}
	}
	return apiErr
}

func orMissing(err error, what string) error {
	if err != nil {
		return err
	}
	return errors.New("webex: empty " + what + " in response")
}

func logCall(ctx context.Context, method, path string, status int, start time.Time, err error) {
	level := slog.LevelDebug
	attrs := []slog.Attr{
		slog.String("status", "ok"),
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("http_status", status),
		slog.Duration("duration", time.Since(start)),
	}
	if err != nil {
		level = slog.LevelWarn
		attrs[0] = slog.String("status", "fail")
		attrs = append(attrs, slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
	} else if keep, _ := logger.Sample("webex." + method); !keep {
		return
	}
	logger.LogEvent(ctx, logger.Webex, level, "api.call", attrs...)
}
