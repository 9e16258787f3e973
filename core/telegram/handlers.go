package telegram

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/m3rciful/roombot/core/chat"
	"github.com/m3rciful/roombot/core/logger"
	"github.com/m3rciful/roombot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/roombot/core/telegram/helpers"
	"github.com/m3rciful/roombot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

const cancelCommand = "/cancel"

// Sink receives the chat events produced from Telegram updates.
type Sink interface {
	OnMessage(ctx context.Context, ev chat.MessageEvent)
	OnSubmission(ctx context.Context, ev chat.SubmissionEvent)
}

// Inbound is the part of a Telegram update the handlers act on.
type Inbound struct {
	UpdateID int
	ChatID   int64
	Private  bool
	User     *tele.User
	Text     string
	// CallbackKey and Payload are set for button presses.
	CallbackKey string
	Payload     string
}

// Handlers turns updates into chat events for a Sink.
type Handlers struct {
	platform *Platform
	sink     Sink
}

// NewHandlers binds platform state to sink.
func NewHandlers(p *Platform, sink Sink) *Handlers {
	return &Handlers{platform: p, sink: sink}
}

// Route declares a single bot handler bound to an endpoint.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// Routes returns the text and callback routes wrapped in the shared middlewares.
func (h *Handlers) Routes() []Route {
	wrap := func(fn tele.HandlerFunc) tele.HandlerFunc {
		return middleware.RecoverMiddleware(middleware.LoggerMiddleware(fn))
	}
	return []Route{
		{Endpoint: tele.OnText, Handler: wrap(h.onText)},
		{Endpoint: tele.OnCallback, Handler: wrap(h.onCallback)},
	}
}

func (h *Handlers) onText(c tele.Context) error {
	h.Text(tghelpers.BuildContext(c), inbound(c))
	return nil
}

func (h *Handlers) onCallback(c tele.Context) error {
	in := inbound(c)
	in.CallbackKey, in.Payload = callbacks.ParseCallbackData(c.Callback())
	_ = c.Respond()
	h.Callback(tghelpers.BuildContext(c), in)
	return nil
}

func inbound(c tele.Context) Inbound {
	in := Inbound{UpdateID: c.Update().ID, User: c.Sender(), Text: c.Text()}
	if ch := c.Chat(); ch != nil {
		in.ChatID = ch.ID
		in.Private = ch.Type == tele.ChatPrivate
	}
	return in
}

// Text handles a text message: a form answer in private chats, otherwise a command.
func (h *Handlers) Text(ctx context.Context, in Inbound) {
	if in.User == nil {
		return
	}
	h.platform.dir.Remember(in.User)
	forms := h.platform.forms

	if in.Private && forms.InProgress(in.User.ID) {
		h.answer(ctx, in)
		return
	}

	text, ok := commandText(in.Text, h.platform.me, in.Private)
	if !ok {
		return
	}
	h.sink.OnMessage(ctx, chat.MessageEvent{
		ID:          strconv.Itoa(in.UpdateID),
		SenderID:    strconv.FormatInt(in.User.ID, 10),
		SenderEmail: Handle(in.User),
		RoomID:      strconv.FormatInt(in.ChatID, 10),
		MessageRef:  h.platform.inbox.PutText(text),
	})
}

// Callback handles an inline button press on a choice set.
func (h *Handlers) Callback(ctx context.Context, in Inbound) {
	if in.User == nil {
		return
	}
	h.platform.dir.Remember(in.User)

	if in.CallbackKey != ChoiceUnique {
		logger.LogEvent(ctx, logger.TG, slog.LevelDebug, "callback.unknown",
			slog.String("status", "skip"),
			slog.String("cb_key", logger.SanitizeLimit(in.CallbackKey, 128)),
		)
		return
	}
	inputs, err := DecodeChoice(in.Payload)
	if err != nil {
		logger.LogEvent(ctx, logger.TG, slog.LevelWarn, "callback.decode",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return
	}
	h.submit(ctx, in, inputs)
}

func (h *Handlers) answer(ctx context.Context, in Inbound) {
	forms := h.platform.forms
	to := tele.ChatID(in.User.ID)
	if strings.TrimSpace(in.Text) == cancelCommand {
		forms.Cancel(in.User.ID)
		h.reply(ctx, to, "Form cancelled.")
		return
	}
	step, ok := forms.Answer(in.User.ID, in.Text)
	if !ok {
		return
	}
	if !step.Done {
		h.reply(ctx, to, step.Prompt)
		return
	}
	h.submit(ctx, in, step.Inputs)
}

func (h *Handlers) submit(ctx context.Context, in Inbound, inputs map[string]string) {
	h.sink.OnSubmission(ctx, chat.SubmissionEvent{
		ID:            strconv.Itoa(in.UpdateID),
		SubmissionRef: h.platform.inbox.PutInputs(inputs),
		SubmitterID:   strconv.FormatInt(in.User.ID, 10),
		RoomID:        inputs[chat.FieldRoomID],
	})
}

func (h *Handlers) reply(ctx context.Context, to tele.Recipient, text string) {
	if err := h.platform.send(to, text, nil, ""); err != nil {
		logger.LogEvent(ctx, logger.TG, slog.LevelWarn, "form.reply",
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	}
}

// commandText rewrites Telegram command forms into "<mention> <command>" so the
// parser can drop the leading token. "/start_poll@bot" becomes "@bot start poll".
// Group messages must mention the bot or use a slash command; private chats need neither.
func commandText(text string, me *tele.User, private bool) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	mention := "@bot"
	if me != nil && me.Username != "" {
		mention = "@" + me.Username
	}

	if strings.HasPrefix(text, "/") {
		first, rest, _ := strings.Cut(text, " ")
		name, target, addressed := strings.Cut(strings.TrimPrefix(first, "/"), "@")
		if addressed && me != nil && !strings.EqualFold(target, me.Username) {
			return "", false
		}
		cmd := mention + " " + strings.ReplaceAll(name, "_", " ")
		if rest != "" {
			cmd += " " + rest
		}
		return cmd, true
	}

	first, _, _ := strings.Cut(text, " ")
	if strings.EqualFold(first, mention) {
		return text, true
	}
	if private {
		return mention + " " + text, true
	}
	return "", false
}
