package telegram

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/m3rciful/roombot/core/bot"
	"github.com/m3rciful/roombot/core/chat"
	"github.com/m3rciful/roombot/core/command"
	"github.com/m3rciful/roombot/core/game"
	"github.com/m3rciful/roombot/core/poll"

	tele "gopkg.in/telebot.v4"
)

type sentMsg struct {
	to   string
	text string
	opts *tele.SendOptions
}

type fakeMessenger struct {
	mu   sync.Mutex
	sent []sentMsg
	err  error
}

func (f *fakeMessenger) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	m := sentMsg{to: to.Recipient(), text: what.(string)}
	if len(opts) > 0 {
		m.opts, _ = opts[0].(*tele.SendOptions)
	}
	f.sent = append(f.sent, m)
	return &tele.Message{}, nil
}

func (f *fakeMessenger) take() []sentMsg {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.sent
	f.sent = nil
	return out
}

var (
	botUser = &tele.User{ID: 1, Username: "roombot", FirstName: "Room"}
	alice   = &tele.User{ID: 10, Username: "alice"}
	bob     = &tele.User{ID: 20}
)

const groupID = int64(-1001)

func newTestBot(t *testing.T) (*Handlers, *fakeMessenger, *poll.Service) {
	t.Helper()
	api := &fakeMessenger{}
	platform := NewPlatform(api, botUser)
	polls := poll.NewService()
	router := bot.NewRouter(platform, command.NewRegistry(), bot.Options{})
	err := bot.Install(router,
		poll.NewModule(polls, nil),
		game.NewModule(game.NewService(func() game.Country { return game.Catalog[0] }), nil),
	)
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	return NewHandlers(platform, router), api, polls
}

func group(id int, u *tele.User, text string) Inbound {
	return Inbound{UpdateID: id, ChatID: groupID, User: u, Text: text}
}

func private(id int, u *tele.User, text string) Inbound {
	return Inbound{UpdateID: id, ChatID: u.ID, Private: true, User: u, Text: text}
}

func TestPollOverTelegram(t *testing.T) {
	h, api, polls := newTestBot(t)
	ctx := context.Background()

	h.Text(ctx, group(1, alice, "/create_poll@roombot"))
	sent := api.take()
	if len(sent) != 1 || sent[0].to != "10" || sent[0].text != "Please type your poll name below" {
		t.Fatalf("create: %+v", sent)
	}

	h.Text(ctx, private(2, alice, "Pets"))
	if sent = api.take(); len(sent) != 1 || sent[0].text != "Please type your poll description below" {
		t.Fatalf("name answer: %+v", sent)
	}
	h.Text(ctx, private(3, alice, "Cats or dogs"))
	sent = api.take()
	if len(sent) != 1 || sent[0].to != "-1001" || sent[0].text != "Poll created with title: Pets" {
		t.Fatalf("description answer: %+v", sent)
	}

	for i, opt := range []string{"Cats", "Dogs"} {
		h.Text(ctx, group(10+i*2, alice, "@roombot add option"))
		if sent = api.take(); len(sent) != 1 || sent[0].to != "10" {
			t.Fatalf("add option: %+v", sent)
		}
		h.Text(ctx, private(11+i*2, alice, opt))
		api.take()
	}

	h.Text(ctx, group(20, alice, "/start_poll"))
	sent = api.take()
	if len(sent) != 1 || sent[0].opts == nil || sent[0].opts.ReplyMarkup == nil {
		t.Fatalf("start: %+v", sent)
	}
	dogs := sent[0].opts.ReplyMarkup.InlineKeyboard[1][0]
	for i, u := range []*tele.User{alice, bob, alice} {
		h.Callback(ctx, Inbound{UpdateID: 30 + i, ChatID: groupID, User: u, CallbackKey: dogs.Unique, Payload: dogs.Data})
	}
	if sent = api.take(); len(sent) != 0 {
		t.Fatalf("votes must be silent: %+v", sent)
	}

	h.Text(ctx, group(40, alice, "/end_poll"))
	sent = api.take()
	if len(sent) != 1 || !strings.Contains(sent[0].text, "Dogs: *3*") || strings.Contains(sent[0].text, "Cats") {
		t.Fatalf("end: %+v", sent)
	}
	p, ok := polls.Get("-1001")
	if !ok || !p.Ended || p.Author != "@alice" {
		t.Fatalf("poll = %+v", p)
	}
}

func TestGroupTextNeedsMention(t *testing.T) {
	h, api, _ := newTestBot(t)
	ctx := context.Background()

	h.Text(ctx, group(1, bob, "start game"))
	if sent := api.take(); len(sent) != 0 {
		t.Fatalf("unaddressed text must be ignored: %+v", sent)
	}
	h.Text(ctx, group(2, bob, "@roombot start game"))
	sent := api.take()
	if len(sent) != 1 || !strings.HasPrefix(sent[0].text, "Game Started!") {
		t.Fatalf("start game: %+v", sent)
	}
	h.Text(ctx, group(3, bob, "/guess israel"))
	sent = api.take()
	if len(sent) != 2 || sent[0].text != "Correct, 20! Your score has been updated." {
		t.Fatalf("guess: %+v", sent)
	}
}

func TestFormCancel(t *testing.T) {
	h, api, polls := newTestBot(t)
	ctx := context.Background()

	h.Text(ctx, group(1, alice, "/create_poll"))
	api.take()
	h.Text(ctx, private(2, alice, "/cancel"))
	sent := api.take()
	if len(sent) != 1 || sent[0].text != "Form cancelled." {
		t.Fatalf("cancel: %+v", sent)
	}
	if p, _ := polls.Get("-1001"); p.Name != "" {
		t.Fatalf("poll must stay unnamed: %+v", p)
	}
}

func TestUnknownCallbackIgnored(t *testing.T) {
	h, api, _ := newTestBot(t)
	h.Callback(context.Background(), Inbound{UpdateID: 1, ChatID: groupID, User: alice, CallbackKey: "other", Payload: "x"})
	if sent := api.take(); len(sent) != 0 {
		t.Fatalf("sent = %+v", sent)
	}
}

func TestCommandText(t *testing.T) {
	cases := []struct {
		text    string
		private bool
		want    string
		ok      bool
	}{
		{"/create_poll", false, "@roombot create poll", true},
		{"/create_poll@roombot", false, "@roombot create poll", true},
		{"/create_poll@otherbot", false, "", false},
		{"/guess United States", false, "@roombot guess United States", true},
		{"@RoomBot help", false, "@RoomBot help", true},
		{"hello there", false, "", false},
		{"scoreboard", true, "@roombot scoreboard", true},
		{"   ", true, "", false},
	}
	for _, tc := range cases {
		got, ok := commandText(tc.text, botUser, tc.private)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("commandText(%q, %v) = %q, %v; want %q, %v", tc.text, tc.private, got, ok, tc.want, tc.ok)
		}
	}
}

var _ Sink = (*bot.Router)(nil)
var _ chat.Platform = (*Platform)(nil)
