package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m3rciful/roombot/core/cards"
	"github.com/m3rciful/roombot/core/chat"
	"github.com/m3rciful/roombot/core/command"
	"github.com/m3rciful/roombot/core/game"
	"github.com/m3rciful/roombot/core/poll"
	"github.com/m3rciful/roombot/core/sender"
)

type sent struct {
	room   string
	person string
	text   string
	card   *cards.Card
}

type fakePlatform struct {
	mu        sync.Mutex
	selfID    string
	selfCalls int
	selfErr   error
	texts     map[string]string
	inputs    map[string]map[string]string
	emails    map[string]string
	sendErr   func(n int) error
	sends     int
	out       []sent
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		selfID: "bot",
		texts:  make(map[string]string),
		inputs: make(map[string]map[string]string),
		emails: make(map[string]string),
	}
}

func (f *fakePlatform) Self(context.Context) (chat.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selfCalls++
	if f.selfErr != nil {
		return chat.Identity{}, f.selfErr
	}
	return chat.Identity{ID: f.selfID}, nil
}

func (f *fakePlatform) MessageText(_ context.Context, ref string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	text, ok := f.texts[ref]
	if !ok {
		return "", errors.New("no such message")
	}
	return text, nil
}

func (f *fakePlatform) SubmissionInputs(_ context.Context, ref string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	in, ok := f.inputs[ref]
	if !ok {
		return nil, errors.New("no such submission")
	}
	return in, nil
}

func (f *fakePlatform) PersonEmail(_ context.Context, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email, ok := f.emails[id]
	if !ok {
		return "", errors.New("unknown person")
	}
	return email, nil
}

func (f *fakePlatform) send(s sent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends++
	if f.sendErr != nil {
		if err := f.sendErr(f.sends); err != nil {
			return err
		}
	}
	f.out = append(f.out, s)
	return nil
}

func (f *fakePlatform) SendToRoom(_ context.Context, roomID, text string, card *cards.Card) error {
	return f.send(sent{room: roomID, text: text, card: card})
}

func (f *fakePlatform) SendToPerson(_ context.Context, email, text string, card *cards.Card) error {
	return f.send(sent{person: email, text: text, card: card})
}

func (f *fakePlatform) sent() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sent(nil), f.out...)
}

func newTestRouter(t *testing.T, p *fakePlatform, opts Options) *Router {
	t.Helper()
	r := NewRouter(p, command.NewRegistry(), opts)
	pick := func() game.Country { return game.Country{Name: "France", Flag: "🇫🇷"} }
	if err := Install(r,
		poll.NewModule(poll.NewService(), nil),
		game.NewModule(game.NewService(pick), nil),
	); err != nil {
		t.Fatalf("install: %v", err)
	}
	return r
}

func message(p *fakePlatform, id, sender, room, text string) chat.MessageEvent {
	p.mu.Lock()
	p.texts[id] = text
	p.mu.Unlock()
	return chat.MessageEvent{ID: id, SenderID: sender, SenderEmail: sender + "@example.com", RoomID: room, MessageRef: id}
}

func submission(p *fakePlatform, id, submitter string, inputs map[string]string) chat.SubmissionEvent {
	p.mu.Lock()
	p.inputs[id] = inputs
	p.mu.Unlock()
	return chat.SubmissionEvent{ID: id, SubmissionRef: id, SubmitterID: submitter}
}

func TestRouterIgnoresSelfAndCachesIdentity(t *testing.T) {
	p := newFakePlatform()
	r := newTestRouter(t, p, Options{})
	ctx := context.Background()

	r.OnMessage(ctx, message(p, "m1", "bot", "R", "Bot help"))
	r.OnMessage(ctx, message(p, "m2", "u1", "R", "Bot help"))
	r.OnMessage(ctx, message(p, "m3", "u1", "R", "Bot dance"))

	out := p.sent()
	if len(out) != 1 || !strings.HasPrefix(out[0].text, "Here are the available commands:") {
		t.Fatalf("sent = %#v", out)
	}
	if !strings.Contains(out[0].text, "- **create poll**") || !strings.Contains(out[0].text, "- **guess <country_name>**") {
		t.Fatalf("help = %q", out[0].text)
	}
	if p.selfCalls != 1 {
		t.Fatalf("self calls = %d", p.selfCalls)
	}
}

func TestRouterSelfLookupFailureDropsEvent(t *testing.T) {
	p := newFakePlatform()
	p.selfErr = errors.New("api down")
	r := newTestRouter(t, p, Options{})
	r.OnMessage(context.Background(), message(p, "m1", "u1", "R", "Bot help"))
	if len(p.sent()) != 0 {
		t.Fatal("event must be dropped without self identity")
	}
	p.selfErr = nil
	r.OnMessage(context.Background(), message(p, "m2", "u1", "R", "Bot help"))
	if len(p.sent()) != 1 || p.selfCalls != 2 {
		t.Fatalf("sent=%d self calls=%d", len(p.sent()), p.selfCalls)
	}
}

func TestRouterPollEndToEnd(t *testing.T) {
	p := newFakePlatform()
	p.emails["author-id"] = "author@example.com"
	p.emails["voter-id"] = "voter@example.com"
	r := newTestRouter(t, p, Options{})
	ctx := context.Background()

	r.OnMessage(ctx, message(p, "m1", "author", "R", "Bot create poll"))
	out := p.sent()
	if len(out) != 1 || out[0].person != "author@example.com" || out[0].card == nil {
		t.Fatalf("create = %#v", out)
	}

	r.OnSubmission(ctx, submission(p, "s1", "author-id", map[string]string{
		chat.FieldRoomID: "R", chat.FieldPollName: "Pets", chat.FieldPollDescription: "",
	}))
	for _, opt := range []string{"Cats", "Dogs"} {
		r.OnSubmission(ctx, submission(p, "opt"+opt, "voter-id", map[string]string{
			chat.FieldRoomID: "R", chat.FieldOptionText: opt,
		}))
	}
	r.OnMessage(ctx, message(p, "m2", "author", "R", "Bot start poll"))
	for i, choice := range []string{"0", "0", "0", "1"} {
		r.OnSubmission(ctx, submission(p, "v"+string(rune('a'+i)), "voter-id", map[string]string{
			chat.FieldRoomID: "R", chat.FieldPollChoice: choice,
		}))
	}
	r.OnMessage(ctx, message(p, "m3", "author", "R", "Bot end poll"))

	out = p.sent()
	texts := make([]string, 0, len(out))
	for _, s := range out {
		texts = append(texts, s.text)
	}
	want := []string{
		cards.FallbackText,
		"Poll created with title: Pets",
		`Option added to poll "Pets": Cats`,
		`Option added to poll "Pets": Dogs`,
		cards.FallbackText,
		cards.FallbackText,
	}
	if len(texts) != len(want) {
		t.Fatalf("texts = %q", texts)
	}
	for i := range want {
		if texts[i] != want[i] {
			t.Fatalf("texts[%d] = %q, want %q", i, texts[i], want[i])
		}
	}
	var facts []cards.Fact
	for _, el := range out[len(out)-1].card.Body {
		if f, ok := el.(cards.Fact); ok {
			facts = append(facts, f)
		}
	}
	if len(facts) != 2 || facts[0].Value != "3" || facts[1].Value != "1" {
		t.Fatalf("results = %#v", facts)
	}
}

func TestRouterIgnoresUnknownSubmission(t *testing.T) {
	p := newFakePlatform()
	r := newTestRouter(t, p, Options{})
	r.OnSubmission(context.Background(), submission(p, "s1", "u", map[string]string{"color": "blue"}))
	r.OnSubmission(context.Background(), chat.SubmissionEvent{ID: "missing", SubmissionRef: "missing"})
	if len(p.sent()) != 0 {
		t.Fatalf("sent = %#v", p.sent())
	}
}

func TestRouterGuessRepliesInOrder(t *testing.T) {
	p := newFakePlatform()
	d := sender.NewDispatcher(sender.Options{Workers: 1, RetryBackoff: time.Millisecond})
	r := newTestRouter(t, p, Options{Dispatcher: d})
	ctx := context.Background()

	r.OnMessage(ctx, message(p, "m1", "u1", "R", "Bot start game"))
	r.OnMessage(ctx, message(p, "m2", "u1", "R", "Bot guess FRANCE"))
	d.Close()

	out := p.sent()
	if len(out) != 3 {
		t.Fatalf("sent = %#v", out)
	}
	if out[1].text != "Correct, u1@example.com! Your score has been updated." || out[2].text != "New Flag! Guess again!" {
		t.Fatalf("guess replies = %q, %q", out[1].text, out[2].text)
	}
}

type deliveryCheckRecorder struct {
	p          *fakePlatform
	sentBefore []sent
	calls      int
}

func (r *deliveryCheckRecorder) RecordGame(context.Context, game.Game) error {
	r.calls++
	r.sentBefore = r.p.sent()
	return nil
}

func TestRouterArchivesAfterStopReply(t *testing.T) {
	p := newFakePlatform()
	rec := &deliveryCheckRecorder{p: p}
	d := sender.NewDispatcher(sender.Options{Workers: 1, RetryBackoff: time.Millisecond})
	r := NewRouter(p, command.NewRegistry(), Options{Dispatcher: d})
	pick := func() game.Country { return game.Country{Name: "France", Flag: "🇫🇷"} }
	if err := Install(r, game.NewModule(game.NewService(pick), rec)); err != nil {
		t.Fatalf("install: %v", err)
	}
	ctx := context.Background()

	r.OnMessage(ctx, message(p, "m1", "u1", "R", "Bot start game"))
	r.OnMessage(ctx, message(p, "m2", "u1", "R", "Bot stop game"))
	d.Close()

	if rec.calls != 1 {
		t.Fatalf("archive calls = %d", rec.calls)
	}
	last := rec.sentBefore[len(rec.sentBefore)-1]
	if last.text != "Game has been stopped. Thanks for playing!" {
		t.Fatalf("archive ran before the stop reply, last sent = %q", last.text)
	}
}

type transientErr struct{}

func (transientErr) Error() string   { return "503" }
func (transientErr) Retryable() bool { return true }

func TestRouterRetryResumesFromFailedReply(t *testing.T) {
	p := newFakePlatform()
	p.sendErr = func(n int) error {
		if n == 3 {
			return transientErr{}
		}
		return nil
	}
	d := sender.NewDispatcher(sender.Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})
	r := newTestRouter(t, p, Options{Dispatcher: d})
	ctx := context.Background()

	r.OnMessage(ctx, message(p, "m1", "u1", "R", "Bot start game"))
	r.OnMessage(ctx, message(p, "m2", "u1", "R", "Bot guess france"))
	d.Close()

	out := p.sent()
	if len(out) != 3 || out[1].text != "Correct, u1@example.com! Your score has been updated." || out[2].text != "New Flag! Guess again!" {
		t.Fatalf("sent = %#v", out)
	}
}

func TestRouterRateLimit(t *testing.T) {
	p := newFakePlatform()
	r := newTestRouter(t, p, Options{RateLimit: RateLimitOptions{
		Interval: time.Hour,
		Exclude:  map[string]struct{}{KindSubmission: {}},
	}})
	ctx := context.Background()
	r.OnMessage(ctx, message(p, "m1", "u1", "R", "Bot help"))
	r.OnMessage(ctx, message(p, "m2", "u1", "R", "Bot help"))
	r.OnMessage(ctx, message(p, "m3", "u2", "R", "Bot help"))
	if got := len(p.sent()); got != 2 {
		t.Fatalf("sent = %d", got)
	}
}

func TestRouterRecoversPanics(t *testing.T) {
	p := newFakePlatform()
	reg := command.NewRegistry()
	_ = reg.Register(command.Spec{Name: command.Help, Description: "boom", Handler: func(context.Context, chat.Request) []chat.Reply {
		panic("boom")
	}})
	r := NewRouter(p, reg, Options{})
	r.OnMessage(context.Background(), message(p, "m1", "u1", "R", "Bot help"))
	if len(p.sent()) != 0 {
		t.Fatal("panicking handler must not reply")
	}
}

func TestRouterConcurrentRooms(t *testing.T) {
	p := newFakePlatform()
	r := newTestRouter(t, p, Options{})
	ctx := context.Background()

	rooms := []string{"R1", "R2", "R3", "R4"}
	for _, room := range rooms {
		r.OnMessage(ctx, message(p, "start-"+room, "u1", room, "Bot start game"))
	}
	var wg sync.WaitGroup
	for _, room := range rooms {
		for i := 0; i < 25; i++ {
			ev := message(p, room+"-"+string(rune('a'+i)), "u2", room, "Bot guess france")
			wg.Add(1)
			go func() {
				defer wg.Done()
				r.OnMessage(ctx, ev)
			}()
		}
	}
	wg.Wait()

	correct := 0
	for _, s := range p.sent() {
		if strings.HasPrefix(s.text, "Correct,") {
			correct++
		}
	}
	if correct != len(rooms)*25 {
		t.Fatalf("correct replies = %d", correct)
	}
}
