package webex

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/m3rciful/roombot/core/cards"
	"github.com/m3rciful/roombot/core/netutil"
)

// fakeAPI is an in-memory API.
type fakeAPI struct {
	mu       sync.Mutex
	me       Person
	people   map[string]Person
	messages map[string]Message
	actions  map[string]AttachmentAction
	sent     []MessageRequest
	hooks    []Webhook
	deleted  []string
	created  []Webhook
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		me:       Person{ID: "bot-id", Emails: []string{"bot@webex.bot"}, DisplayName: "Bot"},
		people:   map[string]Person{},
		messages: map[string]Message{},
		actions:  map[string]AttachmentAction{},
	}
}

var errNotFound = &APIError{Status: http.StatusNotFound, Message: "not found"}

func (f *fakeAPI) Me(context.Context) (Person, error) { return f.me, nil }

func (f *fakeAPI) GetPerson(_ context.Context, id string) (Person, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.people[id]
	if !ok {
		return Person{}, errNotFound
	}
	return p, nil
}

func (f *fakeAPI) GetMessage(_ context.Context, id string) (Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[id]
	if !ok {
		return Message{}, errNotFound
	}
	return m, nil
}

func (f *fakeAPI) GetAttachmentAction(_ context.Context, id string) (AttachmentAction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.actions[id]
	if !ok {
		return AttachmentAction{}, errNotFound
	}
	return a, nil
}

func (f *fakeAPI) CreateMessage(_ context.Context, req MessageRequest) (Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, req)
	return Message{ID: "m-new", RoomID: req.RoomID}, nil
}

func (f *fakeAPI) ListWebhooks(context.Context) ([]Webhook, error) {
	return append([]Webhook(nil), f.hooks...), nil
}

func (f *fakeAPI) CreateWebhook(_ context.Context, wh Webhook) (Webhook, error) {
	f.created = append(f.created, wh)
	wh.ID = "new-" + wh.Name
	return wh, nil
}

func (f *fakeAPI) DeleteWebhook(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeResponse struct {
	status int
	body   string
	header http.Header
}

func (r fakeResponse) IsError() bool       { return r.status > 399 }
func (r fakeResponse) StatusCode() int     { return r.status }
func (r fakeResponse) Body() []byte        { return []byte(r.body) }
func (r fakeResponse) Header() http.Header { return r.header }

func TestCallMapsErrorResponses(t *testing.T) {
	cases := []struct {
		status    int
		retryable bool
	}{
		{http.StatusNotFound, false},
		{http.StatusTooManyRequests, true},
		{http.StatusBadGateway, true},
	}
	for _, tc := range cases {
		resp := fakeResponse{
			status: tc.status,
			body:   `{"message":"nope","trackingId":"body-track"}`,
			header: http.Header{"Trackingid": []string{"hdr-track"}},
		}
		err := call(context.Background(), http.MethodGet, "/messages/{id}", func() (response, error) {
			return resp, nil
		})
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("status %d: err = %v", tc.status, err)
		}
		if apiErr.Status != tc.status || apiErr.Message != "nope" || apiErr.TrackingID != "body-track" {
			t.Fatalf("api error = %+v", apiErr)
		}
		if netutil.ShouldRetry(err) != tc.retryable {
			t.Fatalf("status %d retryable = %v", tc.status, !tc.retryable)
		}
	}
}

func TestCallTrackingIDFromHeader(t *testing.T) {
	err := call(context.Background(), http.MethodPost, "/messages", func() (response, error) {
		return fakeResponse{status: 500, body: "<html>", header: http.Header{"Trackingid": []string{"hdr-track"}}}, nil
	})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.TrackingID != "hdr-track" || apiErr.Message != "" {
		t.Fatalf("err = %#v", err)
	}
	if got := apiErr.Error(); got != "webex: 500 Internal Server Error (tracking id hdr-track)" {
		t.Fatalf("message = %q", got)
	}
}

func TestCallSuccessAndTransportError(t *testing.T) {
	ok := call(context.Background(), http.MethodGet, "/people/me", func() (response, error) {
		return fakeResponse{status: 200, header: http.Header{}}, nil
	})
	if ok != nil {
		t.Fatalf("ok call = %v", ok)
	}
	dial := errors.New("dial tcp: connection refused")
	err := call(context.Background(), http.MethodGet, "/people/me", func() (response, error) {
		return nil, dial
	})
	if !errors.Is(err, dial) {
		t.Fatalf("err = %v", err)
	}
}

func TestCallHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ran := false
	err := call(ctx, http.MethodGet, "/people/me", func() (response, error) {
		ran = true
		return nil, nil
	})
	if !errors.Is(err, context.Canceled) || ran {
		t.Fatalf("canceled call: err = %v ran = %v", err, ran)
	}

	ctx, cancel = context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	release := make(chan struct{})
	defer close(release)
	err = call(ctx, http.MethodGet, "/messages/{id}", func() (response, error) {
		<-release
		return fakeResponse{status: 200}, nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("slow call err = %v", err)
	}
}

func TestPlatformSelf(t *testing.T) {
	self, err := NewPlatform(newFakeAPI()).Self(context.Background())
	if err != nil {
		t.Fatalf("self: %v", err)
	}
	if self.ID != "bot-id" || self.Email != "bot@webex.bot" || self.DisplayName != "Bot" {
		t.Fatalf("self = %+v", self)
	}
}

func TestPlatformSubmissionInputs(t *testing.T) {
	api := newFakeAPI()
	api.actions["a1"] = AttachmentAction{
		ID:     "a1",
		Inputs: map[string]any{"roomId": "R", "pollChoice": "1", "count": float64(2), "empty": nil},
	}
	inputs, err := NewPlatform(api).SubmissionInputs(context.Background(), "a1")
	if err != nil {
		t.Fatalf("inputs: %v", err)
	}
	if inputs["roomId"] != "R" || inputs["pollChoice"] != "1" || inputs["count"] != "2" || inputs["empty"] != "" {
		t.Fatalf("inputs = %v", inputs)
	}
	if _, err := NewPlatform(api).SubmissionInputs(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for unknown action")
	}
}

func TestPlatformPersonEmail(t *testing.T) {
	api := newFakeAPI()
	api.people["p1"] = Person{ID: "p1", Emails: []string{"p1@example.com", "alt@example.com"}}
	api.people["p2"] = Person{ID: "p2"}
	p := NewPlatform(api)
	if email, err := p.PersonEmail(context.Background(), "p1"); err != nil || email != "p1@example.com" {
		t.Fatalf("email = %q err = %v", email, err)
	}
	if _, err := p.PersonEmail(context.Background(), "p2"); err == nil {
		t.Fatal("expected error for person without email")
	}
}

func TestPlatformSendCard(t *testing.T) {
	api := newFakeAPI()
	p := NewPlatform(api)
	card := &cards.Card{Body: []cards.Element{cards.Text{Text: "hi"}}}
	if err := p.SendToPerson(context.Background(), "a@example.com", cards.FallbackText, card); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := p.SendToRoom(context.Background(), "R", "**bold**", nil); err != nil {
		t.Fatalf("send: %v", err)
	}

	direct, room := api.sent[0], api.sent[1]
	if direct.ToPersonEmail != "a@example.com" || direct.RoomID != "" {
		t.Fatalf("direct = %+v", direct)
	}
	if len(direct.Attachments) != 1 || direct.Attachments[0].ContentType != AdaptiveCardContentType {
		t.Fatalf("attachments = %+v", direct.Attachments)
	}
	if room.RoomID != "R" || room.Markdown != "**bold**" || room.Text != "**bold**" || room.Attachments != nil {
		t.Fatalf("room = %+v", room)
	}
}
