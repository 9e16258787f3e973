package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/m3rciful/roombot/core/chat"
	"github.com/m3rciful/roombot/core/webex"
)

type sink struct{ messages int }

func (s *sink) OnMessage(context.Context, chat.MessageEvent)       { s.messages++ }
func (s *sink) OnSubmission(context.Context, chat.SubmissionEvent) {}

func TestServerRoutes(t *testing.T) {
	sk := &sink{}
	srv := New(Options{Listen: "127.0.0.1", Port: 0, Routes: []Route{
		{Pattern: "POST " + webex.MessagesPath, Handler: webex.MessagesHandler(sk, time.Second)},
		{Pattern: "POST /boom", Handler: http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })},
	}})
	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", rec.Code, rec.Body.String())
	}

	body := `{"data":{"id":"m1","roomId":"R","personId":"p"}}`
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, webex.MessagesPath, strings.NewReader(body)))
	if rec.Code != http.StatusOK || sk.messages != 1 {
		t.Fatalf("webhook = %d messages=%d", rec.Code, sk.messages)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/boom", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("panic route = %d", rec.Code)
	}
}

func TestServerRunStopsOnCancel(t *testing.T) {
	srv := New(Options{Listen: "127.0.0.1", Port: 0})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
