package webex

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/m3rciful/roombot/core/chat"
)

type sinkStub struct {
	messages    []chat.MessageEvent
	submissions []chat.SubmissionEvent
	deadline    bool
}

func (s *sinkStub) OnMessage(ctx context.Context, ev chat.MessageEvent) {
	_, s.deadline = ctx.Deadline()
	s.messages = append(s.messages, ev)
}

func (s *sinkStub) OnSubmission(_ context.Context, ev chat.SubmissionEvent) {
	s.submissions = append(s.submissions, ev)
}

func TestMessagesHandler(t *testing.T) {
	sink := &sinkStub{}
	h := MessagesHandler(sink, time.Second)

	body := `{"id":"wh","resource":"messages","event":"created","data":{"id":"m1","roomId":"R","personId":"p1","personEmail":"p1@example.com"}}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, MessagesPath, strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	want := chat.MessageEvent{ID: "m1", SenderID: "p1", SenderEmail: "p1@example.com", RoomID: "R", MessageRef: "m1"}
	if len(sink.messages) != 1 || sink.messages[0] != want || !sink.deadline {
		t.Fatalf("messages = %+v deadline=%v", sink.messages, sink.deadline)
	}
}

func TestHandlersAnswerOKOnGarbage(t *testing.T) {
	sink := &sinkStub{}
	for _, h := range []http.Handler{MessagesHandler(sink, 0), AttachmentActionsHandler(sink, 0)} {
		for _, body := range []string{"not json", `{"data":{}}`, `{"data":"x"}`} {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
			if rec.Code != http.StatusOK {
				t.Fatalf("body %q: code = %d", body, rec.Code)
			}
		}
	}
	if len(sink.messages) != 0 || len(sink.submissions) != 0 {
		t.Fatalf("sink called: %+v %+v", sink.messages, sink.submissions)
	}
}

func TestAttachmentActionsHandler(t *testing.T) {
	sink := &sinkStub{}
	body := `{"resource":"attachmentActions","event":"created","data":{"id":"a1","roomId":"R","personId":"p1"}}`
	rec := httptest.NewRecorder()
	AttachmentActionsHandler(sink, 0).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, AttachmentActionsPath, strings.NewReader(body)))
	want := chat.SubmissionEvent{ID: "a1", SubmissionRef: "a1", SubmitterID: "p1", RoomID: "R"}
	if rec.Code != http.StatusOK || len(sink.submissions) != 1 || sink.submissions[0] != want {
		t.Fatalf("code=%d submissions=%+v", rec.Code, sink.submissions)
	}
}
