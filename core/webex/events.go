package webex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/m3rciful/roombot/core/chat"
	"github.com/m3rciful/roombot/core/logger"
)

// Paths the webhook listener serves.
const (
	MessagesPath          = "/messages_webhook"
	AttachmentActionsPath = "/attachmentActions_webhook"
)

// Envelope is the body of a webhook delivery.
type Envelope struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Resource string          `json:"resource"`
	Event    string          `json:"event"`
	Data     json.RawMessage `json:"data"`
}

// DecodeMessageEvent parses a messages/created delivery.
func DecodeMessageEvent(r io.Reader) (chat.MessageEvent, error) {
	var env Envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return chat.MessageEvent{}, fmt.Errorf("webex: decode envelope: %w", err)
	}
	var data struct {
		ID          string `json:"id"`
		RoomID      string `json:"roomId"`
		PersonID    string `json:"personId"`
		PersonEmail string `json:"personEmail"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return chat.MessageEvent{}, fmt.Errorf("webex: decode message data: %w", err)
	}
	if data.ID == "" {
		return chat.MessageEvent{}, errors.New("webex: message event without id")
	}
	return chat.MessageEvent{
		ID:          data.ID,
		SenderID:    data.PersonID,
		SenderEmail: data.PersonEmail,
		RoomID:      data.RoomID,
		MessageRef:  data.ID,
	}, nil
}

// DecodeSubmissionEvent parses an attachmentActions/created delivery.
func DecodeSubmissionEvent(r io.Reader) (chat.SubmissionEvent, error) {
	var env Envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return chat.SubmissionEvent{}, fmt.Errorf("webex: decode envelope: %w", err)
	}
	var data struct {
		ID       string `json:"id"`
		RoomID   string `json:"roomId"`
		PersonID string `json:"personId"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return chat.SubmissionEvent{}, fmt.Errorf("webex: decode attachment data: %w", err)
	}
	if data.ID == "" {
		return chat.SubmissionEvent{}, errors.New("webex: attachment event without id")
	}
	return chat.SubmissionEvent{
		ID:            data.ID,
		SubmissionRef: data.ID,
		SubmitterID:   data.PersonID,
		RoomID:        data.RoomID,
	}, nil
}

// EventSink receives decoded webhook events.
type EventSink interface {
	OnMessage(ctx context.Context, ev chat.MessageEvent)
	OnSubmission(ctx context.Context, ev chat.SubmissionEvent)
}

// MessagesHandler serves MessagesPath. It always answers 200 so the platform does not
// redeliver; processing runs detached from the request with timeout.
func MessagesHandler(sink EventSink, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ev, err := DecodeMessageEvent(r.Body)
		if err != nil {
			logDecodeFailure(r.Context(), MessagesPath, err)
			w.WriteHeader(http.StatusOK)
			return
		}
		ctx, cancel := processingContext(r.Context(), timeout)
		defer cancel()
		sink.OnMessage(ctx, ev)
		w.WriteHeader(http.StatusOK)
	}
}

// AttachmentActionsHandler serves AttachmentActionsPath with the same contract as
// MessagesHandler.
func AttachmentActionsHandler(sink EventSink, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ev, err := DecodeSubmissionEvent(r.Body)
		if err != nil {
			logDecodeFailure(r.Context(), AttachmentActionsPath, err)
			w.WriteHeader(http.StatusOK)
			return
		}
		ctx, cancel := processingContext(r.Context(), timeout)
		defer cancel()
		sink.OnSubmission(ctx, ev)
		w.WriteHeader(http.StatusOK)
	}
}

func processingContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx := context.WithoutCancel(parent)
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func logDecodeFailure(ctx context.Context, path string, err error) {
	logger.LogEvent(ctx, logger.HTTP, slog.LevelWarn, "webhook.decode_failed",
		slog.String("status", "fail"),
		slog.String("path", path),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	)
}
