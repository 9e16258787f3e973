package webex

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	webexteams "github.com/jbogarin/go-cisco-webex-teams/sdk"

	"github.com/m3rciful/roombot/core/logger"
)

// Webhook resources and events the bot subscribes to.
const (
	ResourceMessages          = "messages"
	ResourceAttachmentActions = "attachmentActions"
	EventCreated              = "created"
)

// Webhook is a registered webhook subscription.
type Webhook struct {
	ID        string
	Name      string
	TargetURL string
	Resource  string
	Event     string
	Filter    string
	Secret    string
}

// ListWebhooks returns the token's webhooks.
func (c *Client) ListWebhooks(ctx context.Context) ([]Webhook, error) {
	var page *webexteams.Webhooks
	err := call(ctx, http.MethodGet, "/webhooks", func() (response, error) {
		var resp response
		var err error
		page, resp, err = c.sdk.Webhooks.ListWebhooks(&webexteams.ListWebhooksQueryParams{Max: 100})
		return resp, err
	})
	if err != nil || page == nil {
		return nil, err
	}
	out := make([]Webhook, 0, len(page.Items))
	for _, wh := range page.Items {
		out = append(out, fromSDKWebhook(&wh))
	}
	return out, nil
}

// CreateWebhook registers wh.
func (c *Client) CreateWebhook(ctx context.Context, wh Webhook) (Webhook, error) {
	req := &webexteams.WebhookCreateRequest{
		Name:      wh.Name,
		TargetURL: wh.TargetURL,
		Resource:  wh.Resource,
		Event:     wh.Event,
		Filter:    wh.Filter,
		Secret:    wh.Secret,
	}
	var created *webexteams.Webhook
	err := call(ctx, http.MethodPost, "/webhooks", func() (response, error) {
		var resp response
		var err error
		created, resp, err = c.sdk.Webhooks.CreateWebhook(req)
		return resp, err
	})
	if err != nil || created == nil {
		return Webhook{}, orMissing(err, "webhook")
	}
	return fromSDKWebhook(created), nil
}

// DeleteWebhook removes a webhook by id.
func (c *Client) DeleteWebhook(ctx context.Context, id string) error {
	return call(ctx, http.MethodDelete, "/webhooks/{id}", func() (response, error) {
		return c.sdk.Webhooks.DeleteWebhook(id)
	})
}

func fromSDKWebhook(wh *webexteams.Webhook) Webhook {
	return Webhook{
		ID:        wh.ID,
		Name:      wh.Name,
		TargetURL: wh.TargetURL,
		Resource:  wh.Resource,
		Event:     wh.Event,
		Filter:    wh.Filter,
		Secret:    wh.Secret,
	}
}

// EnsureWebhook deletes webhooks named like wh and registers wh afresh.
func EnsureWebhook(ctx context.Context, api API, wh Webhook) (Webhook, error) {
	existing, err := api.ListWebhooks(ctx)
	if err != nil {
		return Webhook{}, fmt.Errorf("webex: list webhooks: %w", err)
	}
	for _, old := range existing {
		if old.Name != wh.Name {
			continue
		}
		if err := api.DeleteWebhook(ctx, old.ID); err != nil {
			return Webhook{}, fmt.Errorf("webex: delete webhook %s: %w", old.Name, err)
		}
		logger.LogEvent(ctx, logger.Wire, slog.LevelInfo, "webhook.deleted",
			slog.String("status", "ok"),
			slog.String("name", old.Name),
			slog.String("target", old.TargetURL),
		)
	}
	created, err := api.CreateWebhook(ctx, wh)
	if err != nil {
		return Webhook{}, fmt.Errorf("webex: create webhook %s: %w", wh.Name, err)
	}
	logger.LogEvent(ctx, logger.Wire, slog.LevelInfo, "webhook.registered",
		slog.String("status", "ok"),
		slog.String("name", created.Name),
		slog.String("target", created.TargetURL),
		slog.String("resource", created.Resource),
	)
	return created, nil
}

// BotWebhooks returns the message and card-submission subscriptions for a bot reachable at
// publicURL.
func BotWebhooks(publicURL string) []Webhook {
	base := strings.TrimRight(publicURL, "/")
	return []Webhook{
		{
			Name:      "messages_webhook",
			TargetURL: base + MessagesPath,
			Resource:  ResourceMessages,
			Event:     EventCreated,
		},
		{
			Name:      "attachmentActions_webhook",
			TargetURL: base + AttachmentActionsPath,
			Resource:  ResourceAttachmentActions,
			Event:     EventCreated,
		},
	}
}

// RegisterBotWebhooks ensures every webhook from BotWebhooks.
func RegisterBotWebhooks(ctx context.Context, api API, publicURL string) error {
	for _, wh := range BotWebhooks(publicURL) {
		if _, err := EnsureWebhook(ctx, api, wh); err != nil {
			return err
		}
	}
	return nil
}
