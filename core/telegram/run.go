// Package telegram drives the bot from Telegram updates through telebot.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/m3rciful/roombot/core/command"
	coreconfig "github.com/m3rciful/roombot/core/config"
	"github.com/m3rciful/roombot/core/logger"
	"github.com/m3rciful/roombot/core/netutil"
	tghelpers "github.com/m3rciful/roombot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// DefaultAPIURL is the public Bot API endpoint.
const DefaultAPIURL = "https://api.telegram.org"

// Options configures New.
type Options struct {
	Telegram   coreconfig.TelegramConfig
	Webhook    coreconfig.WebhookConfig
	HTTPClient *http.Client
	// APIURL overrides DefaultAPIURL.
	APIURL string
}

// Transport owns the telebot instance and the platform adapter built on it.
type Transport struct {
	bot      *tele.Bot
	poller   tele.Poller
	platform *Platform
	client   *http.Client
	apiURL   string
	opts     Options
}

// New creates the bot. It calls getMe, so the token is validated here.
func New(opts Options) (*Transport, error) {
	client := opts.HTTPClient
	if client == nil {
		client = netutil.NewHTTPClient(netutil.ClientOptions{})
	}
	apiURL := strings.TrimRight(opts.APIURL, "/")
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	poller := BuildPoller(opts.Telegram, opts.Webhook)

	start := time.Now()
	bot, err := tele.NewBot(tele.Settings{
		URL:     apiURL,
		Token:   opts.Telegram.Token,
		Poller:  poller,
		Client:  client,
		OnError: onError,
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	logMode(poller, opts.Telegram, time.Since(start))

	return &Transport{
		bot:      bot,
		poller:   poller,
		platform: NewPlatform(bot, bot.Me),
		client:   client,
		apiURL:   apiURL,
		opts:     opts,
	}, nil
}

// Platform returns the chat.Platform backed by this bot.
func (t *Transport) Platform() *Platform { return t.platform }

// Run routes updates to sink until ctx is done.
func (t *Transport) Run(ctx context.Context, sink Sink, reg *command.Registry) error {
	if _, ok := t.poller.(*tele.LongPoller); ok {
		if err := deleteWebhook(ctx, t.client, t.apiURL, t.opts.Telegram.Token, false); err != nil {
			logger.LogEvent(ctx, logger.TG, slog.LevelWarn, "delete_webhook",
				slog.String("status", "fail"),
				slog.String("mode", coreconfig.RunModeLongpoll),
				slog.String("err", err.Error()),
			)
		} else {
			logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "delete_webhook",
				slog.String("status", "ok"),
				slog.String("mode", coreconfig.RunModeLongpoll),
			)
		}
	}

	for _, route := range NewHandlers(t.platform, sink).Routes() {
		t.bot.Handle(route.Endpoint, route.Handler)
	}
	if reg != nil {
		InitBotCommands(t.bot, reg)
	}

	runDone := make(chan struct{})
	go func() {
		t.bot.Start()
		close(runDone)
	}()

	select {
	case <-ctx.Done():
		t.bot.Stop()
		<-runDone
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil
		}
		return ctx.Err()
	case <-runDone:
		return errors.New("telegram: poller stopped")
	}
}

func onError(err error, c tele.Context) {
	ctx := context.Background()
	if c != nil {
		ctx = tghelpers.BuildContext(c)
	}
	logger.LogEvent(ctx, logger.TG, slog.LevelError, "tg.error",
		slog.String("status", "fail"),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	)
}

func logMode(poller tele.Poller, tg coreconfig.TelegramConfig, took time.Duration) {
	ctx := context.Background()
	switch p := poller.(type) {
	case *tele.Webhook:
		logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "mode",
			slog.String("status", "ok"),
			slog.String("mode", coreconfig.RunModeWebhook),
			slog.String("listen", p.Listen),
			slog.String("public_url", p.Endpoint.PublicURL),
			slog.Duration("duration", logger.RoundMS(took)),
		)
	case *tele.LongPoller:
		logger.LogEvent(ctx, logger.TG, slog.LevelInfo, "mode",
			slog.String("status", "ok"),
			slog.String("mode", coreconfig.RunModeLongpoll),
			slog.Int("timeout_seconds", int(p.Timeout/time.Second)),
			slog.Duration("duration", logger.RoundMS(took)),
		)
	}
}

func deleteWebhook(ctx context.Context, client *http.Client, apiURL, token string, dropPending bool) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("telegram: empty token")
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	form := url.Values{}
	form.Set("drop_pending_updates", fmt.Sprint(dropPending))
	endpoint := fmt.Sprintf("%s/bot%s/deleteWebhook", apiURL, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := client.Do(req)
	if err != nil {
		// url.Error carries the request URL, which embeds the token.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			return fmt.Errorf("telegram: deleteWebhook: %w", uerr.Err)
		}
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram: deleteWebhook status: %s", resp.Status)
	}
	return nil
}
