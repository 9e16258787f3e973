// Package app composes the configured platform, modules and background workers into a runnable bot.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/m3rciful/roombot/core/bootstrap"
	"github.com/m3rciful/roombot/core/bot"
	"github.com/m3rciful/roombot/core/chat"
	"github.com/m3rciful/roombot/core/command"
	coreconfig "github.com/m3rciful/roombot/core/config"
	"github.com/m3rciful/roombot/core/logger"
	"github.com/m3rciful/roombot/core/sender"
	"github.com/m3rciful/roombot/core/server"
	"github.com/m3rciful/roombot/core/telegram"
	"github.com/m3rciful/roombot/core/webex"
)

// Options configures New.
type Options struct {
	Config *coreconfig.Config
	// Recorder archives finished polls and games. Nil disables archiving.
	Recorder bootstrap.Recorder
	// HTTPClient is used for Telegram API calls. Nil uses the tuned default.
	HTTPClient *http.Client
	// WebexAPI replaces the SDK-backed Webex client.
	WebexAPI webex.API
	// FlushLogs runs once Run has stopped every component. Nil uses logger.Flush.
	FlushLogs func() error
}

// App is a fully wired bot.
type App struct {
	cfg        *coreconfig.Config
	router     *bot.Router
	dispatcher *sender.Dispatcher
	modules    bootstrap.Modules

	webex    webex.API
	telegram *telegram.Transport
	server   *server.Server

	flushLogs func() error
}

// New builds the platform adapter for cfg.Platform and installs the enabled modules.
func New(opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("app: nil config provided")
	}
	a := &App{cfg: cfg, flushLogs: opts.FlushLogs}
	if a.flushLogs == nil {
		a.flushLogs = logger.Flush
	}

	var platform chat.Platform
	switch cfg.Platform {
	case coreconfig.PlatformWebex:
		a.webex = opts.WebexAPI
		if a.webex == nil {
			a.webex = webex.NewClient(webex.Options{Token: cfg.Webex.Token})
		}
		platform = webex.NewPlatform(a.webex)
	case coreconfig.PlatformTelegram:
		tr, err := telegram.New(telegram.Options{Telegram: cfg.Telegram, Webhook: cfg.Webhook, HTTPClient: opts.HTTPClient})
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		a.telegram = tr
		platform = tr.Platform()
	default:
		return nil, fmt.Errorf("app: unsupported platform %q", cfg.Platform)
	}

	if !cfg.Dispatcher.Disabled {
		a.dispatcher = sender.NewDispatcher(sender.Options{
			QueueSize:    cfg.Dispatcher.QueueSize,
			Workers:      cfg.Dispatcher.Workers,
			MaxRetries:   cfg.Dispatcher.MaxRetries,
			RetryBackoff: time.Duration(cfg.Dispatcher.RetryBackoffMS) * time.Millisecond,
		})
	}

	a.router = bot.NewRouter(platform, command.NewRegistry(), bot.Options{
		Dispatcher: a.dispatcher,
		RateLimit:  rateLimitOptions(cfg.RateLimit),
	})
	a.modules = bootstrap.BuildModules(cfg, opts.Recorder)
	if err := bot.Install(a.router, a.modules.List...); err != nil {
		a.close()
		return nil, fmt.Errorf("app: install modules: %w", err)
	}

	if a.webex != nil {
		a.server = server.New(server.Options{
			Listen: cfg.Webhook.Listen,
			Port:   cfg.Webhook.Port,
			Routes: WebexRoutes(a.router, cfg.Webhook.HandlerTimeout),
		})
	}
	return a, nil
}

// WebexRoutes maps the Webex webhook paths to sink.
func WebexRoutes(sink webex.EventSink, timeout time.Duration) []server.Route {
	return []server.Route{
		{Pattern: http.MethodPost + " " + webex.MessagesPath, Handler: webex.MessagesHandler(sink, timeout)},
		{Pattern: http.MethodPost + " " + webex.AttachmentActionsPath, Handler: webex.AttachmentActionsHandler(sink, timeout)},
	}
}

// Router returns the event router.
func (a *App) Router() *bot.Router { return a.router }

// Handler returns the inbound HTTP handler of the Webex listener, or nil for Telegram.
func (a *App) Handler() http.Handler {
	if a.server == nil {
		return nil
	}
	return a.server.Handler()
}

// Run starts the transport, the outbound dispatcher and the session sweeper, and blocks
// until ctx is done or one of them fails.
func (a *App) Run(ctx context.Context) error {
	if a.webex != nil && a.cfg.Webex.RegisterWebhooks {
		if err := webex.RegisterBotWebhooks(ctx, a.webex, a.cfg.Webhook.URL); err != nil {
			a.close()
			return fmt.Errorf("app: register webhooks: %w", err)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	if a.dispatcher != nil {
		g.Go(func() error { return a.dispatcher.Run(ctx) })
	}
	if a.modules.Polls != nil {
		g.Go(func() error {
			a.sweepLoop(ctx)
			return nil
		})
	}
	switch {
	case a.server != nil:
		g.Go(func() error { return a.server.Run(ctx) })
	case a.telegram != nil:
		g.Go(func() error { return a.telegram.Run(ctx, a.router, a.router.Registry()) })
	}

	logger.LogEvent(ctx, logger.Component("app"), slog.LevelInfo, "ready",
		slog.String("status", "ok"),
		slog.String("platform", a.cfg.Platform),
		slog.Int("modules", len(a.modules.List)),
	)
	err := g.Wait()
	logger.LogEvent(context.WithoutCancel(ctx), logger.Component("app"), slog.LevelInfo, "shutdown",
		slog.String("status", logger.Status(err)),
	)
	if ferr := a.flushLogs(); ferr != nil {
		fmt.Fprintf(os.Stderr, "app: flush logs: %v\n", ferr)
	}
	return err
}

// Sweep evicts ended polls past their retention and reports how many were removed.
func (a *App) Sweep() int {
	if a.modules.Polls == nil {
		return 0
	}
	return a.modules.Polls.SweepEnded(a.cfg.Sessions.EndedPollRetention)
}

func (a *App) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.Sessions.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.Sweep(); n > 0 {
				logger.LogEvent(ctx, logger.Component("poll"), slog.LevelInfo, "sweep",
					slog.String("status", "ok"),
					slog.Int("evicted", n),
					slog.Int("remaining", a.modules.Polls.Len()),
				)
			}
		}
	}
}

func (a *App) close() {
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
}

func rateLimitOptions(cfg coreconfig.RateLimitConfig) bot.RateLimitOptions {
	opts := bot.RateLimitOptions{Interval: time.Duration(cfg.IntervalMS) * time.Millisecond}
	if len(cfg.ExcludeUpdates) > 0 {
		opts.Exclude = make(map[string]struct{}, len(cfg.ExcludeUpdates))
		for _, kind := range cfg.ExcludeUpdates {
			opts.Exclude[kind] = struct{}{}
		}
	}
	return opts
}
