// Package server runs the inbound HTTP listener for platform webhooks.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/m3rciful/roombot/core/logger"
)

const shutdownTimeout = 5 * time.Second

// Route binds a ServeMux pattern, e.g. "POST /messages_webhook", to a handler.
type Route struct {
	Pattern string
	Handler http.Handler
}

// Options configures the listener.
type Options struct {
	Listen string
	Port   int
	Routes []Route
}

// Server is an HTTP listener with recover and logging middlewares on every route.
type Server struct {
	srv *http.Server
}

// New builds a server for opts. GET /healthz is always served.
func New(opts Options) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	for _, route := range opts.Routes {
		if route.Pattern == "" || route.Handler == nil {
			continue
		}
		mux.Handle(route.Pattern, route.Handler)
	}
	return &Server{
		srv: &http.Server{
			Addr:              net.JoinHostPort(opts.Listen, strconv.Itoa(opts.Port)),
			Handler:           Recover(Logging(mux)),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Handler returns the root handler, middlewares included.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Addr returns the listen address.
func (s *Server) Addr() string { return s.srv.Addr }

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.LogEvent(ctx, logger.HTTP, slog.LevelInfo, "listen",
			slog.String("status", "ok"),
			slog.String("addr", s.srv.Addr),
		)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: listen %s: %w", s.srv.Addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
