package server

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/m3rciful/roombot/core/logger"
)

// Recover logs a panicking request and still answers 200.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w}
		defer func() {
			if rec := recover(); rec != nil {
				logger.LogEvent(r.Context(), logger.HTTP, slog.LevelError, "panic",
					slog.String("status", "fail"),
					slog.String("path", r.URL.Path),
					slog.Any("err", rec),
					slog.String("stack", string(debug.Stack())),
				)
				if !sw.wrote {
					sw.WriteHeader(http.StatusOK)
				}
			}
		}()
		next.ServeHTTP(sw, r)
	})
}

// Logging writes one line per request.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		if r.URL.Path == "/healthz" {
			if keep, _ := logger.Sample("http.healthz"); !keep {
				return
			}
		}
		logger.LogEvent(r.Context(), logger.HTTP, slog.LevelInfo, "request",
			slog.String("status", "ok"),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("http_status", sw.code()),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wrote {
		w.status = code
		w.wrote = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	if !w.wrote {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(p)
}

func (w *statusWriter) code() int {
	if !w.wrote {
		return http.StatusOK
	}
	return w.status
}
