package netutil

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"
	"testing"
	"time"
)

type apiErr struct{ retry bool }

func (e apiErr) Error() string   { return "api" }
func (e apiErr) Retryable() bool { return e.retry }

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestShouldRetry(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"api retryable", apiErr{retry: true}, true},
		{"api fatal", apiErr{retry: false}, false},
		{"wrapped api", &url.Error{Op: "Get", URL: "x", Err: apiErr{retry: true}}, true},
		{"dial", &net.OpError{Op: "dial", Err: errors.New("refused")}, true},
		{"timeout", &url.Error{Op: "Post", URL: "x", Err: timeoutErr{}}, true},
		{"canceled", context.Canceled, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ShouldRetry(tc.err); got != tc.want {
				t.Fatalf("ShouldRetry(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestRetryTransportRetriesDialErrors(t *testing.T) {
	var calls atomic.Int32
	rt := &retryTransport{
		base: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if calls.Add(1) < 3 {
				return nil, &net.OpError{Op: "dial", Err: errors.New("refused")}
			}
			return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: r}, nil
		}),
		maxRetries: 2,
		backoff:    time.Millisecond,
	}
	req, _ := http.NewRequest(http.MethodGet, "http://example.invalid", nil)
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if resp.StatusCode != http.StatusOK || calls.Load() != 3 {
		t.Fatalf("status=%d calls=%d", resp.StatusCode, calls.Load())
	}
}

func TestRetryTransportStopsOnFatal(t *testing.T) {
	var calls atomic.Int32
	rt := &retryTransport{
		base: roundTripFunc(func(*http.Request) (*http.Response, error) {
			calls.Add(1)
			return nil, errors.New("bad certificate")
		}),
		maxRetries: 3,
		backoff:    time.Millisecond,
	}
	req, _ := http.NewRequest(http.MethodGet, "http://example.invalid", nil)
	if _, err := rt.RoundTrip(req); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d", calls.Load())
	}
}
