package netutil

import (
	"errors"
	"net"
	"net/url"
)

// Retryable is implemented by API errors that know whether repeating the call may succeed,
// e.g. rate limiting or a 5xx from the platform.
type Retryable interface {
	Retryable() bool
}

// ShouldRetry reports whether an error is worth retrying.
// It covers transient dial/timeout failures produced by net/http and API errors
// implementing Retryable.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}

	var r Retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() || opErr.Op == "dial" {
			return true
		}
		if nested, ok := opErr.Err.(net.Error); ok && nested.Timeout() {
			return true
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return true
		}
		if urlErr.Err != nil && !errors.Is(urlErr.Err, err) {
			return ShouldRetry(urlErr.Err)
		}
	}

	return false
}
