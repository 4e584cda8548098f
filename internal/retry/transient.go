package retry

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"

	"github.com/lib/pq"
)

var ErrRateLimited = errors.New("RATE_LIMITED")

// StatusError is returned by HTTP clients for non-success responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// transientMarkers covers errors that only survive as text, such as
// PostgREST responses relayed through another client.
var transientMarkers = []string{
	"ECONNRESET",
	"ENOTFOUND",
	"ECONNREFUSED",
	"ETIMEDOUT",
	"EAI_AGAIN",
	"NETWORK_ERROR",
	"RATE_LIMITED",
	"connection reset",
	"connection refused",
	"no such host",
	"i/o timeout",
}

// IsTransient reports whether err belongs to the retryable classes: network
// resets, timeouts, DNS failures, rate limiting and upstream 5xx.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ETIMEDOUT) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// 08: connection exception, 53: insufficient resources, 57P01: admin shutdown
		class := pqErr.Code.Class()
		return class == "08" || class == "53" || pqErr.Code == "57P01"
	}

	msg := err.Error()
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
