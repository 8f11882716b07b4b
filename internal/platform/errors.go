package platform

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

type Kind string

const (
	KindRateLimit  Kind = "rate_limit"
	KindAuth       Kind = "auth"
	KindNetwork    Kind = "network"
	KindServer     Kind = "server"
	KindValidation Kind = "validation"
)

// Error is a classified failure returned by a platform client.
type Error struct {
	Kind       Kind
	Platform   string
	StatusCode int
	RetryAfter time.Duration
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s error (status %d): %s", e.Platform, e.Kind, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s %s error: %s", e.Platform, e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the same request may succeed later.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindRateLimit, KindNetwork, KindServer:
		return true
	}
	return false
}

// IsRetryable classifies any error coming out of a publisher. Errors that are
// not a *Error are treated as terminal.
func IsRetryable(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Retryable()
	}
	return false
}

// RetryAfterHint returns the delay a rate-limited platform asked for, or zero.
func RetryAfterHint(err error) time.Duration {
	var pe *Error
	if errors.As(err, &pe) && pe.Kind == KindRateLimit {
		return pe.RetryAfter
	}
	return 0
}

func ErrorKind(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// classifyStatus maps a non-2xx response to an error kind.
func classifyStatus(code int) Kind {
	switch {
	case code == http.StatusTooManyRequests:
		return KindRateLimit
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return KindAuth
	case code >= 500:
		return KindServer
	default:
		return KindValidation
	}
}

func parseRetryAfter(header string, now time.Time) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}
