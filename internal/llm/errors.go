package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ErrorKind classifies provider failures for retry decisions.
type ErrorKind int

const (
	// KindUnavailable covers network failures and 5xx responses.
	KindUnavailable ErrorKind = iota
	// KindRateLimited is an HTTP 429.
	KindRateLimited
	// KindInvalidResponse is output that is not valid JSON or fails the schema.
	KindInvalidResponse
	// KindTruncated is structured output cut off at the token limit.
	KindTruncated
	// KindRejected is a 4xx other than 429, such as a bad key or model.
	KindRejected
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindRateLimited:
		return "rate limited"
	case KindInvalidResponse:
		return "invalid response"
	case KindTruncated:
		return "truncated"
	case KindRejected:
		return "rejected"
	}
	return "unknown"
}

// Error is returned by every provider in this package.
type Error struct {
	Kind     ErrorKind
	Provider string

	// RetryAfter is the server's requested delay for KindRateLimited.
	RetryAfter time.Duration
	// Content is the offending output for KindInvalidResponse and KindTruncated.
	Content json.RawMessage

	Err error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("llm %s: %s", e.Provider, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf reports the kind of an *Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// statusError classifies an HTTP status from a provider SDK error.
func statusError(provider string, status int, header http.Header, err error) *Error {
	e := &Error{Provider: provider, Kind: KindUnavailable, Err: err}
	switch {
	case status == http.StatusTooManyRequests:
		e.Kind = KindRateLimited
		e.RetryAfter = retryAfter(header)
	case status >= 400 && status < 500:
		e.Kind = KindRejected
	}
	return e
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(h http.Header) time.Duration {
	if h == nil {
		return 0
	}
	secs, err := strconv.Atoi(h.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
