package domain

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies aggregation failures so per-platform errors can be
// recorded as report data.
type Kind string

const (
	// KindConfig marks a malformed registry or runtime configuration.
	// It is the only kind that aborts a whole run.
	KindConfig Kind = "config"
	// KindTransport marks a network-level failure reaching the endpoint.
	KindTransport Kind = "transport"
	// KindTimeout marks a transport failure caused by a deadline.
	KindTimeout Kind = "timeout"
	// KindUpstream marks a non-2xx HTTP response.
	KindUpstream Kind = "upstream"
	// KindParse marks a body that is not valid JSON.
	KindParse Kind = "parse"
	// KindSchema marks valid JSON whose shape cannot be normalized.
	KindSchema Kind = "schema"
)

// Error is the taxonomy error shared by adapters, the normalizer and
// the aggregator.
type Error struct {
	Kind       Kind
	PlatformID string
	Msg        string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Msg != "":
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a taxonomy error for the given platform.
func NewError(kind Kind, platformID, msg string) *Error {
	return &Error{Kind: kind, PlatformID: platformID, Msg: msg}
}

// WrapError wraps a cause with a taxonomy kind for the given platform.
func WrapError(kind Kind, platformID, msg string, err error) *Error {
	return &Error{Kind: kind, PlatformID: platformID, Msg: msg, Err: err}
}

// KindOf extracts the taxonomy kind from err, defaulting to transport
// for untyped errors (something between us and the endpoint broke).
// Deadline errors always count as timeouts, even when a task was
// cancelled before its adapter could classify anything.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindTransport
}

// FailureFrom converts an error into a report failure entry for the
// given platform.
func FailureFrom(platformID string, err error) *Failure {
	if err == nil {
		return nil
	}
	return &Failure{
		PlatformID: platformID,
		Kind:       KindOf(err),
		Message:    err.Error(),
	}
}
