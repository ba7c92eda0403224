// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"context"
	"errors"
	"net"
	"strconv"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// DefaultErrorMessage is shown when a failure has no better description.
const DefaultErrorMessage = "Oops! There seems to be an error. Please try again."

// ErrorKind categorizes transport errors.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNetwork
	KindTimeout
	KindStatus
	KindMalformed
	KindClosed
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindStatus:
		return "status"
	case KindMalformed:
		return "malformed"
	case KindClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Error is the single error type the transport returns. Summary is safe to
// show to the user.
type Error struct {
	Kind    ErrorKind
	Summary string
	Status  int // HTTP status for KindStatus
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Kind.String() + ": " + e.Summary
	if e.Status != 0 {
		msg += " (status " + strconv.Itoa(e.Status) + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// ErrClosed is returned when using a stream after Disconnect.
var ErrClosed = &Error{Kind: KindClosed, Summary: "stream closed"}

// Is matches errors of the same kind, so errors.Is(err, ErrClosed) works for
// any closed-stream error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Summary == e.Summary && t.Kind == e.Kind
}

// =============================================================================
// HELPERS
// =============================================================================

// Summary returns the user-visible text for any error.
func Summary(err error) string {
	var te *Error
	if errors.As(err, &te) && te.Summary != "" {
		return te.Summary
	}
	return DefaultErrorMessage
}

// IsTimeout reports whether err is a transport timeout.
func IsTimeout(err error) bool {
	var te *Error
	return errors.As(err, &te) && te.Kind == KindTimeout
}

// IsStatus reports whether err carries the given HTTP status.
func IsStatus(err error, status int) bool {
	var te *Error
	return errors.As(err, &te) && te.Kind == KindStatus && te.Status == status
}

// networkError classifies a failed round trip.
func networkError(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Summary: DefaultErrorMessage, Cause: err}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &Error{Kind: KindTimeout, Summary: DefaultErrorMessage, Cause: err}
	}
	return &Error{Kind: KindNetwork, Summary: DefaultErrorMessage, Cause: err}
}

func malformed(err error) *Error {
	return &Error{Kind: KindMalformed, Summary: DefaultErrorMessage, Cause: err}
}
