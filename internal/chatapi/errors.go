// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatapi

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeInvalidRequest
	ErrTypeTransport
	ErrTypeUnauthorized
	ErrTypeRateLimited
	ErrTypeAPI
)

// String returns a short name for the error type.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeInvalidRequest:
		return "invalid_request"
	case ErrTypeTransport:
		return "transport"
	case ErrTypeUnauthorized:
		return "unauthorized"
	case ErrTypeRateLimited:
		return "rate_limited"
	case ErrTypeAPI:
		return "api"
	default:
		return "unknown"
	}
}

// ClientError represents an error from the chat endpoint client.
type ClientError struct {
	Type   ErrorType
	Status int

	// Message is the server-provided error text when there is one.
	Message string

	// Redirect is the login location sent with an unauthorized response.
	Redirect string

	Cause error
}

func (e *ClientError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Type.String()
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches another ClientError of the same type, so the sentinels below
// work with errors.Is.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	if !ok {
		return false
	}
	return t.Type == e.Type && (t.Status == 0 || t.Status == e.Status)
}

// Sentinel errors for easy checking.
var (
	ErrUnauthorized = &ClientError{Type: ErrTypeUnauthorized, Message: "unauthorized"}
	ErrRateLimited  = &ClientError{Type: ErrTypeRateLimited, Message: "rate limited"}
	ErrTransport    = &ClientError{Type: ErrTypeTransport, Message: "transport failure"}
)

// AsClientError unwraps err to a *ClientError.
func AsClientError(err error) (*ClientError, bool) {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// =============================================================================
// LOGIN REDIRECT
// =============================================================================

// LoginURL returns the login location for an unauthorized response, carrying
// location as the callbackUrl query parameter.
func LoginURL(redirect, location string) string {
	if redirect == "" {
		redirect = "/login"
	}
	sep := "?"
	if strings.Contains(redirect, "?") {
		sep = "&"
	}
	return redirect + sep + "callbackUrl=" + url.QueryEscape(location)
}
