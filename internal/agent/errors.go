// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrThreadNotFound is returned for operations on unknown threads.
	ErrThreadNotFound = errors.New("thread not found")

	// ErrAuthFailed indicates the server rejected the API key.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRateLimited indicates the server asked the client to slow down.
	ErrRateLimited = errors.New("rate limited")

	// ErrUnavailable indicates the server could not be reached.
	ErrUnavailable = errors.New("agent server unavailable")
)

// APIError is a non-2xx response from the agent server.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("agent server error (HTTP %d): %s", e.StatusCode, e.Message)
}

// Unwrap maps well-known statuses onto the package sentinels.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrAuthFailed
	case http.StatusNotFound:
		return ErrThreadNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	}
	return nil
}

// retryable reports whether a failed request may succeed on retry.
func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500 || apiErr.StatusCode == http.StatusTooManyRequests
	}
	return errors.Is(err, ErrUnavailable)
}
