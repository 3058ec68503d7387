// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package forum

import "fmt"

// FetchError represents an HTTP-level failure from the forum. The status
// code is preserved so callers can tell throttling from hard failures.
type FetchError struct {
	StatusCode int
	URL        string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("forum request to %s returned status %d", e.URL, e.StatusCode)
}

func (e *FetchError) Is(target error) bool {
	_, ok := target.(*FetchError)
	return ok
}

// AuthError represents a failed or rejected login.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("forum authentication failed: %s", e.Reason)
}

func (e *AuthError) Is(target error) bool {
	_, ok := target.(*AuthError)
	return ok
}

// UnlockError represents a failed thanks interaction on a topic.
type UnlockError struct {
	TopicID int
	Reason  string
}

func (e *UnlockError) Error() string {
	return fmt.Sprintf("unlock of topic %d failed: %s", e.TopicID, e.Reason)
}

func (e *UnlockError) Is(target error) bool {
	_, ok := target.(*UnlockError)
	return ok
}
