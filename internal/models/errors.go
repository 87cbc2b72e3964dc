package models

import (
	"errors"
	"fmt"
)

// AuthErrorKind discriminates login and session failures.
type AuthErrorKind string

const (
	ErrKindMissingCredential AuthErrorKind = "missing_credential"
	ErrKindSelectorTimeout   AuthErrorKind = "selector_timeout"
	ErrKindNavigationTimeout AuthErrorKind = "navigation_timeout"
	ErrKindUnexpectedState   AuthErrorKind = "unexpected_state"
)

// AuthError is a classified failure of the login flow. State names the
// machine state at the time of failure.
type AuthError struct {
	Kind  AuthErrorKind
	State string
	Err   error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("login failed in state %s (%s): %v", e.State, e.Kind, e.Err)
	}
	return fmt.Sprintf("login failed in state %s (%s)", e.State, e.Kind)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// NewAuthError builds an AuthError for the given state and kind.
func NewAuthError(kind AuthErrorKind, state string, err error) *AuthError {
	return &AuthError{Kind: kind, State: state, Err: err}
}

// ValidationError reports a malformed extraction URL. It is the only error
// surfaced synchronously to HTTP callers (as a 400); everything else is
// recorded against the background job.
type ValidationError struct {
	URL    string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid post URL %q: %s", e.URL, e.Reason)
}

// ResolveError reports a failure calling or parsing the platform's
// internal tweet API.
type ResolveError struct {
	PostID string
	Err    error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve media for post %s: %v", e.PostID, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

var (
	// ErrMediaNotFound indicates the post exists but carries no attachments.
	ErrMediaNotFound = errors.New("post has no media attachments")

	// ErrNoSession indicates no persisted session exists yet.
	ErrNoSession = errors.New("no persisted session")

	// ErrStorage wraps failures of the external object store.
	ErrStorage = errors.New("storage error")
)
