package vr

import (
	"errors"
	"fmt"
)

// ErrNoSession is returned when a request needs a session and none could be obtained
var ErrNoSession = errors.New("no upstream session")

// AuthError is a failed step of the login or refresh exchange
type AuthError struct {
	Step string
	Err  error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("vr auth %s failed: %v", e.Step, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// UpstreamAuthExpiredError is a 401 or 403 from the seat-map provider
type UpstreamAuthExpiredError struct {
	StatusCode int
	Err        error
}

func (e *UpstreamAuthExpiredError) Error() string {
	return fmt.Sprintf("upstream rejected session (status %d): %v", e.StatusCode, e.Err)
}

func (e *UpstreamAuthExpiredError) Unwrap() error {
	return e.Err
}
