package service

import (
	"errors"
	"fmt"
)

// ErrNotificationNotFound covers both a truly missing notification and one
// owned by a different recipient. The two cases are deliberately
// indistinguishable so callers cannot probe for other users' records.
var ErrNotificationNotFound = errors.New("notification not found")

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account is disabled")
)

// ValidationError rejects a malformed broadcast request before anything is
// written, carrying the offending field for the admin response.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
