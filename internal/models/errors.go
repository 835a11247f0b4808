package models

import "errors"

// ConfigError indicates an invalid or incomplete configuration.
type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}

var (
	// ErrRecipientUnavailable marks a permission failure: the recipient has
	// blocked or removed the bot. The fan-out paths demote such recipients
	// to inactive and continue.
	ErrRecipientUnavailable = errors.New("recipient unavailable")

	// ErrUserNotFound is returned when an operation references an unknown user.
	ErrUserNotFound = errors.New("user not found")

	// ErrRelayEntryNotFound is returned when no relay log entry exists for
	// the referenced original message.
	ErrRelayEntryNotFound = errors.New("relay log entry not found")

	// ErrNotMessageOwner is returned when a delete is issued by someone other
	// than the original sender.
	ErrNotMessageOwner = errors.New("message was sent by another user")
)
