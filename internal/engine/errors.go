package engine

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSpawn          = errors.New("engine spawn failed")
	ErrBinaryNotFound = errors.New("mpv binary not found")
	ErrConnect        = errors.New("engine connect failed")
	ErrTimeout        = errors.New("engine command timed out")
	ErrNotReady       = errors.New("engine not ready")
	ErrNotConnected   = errors.New("engine not connected")
	ErrDestroyed      = errors.New("engine destroyed")
)

// propertyUnavailable is mpv's error text for properties it cannot report right now.
const propertyUnavailable = "property unavailable"

// CommandError is returned when the engine answers a command with a non-success status.
type CommandError struct {
	Command string
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("mpv %s: %s", e.Command, e.Message)
}

// Wrap tags err with a marker and operation context so callers can classify
// failures with errors.Is while keeping the detail in the message.
func Wrap(marker error, operation, message string, err error) error {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	detail := strings.Join(parts, ": ")
	if detail == "" {
		detail = "engine failure"
	}
	if marker == nil {
		marker = ErrNotConnected
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports failures that leave the instance unusable until it is spawned
// again: the process never started or the control endpoint never came up.
func IsFatal(err error) bool {
	return errors.Is(err, ErrSpawn) || errors.Is(err, ErrConnect)
}

// IsTransient reports not-ready/not-connected failures that callers may
// replace with a fallback value.
func IsTransient(err error) bool {
	return errors.Is(err, ErrNotReady) || errors.Is(err, ErrNotConnected)
}

// IsPropertyUnavailable reports a get_property failure for a property the
// engine cannot currently provide.
func IsPropertyUnavailable(err error) bool {
	var cmdErr *CommandError
	return errors.As(err, &cmdErr) && cmdErr.Message == propertyUnavailable
}
