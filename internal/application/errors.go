package application

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common conditions
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidOperation  = errors.New("invalid operation")
	ErrNoSelection       = errors.New("no selection")
	ErrNoHighlight       = errors.New("no highlighted node")
	ErrProtectedRoot     = errors.New("protected root")
	ErrEncryptedPublic   = errors.New("encryption and public sharing are exclusive")
	ErrSessionClosed     = errors.New("edit session closed")
	ErrSessionActive     = errors.New("edit session already active")
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrRejected          = errors.New("rejected by server")
	ErrPartialDelivery   = errors.New("partial key distribution")
	ErrUnresolvable      = errors.New("unresolvable node reference")
)

// ValidationError represents a validation failure with details
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidOperation
}

// UserInputError is a dismissible warning: the operation was aborted and
// nothing was mutated.
type UserInputError struct {
	Reason  error
	Message string
}

func (e *UserInputError) Error() string {
	return e.Message
}

func (e *UserInputError) Unwrap() error {
	return e.Reason
}

// AuthorizationError reports an edit refused for the requesting identity.
type AuthorizationError struct {
	Op      string
	Message string
}

func (e *AuthorizationError) Error() string {
	if e.Op == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *AuthorizationError) Is(target error) bool {
	return target == ErrUnauthorized
}

// ServerRejection is any other non-success response.
type ServerRejection struct {
	Op            string
	Message       string
	ExceptionType string
}

func (e *ServerRejection) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "request failed"
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *ServerRejection) Is(target error) bool {
	return target == ErrRejected
}

// PartialDistributionError means a node was saved encrypted but its content
// key reached only some of the principals entitled to it. Failed and every
// principal after it are queued for retry.
type PartialDistributionError struct {
	NodeID    string
	Delivered []string
	Failed    string
	Pending   []string
	Err       error
}

func (e *PartialDistributionError) Error() string {
	return fmt.Sprintf("node %s saved, but key delivery stopped at principal %s (%d delivered, %d pending: %s): %v",
		e.NodeID, e.Failed, len(e.Delivered), len(e.Pending), strings.Join(e.Pending, ", "), e.Err)
}

func (e *PartialDistributionError) Unwrap() error {
	return e.Err
}

func (e *PartialDistributionError) Is(target error) bool {
	return target == ErrPartialDelivery
}

// UnresolvableReferenceError names a node id absent from the cache.
type UnresolvableReferenceError struct {
	NodeID string
	Op     string
}

func (e *UnresolvableReferenceError) Error() string {
	return fmt.Sprintf("cannot %s: node %s is not loaded", e.Op, e.NodeID)
}

func (e *UnresolvableReferenceError) Is(target error) bool {
	return target == ErrUnresolvable || target == ErrNotFound
}

// TransitionError reports a session entry point called in the wrong state.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot go from %s to %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// IsUserInput reports whether err should be shown as a warning rather
// than a failure.
func IsUserInput(err error) bool {
	var uie *UserInputError
	return errors.As(err, &uie)
}
