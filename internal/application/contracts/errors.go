package contracts

import (
	"fmt"

	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/domain/event"
)

// ConnectivityError means the server could not be reached or did not answer
// with a JSON object. No local state was changed.
type ConnectivityError struct {
	Op  string
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("unable to communicate with the API server (%s): %v", e.Op, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// AuthenticationError is raised for a retrieve_account message whose
// retrieve key is not the one we issued.
type AuthenticationError struct {
	Got string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("retrieve key mismatch: got %q", e.Got)
}

type StaleReason string

const (
	StaleNoAccount         StaleReason = "no_account"
	StaleDomainKeyMismatch StaleReason = "domain_key_mismatch"
)

// StaleEnvelopeError describes an envelope that was dropped without being
// applied. It is reported for observability, never returned as a failure.
type StaleEnvelopeError struct {
	Reason   StaleReason
	Received string
}

func (e *StaleEnvelopeError) Error() string {
	if e.Reason == StaleDomainKeyMismatch {
		return fmt.Sprintf("stale envelope: invalid domain key %q", e.Received)
	}
	return "stale envelope: no account data, ignoring messages"
}

// UnknownMessageError stops the remaining messages of an envelope.
type UnknownMessageError struct {
	Index int
	Type  string
	Err   error
}

func (e *UnknownMessageError) Error() string {
	return fmt.Sprintf("message %d: unknown message type %q: %v", e.Index, e.Type, e.Err)
}

func (e *UnknownMessageError) Unwrap() error { return e.Err }

// ActionNotAppliedError means no local handler applied a completion or
// cancellation, typically because the payment is unknown or already final.
type ActionNotAppliedError struct {
	Action    event.Type
	PaymentID int64
}

func (e *ActionNotAppliedError) Error() string {
	return fmt.Sprintf("unable to apply %s for payment ID %d", e.Action, e.PaymentID)
}

// RetryBudgetExceededError is returned when an order's payment was given up.
type RetryBudgetExceededError struct {
	OrderRef string
	Attempts int
	Err      error
}

func (e *RetryBudgetExceededError) Error() string {
	return fmt.Sprintf("gave up sending payment for order %s after %d attempts: %v", e.OrderRef, e.Attempts, e.Err)
}

func (e *RetryBudgetExceededError) Unwrap() error { return e.Err }
