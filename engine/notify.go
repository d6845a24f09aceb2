package engine

import (
	"context"
	"time"
)

// =============================================================================
// NOTIFICATION DISPATCH - Fire-and-forget, outside the engine
// =============================================================================
// The engine does not send notifications. It hands the dispatcher enough
// context to message the right company or collaborator when a payment is
// decided; delivery, retries and channels are the dispatcher's problem.

// PaymentDecision is the event emitted when a payment reaches a terminal
// state (COMPLETED or FAILED).
type PaymentDecision struct {
	ContractID     ContractID
	CollaboratorID CollaboratorID // empty for the client schedule
	InstallmentID  InstallmentID
	PaymentID      PaymentID
	Outcome        PaymentStatus
	Amount         Money
	SubmittedBy    string
	DecidedBy      string
	DecidedAt      time.Time
}

// Dispatcher receives payment decision events. Implementations must not
// block the caller; errors are the dispatcher's to handle.
type Dispatcher interface {
	PaymentDecided(ctx context.Context, event PaymentDecision)
}

// NopDispatcher drops all events. The default when no dispatcher is wired.
type NopDispatcher struct{}

func (NopDispatcher) PaymentDecided(context.Context, PaymentDecision) {}
