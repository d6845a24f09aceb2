/*
ledger.go - Payment ledger: submit and decide

PURPOSE:
  The payment ledger is the only way payment state changes. Two operations:

  SubmitPayment  Always appends a NEW claim in PENDING. It never mutates or
                 supersedes prior payments on the same installment; several
                 concurrent pending claims are allowed and all surface to
                 the verifier.

  DecidePayment  The administrative verification: exactly one transition
                 PENDING -> COMPLETED | FAILED. A decided payment stays
                 decided; re-decision fails with AlreadyDecidedError.

CONCURRENCY:
  The decide-once guard is optimistic, not a lock: the store performs a
  conditional update and reports whether the row was still pending. The
  calling layer must route all decisions for one payment through a single
  authoritative store to avoid lost updates.

SIDE EFFECTS:
  Every successful submit or decide invalidates the owning contract's
  cached progress snapshot. Every decision is handed to the notification
  dispatcher (fire-and-forget) so the affected party can be messaged.
*/
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// LEDGER
// =============================================================================

// Ledger records payment submissions and decisions for one store.
type Ledger struct {
	Store      Store
	Dispatcher Dispatcher

	// Clock is swappable for tests. Defaults to time.Now (UTC).
	Clock func() time.Time
}

func NewLedger(store Store, dispatcher Dispatcher) *Ledger {
	if dispatcher == nil {
		dispatcher = NopDispatcher{}
	}
	return &Ledger{Store: store, Dispatcher: dispatcher, Clock: func() time.Time { return time.Now().UTC() }}
}

// SubmitInput describes a new payment claim.
type SubmitInput struct {
	InstallmentID   InstallmentID
	Amount          Money
	Method          PaymentMethod
	Reference       string
	SubmittedBy     string
	SubmittedByType string
}

// SubmitPayment appends a new PENDING payment claim against an installment.
// The claimed amount may differ from the installment amount - partial and
// over-payments are recorded as claimed and flagged in views only.
func (l *Ledger) SubmitPayment(ctx context.Context, in SubmitInput) (Payment, error) {
	if err := validateSubmit(in); err != nil {
		return Payment{}, err
	}

	inst, scope, err := l.Store.FindInstallment(ctx, in.InstallmentID)
	if err != nil {
		return Payment{}, err
	}
	if in.Amount.Currency != inst.Amount.Currency {
		return Payment{}, fmt.Errorf("%w: claim in %s against %s installment",
			ErrCurrencyMismatch, in.Amount.Currency, inst.Amount.Currency)
	}

	p := Payment{
		ID:              PaymentID(uuid.NewString()),
		InstallmentID:   in.InstallmentID,
		Amount:          in.Amount,
		Method:          in.Method,
		Reference:       in.Reference,
		Status:          PaymentPending,
		SubmittedBy:     in.SubmittedBy,
		SubmittedByType: in.SubmittedByType,
		CreatedAt:       l.Clock(),
	}
	if err := l.Store.AppendPayment(ctx, scope, p); err != nil {
		return Payment{}, err
	}

	l.invalidateProgress(ctx, scope.ContractID)
	return p, nil
}

// DecideInput describes an administrative verification of a payment.
type DecideInput struct {
	PaymentID PaymentID
	Outcome   PaymentStatus // PaymentCompleted or PaymentFailed
	DecidedBy string
}

// DecidePayment transitions a pending payment to its terminal state and
// emits a PaymentDecision event. On COMPLETED the decision timestamp is
// stamped as the approval time.
func (l *Ledger) DecidePayment(ctx context.Context, in DecideInput) (Payment, error) {
	if !in.Outcome.Decided() {
		return Payment{}, fmt.Errorf("%w: outcome must be %s or %s, got %q",
			ErrInvalidPayment, PaymentCompleted, PaymentFailed, in.Outcome)
	}

	// The scope is resolved before the transition: once the store commits
	// the decision, invalidation and dispatch run unconditionally.
	_, scope, err := l.Store.FindPayment(ctx, in.PaymentID)
	if err != nil {
		return Payment{}, err
	}

	now := l.Clock()
	p, err := l.Store.DecidePayment(ctx, in.PaymentID, in.Outcome, now, in.DecidedBy)
	if err != nil {
		return Payment{}, err
	}

	l.invalidateProgress(ctx, scope.ContractID)
	l.Dispatcher.PaymentDecided(ctx, PaymentDecision{
		ContractID:     scope.ContractID,
		CollaboratorID: scope.CollaboratorID,
		InstallmentID:  p.InstallmentID,
		PaymentID:      p.ID,
		Outcome:        p.Status,
		Amount:         p.Amount,
		SubmittedBy:    p.SubmittedBy,
		DecidedBy:      in.DecidedBy,
		DecidedAt:      now,
	})
	return p, nil
}

// ScopeOf returns the schedule scope owning an installment. Domain wrappers
// use it to enforce party rules before submitting.
func (l *Ledger) ScopeOf(ctx context.Context, id InstallmentID) (ScheduleScope, error) {
	_, scope, err := l.Store.FindInstallment(ctx, id)
	return scope, err
}

func (l *Ledger) invalidateProgress(ctx context.Context, id ContractID) {
	// Best effort: the snapshot is a cache, reads recompute when it is
	// missing or stale. A store without snapshots has nothing to drop.
	if ss, ok := l.Store.(SnapshotStore); ok {
		_ = ss.InvalidateProgress(ctx, id)
	}
}

func validateSubmit(in SubmitInput) error {
	switch {
	case !in.Amount.IsPositive():
		return fmt.Errorf("%w: amount must be positive", ErrInvalidPayment)
	case !ValidCurrency(in.Amount.Currency):
		return fmt.Errorf("%w: unsupported currency %q", ErrInvalidPayment, in.Amount.Currency)
	case !ValidMethod(in.Method):
		return fmt.Errorf("%w: unknown method %q", ErrInvalidPayment, in.Method)
	}
	return nil
}
