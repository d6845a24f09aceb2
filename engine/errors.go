/*
errors.go - Centralized error types for the engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages (receivable, payout) wrap these with party context.

ERROR CATEGORIES:
  1. Schedule errors - Bad generation input, locked schedules
  2. Payment errors - Double decisions, bad amounts
  3. Lookup errors - Referenced ids absent from the snapshot

CONTRACT:
  Nothing in this engine is retried automatically: every operation is
  deterministic, and a blind retry of a submit would duplicate a payment
  claim. The engine never logs and never falls back to a guessed default
  when an invariant is violated - the caller decides how to surface these.

USAGE:
  if errors.Is(err, engine.ErrAlreadyDecided) { ... }

  var locked *engine.ScheduleLockedError
  if errors.As(err, &locked) { ... }
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidSchedule is returned when schedule generation input is
	// rejected (count < 1, count > MaxInstallments, total <= 0).
	ErrInvalidSchedule = errors.New("invalid schedule")

	// ErrScheduleLocked is returned when regenerating a schedule that
	// already has payment history. Amount and count are immutable once
	// any payment exists; only due dates may still be edited.
	ErrScheduleLocked = errors.New("schedule locked by payment history")

	// ErrAlreadyDecided is returned when deciding a payment that is not
	// currently PENDING. Decisions happen exactly once.
	ErrAlreadyDecided = errors.New("payment already decided")

	// ErrNotFound is returned when a referenced contract, installment or
	// payment id is absent from the provided snapshot.
	ErrNotFound = errors.New("not found")

	// ErrCurrencyMismatch is returned when mixing PEN and USD amounts in
	// one arithmetic operation or ledger.
	ErrCurrencyMismatch = errors.New("currency mismatch")

	// ErrInvalidPayment is returned for malformed submissions (non-positive
	// amount, unknown method, unsupported currency).
	ErrInvalidPayment = errors.New("invalid payment submission")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidScheduleError reports why schedule generation was rejected.
type InvalidScheduleError struct {
	Count  int
	Total  Money
	Reason string
}

func (e *InvalidScheduleError) Error() string {
	return fmt.Sprintf("invalid schedule (count=%d, total=%s): %s", e.Count, e.Total, e.Reason)
}

func (e *InvalidScheduleError) Unwrap() error { return ErrInvalidSchedule }

// ScheduleLockedError reports which scope refused regeneration.
type ScheduleLockedError struct {
	Scope    ScheduleScope
	Payments int // payment claims already recorded against the schedule
}

func (e *ScheduleLockedError) Error() string {
	return fmt.Sprintf("schedule for contract %s is locked: %d payment(s) recorded", e.Scope.ContractID, e.Payments)
}

func (e *ScheduleLockedError) Unwrap() error { return ErrScheduleLocked }

// AlreadyDecidedError reports the terminal state that blocked a decision.
type AlreadyDecidedError struct {
	PaymentID PaymentID
	Status    PaymentStatus
}

func (e *AlreadyDecidedError) Error() string {
	return fmt.Sprintf("payment %s already decided: %s", e.PaymentID, e.Status)
}

func (e *AlreadyDecidedError) Unwrap() error { return ErrAlreadyDecided }

// NotFoundError identifies which kind of record was missing.
type NotFoundError struct {
	Kind string // "contract", "installment", "payment", "collaborator"
	ID   string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %s not found", e.Kind, e.ID) }

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input
// rather than an internal failure. The API layer maps these to 4xx.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidSchedule) ||
		errors.Is(err, ErrScheduleLocked) ||
		errors.Is(err, ErrAlreadyDecided) ||
		errors.Is(err, ErrCurrencyMismatch) ||
		errors.Is(err, ErrInvalidPayment)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
