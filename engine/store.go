/*
store.go - Persistence interface between the engine and the database

PURPOSE:
  Defines what the engine needs from storage. The engine itself performs no
  I/O; the Store hydrates contract aggregates and applies the two mutations
  the ledger produces (append a payment, decide a payment).

PAYMENT SEMANTICS:
  Payments are append-then-decide-once:
  - AppendPayment:  insert only. A payment is never deleted.
  - DecidePayment:  conditional single-shot transition PENDING -> terminal.
    Implementations MUST use an at-most-one-writer update (e.g. a
    conditional UPDATE ... WHERE status = 'PENDING') and report
    AlreadyDecidedError when the row was no longer pending. This is the
    optimistic guard the engine relies on instead of locks.

SNAPSHOTS:
  Progress snapshots are a read-side cache only. Every successful submit or
  decide invalidates the owning contract's snapshot so the next read
  recomputes from the payment list. Correctness never depends on them.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite store
  - engine/store: in-memory store for tests and dev
*/
package engine

import (
	"context"
	"time"
)

// =============================================================================
// STORE - Contract aggregate persistence
// =============================================================================

type Store interface {
	// SaveContract persists a new contract aggregate: the contract row, its
	// schedules, deliverables and collaborators.
	SaveContract(ctx context.Context, c *Contract) error

	// LoadContract returns the fully hydrated aggregate (installments with
	// their payments, deliverables, collaborators with their schedules).
	// Returns NotFoundError if absent.
	LoadContract(ctx context.Context, id ContractID) (*Contract, error)

	// ListContracts returns all contracts, hydrated, ordered by creation.
	ListContracts(ctx context.Context) ([]*Contract, error)

	// ReplaceSchedule swaps the installment list for one scope. The caller
	// (scheduler) has already verified the schedule is not locked.
	ReplaceSchedule(ctx context.Context, scope ScheduleScope, installments []Installment) error

	// UpdateDueDate edits a single installment's due date in place.
	UpdateDueDate(ctx context.Context, id InstallmentID, due time.Time) error

	// FindInstallment locates an installment by id and returns it with its
	// scope, so ledger operations know which schedule they are touching.
	FindInstallment(ctx context.Context, id InstallmentID) (Installment, ScheduleScope, error)

	// AppendPayment inserts a new payment claim. Insert only.
	AppendPayment(ctx context.Context, scope ScheduleScope, p Payment) error

	// FindPayment locates a payment by id and returns it with the scope of
	// its owning installment.
	FindPayment(ctx context.Context, id PaymentID) (Payment, ScheduleScope, error)

	// DecidePayment transitions the payment to a terminal state iff it is
	// still PENDING, returning the updated row. Returns AlreadyDecidedError
	// when the transition already happened, NotFoundError when absent.
	DecidePayment(ctx context.Context, id PaymentID, outcome PaymentStatus, decidedAt time.Time, decidedBy string) (Payment, error)
}

// =============================================================================
// SNAPSHOT STORE - Optional progress cache
// =============================================================================

// SnapshotStore caches computed progress per contract. Optional: stores that
// do not implement it simply recompute on every read, which is the default
// and always correct.
type SnapshotStore interface {
	SaveProgress(ctx context.Context, report ProgressReport) error
	LoadProgress(ctx context.Context, id ContractID) (ProgressReport, bool, error)

	// InvalidateProgress drops the cached report for a contract. Called by
	// the ledger after every successful submit or decide.
	InvalidateProgress(ctx context.Context, id ContractID) error
}
