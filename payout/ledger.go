/*
Package payout manages collaborator pay ledgers: money going OUT to the
collaborators assigned to a contract.

PURPOSE:
  A collaborator's pay schedule is a parallel, independent instance of the
  same scheduler/ledger/resolver triplet the client schedule uses - not a
  variant with special-cased logic. This wrapper adds only the party rules
  of the collaborator payment portal:

    - Only the designated collaborator submits into their own schedule.
      Anyone else, including other collaborators on the same contract,
      is rejected.
    - Only an administrator decides.
    - Payout operations never touch the client schedule. Client money in
      and collaborator money out are never comingled in one ledger.

SEE ALSO:
  - receivable/: The client-schedule wrapper
  - engine/types.go: ScheduleScope, the key that keeps ledgers apart
*/
package payout

import (
	"context"
	"errors"
	"fmt"

	"github.com/warp/contract-engine/engine"
)

// ErrNotPayoutSchedule is returned when a payout operation targets an
// installment on the client schedule.
var ErrNotPayoutSchedule = errors.New("installment is not on a collaborator pay schedule")

// ErrWrongCollaborator is returned when someone other than the schedule's
// designated collaborator submits a payment into it.
var ErrWrongCollaborator = errors.New("only the designated collaborator may submit to this schedule")

// ErrAdminRequired is returned when a non-admin tries to decide a payment.
var ErrAdminRequired = errors.New("payment decisions require an administrator")

// =============================================================================
// LEDGER
// =============================================================================

// Ledger is the collaborator pay ledger for a store.
type Ledger struct {
	inner *engine.Ledger
}

func NewLedger(store engine.Store, dispatcher engine.Dispatcher) *Ledger {
	return &Ledger{inner: engine.NewLedger(store, dispatcher)}
}

// SubmitInput is a collaborator's payment claim against their own schedule.
type SubmitInput struct {
	InstallmentID  engine.InstallmentID
	Amount         engine.Money
	Method         engine.PaymentMethod
	Reference      string
	CollaboratorID engine.CollaboratorID // the submitter's identity
}

// Submit records a new PENDING claim on the submitter's own pay schedule.
func (l *Ledger) Submit(ctx context.Context, in SubmitInput) (engine.Payment, error) {
	scope, err := l.inner.ScopeOf(ctx, in.InstallmentID)
	if err != nil {
		return engine.Payment{}, err
	}
	if scope.IsClient() {
		return engine.Payment{}, fmt.Errorf("%w: %s", ErrNotPayoutSchedule, in.InstallmentID)
	}
	if scope.CollaboratorID != in.CollaboratorID {
		return engine.Payment{}, fmt.Errorf("%w: schedule belongs to %s",
			ErrWrongCollaborator, scope.CollaboratorID)
	}
	return l.inner.SubmitPayment(ctx, engine.SubmitInput{
		InstallmentID:   in.InstallmentID,
		Amount:          in.Amount,
		Method:          in.Method,
		Reference:       in.Reference,
		SubmittedBy:     string(in.CollaboratorID),
		SubmittedByType: engine.ActorCollaborator,
	})
}

// DecideInput is an administrative verification of a payout payment.
type DecideInput struct {
	PaymentID engine.PaymentID
	Outcome   engine.PaymentStatus
	AdminID   string
	AdminRole string
}

// Decide verifies a pending payout payment. Admin only; exactly once.
func (l *Ledger) Decide(ctx context.Context, in DecideInput) (engine.Payment, error) {
	if in.AdminRole != engine.ActorAdmin {
		return engine.Payment{}, fmt.Errorf("%w: role %q", ErrAdminRequired, in.AdminRole)
	}
	_, scope, err := l.inner.Store.FindPayment(ctx, in.PaymentID)
	if err != nil {
		return engine.Payment{}, err
	}
	if scope.IsClient() {
		return engine.Payment{}, fmt.Errorf("%w: %s", ErrNotPayoutSchedule, in.PaymentID)
	}
	return l.inner.DecidePayment(ctx, engine.DecideInput{
		PaymentID: in.PaymentID,
		Outcome:   in.Outcome,
		DecidedBy: in.AdminID,
	})
}

// Summary aggregates a collaborator's pay schedule the same way the client
// schedule is aggregated: same resolver, separate ledger.
func Summary(col *engine.Collaborator) engine.PaymentSummary {
	return engine.SchedulePaymentStatus(col.Installments)
}
