/*
Package receivable manages the client-facing payment ledger: money coming
IN from the contracted company.

PURPOSE:
  Wraps the engine ledger with the party rules of the company self-service
  portal. The engine itself is party-agnostic; this wrapper enforces WHO
  may do what on the client schedule:

    - Submissions come from the company (the payer uploading evidence).
    - Decisions come from an administrator only.
    - Client-schedule operations never touch a collaborator schedule -
      the scope check rejects any installment owned by a payout ledger.

WHY A WRAPPER?
  The collaborator pay ledger (package payout) runs the exact same engine
  with different party rules. Keeping the rules here, out of the engine,
  means the two ledgers share every algorithm and share no state.

SEE ALSO:
  - payout/: The mirror-image wrapper for collaborator pay schedules
  - engine/ledger.go: The underlying submit/decide mechanics
*/
package receivable

import (
	"context"
	"errors"
	"fmt"

	"github.com/warp/contract-engine/engine"
)

// ErrNotClientSchedule is returned when a client-ledger operation targets
// an installment that belongs to a collaborator pay schedule.
var ErrNotClientSchedule = errors.New("installment is not on the client schedule")

// ErrAdminRequired is returned when a non-admin tries to decide a payment.
var ErrAdminRequired = errors.New("payment decisions require an administrator")

// =============================================================================
// LEDGER
// =============================================================================

// Ledger is the client-facing payment ledger for a store.
type Ledger struct {
	inner *engine.Ledger
}

func NewLedger(store engine.Store, dispatcher engine.Dispatcher) *Ledger {
	return &Ledger{inner: engine.NewLedger(store, dispatcher)}
}

// SubmitInput is a company payment claim against a client installment.
type SubmitInput struct {
	InstallmentID engine.InstallmentID
	Amount        engine.Money
	Method        engine.PaymentMethod
	Reference     string
	CompanyUser   string // identity of the company-portal submitter
}

// Submit records a new PENDING claim on the client schedule.
func (l *Ledger) Submit(ctx context.Context, in SubmitInput) (engine.Payment, error) {
	scope, err := l.inner.ScopeOf(ctx, in.InstallmentID)
	if err != nil {
		return engine.Payment{}, err
	}
	if !scope.IsClient() {
		return engine.Payment{}, fmt.Errorf("%w: %s", ErrNotClientSchedule, in.InstallmentID)
	}
	return l.inner.SubmitPayment(ctx, engine.SubmitInput{
		InstallmentID:   in.InstallmentID,
		Amount:          in.Amount,
		Method:          in.Method,
		Reference:       in.Reference,
		SubmittedBy:     in.CompanyUser,
		SubmittedByType: engine.ActorCompany,
	})
}

// DecideInput is an administrative verification of a client payment.
type DecideInput struct {
	PaymentID engine.PaymentID
	Outcome   engine.PaymentStatus
	AdminID   string
	AdminRole string // must be engine.ActorAdmin
}

// Decide verifies a pending client payment. Admin only; exactly once.
func (l *Ledger) Decide(ctx context.Context, in DecideInput) (engine.Payment, error) {
	if in.AdminRole != engine.ActorAdmin {
		return engine.Payment{}, fmt.Errorf("%w: role %q", ErrAdminRequired, in.AdminRole)
	}
	_, scope, err := l.inner.Store.FindPayment(ctx, in.PaymentID)
	if err != nil {
		return engine.Payment{}, err
	}
	if !scope.IsClient() {
		return engine.Payment{}, fmt.Errorf("%w: %s", ErrNotClientSchedule, in.PaymentID)
	}
	return l.inner.DecidePayment(ctx, engine.DecideInput{
		PaymentID: in.PaymentID,
		Outcome:   in.Outcome,
		DecidedBy: in.AdminID,
	})
}
