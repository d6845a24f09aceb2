/*
status.go - Status derivation rules

PURPOSE:
  Pure functions deriving installment status from its payment list, and the
  contract-level aggregate from all installments. Evaluated fresh on every
  call - no caching, no side effects, no stored status to drift out of sync
  across the admin, company-portal and collaborator-portal views.

PRIORITY ORDER (installment):
  1. Any COMPLETED payment        -> PAID
  2. else any PENDING payment     -> PENDING_VERIFICATION
  3. else any FAILED payment      -> REJECTED
  4. else (no payments)           -> NO_PAYMENTS

  A single completed payment is sufficient for PAID regardless of amount
  matching: partial and over-payments are accepted and only flagged in
  views (see AmountMismatch).
*/
package engine

import "time"

// =============================================================================
// INSTALLMENT STATUS
// =============================================================================

// ResolveStatus derives the installment's status from its payments.
func ResolveStatus(inst Installment) InstallmentStatus {
	var pending, failed bool
	for i := range inst.Payments {
		switch inst.Payments[i].Status {
		case PaymentCompleted:
			return StatusPaid
		case PaymentPending:
			pending = true
		case PaymentFailed:
			failed = true
		}
	}
	switch {
	case pending:
		return StatusPendingVerification
	case failed:
		return StatusRejected
	default:
		return StatusNoPayments
	}
}

// IsOverdue reports whether the installment's due date has passed without
// it resolving to PAID. Compared at day granularity.
func IsOverdue(inst Installment, now time.Time) bool {
	return DateOnly(inst.DueDate).Before(DateOnly(now)) && ResolveStatus(inst) != StatusPaid
}

// AmountMismatch reports whether the completed payments against an
// installment do not add up to its amount (partial or over-payment).
// Display-only: a mismatch never blocks PAID.
func AmountMismatch(inst Installment) bool {
	completed := inst.Amount.Zero()
	any := false
	for i := range inst.Payments {
		if inst.Payments[i].Status == PaymentCompleted {
			completed = completed.Add(inst.Payments[i].Amount)
			any = true
		}
	}
	return any && !completed.Equal(inst.Amount)
}

// =============================================================================
// CONTRACT AGGREGATE STATUS
// =============================================================================

// PaymentSummary is the contract-level aggregate over one schedule.
type PaymentSummary struct {
	FullyPaid  bool
	PaidCount  int
	TotalCount int
}

// SchedulePaymentStatus aggregates status across a schedule's installments.
// FullyPaid iff every installment resolves to PAID (vacuously false for an
// empty schedule - a contract with no installments is not "paid").
func SchedulePaymentStatus(installments []Installment) PaymentSummary {
	s := PaymentSummary{TotalCount: len(installments)}
	for i := range installments {
		if ResolveStatus(installments[i]) == StatusPaid {
			s.PaidCount++
		}
	}
	s.FullyPaid = s.TotalCount > 0 && s.PaidCount == s.TotalCount
	return s
}

// ContractPaymentStatus aggregates the client-facing schedule.
func ContractPaymentStatus(c *Contract) PaymentSummary {
	return SchedulePaymentStatus(c.Installments)
}
