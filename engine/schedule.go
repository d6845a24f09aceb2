/*
schedule.go - Installment schedule generation

PURPOSE:
  Splits a schedule total into `count` monthly installments whose amounts
  sum EXACTLY to the total, regardless of rounding.

REMAINDER POLICY:
  base = floor(total / count) at minor-unit precision.
  Installments 1..count-1 get base; the LAST installment gets
  total - base*(count-1) and absorbs the rounding remainder.

  100.00 / 3 -> [33.33, 33.33, 33.34]

  Remainder-to-first or spread-evenly would be equally valid splits; this
  engine fixes remainder-to-last so every view derives the same numbers.

DUE DATES:
  Installment i is due on startDate + i calendar months, day-of-month
  clamped to shorter months (see calendar.go).

MUTABILITY:
  After generation, only due dates may be edited. Amount and count are
  immutable once any payment exists: Regenerate refuses with
  ScheduleLockedError instead of orphaning payment history.
*/
package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MaxInstallments guards against pathological input from the UI layer.
const MaxInstallments = 60

// ScheduleSpec is the input to schedule generation.
type ScheduleSpec struct {
	Scope       ScheduleScope
	Total       Money
	Count       int
	StartDate   time.Time
	Description string
}

// GenerateSchedule produces an ordered list of installments for the spec.
// Invariant: the amounts sum exactly to spec.Total.
func GenerateSchedule(spec ScheduleSpec) ([]Installment, error) {
	if err := validateSpec(spec); err != nil {
		return nil, err
	}

	base := spec.Total.DivFloor(int64(spec.Count))
	last := spec.Total.Sub(base.MulInt(int64(spec.Count - 1)))
	dates := DueDates(spec.StartDate, spec.Count)

	installments := make([]Installment, spec.Count)
	for i := 1; i <= spec.Count; i++ {
		amount := base
		if i == spec.Count {
			amount = last
		}
		installments[i-1] = Installment{
			ID:          InstallmentID(uuid.NewString()),
			Scope:       spec.Scope,
			Number:      i,
			Description: installmentLabel(spec.Description, i, spec.Count),
			Amount:      amount,
			DueDate:     DateOnly(dates[i-1]),
		}
	}
	return installments, nil
}

// Regenerate replaces an existing schedule, refusing when any payment has
// been recorded against it. Due-date edits do not go through here.
func Regenerate(existing []Installment, spec ScheduleSpec) ([]Installment, error) {
	if n := PaymentCount(existing); n > 0 {
		return nil, &ScheduleLockedError{Scope: spec.Scope, Payments: n}
	}
	return GenerateSchedule(spec)
}

// EditDueDate replaces the due date of one installment in place.
// This is the only post-generation edit the schedule allows.
func EditDueDate(installments []Installment, id InstallmentID, due time.Time) error {
	inst, ok := findInstallment(installments, id)
	if !ok {
		return &NotFoundError{Kind: "installment", ID: string(id)}
	}
	inst.DueDate = DateOnly(due)
	return nil
}

func validateSpec(spec ScheduleSpec) error {
	switch {
	case spec.Count < 1:
		return &InvalidScheduleError{Count: spec.Count, Total: spec.Total, Reason: "count must be at least 1"}
	case spec.Count > MaxInstallments:
		return &InvalidScheduleError{Count: spec.Count, Total: spec.Total,
			Reason: fmt.Sprintf("count exceeds maximum of %d", MaxInstallments)}
	case !spec.Total.IsPositive():
		return &InvalidScheduleError{Count: spec.Count, Total: spec.Total, Reason: "total must be positive"}
	case !ValidCurrency(spec.Total.Currency):
		return &InvalidScheduleError{Count: spec.Count, Total: spec.Total,
			Reason: fmt.Sprintf("unsupported currency %q", spec.Total.Currency)}
	}
	return nil
}

func installmentLabel(description string, i, count int) string {
	if description == "" {
		description = "Installment"
	}
	return fmt.Sprintf("%s %d/%d", description, i, count)
}
