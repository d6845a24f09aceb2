/*
schedule_test.go - Executable specification of schedule generation

PURPOSE:
  These tests document the scheduling rules:
  1. Sum invariant - installment amounts always sum exactly to the total
  2. Remainder-to-last - the final installment absorbs rounding
  3. Due dates - monthly stepping with day clamping in short months
  4. Validation - count and total bounds
  5. Lock - schedules with payment history refuse regeneration

READING THESE TESTS:
  Each test has GIVEN/WHEN/THEN comments explaining the scenario.
*/
package engine_test

import (
	"errors"
	"testing"
	"time"

	"github.com/warp/contract-engine/engine"
)

// =============================================================================
// TEST INFRASTRUCTURE
// =============================================================================

func pen(t *testing.T, s string) engine.Money {
	t.Helper()
	m, err := engine.NewMoneyFromString(s, engine.CurrencyPEN)
	if err != nil {
		t.Fatalf("bad money literal %q: %v", s, err)
	}
	return m
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func spec(total engine.Money, count int, start time.Time) engine.ScheduleSpec {
	return engine.ScheduleSpec{
		Scope:     engine.ScheduleScope{ContractID: "ct-1"},
		Total:     total,
		Count:     count,
		StartDate: start,
	}
}

// =============================================================================
// SUM INVARIANT
// =============================================================================

func TestGenerateSchedule_SumInvariant(t *testing.T) {
	// GIVEN: Totals that do and do not divide evenly
	// WHEN: Generating schedules of various counts
	// THEN: The installment amounts always sum exactly to the total

	totals := []string{"1200.00", "100.00", "0.01", "999.97", "3333.33"}
	counts := []int{1, 2, 3, 7, 12, 60}

	for _, totalStr := range totals {
		for _, count := range counts {
			total := pen(t, totalStr)
			installments, err := engine.GenerateSchedule(spec(total, count, date(2026, time.January, 15)))
			if err != nil {
				t.Fatalf("generate %s/%d: %v", totalStr, count, err)
			}
			if len(installments) != count {
				t.Fatalf("generate %s/%d: got %d installments", totalStr, count, len(installments))
			}
			sum := engine.ScheduleTotal(installments, engine.CurrencyPEN)
			if !sum.Equal(total) {
				t.Errorf("generate %s/%d: amounts sum to %s, want %s", totalStr, count, sum, total)
			}
		}
	}
}

func TestGenerateSchedule_RemainderToLast(t *testing.T) {
	// GIVEN: 100.00 split 3 ways (does not divide evenly)
	// WHEN: Generating the schedule
	// THEN: Installments are 33.33, 33.33, 33.34 - the LAST absorbs the remainder

	installments, err := engine.GenerateSchedule(spec(pen(t, "100.00"), 3, date(2026, time.January, 15)))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	want := []string{"33.33", "33.33", "33.34"}
	for i, w := range want {
		got := installments[i].Amount.Value.StringFixed(2)
		if got != w {
			t.Errorf("installment %d: amount %s, want %s", i+1, got, w)
		}
	}
}

func TestGenerateSchedule_SingleInstallment(t *testing.T) {
	// GIVEN: A count of 1
	// WHEN: Generating
	// THEN: One installment carries the entire total

	total := pen(t, "750.50")
	installments, err := engine.GenerateSchedule(spec(total, 1, date(2026, time.March, 1)))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(installments) != 1 || !installments[0].Amount.Equal(total) {
		t.Errorf("single installment should carry the full total, got %v", installments)
	}
}

func TestGenerateSchedule_NumbersAndLabels(t *testing.T) {
	// GIVEN: A 4-installment schedule with a description
	// WHEN: Generating
	// THEN: Installments are 1-indexed and labeled "Cuota i/4"

	installments, err := engine.GenerateSchedule(engine.ScheduleSpec{
		Scope:       engine.ScheduleScope{ContractID: "ct-1"},
		Total:       pen(t, "1200.00"),
		Count:       4,
		StartDate:   date(2026, time.January, 15),
		Description: "Cuota",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	for i, inst := range installments {
		if inst.Number != i+1 {
			t.Errorf("installment %d: number %d", i, inst.Number)
		}
	}
	if installments[0].Description != "Cuota 1/4" {
		t.Errorf("label: got %q", installments[0].Description)
	}
}

// =============================================================================
// DUE DATES
// =============================================================================

func TestGenerateSchedule_MonthlyDueDates(t *testing.T) {
	// GIVEN: A start date of Jan 15
	// WHEN: Generating 3 installments
	// THEN: Due dates are Feb 15, Mar 15, Apr 15

	installments, err := engine.GenerateSchedule(spec(pen(t, "300.00"), 3, date(2026, time.January, 15)))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	want := []time.Time{
		date(2026, time.February, 15),
		date(2026, time.March, 15),
		date(2026, time.April, 15),
	}
	for i, w := range want {
		if !installments[i].DueDate.Equal(w) {
			t.Errorf("installment %d: due %s, want %s", i+1, installments[i].DueDate, w)
		}
	}
}

func TestGenerateSchedule_DayClampsInShortMonths(t *testing.T) {
	// GIVEN: A start date of Jan 31
	// WHEN: Stepping through February and April
	// THEN: The day clamps to the month's last day (Feb 28, Apr 30),
	//       and returns to 31 in months that have it

	installments, err := engine.GenerateSchedule(spec(pen(t, "400.00"), 4, date(2026, time.January, 31)))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	want := []time.Time{
		date(2026, time.February, 28),
		date(2026, time.March, 31),
		date(2026, time.April, 30),
		date(2026, time.May, 31),
	}
	for i, w := range want {
		if !installments[i].DueDate.Equal(w) {
			t.Errorf("installment %d: due %s, want %s", i+1, installments[i].DueDate, w)
		}
	}
}

func TestAddMonthsClamped_LeapFebruary(t *testing.T) {
	// GIVEN: Jan 31 of a leap year
	// WHEN: Adding one month
	// THEN: Feb 29, not Mar 2

	got := engine.AddMonthsClamped(date(2028, time.January, 31), 1)
	if !got.Equal(date(2028, time.February, 29)) {
		t.Errorf("got %s, want 2028-02-29", got)
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestGenerateSchedule_RejectsInvalidInput(t *testing.T) {
	// GIVEN: Out-of-range counts and non-positive totals
	// WHEN: Generating
	// THEN: InvalidScheduleError, matchable via errors.Is

	cases := []struct {
		name  string
		total engine.Money
		count int
	}{
		{"zero count", pen(t, "100.00"), 0},
		{"negative count", pen(t, "100.00"), -2},
		{"count over max", pen(t, "100.00"), engine.MaxInstallments + 1},
		{"zero total", pen(t, "0.00"), 3},
		{"negative total", pen(t, "-5.00"), 3},
		{"bad currency", engine.NewMoneyFromInt(100, "EUR"), 3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.GenerateSchedule(spec(tc.total, tc.count, date(2026, time.January, 1)))
			if !errors.Is(err, engine.ErrInvalidSchedule) {
				t.Errorf("want ErrInvalidSchedule, got %v", err)
			}
			var invalid *engine.InvalidScheduleError
			if !errors.As(err, &invalid) {
				t.Errorf("want *InvalidScheduleError, got %T", err)
			}
		})
	}
}

// =============================================================================
// REGENERATION LOCK
// =============================================================================

func TestRegenerate_WithoutPayments_Succeeds(t *testing.T) {
	// GIVEN: A schedule with no payment history
	// WHEN: Regenerating with a new count
	// THEN: A fresh schedule replaces it

	existing, err := engine.GenerateSchedule(spec(pen(t, "100.00"), 2, date(2026, time.January, 1)))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	regenerated, err := engine.Regenerate(existing, spec(pen(t, "100.00"), 4, date(2026, time.February, 1)))
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if len(regenerated) != 4 {
		t.Errorf("got %d installments, want 4", len(regenerated))
	}
}

func TestRegenerate_WithPayments_Locked(t *testing.T) {
	// GIVEN: A schedule where one installment has a payment claim
	// WHEN: Attempting to regenerate
	// THEN: ScheduleLockedError - amounts are immutable once money moved

	existing, err := engine.GenerateSchedule(spec(pen(t, "100.00"), 2, date(2026, time.January, 1)))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	existing[0].Payments = append(existing[0].Payments, engine.Payment{
		ID:     "pay-1",
		Status: engine.PaymentPending,
	})

	_, err = engine.Regenerate(existing, spec(pen(t, "100.00"), 4, date(2026, time.February, 1)))
	if !errors.Is(err, engine.ErrScheduleLocked) {
		t.Fatalf("want ErrScheduleLocked, got %v", err)
	}
	var locked *engine.ScheduleLockedError
	if !errors.As(err, &locked) {
		t.Fatalf("want *ScheduleLockedError, got %T", err)
	}
	if locked.Payments != 1 {
		t.Errorf("locked.Payments = %d, want 1", locked.Payments)
	}
}

func TestEditDueDate_AllowedAfterPayments(t *testing.T) {
	// GIVEN: A locked schedule (payment history exists)
	// WHEN: Editing a single due date
	// THEN: The edit succeeds - due dates are the one mutable field

	installments, err := engine.GenerateSchedule(spec(pen(t, "100.00"), 2, date(2026, time.January, 1)))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	installments[0].Payments = append(installments[0].Payments, engine.Payment{ID: "pay-1", Status: engine.PaymentPending})

	newDue := date(2026, time.June, 1)
	if err := engine.EditDueDate(installments, installments[1].ID, newDue); err != nil {
		t.Fatalf("edit due date: %v", err)
	}
	if !installments[1].DueDate.Equal(newDue) {
		t.Errorf("due date not updated: %s", installments[1].DueDate)
	}
}

func TestEditDueDate_UnknownInstallment(t *testing.T) {
	// GIVEN: An id not present in the schedule
	// WHEN: Editing its due date
	// THEN: NotFoundError

	installments, _ := engine.GenerateSchedule(spec(pen(t, "100.00"), 2, date(2026, time.January, 1)))
	err := engine.EditDueDate(installments, "missing", date(2026, time.June, 1))
	if !errors.Is(err, engine.ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}
}
