/*
progress.go - Deliverable, payment and overall progress percentages

PURPOSE:
  Computes the three progress figures every view shows for a contract:

    DeliverablesPercentage = round(100 * completed / total), 0 when no
                             deliverables exist (no division by zero)
    PaymentPercentage      = round(100 * sum(COMPLETED amounts) / total),
                             display-capped at 100 on over-payment
    OverallProgress        = round((deliverables + payment) / 2)

  The equal-weight average is THE authoritative formula. The views this
  engine replaced each computed "overall progress" slightly differently;
  centralizing here is the whole point. Any change to the weighting is a
  design decision to be made once, not varied per view.

PRECISION:
  Intermediate division runs on decimal, same as all money arithmetic.
  Results are integers in [0, 100]. Rounding is half-away-from-zero.
*/
package engine

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// =============================================================================
// PROGRESS REPORT
// =============================================================================

// ProgressReport bundles the derived progress values for one contract.
type ProgressReport struct {
	ContractID              ContractID
	DeliverablesPercentage  int
	PaymentPercentage       int
	OverallProgress         int
	CompletedDeliverables   int
	TotalDeliverables       int
	CompletedPaymentsAmount Money // uncapped sum, preserved for audit
}

// ComputeProgress derives the full progress report for a contract.
func ComputeProgress(c *Contract) ProgressReport {
	completedAmount := completedTotal(c.Installments, c.Total.Currency)
	done, total := deliverableCounts(c)
	return ProgressReport{
		ContractID:              c.ID,
		DeliverablesPercentage:  DeliverablesPercentage(c),
		PaymentPercentage:       PaymentPercentage(c.Installments, c.Total),
		OverallProgress:         OverallProgress(c),
		CompletedDeliverables:   done,
		TotalDeliverables:       total,
		CompletedPaymentsAmount: completedAmount,
	}
}

// =============================================================================
// INDIVIDUAL PERCENTAGES
// =============================================================================

// DeliverablesPercentage is the share of completed deliverable assignments.
// A contract with zero deliverables reports 0, not a division error.
func DeliverablesPercentage(c *Contract) int {
	done, total := deliverableCounts(c)
	if total == 0 {
		return 0
	}
	return roundPct(decimal.NewFromInt(int64(done)).Mul(hundred).Div(decimal.NewFromInt(int64(total))))
}

// PaymentPercentage is the share of the schedule total covered by COMPLETED
// payments, capped at 100 for display. The uncapped sum stays available via
// ComputeProgress for audit.
func PaymentPercentage(installments []Installment, total Money) int {
	if !total.IsPositive() {
		return 0
	}
	completed := completedTotal(installments, total.Currency)
	pct := roundPct(completed.Value.Mul(hundred).Div(total.Value))
	if pct > 100 {
		return 100
	}
	return pct
}

// OverallProgress is the equal-weight average of deliverable and payment
// completion. See the package comment before changing the weighting.
func OverallProgress(c *Contract) int {
	d := decimal.NewFromInt(int64(DeliverablesPercentage(c)))
	p := decimal.NewFromInt(int64(PaymentPercentage(c.Installments, c.Total)))
	return roundPct(d.Add(p).Div(decimal.NewFromInt(2)))
}

// =============================================================================
// HELPERS
// =============================================================================

func deliverableCounts(c *Contract) (completed, total int) {
	for i := range c.Deliverables {
		if c.Deliverables[i].IsCompleted {
			completed++
		}
	}
	return completed, len(c.Deliverables)
}

func completedTotal(installments []Installment, currency Currency) Money {
	sum := Money{Currency: currency}.Zero()
	for i := range installments {
		for j := range installments[i].Payments {
			if installments[i].Payments[j].Status == PaymentCompleted {
				sum = sum.Add(installments[i].Payments[j].Amount)
			}
		}
	}
	return sum
}

func roundPct(d decimal.Decimal) int {
	return int(d.Round(0).IntPart())
}
