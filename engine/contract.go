/*
contract.go - The contract aggregate and its nested records

PURPOSE:
  A Contract is the unit the engine computes over: total price, the ordered
  client installment schedule, deliverable assignments, and any assigned
  collaborators with their own independent pay schedules.

OWNERSHIP:
  Contract -> Installments -> Payments, exclusively. No two contracts share
  an installment; payments never move between installments; a collaborator
  schedule belongs to exactly one (contract, collaborator) pair.

HYDRATION:
  The engine never fetches. Callers hand it a fully loaded Contract (the
  Store interface in store.go does the loading) and read derived values
  back. Status and progress are always recomputed - see status.go.
*/
package engine

import "time"

// =============================================================================
// CONTRACT AGGREGATE
// =============================================================================

type Contract struct {
	ID        ContractID
	Title     string
	Total     Money
	StartDate time.Time
	EndDate   time.Time

	// Client-facing schedule. Sum of amounts equals Total exactly
	// (enforced at generation time by the scheduler).
	Installments []Installment

	Deliverables  []DeliverableAssignment
	Collaborators []Collaborator

	CreatedAt time.Time
}

// Installment is one scheduled partial payment ("cuota") of a schedule total.
type Installment struct {
	ID          InstallmentID
	Scope       ScheduleScope
	Number      int // 1-indexed position in the schedule
	Description string
	Amount      Money
	DueDate     time.Time

	// Payment claims submitted against this installment, oldest first.
	Payments []Payment
}

// Payment is a submitted claim of money paid against an installment.
// The amount is recorded independently of the installment amount: partial
// and over-payments are permitted and flagged in views, never rejected.
type Payment struct {
	ID            PaymentID
	InstallmentID InstallmentID
	Amount        Money
	Method        PaymentMethod
	Reference     string // operation number, optional
	Status        PaymentStatus

	SubmittedBy     string // actor identity, e.g. company user or collaborator id
	SubmittedByType string // ActorCompany or ActorCollaborator

	CreatedAt time.Time
	DecidedAt *time.Time // set only on transition to COMPLETED
	DecidedBy string     // admin identity, set on decision
}

// DeliverableAssignment is read-only input to the progress calculator.
// Its completion workflow lives outside the engine.
type DeliverableAssignment struct {
	ID          string
	Title       string
	Notes       string
	IsCompleted bool
	IsApproved  bool // meaningful only once completed
	AssignedAt  time.Time
	CompletedAt *time.Time
}

// Collaborator carries an independent pay schedule, structurally identical
// to the client schedule but a separate ledger (money out, not money in).
type Collaborator struct {
	ID           CollaboratorID
	Name         string
	Total        Money
	Installments []Installment
}

// =============================================================================
// SNAPSHOT LOOKUPS
// =============================================================================

// ClientScope returns the scope of the contract's client schedule.
func (c *Contract) ClientScope() ScheduleScope {
	return ScheduleScope{ContractID: c.ID}
}

// Installment finds an installment in the client schedule.
func (c *Contract) Installment(id InstallmentID) (*Installment, bool) {
	return findInstallment(c.Installments, id)
}

// CollaboratorByID finds an assigned collaborator.
func (c *Contract) CollaboratorByID(id CollaboratorID) (*Collaborator, bool) {
	for i := range c.Collaborators {
		if c.Collaborators[i].ID == id {
			return &c.Collaborators[i], true
		}
	}
	return nil, false
}

// Installment finds an installment in the collaborator's pay schedule.
func (col *Collaborator) Installment(id InstallmentID) (*Installment, bool) {
	return findInstallment(col.Installments, id)
}

func findInstallment(installments []Installment, id InstallmentID) (*Installment, bool) {
	for i := range installments {
		if installments[i].ID == id {
			return &installments[i], true
		}
	}
	return nil, false
}

// PaymentCount returns the number of payment claims recorded across a
// schedule. Used by the scheduler's regeneration lock.
func PaymentCount(installments []Installment) int {
	n := 0
	for i := range installments {
		n += len(installments[i].Payments)
	}
	return n
}

// ScheduleTotal sums installment amounts. For a generated schedule this
// equals the schedule total exactly (the sum invariant).
func ScheduleTotal(installments []Installment, currency Currency) Money {
	total := Money{Currency: currency}.Zero()
	for i := range installments {
		total = total.Add(installments[i].Amount)
	}
	return total
}
