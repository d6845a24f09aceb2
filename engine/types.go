/*
Package engine provides the core contract payment reconciliation engine.

PURPOSE:
  This package contains the domain types and algorithms for splitting a
  contract total into due installments, tracking payment submissions against
  those installments, and deriving status and progress from the payment
  history. Both the client-facing schedule and collaborator pay schedules
  run on the same engine.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: An exact monetary amount with a currency (PEN or USD)
  - PaymentStatus: PENDING -> COMPLETED | FAILED, exactly one transition
  - InstallmentStatus: Derived from payments, never stored
  - Contract/Installment/Payment IDs: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal so installment sums reconcile exactly
     to the contract total. Never binary floating point.
  2. Derived state: Installment status and progress are recomputed from the
     current payment list on every read. There is no stored status field
     that can drift.
  3. One-way transitions: A payment is decided exactly once and never
     deleted or re-opened afterwards.

SEE ALSO:
  - schedule.go: Installment generation (remainder-to-last policy)
  - ledger.go: Payment submission and decision
  - status.go: Status derivation rules
  - progress.go: Percentage calculations
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Exact monetary amount with currency
// =============================================================================

// Currency is a closed set. The engine refuses anything else.
type Currency string

const (
	CurrencyPEN Currency = "PEN"
	CurrencyUSD Currency = "USD"
)

// minorDigits is the minor-unit precision for all supported currencies.
// Both PEN and USD carry two decimal places (centimos / cents).
const minorDigits = 2

// ValidCurrency reports whether c is one of the supported currencies.
func ValidCurrency(c Currency) bool {
	return c == CurrencyPEN || c == CurrencyUSD
}

type Money struct {
	Value    decimal.Decimal
	Currency Currency
}

func NewMoney(value float64, currency Currency) Money {
	return Money{Value: decimal.NewFromFloat(value).Round(minorDigits), Currency: currency}
}

func NewMoneyFromInt(value int64, currency Currency) Money {
	return Money{Value: decimal.NewFromInt(value), Currency: currency}
}

// NewMoneyFromString parses an exact decimal string like "33.34".
func NewMoneyFromString(value string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Money{}, err
	}
	return Money{Value: d, Currency: currency}, nil
}

func (m Money) Zero() Money              { return Money{Value: decimal.Zero, Currency: m.Currency} }
func (m Money) Add(b Money) Money        { return Money{Value: m.Value.Add(b.Value), Currency: m.Currency} }
func (m Money) Sub(b Money) Money        { return Money{Value: m.Value.Sub(b.Value), Currency: m.Currency} }
func (m Money) MulInt(n int64) Money     { return Money{Value: m.Value.Mul(decimal.NewFromInt(n)), Currency: m.Currency} }
func (m Money) IsZero() bool             { return m.Value.IsZero() }
func (m Money) IsNegative() bool         { return m.Value.IsNegative() }
func (m Money) IsPositive() bool         { return m.Value.IsPositive() }
func (m Money) Equal(b Money) bool       { return m.Currency == b.Currency && m.Value.Equal(b.Value) }
func (m Money) GreaterThan(b Money) bool { return m.Value.GreaterThan(b.Value) }
func (m Money) LessThan(b Money) bool    { return m.Value.LessThan(b.Value) }

// DivFloor divides by n and truncates to minor-unit precision.
// This is the base-installment amount: floor(total / count) at two decimals.
func (m Money) DivFloor(n int64) Money {
	return Money{
		Value:    m.Value.Div(decimal.NewFromInt(n)).Truncate(minorDigits),
		Currency: m.Currency,
	}
}

func (m Money) String() string {
	return m.Value.StringFixed(minorDigits) + " " + string(m.Currency)
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ContractID string
type InstallmentID string
type PaymentID string
type CollaboratorID string

// ScheduleScope identifies which ledger an installment belongs to.
// An empty CollaboratorID means the client-facing schedule (money in);
// a non-empty one means that collaborator's pay schedule (money out).
// The two are never comingled: every query and mutation carries a scope.
type ScheduleScope struct {
	ContractID     ContractID
	CollaboratorID CollaboratorID
}

// IsClient reports whether this scope is the contract's client schedule.
func (s ScheduleScope) IsClient() bool { return s.CollaboratorID == "" }

// =============================================================================
// PAYMENT - A submitted payment claim against an installment
// =============================================================================

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
)

// Decided reports whether the payment reached a terminal state.
func (s PaymentStatus) Decided() bool { return s == PaymentCompleted || s == PaymentFailed }

type PaymentMethod string

const (
	MethodCash         PaymentMethod = "CASH"
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	MethodCard         PaymentMethod = "CARD"
	MethodYape         PaymentMethod = "YAPE"
	MethodPlin         PaymentMethod = "PLIN"
	MethodOther        PaymentMethod = "OTHER"
)

// ValidMethod reports whether m is a known payment method.
func ValidMethod(m PaymentMethod) bool {
	switch m {
	case MethodCash, MethodBankTransfer, MethodCard, MethodYape, MethodPlin, MethodOther:
		return true
	}
	return false
}

// =============================================================================
// DERIVED STATUS - Computed from payments, never stored
// =============================================================================

type InstallmentStatus string

const (
	StatusNoPayments          InstallmentStatus = "NO_PAYMENTS"
	StatusPendingVerification InstallmentStatus = "PENDING_VERIFICATION"
	StatusPaid                InstallmentStatus = "PAID"
	StatusRejected            InstallmentStatus = "REJECTED"
)

// =============================================================================
// ACTOR TYPES - Who performed an action (carried for notifications/audit)
// =============================================================================

const (
	ActorCompany      = "company"
	ActorCollaborator = "collaborator"
	ActorAdmin        = "admin"
)
