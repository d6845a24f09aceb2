/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupling the engine
  aggregates from the external contract. Derived fields (status, overdue,
  progress) are computed at serialization time from the hydrated aggregate,
  so every consumer - admin dashboard, company portal, collaborator portal -
  sees the same numbers.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY IN JSON:
  Amounts travel as exact decimal strings ("33.34"), never JSON numbers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/terms.go: TermsJSON, the contract-creation request body
*/
package api

import (
	"time"

	"github.com/warp/contract-engine/engine"
)

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ContractDTO is the full contract view with all derived values resolved.
type ContractDTO struct {
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	Total         string            `json:"total"`
	Currency      string            `json:"currency"`
	StartDate     string            `json:"start_date"`
	EndDate       string            `json:"end_date,omitempty"`
	FullyPaid     bool              `json:"fully_paid"`
	PaidCount     int               `json:"paid_count"`
	TotalCount    int               `json:"total_count"`
	Installments  []InstallmentDTO  `json:"installments"`
	Deliverables  []DeliverableDTO  `json:"deliverables"`
	Collaborators []CollaboratorDTO `json:"collaborators,omitempty"`
	Progress      ProgressDTO       `json:"progress"`
	CreatedAt     string            `json:"created_at,omitempty"`
}

// InstallmentDTO represents one installment with its resolved status.
type InstallmentDTO struct {
	ID             string       `json:"id"`
	Number         int          `json:"number"`
	Description    string       `json:"description"`
	Amount         string       `json:"amount"`
	Currency       string       `json:"currency"`
	DueDate        string       `json:"due_date"`
	Status         string       `json:"status"`
	Overdue        bool         `json:"overdue"`
	AmountMismatch bool         `json:"amount_mismatch,omitempty"`
	Payments       []PaymentDTO `json:"payments"`
}

// PaymentDTO represents a payment record.
type PaymentDTO struct {
	ID              string `json:"id"`
	InstallmentID   string `json:"installment_id"`
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
	Method          string `json:"method"`
	Reference       string `json:"reference,omitempty"`
	Status          string `json:"status"`
	SubmittedBy     string `json:"submitted_by"`
	SubmittedByType string `json:"submitted_by_type"`
	CreatedAt       string `json:"created_at"`
	DecidedAt       string `json:"decided_at,omitempty"`
	DecidedBy       string `json:"decided_by,omitempty"`
}

// DeliverableDTO represents a deliverable assignment.
type DeliverableDTO struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Notes       string `json:"notes,omitempty"`
	IsCompleted bool   `json:"is_completed"`
	IsApproved  bool   `json:"is_approved"`
	AssignedAt  string `json:"assigned_at"`
	CompletedAt string `json:"completed_at,omitempty"`
}

// CollaboratorDTO represents a collaborator and their pay schedule.
type CollaboratorDTO struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Total        string           `json:"total"`
	FullyPaid    bool             `json:"fully_paid"`
	PaidCount    int              `json:"paid_count"`
	TotalCount   int              `json:"total_count"`
	Installments []InstallmentDTO `json:"installments"`
}

// ProgressDTO carries the three authoritative percentages.
type ProgressDTO struct {
	Deliverables    int    `json:"deliverables_percentage"`
	Payment         int    `json:"payment_percentage"`
	Overall         int    `json:"overall_progress"`
	CompletedAmount string `json:"completed_payments_amount"` // uncapped audit sum
	Cached          bool   `json:"cached,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// SubmitPaymentRequest is a payment claim from the company portal or the
// collaborator portal. Which ledger it reaches depends on the route.
type SubmitPaymentRequest struct {
	InstallmentID string `json:"installment_id"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Method        string `json:"method"`
	Reference     string `json:"reference,omitempty"`
	SubmittedBy   string `json:"submitted_by"`
}

// DecidePaymentRequest is the administrative verification action.
type DecidePaymentRequest struct {
	Outcome   string `json:"outcome"` // COMPLETED or FAILED
	AdminID   string `json:"admin_id"`
	AdminRole string `json:"admin_role"`
}

// EditDueDateRequest replaces one installment's due date.
type EditDueDateRequest struct {
	DueDate string `json:"due_date"` // YYYY-MM-DD
}

// RegenerateScheduleRequest rebuilds a schedule that has no payments yet.
type RegenerateScheduleRequest struct {
	Total        string `json:"total"`
	Installments int    `json:"installments"`
	StartDate    string `json:"start_date"`
	Description  string `json:"description,omitempty"`
	Collaborator string `json:"collaborator_id,omitempty"` // empty = client schedule
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toContractDTO(c *engine.Contract, progress engine.ProgressReport, cached bool, now time.Time) ContractDTO {
	summary := engine.ContractPaymentStatus(c)
	dto := ContractDTO{
		ID:           string(c.ID),
		Title:        c.Title,
		Total:        c.Total.Value.StringFixed(2),
		Currency:     string(c.Total.Currency),
		StartDate:    c.StartDate.Format("2006-01-02"),
		FullyPaid:    summary.FullyPaid,
		PaidCount:    summary.PaidCount,
		TotalCount:   summary.TotalCount,
		Installments: toInstallmentDTOs(c.Installments, now),
		Deliverables: make([]DeliverableDTO, 0, len(c.Deliverables)),
		Progress:     toProgressDTO(progress, cached),
		CreatedAt:    c.CreatedAt.Format(time.RFC3339),
	}
	if !c.EndDate.IsZero() {
		dto.EndDate = c.EndDate.Format("2006-01-02")
	}
	for i := range c.Deliverables {
		dto.Deliverables = append(dto.Deliverables, toDeliverableDTO(c.Deliverables[i]))
	}
	for i := range c.Collaborators {
		dto.Collaborators = append(dto.Collaborators, toCollaboratorDTO(c.Collaborators[i], now))
	}
	return dto
}

func toInstallmentDTOs(installments []engine.Installment, now time.Time) []InstallmentDTO {
	dtos := make([]InstallmentDTO, len(installments))
	for i := range installments {
		dtos[i] = toInstallmentDTO(installments[i], now)
	}
	return dtos
}

func toInstallmentDTO(inst engine.Installment, now time.Time) InstallmentDTO {
	dto := InstallmentDTO{
		ID:             string(inst.ID),
		Number:         inst.Number,
		Description:    inst.Description,
		Amount:         inst.Amount.Value.StringFixed(2),
		Currency:       string(inst.Amount.Currency),
		DueDate:        inst.DueDate.Format("2006-01-02"),
		Status:         string(engine.ResolveStatus(inst)),
		Overdue:        engine.IsOverdue(inst, now),
		AmountMismatch: engine.AmountMismatch(inst),
		Payments:       make([]PaymentDTO, len(inst.Payments)),
	}
	for i := range inst.Payments {
		dto.Payments[i] = toPaymentDTO(inst.Payments[i])
	}
	return dto
}

func toPaymentDTO(p engine.Payment) PaymentDTO {
	dto := PaymentDTO{
		ID:              string(p.ID),
		InstallmentID:   string(p.InstallmentID),
		Amount:          p.Amount.Value.StringFixed(2),
		Currency:        string(p.Amount.Currency),
		Method:          string(p.Method),
		Reference:       p.Reference,
		Status:          string(p.Status),
		SubmittedBy:     p.SubmittedBy,
		SubmittedByType: p.SubmittedByType,
		CreatedAt:       p.CreatedAt.Format(time.RFC3339),
		DecidedBy:       p.DecidedBy,
	}
	if p.DecidedAt != nil {
		dto.DecidedAt = p.DecidedAt.Format(time.RFC3339)
	}
	return dto
}

func toDeliverableDTO(d engine.DeliverableAssignment) DeliverableDTO {
	dto := DeliverableDTO{
		ID:          d.ID,
		Title:       d.Title,
		Notes:       d.Notes,
		IsCompleted: d.IsCompleted,
		IsApproved:  d.IsApproved,
		AssignedAt:  d.AssignedAt.Format(time.RFC3339),
	}
	if d.CompletedAt != nil {
		dto.CompletedAt = d.CompletedAt.Format(time.RFC3339)
	}
	return dto
}

func toCollaboratorDTO(col engine.Collaborator, now time.Time) CollaboratorDTO {
	summary := engine.SchedulePaymentStatus(col.Installments)
	return CollaboratorDTO{
		ID:           string(col.ID),
		Name:         col.Name,
		Total:        col.Total.Value.StringFixed(2),
		FullyPaid:    summary.FullyPaid,
		PaidCount:    summary.PaidCount,
		TotalCount:   summary.TotalCount,
		Installments: toInstallmentDTOs(col.Installments, now),
	}
}

func toProgressDTO(report engine.ProgressReport, cached bool) ProgressDTO {
	return ProgressDTO{
		Deliverables:    report.DeliverablesPercentage,
		Payment:         report.PaymentPercentage,
		Overall:         report.OverallProgress,
		CompletedAmount: report.CompletedPaymentsAmount.Value.StringFixed(2),
		Cached:          cached,
	}
}
