/*
handlers.go - HTTP API handlers for the contract payment system

PURPOSE:
  Exposes the reconciliation engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Contracts:
    GET    /api/contracts                     List all contracts
    POST   /api/contracts                     Create contract from terms JSON
    GET    /api/contracts/{id}                Full contract view
    GET    /api/contracts/{id}/progress       Progress percentages
    GET    /api/contracts/{id}/status         Payment summary
    POST   /api/contracts/{id}/schedule       Regenerate a schedule

  Installments:
    PUT    /api/installments/{id}/due-date    Edit one due date

  Payments:
    POST   /api/client/payments               Company submits a claim
    POST   /api/collaborators/{id}/payments   Collaborator submits a claim
    POST   /api/payments/{id}/decide          Admin verifies (once)

  Scenarios:
    GET    /api/scenarios                     List demo scenarios
    POST   /api/scenarios/load                Load a demo scenario

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (ledger, scheduler, resolver)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, locked schedules
  - 403: Party rule violations (wrong submitter, non-admin decision)
  - 404: Resource not found
  - 409: Payment already decided
  - 500: Internal errors

SECURITY NOTE:
  Party identity comes from request bodies, not from authentication.
  An auth middleware in front of this API is expected in production.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warp/contract-engine/engine"
	"github.com/warp/contract-engine/factory"
	"github.com/warp/contract-engine/payout"
	"github.com/warp/contract-engine/receivable"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store       engine.Store
	Receivables *receivable.Ledger
	Payouts     *payout.Ledger

	// Clock is swappable for tests. Defaults to time.Now (UTC).
	Clock func() time.Time

	// Currently loaded scenario. Guarded by mu: handlers run concurrently.
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler over the given store. The dispatcher is
// shared by both ledgers so every decision produces one notification.
func NewHandler(store engine.Store, dispatcher engine.Dispatcher) *Handler {
	return &Handler{
		Store:       store,
		Receivables: receivable.NewLedger(store, dispatcher),
		Payouts:     payout.NewLedger(store, dispatcher),
		Clock:       func() time.Time { return time.Now().UTC() },
	}
}

// =============================================================================
// CONTRACT HANDLERS
// =============================================================================

// ListContracts returns all contracts, fully hydrated.
func (h *Handler) ListContracts(w http.ResponseWriter, r *http.Request) {
	contracts, err := h.Store.ListContracts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list contracts", err)
		return
	}

	now := h.Clock()
	dtos := make([]ContractDTO, len(contracts))
	for i, c := range contracts {
		report, cached := h.loadProgress(r, c)
		dtos[i] = toContractDTO(c, report, cached, now)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateContract builds and persists a contract from a terms document.
func (h *Handler) CreateContract(w http.ResponseWriter, r *http.Request) {
	var terms factory.TermsJSON
	if err := json.NewDecoder(r.Body).Decode(&terms); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid terms JSON", err)
		return
	}

	c, err := factory.BuildContract(terms, h.Clock())
	if err != nil {
		// Everything the factory rejects is caller input.
		writeError(w, http.StatusBadRequest, "Failed to build contract", err)
		return
	}
	if err := h.Store.SaveContract(r.Context(), c); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save contract", err)
		return
	}

	writeJSON(w, http.StatusCreated, toContractDTO(c, engine.ComputeProgress(c), false, h.Clock()))
}

// GetContract returns a single contract with all derived values.
func (h *Handler) GetContract(w http.ResponseWriter, r *http.Request) {
	c, ok := h.contract(w, r)
	if !ok {
		return
	}
	report, cached := h.loadProgress(r, c)
	writeJSON(w, http.StatusOK, toContractDTO(c, report, cached, h.Clock()))
}

// GetProgress returns just the progress percentages for a contract.
func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	c, ok := h.contract(w, r)
	if !ok {
		return
	}
	report, cached := h.loadProgress(r, c)
	writeJSON(w, http.StatusOK, toProgressDTO(report, cached))
}

// GetPaymentStatus returns the contract-level payment summary.
func (h *Handler) GetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	c, ok := h.contract(w, r)
	if !ok {
		return
	}
	summary := engine.ContractPaymentStatus(c)
	writeJSON(w, http.StatusOK, map[string]any{
		"fully_paid":  summary.FullyPaid,
		"paid_count":  summary.PaidCount,
		"total_count": summary.TotalCount,
	})
}

// RegenerateSchedule rebuilds the client or a collaborator schedule.
// Refused with 400 once any payment exists on the target schedule, or when
// the requested total differs from the stored one - the schedule must keep
// summing to the contract (resp. collaborator) total.
func (h *Handler) RegenerateSchedule(w http.ResponseWriter, r *http.Request) {
	c, ok := h.contract(w, r)
	if !ok {
		return
	}

	var req RegenerateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	total, err := engine.NewMoneyFromString(req.Total, c.Total.Currency)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid total", err)
		return
	}
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date", err)
		return
	}

	scope := engine.ScheduleScope{ContractID: c.ID, CollaboratorID: engine.CollaboratorID(req.Collaborator)}
	existing := c.Installments
	scheduleTotal := c.Total
	if !scope.IsClient() {
		col, found := c.CollaboratorByID(scope.CollaboratorID)
		if !found {
			writeError(w, http.StatusNotFound, "Collaborator not found", nil)
			return
		}
		existing = col.Installments
		scheduleTotal = col.Total
	}
	// The stored total is authoritative; regeneration changes the split,
	// never the amount owed.
	if !total.Equal(scheduleTotal) {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("Total %s does not match the schedule total %s", total, scheduleTotal), nil)
		return
	}

	installments, err := engine.Regenerate(existing, engine.ScheduleSpec{
		Scope:       scope,
		Total:       total,
		Count:       req.Installments,
		StartDate:   start,
		Description: req.Description,
	})
	if err != nil {
		writeDomainError(w, "Failed to regenerate schedule", err)
		return
	}
	if err := h.Store.ReplaceSchedule(r.Context(), scope, installments); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save schedule", err)
		return
	}

	writeJSON(w, http.StatusOK, toInstallmentDTOs(installments, h.Clock()))
}

// =============================================================================
// INSTALLMENT HANDLERS
// =============================================================================

// EditDueDate replaces one installment's due date, the only edit a schedule
// allows after generation.
func (h *Handler) EditDueDate(w http.ResponseWriter, r *http.Request) {
	id := engine.InstallmentID(chi.URLParam(r, "id"))

	var req EditDueDateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	due, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid due_date", err)
		return
	}

	if err := h.Store.UpdateDueDate(r.Context(), id, engine.DateOnly(due)); err != nil {
		writeDomainError(w, "Failed to update due date", err)
		return
	}

	inst, _, err := h.Store.FindInstallment(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to reload installment", err)
		return
	}
	writeJSON(w, http.StatusOK, toInstallmentDTO(inst, h.Clock()))
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// SubmitClientPayment records a company payment claim on the client schedule.
func (h *Handler) SubmitClientPayment(w http.ResponseWriter, r *http.Request) {
	req, amount, ok := h.parseSubmit(w, r)
	if !ok {
		return
	}

	p, err := h.Receivables.Submit(r.Context(), receivable.SubmitInput{
		InstallmentID: engine.InstallmentID(req.InstallmentID),
		Amount:        amount,
		Method:        engine.PaymentMethod(req.Method),
		Reference:     req.Reference,
		CompanyUser:   req.SubmittedBy,
	})
	if err != nil {
		writeDomainError(w, "Failed to submit payment", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentDTO(p))
}

// SubmitCollaboratorPayment records a collaborator claim on their own
// pay schedule. The URL collaborator is the submitter's identity.
func (h *Handler) SubmitCollaboratorPayment(w http.ResponseWriter, r *http.Request) {
	collaboratorID := engine.CollaboratorID(chi.URLParam(r, "id"))
	req, amount, ok := h.parseSubmit(w, r)
	if !ok {
		return
	}

	p, err := h.Payouts.Submit(r.Context(), payout.SubmitInput{
		InstallmentID:  engine.InstallmentID(req.InstallmentID),
		Amount:         amount,
		Method:         engine.PaymentMethod(req.Method),
		Reference:      req.Reference,
		CollaboratorID: collaboratorID,
	})
	if err != nil {
		writeDomainError(w, "Failed to submit payment", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentDTO(p))
}

// DecidePayment verifies a pending payment, exactly once. The scope of the
// payment routes the decision to the matching ledger's party rules.
func (h *Handler) DecidePayment(w http.ResponseWriter, r *http.Request) {
	id := engine.PaymentID(chi.URLParam(r, "id"))

	var req DecidePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	_, scope, err := h.Store.FindPayment(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to locate payment", err)
		return
	}

	var p engine.Payment
	if scope.IsClient() {
		p, err = h.Receivables.Decide(r.Context(), receivable.DecideInput{
			PaymentID: id,
			Outcome:   engine.PaymentStatus(req.Outcome),
			AdminID:   req.AdminID,
			AdminRole: req.AdminRole,
		})
	} else {
		p, err = h.Payouts.Decide(r.Context(), payout.DecideInput{
			PaymentID: id,
			Outcome:   engine.PaymentStatus(req.Outcome),
			AdminID:   req.AdminID,
			AdminRole: req.AdminRole,
		})
	}
	if err != nil {
		writeDomainError(w, "Failed to decide payment", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTO(p))
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

func (h *Handler) contract(w http.ResponseWriter, r *http.Request) (*engine.Contract, bool) {
	id := engine.ContractID(chi.URLParam(r, "id"))
	c, err := h.Store.LoadContract(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to load contract", err)
		return nil, false
	}
	return c, true
}

func (h *Handler) parseSubmit(w http.ResponseWriter, r *http.Request) (SubmitPaymentRequest, engine.Money, bool) {
	var req SubmitPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return req, engine.Money{}, false
	}
	amount, err := engine.NewMoneyFromString(req.Amount, engine.Currency(req.Currency))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return req, engine.Money{}, false
	}
	return req, amount, true
}

// loadProgress returns the contract's progress report, serving the cached
// snapshot when the store has one and recomputing (then caching) otherwise.
func (h *Handler) loadProgress(r *http.Request, c *engine.Contract) (engine.ProgressReport, bool) {
	ss, ok := h.Store.(engine.SnapshotStore)
	if !ok {
		return engine.ComputeProgress(c), false
	}
	if report, found, err := ss.LoadProgress(r.Context(), c.ID); err == nil && found {
		return report, true
	}
	report := engine.ComputeProgress(c)
	_ = ss.SaveProgress(r.Context(), report) // best effort, cache only
	return report, false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := ErrorResponse{Error: msg}
	if err != nil {
		resp.Error = msg + ": " + err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine and party-rule errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, engine.ErrAlreadyDecided):
		writeError(w, http.StatusConflict, msg, err)
	case errors.Is(err, receivable.ErrAdminRequired),
		errors.Is(err, payout.ErrAdminRequired),
		errors.Is(err, payout.ErrWrongCollaborator),
		errors.Is(err, receivable.ErrNotClientSchedule),
		errors.Is(err, payout.ErrNotPayoutSchedule):
		writeError(w, http.StatusForbidden, msg, err)
	case engine.IsNotFound(err):
		writeError(w, http.StatusNotFound, msg, err)
	case engine.IsClientError(err):
		writeError(w, http.StatusBadRequest, msg, err)
	default:
		writeError(w, http.StatusInternalServerError, msg, err)
	}
}
