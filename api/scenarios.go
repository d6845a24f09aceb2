/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	data for testing and demos. Each scenario creates contracts, schedules,
	deliverables and payments that demonstrate specific features.

AVAILABLE SCENARIOS:

	quarterly-pen:      1200.00 PEN over 4 installments, one verified payment
	uneven-split:       100.00 PEN over 3 - shows remainder-to-last (33.34)
	with-collaborators: Client schedule plus two collaborator pay schedules
	overdue-contract:   Past due dates with mixed verification outcomes

HOW SCENARIOS WORK:
 1. Build contract terms via the factory
 2. Save the aggregate
 3. Submit payment claims through the domain ledgers
 4. Decide some of them to produce PAID / REJECTED installments

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "quarterly-pen"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx, h)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios write into the live store. Only use in development/demo
	environments.

SEE ALSO:
  - handlers.go: Handler dependencies
  - factory/terms.go: Terms JSON definitions
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/contract-engine/engine"
	"github.com/warp/contract-engine/factory"
	"github.com/warp/contract-engine/payout"
	"github.com/warp/contract-engine/receivable"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "quarterly-pen",
		Name:        "Quarterly PEN Contract",
		Description: "1200.00 PEN over 4 installments, first payment verified (25% paid)",
	},
	{
		ID:          "uneven-split",
		Name:        "Uneven Split",
		Description: "100.00 PEN over 3 installments: 33.33 + 33.33 + 33.34",
	},
	{
		ID:          "with-collaborators",
		Name:        "With Collaborators",
		Description: "Client schedule plus two independent collaborator pay schedules",
	},
	{
		ID:          "overdue-contract",
		Name:        "Overdue Contract",
		Description: "Past due dates with one rejected and one pending claim",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario seeds the store with one of the demo scenarios.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var err error
	switch req.ScenarioID {
	case "quarterly-pen":
		err = loadQuarterlyPENScenario(r.Context(), h)
	case "uneven-split":
		err = loadUnevenSplitScenario(r.Context(), h)
	case "with-collaborators":
		err = loadCollaboratorScenario(r.Context(), h)
	case "overdue-contract":
		err = loadOverdueScenario(r.Context(), h)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown scenario %q", req.ScenarioID), nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = req.ScenarioID
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"loaded": req.ScenarioID})
}

// =============================================================================
// LOADERS
// =============================================================================

// loadQuarterlyPENScenario is the canonical walkthrough: 1200.00 PEN split
// into 4 x 300.00, the company pays installment 1, an admin verifies it.
// Resulting view: installment 1 PAID, payment progress 25%.
func loadQuarterlyPENScenario(ctx context.Context, h *Handler) error {
	start := firstOfNextMonth(h.Clock())
	c, err := factory.BuildContract(factory.TermsJSON{
		ID:           "demo-quarterly",
		Title:        "Thesis advisory engagement",
		Total:        "1200.00",
		Currency:     "PEN",
		Installments: 4,
		StartDate:    start.Format("2006-01-02"),
		Description:  "Cuota",
		Deliverables: []factory.DeliverableJSON{
			{Title: "Chapter 1 draft"},
			{Title: "Chapter 2 draft"},
			{Title: "Final defense deck"},
		},
	}, h.Clock())
	if err != nil {
		return err
	}
	if err := h.Store.SaveContract(ctx, c); err != nil {
		return err
	}

	p, err := h.Receivables.Submit(ctx, receivable.SubmitInput{
		InstallmentID: c.Installments[0].ID,
		Amount:        mustMoney("300.00"),
		Method:        engine.MethodYape,
		Reference:     "OP-448812",
		CompanyUser:   "maria@acme.example",
	})
	if err != nil {
		return err
	}
	_, err = h.Receivables.Decide(ctx, receivable.DecideInput{
		PaymentID: p.ID,
		Outcome:   engine.PaymentCompleted,
		AdminID:   "admin-1",
		AdminRole: engine.ActorAdmin,
	})
	return err
}

// loadUnevenSplitScenario shows the remainder-to-last policy on a total that
// does not divide evenly.
func loadUnevenSplitScenario(ctx context.Context, h *Handler) error {
	start := firstOfNextMonth(h.Clock())
	c, err := factory.BuildContract(factory.TermsJSON{
		ID:           "demo-uneven",
		Title:        "Statistical consulting",
		Total:        "100.00",
		Currency:     "PEN",
		Installments: 3,
		StartDate:    start.Format("2006-01-02"),
	}, h.Clock())
	if err != nil {
		return err
	}
	return h.Store.SaveContract(ctx, c)
}

// loadCollaboratorScenario exercises the parallel pay ledgers: one contract,
// two collaborators, one verified payout.
func loadCollaboratorScenario(ctx context.Context, h *Handler) error {
	start := firstOfNextMonth(h.Clock())
	c, err := factory.BuildContract(factory.TermsJSON{
		ID:           "demo-collab",
		Title:        "Market research project",
		Total:        "5000.00",
		Currency:     "PEN",
		Installments: 5,
		StartDate:    start.Format("2006-01-02"),
		Collaborators: []factory.CollaboratorTermsJSON{
			{ID: "col-quispe", Name: "A. Quispe", Total: "1200.00", Installments: 3},
			{ID: "col-rojas", Name: "B. Rojas", Total: "800.00", Installments: 2},
		},
	}, h.Clock())
	if err != nil {
		return err
	}
	if err := h.Store.SaveContract(ctx, c); err != nil {
		return err
	}

	p, err := h.Payouts.Submit(ctx, payout.SubmitInput{
		InstallmentID:  c.Collaborators[0].Installments[0].ID,
		Amount:         mustMoney("400.00"),
		Method:         engine.MethodBankTransfer,
		Reference:      "TRF-90231",
		CollaboratorID: "col-quispe",
	})
	if err != nil {
		return err
	}
	_, err = h.Payouts.Decide(ctx, payout.DecideInput{
		PaymentID: p.ID,
		Outcome:   engine.PaymentCompleted,
		AdminID:   "admin-1",
		AdminRole: engine.ActorAdmin,
	})
	return err
}

// loadOverdueScenario backdates the schedule so the overdue flag shows, with
// one rejected claim and one still pending.
func loadOverdueScenario(ctx context.Context, h *Handler) error {
	start := h.Clock().AddDate(0, -4, 0)
	c, err := factory.BuildContract(factory.TermsJSON{
		ID:           "demo-overdue",
		Title:        "Legacy engagement",
		Total:        "900.00",
		Currency:     "PEN",
		Installments: 3,
		StartDate:    start.Format("2006-01-02"),
	}, h.Clock())
	if err != nil {
		return err
	}
	if err := h.Store.SaveContract(ctx, c); err != nil {
		return err
	}

	rejected, err := h.Receivables.Submit(ctx, receivable.SubmitInput{
		InstallmentID: c.Installments[0].ID,
		Amount:        mustMoney("300.00"),
		Method:        engine.MethodCash,
		CompanyUser:   "pagos@legacy.example",
	})
	if err != nil {
		return err
	}
	if _, err := h.Receivables.Decide(ctx, receivable.DecideInput{
		PaymentID: rejected.ID,
		Outcome:   engine.PaymentFailed,
		AdminID:   "admin-1",
		AdminRole: engine.ActorAdmin,
	}); err != nil {
		return err
	}

	// Second claim stays PENDING so the verification queue has work.
	_, err = h.Receivables.Submit(ctx, receivable.SubmitInput{
		InstallmentID: c.Installments[1].ID,
		Amount:        mustMoney("300.00"),
		Method:        engine.MethodPlin,
		Reference:     "OP-771204",
		CompanyUser:   "pagos@legacy.example",
	})
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

func firstOfNextMonth(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
}

func mustMoney(s string) engine.Money {
	m, err := engine.NewMoneyFromString(s, engine.CurrencyPEN)
	if err != nil {
		panic(err)
	}
	return m
}
