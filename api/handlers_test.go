/*
handlers_test.go - End-to-end API tests

PURPOSE:
  Exercises the full request path - router, handlers, domain ledgers,
  SQLite store - through httptest. The walkthrough test follows the
  canonical flow: create a contract, the company pays installment 1, an
  admin verifies it, and every view derives the same numbers.
*/
package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/contract-engine/api"
	"github.com/warp/contract-engine/engine"
	"github.com/warp/contract-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) *httptest.Server {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	handler := api.NewHandler(store, engine.NopDispatcher{})
	srv := httptest.NewServer(api.NewRouter(handler))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any, out any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func createWalkthroughContract(t *testing.T, srv *httptest.Server) api.ContractDTO {
	t.Helper()
	var created api.ContractDTO
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/contracts", map[string]any{
		"id":           "ct-walkthrough",
		"title":        "Thesis advisory engagement",
		"total":        "1200.00",
		"currency":     "PEN",
		"installments": 4,
		"start_date":   "2026-01-15",
		"description":  "Cuota",
		"deliverables": []map[string]string{
			{"title": "Chapter 1 draft"},
			{"title": "Chapter 2 draft"},
			{"title": "Final defense deck"},
		},
	}, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return created
}

// =============================================================================
// WALKTHROUGH
// =============================================================================

func TestAPI_PaymentWalkthrough(t *testing.T) {
	// GIVEN: A 1200.00 PEN contract over 4 installments
	// WHEN: The company pays installment 1 and an admin verifies it
	// THEN: Installment 1 is PAID, the rest NO_PAYMENTS, payment progress 25

	srv := newTestServer(t)
	created := createWalkthroughContract(t, srv)
	require.Len(t, created.Installments, 4)
	assert.Equal(t, "300.00", created.Installments[0].Amount)
	assert.Equal(t, string(engine.StatusNoPayments), created.Installments[0].Status)

	// Company submits a claim.
	var payment api.PaymentDTO
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/client/payments", api.SubmitPaymentRequest{
		InstallmentID: created.Installments[0].ID,
		Amount:        "300.00",
		Currency:      "PEN",
		Method:        "YAPE",
		Reference:     "OP-448812",
		SubmittedBy:   "maria@acme.example",
	}, &payment)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, string(engine.PaymentPending), payment.Status)

	// The claim shows as PENDING_VERIFICATION until the admin acts.
	var mid api.ContractDTO
	doJSON(t, http.MethodGet, srv.URL+"/api/contracts/ct-walkthrough", nil, &mid)
	assert.Equal(t, string(engine.StatusPendingVerification), mid.Installments[0].Status)
	assert.Equal(t, 0, mid.Progress.Payment, "pending claims contribute nothing")

	// Admin verifies.
	var decided api.PaymentDTO
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/payments/"+payment.ID+"/decide", api.DecidePaymentRequest{
		Outcome:   "COMPLETED",
		AdminID:   "admin-1",
		AdminRole: engine.ActorAdmin,
	}, &decided)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(engine.PaymentCompleted), decided.Status)
	assert.NotEmpty(t, decided.DecidedAt)

	// Every view agrees.
	var final api.ContractDTO
	doJSON(t, http.MethodGet, srv.URL+"/api/contracts/ct-walkthrough", nil, &final)
	assert.Equal(t, string(engine.StatusPaid), final.Installments[0].Status)
	for _, inst := range final.Installments[1:] {
		assert.Equal(t, string(engine.StatusNoPayments), inst.Status)
	}
	assert.Equal(t, 25, final.Progress.Payment)
	assert.Equal(t, 1, final.PaidCount)
	assert.Equal(t, 4, final.TotalCount)
	assert.False(t, final.FullyPaid)

	var progress api.ProgressDTO
	doJSON(t, http.MethodGet, srv.URL+"/api/contracts/ct-walkthrough/progress", nil, &progress)
	assert.Equal(t, 25, progress.Payment)
	assert.Equal(t, "300.00", progress.CompletedAmount)
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

func TestAPI_DecideTwice_Conflict(t *testing.T) {
	// GIVEN: A verified payment
	// WHEN: Deciding it again
	// THEN: 409 Conflict

	srv := newTestServer(t)
	created := createWalkthroughContract(t, srv)

	var payment api.PaymentDTO
	doJSON(t, http.MethodPost, srv.URL+"/api/client/payments", api.SubmitPaymentRequest{
		InstallmentID: created.Installments[0].ID,
		Amount:        "300.00",
		Currency:      "PEN",
		Method:        "CASH",
		SubmittedBy:   "maria@acme.example",
	}, &payment)

	decide := api.DecidePaymentRequest{Outcome: "COMPLETED", AdminID: "admin-1", AdminRole: engine.ActorAdmin}
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/payments/"+payment.ID+"/decide", decide, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/payments/"+payment.ID+"/decide", decide, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_DecideWithoutAdminRole_Forbidden(t *testing.T) {
	// GIVEN: A pending payment
	// WHEN: Deciding with a company role
	// THEN: 403 Forbidden

	srv := newTestServer(t)
	created := createWalkthroughContract(t, srv)

	var payment api.PaymentDTO
	doJSON(t, http.MethodPost, srv.URL+"/api/client/payments", api.SubmitPaymentRequest{
		InstallmentID: created.Installments[0].ID,
		Amount:        "300.00",
		Currency:      "PEN",
		Method:        "CASH",
		SubmittedBy:   "maria@acme.example",
	}, &payment)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/payments/"+payment.ID+"/decide", api.DecidePaymentRequest{
		Outcome: "COMPLETED", AdminID: "maria", AdminRole: engine.ActorCompany,
	}, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAPI_InvalidScheduleInput_BadRequest(t *testing.T) {
	// GIVEN: Terms with zero installments
	// WHEN: Creating a contract
	// THEN: 400 Bad Request

	srv := newTestServer(t)
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/contracts", map[string]any{
		"title":        "Broken",
		"total":        "100.00",
		"currency":     "PEN",
		"installments": 0,
		"start_date":   "2026-01-15",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_UnknownContract_NotFound(t *testing.T) {
	srv := newTestServer(t)
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/contracts/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// SCHEDULE MANAGEMENT
// =============================================================================

func TestAPI_RegenerateSchedule_LockedAfterPayment(t *testing.T) {
	// GIVEN: A contract whose installment 1 has a payment claim
	// WHEN: Regenerating the client schedule
	// THEN: 400 - amounts are immutable once money moved

	srv := newTestServer(t)
	createWalkthroughContract(t, srv)

	regen := api.RegenerateScheduleRequest{Total: "1200.00", Installments: 6, StartDate: "2026-02-01"}

	// Before any payment, regeneration works.
	var installments []api.InstallmentDTO
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/contracts/ct-walkthrough/schedule", regen, &installments)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, installments, 6)
	assert.Equal(t, "200.00", installments[0].Amount)

	doJSON(t, http.MethodPost, srv.URL+"/api/client/payments", api.SubmitPaymentRequest{
		InstallmentID: installments[0].ID,
		Amount:        "200.00",
		Currency:      "PEN",
		Method:        "CASH",
		SubmittedBy:   "maria@acme.example",
	}, nil)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/contracts/ct-walkthrough/schedule", regen, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_RegenerateSchedule_TotalMustMatchContract(t *testing.T) {
	// GIVEN: A 1200.00 PEN contract
	// WHEN: Regenerating the client schedule with a different total
	// THEN: 400, and the stored schedule still sums to the contract total

	srv := newTestServer(t)
	createWalkthroughContract(t, srv)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/contracts/ct-walkthrough/schedule",
		api.RegenerateScheduleRequest{Total: "600.00", Installments: 3, StartDate: "2026-02-01"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var final api.ContractDTO
	doJSON(t, http.MethodGet, srv.URL+"/api/contracts/ct-walkthrough", nil, &final)
	require.Len(t, final.Installments, 4)
	for _, inst := range final.Installments {
		assert.Equal(t, "300.00", inst.Amount)
	}
}

func TestAPI_EditDueDate(t *testing.T) {
	// GIVEN: A generated schedule
	// WHEN: Editing one installment's due date
	// THEN: The new date is persisted and returned

	srv := newTestServer(t)
	created := createWalkthroughContract(t, srv)
	instID := created.Installments[2].ID

	var updated api.InstallmentDTO
	resp := doJSON(t, http.MethodPut, fmt.Sprintf("%s/api/installments/%s/due-date", srv.URL, instID),
		api.EditDueDateRequest{DueDate: "2026-06-30"}, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "2026-06-30", updated.DueDate)

	var final api.ContractDTO
	doJSON(t, http.MethodGet, srv.URL+"/api/contracts/ct-walkthrough", nil, &final)
	assert.Equal(t, "2026-06-30", final.Installments[2].DueDate)
}
