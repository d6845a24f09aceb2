/*
ledger_test.go - Executable specification of the payment ledger

PURPOSE:
  Documents the ledger rules against the in-memory store:
  1. Submit always appends a new PENDING claim, never mutates
  2. Decide happens exactly once per payment
  3. The approval timestamp is stamped only on COMPLETED
  4. Every decision reaches the dispatcher
  5. Every mutation drops the cached progress snapshot
*/
package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/warp/contract-engine/engine"
	memstore "github.com/warp/contract-engine/engine/store"
)

// =============================================================================
// TEST INFRASTRUCTURE
// =============================================================================

// recordingDispatcher captures decision events for assertions.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []engine.PaymentDecision
}

func (d *recordingDispatcher) PaymentDecided(_ context.Context, e engine.PaymentDecision) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, e)
}

func (d *recordingDispatcher) all() []engine.PaymentDecision {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]engine.PaymentDecision(nil), d.events...)
}

func newTestLedger(t *testing.T) (*engine.Ledger, *memstore.Memory, *recordingDispatcher, *engine.Contract) {
	t.Helper()
	store := memstore.NewMemory()
	dispatcher := &recordingDispatcher{}
	ledger := engine.NewLedger(store, dispatcher)
	ledger.Clock = func() time.Time { return date(2026, time.March, 1) }

	total := pen(t, "1200.00")
	installments, err := engine.GenerateSchedule(engine.ScheduleSpec{
		Scope:     engine.ScheduleScope{ContractID: "ct-1"},
		Total:     total,
		Count:     4,
		StartDate: date(2026, time.January, 15),
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	c := &engine.Contract{ID: "ct-1", Title: "Test engagement", Total: total, Installments: installments}
	if err := store.SaveContract(context.Background(), c); err != nil {
		t.Fatalf("save contract: %v", err)
	}
	return ledger, store, dispatcher, c
}

func submit(t *testing.T, ledger *engine.Ledger, instID engine.InstallmentID, amount string) engine.Payment {
	t.Helper()
	p, err := ledger.SubmitPayment(context.Background(), engine.SubmitInput{
		InstallmentID:   instID,
		Amount:          pen(t, amount),
		Method:          engine.MethodYape,
		Reference:       "OP-1",
		SubmittedBy:     "maria@acme.example",
		SubmittedByType: engine.ActorCompany,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return p
}

// =============================================================================
// SUBMIT
// =============================================================================

func TestSubmitPayment_AppendsPending(t *testing.T) {
	// GIVEN: A fresh installment
	// WHEN: Submitting a claim
	// THEN: A new PENDING payment is recorded against it

	ledger, store, _, c := newTestLedger(t)
	instID := c.Installments[0].ID

	p := submit(t, ledger, instID, "300.00")
	if p.Status != engine.PaymentPending {
		t.Errorf("status = %s, want PENDING", p.Status)
	}
	if p.ID == "" {
		t.Error("payment should get an id")
	}

	inst, _, err := store.FindInstallment(context.Background(), instID)
	if err != nil {
		t.Fatalf("find installment: %v", err)
	}
	if len(inst.Payments) != 1 {
		t.Fatalf("got %d payments, want 1", len(inst.Payments))
	}
}

func TestSubmitPayment_MultiplePendingCoexist(t *testing.T) {
	// GIVEN: An installment with a pending claim
	// WHEN: Submitting another claim for the same installment
	// THEN: Both claims coexist - submit never supersedes

	ledger, store, _, c := newTestLedger(t)
	instID := c.Installments[0].ID

	first := submit(t, ledger, instID, "300.00")
	second := submit(t, ledger, instID, "150.00")
	if first.ID == second.ID {
		t.Fatal("claims should have distinct ids")
	}

	inst, _, _ := store.FindInstallment(context.Background(), instID)
	if len(inst.Payments) != 2 {
		t.Fatalf("got %d payments, want 2", len(inst.Payments))
	}
	for _, p := range inst.Payments {
		if p.Status != engine.PaymentPending {
			t.Errorf("payment %s: status %s, want PENDING", p.ID, p.Status)
		}
	}
}

func TestSubmitPayment_Validation(t *testing.T) {
	// GIVEN: Malformed submissions
	// WHEN: Submitting
	// THEN: ErrInvalidPayment (or ErrCurrencyMismatch), nothing recorded

	ledger, store, _, c := newTestLedger(t)
	instID := c.Installments[0].ID
	ctx := context.Background()

	cases := []struct {
		name string
		in   engine.SubmitInput
		want error
	}{
		{
			"zero amount",
			engine.SubmitInput{InstallmentID: instID, Amount: pen(t, "0.00"), Method: engine.MethodCash},
			engine.ErrInvalidPayment,
		},
		{
			"negative amount",
			engine.SubmitInput{InstallmentID: instID, Amount: pen(t, "-10.00"), Method: engine.MethodCash},
			engine.ErrInvalidPayment,
		},
		{
			"unknown method",
			engine.SubmitInput{InstallmentID: instID, Amount: pen(t, "10.00"), Method: "CHEQUE"},
			engine.ErrInvalidPayment,
		},
		{
			"currency mismatch",
			engine.SubmitInput{InstallmentID: instID, Amount: engine.NewMoneyFromInt(10, engine.CurrencyUSD), Method: engine.MethodCash},
			engine.ErrCurrencyMismatch,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ledger.SubmitPayment(ctx, tc.in); !errors.Is(err, tc.want) {
				t.Errorf("want %v, got %v", tc.want, err)
			}
		})
	}

	inst, _, _ := store.FindInstallment(ctx, instID)
	if len(inst.Payments) != 0 {
		t.Errorf("rejected submissions must not record payments, got %d", len(inst.Payments))
	}
}

func TestSubmitPayment_UnknownInstallment(t *testing.T) {
	// GIVEN: An installment id that does not exist
	// WHEN: Submitting
	// THEN: NotFoundError

	ledger, _, _, _ := newTestLedger(t)
	_, err := ledger.SubmitPayment(context.Background(), engine.SubmitInput{
		InstallmentID: "missing",
		Amount:        pen(t, "10.00"),
		Method:        engine.MethodCash,
	})
	if !engine.IsNotFound(err) {
		t.Errorf("want not-found, got %v", err)
	}
}

// =============================================================================
// DECIDE
// =============================================================================

func TestDecidePayment_CompletedStampsApprovalTime(t *testing.T) {
	// GIVEN: A pending payment
	// WHEN: An admin completes it
	// THEN: Status COMPLETED, DecidedAt set to the decision time, DecidedBy recorded

	ledger, _, _, c := newTestLedger(t)
	p := submit(t, ledger, c.Installments[0].ID, "300.00")

	decided, err := ledger.DecidePayment(context.Background(), engine.DecideInput{
		PaymentID: p.ID,
		Outcome:   engine.PaymentCompleted,
		DecidedBy: "admin-1",
	})
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if decided.Status != engine.PaymentCompleted {
		t.Errorf("status = %s, want COMPLETED", decided.Status)
	}
	if decided.DecidedAt == nil || !decided.DecidedAt.Equal(date(2026, time.March, 1)) {
		t.Errorf("DecidedAt = %v, want the clock time", decided.DecidedAt)
	}
	if decided.DecidedBy != "admin-1" {
		t.Errorf("DecidedBy = %q", decided.DecidedBy)
	}
}

func TestDecidePayment_FailedHasNoApprovalTime(t *testing.T) {
	// GIVEN: A pending payment
	// WHEN: An admin fails it
	// THEN: Status FAILED and DecidedAt stays nil - it is an approval
	//       timestamp, not a generic decision timestamp

	ledger, _, _, c := newTestLedger(t)
	p := submit(t, ledger, c.Installments[0].ID, "300.00")

	decided, err := ledger.DecidePayment(context.Background(), engine.DecideInput{
		PaymentID: p.ID,
		Outcome:   engine.PaymentFailed,
		DecidedBy: "admin-1",
	})
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if decided.Status != engine.PaymentFailed {
		t.Errorf("status = %s, want FAILED", decided.Status)
	}
	if decided.DecidedAt != nil {
		t.Errorf("DecidedAt should stay nil on FAILED, got %v", decided.DecidedAt)
	}
}

func TestDecidePayment_ExactlyOnce(t *testing.T) {
	// GIVEN: A payment already decided COMPLETED
	// WHEN: Deciding it again (either outcome)
	// THEN: AlreadyDecidedError; the original decision is untouched

	ledger, store, _, c := newTestLedger(t)
	p := submit(t, ledger, c.Installments[0].ID, "300.00")
	ctx := context.Background()

	if _, err := ledger.DecidePayment(ctx, engine.DecideInput{PaymentID: p.ID, Outcome: engine.PaymentCompleted, DecidedBy: "admin-1"}); err != nil {
		t.Fatalf("first decide: %v", err)
	}

	for _, outcome := range []engine.PaymentStatus{engine.PaymentCompleted, engine.PaymentFailed} {
		_, err := ledger.DecidePayment(ctx, engine.DecideInput{PaymentID: p.ID, Outcome: outcome, DecidedBy: "admin-2"})
		if !errors.Is(err, engine.ErrAlreadyDecided) {
			t.Errorf("re-decide %s: want ErrAlreadyDecided, got %v", outcome, err)
		}
		var already *engine.AlreadyDecidedError
		if !errors.As(err, &already) {
			t.Errorf("re-decide %s: want *AlreadyDecidedError, got %T", outcome, err)
		} else if already.Status != engine.PaymentCompleted {
			t.Errorf("error should carry the terminal status, got %s", already.Status)
		}
	}

	got, _, _ := store.FindPayment(ctx, p.ID)
	if got.Status != engine.PaymentCompleted || got.DecidedBy != "admin-1" {
		t.Errorf("original decision was disturbed: %+v", got)
	}
}

func TestDecidePayment_RejectsNonTerminalOutcome(t *testing.T) {
	// GIVEN: A pending payment
	// WHEN: "Deciding" it back to PENDING
	// THEN: ErrInvalidPayment - decisions are terminal only

	ledger, _, _, c := newTestLedger(t)
	p := submit(t, ledger, c.Installments[0].ID, "300.00")

	_, err := ledger.DecidePayment(context.Background(), engine.DecideInput{
		PaymentID: p.ID, Outcome: engine.PaymentPending, DecidedBy: "admin-1",
	})
	if !errors.Is(err, engine.ErrInvalidPayment) {
		t.Errorf("want ErrInvalidPayment, got %v", err)
	}
}

func TestDecidePayment_UnknownPayment(t *testing.T) {
	// GIVEN: A payment id that does not exist
	// WHEN: Deciding
	// THEN: NotFoundError

	ledger, _, _, _ := newTestLedger(t)
	_, err := ledger.DecidePayment(context.Background(), engine.DecideInput{
		PaymentID: "missing", Outcome: engine.PaymentCompleted, DecidedBy: "admin-1",
	})
	if !engine.IsNotFound(err) {
		t.Errorf("want not-found, got %v", err)
	}
}

// =============================================================================
// SIDE EFFECTS
// =============================================================================

func TestDecidePayment_EmitsDecisionEvent(t *testing.T) {
	// GIVEN: A pending payment on the client schedule
	// WHEN: Deciding it
	// THEN: The dispatcher receives one event with the full decision context

	ledger, _, dispatcher, c := newTestLedger(t)
	p := submit(t, ledger, c.Installments[0].ID, "300.00")

	if _, err := ledger.DecidePayment(context.Background(), engine.DecideInput{
		PaymentID: p.ID, Outcome: engine.PaymentCompleted, DecidedBy: "admin-1",
	}); err != nil {
		t.Fatalf("decide: %v", err)
	}

	events := dispatcher.all()
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	e := events[0]
	if e.ContractID != "ct-1" || e.CollaboratorID != "" {
		t.Errorf("event scope = %s/%s", e.ContractID, e.CollaboratorID)
	}
	if e.PaymentID != p.ID || e.Outcome != engine.PaymentCompleted || e.DecidedBy != "admin-1" {
		t.Errorf("event = %+v", e)
	}
}

func TestLedger_MutationsInvalidateProgressSnapshot(t *testing.T) {
	// GIVEN: A cached progress snapshot for the contract
	// WHEN: Submitting and then deciding a payment
	// THEN: The snapshot is dropped each time, forcing recomputation

	ledger, store, _, c := newTestLedger(t)
	ctx := context.Background()

	if err := store.SaveProgress(ctx, engine.ComputeProgress(c)); err != nil {
		t.Fatalf("save progress: %v", err)
	}
	p := submit(t, ledger, c.Installments[0].ID, "300.00")
	if _, found, _ := store.LoadProgress(ctx, c.ID); found {
		t.Error("submit should invalidate the snapshot")
	}

	if err := store.SaveProgress(ctx, engine.ComputeProgress(c)); err != nil {
		t.Fatalf("save progress: %v", err)
	}
	if _, err := ledger.DecidePayment(ctx, engine.DecideInput{PaymentID: p.ID, Outcome: engine.PaymentCompleted, DecidedBy: "admin-1"}); err != nil {
		t.Fatalf("decide: %v", err)
	}
	if _, found, _ := store.LoadProgress(ctx, c.ID); found {
		t.Error("decide should invalidate the snapshot")
	}
}

// faultyInstallmentStore fails installment lookups while leaving the
// payment path intact.
type faultyInstallmentStore struct {
	*memstore.Memory
}

func (s *faultyInstallmentStore) FindInstallment(context.Context, engine.InstallmentID) (engine.Installment, engine.ScheduleScope, error) {
	return engine.Installment{}, engine.ScheduleScope{}, errors.New("installment lookup unavailable")
}

func TestDecidePayment_SideEffectsSurviveInstallmentReadFailure(t *testing.T) {
	// GIVEN: A pending payment, a cached progress snapshot, and a store
	//        whose installment reads fail
	// WHEN: Deciding the payment
	// THEN: The decision commits, the snapshot is dropped and the event
	//       fires - side effects never depend on a read after the commit

	ledger, store, _, c := newTestLedger(t)
	p := submit(t, ledger, c.Installments[0].ID, "300.00")
	ctx := context.Background()
	if err := store.SaveProgress(ctx, engine.ComputeProgress(c)); err != nil {
		t.Fatalf("save progress: %v", err)
	}

	dispatcher := &recordingDispatcher{}
	faulty := engine.NewLedger(&faultyInstallmentStore{Memory: store}, dispatcher)
	faulty.Clock = ledger.Clock

	decided, err := faulty.DecidePayment(ctx, engine.DecideInput{
		PaymentID: p.ID, Outcome: engine.PaymentCompleted, DecidedBy: "admin-1",
	})
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if decided.Status != engine.PaymentCompleted {
		t.Errorf("status = %s, want COMPLETED", decided.Status)
	}
	if _, found, _ := store.LoadProgress(ctx, c.ID); found {
		t.Error("decide should invalidate the snapshot")
	}
	if events := dispatcher.all(); len(events) != 1 || events[0].ContractID != c.ID {
		t.Errorf("got events %+v, want exactly one for %s", events, c.ID)
	}
}
