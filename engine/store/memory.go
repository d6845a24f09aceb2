// Package store provides an in-memory Store implementation (tests, dev).
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/contract-engine/engine"
)

// =============================================================================
// MEMORY STORE
// =============================================================================
// Aggregates are deep-copied on the way in and out so callers can never
// alias internal state. The decide guard is the same conditional check the
// SQLite store performs with a conditional UPDATE.

type Memory struct {
	mu        sync.RWMutex
	contracts map[engine.ContractID]*engine.Contract
	progress  map[engine.ContractID]engine.ProgressReport
}

func NewMemory() *Memory {
	return &Memory{
		contracts: make(map[engine.ContractID]*engine.Contract),
		progress:  make(map[engine.ContractID]engine.ProgressReport),
	}
}

// Compile-time interface checks.
var (
	_ engine.Store         = (*Memory)(nil)
	_ engine.SnapshotStore = (*Memory)(nil)
)

func (m *Memory) SaveContract(_ context.Context, c *engine.Contract) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contracts[c.ID] = cloneContract(c)
	return nil
}

func (m *Memory) LoadContract(_ context.Context, id engine.ContractID) (*engine.Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.contracts[id]
	if !ok {
		return nil, &engine.NotFoundError{Kind: "contract", ID: string(id)}
	}
	return cloneContract(c), nil
}

func (m *Memory) ListContracts(_ context.Context) ([]*engine.Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*engine.Contract, 0, len(m.contracts))
	for _, c := range m.contracts {
		result = append(result, cloneContract(c))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (m *Memory) ReplaceSchedule(_ context.Context, scope engine.ScheduleScope, installments []engine.Installment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list, _, err := m.scheduleLocked(scope)
	if err != nil {
		return err
	}
	*list = cloneInstallments(installments)
	return nil
}

func (m *Memory) UpdateDueDate(_ context.Context, id engine.InstallmentID, due time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, _, err := m.installmentLocked(id)
	if err != nil {
		return err
	}
	inst.DueDate = due
	return nil
}

func (m *Memory) FindInstallment(_ context.Context, id engine.InstallmentID) (engine.Installment, engine.ScheduleScope, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst, scope, err := m.installmentLocked(id)
	if err != nil {
		return engine.Installment{}, engine.ScheduleScope{}, err
	}
	return cloneInstallment(*inst), scope, nil
}

func (m *Memory) AppendPayment(_ context.Context, scope engine.ScheduleScope, p engine.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, instScope, err := m.installmentLocked(p.InstallmentID)
	if err != nil {
		return err
	}
	if instScope != scope {
		return &engine.NotFoundError{Kind: "installment", ID: string(p.InstallmentID)}
	}
	inst.Payments = append(inst.Payments, p)
	return nil
}

func (m *Memory) FindPayment(_ context.Context, id engine.PaymentID) (engine.Payment, engine.ScheduleScope, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, scope, err := m.paymentLocked(id)
	if err != nil {
		return engine.Payment{}, engine.ScheduleScope{}, err
	}
	return *p, scope, nil
}

func (m *Memory) DecidePayment(_ context.Context, id engine.PaymentID, outcome engine.PaymentStatus, decidedAt time.Time, decidedBy string) (engine.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, _, err := m.paymentLocked(id)
	if err != nil {
		return engine.Payment{}, err
	}
	if p.Status != engine.PaymentPending {
		return engine.Payment{}, &engine.AlreadyDecidedError{PaymentID: id, Status: p.Status}
	}
	p.Status = outcome
	p.DecidedBy = decidedBy
	if outcome == engine.PaymentCompleted {
		t := decidedAt
		p.DecidedAt = &t
	}
	return *p, nil
}

// =============================================================================
// SNAPSHOT STORE
// =============================================================================

func (m *Memory) SaveProgress(_ context.Context, report engine.ProgressReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progress[report.ContractID] = report
	return nil
}

func (m *Memory) LoadProgress(_ context.Context, id engine.ContractID) (engine.ProgressReport, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	report, ok := m.progress[id]
	return report, ok, nil
}

func (m *Memory) InvalidateProgress(_ context.Context, id engine.ContractID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.progress, id)
	return nil
}

// =============================================================================
// LOCKED LOOKUPS
// =============================================================================

func (m *Memory) scheduleLocked(scope engine.ScheduleScope) (*[]engine.Installment, *engine.Contract, error) {
	c, ok := m.contracts[scope.ContractID]
	if !ok {
		return nil, nil, &engine.NotFoundError{Kind: "contract", ID: string(scope.ContractID)}
	}
	if scope.IsClient() {
		return &c.Installments, c, nil
	}
	col, ok := c.CollaboratorByID(scope.CollaboratorID)
	if !ok {
		return nil, nil, &engine.NotFoundError{Kind: "collaborator", ID: string(scope.CollaboratorID)}
	}
	return &col.Installments, c, nil
}

func (m *Memory) installmentLocked(id engine.InstallmentID) (*engine.Installment, engine.ScheduleScope, error) {
	for _, c := range m.contracts {
		if inst, ok := c.Installment(id); ok {
			return inst, c.ClientScope(), nil
		}
		for i := range c.Collaborators {
			col := &c.Collaborators[i]
			if inst, ok := col.Installment(id); ok {
				return inst, engine.ScheduleScope{ContractID: c.ID, CollaboratorID: col.ID}, nil
			}
		}
	}
	return nil, engine.ScheduleScope{}, &engine.NotFoundError{Kind: "installment", ID: string(id)}
}

func (m *Memory) paymentLocked(id engine.PaymentID) (*engine.Payment, engine.ScheduleScope, error) {
	for _, c := range m.contracts {
		if p, scope, ok := paymentInSchedule(c.Installments, c.ClientScope(), id); ok {
			return p, scope, nil
		}
		for i := range c.Collaborators {
			col := &c.Collaborators[i]
			scope := engine.ScheduleScope{ContractID: c.ID, CollaboratorID: col.ID}
			if p, scope, ok := paymentInSchedule(col.Installments, scope, id); ok {
				return p, scope, nil
			}
		}
	}
	return nil, engine.ScheduleScope{}, &engine.NotFoundError{Kind: "payment", ID: string(id)}
}

func paymentInSchedule(installments []engine.Installment, scope engine.ScheduleScope, id engine.PaymentID) (*engine.Payment, engine.ScheduleScope, bool) {
	for i := range installments {
		for j := range installments[i].Payments {
			if installments[i].Payments[j].ID == id {
				return &installments[i].Payments[j], scope, true
			}
		}
	}
	return nil, engine.ScheduleScope{}, false
}

// =============================================================================
// DEEP COPIES
// =============================================================================

func cloneContract(c *engine.Contract) *engine.Contract {
	out := *c
	out.Installments = cloneInstallments(c.Installments)
	out.Deliverables = append([]engine.DeliverableAssignment(nil), c.Deliverables...)
	out.Collaborators = make([]engine.Collaborator, len(c.Collaborators))
	for i, col := range c.Collaborators {
		out.Collaborators[i] = col
		out.Collaborators[i].Installments = cloneInstallments(col.Installments)
	}
	return &out
}

func cloneInstallments(installments []engine.Installment) []engine.Installment {
	out := make([]engine.Installment, len(installments))
	for i, inst := range installments {
		out[i] = cloneInstallment(inst)
	}
	return out
}

func cloneInstallment(inst engine.Installment) engine.Installment {
	out := inst
	out.Payments = append([]engine.Payment(nil), inst.Payments...)
	return out
}
