/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements engine.Store and engine.SnapshotStore using SQLite. The same
  patterns apply to PostgreSQL in production - only dialect differences.

KEY TABLES:
  contracts:           Contract rows (total stored as exact decimal text)
  collaborators:       Per-contract collaborator assignments
  installments:        Both client and collaborator schedules; the
                       collaborator_id column ('' = client) is the scope
                       key that keeps the two ledgers apart
  payments:            Payment claims; inserted once, decided at most once
  deliverables:        Deliverable assignments (read-only to the engine)
  progress_snapshots:  Cached progress reports, invalidated on write

DECIDE-ONCE GUARD:
  DecidePayment uses a conditional UPDATE:

    UPDATE payments SET status = ?, ... WHERE id = ? AND status = 'PENDING'

  Zero rows affected means the payment was already decided (or absent).
  This is the at-most-one-writer semantics the engine's optimistic guard
  requires; no application-level locking is involved.

MONEY & DATES:
  Monetary values are stored as exact decimal strings, never REAL - the
  sum invariant must survive a round trip. Timestamps are RFC3339 text.

WAL MODE:
  Opened with WAL for better read concurrency and crash recovery.

SEE ALSO:
  - engine/store.go: Interface definitions and semantics
  - engine/store/memory.go: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/contract-engine/engine"
)

// Store implements engine.Store and engine.SnapshotStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ engine.Store         = (*Store)(nil)
	_ engine.SnapshotStore = (*Store)(nil)
)

// New creates a SQLite store at the given path. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS contracts (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		total TEXT NOT NULL,
		currency TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS collaborators (
		contract_id TEXT NOT NULL REFERENCES contracts(id),
		id TEXT NOT NULL,
		name TEXT NOT NULL,
		total TEXT NOT NULL,
		PRIMARY KEY (contract_id, id)
	);

	-- One table for both ledgers; collaborator_id = '' means the client
	-- schedule. Every query filters on the full scope.
	CREATE TABLE IF NOT EXISTS installments (
		id TEXT PRIMARY KEY,
		contract_id TEXT NOT NULL REFERENCES contracts(id),
		collaborator_id TEXT NOT NULL DEFAULT '',
		number INTEGER NOT NULL,
		description TEXT NOT NULL,
		amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		due_date TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_installments_scope
		ON installments(contract_id, collaborator_id, number);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		installment_id TEXT NOT NULL REFERENCES installments(id),
		amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		method TEXT NOT NULL,
		reference TEXT,
		status TEXT NOT NULL,
		submitted_by TEXT NOT NULL,
		submitted_by_type TEXT NOT NULL,
		created_at TEXT NOT NULL,
		decided_at TEXT,
		decided_by TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_payments_installment
		ON payments(installment_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_payments_status
		ON payments(status);

	CREATE TABLE IF NOT EXISTS deliverables (
		id TEXT PRIMARY KEY,
		contract_id TEXT NOT NULL REFERENCES contracts(id),
		title TEXT NOT NULL,
		notes TEXT,
		is_completed INTEGER NOT NULL DEFAULT 0,
		is_approved INTEGER NOT NULL DEFAULT 0,
		assigned_at TEXT NOT NULL,
		completed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_deliverables_contract
		ON deliverables(contract_id);

	CREATE TABLE IF NOT EXISTS progress_snapshots (
		contract_id TEXT PRIMARY KEY REFERENCES contracts(id),
		deliverables_pct INTEGER NOT NULL,
		payment_pct INTEGER NOT NULL,
		overall_pct INTEGER NOT NULL,
		completed_deliverables INTEGER NOT NULL,
		total_deliverables INTEGER NOT NULL,
		completed_amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CONTRACTS
// =============================================================================

func (s *Store) SaveContract(ctx context.Context, c *engine.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO contracts (id, title, total, currency, start_date, end_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(c.ID), c.Title, c.Total.Value.String(), string(c.Total.Currency),
		fmtTime(c.StartDate), fmtNullableTime(c.EndDate), fmtTime(c.CreatedAt))
	if err != nil {
		return err
	}

	if err := insertInstallments(ctx, tx, c.Installments); err != nil {
		return err
	}
	for i := range c.Deliverables {
		d := &c.Deliverables[i]
		_, err = tx.ExecContext(ctx, `
			INSERT INTO deliverables (id, contract_id, title, notes, is_completed, is_approved, assigned_at, completed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			d.ID, string(c.ID), d.Title, d.Notes, boolInt(d.IsCompleted), boolInt(d.IsApproved),
			fmtTime(d.AssignedAt), fmtTimePtr(d.CompletedAt))
		if err != nil {
			return err
		}
	}
	for i := range c.Collaborators {
		col := &c.Collaborators[i]
		_, err = tx.ExecContext(ctx, `
			INSERT INTO collaborators (contract_id, id, name, total) VALUES (?, ?, ?, ?)`,
			string(c.ID), string(col.ID), col.Name, col.Total.Value.String())
		if err != nil {
			return err
		}
		if err := insertInstallments(ctx, tx, col.Installments); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertInstallments(ctx context.Context, tx *sql.Tx, installments []engine.Installment) error {
	for i := range installments {
		inst := &installments[i]
		_, err := tx.ExecContext(ctx, `
			INSERT INTO installments (id, contract_id, collaborator_id, number, description, amount, currency, due_date)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			string(inst.ID), string(inst.Scope.ContractID), string(inst.Scope.CollaboratorID),
			inst.Number, inst.Description, inst.Amount.Value.String(), string(inst.Amount.Currency),
			fmtTime(inst.DueDate))
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) LoadContract(ctx context.Context, id engine.ContractID) (*engine.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadContract(ctx, id)
}

func (s *Store) loadContract(ctx context.Context, id engine.ContractID) (*engine.Contract, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, total, currency, start_date, end_date, created_at
		FROM contracts WHERE id = ?`, string(id))

	var c engine.Contract
	var total, currency, startDate, createdAt string
	var endDate sql.NullString
	var cid string
	if err := row.Scan(&cid, &c.Title, &total, &currency, &startDate, &endDate, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, &engine.NotFoundError{Kind: "contract", ID: string(id)}
		}
		return nil, err
	}
	c.ID = engine.ContractID(cid)
	cur := engine.Currency(currency)
	m, err := parseMoney(total, cur)
	if err != nil {
		return nil, err
	}
	c.Total = m
	if c.StartDate, err = parseTime(startDate); err != nil {
		return nil, err
	}
	if endDate.Valid && endDate.String != "" {
		if c.EndDate, err = parseTime(endDate.String); err != nil {
			return nil, err
		}
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}

	if c.Installments, err = s.loadSchedule(ctx, engine.ScheduleScope{ContractID: c.ID}); err != nil {
		return nil, err
	}
	if c.Deliverables, err = s.loadDeliverables(ctx, c.ID); err != nil {
		return nil, err
	}
	if c.Collaborators, err = s.loadCollaborators(ctx, c.ID, cur); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) ListContracts(ctx context.Context) ([]*engine.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM contracts ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []engine.ContractID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, engine.ContractID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	contracts := make([]*engine.Contract, 0, len(ids))
	for _, id := range ids {
		c, err := s.loadContract(ctx, id)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, c)
	}
	return contracts, nil
}

func (s *Store) loadCollaborators(ctx context.Context, id engine.ContractID, currency engine.Currency) ([]engine.Collaborator, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, total FROM collaborators WHERE contract_id = ? ORDER BY id`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []engine.Collaborator
	for rows.Next() {
		var col engine.Collaborator
		var colID, total string
		if err := rows.Scan(&colID, &col.Name, &total); err != nil {
			return nil, err
		}
		col.ID = engine.CollaboratorID(colID)
		if col.Total, err = parseMoney(total, currency); err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range cols {
		scope := engine.ScheduleScope{ContractID: id, CollaboratorID: cols[i].ID}
		if cols[i].Installments, err = s.loadSchedule(ctx, scope); err != nil {
			return nil, err
		}
	}
	return cols, nil
}

func (s *Store) loadDeliverables(ctx context.Context, id engine.ContractID) ([]engine.DeliverableAssignment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, notes, is_completed, is_approved, assigned_at, completed_at
		FROM deliverables WHERE contract_id = ? ORDER BY assigned_at, id`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.DeliverableAssignment
	for rows.Next() {
		var d engine.DeliverableAssignment
		var notes, completedAt sql.NullString
		var completed, approved int
		var assignedAt string
		if err := rows.Scan(&d.ID, &d.Title, &notes, &completed, &approved, &assignedAt, &completedAt); err != nil {
			return nil, err
		}
		d.Notes = notes.String
		d.IsCompleted = completed != 0
		d.IsApproved = approved != 0
		if d.AssignedAt, err = parseTime(assignedAt); err != nil {
			return nil, err
		}
		if completedAt.Valid && completedAt.String != "" {
			t, err := parseTime(completedAt.String)
			if err != nil {
				return nil, err
			}
			d.CompletedAt = &t
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// =============================================================================
// INSTALLMENTS
// =============================================================================

func (s *Store) loadSchedule(ctx context.Context, scope engine.ScheduleScope) ([]engine.Installment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, number, description, amount, currency, due_date
		FROM installments WHERE contract_id = ? AND collaborator_id = ?
		ORDER BY number`, string(scope.ContractID), string(scope.CollaboratorID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var installments []engine.Installment
	for rows.Next() {
		inst, err := scanInstallment(rows, scope)
		if err != nil {
			return nil, err
		}
		installments = append(installments, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range installments {
		if installments[i].Payments, err = s.loadPayments(ctx, installments[i].ID); err != nil {
			return nil, err
		}
	}
	return installments, nil
}

func scanInstallment(rows *sql.Rows, scope engine.ScheduleScope) (engine.Installment, error) {
	var inst engine.Installment
	var id, amount, currency, dueDate string
	if err := rows.Scan(&id, &inst.Number, &inst.Description, &amount, &currency, &dueDate); err != nil {
		return engine.Installment{}, err
	}
	inst.ID = engine.InstallmentID(id)
	inst.Scope = scope
	m, err := parseMoney(amount, engine.Currency(currency))
	if err != nil {
		return engine.Installment{}, err
	}
	inst.Amount = m
	if inst.DueDate, err = parseTime(dueDate); err != nil {
		return engine.Installment{}, err
	}
	return inst, nil
}

func (s *Store) ReplaceSchedule(ctx context.Context, scope engine.ScheduleScope, installments []engine.Installment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// The engine has already verified the schedule carries no payments;
	// the payments table is untouched here by construction.
	_, err = tx.ExecContext(ctx, `
		DELETE FROM installments WHERE contract_id = ? AND collaborator_id = ?`,
		string(scope.ContractID), string(scope.CollaboratorID))
	if err != nil {
		return err
	}
	if err := insertInstallments(ctx, tx, installments); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) UpdateDueDate(ctx context.Context, id engine.InstallmentID, due time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `UPDATE installments SET due_date = ? WHERE id = ?`,
		fmtTime(due), string(id))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &engine.NotFoundError{Kind: "installment", ID: string(id)}
	}
	return nil
}

func (s *Store) FindInstallment(ctx context.Context, id engine.InstallmentID) (engine.Installment, engine.ScheduleScope, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT contract_id, collaborator_id, number, description, amount, currency, due_date
		FROM installments WHERE id = ?`, string(id))

	var inst engine.Installment
	var contractID, collaboratorID, amount, currency, dueDate string
	err := row.Scan(&contractID, &collaboratorID, &inst.Number, &inst.Description, &amount, &currency, &dueDate)
	if err != nil {
		if err == sql.ErrNoRows {
			return engine.Installment{}, engine.ScheduleScope{}, &engine.NotFoundError{Kind: "installment", ID: string(id)}
		}
		return engine.Installment{}, engine.ScheduleScope{}, err
	}
	scope := engine.ScheduleScope{
		ContractID:     engine.ContractID(contractID),
		CollaboratorID: engine.CollaboratorID(collaboratorID),
	}
	inst.ID = id
	inst.Scope = scope
	if inst.Amount, err = parseMoney(amount, engine.Currency(currency)); err != nil {
		return engine.Installment{}, engine.ScheduleScope{}, err
	}
	if inst.DueDate, err = parseTime(dueDate); err != nil {
		return engine.Installment{}, engine.ScheduleScope{}, err
	}
	if inst.Payments, err = s.loadPayments(ctx, id); err != nil {
		return engine.Installment{}, engine.ScheduleScope{}, err
	}
	return inst, scope, nil
}

// =============================================================================
// PAYMENTS - insert once, decide at most once
// =============================================================================

func (s *Store) loadPayments(ctx context.Context, id engine.InstallmentID) ([]engine.Payment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, amount, currency, method, reference, status,
		       submitted_by, submitted_by_type, created_at, decided_at, decided_by
		FROM payments WHERE installment_id = ? ORDER BY created_at, id`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []engine.Payment
	for rows.Next() {
		p, err := scanPayment(rows, id)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func scanPayment(rows *sql.Rows, installmentID engine.InstallmentID) (engine.Payment, error) {
	var p engine.Payment
	var pid, amount, currency, method, status, submittedBy, submittedByType, createdAt string
	var reference, decidedAt, decidedBy sql.NullString
	err := rows.Scan(&pid, &amount, &currency, &method, &reference, &status,
		&submittedBy, &submittedByType, &createdAt, &decidedAt, &decidedBy)
	if err != nil {
		return engine.Payment{}, err
	}
	p.ID = engine.PaymentID(pid)
	p.InstallmentID = installmentID
	if p.Amount, err = parseMoney(amount, engine.Currency(currency)); err != nil {
		return engine.Payment{}, err
	}
	p.Method = engine.PaymentMethod(method)
	p.Reference = reference.String
	p.Status = engine.PaymentStatus(status)
	p.SubmittedBy = submittedBy
	p.SubmittedByType = submittedByType
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return engine.Payment{}, err
	}
	if decidedAt.Valid && decidedAt.String != "" {
		t, err := parseTime(decidedAt.String)
		if err != nil {
			return engine.Payment{}, err
		}
		p.DecidedAt = &t
	}
	p.DecidedBy = decidedBy.String
	return p, nil
}

func (s *Store) AppendPayment(ctx context.Context, scope engine.ScheduleScope, p engine.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (id, installment_id, amount, currency, method, reference, status,
		                      submitted_by, submitted_by_type, created_at, decided_at, decided_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, NULL)`,
		string(p.ID), string(p.InstallmentID), p.Amount.Value.String(), string(p.Amount.Currency),
		string(p.Method), p.Reference, string(p.Status), p.SubmittedBy, p.SubmittedByType,
		fmtTime(p.CreatedAt))
	return err
}

func (s *Store) FindPayment(ctx context.Context, id engine.PaymentID) (engine.Payment, engine.ScheduleScope, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findPayment(ctx, id)
}

func (s *Store) findPayment(ctx context.Context, id engine.PaymentID) (engine.Payment, engine.ScheduleScope, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT p.installment_id, p.amount, p.currency, p.method, p.reference, p.status,
		       p.submitted_by, p.submitted_by_type, p.created_at, p.decided_at, p.decided_by,
		       i.contract_id, i.collaborator_id
		FROM payments p JOIN installments i ON i.id = p.installment_id
		WHERE p.id = ?`, string(id))

	var p engine.Payment
	var installmentID, amount, currency, method, status, submittedBy, submittedByType, createdAt string
	var reference, decidedAt, decidedBy sql.NullString
	var contractID, collaboratorID string
	err := row.Scan(&installmentID, &amount, &currency, &method, &reference, &status,
		&submittedBy, &submittedByType, &createdAt, &decidedAt, &decidedBy,
		&contractID, &collaboratorID)
	if err != nil {
		if err == sql.ErrNoRows {
			return engine.Payment{}, engine.ScheduleScope{}, &engine.NotFoundError{Kind: "payment", ID: string(id)}
		}
		return engine.Payment{}, engine.ScheduleScope{}, err
	}

	p.ID = id
	p.InstallmentID = engine.InstallmentID(installmentID)
	if p.Amount, err = parseMoney(amount, engine.Currency(currency)); err != nil {
		return engine.Payment{}, engine.ScheduleScope{}, err
	}
	p.Method = engine.PaymentMethod(method)
	p.Reference = reference.String
	p.Status = engine.PaymentStatus(status)
	p.SubmittedBy = submittedBy
	p.SubmittedByType = submittedByType
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return engine.Payment{}, engine.ScheduleScope{}, err
	}
	if decidedAt.Valid && decidedAt.String != "" {
		t, err := parseTime(decidedAt.String)
		if err != nil {
			return engine.Payment{}, engine.ScheduleScope{}, err
		}
		p.DecidedAt = &t
	}
	p.DecidedBy = decidedBy.String

	scope := engine.ScheduleScope{
		ContractID:     engine.ContractID(contractID),
		CollaboratorID: engine.CollaboratorID(collaboratorID),
	}
	return p, scope, nil
}

func (s *Store) DecidePayment(ctx context.Context, id engine.PaymentID, outcome engine.PaymentStatus, decidedAt time.Time, decidedBy string) (engine.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Conditional single-shot transition. Approval timestamp only on
	// COMPLETED; a FAILED decision records the decider but no approval.
	var decidedAtVal any
	if outcome == engine.PaymentCompleted {
		decidedAtVal = fmtTime(decidedAt)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE payments SET status = ?, decided_at = ?, decided_by = ?
		WHERE id = ? AND status = ?`,
		string(outcome), decidedAtVal, decidedBy, string(id), string(engine.PaymentPending))
	if err != nil {
		return engine.Payment{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		p, _, err := s.findPayment(ctx, id)
		if err != nil {
			return engine.Payment{}, err
		}
		return engine.Payment{}, &engine.AlreadyDecidedError{PaymentID: id, Status: p.Status}
	}

	p, _, err := s.findPayment(ctx, id)
	return p, err
}

// =============================================================================
// PROGRESS SNAPSHOTS
// =============================================================================

func (s *Store) SaveProgress(ctx context.Context, report engine.ProgressReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO progress_snapshots (contract_id, deliverables_pct, payment_pct, overall_pct,
		                                completed_deliverables, total_deliverables, completed_amount, currency, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(contract_id) DO UPDATE SET
			deliverables_pct = excluded.deliverables_pct,
			payment_pct = excluded.payment_pct,
			overall_pct = excluded.overall_pct,
			completed_deliverables = excluded.completed_deliverables,
			total_deliverables = excluded.total_deliverables,
			completed_amount = excluded.completed_amount,
			currency = excluded.currency,
			created_at = excluded.created_at`,
		string(report.ContractID), report.DeliverablesPercentage, report.PaymentPercentage,
		report.OverallProgress, report.CompletedDeliverables, report.TotalDeliverables,
		report.CompletedPaymentsAmount.Value.String(), string(report.CompletedPaymentsAmount.Currency),
		fmtTime(time.Now().UTC()))
	return err
}

func (s *Store) LoadProgress(ctx context.Context, id engine.ContractID) (engine.ProgressReport, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT deliverables_pct, payment_pct, overall_pct,
		       completed_deliverables, total_deliverables, completed_amount, currency
		FROM progress_snapshots WHERE contract_id = ?`, string(id))

	var report engine.ProgressReport
	var amount, currency string
	err := row.Scan(&report.DeliverablesPercentage, &report.PaymentPercentage, &report.OverallProgress,
		&report.CompletedDeliverables, &report.TotalDeliverables, &amount, &currency)
	if err == sql.ErrNoRows {
		return engine.ProgressReport{}, false, nil
	}
	if err != nil {
		return engine.ProgressReport{}, false, err
	}
	report.ContractID = id
	if report.CompletedPaymentsAmount, err = parseMoney(amount, engine.Currency(currency)); err != nil {
		return engine.ProgressReport{}, false, err
	}
	return report, true, nil
}

func (s *Store) InvalidateProgress(ctx context.Context, id engine.ContractID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM progress_snapshots WHERE contract_id = ?`, string(id))
	return err
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

func parseMoney(value string, currency engine.Currency) (engine.Money, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return engine.Money{}, fmt.Errorf("bad stored amount %q: %w", value, err)
	}
	return engine.Money{Value: d, Currency: currency}, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func fmtTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func fmtNullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return fmtTime(t)
}

func fmtTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return fmtTime(*t)
}

func parseTime(s string) (time.Time, error) { return time.Parse(time.RFC3339Nano, s) }
