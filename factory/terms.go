/*
Package factory provides JSON contract-terms to engine aggregate conversion.

PURPOSE:
  Converts a JSON terms document into a hydrated engine.Contract with its
  client installment schedule and per-collaborator pay schedules already
  generated. This keeps contract setup configurable from the admin UI
  without code changes: the API layer accepts the JSON, the factory builds
  the aggregate, the store persists it.

JSON SCHEMA:
  {
    "id": "ct-2026-001",                 // optional, generated when empty
    "title": "Thesis advisory engagement",
    "total": "1200.00",                  // exact decimal string
    "currency": "PEN",
    "installments": 4,
    "start_date": "2026-01-15",
    "end_date": "2026-07-15",
    "description": "Cuota",
    "deliverables": [
      {"title": "Chapter 1 draft"},
      {"title": "Final defense deck"}
    ],
    "collaborators": [
      {
        "id": "col-7", "name": "A. Quispe",
        "total": "400.00", "installments": 2,
        "start_date": "2026-01-15", "description": "Payout"
      }
    ]
  }

  Monetary values are decimal STRINGS, never JSON numbers - float64 would
  defeat the exact-sum invariant before the scheduler even runs.

SEE ALSO:
  - engine/schedule.go: The generation the factory delegates to
  - api/handlers.go: CreateContract consumes this package
*/
package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/warp/contract-engine/engine"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// TermsJSON is the JSON representation of agreed contract terms.
type TermsJSON struct {
	ID            string                  `json:"id,omitempty"`
	Title         string                  `json:"title"`
	Total         string                  `json:"total"`
	Currency      string                  `json:"currency"`
	Installments  int                     `json:"installments"`
	StartDate     string                  `json:"start_date"`
	EndDate       string                  `json:"end_date,omitempty"`
	Description   string                  `json:"description,omitempty"`
	Deliverables  []DeliverableJSON       `json:"deliverables,omitempty"`
	Collaborators []CollaboratorTermsJSON `json:"collaborators,omitempty"`
}

type DeliverableJSON struct {
	Title string `json:"title"`
	Notes string `json:"notes,omitempty"`
}

// CollaboratorTermsJSON describes one collaborator's independent pay
// schedule. Structurally the same knobs as the client schedule.
type CollaboratorTermsJSON struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name"`
	Total        string `json:"total"`
	Installments int    `json:"installments"`
	StartDate    string `json:"start_date,omitempty"` // defaults to contract start
	Description  string `json:"description,omitempty"`
}

const dateLayout = "2006-01-02"

// =============================================================================
// BUILDER
// =============================================================================

// ParseTerms decodes a JSON terms document.
func ParseTerms(raw []byte) (TermsJSON, error) {
	var terms TermsJSON
	if err := json.Unmarshal(raw, &terms); err != nil {
		return TermsJSON{}, fmt.Errorf("parse terms: %w", err)
	}
	return terms, nil
}

// BuildContract turns parsed terms into a hydrated contract aggregate with
// all schedules generated. Schedule validation errors pass through from the
// engine (InvalidScheduleError and friends).
func BuildContract(terms TermsJSON, now time.Time) (*engine.Contract, error) {
	currency := engine.Currency(terms.Currency)
	if !engine.ValidCurrency(currency) {
		return nil, fmt.Errorf("terms: unsupported currency %q", terms.Currency)
	}
	total, err := engine.NewMoneyFromString(terms.Total, currency)
	if err != nil {
		return nil, fmt.Errorf("terms: bad total %q: %w", terms.Total, err)
	}
	start, err := parseDate(terms.StartDate, "start_date")
	if err != nil {
		return nil, err
	}
	var end time.Time
	if terms.EndDate != "" {
		if end, err = parseDate(terms.EndDate, "end_date"); err != nil {
			return nil, err
		}
	}

	id := engine.ContractID(terms.ID)
	if id == "" {
		id = engine.ContractID(uuid.NewString())
	}

	c := &engine.Contract{
		ID:        id,
		Title:     terms.Title,
		Total:     total,
		StartDate: start,
		EndDate:   end,
		CreatedAt: now,
	}

	c.Installments, err = engine.GenerateSchedule(engine.ScheduleSpec{
		Scope:       c.ClientScope(),
		Total:       total,
		Count:       terms.Installments,
		StartDate:   start,
		Description: terms.Description,
	})
	if err != nil {
		return nil, err
	}

	for _, d := range terms.Deliverables {
		c.Deliverables = append(c.Deliverables, engine.DeliverableAssignment{
			ID:         uuid.NewString(),
			Title:      d.Title,
			Notes:      d.Notes,
			AssignedAt: now,
		})
	}

	for _, ct := range terms.Collaborators {
		col, err := buildCollaborator(c, ct, currency, start)
		if err != nil {
			return nil, err
		}
		c.Collaborators = append(c.Collaborators, col)
	}
	return c, nil
}

func buildCollaborator(c *engine.Contract, ct CollaboratorTermsJSON, currency engine.Currency, contractStart time.Time) (engine.Collaborator, error) {
	colID := engine.CollaboratorID(ct.ID)
	if colID == "" {
		colID = engine.CollaboratorID(uuid.NewString())
	}
	total, err := engine.NewMoneyFromString(ct.Total, currency)
	if err != nil {
		return engine.Collaborator{}, fmt.Errorf("terms: collaborator %s: bad total %q: %w", ct.Name, ct.Total, err)
	}
	start := contractStart
	if ct.StartDate != "" {
		if start, err = parseDate(ct.StartDate, "collaborator start_date"); err != nil {
			return engine.Collaborator{}, err
		}
	}
	installments, err := engine.GenerateSchedule(engine.ScheduleSpec{
		Scope:       engine.ScheduleScope{ContractID: c.ID, CollaboratorID: colID},
		Total:       total,
		Count:       ct.Installments,
		StartDate:   start,
		Description: ct.Description,
	})
	if err != nil {
		return engine.Collaborator{}, err
	}
	return engine.Collaborator{ID: colID, Name: ct.Name, Total: total, Installments: installments}, nil
}

func parseDate(s, field string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("terms: bad %s %q: %w", field, s, err)
	}
	return t, nil
}
