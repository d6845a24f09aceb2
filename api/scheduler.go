/*
scheduler.go - Background overdue sweep

PURPOSE:
  Periodically scans all contracts for installments that have passed their
  due date without resolving to PAID, logs them for the verification queue,
  and warms the progress snapshot cache so dashboard reads stay cheap.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Overdue detection reuses the same day-granularity rule the views use
  - Snapshot warming is best effort; reads recompute on a miss anyway

CONFIGURATION:
  - CheckInterval: How often to sweep (default: 1 hour)
  - Enabled: Whether the sweep is active (default: true)

USAGE:
  sweep := NewOverdueSweep(store, handler)
  sweep.Start()
  // ... later
  sweep.Stop()

SEE ALSO:
  - engine/status.go: IsOverdue
  - handlers.go: The views the warmed snapshots serve
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/warp/contract-engine/engine"
)

// OverdueSweep periodically flags overdue installments and warms snapshots.
type OverdueSweep struct {
	Store         engine.Store
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
}

func NewOverdueSweep(store engine.Store, handler *Handler) *OverdueSweep {
	return &OverdueSweep{
		Store:         store,
		Handler:       handler,
		CheckInterval: time.Hour,
		Enabled:       true,
	}
}

// Start launches the background sweep. No-op when disabled.
func (s *OverdueSweep) Start() {
	if !s.Enabled {
		log.Println("Overdue sweep is disabled")
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.stop = make(chan bool)
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		log.Printf("Overdue sweep started (interval: %v)", s.CheckInterval)

		s.RunOnce(context.Background())
		for {
			select {
			case <-s.ticker.C:
				s.RunOnce(context.Background())
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop halts the sweep and waits for the current pass to finish.
func (s *OverdueSweep) Stop() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	if s.stop != nil {
		close(s.stop)
	}
	s.wg.Wait()
	log.Println("Overdue sweep stopped")
}

// RunOnce performs a single pass over all contracts.
func (s *OverdueSweep) RunOnce(ctx context.Context) {
	now := s.Handler.Clock()
	contracts, err := s.Store.ListContracts(ctx)
	if err != nil {
		log.Printf("Overdue sweep: list contracts: %v", err)
		return
	}

	snapshots, _ := s.Store.(engine.SnapshotStore)
	for _, c := range contracts {
		overdue := countOverdue(c, now)
		if overdue > 0 {
			log.Printf("Overdue sweep: contract %s has %d overdue installment(s)", c.ID, overdue)
		}
		if snapshots != nil {
			if _, found, _ := snapshots.LoadProgress(ctx, c.ID); !found {
				_ = snapshots.SaveProgress(ctx, engine.ComputeProgress(c))
			}
		}
	}
}

// countOverdue spans the client schedule and every collaborator schedule.
func countOverdue(c *engine.Contract, now time.Time) int {
	n := 0
	for i := range c.Installments {
		if engine.IsOverdue(c.Installments[i], now) {
			n++
		}
	}
	for i := range c.Collaborators {
		for j := range c.Collaborators[i].Installments {
			if engine.IsOverdue(c.Collaborators[i].Installments[j], now) {
				n++
			}
		}
	}
	return n
}
