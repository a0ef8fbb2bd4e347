package pipeline

import (
	"context"
	"errors"
	"log"
	"time"

	"media-console/internal/store"
)

// Scheduler drains the pending execution queue on a ticker. One
// execution runs at a time; media pipelines are minutes-long HTTP
// round trips, not CPU work, so a single worker keeps ordering simple.
type Scheduler struct {
	store  *Store
	runner *Runner
	ticker *time.Ticker
	done   chan struct{}
}

func NewScheduler(s *Store, runner *Runner) *Scheduler {
	return &Scheduler{store: s, runner: runner}
}

// Start begins the background ticker.
func (s *Scheduler) Start() {
	s.ticker = time.NewTicker(5 * time.Second)
	s.done = make(chan struct{})
	go s.run()
	log.Println("Pipeline scheduler started (5s interval)")
}

// Stop halts the background ticker.
func (s *Scheduler) Stop() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	if s.done != nil {
		close(s.done)
	}
}

func (s *Scheduler) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.ticker.C:
			s.drain(context.Background())
		}
	}
}

// drain claims and runs pending executions until the queue is empty.
func (s *Scheduler) drain(ctx context.Context) {
	for {
		select {
		case <-s.done:
			return
		default:
		}

		e, err := s.store.ClaimPending(ctx)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				log.Printf("ERROR: claim pending execution: %v", err)
			}
			return
		}

		if err := s.runner.Run(ctx, e); err != nil {
			log.Printf("ERROR: run execution %s: %v", e.ID, err)
		}
	}
}
