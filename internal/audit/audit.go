package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"media-console/internal/store"
)

// Event is one audit record: who did (or was refused) what.
type Event struct {
	EventType string         // "auth", "guard", "matrix", "catalog", "pipeline"
	Resource  string
	Action    string
	Decision  string         // "allow", "deny", "not_set" for guard events
	UserID    string
	Detail    map[string]any
}

// Recorder accepts audit events. The buffered implementation batches
// writes; Nop discards them when auditing is disabled.
type Recorder interface {
	Record(event Event)
}

// Nop is a Recorder that drops everything.
type Nop struct{}

func (Nop) Record(Event) {}

// EventBuffer collects events in memory and periodically flushes them
// to the audit_events table in a batch insert.
type EventBuffer struct {
	mu      sync.Mutex
	events  []Event
	store   *store.Store
	maxSize int
	ticker  *time.Ticker
	done    chan struct{}
}

// NewEventBuffer creates a buffer that flushes on a timer or when full.
func NewEventBuffer(s *store.Store, maxSize int, flushIntervalMs int) *EventBuffer {
	eb := &EventBuffer{
		store:   s,
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	eb.ticker = time.NewTicker(time.Duration(flushIntervalMs) * time.Millisecond)
	go eb.run()
	return eb
}

func (eb *EventBuffer) run() {
	for {
		select {
		case <-eb.done:
			return
		case <-eb.ticker.C:
			eb.Flush()
		}
	}
}

// Record adds an event to the buffer. If the buffer is full, a flush
// is triggered asynchronously.
func (eb *EventBuffer) Record(event Event) {
	eb.mu.Lock()
	eb.events = append(eb.events, event)
	shouldFlush := len(eb.events) >= eb.maxSize
	eb.mu.Unlock()
	if shouldFlush {
		go eb.Flush()
	}
}

// Flush writes all buffered events to the database in a single batch insert.
func (eb *EventBuffer) Flush() {
	eb.mu.Lock()
	if len(eb.events) == 0 {
		eb.mu.Unlock()
		return
	}
	batch := eb.events
	eb.events = nil
	eb.mu.Unlock()

	ctx := context.Background()
	tx, err := eb.store.BeginTx(ctx)
	if err != nil {
		log.Printf("ERROR: audit buffer begin tx: %v", err)
		return
	}

	if off := eb.store.Dialect.SyncCommitOff(); off != "" {
		if _, err := tx.ExecContext(ctx, off); err != nil {
			tx.Rollback()
			log.Printf("ERROR: audit buffer set sync commit: %v", err)
			return
		}
	}

	pb := eb.store.Dialect.NewParamBuilder()
	var placeholders []string
	for _, e := range batch {
		var detailJSON any
		if e.Detail != nil {
			b, _ := json.Marshal(e.Detail)
			detailJSON = string(b)
		}
		placeholders = append(placeholders, fmt.Sprintf("(%s, %s, %s, %s, %s, %s, %s)",
			pb.Add(uuid.New().String()), pb.Add(e.EventType), pb.Add(e.Resource),
			pb.Add(e.Action), pb.Add(e.Decision), pb.Add(e.UserID), pb.Add(detailJSON)))
	}

	sqlStr := fmt.Sprintf(
		"INSERT INTO audit_events (id, event_type, resource, action, decision, user_id, detail) VALUES %s",
		strings.Join(placeholders, ","))
	if _, err := tx.ExecContext(ctx, sqlStr, pb.Params()...); err != nil {
		tx.Rollback()
		log.Printf("ERROR: audit buffer insert: %v", err)
		return
	}

	if err := tx.Commit(); err != nil {
		log.Printf("ERROR: audit buffer commit: %v", err)
	}
}

// Stop halts the background ticker and flushes remaining events.
func (eb *EventBuffer) Stop() {
	if eb.ticker != nil {
		eb.ticker.Stop()
	}
	close(eb.done)
	eb.Flush()
}

// Cleanup deletes audit events older than the retention window.
func Cleanup(ctx context.Context, s *store.Store, retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	pb := s.Dialect.NewParamBuilder()
	cond := s.Dialect.IntervalDeleteExpr("created_at", pb, fmt.Sprintf("%d", retentionDays))
	n, err := store.Exec(ctx, s.DB, "DELETE FROM audit_events WHERE "+cond, pb.Params()...)
	if err != nil {
		return fmt.Errorf("audit cleanup: %w", err)
	}
	if n > 0 {
		log.Printf("Audit cleanup removed %d events older than %d days", n, retentionDays)
	}
	return nil
}
