// Package event implements the C8 event/history publisher: a bounded
// per-slot ring of human-readable call records that the UI thread reads
// as a snapshot, plus a watchdog callback fired on call completion.
// Grounded on this module's former bridge.StreamTracker, which was a
// mutex-guarded map tracking in-flight stream identity; here the same
// guarded-state shape tracks a bounded history of finished/in-flight
// calls instead of deduplicating forwarded packets.
package event

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultRingSize is the typical per-slot ring depth named in spec §4.8.
const DefaultRingSize = 16

// Record is one event-log entry.
type Record struct {
	CallID    uuid.UUID
	Timestamp time.Time
	Source    uint32
	Target    uint32
	Text      string
	GPS       string
	Color     string
	Alias     string
}

// Ring is a fixed-capacity, oldest-drop circular buffer. Push never
// blocks and never errors; a full ring silently drops its oldest entry.
type Ring struct {
	mu    sync.Mutex
	buf   []Record
	head  int // index of the oldest entry
	count int
}

// NewRing builds a ring with the given capacity, defaulting to
// DefaultRingSize when size <= 0.
func NewRing(size int) *Ring {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Ring{buf: make([]Record, size)}
}

// Push appends a record, dropping the oldest entry if the ring is full.
func (r *Ring) Push(rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	capacity := len(r.buf)
	if r.count < capacity {
		idx := (r.head + r.count) % capacity
		r.buf[idx] = rec
		r.count++
		return
	}
	// Full: overwrite the oldest slot and advance head.
	r.buf[r.head] = rec
	r.head = (r.head + 1) % capacity
}

// Snapshot returns a copy of the ring's contents, oldest first, safe for
// the UI thread to read without tearing.
func (r *Ring) Snapshot() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Record, r.count)
	capacity := len(r.buf)
	for i := 0; i < r.count; i++ {
		out[i] = r.buf[(r.head+i)%capacity]
	}
	return out
}

// WatchdogFunc is invoked on data-call completion with a compact summary.
type WatchdogFunc func(summary string)

// Publisher owns one event Ring per slot (0 and 1) plus an optional
// watchdog invoked when a data call completes.
type Publisher struct {
	rings    [2]*Ring
	watchdog WatchdogFunc
}

// NewPublisher builds a publisher with per-slot rings of the given
// capacity (DefaultRingSize if ringSize <= 0).
func NewPublisher(ringSize int) *Publisher {
	return &Publisher{
		rings: [2]*Ring{NewRing(ringSize), NewRing(ringSize)},
	}
}

// SetWatchdog installs the callback fired by CompleteDataCall.
func (p *Publisher) SetWatchdog(fn WatchdogFunc) {
	p.watchdog = fn
}

// Publish appends a record to the given slot's ring. Slot must be 0 or 1.
func (p *Publisher) Publish(slot int, rec Record) {
	if slot < 0 || slot > 1 {
		return
	}
	if rec.CallID == uuid.Nil {
		rec.CallID = uuid.New()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	p.rings[slot].Push(rec)
}

// CompleteDataCall fires the watchdog with a compact summary string for
// a finished data call, per spec §4.8.
func (p *Publisher) CompleteDataCall(slot int, rec Record, byteCount int) {
	if p.watchdog == nil {
		return
	}
	summary := fmt.Sprintf("slot%d %d->%d %s (%d bytes)", slot, rec.Source, rec.Target, rec.Text, byteCount)
	p.watchdog(summary)
}

// Snapshot returns a read-only copy of a slot's ring for the UI thread.
func (p *Publisher) Snapshot(slot int) []Record {
	if slot < 0 || slot > 1 {
		return nil
	}
	return p.rings[slot].Snapshot()
}
