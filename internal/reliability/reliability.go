// Package reliability implements the ACK-and-retry layer on top of the
// raw UDP transport: a table mapping MESSAGE_ID to a one-shot completion
// handle, with per-message retry scheduling on send. It generalizes a
// channel-actor pattern (commands/events channels resolved by a single
// central select loop) into an explicit per-entry completion channel so
// sends from arbitrary goroutines can wait without blocking the shared
// receive task.
package reliability

import (
	"context"
	"sync"
	"time"
)

// Defaults for retry scheduling.
const (
	DefaultBaseInterval = 2 * time.Second
	DefaultMaxAttempts  = 3
)

// SendFunc transmits one attempt's worth of bytes to the entry's
// destination. The reliability layer does not own a transport; it is
// handed a closure over one at construction/Send time (borrowed, not
// owned by this layer).
//
// The closure is passed to Send; the Table's constructors take none.
type SendFunc func(data []byte) error

// ErrDeliveryFailed is the error Send returns when retries are exhausted
// without an ACK.
type ErrDeliveryFailed struct{ MessageID string }

func (e *ErrDeliveryFailed) Error() string {
	return "reliability: delivery failed for " + e.MessageID
}

type entry struct {
	messageID string
	data      []byte
	send      SendFunc
	done      chan error

	mu       sync.Mutex
	attempts int
	timer    *time.Timer
	resolved bool
}

// Table is the sender-side bookkeeping for in-flight, unacknowledged
// messages, keyed by MESSAGE_ID.
type Table struct {
	baseInterval time.Duration
	maxAttempts  int

	mu      sync.Mutex
	entries map[string]*entry
}

// NewTable returns a Table using the protocol defaults (2s base interval,
// 3 max attempts).
func NewTable() *Table {
	return NewTableWithSchedule(DefaultBaseInterval, DefaultMaxAttempts)
}

// NewTableWithSchedule returns a Table with a custom retry schedule,
// useful for tests that don't want to wait 14 seconds for a real timeout.
func NewTableWithSchedule(baseInterval time.Duration, maxAttempts int) *Table {
	return &Table{
		baseInterval: baseInterval,
		maxAttempts:  maxAttempts,
		entries:      make(map[string]*entry),
	}
}

// Send inserts a reliability entry, transmits the first attempt via send,
// and blocks the calling goroutine (not any shared dispatch loop) until an
// ACK resolves it, retries are exhausted, or ctx is cancelled. On success
// it returns nil; on retry exhaustion it returns *ErrDeliveryFailed; on
// context cancellation it cancels the entry (no error reported upstream)
// and returns ctx.Err().
func (t *Table) Send(ctx context.Context, messageID string, data []byte, send SendFunc) error {
	e := &entry{
		messageID: messageID,
		data:      data,
		send:      send,
		done:      make(chan error, 1),
	}

	t.mu.Lock()
	t.entries[messageID] = e
	t.mu.Unlock()

	t.attempt(e)

	select {
	case err := <-e.done:
		return err
	case <-ctx.Done():
		t.Cancel(messageID)
		return ctx.Err()
	}
}

func (t *Table) attempt(e *entry) {
	e.mu.Lock()
	if e.resolved {
		e.mu.Unlock()
		return
	}
	attempt := e.attempts
	e.attempts++
	e.mu.Unlock()

	e.send(e.data)

	if attempt+1 >= t.maxAttempts {
		// Final attempt already sent; schedule the exhaustion check instead
		// of retrying again.
		delay := t.baseInterval << uint(attempt)
		e.mu.Lock()
		e.timer = time.AfterFunc(delay, func() { t.exhaust(e.messageID) })
		e.mu.Unlock()
		return
	}

	delay := t.baseInterval << uint(attempt)
	e.mu.Lock()
	e.timer = time.AfterFunc(delay, func() { t.attempt(e) })
	e.mu.Unlock()
}

func (t *Table) exhaust(messageID string) {
	t.mu.Lock()
	e, ok := t.entries[messageID]
	if ok {
		delete(t.entries, messageID)
	}
	t.mu.Unlock()
	if !ok {
		return
	}

	e.mu.Lock()
	if e.resolved {
		e.mu.Unlock()
		return
	}
	e.resolved = true
	e.mu.Unlock()

	e.done <- &ErrDeliveryFailed{MessageID: messageID}
}

// Ack resolves the entry for messageID, if any, signalling its waiter with
// a nil error and removing the entry. It is always safe to call, even for
// an unknown or already-resolved id (duplicate ACKs are idempotent).
func (t *Table) Ack(messageID string) {
	t.mu.Lock()
	e, ok := t.entries[messageID]
	if ok {
		delete(t.entries, messageID)
	}
	t.mu.Unlock()
	if !ok {
		return
	}

	e.mu.Lock()
	if e.resolved {
		e.mu.Unlock()
		return
	}
	e.resolved = true
	if e.timer != nil {
		e.timer.Stop()
	}
	e.mu.Unlock()

	e.done <- nil
}

// Cancel removes the entry for messageID and stops its retries without
// reporting a delivery failure upstream.
func (t *Table) Cancel(messageID string) {
	t.mu.Lock()
	e, ok := t.entries[messageID]
	if ok {
		delete(t.entries, messageID)
	}
	t.mu.Unlock()
	if !ok {
		return
	}

	e.mu.Lock()
	if e.timer != nil {
		e.timer.Stop()
	}
	e.resolved = true
	e.mu.Unlock()
}

// Len reports the number of in-flight entries, for tests and diagnostics.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
