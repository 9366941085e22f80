package reliability

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestSendResolvedByAck(t *testing.T) {
	table := NewTableWithSchedule(20*time.Millisecond, 3)

	var sent int32
	go func() {
		time.Sleep(5 * time.Millisecond)
		table.Ack("m1")
	}()

	err := table.Send(context.Background(), "m1", []byte("hi"), func(data []byte) error {
		atomic.AddInt32(&sent, 1)
		return nil
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if atomic.LoadInt32(&sent) != 1 {
		t.Fatalf("expected exactly 1 send before ack, got %d", sent)
	}
	if table.Len() != 0 {
		t.Fatalf("expected entry removed after ack, Len=%d", table.Len())
	}
}

func TestSendRetriesThenFails(t *testing.T) {
	table := NewTableWithSchedule(10*time.Millisecond, 3)

	var sent int32
	start := time.Now()
	err := table.Send(context.Background(), "m2", []byte("hi"), func(data []byte) error {
		atomic.AddInt32(&sent, 1)
		return nil
	})
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected delivery failure")
	}
	if _, ok := err.(*ErrDeliveryFailed); !ok {
		t.Fatalf("expected *ErrDeliveryFailed, got %T: %v", err, err)
	}
	if got := atomic.LoadInt32(&sent); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
	// base=10ms: 10 + 20 + 40 = 70ms minimum before exhaustion.
	if elapsed < 60*time.Millisecond {
		t.Fatalf("resolved too fast: %v", elapsed)
	}
	if table.Len() != 0 {
		t.Fatalf("expected entry removed after exhaustion, Len=%d", table.Len())
	}
}

func TestDuplicateAckIsIdempotent(t *testing.T) {
	table := NewTableWithSchedule(20*time.Millisecond, 3)

	go func() {
		time.Sleep(2 * time.Millisecond)
		table.Ack("m3")
		table.Ack("m3") // duplicate, must not panic or double-resolve
	}()

	if err := table.Send(context.Background(), "m3", []byte("hi"), func([]byte) error { return nil }); err != nil {
		t.Fatalf("Send: %v", err)
	}
}

func TestCancelSuppressesFailureReport(t *testing.T) {
	table := NewTableWithSchedule(5*time.Millisecond, 3)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(2 * time.Millisecond)
		cancel()
	}()

	err := table.Send(ctx, "m4", []byte("hi"), func([]byte) error { return nil })
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if table.Len() != 0 {
		t.Fatalf("expected entry removed after cancel, Len=%d", table.Len())
	}
}
