package transport

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestSendUnicastAndRecv(t *testing.T) {
	a, err := Listen(0, "127.255.255.255")
	if err != nil {
		t.Fatalf("Listen a: %v", err)
	}
	defer a.Close()

	b, err := Listen(0, "127.255.255.255")
	if err != nil {
		t.Fatalf("Listen b: %v", err)
	}
	defer b.Close()

	dst := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: b.LocalPort()}
	if err := a.SendUnicast(dst, []byte("hello")); err != nil {
		t.Fatalf("SendUnicast: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	data, _, err := b.Recv(ctx)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("got %q, want hello", data)
	}
}

func TestSendUnicastRejectsOversizedPayload(t *testing.T) {
	a, err := Listen(0, "127.255.255.255")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer a.Close()

	big := make([]byte, MaxDatagramSize+1)
	dst := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 1}
	if err := a.SendUnicast(dst, big); err == nil {
		t.Fatal("expected error for oversized payload")
	}
}

func TestRecvRespectsContextCancellation(t *testing.T) {
	a, err := Listen(0, "127.255.255.255")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	if _, _, err := a.Recv(ctx); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
