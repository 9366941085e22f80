package registry

import (
	"testing"
	"time"
)

func TestUpsertAndLookup(t *testing.T) {
	r := New()
	r.Upsert(Peer{UserID: "alice", DisplayName: "Alice", IP: "10.0.0.2", Port: 7000, LastSeen: time.Now()})

	p, err := r.LookupFull("alice@10.0.0.2")
	if err != nil {
		t.Fatalf("LookupFull: %v", err)
	}
	if p.DisplayName != "Alice" {
		t.Fatalf("DisplayName = %q, want Alice", p.DisplayName)
	}
}

func TestResolveShortUnambiguous(t *testing.T) {
	r := New()
	r.Upsert(Peer{UserID: "alice", IP: "10.0.0.2"})

	full, err := r.ResolveShort("alice")
	if err != nil {
		t.Fatalf("ResolveShort: %v", err)
	}
	if full != "alice@10.0.0.2" {
		t.Fatalf("full = %q", full)
	}
}

func TestResolveShortAmbiguous(t *testing.T) {
	r := New()
	r.Upsert(Peer{UserID: "alice", IP: "10.0.0.2"})
	r.Upsert(Peer{UserID: "alice", IP: "10.0.0.3"})

	if _, err := r.ResolveShort("alice"); err == nil {
		t.Fatal("expected ambiguity error")
	}
}

func TestResolveShortNotFound(t *testing.T) {
	r := New()
	if _, err := r.ResolveShort("nobody"); err == nil {
		t.Fatal("expected not-found error")
	}
}

func TestIterSortedSnapshot(t *testing.T) {
	r := New()
	r.Upsert(Peer{UserID: "bob", IP: "10.0.0.3"})
	r.Upsert(Peer{UserID: "alice", IP: "10.0.0.2"})

	peers := r.Iter()
	if len(peers) != 2 {
		t.Fatalf("expected 2 peers, got %d", len(peers))
	}
	if peers[0].FullID() != "alice@10.0.0.2" {
		t.Fatalf("expected alice first, got %s", peers[0].FullID())
	}
}
