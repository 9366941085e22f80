// Package registry tracks discovered peers and their network addresses.
// It is protected by an explicit mutex since the registry is written
// from multiple concurrent tasks: discovery and the receive path
// (including inbound PROFILE broadcasts).
package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Peer is a known peer's identity and last-known address.
type Peer struct {
	UserID      string
	DisplayName string
	IP          string
	Port        uint16
	LastSeen    time.Time
}

// FullID returns the canonical "user@ip" identifier for this peer.
func (p Peer) FullID() string {
	return p.UserID + "@" + p.IP
}

// ErrAmbiguous is returned by ResolveShort when more than one full id
// shares the same short handle.
var ErrAmbiguous = errors.New("registry: ambiguous short handle")

// ErrNotFound is returned by ResolveShort/LookupFull when nothing matches.
var ErrNotFound = errors.New("registry: not found")

// Registry is a peer directory keyed by full id. The zero value is not
// usable; use New.
type Registry struct {
	mu    sync.RWMutex
	peers map[string]Peer
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{peers: make(map[string]Peer)}
}

// Upsert creates or updates the peer record for p.FullID(). LastSeen is
// always bumped to the provided peer's value on update.
func (r *Registry) Upsert(p Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.peers[p.FullID()] = p
}

// Touch bumps LastSeen for an already-known peer without altering other
// fields; it is a no-op if the peer is unknown.
func (r *Registry) Touch(fullID string, when time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.peers[fullID]; ok {
		p.LastSeen = when
		r.peers[fullID] = p
	}
}

// LookupFull returns the peer for an exact full id.
func (r *Registry) LookupFull(fullID string) (Peer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.peers[fullID]
	if !ok {
		return Peer{}, errors.Wrapf(ErrNotFound, "%q", fullID)
	}
	return p, nil
}

// ResolveShort resolves a short handle (the portion before '@') to a full
// id. If no peer matches, ErrNotFound. If more than one full id shares the
// handle, ErrAmbiguous; callers must fall back to the full "user@ip" form.
func (r *Registry) ResolveShort(handle string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []string
	for fullID, p := range r.peers {
		if p.UserID == handle {
			matches = append(matches, fullID)
		}
	}
	switch len(matches) {
	case 0:
		return "", errors.Wrapf(ErrNotFound, "%q", handle)
	case 1:
		return matches[0], nil
	default:
		return "", errors.Wrapf(ErrAmbiguous, "%q matches %v", handle, matches)
	}
}

// Iter returns a snapshot slice of all known peers, sorted by full id for
// reproducible iteration order. Taking a snapshot (rather than handing out
// the live map) keeps the registry's own lock scope small.
func (r *Registry) Iter() []Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Peer, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullID() < out[j].FullID() })
	return out
}
