// Package dedupe implements the per-sender, LRU-bounded seen-MESSAGE_ID
// sets used for idempotent receive. Peers are deduped independently, and
// each peer's set is capped so a noisy or hostile sender can't grow it
// without bound; an LRU eviction policy is used rather than an
// ever-growing map.
package dedupe

import (
	"container/list"
	"sync"
)

// DefaultCapacity is the recommended per-peer bound.
const DefaultCapacity = 1024

// perPeerSet is a bounded LRU set of message IDs for one sender.
type perPeerSet struct {
	capacity int
	order    *list.List
	index    map[string]*list.Element
}

func newPerPeerSet(capacity int) *perPeerSet {
	return &perPeerSet{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[string]*list.Element),
	}
}

// seenOrInsert reports whether id was already present, inserting it (and
// evicting the oldest entry if over capacity) if not.
func (s *perPeerSet) seenOrInsert(id string) bool {
	if el, ok := s.index[id]; ok {
		s.order.MoveToFront(el)
		return true
	}

	el := s.order.PushFront(id)
	s.index[id] = el

	if s.order.Len() > s.capacity {
		oldest := s.order.Back()
		if oldest != nil {
			s.order.Remove(oldest)
			delete(s.index, oldest.Value.(string))
		}
	}
	return false
}

// Tracker holds one bounded seen-ID set per sender full-id.
type Tracker struct {
	capacity int

	mu   sync.Mutex
	sets map[string]*perPeerSet
}

// NewTracker returns a Tracker with the given per-peer capacity.
func NewTracker(capacity int) *Tracker {
	return &Tracker{capacity: capacity, sets: make(map[string]*perPeerSet)}
}

// SeenOrInsert reports whether messageID was already processed for
// sender, inserting it into that sender's set if not.
func (t *Tracker) SeenOrInsert(sender, messageID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.sets[sender]
	if !ok {
		set = newPerPeerSet(t.capacity)
		t.sets[sender] = set
	}
	return set.seenOrInsert(messageID)
}
