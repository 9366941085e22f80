package dedupe

import "testing"

func TestSeenOrInsertIdempotent(t *testing.T) {
	tr := NewTracker(DefaultCapacity)

	if tr.SeenOrInsert("alice@10.0.0.2", "m1") {
		t.Fatal("first sighting should not be reported as seen")
	}
	for i := 0; i < 4; i++ {
		if !tr.SeenOrInsert("alice@10.0.0.2", "m1") {
			t.Fatal("repeat sighting should be reported as seen")
		}
	}
}

func TestSeenSetsAreIndependentPerSender(t *testing.T) {
	tr := NewTracker(DefaultCapacity)
	tr.SeenOrInsert("alice@10.0.0.2", "m1")

	if tr.SeenOrInsert("bob@10.0.0.3", "m1") {
		t.Fatal("same message id from a different sender must not be deduped")
	}
}

func TestBoundedCapacityEvictsOldest(t *testing.T) {
	tr := NewTracker(2)

	tr.SeenOrInsert("alice@10.0.0.2", "m1")
	tr.SeenOrInsert("alice@10.0.0.2", "m2")
	tr.SeenOrInsert("alice@10.0.0.2", "m3") // evicts m1

	if tr.SeenOrInsert("alice@10.0.0.2", "m1") {
		t.Fatal("m1 should have been evicted and treated as new again")
	}
}
