package txn

import (
	"testing"

	"storagecore/pkg/storage"
)

func TestNewTransactionStartsGrowing(t *testing.T) {
	tx := New(1)
	if tx.State() != Growing {
		t.Fatalf("State() = %v, want GROWING", tx.State())
	}
}

func TestAddAndRemoveLocks(t *testing.T) {
	tx := New(1)
	r := storage.RID{PageID: 1, Slot: 0}

	tx.AddShared(r)
	if !tx.HoldsShared(r) {
		t.Fatalf("HoldsShared() = false after AddShared")
	}

	tx.RemoveShared(r)
	if tx.HoldsShared(r) {
		t.Fatalf("HoldsShared() = true after RemoveShared")
	}

	tx.AddExclusive(r)
	if !tx.HoldsExclusive(r) {
		t.Fatalf("HoldsExclusive() = false after AddExclusive")
	}
}

func TestLockedRIDsDeduplicates(t *testing.T) {
	tx := New(1)
	r1 := storage.RID{PageID: 1, Slot: 0}
	r2 := storage.RID{PageID: 2, Slot: 0}

	tx.AddShared(r1)
	tx.AddExclusive(r1)
	tx.AddExclusive(r2)

	got := tx.LockedRIDs()
	if len(got) != 2 {
		t.Fatalf("LockedRIDs() = %v, want 2 entries", got)
	}
}

func TestStateTransitions(t *testing.T) {
	tx := New(1)
	tx.SetState(Shrinking)
	if tx.State() != Shrinking {
		t.Fatalf("State() = %v, want SHRINKING", tx.State())
	}
	tx.SetState(Committed)
	if tx.State() != Committed {
		t.Fatalf("State() = %v, want COMMITTED", tx.State())
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		Growing:   "GROWING",
		Shrinking: "SHRINKING",
		Committed: "COMMITTED",
		Aborted:   "ABORTED",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Fatalf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}
