package lockmgr

import (
	"testing"
	"time"

	"storagecore/pkg/storage"
	"storagecore/pkg/txn"
)

func rid(page uint64) storage.RID {
	return storage.RID{PageID: storage.PageID(page), Slot: 0}
}

// TestExclusiveWoundWait tests that when an older txn holds an
// exclusive lock, a younger txn's conflicting request is wounded rather
// than queued.
func TestExclusiveWoundWait(t *testing.T) {
	lm := New(false)
	r := rid(1)

	t1 := txn.New(1)
	t2 := txn.New(2)

	if !lm.LockExclusive(t1, r) {
		t.Fatalf("t1 LockExclusive() = false, want true")
	}

	done := make(chan bool, 1)
	go func() { done <- lm.LockExclusive(t2, r) }()

	select {
	case ok := <-done:
		if ok {
			t.Fatalf("t2 LockExclusive() = true, want false (wound-wait abort)")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("t2 LockExclusive() did not return; wound-wait did not abort it")
	}

	if t2.State() != txn.Aborted {
		t.Fatalf("t2 state = %v, want ABORTED", t2.State())
	}
	if t1.State() != txn.Growing {
		t.Fatalf("t1 state = %v, want GROWING (older txn never self-aborts)", t1.State())
	}
}

// TestUpgradeBlocksUntilSoleHolder tests that when t1 holds shared and
// t2 acquires shared too, t1's upgrade blocks until t2 unlocks.
func TestUpgradeBlocksUntilSoleHolder(t *testing.T) {
	lm := New(false)
	r := rid(7)

	t1 := txn.New(1)
	t2 := txn.New(2)

	if !lm.LockShared(t1, r) {
		t.Fatalf("t1 LockShared() = false")
	}
	if !lm.LockShared(t2, r) {
		t.Fatalf("t2 LockShared() = false")
	}

	upgraded := make(chan bool, 1)
	go func() { upgraded <- lm.LockUpgrade(t1, r) }()

	select {
	case <-upgraded:
		t.Fatalf("LockUpgrade() returned before t2 released its shared lock")
	case <-time.After(100 * time.Millisecond):
		// expected: still blocked
	}

	if !lm.Unlock(t2, r) {
		t.Fatalf("t2 Unlock() = false")
	}

	select {
	case ok := <-upgraded:
		if !ok {
			t.Fatalf("LockUpgrade() = false, want true")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("LockUpgrade() did not complete after t2 released")
	}

	if !t1.HoldsExclusive(r) {
		t.Fatalf("t1 does not hold exclusive lock on r after upgrade")
	}
	if t1.HoldsShared(r) {
		t.Fatalf("t1 still holds shared lock on r after upgrade")
	}
}

func TestSharedLocksAreCompatible(t *testing.T) {
	lm := New(false)
	r := rid(3)

	t1 := txn.New(1)
	t2 := txn.New(2)

	if !lm.LockShared(t1, r) {
		t.Fatalf("t1 LockShared() = false")
	}
	if !lm.LockShared(t2, r) {
		t.Fatalf("t2 LockShared() = false")
	}
	if !t1.HoldsShared(r) || !t2.HoldsShared(r) {
		t.Fatalf("both txns should hold the shared lock concurrently")
	}
}

func TestNonStrictUnlockTransitionsToShrinking(t *testing.T) {
	lm := New(false)
	r := rid(9)
	t1 := txn.New(1)

	if !lm.LockShared(t1, r) {
		t.Fatalf("LockShared() = false")
	}
	if !lm.Unlock(t1, r) {
		t.Fatalf("Unlock() = false")
	}
	if t1.State() != txn.Shrinking {
		t.Fatalf("state = %v, want SHRINKING", t1.State())
	}
}

func TestStrict2PLUnlockMidTransactionAborts(t *testing.T) {
	lm := New(true)
	r := rid(11)
	t1 := txn.New(1)

	if !lm.LockShared(t1, r) {
		t.Fatalf("LockShared() = false")
	}
	if lm.Unlock(t1, r) {
		t.Fatalf("Unlock() under strict 2PL mid-transaction = true, want false")
	}
	if t1.State() != txn.Aborted {
		t.Fatalf("state = %v, want ABORTED", t1.State())
	}
}

func TestStrict2PLUnlockAfterCommitSucceeds(t *testing.T) {
	lm := New(true)
	r := rid(12)
	t1 := txn.New(1)

	if !lm.LockShared(t1, r) {
		t.Fatalf("LockShared() = false")
	}
	t1.SetState(txn.Committed)
	if !lm.Unlock(t1, r) {
		t.Fatalf("Unlock() after commit = false, want true")
	}
}

func TestAlreadyAbortedTxnCannotAcquire(t *testing.T) {
	lm := New(false)
	r := rid(13)
	t1 := txn.New(1)
	t1.SetState(txn.Aborted)

	if lm.LockShared(t1, r) {
		t.Fatalf("LockShared() on an already-aborted txn = true, want false")
	}
}
