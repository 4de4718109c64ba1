// Package txn models the transaction-local state the lock manager needs:
// an identity to compare for wound-wait, a 2PL phase, and the set of rids
// currently held under each lock mode.
package txn

import (
	"sync"

	"storagecore/pkg/storage"
)

// ID identifies a transaction. Lower values are older: the lock manager's
// wound-wait policy compares IDs directly, so callers must hand out IDs
// in monotonically increasing order (e.g. from a single counter).
type ID uint64

// State is a transaction's two-phase-locking phase.
type State int

const (
	// Growing transactions may acquire new locks.
	Growing State = iota
	// Shrinking transactions may only release locks. Under non-strict 2PL
	// the lock manager moves a Growing transaction here on its first Unlock.
	Shrinking
	// Committed transactions have finished successfully. Under strict 2PL
	// their locks are released one Unlock at a time after this state is set.
	Committed
	// Aborted transactions were wounded, broke strict 2PL, or were aborted
	// by the caller. They acquire no new locks; locks they still hold are
	// released with Unlock.
	Aborted
)

func (s State) String() string {
	switch s {
	case Growing:
		return "GROWING"
	case Shrinking:
		return "SHRINKING"
	case Committed:
		return "COMMITTED"
	case Aborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// Transaction is the lock manager's view of one transaction: its id, its
// current 2PL state, and the rids it currently holds under each mode.
type Transaction struct {
	mu    sync.Mutex
	id    ID
	state State

	sharedLocks    map[storage.RID]struct{}
	exclusiveLocks map[storage.RID]struct{}
}

// New creates a Growing transaction with the given id.
func New(id ID) *Transaction {
	return &Transaction{
		id:             id,
		state:          Growing,
		sharedLocks:    make(map[storage.RID]struct{}),
		exclusiveLocks: make(map[storage.RID]struct{}),
	}
}

// ID returns the transaction's identity.
func (t *Transaction) ID() ID {
	return t.id
}

// State returns the transaction's current 2PL phase.
func (t *Transaction) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// SetState transitions the transaction to state s.
func (t *Transaction) SetState(s State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = s
}

// HoldsShared reports whether the transaction holds a shared lock on rid.
func (t *Transaction) HoldsShared(rid storage.RID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.sharedLocks[rid]
	return ok
}

// HoldsExclusive reports whether the transaction holds an exclusive lock on rid.
func (t *Transaction) HoldsExclusive(rid storage.RID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.exclusiveLocks[rid]
	return ok
}

// AddShared records rid as held under a shared lock.
func (t *Transaction) AddShared(rid storage.RID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sharedLocks[rid] = struct{}{}
}

// AddExclusive records rid as held under an exclusive lock.
func (t *Transaction) AddExclusive(rid storage.RID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.exclusiveLocks[rid] = struct{}{}
}

// RemoveShared forgets rid as a shared hold (used on unlock and on upgrade).
func (t *Transaction) RemoveShared(rid storage.RID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sharedLocks, rid)
}

// RemoveExclusive forgets rid as an exclusive hold.
func (t *Transaction) RemoveExclusive(rid storage.RID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.exclusiveLocks, rid)
}

// LockedRIDs returns every rid the transaction currently holds, under
// either mode, listing a rid held under both modes once.
func (t *Transaction) LockedRIDs() []storage.RID {
	t.mu.Lock()
	defer t.mu.Unlock()

	seen := make(map[storage.RID]struct{}, len(t.sharedLocks)+len(t.exclusiveLocks))
	for rid := range t.sharedLocks {
		seen[rid] = struct{}{}
	}
	for rid := range t.exclusiveLocks {
		seen[rid] = struct{}{}
	}

	rids := make([]storage.RID, 0, len(seen))
	for rid := range seen {
		rids = append(rids, rid)
	}
	return rids
}
