// Package lockmgr implements record-level shared/exclusive locking with a
// wound-wait deadlock-prevention policy and two-phase-locking state
// discipline (component D in the design). A single mutex and a single
// condition variable serialize every queue mutation; every waiter is
// woken with Broadcast, never Signal, so a change that makes one request
// grantable can never leave a different eligible waiter asleep.
package lockmgr

import (
	"sync"

	"go.uber.org/zap"

	"storagecore/pkg/logging"
	"storagecore/pkg/metrics"
	"storagecore/pkg/storage"
	"storagecore/pkg/txn"
)

// Mode is a lock request's mode.
type Mode int

const (
	Shared Mode = iota
	Exclusive
)

func (m Mode) String() string {
	if m == Exclusive {
		return "EXCLUSIVE"
	}
	return "SHARED"
}

type request struct {
	txnID   txn.ID
	mode    Mode
	granted bool
}

// lockTableEntry is the per-RID FIFO queue described in the design: an
// ordered list of requests plus a running count of granted exclusive
// locks (at most one) and the smallest txn id seen, used by wound-wait.
type lockTableEntry struct {
	queue        []*request
	exclusiveCnt int
	oldest       txn.ID
	hasOldest    bool
}

func (e *lockTableEntry) recomputeOldest() {
	e.hasOldest = false
	for _, r := range e.queue {
		if !e.hasOldest || r.txnID < e.oldest {
			e.oldest = r.txnID
			e.hasOldest = true
		}
	}
}

func (e *lockTableEntry) indexOf(r *request) int {
	for i, q := range e.queue {
		if q == r {
			return i
		}
	}
	return -1
}

// LockManager grants and releases record-level locks.
type LockManager struct {
	mu        sync.Mutex
	cond      *sync.Cond
	strict2PL bool
	table     map[storage.RID]*lockTableEntry

	logger  *zap.Logger
	metrics *metrics.Lock
}

// Option configures a LockManager at construction time.
type Option func(*LockManager)

// WithLogger attaches a logger; the default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(lm *LockManager) { lm.logger = l }
}

// WithMetrics attaches a metrics sink; the default records nothing.
func WithMetrics(m *metrics.Lock) Option {
	return func(lm *LockManager) { lm.metrics = m }
}

// New creates a LockManager. strict2PL, fixed at construction, selects
// between releasing locks only at commit/abort (true) and allowing an
// early SHRINKING phase (false).
func New(strict2PL bool, opts ...Option) *LockManager {
	lm := &LockManager{
		strict2PL: strict2PL,
		table:     make(map[storage.RID]*lockTableEntry),
		logger:    logging.Nop(),
	}
	lm.cond = sync.NewCond(&lm.mu)
	for _, opt := range opts {
		opt(lm)
	}
	return lm
}

func (lm *LockManager) entry(rid storage.RID) *lockTableEntry {
	e, ok := lm.table[rid]
	if !ok {
		e = &lockTableEntry{}
		lm.table[rid] = e
	}
	return e
}

func (lm *LockManager) recordWaiter(delta int) {
	if lm.metrics != nil {
		lm.metrics.WaitersGauge.Add(float64(delta))
	}
}

// wound aborts t and records the event. Caller must hold lm.mu.
func (lm *LockManager) wound(t *txn.Transaction, rid storage.RID) {
	t.SetState(txn.Aborted)
	if lm.metrics != nil {
		lm.metrics.WoundAborts.Inc()
	}
	lm.logger.Debug("wound-wait abort", zap.Uint64("txn_id", uint64(t.ID())), zap.Uint64("page_id", uint64(rid.PageID)))
}

// LockShared acquires a shared lock on rid for t, blocking until granted,
// returning false if t is aborted by wound-wait (or was already aborted).
func (lm *LockManager) LockShared(t *txn.Transaction, rid storage.RID) bool {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if t.State() == txn.Aborted {
		return false
	}
	if t.State() != txn.Growing {
		panic("lockmgr: LockShared called on a transaction not in GROWING state")
	}
	if t.HoldsShared(rid) {
		panic("lockmgr: LockShared called for an already-held shared lock")
	}

	e := lm.entry(rid)
	req := &request{txnID: t.ID(), mode: Shared}
	e.queue = append(e.queue, req)

	// Wound-wait is checked once at admission: a younger txn arriving
	// behind any granted exclusive lock wounds itself immediately. The
	// predicate wait below is what actually defers the grant.
	if e.exclusiveCnt > 0 && e.hasOldest && t.ID() > e.oldest {
		idx := e.indexOf(req)
		e.queue = append(e.queue[:idx], e.queue[idx+1:]...)
		lm.wound(t, rid)
		return false
	}
	if !e.hasOldest || t.ID() < e.oldest {
		e.oldest = t.ID()
		e.hasOldest = true
	}

	lm.recordWaiter(1)
	for {
		if lm.sharedGrantable(e, req) {
			break
		}
		lm.cond.Wait()
	}
	lm.recordWaiter(-1)

	req.granted = true
	t.AddShared(rid)
	if lm.metrics != nil {
		lm.metrics.Grants.Inc()
	}
	lm.cond.Broadcast()
	return true
}

// sharedGrantable reports whether every request before req in e's queue
// is a granted SHARED lock.
func (lm *LockManager) sharedGrantable(e *lockTableEntry, req *request) bool {
	for _, r := range e.queue {
		if r == req {
			return true
		}
		if !r.granted || r.mode == Exclusive {
			return false
		}
	}
	return true
}

// LockExclusive acquires an exclusive lock on rid for t, blocking until
// granted, returning false if t is wounded.
func (lm *LockManager) LockExclusive(t *txn.Transaction, rid storage.RID) bool {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if t.State() == txn.Aborted {
		return false
	}
	if t.State() != txn.Growing {
		panic("lockmgr: LockExclusive called on a transaction not in GROWING state")
	}
	if t.HoldsExclusive(rid) {
		panic("lockmgr: LockExclusive called for an already-held exclusive lock")
	}

	e := lm.entry(rid)
	req := &request{txnID: t.ID(), mode: Exclusive}
	e.queue = append(e.queue, req)

	if e.hasOldest && t.ID() > e.oldest {
		idx := e.indexOf(req)
		e.queue = append(e.queue[:idx], e.queue[idx+1:]...)
		lm.wound(t, rid)
		return false
	}
	if !e.hasOldest || t.ID() < e.oldest {
		e.oldest = t.ID()
		e.hasOldest = true
	}

	lm.recordWaiter(1)
	for {
		if lm.exclusiveGrantable(e, req) {
			break
		}
		lm.cond.Wait()
	}
	lm.recordWaiter(-1)

	req.granted = true
	e.exclusiveCnt++
	t.AddExclusive(rid)
	if lm.metrics != nil {
		lm.metrics.Grants.Inc()
	}
	return true
}

// exclusiveGrantable reports whether no request before req in e's queue
// is currently granted.
func (lm *LockManager) exclusiveGrantable(e *lockTableEntry, req *request) bool {
	for _, r := range e.queue {
		if r == req {
			return true
		}
		if r.granted {
			return false
		}
	}
	return true
}

// LockUpgrade promotes t's granted shared lock on rid to exclusive,
// blocking until t's request is the sole granted request in the queue.
func (lm *LockManager) LockUpgrade(t *txn.Transaction, rid storage.RID) bool {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if t.State() != txn.Growing || !t.HoldsShared(rid) {
		panic("lockmgr: LockUpgrade requires a currently-held shared lock and GROWING state")
	}

	e := lm.entry(rid)
	var req *request
	for _, r := range e.queue {
		if r.txnID == t.ID() && r.mode == Shared && r.granted {
			req = r
			break
		}
	}
	if req == nil {
		panic("lockmgr: LockUpgrade found no granted shared request to upgrade")
	}

	for {
		if lm.soleGrantedAtHead(e, req) {
			break
		}
		lm.cond.Wait()
	}

	req.mode = Exclusive
	e.exclusiveCnt++
	t.RemoveShared(rid)
	t.AddExclusive(rid)
	if lm.metrics != nil {
		lm.metrics.Upgrades.Inc()
	}
	return true
}

// soleGrantedAtHead reports whether req sits at the head of e's queue and
// is the only granted request present anywhere in the queue.
func (lm *LockManager) soleGrantedAtHead(e *lockTableEntry, req *request) bool {
	if len(e.queue) == 0 || e.queue[0] != req {
		return false
	}
	for _, r := range e.queue {
		if r != req && r.granted {
			return false
		}
	}
	return true
}

// Unlock releases t's lock on rid. Under strict 2PL, calling this outside
// COMMITTED/ABORTED aborts t and returns false; otherwise a GROWING txn
// moves to SHRINKING.
func (lm *LockManager) Unlock(t *txn.Transaction, rid storage.RID) bool {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if !t.HoldsShared(rid) && !t.HoldsExclusive(rid) {
		panic("lockmgr: Unlock called for a lock the transaction does not hold")
	}

	if lm.strict2PL {
		st := t.State()
		if st != txn.Committed && st != txn.Aborted {
			t.SetState(txn.Aborted)
			lm.logger.Debug("strict 2PL violation: unlock mid-transaction", zap.Uint64("txn_id", uint64(t.ID())))
			return false
		}
	} else if t.State() == txn.Growing {
		t.SetState(txn.Shrinking)
	}

	e, ok := lm.table[rid]
	if !ok {
		panic("lockmgr: Unlock found no lock table entry for rid")
	}

	idx := -1
	for i, r := range e.queue {
		if r.txnID == t.ID() {
			idx = i
			break
		}
	}
	if idx == -1 {
		panic("lockmgr: Unlock found no queue entry for txn on rid")
	}

	released := e.queue[idx]
	e.queue = append(e.queue[:idx], e.queue[idx+1:]...)
	if released.mode == Exclusive {
		e.exclusiveCnt--
		t.RemoveExclusive(rid)
	} else {
		t.RemoveShared(rid)
	}
	e.recomputeOldest()

	lm.cond.Broadcast()
	return true
}
