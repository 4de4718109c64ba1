// Package bufferpool implements the buffer pool manager: it owns a fixed
// array of frames, the page table (backed by the extendible hash table
// in storage/hashtable), the LRU victim set, and a free list, and
// mediates every page access against a disk collaborator.
//
// All entry points serialize on a single latch held for the entire
// operation, including any blocking disk I/O the operation performs —
// simpler than releasing and reacquiring around I/O, at the cost of
// one-at-a-time disk access under the latch.
package bufferpool

import (
	"sync"

	"go.uber.org/zap"

	"storagecore/pkg/logging"
	"storagecore/pkg/metrics"
	"storagecore/pkg/storage"
	"storagecore/pkg/storage/hashtable"
	"storagecore/pkg/storage/victim"
)

// Manager is the buffer pool: a fixed array of frames shared by a page
// table, a free list, and a victim set, mediating all access against a
// disk collaborator.
type Manager struct {
	mu sync.Mutex

	frames    []*storage.Frame
	freeList  []int // indices into frames, front = next to use
	victims   *victim.Set
	pageTable *hashtable.Table[storage.PageID, int] // page id -> frame index

	disk storage.DiskManager
	log  storage.LogManager

	logger  *zap.Logger
	metrics *metrics.BufferPool
}

func hashPageID(id storage.PageID) uint64 {
	return hashtable.MixUint64(uint64(id))
}

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithLogger attaches a logger; the default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithMetrics attaches a metrics sink; the default records nothing.
func WithMetrics(metricsSink *metrics.BufferPool) Option {
	return func(m *Manager) { m.metrics = metricsSink }
}

// WithLogCollaborator attaches the optional write-ahead-log hook called
// before a dirty page is flushed. If absent, logging is disabled.
func WithLogCollaborator(l storage.LogManager) Option {
	return func(m *Manager) { m.log = l }
}

// New creates a pool of poolSize frames backed by disk.
func New(poolSize int, disk storage.DiskManager, opts ...Option) *Manager {
	frames := make([]*storage.Frame, poolSize)
	freeList := make([]int, poolSize)
	for i := range frames {
		frames[i] = &storage.Frame{}
		freeList[i] = i
	}

	m := &Manager{
		frames:    frames,
		freeList:  freeList,
		victims:   victim.New(),
		pageTable: hashtable.New[storage.PageID, int](4, hashPageID),
		disk:      disk,
		logger:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// popFree returns a frame index from the free list, or -1 if empty.
func (m *Manager) popFree() int {
	if len(m.freeList) == 0 {
		return -1
	}
	idx := m.freeList[0]
	m.freeList = m.freeList[1:]
	return idx
}

// flushLocked writes frame idx's contents to disk if dirty. Caller holds m.mu.
func (m *Manager) flushLocked(idx int) error {
	f := m.frames[idx]
	if !f.IsDirty() {
		return nil
	}
	if m.log != nil {
		if err := m.log.OnBeforeFlush(f.PageID()); err != nil {
			return err
		}
	}
	if err := m.disk.WritePage(f.PageID(), f.Data()); err != nil {
		return err
	}
	if m.metrics != nil {
		m.metrics.Flushes.Inc()
	}
	return nil
}

// evictLocked picks a replacement frame (free list first, else the
// victim set), writing it back if dirty, and returns its index, or -1 if
// none is available. Caller holds m.mu.
func (m *Manager) evictLocked() int {
	if idx := m.popFree(); idx != -1 {
		return idx
	}

	idx, ok := m.victims.Victim()
	if !ok {
		if m.metrics != nil {
			m.metrics.PoolExhaust.Inc()
		}
		return -1
	}

	f := m.frames[idx]
	if f.PageID() != storage.InvalidPageID {
		_ = m.flushLocked(idx) // best-effort: no error channel back to FetchPage's null contract
		m.pageTable.Remove(f.PageID())
	}
	if m.metrics != nil {
		m.metrics.Evictions.Inc()
	}
	return idx
}

// FetchPage pins and returns the frame holding pageID, reading it from
// disk if it is not already resident. Returns nil if pageID is invalid
// or the pool has no free or evictable frame.
func (m *Manager) FetchPage(pageID storage.PageID) *storage.Frame {
	if pageID == storage.InvalidPageID {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if idx, ok := m.pageTable.Find(pageID); ok {
		f := m.frames[idx]
		f.Pin()
		m.victims.Erase(idx)
		m.observePinned()
		if m.metrics != nil {
			m.metrics.Hits.Inc()
		}
		return f
	}

	idx := m.evictLocked()
	if idx == -1 {
		return nil
	}

	f := m.frames[idx]
	buf := make([]byte, storage.PageSize)
	if err := m.disk.ReadPage(pageID, buf); err != nil {
		f.Reset()
		m.freeList = append(m.freeList, idx)
		m.logger.Error("fetch page: read failed", zap.Uint64("page_id", uint64(pageID)), zap.Error(err))
		return nil
	}

	f.Bind(pageID, 1, false)
	copy(f.Data(), buf)
	m.pageTable.Insert(pageID, idx)
	m.observePinned()
	if m.metrics != nil {
		m.metrics.Misses.Inc()
	}
	return f
}

// UnpinPage decrements pageID's pin count and marks it dirty if isDirty
// is true (the dirty flag is only ever OR'd in, never cleared here).
// Returns false if pageID is not resident or is already unpinned.
func (m *Manager) UnpinPage(pageID storage.PageID, isDirty bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx, ok := m.pageTable.Find(pageID)
	if !ok {
		return false
	}

	f := m.frames[idx]
	if !f.Unpin() {
		return false
	}
	if isDirty {
		f.MarkDirty(true)
	}
	m.observePinned()

	if f.PinCount() == 0 {
		m.victims.Insert(idx)
	}
	return true
}

// FlushPage writes pageID's frame to disk unconditionally, regardless of
// its dirty state. Returns false if pageID is invalid or not resident.
func (m *Manager) FlushPage(pageID storage.PageID) bool {
	if pageID == storage.InvalidPageID {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	idx, ok := m.pageTable.Find(pageID)
	if !ok {
		return false
	}

	f := m.frames[idx]
	if m.log != nil {
		if err := m.log.OnBeforeFlush(pageID); err != nil {
			m.logger.Error("flush page: log hook failed", zap.Uint64("page_id", uint64(pageID)), zap.Error(err))
			return false
		}
	}
	if err := m.disk.WritePage(pageID, f.Data()); err != nil {
		m.logger.Error("flush page: write failed", zap.Uint64("page_id", uint64(pageID)), zap.Error(err))
		return false
	}
	if m.metrics != nil {
		m.metrics.Flushes.Inc()
	}
	return true
}

// DeletePage removes pageID from the pool, returning it to the free
// list. Returns false if pageID is resident and still pinned.
func (m *Manager) DeletePage(pageID storage.PageID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx, resident := m.pageTable.Find(pageID)
	if resident {
		f := m.frames[idx]
		if f.PinCount() > 0 {
			return false
		}
		m.pageTable.Remove(pageID)
		m.victims.Erase(idx)
		f.Reset()
		m.freeList = append(m.freeList, idx)
	}

	_ = m.disk.DeallocatePage(pageID)
	return true
}

// NewPage allocates a fresh page id from the disk collaborator, pins a
// frame for it, and returns both. Returns (InvalidPageID, nil) if no
// frame is available.
func (m *Manager) NewPage() (storage.PageID, *storage.Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.evictLocked()
	if idx == -1 {
		return storage.InvalidPageID, nil
	}

	pageID, err := m.disk.AllocatePage()
	if err != nil {
		m.frames[idx].Reset()
		m.freeList = append(m.freeList, idx)
		m.logger.Error("new page: allocate failed", zap.Error(err))
		return storage.InvalidPageID, nil
	}

	f := m.frames[idx]
	f.Bind(pageID, 1, false)
	data := f.Data()
	for i := range data {
		data[i] = 0
	}
	m.pageTable.Insert(pageID, idx)
	m.observePinned()
	return pageID, f
}

func (m *Manager) observePinned() {
	if m.metrics == nil {
		return
	}
	pinned := 0
	for _, f := range m.frames {
		if f.PinCount() > 0 {
			pinned++
		}
	}
	m.metrics.PinnedGauge.Set(float64(pinned))
}
