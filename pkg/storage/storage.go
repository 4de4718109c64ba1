// Package storage defines the identifiers and small value types shared by
// the buffer pool, the extendible hash table, and the lock manager: page
// identifiers, the fixed-size in-memory frame, and record identifiers.
//
// Data is organised into fixed-size 4 KB pages read and written as atomic
// units by an external disk collaborator (see [DiskManager]); this package
// owns only the in-memory representation and the collaborator contracts,
// never the bytes on disk.
package storage

import "sync"

// PageSize is the fixed size, in bytes, of every page's in-memory buffer.
const PageSize = 4096

// InvalidPageID is the sentinel used for "no page" / "unallocated".
const InvalidPageID PageID = 0

// PageID identifies a page on disk. Zero is reserved as [InvalidPageID].
type PageID uint64

// RID identifies a single record: the page it lives on plus a slot number
// within that page. The core treats RID as an opaque map key; slot layout
// is owned by callers (e.g. a heap file), not by this package.
type RID struct {
	PageID PageID
	Slot   uint32
}

// Frame is a fixed-size in-memory slot that may hold one page's contents
// at a time. The buffer pool owns an array of frames created once at
// construction; FetchPage/NewPage mutate a frame's PageID/Data/Dirty/Pin
// fields in place rather than allocating a new Frame.
//
// Latch is exposed for callers (e.g. a B+ tree's page latch) that need to
// serialize reads/writes to Data; the core itself never acquires it.
type Frame struct {
	mu sync.Mutex

	id       PageID
	data     [PageSize]byte
	pinCount int
	dirty    bool

	Latch sync.RWMutex
}

// PageID returns the page currently resident in this frame, or
// [InvalidPageID] if the frame holds no page.
func (f *Frame) PageID() PageID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.id
}

// Data returns the frame's page buffer. Callers must hold Latch (or rely
// on the pin-count contract) before reading or writing it concurrently.
func (f *Frame) Data() []byte {
	return f.data[:]
}

// PinCount returns the number of outstanding pins on this frame.
func (f *Frame) PinCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pinCount
}

// IsDirty reports whether the frame's contents have been modified since
// the last write-back.
func (f *Frame) IsDirty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dirty
}

// Pin increments the frame's pin count, marking it ineligible for eviction.
func (f *Frame) Pin() {
	f.mu.Lock()
	f.pinCount++
	f.mu.Unlock()
}

// Unpin decrements the pin count and reports whether it was positive
// before the decrement (a false return indicates caller misuse).
func (f *Frame) Unpin() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pinCount <= 0 {
		return false
	}
	f.pinCount--
	return true
}

// MarkDirty ORs dirty into the frame's dirty bit: once set, it stays set
// until the frame is next bound or reset, regardless of later false values.
func (f *Frame) MarkDirty(dirty bool) {
	f.mu.Lock()
	f.dirty = f.dirty || dirty
	f.mu.Unlock()
}

// Reset clears the frame back to an unbound, clean, unpinned state and
// zeroes its buffer.
func (f *Frame) Reset() {
	f.mu.Lock()
	f.id = InvalidPageID
	f.pinCount = 0
	f.dirty = false
	for i := range f.data {
		f.data[i] = 0
	}
	f.mu.Unlock()
}

// Bind rebinds the frame to a new page id with the given pin count and
// dirty state, leaving the buffer contents to the caller to fill in.
func (f *Frame) Bind(id PageID, pinCount int, dirty bool) {
	f.mu.Lock()
	f.id = id
	f.pinCount = pinCount
	f.dirty = dirty
	f.mu.Unlock()
}

// DiskManager is the narrow interface the buffer pool consumes from the
// disk collaborator. Implementations live outside this module's core
// (see package diskio for a file-backed one); disk formats, free-space
// management, and recovery are out of scope here.
type DiskManager interface {
	ReadPage(id PageID, buf []byte) error
	WritePage(id PageID, buf []byte) error
	AllocatePage() (PageID, error)
	DeallocatePage(id PageID) error
}

// LogManager is the optional log collaborator hook. When present, the
// buffer pool calls OnBeforeFlush before writing a dirty page back,
// giving a WAL implementation a chance to force its log up to that page's
// LSN first. WAL durability itself is out of scope for this module.
type LogManager interface {
	OnBeforeFlush(id PageID) error
}
