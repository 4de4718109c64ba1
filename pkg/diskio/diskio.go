// Package diskio provides a file-backed implementation of the buffer
// pool's disk collaborator interface (storage.DiskManager): a single OS
// file addressed by ReadAt/WriteAt at fixed PageSize offsets, guarded by
// a mutex.
//
// Disk format, free-space management, and recovery are intentionally
// minimal here; this package exists only so the buffer pool has a real
// collaborator to exercise in the example command (the buffer pool's own
// tests use an in-memory stand-in).
package diskio

import (
	"fmt"
	"os"
	"sync"

	"storagecore/pkg/dberrors"
	"storagecore/pkg/storage"
)

// Manager is a single OS file used as fixed-size page storage. Page ids
// are assigned sequentially starting at 1 (0 is storage.InvalidPageID);
// AllocatePage reuses a deallocated id when one is available and otherwise
// extends the file by exactly one page.
type Manager struct {
	mu       sync.RWMutex
	file     *os.File
	nextPage storage.PageID
	freed    map[storage.PageID]struct{}
}

// Open opens (creating if necessary) path as page storage.
func Open(path string) (*Manager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, dberrors.Wrap(err, "DISKIO_OPEN_FAILED", "Open", "diskio.Manager")
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, dberrors.Wrap(err, "DISKIO_STAT_FAILED", "Open", "diskio.Manager")
	}

	numPages := storage.PageID(info.Size() / storage.PageSize)
	return &Manager{
		file:     f,
		nextPage: numPages + 1,
		freed:    make(map[storage.PageID]struct{}),
	}, nil
}

// ReadPage fills buf (which must be storage.PageSize bytes) with the
// contents of page id.
func (m *Manager) ReadPage(id storage.PageID, buf []byte) error {
	if id == storage.InvalidPageID {
		return dberrors.New(dberrors.CategoryUser, "DISKIO_INVALID_PAGE", "cannot read invalid page id")
	}
	if len(buf) != storage.PageSize {
		return dberrors.New(dberrors.CategoryUser, "DISKIO_BAD_BUFFER", fmt.Sprintf("buffer must be %d bytes, got %d", storage.PageSize, len(buf)))
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	offset := int64(id-1) * storage.PageSize
	if _, err := m.file.ReadAt(buf, offset); err != nil {
		return dberrors.Wrap(err, "DISKIO_READ_FAILED", "ReadPage", "diskio.Manager")
	}
	return nil
}

// WritePage persists buf (storage.PageSize bytes) as page id.
func (m *Manager) WritePage(id storage.PageID, buf []byte) error {
	if id == storage.InvalidPageID {
		return dberrors.New(dberrors.CategoryUser, "DISKIO_INVALID_PAGE", "cannot write invalid page id")
	}
	if len(buf) != storage.PageSize {
		return dberrors.New(dberrors.CategoryUser, "DISKIO_BAD_BUFFER", fmt.Sprintf("buffer must be %d bytes, got %d", storage.PageSize, len(buf)))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	offset := int64(id-1) * storage.PageSize
	if _, err := m.file.WriteAt(buf, offset); err != nil {
		return dberrors.Wrap(err, "DISKIO_WRITE_FAILED", "WritePage", "diskio.Manager")
	}
	return m.file.Sync()
}

// AllocatePage reserves and returns a new page id, preferring a
// previously deallocated id before extending the file.
func (m *Manager) AllocatePage() (storage.PageID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id := range m.freed {
		delete(m.freed, id)
		return id, nil
	}

	id := m.nextPage
	m.nextPage++

	zero := make([]byte, storage.PageSize)
	offset := int64(id-1) * storage.PageSize
	if _, err := m.file.WriteAt(zero, offset); err != nil {
		return storage.InvalidPageID, dberrors.Wrap(err, "DISKIO_ALLOC_FAILED", "AllocatePage", "diskio.Manager")
	}
	return id, nil
}

// DeallocatePage releases id for reuse by a future AllocatePage call.
func (m *Manager) DeallocatePage(id storage.PageID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.freed[id] = struct{}{}
	return nil
}

// Close releases the underlying file handle.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.file == nil {
		return nil
	}
	err := m.file.Close()
	m.file = nil
	return err
}
