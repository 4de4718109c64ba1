package diskio

import (
	"path/filepath"
	"testing"

	"storagecore/pkg/storage"
)

func TestAllocateWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pages.db")
	m, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer m.Close()

	id, err := m.AllocatePage()
	if err != nil {
		t.Fatalf("AllocatePage() error: %v", err)
	}

	want := make([]byte, storage.PageSize)
	copy(want, []byte("hello, page"))
	if err := m.WritePage(id, want); err != nil {
		t.Fatalf("WritePage() error: %v", err)
	}

	got := make([]byte, storage.PageSize)
	if err := m.ReadPage(id, got); err != nil {
		t.Fatalf("ReadPage() error: %v", err)
	}
	if string(got[:11]) != "hello, page" {
		t.Fatalf("ReadPage() = %q, want prefix %q", got[:11], "hello, page")
	}
}

func TestAllocatePageIDsAreDistinct(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pages.db")
	m, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer m.Close()

	seen := make(map[storage.PageID]bool)
	for i := 0; i < 5; i++ {
		id, err := m.AllocatePage()
		if err != nil {
			t.Fatalf("AllocatePage() error: %v", err)
		}
		if seen[id] {
			t.Fatalf("AllocatePage() returned duplicate id %d", id)
		}
		seen[id] = true
	}
}

func TestDeallocateThenAllocateReusesID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pages.db")
	m, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer m.Close()

	id, _ := m.AllocatePage()
	if err := m.DeallocatePage(id); err != nil {
		t.Fatalf("DeallocatePage() error: %v", err)
	}

	reused, err := m.AllocatePage()
	if err != nil {
		t.Fatalf("AllocatePage() error: %v", err)
	}
	if reused != id {
		t.Fatalf("AllocatePage() after deallocate = %d, want reused id %d", reused, id)
	}
}

func TestReadWriteInvalidPageID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pages.db")
	m, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer m.Close()

	buf := make([]byte, storage.PageSize)
	if err := m.ReadPage(storage.InvalidPageID, buf); err == nil {
		t.Fatalf("ReadPage(InvalidPageID) = nil error, want error")
	}
	if err := m.WritePage(storage.InvalidPageID, buf); err == nil {
		t.Fatalf("WritePage(InvalidPageID) = nil error, want error")
	}
}

func TestReopenPreservesPageCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pages.db")
	m, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := m.AllocatePage(); err != nil {
			t.Fatalf("AllocatePage() error: %v", err)
		}
	}
	m.Close()

	m2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen Open() error: %v", err)
	}
	defer m2.Close()

	id, err := m2.AllocatePage()
	if err != nil {
		t.Fatalf("AllocatePage() after reopen error: %v", err)
	}
	if id != 4 {
		t.Fatalf("AllocatePage() after reopen = %d, want 4 (continuing after 3 existing pages)", id)
	}
}
