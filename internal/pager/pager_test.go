package pager

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
)

func TestOpenClose(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "test.db")

	p, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if p.PageCount() != InitialPageCount {
		t.Errorf("expected page count %d, got %d", InitialPageCount, p.PageCount())
	}
	if p.RootPage() != 0 {
		t.Errorf("expected root page 0 on fresh file, got %d", p.RootPage())
	}

	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestOpenLockBusy(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "test.db")

	p1, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer p1.Close()

	_, err = Open(path, Options{})
	if !errors.Is(err, ErrLockBusy) {
		t.Fatalf("expected ErrLockBusy, got %v", err)
	}
}

func TestInitialSlackOnFreeList(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "test.db")

	p, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer p.Close()

	if p.meta.FreeListHead == 0 {
		t.Fatal("expected a non-empty free list on a fresh file")
	}

	seen := map[PageID]bool{}
	cur := p.meta.FreeListHead
	for cur != 0 {
		if seen[cur] {
			t.Fatalf("cycle detected in free list at page %d", cur)
		}
		seen[cur] = true
		page, err := p.GetPage(cur)
		if err != nil {
			t.Fatalf("GetPage(%d) failed: %v", cur, err)
		}
		cur = PageID(leUint32(page))
	}
	if len(seen) != int(InitialPageCount)-1 {
		t.Errorf("expected %d free pages, got %d", InitialPageCount-1, len(seen))
	}
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func TestAllocPageFromFreeList(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "test.db")

	p, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer p.Close()

	if err := p.BeginTx(); err != nil {
		t.Fatalf("BeginTx failed: %v", err)
	}

	id, err := p.AllocPage()
	if err != nil {
		t.Fatalf("AllocPage failed: %v", err)
	}
	if id == 0 {
		t.Fatal("AllocPage must never return the metadata page")
	}

	if err := p.CommitTx(); err != nil {
		t.Fatalf("CommitTx failed: %v", err)
	}

	if p.PageCount() != InitialPageCount {
		t.Errorf("allocating from the free list should not grow the file, got page count %d", p.PageCount())
	}
}

func TestAllocPageRequiresTransaction(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "test.db")

	p, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer p.Close()

	if _, err := p.AllocPage(); !errors.Is(err, ErrNoActiveTransaction) {
		t.Fatalf("expected ErrNoActiveTransaction, got %v", err)
	}
}

func TestAllocPageGrowsWhenFreeListExhausted(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "test.db")

	p, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer p.Close()

	if err := p.BeginTx(); err != nil {
		t.Fatalf("BeginTx failed: %v", err)
	}

	for i := 0; i < int(InitialPageCount)-1; i++ {
		if _, err := p.AllocPage(); err != nil {
			t.Fatalf("AllocPage failed at %d: %v", i, err)
		}
	}
	if p.meta.FreeListHead != 0 {
		t.Fatal("expected free list to be empty after draining all slack pages")
	}

	before := p.PageCount()
	id, err := p.AllocPage()
	if err != nil {
		t.Fatalf("AllocPage failed to trigger growth: %v", err)
	}
	if id != PageID(before) {
		t.Errorf("expected next page id to be %d, got %d", before, id)
	}
	if p.PageCount() != before*GrowthFactor {
		t.Errorf("expected page count to double to %d, got %d", before*GrowthFactor, p.PageCount())
	}
	if p.meta.FreeListHead == 0 {
		t.Error("expected growth to thread new slack pages onto the free list")
	}

	if err := p.CommitTx(); err != nil {
		t.Fatalf("CommitTx failed: %v", err)
	}
}

func TestGetPageForWriteAndRead(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "test.db")

	p, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer p.Close()

	if err := p.BeginTx(); err != nil {
		t.Fatalf("BeginTx failed: %v", err)
	}

	id, err := p.AllocPage()
	if err != nil {
		t.Fatalf("AllocPage failed: %v", err)
	}

	page, err := p.GetPageForWrite(id)
	if err != nil {
		t.Fatalf("GetPageForWrite failed: %v", err)
	}
	copy(page[0:5], []byte("hello"))

	read, err := p.GetPage(id)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	if !bytes.Equal(read[0:5], []byte("hello")) {
		t.Errorf("expected mutation to be visible within the transaction, got %q", read[0:5])
	}

	if err := p.CommitTx(); err != nil {
		t.Fatalf("CommitTx failed: %v", err)
	}
}

func TestCommitNoOpDoesNotAdvanceTxID(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "test.db")

	p, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer p.Close()

	before := p.TxID()
	if err := p.BeginTx(); err != nil {
		t.Fatalf("BeginTx failed: %v", err)
	}
	if err := p.CommitTx(); err != nil {
		t.Fatalf("CommitTx failed: %v", err)
	}
	if p.TxID() != before {
		t.Errorf("expected TxID unchanged after no-op commit, got %d -> %d", before, p.TxID())
	}
}

func TestCommitAdvancesTxIDByOne(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "test.db")

	p, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer p.Close()

	before := p.TxID()
	if err := p.BeginTx(); err != nil {
		t.Fatalf("BeginTx failed: %v", err)
	}
	id, err := p.AllocPage()
	if err != nil {
		t.Fatalf("AllocPage failed: %v", err)
	}
	if _, err := p.GetPageForWrite(id); err != nil {
		t.Fatalf("GetPageForWrite failed: %v", err)
	}
	if err := p.CommitTx(); err != nil {
		t.Fatalf("CommitTx failed: %v", err)
	}
	if p.TxID() != before+1 {
		t.Errorf("expected TxID to advance by exactly 1, got %d -> %d", before, p.TxID())
	}
}

func TestRollbackRestoresContent(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "test.db")

	p, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer p.Close()

	if err := p.BeginTx(); err != nil {
		t.Fatalf("BeginTx failed: %v", err)
	}
	id, err := p.AllocPage()
	if err != nil {
		t.Fatalf("AllocPage failed: %v", err)
	}
	page, err := p.GetPageForWrite(id)
	if err != nil {
		t.Fatalf("GetPageForWrite failed: %v", err)
	}
	copy(page[0:5], []byte("hello"))
	if err := p.CommitTx(); err != nil {
		t.Fatalf("CommitTx failed: %v", err)
	}

	if err := p.BeginTx(); err != nil {
		t.Fatalf("second BeginTx failed: %v", err)
	}
	page, err = p.GetPageForWrite(id)
	if err != nil {
		t.Fatalf("GetPageForWrite failed: %v", err)
	}
	copy(page[0:5], []byte("XXXXX"))

	if err := p.RollbackTx(); err != nil {
		t.Fatalf("RollbackTx failed: %v", err)
	}

	restored, err := p.GetPage(id)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	if !bytes.Equal(restored[0:5], []byte("hello")) {
		t.Errorf("expected rollback to restore original content, got %q", restored[0:5])
	}
}

func TestRollbackRestoresMetadata(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "test.db")

	p, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer p.Close()

	beforeRoot := p.RootPage()

	if err := p.BeginTx(); err != nil {
		t.Fatalf("BeginTx failed: %v", err)
	}
	id, err := p.AllocPage()
	if err != nil {
		t.Fatalf("AllocPage failed: %v", err)
	}
	if err := p.SetRootPage(id); err != nil {
		t.Fatalf("SetRootPage failed: %v", err)
	}
	if err := p.RollbackTx(); err != nil {
		t.Fatalf("RollbackTx failed: %v", err)
	}

	if p.RootPage() != beforeRoot {
		t.Errorf("expected root page restored to %d, got %d", beforeRoot, p.RootPage())
	}
}

func TestReopenDurability(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "test.db")

	p1, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if err := p1.BeginTx(); err != nil {
		t.Fatalf("BeginTx failed: %v", err)
	}
	id, err := p1.AllocPage()
	if err != nil {
		t.Fatalf("AllocPage failed: %v", err)
	}
	page, err := p1.GetPageForWrite(id)
	if err != nil {
		t.Fatalf("GetPageForWrite failed: %v", err)
	}
	copy(page[0:5], []byte("hello"))
	if err := p1.SetRootPage(id); err != nil {
		t.Fatalf("SetRootPage failed: %v", err)
	}
	if err := p1.CommitTx(); err != nil {
		t.Fatalf("CommitTx failed: %v", err)
	}
	if err := p1.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	p2, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer p2.Close()

	if p2.RootPage() != id {
		t.Errorf("expected root page %d after reopen, got %d", id, p2.RootPage())
	}
	page2, err := p2.GetPage(id)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	if !bytes.Equal(page2[0:5], []byte("hello")) {
		t.Errorf("expected data to persist, got %q", page2[0:5])
	}
}

func TestFreePageRejectsMetaPage(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "test.db")

	p, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer p.Close()

	if err := p.BeginTx(); err != nil {
		t.Fatalf("BeginTx failed: %v", err)
	}
	defer p.RollbackTx()

	if err := p.FreePage(MetaPageID); !errors.Is(err, ErrCannotFreeMetaPage) {
		t.Fatalf("expected ErrCannotFreeMetaPage, got %v", err)
	}
}

func TestGetPageOutOfBounds(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "test.db")

	p, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer p.Close()

	if _, err := p.GetPage(PageID(p.PageCount())); !errors.Is(err, ErrPageOutOfBounds) {
		t.Fatalf("expected ErrPageOutOfBounds, got %v", err)
	}
}

func TestBeginTxTwiceFails(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "test.db")

	p, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer p.Close()

	if err := p.BeginTx(); err != nil {
		t.Fatalf("BeginTx failed: %v", err)
	}
	defer p.RollbackTx()

	if err := p.BeginTx(); !errors.Is(err, ErrTransactionActive) {
		t.Fatalf("expected ErrTransactionActive, got %v", err)
	}
}
