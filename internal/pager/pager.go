// Package pager manages page-based I/O over a memory-mapped file: a free
// list, a metadata page, and copy-on-write transactions.
//
// Durability is a single Msync(MS_SYNC) at commit time, after the
// transaction id is advanced. There is no write-ahead log and no
// double-buffering: a crash between dirty-page writes and that Msync call
// can leave the file in a state that is neither the pre- nor
// post-transaction image. Recovering from that is out of scope here.
package pager

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/oda/zdb/internal/logging"
	"github.com/oda/zdb/internal/metrics"
	"github.com/oda/zdb/internal/mmap"
)

// Options configures a Pager's ambient dependencies. Both fields are
// optional: a nil Logger discards everything and a nil Metrics registers
// against a private registry, so callers that don't care about
// observability can pass a zero Options.
type Options struct {
	Logger  *logging.Logger
	Metrics *metrics.Metrics
}

// Pager manages page-based I/O over a single memory-mapped file, with
// copy-on-write transaction isolation and an exclusive advisory file lock
// held for the lifetime of the mapping.
type Pager struct {
	mmap *mmap.MMap
	meta MetaPage
	mu   sync.Mutex

	logger  *logging.Logger
	metrics *metrics.Metrics

	txActive  bool
	dirty     map[PageID]struct{}
	snapshots map[PageID][]byte
}

// Open opens or creates a database file at path. A fresh file is extended
// to InitialPageCount pages and its slack pages are threaded onto the free
// list immediately, so page_count equals both the file's physical page
// capacity and the logical union of free-list and referenced pages. The one
// exception is a rolled-back transaction that grew the file: rollback
// restores page_count but does not shrink the file, which then holds more
// pages than page_count.
func Open(path string, opts Options) (*Pager, error) {
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New(prometheus.NewRegistry())
	}

	info, statErr := os.Stat(path)
	isNew := statErr != nil || info.Size() == 0

	initialSize := int64(InitialPageCount) * PageSize
	if !isNew {
		initialSize = info.Size()
	}

	m, err := mmap.Open(path, initialSize)
	if err != nil {
		if errors.Is(err, mmap.ErrLockBusy) {
			return nil, ErrLockBusy
		}
		return nil, fmt.Errorf("pager: failed to open mmap: %w", err)
	}

	p := &Pager{
		mmap:      m,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		dirty:     make(map[PageID]struct{}),
		snapshots: make(map[PageID][]byte),
	}

	if err := p.loadOrInit(isNew); err != nil {
		m.Close()
		return nil, err
	}

	p.logger.LogOpen(PageSize, p.meta.PageCount)
	p.metrics.SetPageCount(p.meta.PageCount)
	return p, nil
}

func (p *Pager) loadOrInit(isNew bool) error {
	if isNew {
		p.meta = MetaPage{
			Magic:        Magic,
			Version:      Version,
			PageSize:     PageSize,
			PageCount:    InitialPageCount,
			FreeListHead: 0,
			RootPage:     0,
			TxID:         0,
		}
		// Thread every slack page (everything but page 0) onto the free
		// list: no page may ever sit outside page_count, the free list,
		// or a referenced structure.
		for i := int(InitialPageCount) - 1; i >= 1; i-- {
			pid := PageID(i)
			data := p.mmap.Slice(int64(pid)*PageSize, PageSize)
			for j := range data {
				data[j] = 0
			}
			binary.LittleEndian.PutUint32(data[0:4], uint32(p.meta.FreeListHead))
			p.meta.FreeListHead = pid
		}
		p.writeMeta()
		if err := p.mmap.Sync(); err != nil {
			return fmt.Errorf("pager: failed to sync new database: %w", err)
		}
		return nil
	}

	data := p.mmap.Slice(0, PageSize)
	if data == nil {
		return fmt.Errorf("pager: failed to read metadata page")
	}
	p.meta.Deserialize(data)

	if p.meta.Magic != Magic || p.meta.Version != Version {
		return ErrInvalidDatabase
	}
	if p.meta.PageSize != 0 && p.meta.PageSize != PageSize {
		return ErrInvalidDatabase
	}
	return nil
}

func (p *Pager) writeMeta() {
	data := p.mmap.Slice(0, PageSize)
	p.meta.Serialize(data)
}

// markMetaDirty snapshots the metadata page on first mutation within the
// current transaction, exactly like GetPageForWrite does for node pages.
// Every metadata mutation (free list, root page, page count) goes through
// this so RollbackTx restores it along with everything else.
func (p *Pager) markMetaDirty() error {
	if !p.txActive {
		return ErrNoActiveTransaction
	}
	if _, ok := p.dirty[MetaPageID]; !ok {
		data := p.mmap.Slice(0, PageSize)
		snap := make([]byte, PageSize)
		copy(snap, data)
		p.snapshots[MetaPageID] = snap
		p.dirty[MetaPageID] = struct{}{}
	}
	return nil
}

// Close unmaps the file, releases the file lock, and closes it.
func (p *Pager) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mmap.Close()
}

// BeginTx starts a transaction. Fails if one is already active.
func (p *Pager) BeginTx() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.txActive {
		return ErrTransactionActive
	}
	p.txActive = true
	p.dirty = make(map[PageID]struct{})
	p.snapshots = make(map[PageID][]byte)
	return nil
}

// CommitTx commits the active transaction. A commit touching no dirty
// pages is a no-op and does not advance TxID.
func (p *Pager) CommitTx() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.txActive {
		return ErrNoActiveTransaction
	}

	start := time.Now()
	n := len(p.dirty)
	if n > 0 {
		p.meta.TxID++
		p.writeMeta()
		if err := p.mmap.Sync(); err != nil {
			return fmt.Errorf("pager: failed to sync on commit: %w", err)
		}
	}

	p.dirty = make(map[PageID]struct{})
	p.snapshots = make(map[PageID][]byte)
	p.txActive = false

	p.logger.LogCommit(p.meta.TxID, n, time.Since(start))
	p.metrics.RecordCommit(time.Since(start))
	return nil
}

// RollbackTx restores every page touched in the active transaction to its
// pre-transaction contents. No-op if no transaction is active.
func (p *Pager) RollbackTx() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.txActive {
		return nil
	}

	n := len(p.dirty)
	for id, snap := range p.snapshots {
		data := p.mmap.Slice(int64(id)*PageSize, PageSize)
		copy(data, snap)
	}
	// The in-memory metadata cache may itself have been rolled back above;
	// reload it from the (now restored) mapping.
	p.meta.Deserialize(p.mmap.Slice(0, PageSize))

	p.dirty = make(map[PageID]struct{})
	p.snapshots = make(map[PageID][]byte)
	p.txActive = false

	p.logger.LogRollback(p.meta.TxID, n)
	p.metrics.RecordRollback()
	return nil
}

// GetPage returns an immutable view of page id. Readable without an
// active transaction.
func (p *Pager) GetPage(id PageID) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if uint32(id) >= p.meta.PageCount {
		return nil, ErrPageOutOfBounds
	}
	return p.mmap.Slice(int64(id)*PageSize, PageSize), nil
}

// GetPageForWrite returns a mutable view of page id, snapshotting its
// current contents the first time it is touched in this transaction. The
// returned slice aliases the mapping directly, so subsequent writes are
// visible to GetPage/GetPageForWrite calls within the same transaction.
func (p *Pager) GetPageForWrite(id PageID) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.txActive {
		return nil, ErrNoActiveTransaction
	}
	if uint32(id) >= p.meta.PageCount {
		return nil, ErrPageOutOfBounds
	}

	if _, ok := p.dirty[id]; !ok {
		data := p.mmap.Slice(int64(id)*PageSize, PageSize)
		snap := make([]byte, PageSize)
		copy(snap, data)
		p.snapshots[id] = snap
		p.dirty[id] = struct{}{}
	}
	return p.mmap.Slice(int64(id)*PageSize, PageSize), nil
}

// AllocPage hands out a page, from the free list if non-empty, otherwise
// by doubling the file. Because init and every growth event thread all
// slack pages onto the free list, the free list being empty is exactly
// the condition under which growth is required.
func (p *Pager) AllocPage() (PageID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.txActive {
		return 0, ErrNoActiveTransaction
	}

	if p.meta.FreeListHead != 0 {
		id := p.meta.FreeListHead
		data := p.mmap.Slice(int64(id)*PageSize, PageSize)
		next := PageID(binary.LittleEndian.Uint32(data[0:4]))

		if err := p.markMetaDirty(); err != nil {
			return 0, err
		}
		p.meta.FreeListHead = next
		p.writeMeta()

		p.metrics.RecordAlloc()
		return id, nil
	}

	oldCount := p.meta.PageCount
	newCount := oldCount * GrowthFactor

	if err := p.growLocked(newCount); err != nil {
		return 0, err
	}

	id := PageID(oldCount)
	if err := p.markMetaDirty(); err != nil {
		return 0, err
	}
	// Everything materialized by the growth except the page being handed
	// back goes straight onto the free list.
	for i := int(newCount) - 1; i > int(oldCount); i-- {
		pid := PageID(i)
		data := p.mmap.Slice(int64(pid)*PageSize, PageSize)
		for j := range data {
			data[j] = 0
		}
		binary.LittleEndian.PutUint32(data[0:4], uint32(p.meta.FreeListHead))
		p.meta.FreeListHead = pid
	}
	p.writeMeta()

	p.metrics.RecordAlloc()
	return id, nil
}

// FreePage links page id onto the head of the free list. Refuses to free
// the metadata page.
func (p *Pager) FreePage(id PageID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.txActive {
		return ErrNoActiveTransaction
	}
	if id == MetaPageID {
		return ErrCannotFreeMetaPage
	}
	if uint32(id) >= p.meta.PageCount {
		return ErrPageOutOfBounds
	}

	if _, ok := p.dirty[id]; !ok {
		data := p.mmap.Slice(int64(id)*PageSize, PageSize)
		snap := make([]byte, PageSize)
		copy(snap, data)
		p.snapshots[id] = snap
		p.dirty[id] = struct{}{}
	}

	data := p.mmap.Slice(int64(id)*PageSize, PageSize)
	for i := range data {
		data[i] = 0
	}
	binary.LittleEndian.PutUint32(data[0:4], uint32(p.meta.FreeListHead))

	if err := p.markMetaDirty(); err != nil {
		return err
	}
	p.meta.FreeListHead = id
	p.writeMeta()

	p.metrics.RecordFree()
	return nil
}

// Grow extends the file and remaps it if newPageCount exceeds the current
// page count, threading every new page onto the free list. Exposed as a
// direct operation in addition to the implicit growth AllocPage performs.
func (p *Pager) Grow(newPageCount uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	old := p.meta.PageCount
	if err := p.growLocked(newPageCount); err != nil {
		return err
	}
	for i := int(p.meta.PageCount) - 1; i >= int(old); i-- {
		pid := PageID(i)
		data := p.mmap.Slice(int64(pid)*PageSize, PageSize)
		for j := range data {
			data[j] = 0
		}
		binary.LittleEndian.PutUint32(data[0:4], uint32(p.meta.FreeListHead))
		p.meta.FreeListHead = pid
	}
	p.writeMeta()
	return nil
}

// growLocked must be called with p.mu held.
func (p *Pager) growLocked(newPageCount uint32) error {
	if newPageCount <= p.meta.PageCount {
		return nil
	}

	if err := p.mmap.Grow(int64(newPageCount) * PageSize); err != nil {
		return fmt.Errorf("pager: failed to grow file: %w", err)
	}

	old := p.meta.PageCount
	if p.txActive {
		if err := p.markMetaDirty(); err != nil {
			return err
		}
	}
	p.meta.PageCount = newPageCount
	p.writeMeta()

	p.logger.LogGrowth(old, newPageCount)
	p.metrics.RecordGrowth(newPageCount)
	return nil
}

// RootPage returns the tree root's page id, or 0 if no tree has been
// created yet.
func (p *Pager) RootPage() PageID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.meta.RootPage
}

// SetRootPage updates the tree root page id. Must be called inside a
// transaction, exactly like any other metadata mutation.
func (p *Pager) SetRootPage(id PageID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.markMetaDirty(); err != nil {
		return err
	}
	p.meta.RootPage = id
	p.writeMeta()
	return nil
}

// PageCount returns the current number of pages in the file.
func (p *Pager) PageCount() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.meta.PageCount
}

// TxID returns the last committed transaction id.
func (p *Pager) TxID() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.meta.TxID
}
