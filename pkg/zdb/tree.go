// Package zdb implements a generic, disk-backed B+Tree over a
// memory-mapped, copy-on-write paged file.
package zdb

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/oda/zdb/internal/logging"
	"github.com/oda/zdb/internal/metrics"
	"github.com/oda/zdb/internal/node"
	"github.com/oda/zdb/internal/pager"
)

// KeyValue is one entry returned by Range.
type KeyValue[K any, V any] struct {
	Key   K
	Value V
}

// Options configures a Tree's codecs, ordering, and ambient dependencies.
type Options[K any, V any] struct {
	KeyCodec   Codec[K]
	ValueCodec Codec[V]
	Compare    Comparator[K]

	// OrderHint caps node fanout below its physical maximum; 0 uses the
	// full page capacity. Mainly useful in tests, to force splits without
	// needing thousands of keys.
	OrderHint int

	Logger  *logging.Logger
	Metrics *metrics.Metrics
}

// Tree is a generic B+Tree backed by a single pager. Reads (Get, Range)
// need no transaction; writes (Put) must run inside one, exactly like the
// underlying pager's own Alloc/Free/GetPageForWrite calls.
type Tree[K any, V any] struct {
	pager  *pager.Pager
	layout node.Layout

	keyCodec Codec[K]
	valCodec Codec[V]
	cmp      Comparator[K]

	logger  *logging.Logger
	metrics *metrics.Metrics
}

// Open opens or creates a tree backed by the database file at path. A
// fresh database gets an empty root leaf, committed in its own
// transaction before Open returns.
func Open[K any, V any](path string, opts Options[K, V]) (*Tree[K, V], error) {
	if opts.Compare == nil {
		return nil, fmt.Errorf("zdb: Options.Compare is required")
	}
	if opts.KeyCodec == nil || opts.ValueCodec == nil {
		return nil, fmt.Errorf("zdb: Options.KeyCodec and Options.ValueCodec are required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New(prometheus.NewRegistry())
	}

	pg, err := pager.Open(path, pager.Options{Logger: opts.Logger, Metrics: opts.Metrics})
	if err != nil {
		return nil, err
	}

	layout := node.NewLayout(pager.PageSize,
		opts.KeyCodec.Size(), opts.KeyCodec.Align(),
		opts.ValueCodec.Size(), opts.ValueCodec.Align(),
		opts.OrderHint)
	if layout.OrderLeaf < 2 || layout.OrderInternal < 2 {
		pg.Close()
		return nil, fmt.Errorf("zdb: key/value sizes leave no room for a usable node (leaf order %d, internal order %d)",
			layout.OrderLeaf, layout.OrderInternal)
	}

	t := &Tree[K, V]{
		pager:    pg,
		layout:   layout,
		keyCodec: opts.KeyCodec,
		valCodec: opts.ValueCodec,
		cmp:      opts.Compare,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}

	if pg.RootPage() == 0 {
		if err := t.initRoot(); err != nil {
			pg.Close()
			return nil, err
		}
	}

	return t, nil
}

func (t *Tree[K, V]) initRoot() error {
	if err := t.pager.BeginTx(); err != nil {
		return err
	}
	id, err := t.pager.AllocPage()
	if err != nil {
		t.pager.RollbackTx()
		return err
	}
	data, err := t.pager.GetPageForWrite(id)
	if err != nil {
		t.pager.RollbackTx()
		return err
	}
	node.NewLeafView[K, V](data, t.layout, t.keyCodec, t.valCodec).Init()

	if err := t.pager.SetRootPage(id); err != nil {
		t.pager.RollbackTx()
		return err
	}
	return t.pager.CommitTx()
}

// Close releases the underlying file and its advisory lock.
func (t *Tree[K, V]) Close() error {
	return t.pager.Close()
}

// BeginTx starts a write transaction. Get and Range never need one.
func (t *Tree[K, V]) BeginTx() error { return t.pager.BeginTx() }

// CommitTx commits the active write transaction.
func (t *Tree[K, V]) CommitTx() error { return t.pager.CommitTx() }

// RollbackTx restores every page touched since BeginTx.
func (t *Tree[K, V]) RollbackTx() error { return t.pager.RollbackTx() }

// Get looks up key, descending from the root. No transaction required.
// Get reads the mapping directly, so while a transaction is active it sees
// that transaction's uncommitted writes.
func (t *Tree[K, V]) Get(key K) (V, bool) {
	t.metrics.RecordGet()
	var zero V

	id := t.pager.RootPage()
	for {
		data, err := t.pager.GetPage(id)
		if err != nil {
			return zero, false
		}
		if node.GetKind(data) == node.KindLeaf {
			leaf := node.NewLeafView[K, V](data, t.layout, t.keyCodec, t.valCodec)
			return leaf.Get(key, t.cmp)
		}
		internal := node.NewInternalView[K](data, t.layout, t.keyCodec)
		idx := internal.ChildFor(key, t.cmp)
		id = pager.PageID(internal.Child(idx))
	}
}

// Put inserts or overwrites key with value. Must be called within an
// active transaction (BeginTx/CommitTx or RollbackTx). Uses pre-emptive
// top-down splitting: before descending into a child, or before using the
// root itself, a full node is split so the insert never needs to
// propagate a split back up after the fact.
//
// An overwrite of an existing key in a full leaf never needs the leaf to
// grow, so needsSplit treats a full leaf that already holds key as not
// needing a split — splitting a leaf purely to overwrite an existing
// entry would be wasted work and an unnecessary write.
func (t *Tree[K, V]) Put(key K, value V) error {
	t.metrics.RecordPut()

	rootID := t.pager.RootPage()
	if t.needsSplit(rootID, key) {
		if err := t.splitRoot(rootID); err != nil {
			return err
		}
		rootID = t.pager.RootPage()
	}
	return t.insertNonFull(rootID, key, value)
}

func (t *Tree[K, V]) needsSplit(id pager.PageID, key K) bool {
	data, err := t.pager.GetPage(id)
	if err != nil {
		return false
	}
	if node.GetKind(data) == node.KindLeaf {
		leaf := node.NewLeafView[K, V](data, t.layout, t.keyCodec, t.valCodec)
		if !leaf.IsFull() {
			return false
		}
		_, found := leaf.Get(key, t.cmp)
		return !found
	}
	internal := node.NewInternalView[K](data, t.layout, t.keyCodec)
	return internal.IsFull()
}

func (t *Tree[K, V]) insertNonFull(id pager.PageID, key K, value V) error {
	data, err := t.pager.GetPageForWrite(id)
	if err != nil {
		return err
	}
	if node.GetKind(data) == node.KindLeaf {
		leaf := node.NewLeafView[K, V](data, t.layout, t.keyCodec, t.valCodec)
		leaf.Put(key, value, t.cmp)
		return nil
	}

	internal := node.NewInternalView[K](data, t.layout, t.keyCodec)
	idx := internal.ChildFor(key, t.cmp)
	childID := pager.PageID(internal.Child(idx))

	if t.needsSplit(childID, key) {
		if err := t.splitChild(id, idx); err != nil {
			return err
		}
		// splitChild may have triggered AllocPage growth, invalidating the
		// slice above, and the new separator changes which child to
		// follow — re-fetch and re-route.
		data, err = t.pager.GetPageForWrite(id)
		if err != nil {
			return err
		}
		internal = node.NewInternalView[K](data, t.layout, t.keyCodec)
		idx = internal.ChildFor(key, t.cmp)
		childID = pager.PageID(internal.Child(idx))
	}

	return t.insertNonFull(childID, key, value)
}

// splitChild splits parent's child at idx in two, inserting the promoted
// separator and new right child into parent. The caller guarantees parent
// itself has room, since every node is split before anything is ever
// inserted into it.
func (t *Tree[K, V]) splitChild(parentID pager.PageID, idx int) error {
	parentData, err := t.pager.GetPageForWrite(parentID)
	if err != nil {
		return err
	}
	parent := node.NewInternalView[K](parentData, t.layout, t.keyCodec)
	childID := pager.PageID(parent.Child(idx))

	childData, err := t.pager.GetPageForWrite(childID)
	if err != nil {
		return err
	}
	kind := node.GetKind(childData)

	rightID, err := t.pager.AllocPage()
	if err != nil {
		return err
	}

	// AllocPage may have grown and remapped the file: every slice obtained
	// before this point may now be stale.
	parentData, err = t.pager.GetPageForWrite(parentID)
	if err != nil {
		return err
	}
	parent = node.NewInternalView[K](parentData, t.layout, t.keyCodec)
	childData, err = t.pager.GetPageForWrite(childID)
	if err != nil {
		return err
	}
	rightData, err := t.pager.GetPageForWrite(rightID)
	if err != nil {
		return err
	}

	var sep K
	switch kind {
	case node.KindLeaf:
		left := node.NewLeafView[K, V](childData, t.layout, t.keyCodec, t.valCodec)
		right := node.NewLeafView[K, V](rightData, t.layout, t.keyCodec, t.valCodec)
		sep = left.Split(right)
		left.SetNextLeaf(uint32(rightID))
		t.logger.LogSplit("leaf", uint32(childID))
		t.metrics.RecordSplit("leaf")
	default:
		left := node.NewInternalView[K](childData, t.layout, t.keyCodec)
		right := node.NewInternalView[K](rightData, t.layout, t.keyCodec)
		sep = left.Split(right)
		t.logger.LogSplit("internal", uint32(childID))
		t.metrics.RecordSplit("internal")
	}

	parent.InsertSeparator(idx, sep, uint32(rightID))
	return nil
}

// splitRoot splits the current root in two and installs a fresh internal
// root above both halves, growing the tree's height by one.
func (t *Tree[K, V]) splitRoot(oldRootID pager.PageID) error {
	oldData, err := t.pager.GetPageForWrite(oldRootID)
	if err != nil {
		return err
	}
	kind := node.GetKind(oldData)

	newRootID, err := t.pager.AllocPage()
	if err != nil {
		return err
	}
	rightID, err := t.pager.AllocPage()
	if err != nil {
		return err
	}

	leftData, err := t.pager.GetPageForWrite(oldRootID)
	if err != nil {
		return err
	}
	rightData, err := t.pager.GetPageForWrite(rightID)
	if err != nil {
		return err
	}

	var sep K
	switch kind {
	case node.KindLeaf:
		left := node.NewLeafView[K, V](leftData, t.layout, t.keyCodec, t.valCodec)
		right := node.NewLeafView[K, V](rightData, t.layout, t.keyCodec, t.valCodec)
		sep = left.Split(right)
		left.SetNextLeaf(uint32(rightID))
		t.logger.LogSplit("leaf", uint32(oldRootID))
		t.metrics.RecordSplit("leaf")
	default:
		left := node.NewInternalView[K](leftData, t.layout, t.keyCodec)
		right := node.NewInternalView[K](rightData, t.layout, t.keyCodec)
		sep = left.Split(right)
		t.logger.LogSplit("internal", uint32(oldRootID))
		t.metrics.RecordSplit("internal")
	}

	newRootData, err := t.pager.GetPageForWrite(newRootID)
	if err != nil {
		return err
	}
	newRoot := node.NewInternalView[K](newRootData, t.layout, t.keyCodec)
	newRoot.Init()
	newRoot.SetChild(0, uint32(oldRootID))
	newRoot.InsertSeparator(0, sep, uint32(rightID))

	return t.pager.SetRootPage(newRootID)
}

// Range returns every key-value pair with key in [start, end), walking the
// leaf sibling chain from the first qualifying leaf. No transaction is
// required.
func (t *Tree[K, V]) Range(start, end K) ([]KeyValue[K, V], error) {
	var results []KeyValue[K, V]

	id := t.pager.RootPage()
	for {
		data, err := t.pager.GetPage(id)
		if err != nil {
			return nil, err
		}
		if node.GetKind(data) == node.KindLeaf {
			break
		}
		internal := node.NewInternalView[K](data, t.layout, t.keyCodec)
		idx := internal.ChildFor(start, t.cmp)
		id = pager.PageID(internal.Child(idx))
	}

	for id != 0 {
		data, err := t.pager.GetPage(id)
		if err != nil {
			return nil, err
		}
		leaf := node.NewLeafView[K, V](data, t.layout, t.keyCodec, t.valCodec)
		count := leaf.KeyCount()
		for i := 0; i < count; i++ {
			k := leaf.Key(i)
			if t.cmp(k, end) >= 0 {
				return results, nil
			}
			if t.cmp(k, start) >= 0 {
				results = append(results, KeyValue[K, V]{Key: k, Value: leaf.Value(i)})
			}
		}
		id = pager.PageID(leaf.NextLeaf())
	}
	return results, nil
}
