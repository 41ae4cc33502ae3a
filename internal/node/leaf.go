package node

import "encoding/binary"

// LeafView provides typed operations over a leaf page's raw bytes: header,
// keys[OrderLeaf], values[OrderLeaf], and a next-leaf PageId in the page's
// last 4 bytes.
type LeafView[K any, V any] struct {
	data     []byte
	layout   Layout
	keyCodec Codec[K]
	valCodec Codec[V]
}

// NewLeafView wraps data (one full page) for leaf operations.
func NewLeafView[K any, V any](data []byte, layout Layout, keyCodec Codec[K], valCodec Codec[V]) *LeafView[K, V] {
	return &LeafView[K, V]{data: data, layout: layout, keyCodec: keyCodec, valCodec: valCodec}
}

// Init resets the page to an empty leaf.
func (n *LeafView[K, V]) Init() {
	SetKind(n.data, KindLeaf)
	SetKeyCount(n.data, 0)
	n.SetNextLeaf(0)
}

// KeyCount returns the number of keys currently stored.
func (n *LeafView[K, V]) KeyCount() int {
	return int(GetKeyCount(n.data))
}

// IsFull reports whether the leaf has reached its capacity.
func (n *LeafView[K, V]) IsFull() bool {
	return n.KeyCount() >= n.layout.OrderLeaf
}

func (n *LeafView[K, V]) keyOffset(i int) int {
	return n.layout.LeafKeysOffset + i*n.keyCodec.Size()
}

func (n *LeafView[K, V]) valueOffset(i int) int {
	return n.layout.LeafValuesOffset + i*n.valCodec.Size()
}

// Key returns the key at index i.
func (n *LeafView[K, V]) Key(i int) K {
	off := n.keyOffset(i)
	return n.keyCodec.Decode(n.data[off : off+n.keyCodec.Size()])
}

// SetKey sets the key at index i.
func (n *LeafView[K, V]) SetKey(i int, k K) {
	off := n.keyOffset(i)
	n.keyCodec.Encode(n.data[off:off+n.keyCodec.Size()], k)
}

// Value returns the value at index i.
func (n *LeafView[K, V]) Value(i int) V {
	off := n.valueOffset(i)
	return n.valCodec.Decode(n.data[off : off+n.valCodec.Size()])
}

// SetValue sets the value at index i.
func (n *LeafView[K, V]) SetValue(i int, v V) {
	off := n.valueOffset(i)
	n.valCodec.Encode(n.data[off:off+n.valCodec.Size()], v)
}

// NextLeaf returns the page id of the next leaf in key order, or 0 if this
// is the rightmost leaf.
func (n *LeafView[K, V]) NextLeaf() uint32 {
	return binary.LittleEndian.Uint32(n.data[n.layout.LeafNextLeafOffset : n.layout.LeafNextLeafOffset+4])
}

// SetNextLeaf sets the next-leaf pointer.
func (n *LeafView[K, V]) SetNextLeaf(id uint32) {
	binary.LittleEndian.PutUint32(n.data[n.layout.LeafNextLeafOffset:n.layout.LeafNextLeafOffset+4], id)
}

// Search returns the first index i with Key(i) >= target (lower bound), or
// KeyCount() if none. Uses a linear scan for arrays up to length 8
// (branch-predictor-friendly for the common small-node case), binary
// search otherwise.
func (n *LeafView[K, V]) Search(target K, cmp Comparator[K]) int {
	count := n.KeyCount()
	if count <= 8 {
		for i := 0; i < count; i++ {
			if cmp(n.Key(i), target) >= 0 {
				return i
			}
		}
		return count
	}
	lo, hi := 0, count
	for lo < hi {
		mid := (lo + hi) / 2
		if cmp(n.Key(mid), target) >= 0 {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

// Get returns the value stored under target, and whether it was found.
func (n *LeafView[K, V]) Get(target K, cmp Comparator[K]) (V, bool) {
	idx := n.Search(target, cmp)
	count := n.KeyCount()
	var zero V
	if idx < count && cmp(n.Key(idx), target) == 0 {
		return n.Value(idx), true
	}
	return zero, false
}

// Put inserts or overwrites target at its sorted position. Returns true if
// a new key was inserted, false if an existing key was overwritten in
// place. The caller must ensure the leaf is not full unless the key
// already exists.
func (n *LeafView[K, V]) Put(key K, value V, cmp Comparator[K]) bool {
	idx := n.Search(key, cmp)
	count := n.KeyCount()

	if idx < count && cmp(n.Key(idx), key) == 0 {
		n.SetValue(idx, value)
		return false
	}

	for i := count; i > idx; i-- {
		n.SetKey(i, n.Key(i-1))
		n.SetValue(i, n.Value(i-1))
	}
	n.SetKey(idx, key)
	n.SetValue(idx, value)
	SetKeyCount(n.data, uint16(count+1))
	return true
}

// Split moves the upper half of this leaf's entries into right. The
// returned separator is a copy of right's first key (leaf split policy:
// the promoted key stays resident in the leaf, unlike an internal split).
// right.NextLeaf is set to this leaf's current NextLeaf; the caller is
// responsible for then pointing this leaf's NextLeaf at right's page id.
func (n *LeafView[K, V]) Split(right *LeafView[K, V]) K {
	count := n.KeyCount()
	mid := (count + 1) / 2

	right.Init()
	for i := mid; i < count; i++ {
		right.SetKey(i-mid, n.Key(i))
		right.SetValue(i-mid, n.Value(i))
	}
	SetKeyCount(right.data, uint16(count-mid))
	SetKeyCount(n.data, uint16(mid))

	right.SetNextLeaf(n.NextLeaf())
	return right.Key(0)
}
