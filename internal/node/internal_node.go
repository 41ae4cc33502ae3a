package node

import "encoding/binary"

// InternalView provides typed operations over an internal page's raw
// bytes: header, keys[OrderInternal], children[OrderInternal+1].
type InternalView[K any] struct {
	data     []byte
	layout   Layout
	keyCodec Codec[K]
}

// NewInternalView wraps data (one full page) for internal-node operations.
func NewInternalView[K any](data []byte, layout Layout, keyCodec Codec[K]) *InternalView[K] {
	return &InternalView[K]{data: data, layout: layout, keyCodec: keyCodec}
}

// Init resets the page to an empty internal node.
func (n *InternalView[K]) Init() {
	SetKind(n.data, KindInternal)
	SetKeyCount(n.data, 0)
}

// KeyCount returns the number of separator keys currently stored.
func (n *InternalView[K]) KeyCount() int {
	return int(GetKeyCount(n.data))
}

// IsFull reports whether the node has reached its capacity.
func (n *InternalView[K]) IsFull() bool {
	return n.KeyCount() >= n.layout.OrderInternal
}

func (n *InternalView[K]) keyOffset(i int) int {
	return n.layout.InternalKeysOffset + i*n.keyCodec.Size()
}

func (n *InternalView[K]) childOffset(i int) int {
	return n.layout.InternalChildrenOffset + i*pageIDSize
}

// Key returns the separator key at index i.
func (n *InternalView[K]) Key(i int) K {
	off := n.keyOffset(i)
	return n.keyCodec.Decode(n.data[off : off+n.keyCodec.Size()])
}

// SetKey sets the separator key at index i.
func (n *InternalView[K]) SetKey(i int, k K) {
	off := n.keyOffset(i)
	n.keyCodec.Encode(n.data[off:off+n.keyCodec.Size()], k)
}

// Child returns the child page id at index i (0 <= i <= KeyCount()).
func (n *InternalView[K]) Child(i int) uint32 {
	off := n.childOffset(i)
	return binary.LittleEndian.Uint32(n.data[off : off+4])
}

// SetChild sets the child page id at index i.
func (n *InternalView[K]) SetChild(i int, id uint32) {
	off := n.childOffset(i)
	binary.LittleEndian.PutUint32(n.data[off:off+4], id)
}

// Search returns the first index i with Key(i) >= target (lower bound), or
// KeyCount() if none.
func (n *InternalView[K]) Search(target K, cmp Comparator[K]) int {
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

// ChildFor returns the index of the child to descend into for target:
// Search's lower-bound index i, except when Key(i) == target, in which
// case the child is i+1 — a duplicate of a separator descends right, per
// the invariant that children[i+1]'s subtree holds keys >= keys[i].
func (n *InternalView[K]) ChildFor(target K, cmp Comparator[K]) int {
	i := n.Search(target, cmp)
	if i < n.KeyCount() && cmp(n.Key(i), target) == 0 {
		return i + 1
	}
	return i
}

// InsertSeparator inserts key at position idx with its right child
// newChild, shifting keys[idx:] and children[idx+1:] right by one.
func (n *InternalView[K]) InsertSeparator(idx int, key K, newChild uint32) {
	count := n.KeyCount()
	for i := count; i > idx; i-- {
		n.SetKey(i, n.Key(i-1))
	}
	for i := count + 1; i > idx+1; i-- {
		n.SetChild(i, n.Child(i-1))
	}
	n.SetKey(idx, key)
	n.SetChild(idx+1, newChild)
	SetKeyCount(n.data, uint16(count+1))
}

// Split moves the upper half of this node's keys and children into right.
// The returned separator is removed from both nodes (internal split
// policy: routing keys are not duplicated, unlike a leaf split).
func (n *InternalView[K]) Split(right *InternalView[K]) K {
	count := n.KeyCount()
	split := count / 2
	sep := n.Key(split)

	right.Init()
	for i := split + 1; i < count; i++ {
		right.SetKey(i-split-1, n.Key(i))
	}
	for i := split + 1; i <= count; i++ {
		right.SetChild(i-split-1, n.Child(i))
	}
	SetKeyCount(right.data, uint16(count-split-1))
	SetKeyCount(n.data, uint16(split))

	return sep
}
