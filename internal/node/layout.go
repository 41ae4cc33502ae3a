package node

// Layout is the byte-level arrangement of a tree's leaf and internal node
// pages: where the key array starts, where the value or child-pointer
// array starts, and how many entries each kind of node can hold. It is a
// pure function of page size, header size, and the key/value codecs'
// size and alignment — computed once per tree, never per node.
type Layout struct {
	PageSize   int
	KeySize    int
	ValueSize  int

	// OrderLeaf and OrderInternal are the maximum number of keys a leaf
	// or internal node may hold.
	OrderLeaf     int
	OrderInternal int

	LeafKeysOffset     int
	LeafValuesOffset   int
	LeafNextLeafOffset int // always PageSize-4: the last 4 bytes of the page

	InternalKeysOffset     int
	InternalChildrenOffset int
}

func align(offset, alignment int) int {
	if alignment <= 1 {
		return offset
	}
	return (offset + alignment - 1) &^ (alignment - 1)
}

// NewLayout computes the node layout for a tree whose keys and values have
// the given size and alignment. orderHint, if > 0, additionally caps both
// orders below their physical maximum (used for testing small trees
// without needing thousands of keys to force a split).
//
// ORDER_INTERNAL and ORDER_LEAF start from the closed-form caps
// (page_size-header_size)/(key_size+4) and
// (page_size-header_size-4)/(key_size+value_size), then shrink by one at a
// time until the aligned byte layout actually fits the page — the closed
// form ignores alignment padding, which can make a node a few keys
// narrower than the arithmetic alone suggests.
func NewLayout(pageSize, keySize, keyAlign, valueSize, valueAlign, orderHint int) Layout {
	l := Layout{
		PageSize:  pageSize,
		KeySize:   keySize,
		ValueSize: valueSize,
	}

	orderInternal := (pageSize - headerSize) / (keySize + pageIDSize)
	orderLeaf := (pageSize - headerSize - pageIDSize) / (keySize + valueSize)

	if orderHint > 0 {
		if orderInternal > orderHint {
			orderInternal = orderHint
		}
		if orderLeaf > orderHint {
			orderLeaf = orderHint
		}
	}

	for orderInternal > 0 {
		keysOff := align(headerSize, keyAlign)
		childrenOff := align(keysOff+orderInternal*keySize, pageIDAlign)
		end := childrenOff + (orderInternal+1)*pageIDSize
		if end <= pageSize {
			l.InternalKeysOffset = keysOff
			l.InternalChildrenOffset = childrenOff
			break
		}
		orderInternal--
	}
	l.OrderInternal = orderInternal

	for orderLeaf > 0 {
		keysOff := align(headerSize, keyAlign)
		valuesOff := align(keysOff+orderLeaf*keySize, valueAlign)
		end := valuesOff + orderLeaf*valueSize
		if end <= pageSize-pageIDSize {
			l.LeafKeysOffset = keysOff
			l.LeafValuesOffset = valuesOff
			break
		}
		orderLeaf--
	}
	l.OrderLeaf = orderLeaf
	l.LeafNextLeafOffset = pageSize - pageIDSize

	return l
}
