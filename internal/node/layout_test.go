package node

import "testing"

func cmpUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func TestNewLayoutUint64Pair(t *testing.T) {
	l := NewLayout(4096, 8, 8, 8, 8, 0)

	if l.OrderInternal <= 0 {
		t.Fatal("expected a positive internal order")
	}
	if l.OrderLeaf <= 0 {
		t.Fatal("expected a positive leaf order")
	}

	// Every offset must fit within the page.
	internalEnd := l.InternalChildrenOffset + (l.OrderInternal+1)*pageIDSize
	if internalEnd > 4096 {
		t.Errorf("internal layout overflows page: end=%d", internalEnd)
	}
	leafEnd := l.LeafValuesOffset + l.OrderLeaf*8
	if leafEnd > 4096-pageIDSize {
		t.Errorf("leaf layout overflows reserved next-leaf pointer: end=%d", leafEnd)
	}
	if l.LeafNextLeafOffset != 4096-4 {
		t.Errorf("expected next-leaf pointer at the last 4 bytes, got offset %d", l.LeafNextLeafOffset)
	}
}

func TestNewLayoutOrderHintCaps(t *testing.T) {
	l := NewLayout(4096, 8, 8, 8, 8, 4)

	if l.OrderLeaf != 4 {
		t.Errorf("expected order hint to cap leaf order to 4, got %d", l.OrderLeaf)
	}
	if l.OrderInternal != 4 {
		t.Errorf("expected order hint to cap internal order to 4, got %d", l.OrderInternal)
	}
}

func TestNewLayoutUnalignedKey(t *testing.T) {
	// FixedBytes16-style key: size 16, align 1 (no padding requirements).
	l := NewLayout(4096, 16, 1, 8, 8, 0)

	if l.OrderLeaf <= 0 || l.OrderInternal <= 0 {
		t.Fatal("expected positive orders for a 16-byte unaligned key")
	}

	leafEnd := l.LeafValuesOffset + l.OrderLeaf*8
	if leafEnd > 4096-pageIDSize {
		t.Errorf("leaf layout overflows: end=%d", leafEnd)
	}
}

func TestAlign(t *testing.T) {
	cases := []struct{ offset, alignment, want int }{
		{0, 8, 0},
		{1, 8, 8},
		{8, 8, 8},
		{9, 8, 16},
		{3, 1, 3},
		{5, 4, 8},
	}
	for _, c := range cases {
		if got := align(c.offset, c.alignment); got != c.want {
			t.Errorf("align(%d, %d) = %d, want %d", c.offset, c.alignment, got, c.want)
		}
	}
}
