package node

import "testing"

func newInternalPage(layout Layout) *InternalView[uint64] {
	data := make([]byte, layout.PageSize)
	view := NewInternalView[uint64](data, layout, Uint64Codec{})
	view.Init()
	return view
}

func TestInternalInsertSeparator(t *testing.T) {
	layout := NewLayout(4096, 8, 8, 8, 8, 8)
	in := newInternalPage(layout)
	in.SetChild(0, 1)

	in.InsertSeparator(0, 10, 2)
	in.InsertSeparator(1, 20, 3)

	if in.KeyCount() != 2 {
		t.Fatalf("expected 2 keys, got %d", in.KeyCount())
	}
	if in.Key(0) != 10 || in.Key(1) != 20 {
		t.Errorf("unexpected keys: %d, %d", in.Key(0), in.Key(1))
	}
	if in.Child(0) != 1 || in.Child(1) != 2 || in.Child(2) != 3 {
		t.Errorf("unexpected children: %d, %d, %d", in.Child(0), in.Child(1), in.Child(2))
	}
}

func TestInternalInsertSeparatorMidway(t *testing.T) {
	layout := NewLayout(4096, 8, 8, 8, 8, 8)
	in := newInternalPage(layout)
	in.SetChild(0, 1)
	in.InsertSeparator(0, 10, 2)
	in.InsertSeparator(1, 30, 3)

	// Insert a separator between the existing two.
	in.InsertSeparator(1, 20, 99)

	want := []uint64{10, 20, 30}
	for i, w := range want {
		if in.Key(i) != w {
			t.Errorf("Key(%d) = %d, want %d", i, in.Key(i), w)
		}
	}
	wantChildren := []uint32{1, 2, 99, 3}
	for i, w := range wantChildren {
		if in.Child(i) != w {
			t.Errorf("Child(%d) = %d, want %d", i, in.Child(i), w)
		}
	}
}

func TestInternalSplit(t *testing.T) {
	layout := NewLayout(4096, 8, 8, 8, 8, 8)
	left := newInternalPage(layout)
	left.SetChild(0, 100)
	for i := uint64(0); i < 8; i++ {
		left.InsertSeparator(int(i), (i+1)*10, uint32(i)+101)
	}

	rightData := make([]byte, layout.PageSize)
	right := NewInternalView[uint64](rightData, layout, Uint64Codec{})

	origCount := left.KeyCount()
	sep := left.Split(right)

	// Internal split removes the separator: left + right keys == orig - 1.
	if left.KeyCount()+right.KeyCount() != origCount-1 {
		t.Errorf("expected split halves plus separator to sum to %d, got %d + %d + 1",
			origCount, left.KeyCount(), right.KeyCount())
	}

	for i := 0; i < left.KeyCount(); i++ {
		if left.Key(i) >= sep {
			t.Errorf("left key %d should be < separator %d", left.Key(i), sep)
		}
	}
	for i := 0; i < right.KeyCount(); i++ {
		if right.Key(i) <= sep {
			t.Errorf("right key %d should be > separator %d", right.Key(i), sep)
		}
	}
}

func TestInternalChildFor(t *testing.T) {
	layout := NewLayout(4096, 8, 8, 8, 8, 8)
	in := newInternalPage(layout)
	in.SetChild(0, 1)
	in.InsertSeparator(0, 10, 2)
	in.InsertSeparator(1, 20, 3)

	cases := []struct {
		target uint64
		want   int
	}{
		{5, 0},
		{10, 1}, // duplicate of separator descends right, into children[i+1]
		{15, 1},
		{20, 2},
		{25, 2},
	}
	for _, c := range cases {
		if got := in.ChildFor(c.target, cmpUint64); got != c.want {
			t.Errorf("ChildFor(%d) = %d, want %d", c.target, got, c.want)
		}
	}
}
