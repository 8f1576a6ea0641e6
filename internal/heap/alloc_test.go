package heap

import (
	"testing"
	"unsafe"
)

func newTestHeap(t *testing.T) *Heap {
	t.Helper()
	h, err := NewHeap(WithRegionSize(1 << 20))
	if err != nil {
		t.Fatalf("NewHeap: %v", err)
	}
	t.Cleanup(func() {
		if err := h.DestroyMemService(); err != nil {
			t.Errorf("DestroyMemService: %v", err)
		}
	})
	return h
}

func TestAllocBasic(t *testing.T) {
	h := newTestHeap(t)

	ptr, err := h.Alloc(128, 0)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if ptr == nil {
		t.Fatal("Alloc returned nil pointer")
	}

	b := h.blockOf(ptr)
	if b == nil {
		t.Fatal("allocated pointer not indexed")
	}
	if b.usableSize() < 128 {
		t.Errorf("usable size %d < requested 128", b.usableSize())
	}
}

func TestAllocZeroSizeGetsMinBlock(t *testing.T) {
	h := newTestHeap(t)

	ptr, err := h.Alloc(0, 0)
	if err != nil {
		t.Fatalf("Alloc(0): %v", err)
	}
	b := h.blockOf(ptr)
	if b.size < minBlockSize {
		t.Errorf("zero-size alloc block size %d below minBlockSize %d", b.size, minBlockSize)
	}
}

func TestAllocZeroFlagZeroesPayload(t *testing.T) {
	h := newTestHeap(t)

	ptr, err := h.Alloc(64, 0)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	buf := unsafe.Slice((*byte)(ptr), 64)
	for i := range buf {
		buf[i] = 0xAB
	}
	h.freeBlock(h.blockOf(ptr))

	ptr2, err := h.Alloc(64, AllocZero)
	if err != nil {
		t.Fatalf("Alloc(AllocZero): %v", err)
	}
	buf2 := unsafe.Slice((*byte)(ptr2), 64)
	for i, v := range buf2 {
		if v != 0 {
			t.Fatalf("byte %d not zeroed: %v", i, v)
		}
	}
}

func TestSplitOnReuse(t *testing.T) {
	h := newTestHeap(t)

	big, err := h.Alloc(1<<20-4096, 0)
	if err != nil {
		t.Fatalf("Alloc big: %v", err)
	}
	before := h.bytesAllocated.Load()

	// freeBlock only relinks; account the free the way sweepRegion does.
	bigBlock := h.blockOf(big)
	h.bytesAllocated.Add(^uint64(bigBlock.size - 1))
	h.freeBlock(bigBlock)

	small, err := h.Alloc(4096, 0)
	if err != nil {
		t.Fatalf("Alloc small: %v", err)
	}
	if small == nil {
		t.Fatal("nil pointer for small alloc")
	}
	after := h.bytesAllocated.Load()
	if after >= before {
		t.Errorf("expected split reuse to shrink bytesAllocated: before=%d after=%d", before, after)
	}
}

func TestMemcpyMemcmpMemdup(t *testing.T) {
	h := newTestHeap(t)

	src, err := h.Alloc(16, 0)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	copy(unsafe.Slice((*byte)(src), 16), []byte("0123456789abcdef"))

	dup, err := h.Memdup(src, 16)
	if err != nil {
		t.Fatalf("Memdup: %v", err)
	}
	cmp, err := h.Memcmp(src, dup, 16)
	if err != nil {
		t.Fatalf("Memcmp: %v", err)
	}
	if cmp != 0 {
		t.Errorf("Memcmp(src, dup) = %d, want 0", cmp)
	}

	dst, err := h.Alloc(16, 0)
	if err != nil {
		t.Fatalf("Alloc dst: %v", err)
	}
	if err := h.Memcpy(dst, src, 16); err != nil {
		t.Fatalf("Memcpy: %v", err)
	}
	if cmp, _ := h.Memcmp(dst, src, 16); cmp != 0 {
		t.Errorf("Memcpy did not copy correctly")
	}
}

func TestReallocGrowsPreservesContentAndZeroesTail(t *testing.T) {
	h := newTestHeap(t)

	ptr, err := h.Alloc(16, 0)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	buf := unsafe.Slice((*byte)(ptr), 16)
	copy(buf, []byte("0123456789abcdef"))

	grown, err := h.Realloc(ptr, 64)
	if err != nil {
		t.Fatalf("Realloc: %v", err)
	}
	if grown == ptr {
		t.Fatal("Realloc returned the same pointer for a growing resize")
	}

	gbuf := unsafe.Slice((*byte)(grown), 64)
	if string(gbuf[:16]) != "0123456789abcdef" {
		t.Errorf("Realloc did not preserve old content: got %q", gbuf[:16])
	}
	for i := 16; i < 64; i++ {
		if gbuf[i] != 0 {
			t.Fatalf("byte %d of grown tail not zeroed: %v", i, gbuf[i])
		}
	}
}

func TestReallocPreservesManager(t *testing.T) {
	h := newTestHeap(t)

	ptr, err := h.Alloc(16, AllocManager)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	// The old block keeps the manager too and, being unreachable, gets its
	// own FREE call at the next sweep; only a FREE for grown is a failure.
	var freed bool
	var grown unsafe.Pointer
	h.SetManager(ptr, func(p unsafe.Pointer, flag ManageFlag) {
		if flag == ManageFree && p == grown {
			freed = true
		}
	})

	grown, err = h.Realloc(ptr, 256)
	if err != nil {
		t.Fatalf("Realloc: %v", err)
	}

	gb := h.blockOf(grown)
	if gb == nil {
		t.Fatal("grown pointer not indexed")
	}
	if !gb.hasManager() || gb.manager == nil {
		t.Fatal("Realloc did not carry the manager over to the new block")
	}

	h.AddRoot(grown)
	defer h.RemoveRoot(grown)
	if _, err := h.GC(GCForce); err != nil {
		t.Fatalf("GC: %v", err)
	}
	if freed {
		t.Error("manager's FREE callback ran for the still-reachable grown block")
	}
}

func TestReallocDoesNotImmediatelyFreeOldBlock(t *testing.T) {
	h := newTestHeap(t)

	ptr, err := h.Alloc(16, 0)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	oldBlock := h.blockOf(ptr)

	if _, err := h.Realloc(ptr, 256); err != nil {
		t.Fatalf("Realloc: %v", err)
	}

	if h.blockOf(ptr) != nil {
		t.Error("old pointer still indexed after Realloc")
	}
	if oldBlock.isFree() {
		t.Error("old block was linked onto a free queue immediately, instead of waiting for the next sweep")
	}
}

func TestReallocShrinkReturnsSamePointer(t *testing.T) {
	h := newTestHeap(t)

	ptr, err := h.Alloc(256, 0)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	same, err := h.Realloc(ptr, 16)
	if err != nil {
		t.Fatalf("Realloc: %v", err)
	}
	if same != ptr {
		t.Error("Realloc to a smaller usable size should return the original pointer")
	}
}

func TestAllocPanicsWhileMarking(t *testing.T) {
	h := newTestHeap(t)
	h.marking.Store(true)
	defer h.marking.Store(false)

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic when allocating during MARKING")
		}
	}()
	h.Alloc(8, 0)
}
