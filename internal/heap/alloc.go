package heap

import "unsafe"

const minBlockSize = headerOverhead // 32, the smallest block any queue serves.

// absoluteMaxAlloc is the "MAX" ceiling spec.md §7 names separately from
// MAX_BLOCK (the free-queue ceiling): a single request is never allowed to
// force a region reservation past this size regardless of MaxHeap policy.
const absoluteMaxAlloc = 1 << 32 // 4GiB

// growRegion ensures a region of at least max(need+regionHeaderSize,
// regionSize) exists, carves it into one block of size need (plus a spare
// block linked to its free queue if room remains), and returns the
// need-sized block. Equivalent to spec.md §4.2's grow(required).
func (h *Heap) growRegion(need uintptr) (*Block, error) {
	total := need + regionHeaderSize
	if total < h.regionSize {
		total = h.regionSize
	}

	id := h.nextID.Add(1)
	r, err := newRegion(id, total, h.vm)
	if err != nil {
		return nil, err
	}

	usable := r.first.size
	spare := usable - need

	var out *Block
	if usable < need {
		// The page-rounded reservation came in short (can't happen with a
		// sane regionSize, but grown-to-fit huge requests must be checked).
		return nil, tooBigErr(need, maxBlockSize)
	}

	if need >= maxBlockSize || spare < minBlockSize {
		r.first.flags |= flagFull
		out = r.first
	} else {
		out = r.first
		out.size = need

		spareBlock := &Block{
			region:       r,
			offset:       out.offset + out.size,
			size:         spare,
			prevInRegion: out,
			magic:        blockMagic,
		}
		out.nextInRegion = spareBlock
		h.linkSpareBlock(spareBlock)
	}

	// A freshly carved block must carry the heap's current mark color so a
	// concurrent mark phase sees it as already live (spec.md §4.9).
	out.mark = h.currentColor()

	h.regions.prepend(r)
	h.indexBlock(out)
	return out, nil
}

// linkBlock computes qindex for B's current size, try-acquires its queue,
// inserts it, and sets free/qindex. If the try-acquire fails it does not
// spin: it flips the block's own mark color and reports failure so the
// sweeper re-encounters the block on its next pass (spec.md §4.7).
func (h *Heap) linkBlock(b *Block) bool {
	qi := queueFloor(b.size)
	lock := &h.fq.locks[qi]
	if !lock.tryLock() {
		b.mark = !b.mark
		return false
	}
	h.fq.push(qi, b)
	lock.unlock()
	return true
}

// unlinkBlock removes b from the free queue it currently occupies. Caller
// must already hold that queue's lock (e.g. via a prior successful pop).
func (h *Heap) unlinkBlock(b *Block) {
	h.fq.remove(b)
}

// linkSpareBlock robustly places a fragment produced by a split. If the
// target queue is busy it halves the fragment and retries, guaranteeing
// every byte ends up on some free queue (spec.md §4.7).
func (h *Heap) linkSpareBlock(b *Block) {
	for {
		if h.linkBlock(b) {
			return
		}
		if b.size < 2*minBlockSize {
			// Too small to usefully halve; keep retrying the same block.
			for !h.linkBlock(b) {
			}
			return
		}
		half := alignUp(b.size / 2)
		rest := &Block{
			region:       b.region,
			offset:       b.offset + half,
			size:         b.size - half,
			prevInRegion: b,
			nextInRegion: b.nextInRegion,
			magic:        blockMagic,
		}
		if b.nextInRegion != nil {
			b.nextInRegion.prevInRegion = rest
		}
		b.nextInRegion = rest
		b.size = half
		h.linkSpareBlock(rest)
	}
}

// findFree searches the free queues for a block able to satisfy size,
// starting at sizeToQ(size) and advancing through the bitmap summary.
func (h *Heap) findFree(size uintptr) *Block {
	qi := sizeToQ(size)
	if qi >= numQueues {
		return nil
	}
	for {
		next := h.fq.firstNonEmptyAtOrAbove(qi)
		if next < 0 {
			return nil
		}
		lock := &h.fq.locks[next]
		if !lock.tryLock() {
			qi = next + 1
			if qi >= numQueues {
				return nil
			}
			continue
		}
		b := h.fq.pop(next)
		lock.unlock()
		if b != nil {
			// spec.md §4.5 step 3: unlinking a block from a free queue must
			// stamp it with the heap's current color before it is handed
			// out, so a racing mark phase never mistakes a stale mark bit
			// for liveness and skips re-marking a block it now owns.
			b.mark = h.currentColor()
			return b
		}
		qi = next + 1
		if qi >= numQueues {
			return nil
		}
	}
}

// maybeSplit carves a need-sized prefix out of b when the remainder is
// worth keeping as its own free block, linking the remainder back. Returns
// the (possibly shrunk) block to hand to the caller.
func (h *Heap) maybeSplit(b *Block, need uintptr) *Block {
	if b.isFullRegion() || b.size < need+minBlockSize {
		return b
	}
	spare := b.size - need
	spareBlock := &Block{
		region:       b.region,
		offset:       b.offset + need,
		size:         spare,
		prevInRegion: b,
		nextInRegion: b.nextInRegion,
		magic:        blockMagic,
	}
	if b.nextInRegion != nil {
		b.nextInRegion.prevInRegion = spareBlock
	}
	b.nextInRegion = spareBlock
	b.size = need
	h.linkSpareBlock(spareBlock)
	return b
}

// Alloc returns a block whose usable size is >= usize bytes. It never
// blocks for GC completion, though it may trigger a cycle as a side effect.
// Calling Alloc while the current goroutine has not yielded during the
// MARKING phase is a programming error and panics, matching spec.md §4.5's
// assertion requirement.
func (h *Heap) Alloc(usize uintptr, flags AllocFlag) (unsafe.Pointer, error) {
	if h.marking.Load() {
		panic("heap: Alloc called while the heap is MARKING; yield first via a *Mutator")
	}

	need := alignUp(usize + headerOverhead)
	if need < minBlockSize {
		need = minBlockSize
	}

	// A request above maxBlockSize does not fail: per spec.md's edge cases
	// it goes directly to grow as a fullRegion block that is never split.
	// Only a request that would force a region reservation beyond all
	// reason is rejected outright.
	if need > absoluteMaxAlloc {
		err := tooBigErr(need, absoluteMaxAlloc)
		h.notifyOnce(KeyMemTooBig, err, usize, uintptr(h.bytesAllocated.Load()))
		return nil, err
	}

	if maxHeap := h.maxHeap.Load(); maxHeap > 0 {
		current := h.bytesAllocated.Load()
		if uintptr(current)+need > maxHeap {
			err := limitErr(need, uintptr(current), maxHeap)
			h.notifyOnce(KeyMemLimit, err, usize, uintptr(current))
			switch MemPolicy(h.policy.Load()) {
			case PolicyRestart, PolicyExit:
				return nil, err
			default:
				return nil, err
			}
		}
	}
	if warnHeap := h.warnHeap.Load(); warnHeap > 0 {
		current := h.bytesAllocated.Load()
		if uintptr(current)+need > warnHeap {
			h.notifyOnce(KeyMemWarning, warnErr(uintptr(current), warnHeap), usize, uintptr(current))
		}
	}

	b := h.findFree(need)
	freshFromVM := false
	if b == nil {
		var err error
		b, err = h.growRegion(need)
		if err != nil {
			h.notifyOnce(KeyMemFail, err, usize, uintptr(h.bytesAllocated.Load()))
			return nil, err
		}
		freshFromVM = true
	} else {
		h.checkBlock(b, "alloc")
		b = h.maybeSplit(b, need)
		h.indexBlock(b)
	}

	if h.debug.trackMem {
		h.recordAllocSite(b.size)
	}

	if flags&AllocManager != 0 {
		b.flags |= flagHasMgr
	}

	if flags&AllocZero != 0 && !freshFromVM {
		zero(b.bytes())
	}

	h.bytesAllocated.Add(uint64(b.size))
	h.workDone.Add(uint64(b.size))
	if cur := h.bytesAllocated.Load(); cur > h.bytesPeak.Load() {
		h.bytesPeak.Store(cur)
	}

	h.maybeScheduleGC()

	return b.ptr(), nil
}

// AllocFast is the fastest path: no manager slot, no zeroing.
func (h *Heap) AllocFast(usize uintptr) (unsafe.Pointer, error) {
	return h.Alloc(usize, 0)
}

// Realloc resizes the allocation at ptr to usize bytes, preserving the
// lesser of the old and new sizes' worth of content and the old block's
// manager, if any. Per spec.md §4.6 the old block is not immediately
// freed: it is merely unindexed so it can no longer be looked up, and is
// left for the next sweep to reclaim, since a concurrent mark traversal
// may still be walking the old pointer.
func (h *Heap) Realloc(ptr unsafe.Pointer, usize uintptr) (unsafe.Pointer, error) {
	b := h.blockOf(ptr)
	if b == nil {
		return h.Alloc(usize, 0)
	}
	if b.usableSize() >= usize {
		return ptr, nil
	}

	var flags AllocFlag
	if b.hasManager() {
		flags |= AllocManager
	}
	np, err := h.Alloc(usize, flags)
	if err != nil {
		return nil, err
	}

	oldSize := b.usableSize()
	dst := unsafe.Slice((*byte)(np), usize)
	copy(dst, b.bytes())
	for i := oldSize; i < usize; i++ {
		dst[i] = 0
	}

	if b.hasManager() {
		h.SetManager(np, b.manager)
	}

	h.unindexBlock(b)
	return np, nil
}

// Memdup allocates a copy of the usize bytes at ptr.
func (h *Heap) Memdup(ptr unsafe.Pointer, usize uintptr) (unsafe.Pointer, error) {
	np, err := h.Alloc(usize, 0)
	if err != nil {
		return nil, err
	}
	src := unsafe.Slice((*byte)(ptr), usize)
	copy(unsafe.Slice((*byte)(np), usize), src)
	return np, nil
}

// Memcmp compares n bytes at a and b, bounds-checked against both blocks'
// usable sizes.
func (h *Heap) Memcmp(a, b unsafe.Pointer, n uintptr) (int, error) {
	ba, bb := h.blockOf(a), h.blockOf(b)
	if ba != nil && n > ba.usableSize() {
		return 0, herrIndexOutOfBounds(n, ba.usableSize())
	}
	if bb != nil && n > bb.usableSize() {
		return 0, herrIndexOutOfBounds(n, bb.usableSize())
	}
	sa := unsafe.Slice((*byte)(a), n)
	sb := unsafe.Slice((*byte)(b), n)
	for i := uintptr(0); i < n; i++ {
		if sa[i] != sb[i] {
			if sa[i] < sb[i] {
				return -1, nil
			}
			return 1, nil
		}
	}
	return 0, nil
}

// Memcpy copies n bytes from src to dst, bounds-checked against both
// blocks' usable sizes when known.
func (h *Heap) Memcpy(dst, src unsafe.Pointer, n uintptr) error {
	bd, bs := h.blockOf(dst), h.blockOf(src)
	if bd != nil && n > bd.usableSize() {
		return herrIndexOutOfBounds(n, bd.usableSize())
	}
	if bs != nil && n > bs.usableSize() {
		return herrIndexOutOfBounds(n, bs.usableSize())
	}
	copy(unsafe.Slice((*byte)(dst), n), unsafe.Slice((*byte)(src), n))
	return nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func (h *Heap) flipMark() {
	for {
		old := h.mark.Load()
		if h.mark.CompareAndSwap(old, old^1) {
			return
		}
	}
}
