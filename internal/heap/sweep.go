package heap

import "golang.org/x/sync/errgroup"

// freeBlock reclaims b: optionally scribbles its payload, coalesces it with
// an immediately following free neighbor, and links the result onto a free
// queue. Returns the (possibly grown) block that was linked.
func (h *Heap) freeBlock(b *Block) *Block {
	h.checkBlock(b, "free")
	h.unindexBlock(b)

	if h.debug.scribble {
		bytes := b.bytes()
		for i := range bytes {
			bytes[i] = scribbleByte
		}
	}

	b = h.coalesce(b)
	h.linkSpareBlock(b)
	return b
}

// coalesce merges b with its address-contiguous successor while that
// successor is also free, following spec.md §4.11's "if bytesFree >=
// cacheHeap, speculatively claim successor and continue" rule: coalescing
// only runs once enough free memory has accumulated that the extra work is
// worth it.
func (h *Heap) coalesce(b *Block) *Block {
	if h.bytesFree.Load() < uint64(h.cacheHeap.Load()) {
		return b
	}

	for {
		next := b.nextInRegion
		if next == nil || !next.isFree() {
			break
		}
		lock := &h.fq.locks[next.qindex]
		if !lock.tryLock() {
			break
		}
		h.fq.remove(next)
		lock.unlock()

		b.size += next.size
		b.nextInRegion = next.nextInRegion
		if next.nextInRegion != nil {
			next.nextInRegion.prevInRegion = b
		}
	}
	return b
}

// sweepRegion walks one region's blocks in address order, reclaiming
// garbage and returning the number of blocks freed and whether the region
// became entirely free (and so eligible for release back to the OS).
func (h *Heap) sweepRegion(r *Region) (freed int, freeable bool) {
	color := h.currentColor()

	for b := r.first; b != nil; b = b.nextInRegion {
		if b.isEternal() {
			continue
		}
		if b.isFree() {
			continue
		}
		if b.mark == color {
			continue // live
		}

		if b.hasManager() && b.manager != nil {
			b.manager(b.ptr(), ManageFree)
		}
		h.bytesAllocated.Add(^uint64(b.size - 1)) // atomic subtract
		h.bytesFree.Add(uint64(b.size))
		h.freeBlock(b)
		freed++
	}

	freeable = r.first.isFree() && r.first.nextInRegion == nil
	if freeable {
		r.freeable = true
	}
	return freed, freeable
}

// Sweep identifies unmarked blocks across every region, invokes their
// managers with ManageFree, returns their memory to free queues, and
// releases regions that became entirely free. Regions are swept
// concurrently via errgroup, matching spec.md §4.11's "sweep runs in
// parallel with mutators" and the teacher's own errgroup-based fan-out
// (internal/packagemanager/manager.go).
func (h *Heap) sweepPhase() (freedTotal uint64, err error) {
	h.sweeping.Store(true)
	defer func() {
		h.sweeping.Store(false)
		h.threads.wakeAll()
	}()

	var regions []*Region
	h.regions.forEach(func(r *Region) { regions = append(regions, r) })

	var g errgroup.Group
	freedCounts := make([]int, len(regions))
	freeableFlags := make([]bool, len(regions))

	for i, r := range regions {
		i, r := i, r
		g.Go(func() error {
			freed, freeable := h.sweepRegion(r)
			freedCounts[i] = freed
			freeableFlags[i] = freeable
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	for i, r := range regions {
		freedTotal += uint64(freedCounts[i])
		if freeableFlags[i] {
			if r.first.isFree() {
				lock := &h.fq.locks[r.first.qindex]
				lock.lock()
				h.fq.remove(r.first)
				lock.unlock()
			}
			h.regions.remove(r)
			if relErr := r.release(h.vm); relErr != nil && err == nil {
				err = relErr
			}
		}
	}

	h.freedBlocks.Store(freedTotal)
	return freedTotal, err
}
