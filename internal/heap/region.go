package heap

import "sync/atomic"

// regionHeaderSize approximates the Go-side bookkeeping kept for each
// Region, mirrored into size accounting so sum(block sizes) + overhead
// equals the region's total reservation (spec.md §8's tiling invariant).
const regionHeaderSize = 64

// Region is a contiguous VM reservation subdivided into Blocks. Regions form
// a lock-free singly linked list off the owning Heap, prepended with CAS the
// way the teacher's concurrency package (cas.go, lfqueue.go) prefers atomic
// loops over mutexes for hot insertion paths.
type Region struct {
	id       uint64
	payload  []byte // raw VM-backed bytes; opaque to the Go GC
	size     uintptr
	first    *Block // first block in address order
	freeable bool   // every block has become free and this region may be released
	next     atomic.Pointer[Region]
}

// newRegion reserves size bytes from vm and wraps them as a fresh Region
// with a single block spanning the whole payload.
func newRegion(id uint64, size uintptr, vm vmBackend) (*Region, error) {
	pageSize := vm.pageSize()
	reserveSize := pageAlignUp(size, pageSize)

	payload, err := vm.reserve(reserveSize)
	if err != nil {
		return nil, wrapSyscallErr("reserve", err)
	}

	r := &Region{id: id, payload: payload, size: reserveSize}
	r.first = &Block{
		region: r,
		offset: regionHeaderSize,
		size:   reserveSize - regionHeaderSize,
		flags:  flagFirst,
		magic:  blockMagic,
	}
	return r, nil
}

// release returns the region's payload to the OS.
func (r *Region) release(vm vmBackend) error {
	if err := vm.release(r.payload); err != nil {
		return wrapSyscallErr("release", err)
	}
	return nil
}

// regionList is the heap's lock-free list of live regions.
type regionList struct {
	head atomic.Pointer[Region]
}

// prepend links r onto the head of the list with a CAS loop, matching
// spec.md §4.2's "Insertion into regions is atomic: lock-free list prepend
// using CAS."
func (l *regionList) prepend(r *Region) {
	for {
		old := l.head.Load()
		r.next.Store(old)
		if l.head.CompareAndSwap(old, r) {
			return
		}
	}
}

// remove unlinks r from the list. Sweep is the only caller. Mutators are
// resumed before the sweep starts, so they may prepend concurrently: the
// head is removed with a CAS, and an interior node is removed by rewriting
// a non-head link, which a prepend never touches.
func (l *regionList) remove(target *Region) bool {
	for {
		head := l.head.Load()
		if head == nil {
			return false
		}
		if head == target {
			if l.head.CompareAndSwap(head, target.next.Load()) {
				return true
			}
			continue
		}
		prev := head
		for {
			cur := prev.next.Load()
			if cur == nil {
				return false
			}
			if cur == target {
				prev.next.Store(target.next.Load())
				return true
			}
			prev = cur
		}
	}
}

// forEach visits every region in the list. It is used by sweep, by
// GetMemStats and at shutdown, possibly while mutators prepend; each link
// is read with an atomic load, and a region prepended during the walk is
// not visited.
func (l *regionList) forEach(fn func(*Region)) {
	for r := l.head.Load(); r != nil; r = r.next.Load() {
		fn(r)
	}
}
