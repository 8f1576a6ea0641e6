package heap

import "runtime"

// Stats is the snapshot returned by GetMemStats, trimmed from the teacher's
// richer metrics.go RegionMetrics down to the fields spec.md §6 calls out
// as "optional but testable."
type Stats struct {
	BytesAllocated     uintptr
	BytesAllocatedPeak uintptr
	BytesFree          uintptr
	MaxHeap            uintptr
	WarnHeap           uintptr
	CacheHeap          uintptr
	CPUCores           int
	PageSize           uintptr
	ActiveRegions      int
	FreedBlocks        uint64
}

// GetMemStats returns a point-in-time snapshot of heap accounting.
func (h *Heap) GetMemStats() Stats {
	regions := 0
	h.regions.forEach(func(*Region) { regions++ })

	return Stats{
		BytesAllocated:     uintptr(h.bytesAllocated.Load()),
		BytesAllocatedPeak: uintptr(h.bytesPeak.Load()),
		BytesFree:          uintptr(h.bytesFree.Load()),
		MaxHeap:            h.maxHeap.Load(),
		WarnHeap:           h.warnHeap.Load(),
		CacheHeap:          h.cacheHeap.Load(),
		CPUCores:           runtime.NumCPU(),
		PageSize:           h.vm.pageSize(),
		ActiveRegions:      regions,
		FreedBlocks:        h.freedBlocks.Load(),
	}
}

// SetMemLimits updates the warn/max/cache thresholds at runtime.
func (h *Heap) SetMemLimits(warn, max, cache uintptr) {
	h.warnHeap.Store(warn)
	h.maxHeap.Store(max)
	h.cacheHeap.Store(cache)
}

// SetMemPolicy updates how the heap reacts to MEM_LIMIT.
func (h *Heap) SetMemPolicy(p MemPolicy) {
	h.policy.Store(int32(p))
}

// SetMemNotifier installs (or replaces) the allocation-failure callback.
func (h *Heap) SetMemNotifier(n NotifierFunc) {
	if n == nil {
		h.notifier.Store(nil)
		return
	}
	h.notifier.Store(&n)
}
