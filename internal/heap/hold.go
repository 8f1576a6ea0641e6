package heap

import "unsafe"

// Hold marks the block owning ptr eternal: it is never collected by the
// sweeper regardless of mark color, a cheap O(1) alternative to AddRoot for
// persistent small objects that don't need a manager entry point
// (spec.md §9's "keep both" resolution).
func (h *Heap) Hold(ptr unsafe.Pointer) {
	if b := h.blockOf(ptr); b != nil {
		b.flags |= flagEternal
	}
}

// Release undoes Hold, making the block collectible again once unreachable.
func (h *Heap) Release(ptr unsafe.Pointer) {
	if b := h.blockOf(ptr); b != nil {
		b.flags &^= flagEternal
	}
}

// HoldBlocks holds every pointer in ptrs.
func (h *Heap) HoldBlocks(ptrs ...unsafe.Pointer) {
	for _, p := range ptrs {
		h.Hold(p)
	}
}

// ReleaseBlocks releases every pointer in ptrs.
func (h *Heap) ReleaseBlocks(ptrs ...unsafe.Pointer) {
	for _, p := range ptrs {
		h.Release(p)
	}
}

// PauseGC increments the suppression counter; while it is above zero the
// scheduler will not trigger new cycles.
func (h *Heap) PauseGC() {
	h.pauseGC.Add(1)
}

// ResumeGC decrements the suppression counter. The counter is clamped at
// zero: an unbalanced ResumeGC is a no-op rather than going negative, which
// is SPEC_FULL.md's resolution of spec.md §9's "behavior if unbalanced is
// undefined" -- it keeps the gcPaused() check a simple ">0" test forever.
func (h *Heap) ResumeGC() {
	for {
		old := h.pauseGC.Load()
		if old <= 0 {
			return
		}
		if h.pauseGC.CompareAndSwap(old, old-1) {
			return
		}
	}
}

// GCPaused reports whether the suppression counter is currently above zero.
func (h *Heap) GCPaused() bool {
	return h.pauseGC.Load() > 0
}

// EnableGC toggles whether the scheduler may trigger cycles at all,
// independent of the pause counter. MPR_DISABLE_GC starts this false.
func (h *Heap) EnableGC(enabled bool) {
	h.gcEnabled.Store(enabled)
}
