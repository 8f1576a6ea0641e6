package heap

import (
	"time"
	"unsafe"
)

// pauseTimeout is how long pauseThreads waits for every registered mutator
// to yield before aborting the cycle (spec.md §4.13's "pauseThreads times
// out (default 100ms)").
const pauseTimeout = 100 * time.Millisecond

// markBlock marks the block owning ptr with the heap's current color. It is
// idempotent: if the block already carries the current color the call
// returns immediately without recursing, which is what makes cyclic object
// graphs terminate (spec.md §9's "mark-is-idempotent pattern"). A manager
// callback must call this for every child pointer it owns.
func (h *Heap) markBlock(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	b := h.blockOf(ptr)
	if b == nil {
		return
	}
	color := h.currentColor()
	if b.mark == color {
		return
	}
	b.mark = color

	if b.hasManager() && b.manager != nil {
		b.manager(ptr, ManageMark)
	}
}

// AddRoot registers ptr as a permanent root: its block (and anything its
// manager marks) is always considered reachable until RemoveRoot.
func (h *Heap) AddRoot(ptr unsafe.Pointer) {
	b := h.blockOf(ptr)
	if b == nil {
		return
	}
	h.rootsMu.Lock()
	h.roots[ptr] = b
	h.rootsMu.Unlock()
}

// RemoveRoot undoes AddRoot.
func (h *Heap) RemoveRoot(ptr unsafe.Pointer) {
	h.rootsMu.Lock()
	delete(h.roots, ptr)
	h.rootsMu.Unlock()
}

// pauseThreads requests every registered mutator to yield and waits up to
// pauseTimeout for them to do so. Returns false on timeout, in which case
// the caller must abort the cycle (spec.md §7's SYNC_TIMEOUT).
func (h *Heap) pauseThreads() bool {
	h.mustYield.Store(true)
	ts := h.threads
	ts.wakeAll()

	// A timer-driven broadcast wakes the wait loop below if some mutator
	// never yields, rather than polling allYielded in a tight loop. The
	// deadline is taken before the timer starts, so the timer never fires
	// ahead of it.
	deadline := time.Now().Add(pauseTimeout)
	timer := time.AfterFunc(pauseTimeout, ts.wakeAll)
	defer timer.Stop()

	ts.mu.Lock()
	defer ts.mu.Unlock()
	for !ts.allYieldedLocked() {
		if !time.Now().Before(deadline) {
			return false
		}
		ts.cond.Wait()
	}
	return true
}

func (h *Heap) resumeThreads() {
	h.mustYield.Store(false)
	h.threads.wakeAll()
}

// markPhase toggles the mark color, marks every root (and, transitively,
// everything root managers reach), holding the world paused throughout
// (spec.md §4.10).
func (h *Heap) markPhase() error {
	h.marking.Store(true)
	defer func() {
		h.marking.Store(false)
		h.threads.wakeAll()
	}()

	h.flipMark()
	color := h.currentColor()

	h.rootsMu.Lock()
	roots := make([]*Block, 0, len(h.roots))
	for _, b := range h.roots {
		roots = append(roots, b)
	}
	h.rootsMu.Unlock()

	h.blockMu.RLock()
	for _, b := range h.blocks {
		if b.isEternal() {
			roots = append(roots, b)
		}
	}
	h.blockMu.RUnlock()

	for _, b := range roots {
		b.mark = color
		if b.hasManager() && b.manager != nil {
			b.manager(b.ptr(), ManageMark)
		}
	}

	if h.rootManager != nil {
		h.rootManager(nil, ManageMark)
	}

	return nil
}
