package heap

import (
	"sync"
	"unsafe"
)

// threadService enumerates registered Mutators and gives the sweeper a
// rendezvous point to wait for them all to yield, the Go counterpart of
// the reference's thread service (per-thread condition variables plus a
// roster the sweeper walks during pauseThreads).
type threadService struct {
	mu       sync.Mutex
	cond     *sync.Cond
	mutators map[*Mutator]struct{}
}

func newThreadService() *threadService {
	ts := &threadService{mutators: make(map[*Mutator]struct{})}
	ts.cond = sync.NewCond(&ts.mu)
	return ts
}

func (ts *threadService) register(m *Mutator) {
	ts.mu.Lock()
	ts.mutators[m] = struct{}{}
	ts.mu.Unlock()
}

func (ts *threadService) unregister(m *Mutator) {
	ts.mu.Lock()
	delete(ts.mutators, m)
	ts.mu.Unlock()
	ts.cond.Broadcast()
}

// allYielded reports whether every registered mutator is currently yielded,
// the pauseThreads success condition. pauseThreads itself does not poll
// this: it checks allYieldedLocked while parked on ts.cond.
func (ts *threadService) allYielded() bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.allYieldedLocked()
}

// allYieldedLocked is allYielded's body for a caller that already holds
// ts.mu, used by pauseThreads while it is parked on ts.cond.
func (ts *threadService) allYieldedLocked() bool {
	for m := range ts.mutators {
		if !m.isYielded() {
			return false
		}
	}
	return true
}

// wakeAll is called whenever marking or sweeping transitions, releasing any
// mutator parked in Yield.
func (ts *threadService) wakeAll() {
	ts.mu.Lock()
	ts.cond.Broadcast()
	ts.mu.Unlock()
}

// Mutator is a cooperative-GC participant: a goroutine that registers once
// and calls Yield at safepoints so the sweeper's stop-the-world mark phase
// can run. Goroutines that never register simply may never call Alloc
// while the heap is marking -- Heap.Alloc panics unconditionally in that
// window; Mutator.Alloc is the path for goroutines willing to cooperate.
type Mutator struct {
	h  *Heap
	mu sync.Mutex

	yielded     bool
	stickyYield bool
}

// NewMutator registers a new cooperative participant with the heap.
func (h *Heap) NewMutator() *Mutator {
	m := &Mutator{h: h}
	h.threads.register(m)
	return m
}

// Close unregisters the mutator.
func (m *Mutator) Close() {
	m.h.threads.unregister(m)
}

func (m *Mutator) isYielded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.yielded || m.stickyYield
}

// Yield is this mutator's safepoint. YieldNormal blocks until the mark
// phase ends; YieldComplete additionally waits for sweep to finish.
// YieldSticky returns immediately -- the goroutine promises not to touch
// the heap again until ResetYield (spec.md §4.9).
func (m *Mutator) Yield(flags YieldFlag) {
	ts := m.h.threads

	m.mu.Lock()
	m.yielded = true
	if flags == YieldSticky {
		m.stickyYield = true
		m.mu.Unlock()
		ts.wakeAll()
		return
	}
	m.mu.Unlock()
	ts.wakeAll()

	ts.mu.Lock()
	for m.h.marking.Load() || (flags == YieldComplete && m.h.sweeping.Load()) {
		ts.cond.Wait()
	}
	ts.mu.Unlock()

	m.mu.Lock()
	m.yielded = false
	m.mu.Unlock()
}

// ResetYield clears a sticky yield, re-admitting the mutator to the heap.
func (m *Mutator) ResetYield() {
	m.mu.Lock()
	m.yielded = false
	m.stickyYield = false
	m.mu.Unlock()
	m.h.threads.wakeAll()
}

// NeedYield reports whether the sweeper has requested a pause.
func (m *Mutator) NeedYield() bool {
	return m.h.mustYield.Load()
}

// Alloc is the cooperative equivalent of Heap.Alloc: it yields first if the
// sweeper has requested a pause, then allocates as a registered,
// already-yielded-and-resumed mutator.
func (m *Mutator) Alloc(usize uintptr, flags AllocFlag) (unsafe.Pointer, error) {
	if m.NeedYield() {
		m.Yield(YieldNormal)
	}
	return m.h.Alloc(usize, flags)
}
