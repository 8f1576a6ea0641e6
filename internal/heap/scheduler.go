package heap

// maybeScheduleGC trips a cycle when workDone has crossed workQuota since
// the last reset, mirroring spec.md §4.8's scheduler loop. Alloc calls this
// after accounting but never waits on it (GCNoBlock semantics), so the
// actual cycle runs on its own goroutine.
func (h *Heap) maybeScheduleGC() {
	if !h.gcEnabled.Load() {
		return
	}
	if h.pauseGC.Load() > 0 {
		return
	}
	if h.workDone.Load() <= h.workQuota {
		return
	}
	go h.GC(GCNoBlock)
}

// GC runs (or schedules) a collection cycle. GCForce runs even if workDone
// has not crossed workQuota. GCNoBlock returns immediately without waiting
// for the cycle to finish; otherwise GC blocks until the whole cycle, mark
// and sweep, has finished, whether or not GCComplete is set. Returns the
// number of blocks freed by this call (0 for a GCNoBlock call or a cycle
// aborted by the sync timeout).
func (h *Heap) GC(flags GCFlag) (uint64, error) {
	if h.destroyed.Load() {
		return 0, nil
	}
	if !h.gcEnabled.Load() && flags&GCForce == 0 {
		return 0, nil
	}
	if h.pauseGC.Load() > 0 {
		return 0, nil
	}
	if flags&GCForce == 0 && h.workDone.Load() <= h.workQuota {
		return 0, nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.runCycle()
	}()

	if flags&GCNoBlock != 0 {
		return 0, nil
	}
	<-done
	return h.freedBlocks.Load(), nil
}

func (h *Heap) runCycle() {
	h.workDone.Store(0)

	if !h.pauseThreads() {
		h.notifyOnce(KeySyncTimeout, timeoutErr("mark", pauseTimeout), 0, 0)
		h.resumeThreads()
		h.freedBlocks.Store(0)
		return
	}

	h.markPhase()
	h.resumeThreads()

	h.sweepPhase()
}
