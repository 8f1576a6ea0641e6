package heap

import "testing"

func TestPauseResumeGCClampedAtZero(t *testing.T) {
	h := newTestHeap(t)

	if h.GCPaused() {
		t.Fatal("GCPaused true before any PauseGC")
	}

	h.ResumeGC() // unbalanced: must be a no-op, not go negative
	if h.pauseGC.Load() != 0 {
		t.Fatalf("pauseGC = %d after unbalanced ResumeGC, want 0", h.pauseGC.Load())
	}

	h.PauseGC()
	h.PauseGC()
	if !h.GCPaused() {
		t.Fatal("GCPaused false after two PauseGC calls")
	}
	h.ResumeGC()
	if !h.GCPaused() {
		t.Fatal("GCPaused false after only one matching ResumeGC")
	}
	h.ResumeGC()
	if h.GCPaused() {
		t.Fatal("GCPaused true after balanced ResumeGC calls")
	}

	h.ResumeGC()
	h.ResumeGC()
	if h.pauseGC.Load() != 0 {
		t.Fatalf("pauseGC went negative: %d", h.pauseGC.Load())
	}
}

func TestHoldSurvivesForcedGC(t *testing.T) {
	h := newTestHeap(t)

	ptr, err := h.Alloc(32, 0)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	h.Hold(ptr)

	if _, err := h.GC(GCForce | GCComplete); err != nil {
		t.Fatalf("GC: %v", err)
	}
	if h.blockOf(ptr) == nil {
		t.Fatal("held pointer did not survive GC(FORCE|COMPLETE)")
	}
}

func TestHoldBlocksAndReleaseBlocks(t *testing.T) {
	h := newTestHeap(t)

	p1, _ := h.Alloc(16, 0)
	p2, _ := h.Alloc(16, 0)
	h.HoldBlocks(p1, p2)

	if !h.blockOf(p1).isEternal() || !h.blockOf(p2).isEternal() {
		t.Fatal("HoldBlocks did not mark both blocks eternal")
	}

	h.ReleaseBlocks(p1, p2)
	if h.blockOf(p1).isEternal() || h.blockOf(p2).isEternal() {
		t.Fatal("ReleaseBlocks did not clear eternal flag")
	}
}
