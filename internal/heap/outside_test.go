package heap

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestCreateEventOutsideRunsProcAndPausesGC(t *testing.T) {
	h := newTestHeap(t)

	var ran atomic.Bool
	var sawPaused atomic.Bool
	err := h.CreateEventOutside("dispatcher-a", func(data interface{}) {
		sawPaused.Store(h.GCPaused())
		ran.Store(true)
	}, nil, EventBlock)
	if err != nil {
		t.Fatalf("CreateEventOutside: %v", err)
	}
	if !ran.Load() {
		t.Fatal("proc never ran")
	}
	if !sawPaused.Load() {
		t.Error("GC was not paused while proc ran")
	}
	if h.GCPaused() {
		t.Error("GC still paused after CreateEventOutside returned")
	}
}

func TestCreateEventOutsideDedupesConcurrentCallers(t *testing.T) {
	h := newTestHeap(t)

	var calls atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			h.CreateEventOutside("shared-key", func(data interface{}) {
				calls.Add(1)
			}, nil, EventBlock)
		}()
	}
	close(start)
	wg.Wait()

	if got := calls.Load(); got < 1 || got > 8 {
		t.Fatalf("unexpected call count %d", got)
	}
}
