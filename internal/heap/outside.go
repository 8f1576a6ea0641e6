package heap

import "golang.org/x/sync/singleflight"

// EventFlag modifies CreateEventOutside.
type EventFlag uint32

const (
	// EventBlock waits for proc to finish before returning (the behavior
	// described by spec.md §6). Without it, CreateEventOutside does not wait.
	EventBlock EventFlag = 1 << iota
)

// OutsideProc is user code invoked on the dispatcher from CreateEventOutside.
type OutsideProc func(data interface{})

// CreateEventOutside is safe to call from a foreign, non-heap-owned
// goroutine: it pauses GC, runs proc with data on the given dispatcher
// name, then resumes GC. With EventBlock, GC stays paused until proc
// returns; without it, proc is started on its own goroutine and GC is
// resumed without waiting for proc. golang.org/x/sync/singleflight collapses
// concurrent calls sharing the same dispatcher name into a single
// in-flight proc invocation, giving the "at-most-one simultaneous
// invocation per foreign thread" guarantee spec.md §6 calls for --
// mirroring the teacher's own singleflight-backed dedup in
// internal/packagemanager/httpregistry.go.
func (h *Heap) CreateEventOutside(dispatcher string, proc OutsideProc, data interface{}, flags EventFlag) error {
	h.PauseGC()
	defer h.ResumeGC()

	run := func() (interface{}, error) {
		proc(data)
		return nil, nil
	}

	if flags&EventBlock != 0 {
		_, err, _ := h.outsideGroup.Do(dispatcher, run)
		return err
	}

	go h.outsideGroup.Do(dispatcher, run)
	return nil
}
