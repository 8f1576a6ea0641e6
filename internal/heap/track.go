package heap

import (
	"runtime"
	"strconv"
	"sync"
)

// AllocSiteStat accumulates allocation counts and bytes for one call site,
// the per-allocation-site accounting MPR_TRACK_MEM enables (spec.md §6).
type AllocSiteStat struct {
	Count uint64
	Bytes uint64
}

// siteTracker holds one AllocSiteStat per "file:line" call site, keyed the
// way the teacher's metrics.go keys RegionMetrics per region rather than
// globally: coarse enough to be cheap, precise enough to find a leaking
// call site.
type siteTracker struct {
	mu    sync.Mutex
	sites map[string]*AllocSiteStat
}

func newSiteTracker() *siteTracker {
	return &siteTracker{sites: make(map[string]*AllocSiteStat)}
}

func (t *siteTracker) record(site string, size uintptr) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.sites[site]
	if !ok {
		s = &AllocSiteStat{}
		t.sites[site] = s
	}
	s.Count++
	s.Bytes += uint64(size)
}

func (t *siteTracker) snapshot() map[string]AllocSiteStat {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]AllocSiteStat, len(t.sites))
	for site, s := range t.sites {
		out[site] = *s
	}
	return out
}

// recordAllocSite attributes size bytes to the direct caller of Heap.Alloc
// (callerSite skips itself, recordAllocSite and Alloc), not Alloc itself;
// for an allocation made through Mutator.Alloc that caller is
// Mutator.Alloc. Only called when MPR_TRACK_MEM is set, since
// runtime.Caller is not free.
func (h *Heap) recordAllocSite(size uintptr) {
	site := callerSite(3)
	h.sites.record(site, size)
}

func callerSite(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	return formatSite(file, line)
}

func formatSite(file string, line int) string {
	short := file
	for i := len(file) - 1; i >= 0; i-- {
		if file[i] == '/' {
			short = file[i+1:]
			break
		}
	}
	return short + ":" + strconv.Itoa(line)
}

// AllocSiteStats returns a point-in-time snapshot of per-call-site
// allocation counts, populated only when MPR_TRACK_MEM is enabled; it is
// empty otherwise.
func (h *Heap) AllocSiteStats() map[string]AllocSiteStat {
	return h.sites.snapshot()
}
