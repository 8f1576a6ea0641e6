package heap

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net"
	"net/http"
	"strconv"
)

// StatsServer exposes GetMemStats over a plain-text HTTP endpoint, adapted
// down from the teacher's metrics_exporter.go (StartMetricsServer,
// bearerAuthMiddleware) to the smaller field set heap.Stats carries.
type StatsServer struct {
	h      *Heap
	server *http.Server
}

// StartStatsServer starts an HTTP server on addr serving heap statistics at
// "/stats" in a simple "key value" text exposition, one per line, matching
// the teacher's sanitizeMetricToken-guarded plain-text format rather than
// adopting a full metrics client library the reference pack never imports.
func StartStatsServer(h *Heap, addr, bearerToken string) (*StatsServer, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		if bearerToken != "" && !validBearer(r, bearerToken) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		writeStats(w, h.GetMemStats())
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, wrapSyscallErr("listen", err)
	}
	go srv.Serve(ln)

	return &StatsServer{h: h, server: srv}, nil
}

// Close shuts the server down.
func (s *StatsServer) Close() error {
	return s.server.Shutdown(context.Background())
}

func validBearer(r *http.Request, token string) bool {
	got := r.Header.Get("Authorization")
	want := "Bearer " + token
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func writeStats(w http.ResponseWriter, s Stats) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fields := [][2]string{
		{"bytes_allocated", strconv.FormatUint(uint64(s.BytesAllocated), 10)},
		{"bytes_allocated_peak", strconv.FormatUint(uint64(s.BytesAllocatedPeak), 10)},
		{"bytes_free", strconv.FormatUint(uint64(s.BytesFree), 10)},
		{"max_heap", strconv.FormatUint(uint64(s.MaxHeap), 10)},
		{"warn_heap", strconv.FormatUint(uint64(s.WarnHeap), 10)},
		{"cache_heap", strconv.FormatUint(uint64(s.CacheHeap), 10)},
		{"cpu_cores", strconv.Itoa(s.CPUCores)},
		{"page_size", strconv.FormatUint(uint64(s.PageSize), 10)},
		{"active_regions", strconv.Itoa(s.ActiveRegions)},
		{"freed_blocks", strconv.FormatUint(s.FreedBlocks, 10)},
	}
	for _, f := range fields {
		fmt.Fprintf(w, "heap_%s %s\n", f[0], f[1])
	}
}
