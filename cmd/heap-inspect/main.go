// Command heap-inspect boots a heap, runs a small allocation workload, and
// prints stats before and after a forced collection. It exists to exercise
// internal/heap end-to-end the way the teacher's single-file cmd/ tools
// (cmd/orizon-config, cmd/test-demo) exercise their own packages.
package main

import (
	"flag"
	"fmt"
	"os"
	"unsafe"

	"github.com/orizon-lang/heapgc/internal/heap"
)

func main() {
	var (
		regionSize int64
		count      int
		size       int
		keepEvery  int
	)
	flag.Int64Var(&regionSize, "region-size", 1<<20, "bytes reserved per region")
	flag.IntVar(&count, "count", 1000, "number of allocations to perform")
	flag.IntVar(&size, "size", 64, "bytes requested per allocation")
	flag.IntVar(&keepEvery, "keep-every", 10, "hold every Nth allocation so it survives GC (0 disables)")
	flag.Parse()

	h, err := heap.NewHeap(heap.WithRegionSize(uintptr(regionSize)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "heap-inspect: %v\n", err)
		os.Exit(1)
	}
	defer h.DestroyMemService()

	var held []unsafe.Pointer
	for i := 0; i < count; i++ {
		ptr, err := h.Alloc(uintptr(size), heap.AllocZero)
		if err != nil {
			fmt.Fprintf(os.Stderr, "heap-inspect: alloc %d: %v\n", i, err)
			os.Exit(1)
		}
		if keepEvery > 0 && i%keepEvery == 0 {
			h.Hold(ptr)
			held = append(held, ptr)
		}
	}

	printStats("before GC", h)

	freed, err := h.GC(heap.GCForce | heap.GCComplete)
	if err != nil {
		fmt.Fprintf(os.Stderr, "heap-inspect: gc: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("freed %d blocks, %d held alive\n", freed, len(held))

	printStats("after GC", h)
}

func printStats(label string, h *heap.Heap) {
	s := h.GetMemStats()
	fmt.Printf("%s: allocated=%d peak=%d free=%d regions=%d\n",
		label, s.BytesAllocated, s.BytesAllocatedPeak, s.BytesFree, s.ActiveRegions)
}
