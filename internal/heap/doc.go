// Package heap implements a size-classed memory allocator and a cooperative
// mark-and-sweep garbage collector for embedded runtimes.
//
// The design mirrors the Orizon runtime's region-based allocator
// (internal/runtime/region_alloc.go, internal/runtime/block_manager.go) and
// its allocator configuration conventions (internal/allocator/allocator.go),
// generalized to add free-queue recycling, manager-callback marking, and a
// cooperative stop-the-world pause protocol for the mark phase.
//
// Each Heap owns a linked list of Regions reserved directly
// from the operating system (see vm.go), carved into Blocks. Blocks are
// tracked by Go-managed metadata rather than header bytes prefixed into the
// raw region memory: region payload bytes are handed to mmap/VirtualAlloc
// and are opaque to the Go garbage collector, so no Go pointer may live
// inside them. Block is the narrow, typed boundary the rest of the package
// uses instead of raw pointer arithmetic.
package heap
