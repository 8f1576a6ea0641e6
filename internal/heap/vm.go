package heap

// vmBackend reserves and releases page-aligned memory directly from the
// operating system, outside the reach of Go's own garbage collector. The
// reference's region_alloc.go fakes this with make([]byte) plus manual
// pointer alignment (allocateSystemMemory); heapgc replaces that bootstrap
// placeholder with real mmap/VirtualAlloc so a Region's payload is genuine
// OS-backed memory, matching spec.md §4.1's "virtual memory backend" module.
type vmBackend interface {
	// reserve allocates size bytes (already page-rounded by the caller) and
	// returns a byte slice backed by that memory. The slice's Cap equals
	// size; its contents are zeroed by the OS.
	reserve(size uintptr) ([]byte, error)
	// release returns memory obtained from reserve back to the OS.
	release(b []byte) error
	// pageSize reports the platform's page granularity.
	pageSize() uintptr
}

var defaultVM = newVMBackend()
