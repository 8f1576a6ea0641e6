package heap

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sync/singleflight"
)

// Heap is the process-wide allocator and collector service, the Go
// counterpart of the reference's Mpr singleton (spec.md §3). It is modeled
// as an explicit, constructible service rather than a package-level global
// so tests can create several independent heaps; callers that want a single
// process-wide instance can still wrap NewHeap in a sync.Once, the way the
// teacher's internal/allocator.GlobalAllocator does.
type Heap struct {
	vm    vmBackend
	debug debugFlags

	regions regionList
	fq      *freeQueues
	nextID  atomic.Uint64

	// block index stands in for GET_MEM/GET_REGION pointer arithmetic:
	// every live payload address maps back to its Go-managed Block.
	blockMu sync.RWMutex
	blocks  map[unsafe.Pointer]*Block

	rootsMu sync.Mutex
	roots   map[unsafe.Pointer]*Block

	rootManager Manager

	mark       atomic.Uint32 // current mark color, toggled per cycle
	mustYield  atomic.Bool
	marking    atomic.Bool
	sweeping   atomic.Bool
	pauseGC    atomic.Int32
	gcEnabled  atomic.Bool

	bytesAllocated atomic.Uint64
	bytesFree      atomic.Uint64
	bytesPeak      atomic.Uint64
	workDone       atomic.Uint64
	workQuota      uint64
	freedBlocks    atomic.Uint64

	regionSize uintptr
	maxHeap    atomic.Uintptr
	warnHeap   atomic.Uintptr
	cacheHeap  atomic.Uintptr
	lowHeap    uintptr
	policy     atomic.Int32 // MemPolicy, read by Alloc without holding any lock
	notifier   atomic.Pointer[NotifierFunc]
	logger     Logger

	warnedOnce sync.Map // ErrorCategoryKey -> struct{}, one notifier call per first occurrence

	threads *threadService

	sites *siteTracker

	outsideGroup singleflight.Group

	destroyed atomic.Bool
}

// NewHeap boots a heap, installs the root manager, and creates the
// sweeper's condition variable. Equivalent to spec.md §6's
// createMemService(manager, flags).
func NewHeap(opts ...Option) (*Heap, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	h := &Heap{
		vm:          defaultVM,
		debug:       readDebugFlags(),
		fq:          newFreeQueues(),
		blocks:      make(map[unsafe.Pointer]*Block),
		roots:       make(map[unsafe.Pointer]*Block),
		rootManager: cfg.RootManager,
		regionSize:  cfg.RegionSize,
		lowHeap:     cfg.LowHeap,
		workQuota:   cfg.WorkQuota,
		logger:      cfg.Logger,
		threads:     newThreadService(),
		sites:       newSiteTracker(),
	}
	h.maxHeap.Store(cfg.MaxHeap)
	h.warnHeap.Store(cfg.WarnHeap)
	h.cacheHeap.Store(cfg.CacheHeap)
	h.policy.Store(int32(cfg.Policy))
	if cfg.Notifier != nil {
		h.notifier.Store(&cfg.Notifier)
	}
	h.gcEnabled.Store(!h.debug.disableGC)

	// Unlike the reference, which places its Mpr singleton inside the first
	// region's first block (Heap's own metadata shares block lifetime
	// rules), Heap here is an ordinary Go-managed struct with nothing to
	// place in region memory, so the first region is grown lazily on the
	// first real Alloc rather than reserved eagerly here.
	return h, nil
}

// DestroyMemService releases every region and the heap's own VM mappings.
// Before releasing memory it invokes ManageFree on every still-live block
// that carries a manager, so external resources are not silently leaked at
// teardown (SPEC_FULL.md's resolution of the destructors-on-shutdown
// question). Reinitializing a destroyed Heap is out of scope.
func (h *Heap) DestroyMemService() error {
	if !h.destroyed.CompareAndSwap(false, true) {
		return nil
	}

	h.blockMu.Lock()
	for _, b := range h.blocks {
		if b.hasManager() && b.manager != nil {
			b.manager(b.ptr(), ManageFree)
		}
	}
	h.blockMu.Unlock()

	var firstErr error
	h.regions.forEach(func(r *Region) {
		if err := r.release(h.vm); err != nil && firstErr == nil {
			firstErr = err
		}
	})
	return firstErr
}

func (h *Heap) notify(cause error, size, used uintptr) {
	h.logger.Warnf("%v (size=%d used=%d)", cause, size, used)
	if n := h.notifier.Load(); n != nil {
		(*n)(cause, MemPolicy(h.policy.Load()), size, used)
	}
}

func (h *Heap) notifyOnce(key ErrorCategoryKey, cause error, size, used uintptr) {
	if _, loaded := h.warnedOnce.LoadOrStore(key, struct{}{}); loaded {
		return
	}
	h.notify(cause, size, used)
}

// ErrorCategoryKey identifies which §7 cause a notifyOnce call is for.
type ErrorCategoryKey int

const (
	KeyMemFail ErrorCategoryKey = iota
	KeyMemTooBig
	KeyMemLimit
	KeyMemWarning
	KeySyncTimeout
)

// currentColor reports the heap's current mark color as a bool, the same
// comparison mark.go uses for markBlock's idempotence check. Every block
// handed out by Alloc -- whether unlinked from a free queue or freshly
// carved by growRegion -- must be stamped with this color before it
// reaches the caller, so a concurrent mark phase sees it as already live
// (spec.md §4.9: "every block freshly allocated during this window
// inherits the new color").
func (h *Heap) currentColor() bool {
	return h.mark.Load() != 0
}

// blockOf looks up the Block owning payload address ptr, the Go-idiomatic
// substitute for GET_MEM(ptr).
func (h *Heap) blockOf(ptr unsafe.Pointer) *Block {
	h.blockMu.RLock()
	b := h.blocks[ptr]
	h.blockMu.RUnlock()
	return b
}

func (h *Heap) indexBlock(b *Block) {
	h.blockMu.Lock()
	h.blocks[b.ptr()] = b
	h.blockMu.Unlock()
}

func (h *Heap) unindexBlock(b *Block) {
	h.blockMu.Lock()
	delete(h.blocks, b.ptr())
	h.blockMu.Unlock()
}

// SetManager installs manager on the block owning ptr. Equivalent to
// spec.md §6's setManager(ptr, manager).
func (h *Heap) SetManager(ptr unsafe.Pointer, m Manager) {
	b := h.blockOf(ptr)
	if b == nil {
		return
	}
	b.manager = m
	if m != nil {
		b.flags |= flagHasMgr
	} else {
		b.flags &^= flagHasMgr
	}
}

// GetManager returns the manager installed on the block owning ptr, or nil.
func (h *Heap) GetManager(ptr unsafe.Pointer) Manager {
	b := h.blockOf(ptr)
	if b == nil {
		return nil
	}
	return b.manager
}
