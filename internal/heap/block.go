package heap

import "unsafe"

// ManageFlag tells a Manager callback why it is being invoked.
type ManageFlag int

const (
	// ManageMark asks the manager to mark every child pointer it owns by
	// calling markBlock on each one. Idempotent: a well-behaved manager
	// checks the child's mark color before recursing, so cyclic graphs
	// terminate.
	ManageMark ManageFlag = iota
	// ManageFree asks the manager to release any non-heap resource the
	// block owns (file handles, sockets, ...) because the block is about
	// to be reclaimed.
	ManageFree
)

func (f ManageFlag) String() string {
	if f == ManageMark {
		return "mark"
	}
	return "free"
}

// Manager is a user-supplied finalizer/marker callback stored with a block.
// For ManageMark it must call Heap.markBlock on every child pointer it owns.
// For ManageFree it must release any external resource and must not touch
// other heap pointers.
type Manager func(ptr unsafe.Pointer, flag ManageFlag)

// blockFlag is a bitset of per-block state. flagFree is set exactly while a
// block sits on a free queue, and qindex then holds that queue's index; a
// live block has qindex 0. Queue 0 is a real size class, so a free block
// on it also has qindex 0: flagFree, not qindex, tells the two apart.
type blockFlag uint32

const (
	flagFree     blockFlag = 1 << iota // block lives on a free queue
	flagFirst                          // first block in its region
	flagFull                           // block occupies the entire region; never split
	flagEternal                        // held/rooted; never collected regardless of mark
	flagHasMgr                         // a Manager is attached
)

// Block is the Go-managed metadata for one allocation unit. Unlike the
// reference's inline header-before-payload layout, metadata lives in a
// normal Go struct and is looked up by payload address (see Heap.blockOf),
// because the payload bytes themselves are carved out of memory reserved
// directly from the OS (vm.go) and are invisible to the Go garbage
// collector -- no Go pointer may be stored inside them.
type Block struct {
	region  *Region
	offset  uintptr // byte offset of the payload within region.payload
	size    uintptr // total bytes this block occupies, payload included
	manager Manager

	flags  blockFlag
	mark   bool // compared against Heap.mark to decide liveness
	qindex int  // size-class index while free; 0 while live

	// free-queue links, valid only while flagFree is set.
	prevFree, nextFree *Block

	// address-ordered neighbors within the owning region, used to find
	// contiguous successors/predecessors for splitting and coalescing.
	prevInRegion, nextInRegion *Block

	// debug fields: magic is set on every block and checked only when
	// MPR_VERIFY_MEM is enabled; seqno and name are never populated.
	magic uint32
	seqno uint64
	name  string
}

const blockMagic = 0xB10c5eed

func (b *Block) isFree() bool       { return b.flags&flagFree != 0 }
func (b *Block) isFirst() bool      { return b.flags&flagFirst != 0 }
func (b *Block) isFullRegion() bool { return b.flags&flagFull != 0 }
func (b *Block) isEternal() bool    { return b.flags&flagEternal != 0 }
func (b *Block) hasManager() bool   { return b.flags&flagHasMgr != 0 }

// usableSize returns the number of bytes available to the caller, i.e. the
// block's total size minus any manager bookkeeping this design keeps
// out-of-band (there is none: the manager pointer lives in Block, not in the
// payload, so usable size equals the full block size).
func (b *Block) usableSize() uintptr { return b.size }

// ptr returns the payload address for this block: GET_PTR(block).
func (b *Block) ptr() unsafe.Pointer {
	return unsafe.Pointer(&b.region.payload[b.offset])
}

// bytes returns the payload as a byte slice bounded to the block's size,
// the idiomatic-Go substitute for raw pointer arithmetic over the region.
func (b *Block) bytes() []byte {
	return b.region.payload[b.offset : b.offset+b.size]
}
