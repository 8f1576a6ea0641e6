package heap

import "os"

// debugFlags is read once at heap creation, generalizing the teacher's
// build-tag-gated block_manager_debug.go/block_manager_debug_off.go pair
// into the environment-variable toggles spec.md §6 calls for.
type debugFlags struct {
	disableGC bool
	scribble  bool
	verifyMem bool
	trackMem  bool
}

func readDebugFlags() debugFlags {
	return debugFlags{
		disableGC: envBool("MPR_DISABLE_GC"),
		scribble:  envBool("MPR_SCRIBBLE_MEM"),
		verifyMem: envBool("MPR_VERIFY_MEM"),
		trackMem:  envBool("MPR_TRACK_MEM"),
	}
}

func envBool(name string) bool {
	v := os.Getenv(name)
	return v == "1" || v == "true" || v == "TRUE"
}

const scribbleByte = 0xFE

// verifyBlock checks a block's magic word, used when verifyMem is set.
// Mirrors debugStrictCanaryCheck in the teacher's debug build.
func verifyBlock(b *Block) bool {
	return b.magic == blockMagic
}

// checkBlock panics if MPR_VERIFY_MEM is enabled and b's magic word has been
// corrupted, the runtime counterpart of the teacher's build-tag-gated
// canary check: a caller holding a Block whose magic no longer matches has
// a heap-corruption bug, and the cheapest place to surface it is the next
// time that block is handed out or reclaimed.
func (h *Heap) checkBlock(b *Block, op string) {
	if !h.debug.verifyMem {
		return
	}
	if !verifyBlock(b) {
		panic("heap: corrupt block magic detected during " + op)
	}
}
