package heap

import (
	stderr "errors"
	"fmt"

	herrors "github.com/orizon-lang/heapgc/internal/errors"
)

// ErrOutOfMemory is a sentinel for out-of-memory conditions. No allocation
// path in this package returns it: a failed VM reservation is reported as a
// MEM_FAIL *errors.StandardError built by wrapSyscallErr.
var ErrOutOfMemory = stderr.New("heap: out of memory")

// wrapSyscallErr turns a raw OS error from the VM backend into a
// herrors.StandardError tagged MEM_FAIL, preserving the failing call name.
func wrapSyscallErr(op string, cause error) error {
	return herrors.MemFail(op, 0, cause)
}

func tooBigErr(size, max uintptr) error {
	return herrors.MemTooBig(size, max)
}

func limitErr(requested, current, max uintptr) error {
	return herrors.MemLimit(requested, current, max)
}

func warnErr(current, warn uintptr) error {
	return herrors.MemWarning(current, warn)
}

func timeoutErr(phase string, waited fmt.Stringer) error {
	return herrors.SyncTimeout(phase, waited.String())
}

func herrIndexOutOfBounds(index, length uintptr) error {
	return herrors.IndexOutOfBounds(index, length)
}
