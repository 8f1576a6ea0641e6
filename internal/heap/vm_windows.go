//go:build windows

package heap

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// windowsVM reserves memory with VirtualAlloc(MEM_COMMIT|MEM_RESERVE), the
// Windows counterpart the teacher's region allocator names but never
// implements (allocateSystemMemory falls back to make([]byte) on every
// platform today).
type windowsVM struct {
	page uintptr
}

func newVMBackend() vmBackend {
	var si windows.SystemInfo
	windows.GetSystemInfo(&si)
	return &windowsVM{page: uintptr(si.PageSize)}
}

func (v *windowsVM) pageSize() uintptr { return v.page }

func (v *windowsVM) reserve(size uintptr) ([]byte, error) {
	addr, err := windows.VirtualAlloc(0, size, windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, wrapSyscallErr("VirtualAlloc", err)
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), int(size)), nil
}

func (v *windowsVM) release(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	addr := uintptr(unsafe.Pointer(&b[0]))
	if err := windows.VirtualFree(addr, 0, windows.MEM_RELEASE); err != nil {
		return wrapSyscallErr("VirtualFree", err)
	}
	return nil
}

func addrOf(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}
