//go:build windows

package scanner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	psapi                 = windows.NewLazySystemDLL("psapi.dll")
	procEnumProcesses     = psapi.NewProc("EnumProcesses")
	procGetModuleBaseName = psapi.NewProc("GetModuleBaseNameW")
)

// windowsReader implements ProcessReader using raw OS calls, the same idiom
// the rest of this codebase reaches for on Windows: NewLazySystemDLL procs
// instead of a heavier cgo or wmi dependency.
type windowsReader struct {
	mu     sync.Mutex
	handle windows.Handle
	pid    uint32
}

const (
	processQueryInfo = windows.PROCESS_QUERY_INFORMATION
	processVMRead    = windows.PROCESS_VM_READ
)

func NewProcessReader() ProcessReader {
	return &windowsReader{}
}

func (r *windowsReader) Attach(ctx context.Context, candidateNames []string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pids, err := enumProcessIDs()
	if err != nil {
		return false, fmt.Errorf("scanner: enum processes: %w", err)
	}

	wanted := make(map[string]bool, len(candidateNames))
	for _, name := range candidateNames {
		wanted[strings.ToLower(name)] = true
	}

	for _, pid := range pids {
		name, err := processBaseName(pid)
		if err != nil {
			continue
		}
		if !wanted[strings.ToLower(name)] {
			continue
		}
		handle, err := windows.OpenProcess(processQueryInfo|processVMRead, false, pid)
		if err != nil {
			continue
		}
		r.handle = handle
		r.pid = pid
		return true, nil
	}
	return false, nil
}

func (r *windowsReader) Detach() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handle != 0 {
		_ = windows.CloseHandle(r.handle)
		r.handle = 0
		r.pid = 0
	}
}

func (r *windowsReader) Regions() ([]BufferRegion, error) {
	r.mu.Lock()
	handle := r.handle
	r.mu.Unlock()
	if handle == 0 {
		return nil, errors.New("scanner: not attached")
	}

	var regions []BufferRegion
	var addr uintptr
	for {
		var info windows.MemoryBasicInformation
		err := windows.VirtualQueryEx(handle, addr, &info, unsafe.Sizeof(info))
		if err != nil {
			break
		}
		if info.State == windows.MEM_COMMIT &&
			info.Protect&windows.PAGE_NOACCESS == 0 &&
			info.Protect&windows.PAGE_GUARD == 0 &&
			uint64(info.RegionSize) <= regionMaxSize {
			regions = append(regions, BufferRegion{
				BaseAddress: info.BaseAddress,
				SizeBytes:   uint64(info.RegionSize),
			})
		}
		next := info.BaseAddress + info.RegionSize
		if next <= addr {
			break
		}
		addr = next
	}

	sort.Slice(regions, func(i, j int) bool { return regions[i].BaseAddress < regions[j].BaseAddress })
	return regions, nil
}

func (r *windowsReader) ReadAt(addr uintptr, buf []byte) (int, error) {
	r.mu.Lock()
	handle := r.handle
	r.mu.Unlock()
	if handle == 0 {
		return 0, errors.New("scanner: not attached")
	}

	var read uintptr
	err := windows.ReadProcessMemory(handle, addr, &buf[0], uintptr(len(buf)), &read)
	if err != nil {
		return 0, err
	}
	return int(read), nil
}

func enumProcessIDs() ([]uint32, error) {
	const maxProcesses = 4096
	pids := make([]uint32, maxProcesses)
	var bytesReturned uint32

	ret, _, callErr := procEnumProcesses.Call(
		uintptr(unsafe.Pointer(&pids[0])),
		uintptr(maxProcesses*4),
		uintptr(unsafe.Pointer(&bytesReturned)),
	)
	if ret == 0 {
		return nil, callErr
	}
	count := bytesReturned / 4
	return pids[:count], nil
}

func processBaseName(pid uint32) (string, error) {
	handle, err := windows.OpenProcess(processQueryInfo|processVMRead, false, pid)
	if err != nil {
		return "", err
	}
	defer windows.CloseHandle(handle)

	buf := make([]uint16, windows.MAX_PATH)
	ret, _, callErr := procGetModuleBaseName.Call(
		uintptr(handle),
		0,
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(len(buf)),
	)
	if ret == 0 {
		return "", callErr
	}
	return windows.UTF16ToString(buf), nil
}
