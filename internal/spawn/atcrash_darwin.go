//go:build darwin

package spawn

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Raw syscall numbers; darwin has no dup3 and no exit_group.
const (
	sysExit   = 1
	sysExecve = 59
	sysDup2   = 90
)

func newRawPipe() (int, int, error) {
	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		return -1, -1, err
	}
	unix.CloseOnExec(p[0])
	unix.CloseOnExec(p[1])
	return p[0], p[1], nil
}

// childExecStdin runs in the forked child. dup2 clears the
// close-on-exec flag on the stdin copy, so the exec'd receiver keeps
// the read end while everything else closes.
func childExecStdin(stdinFD int, argv0 *byte, argv, envv []*byte) {
	unix.Syscall(sysDup2, uintptr(stdinFD), 0, 0)
	unix.Syscall(sysExecve,
		uintptr(unsafe.Pointer(argv0)),
		uintptr(unsafe.Pointer(&argv[0])),
		uintptr(unsafe.Pointer(&envv[0])))
	for {
		unix.Syscall(sysExit, 127, 0, 0)
	}
}
