//go:build linux

package procctl

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// forkWithoutAtfork clones via the raw syscall, replicating the flags
// glibc fork() uses so the child behaves like a forked process, minus
// the at-fork callbacks. CLONE_PTRACE is added when a tracer is
// attached so the debugger follows the child.
func forkWithoutAtfork() (int, error) {
	var ptid, ctid int32

	flags := uintptr(unix.CLONE_CHILD_CLEARTID|unix.CLONE_CHILD_SETTID) | uintptr(unix.SIGCHLD)
	if traced, err := isBeingTraced(); err == nil && traced {
		flags |= unix.CLONE_PTRACE
	}

	pid, _, errno := unix.Syscall6(
		unix.SYS_CLONE,
		flags,
		0, // child uses the parent's stack semantics, as fork does
		uintptr(unsafe.Pointer(&ptid)),
		uintptr(unsafe.Pointer(&ctid)),
		0,
		0,
	)
	if errno != 0 {
		return -1, errno
	}
	return int(pid), nil
}
