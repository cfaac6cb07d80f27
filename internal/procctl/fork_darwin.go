//go:build darwin

package procctl

import "golang.org/x/sys/unix"

// sysFork is the darwin fork syscall number. There is no clone on
// darwin; the raw fork syscall skips libc's at-fork machinery.
const sysFork = 2

func forkWithoutAtfork() (int, error) {
	pid, _, errno := unix.Syscall(sysFork, 0, 0, 0)
	if errno != 0 {
		return -1, errno
	}
	return int(pid), nil
}
