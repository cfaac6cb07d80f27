//go:build !linux && !darwin

package procctl

func forkWithoutAtfork() (int, error) {
	return -1, ErrUnsupported
}
