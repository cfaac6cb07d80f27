//go:build linux

package procctl

import (
	"bufio"
	"os"
	"strings"
)

// tracedStatusPath is swapped in tests.
var tracedStatusPath = "/proc/self/status"

// isBeingTraced checks /proc/self/status for an attached tracer. On
// systems without procfs this fails, but there ptrace is typically
// unavailable too.
func isBeingTraced() (bool, error) {
	f, err := os.Open(tracedStatusPath)
	if err != nil {
		return false, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "TracerPid:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return false, nil
		}
		return fields[1] != "0", nil
	}
	return false, scanner.Err()
}
