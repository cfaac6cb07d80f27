package spawn

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/signalhouse/crashtrack/internal/logging"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script helpers")
	}
	path := filepath.Join(t.TempDir(), "receiver.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o700); err != nil {
		t.Fatalf("writing script: %v", err)
	}
	return path
}

func TestStartFeedsStdin(t *testing.T) {
	out := filepath.Join(t.TempDir(), "got")
	bin := writeScript(t, `cat > "`+out+`"`)

	r, err := Start(Options{Binary: bin, WaitTimeout: 10 * time.Second}, logging.NewNop())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	io.WriteString(r.Writer(), "BEGIN_DONE\n")
	if err := r.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("reading child output: %v", err)
	}
	if !bytes.Contains(data, []byte("BEGIN_DONE")) {
		t.Errorf("child saw %q", data)
	}
}

func TestStartMissingBinary(t *testing.T) {
	_, err := Start(Options{Binary: "/nonexistent/receiver-binary"}, logging.NewNop())
	if err == nil {
		t.Fatal("Start succeeded with missing binary")
	}
}

func TestWaitTimeoutKillsChild(t *testing.T) {
	bin := writeScript(t, `cat > /dev/null; sleep 60`)

	r, err := Start(Options{Binary: bin, WaitTimeout: 200 * time.Millisecond}, logging.NewNop())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	start := time.Now()
	if err := r.Wait(context.Background()); err == nil {
		t.Fatal("Wait succeeded while child slept")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Wait took %v, child not killed", elapsed)
	}
}

func TestWaitPropagatesExitError(t *testing.T) {
	bin := writeScript(t, `cat > /dev/null; exit 3`)

	r, err := Start(Options{Binary: bin, WaitTimeout: 10 * time.Second}, logging.NewNop())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.Wait(context.Background()); err == nil {
		t.Fatal("Wait ignored nonzero exit")
	}
}

func TestBinaryFallsBackToSelf(t *testing.T) {
	got, err := Binary("")
	if err != nil {
		t.Fatalf("Binary: %v", err)
	}
	self, _ := os.Executable()
	if got != self {
		t.Errorf("Binary() = %q, want current executable %q", got, self)
	}
}

func TestBinaryExplicitWins(t *testing.T) {
	got, err := Binary("/opt/crashtrack/bin/crashtrack")
	if err != nil {
		t.Fatalf("Binary: %v", err)
	}
	if got != "/opt/crashtrack/bin/crashtrack" {
		t.Errorf("Binary() = %q", got)
	}
}
