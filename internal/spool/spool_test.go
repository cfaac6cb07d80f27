package spool

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/signalhouse/crashtrack/internal/crash"
	"github.com/signalhouse/crashtrack/internal/logging"
)

func testReport() *crash.Report {
	r := crash.New()
	r.SetSigInfo(crash.SigInfo{Signum: 6, Signame: "SIGABRT"})
	return r
}

func TestPutListLoadRemove(t *testing.T) {
	s, err := New(t.TempDir(), logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	report := testReport()
	path, err := s.Put(report)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	paths, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(paths) != 1 || paths[0] != path {
		t.Fatalf("List = %v, want [%s]", paths, path)
	}

	got, err := s.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.UUID != report.UUID {
		t.Errorf("loaded uuid = %q, want %q", got.UUID, report.UUID)
	}
	if got.SigInfo == nil || got.SigInfo.Signame != "SIGABRT" {
		t.Errorf("loaded siginfo = %+v", got.SigInfo)
	}

	if err := s.Remove(path); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if paths, _ := s.List(); len(paths) != 0 {
		t.Errorf("spool not empty after Remove: %v", paths)
	}
	// Removing again is a no-op.
	if err := s.Remove(path); err != nil {
		t.Errorf("second Remove: %v", err)
	}
}

func TestListIgnoresNonEntries(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	os.WriteFile(filepath.Join(dir, "note.txt"), []byte("x"), 0o600)
	os.WriteFile(filepath.Join(dir, "old.json.bad"), []byte("{"), 0o600)
	os.MkdirAll(filepath.Join(dir, "sub.json"), 0o700)

	paths, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("List picked up non-entries: %v", paths)
	}
}

func TestLoadMalformedEntry(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	bad := filepath.Join(dir, "broken.json")
	os.WriteFile(bad, []byte("{not json"), 0o600)

	if _, err := s.Load(bad); err == nil {
		t.Fatal("Load accepted malformed entry")
	}

	s.Quarantine(bad)
	if _, err := os.Stat(bad + ".bad"); err != nil {
		t.Errorf("quarantined file missing: %v", err)
	}
	if paths, _ := s.List(); len(paths) != 0 {
		t.Errorf("quarantined entry still listed: %v", paths)
	}
}

type recordingUploader struct {
	mu       sync.Mutex
	uploaded []string
	fail     map[string]bool
}

func (u *recordingUploader) Upload(_ context.Context, r *crash.Report) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.fail[r.UUID] {
		return errors.New("endpoint down")
	}
	u.uploaded = append(u.uploaded, r.UUID)
	return nil
}

func (u *recordingUploader) count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.uploaded)
}

func TestDrainUploadsAndRemoves(t *testing.T) {
	s, err := New(t.TempDir(), logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ok := testReport()
	stuck := testReport()
	s.Put(ok)
	s.Put(stuck)

	up := &recordingUploader{fail: map[string]bool{stuck.UUID: true}}
	w := NewWatcher(s, up, time.Hour, logging.NewNop())
	w.Drain(context.Background())

	if up.count() != 1 {
		t.Fatalf("uploaded %d reports, want 1", up.count())
	}
	paths, _ := s.List()
	if len(paths) != 1 || !strings.Contains(paths[0], stuck.UUID) {
		t.Errorf("spool after drain = %v, want only %s", paths, stuck.UUID)
	}

	// Endpoint recovers; next drain delivers the rest.
	up.mu.Lock()
	up.fail = nil
	up.mu.Unlock()
	w.Drain(context.Background())
	if paths, _ := s.List(); len(paths) != 0 {
		t.Errorf("spool not empty after recovery drain: %v", paths)
	}
}

func TestDrainQuarantinesMalformed(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	os.WriteFile(filepath.Join(dir, "junk.json"), []byte("???"), 0o600)

	up := &recordingUploader{}
	w := NewWatcher(s, up, time.Hour, logging.NewNop())
	w.Drain(context.Background())

	if up.count() != 0 {
		t.Errorf("uploaded %d reports from junk", up.count())
	}
	if _, err := os.Stat(filepath.Join(dir, "junk.json.bad")); err != nil {
		t.Errorf("junk not quarantined: %v", err)
	}
}

func TestWatcherPicksUpNewEntries(t *testing.T) {
	s, err := New(t.TempDir(), logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	up := &recordingUploader{}
	w := NewWatcher(s, up, time.Hour, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Let the watcher establish its fsnotify watch before writing.
	time.Sleep(100 * time.Millisecond)
	s.Put(testReport())

	deadline := time.After(5 * time.Second)
	for up.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("watcher never uploaded the new entry")
		case <-time.After(20 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run returned %v after cancel", err)
	}
}
