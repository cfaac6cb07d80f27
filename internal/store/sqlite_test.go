package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/signalhouse/crashtrack/internal/core"
	"github.com/signalhouse/crashtrack/internal/crash"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "archive", "crashtrack.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func crashReport(signum int, signame string) *crash.Report {
	r := crash.New()
	r.SetSigInfo(crash.SigInfo{Signum: signum, Signame: signame})
	r.SetProcInfo(crash.ProcInfo{PID: 4242})
	return r
}

func TestSaveAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	report := crashReport(11, "SIGSEGV")
	report.AddCounter("collecting_sample", 1)
	if err := s.Save(ctx, report); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Get(ctx, report.UUID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.UUID != report.UUID {
		t.Errorf("uuid = %q, want %q", got.UUID, report.UUID)
	}
	if got.SigInfo == nil || got.SigInfo.Signame != "SIGSEGV" {
		t.Errorf("siginfo = %+v", got.SigInfo)
	}
	if got.Counters["collecting_sample"] != 1 {
		t.Errorf("counters = %v", got.Counters)
	}
	if !got.IsCrash {
		t.Error("is_crash lost in round trip")
	}
}

func TestSaveUpserts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	report := crashReport(6, "SIGABRT")
	if err := s.Save(ctx, report); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	report.MarkIncomplete()
	if err := s.Save(ctx, report); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	sums, err := s.List(ctx, core.ReportFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(sums) != 1 {
		t.Fatalf("got %d rows after upsert, want 1", len(sums))
	}
	if !sums[0].Incomplete {
		t.Error("upsert did not propagate incomplete flag")
	}
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(context.Background(), "no-such-uuid")
	var de *core.DomainError
	if !errors.As(err, &de) || de.Category != core.ErrCatNotFound {
		t.Errorf("Get missing = %v, want not_found", err)
	}
}

func TestListFilters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	segv := crashReport(11, "SIGSEGV")
	abrt := crashReport(6, "SIGABRT")
	abrt.MarkIncomplete()
	noCrash := crash.New()
	for _, r := range []*crash.Report{segv, abrt, noCrash} {
		if err := s.Save(ctx, r); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	all, err := s.List(ctx, core.ReportFilter{})
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("all = %d rows, want 3", len(all))
	}

	crashes, _ := s.List(ctx, core.ReportFilter{OnlyCrashes: true})
	if len(crashes) != 2 {
		t.Errorf("crashes = %d rows, want 2", len(crashes))
	}

	partial, _ := s.List(ctx, core.ReportFilter{OnlyIncomplete: true})
	if len(partial) != 1 || partial[0].UUID != abrt.UUID {
		t.Errorf("incomplete filter = %+v", partial)
	}

	bySignal, _ := s.List(ctx, core.ReportFilter{Signal: "SIGSEGV"})
	if len(bySignal) != 1 || bySignal[0].UUID != segv.UUID {
		t.Errorf("signal filter = %+v", bySignal)
	}

	limited, _ := s.List(ctx, core.ReportFilter{Limit: 1})
	if len(limited) != 1 {
		t.Errorf("limit filter = %d rows, want 1", len(limited))
	}
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	report := crashReport(11, "SIGSEGV")
	if err := s.Save(ctx, report); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Delete(ctx, report.UUID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, report.UUID); !core.IsCategory(err, core.ErrCatNotFound) {
		t.Errorf("double Delete = %v, want not_found", err)
	}
}

func TestMarkUploaded(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	report := crashReport(11, "SIGSEGV")
	if err := s.Save(ctx, report); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.MarkUploaded(ctx, report.UUID); err != nil {
		t.Fatalf("MarkUploaded: %v", err)
	}
	if err := s.MarkUploaded(ctx, "ghost"); !core.IsCategory(err, core.ErrCatNotFound) {
		t.Errorf("MarkUploaded(ghost) = %v, want not_found", err)
	}
}

func TestPrune(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	old := crashReport(11, "SIGSEGV")
	old.Timestamp = time.Now().Add(-48 * time.Hour)
	fresh := crashReport(6, "SIGABRT")
	for _, r := range []*crash.Report{old, fresh} {
		if err := s.Save(ctx, r); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	n, err := s.Prune(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d rows, want 1", n)
	}
	if _, err := s.Get(ctx, fresh.UUID); err != nil {
		t.Errorf("fresh report pruned: %v", err)
	}
}

func TestReopenSeesData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crashtrack.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	report := crashReport(11, "SIGSEGV")
	if err := s.Save(ctx, report); err != nil {
		t.Fatalf("Save: %v", err)
	}
	s.Close()

	s2, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer s2.Close()
	if _, err := s2.Get(ctx, report.UUID); err != nil {
		t.Errorf("Get after reopen: %v", err)
	}
}
