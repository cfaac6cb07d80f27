package browse

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/signalhouse/crashtrack/internal/core"
	"github.com/signalhouse/crashtrack/internal/crash"
)

type listStore struct {
	core.ReportStore
	reports []*crash.Report
}

func (s *listStore) List(_ context.Context, _ core.ReportFilter) ([]crash.Summary, error) {
	var out []crash.Summary
	for _, r := range s.reports {
		out = append(out, r.Summarize())
	}
	return out, nil
}

func (s *listStore) Get(_ context.Context, id string) (*crash.Report, error) {
	for _, r := range s.reports {
		if r.UUID == id {
			return r, nil
		}
	}
	return nil, core.ErrNotFound("report", id)
}

func testStore() *listStore {
	segv := crash.New()
	segv.SetSigInfo(crash.SigInfo{Signum: 11, Signame: "SIGSEGV"})
	segv.SetProcInfo(crash.ProcInfo{PID: 100})

	abrt := crash.New()
	abrt.SetSigInfo(crash.SigInfo{Signum: 6, Signame: "SIGABRT"})
	abrt.SetProcInfo(crash.ProcInfo{PID: 200})
	abrt.MarkIncomplete()

	return &listStore{reports: []*crash.Report{segv, abrt}}
}

func newTestModel(t *testing.T) Model {
	t.Helper()
	m, err := NewModel(context.Background(), testStore())
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	return m
}

func TestFilterMatchesSignalName(t *testing.T) {
	m := newTestModel(t)
	if len(m.filtered) != 2 {
		t.Fatalf("unfiltered shows %d rows, want 2", len(m.filtered))
	}

	m.applyFilter("segv")
	if len(m.filtered) != 1 {
		t.Fatalf("filter 'segv' shows %d rows, want 1", len(m.filtered))
	}
	sum, ok := m.current()
	if !ok || sum.Signame != "SIGSEGV" {
		t.Errorf("filtered selection = %+v", sum)
	}

	m.applyFilter("zzzz-no-match")
	if len(m.filtered) != 0 {
		t.Errorf("impossible filter shows %d rows", len(m.filtered))
	}

	m.applyFilter("")
	if len(m.filtered) != 2 {
		t.Errorf("cleared filter shows %d rows", len(m.filtered))
	}
}

func TestNavigationClamps(t *testing.T) {
	m := newTestModel(t)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = next.(Model)
	if m.selected != 0 {
		t.Errorf("up at top moved selection to %d", m.selected)
	}

	for i := 0; i < 5; i++ {
		next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
		m = next.(Model)
	}
	if m.selected != 1 {
		t.Errorf("down past end moved selection to %d", m.selected)
	}
}

func TestDetailViewOpensAndCloses(t *testing.T) {
	m := newTestModel(t)
	m.width, m.height = 100, 30

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	if m.mode != modeDetail {
		t.Fatal("enter did not open detail view")
	}
	view := m.View()
	if !strings.Contains(view, "SIGSEGV") {
		t.Errorf("detail view missing signal:\n%s", view)
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(Model)
	if m.mode != modeList {
		t.Error("esc did not return to list")
	}
}

func TestListViewMarksPartialReports(t *testing.T) {
	m := newTestModel(t)
	m.width, m.height = 120, 30
	view := m.View()
	if !strings.Contains(view, "partial") {
		t.Errorf("incomplete report not marked in:\n%s", view)
	}
	if !strings.Contains(view, "SIGABRT") {
		t.Errorf("signal missing in:\n%s", view)
	}
}

func TestMarkdownSummary(t *testing.T) {
	r := crash.New()
	r.SetSigInfo(crash.SigInfo{Signum: 11, Signame: "SIGSEGV"})
	r.SetProcInfo(crash.ProcInfo{PID: 4242})
	r.Timestamp = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.SetSpanIDs([]string{"42"})
	r.AddCounter("profiling", 1)
	r.SetStacktrace(crash.NewStackTrace([]crash.Frame{
		{IP: "0x1000", Names: []crash.SymbolName{{Name: "handleRequest", Filename: "server.go", LineNo: 44}}},
		{IP: "0x2000"},
	}))

	md := Markdown(r)
	for _, substr := range []string{
		r.UUID,
		"SIGSEGV (11)",
		"| PID | 4242 |",
		"handleRequest (server.go:44)",
		"0x2000",
		"Active spans: 42",
		"`profiling`: 1",
	} {
		if !strings.Contains(md, substr) {
			t.Errorf("markdown missing %q:\n%s", substr, md)
		}
	}
}

func TestRenderMarkdownFallsBackGracefully(t *testing.T) {
	md := Markdown(crash.New())
	out := RenderMarkdown(md, 80)
	if out == "" {
		t.Error("rendered markdown is empty")
	}
}
