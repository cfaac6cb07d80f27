package symbolize

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/signalhouse/crashtrack/internal/core"
	"github.com/signalhouse/crashtrack/internal/crash"
	"github.com/signalhouse/crashtrack/internal/logging"
)

type fakeResolver struct {
	calls int
	fail  bool
}

func (f *fakeResolver) Name() string { return "fake" }

func (f *fakeResolver) Resolve(_ context.Context, pid int, frames []crash.Frame) ([]crash.Frame, error) {
	f.calls++
	if f.fail {
		return nil, errors.New("resolver exploded")
	}
	out := append([]crash.Frame(nil), frames...)
	for i := range out {
		out[i].Names = []crash.SymbolName{{Name: "fn_" + out[i].IP}}
	}
	return out, nil
}

func crashedReport(withPID bool) *crash.Report {
	r := crash.New()
	r.SetSigInfo(crash.SigInfo{Signum: 11, Signame: "SIGSEGV"})
	if withPID {
		r.SetProcInfo(crash.ProcInfo{PID: 1234})
	}
	_ = r.SetStacktrace(crash.NewStackTrace([]crash.Frame{
		{IP: "0x1000"}, {IP: "0x2000"},
	}))
	return r
}

func TestParseMode(t *testing.T) {
	for _, valid := range []string{"disabled", "inprocess", "receiver"} {
		if _, err := ParseMode(valid); err != nil {
			t.Errorf("ParseMode(%q) error: %v", valid, err)
		}
	}
	if _, err := ParseMode("magic"); err == nil {
		t.Error("ParseMode should reject unknown modes")
	}
}

func TestResolveInReceiver(t *testing.T) {
	r := crashedReport(true)
	res := &fakeResolver{}

	if err := Resolve(context.Background(), ModeInReceiver, r, res, logging.NewNop()); err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if res.calls != 1 {
		t.Errorf("resolver called %d times, want 1", res.calls)
	}
	for i, f := range r.Error.Stack.Frames {
		if !f.Resolved() {
			t.Errorf("frame %d not resolved", i)
		}
	}
}

func TestResolveRequiresProcInfo(t *testing.T) {
	r := crashedReport(false)
	err := Resolve(context.Background(), ModeInReceiver, r, &fakeResolver{}, logging.NewNop())
	if err == nil {
		t.Fatal("expected missing-prerequisite error")
	}
	if !core.IsCategory(err, core.ErrCatPrereq) {
		t.Errorf("category = %s, want %s", core.GetCategory(err), core.ErrCatPrereq)
	}
	if !strings.Contains(err.Error(), "proc_info") {
		t.Errorf("error should name the missing data: %v", err)
	}
}

func TestResolveIsNoopInOtherModes(t *testing.T) {
	for _, mode := range []Mode{ModeDisabled, ModeInProcess} {
		r := crashedReport(false) // no pid, must still not error
		res := &fakeResolver{}
		if err := Resolve(context.Background(), mode, r, res, logging.NewNop()); err != nil {
			t.Errorf("Resolve(%s) error: %v", mode, err)
		}
		if res.calls != 0 {
			t.Errorf("Resolve(%s) invoked the resolver", mode)
		}
	}
}

func TestResolveWrapsResolverFailure(t *testing.T) {
	r := crashedReport(true)
	err := Resolve(context.Background(), ModeInReceiver, r, &fakeResolver{fail: true}, logging.NewNop())
	if err == nil {
		t.Fatal("expected resolver failure to surface")
	}
	if !core.IsCategory(err, core.ErrCatResolve) {
		t.Errorf("category = %s, want %s", core.GetCategory(err), core.ErrCatResolve)
	}
}

func TestAddr2LineParsesOutput(t *testing.T) {
	a := NewAddr2Line(0)
	a.lookupExe = func(context.Context, int) (string, error) { return "/bin/victim", nil }
	a.run = func(_ context.Context, name string, args ...string) ([]byte, error) {
		return []byte("main.handleRequest\n/src/server.go:42\n??\n??:0\n"), nil
	}

	frames := []crash.Frame{{IP: "0x1000"}, {IP: "0x2000"}}
	out, err := a.Resolve(context.Background(), 99, frames)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	if !out[0].Resolved() {
		t.Fatal("frame 0 should be resolved")
	}
	sym := out[0].Names[0]
	if sym.Name != "main.handleRequest" || sym.Filename != "/src/server.go" || sym.LineNo != 42 {
		t.Errorf("frame 0 = %+v", sym)
	}
	// Unknown address leaves the frame untouched rather than failing.
	if out[1].Resolved() {
		t.Errorf("frame 1 should stay unresolved: %+v", out[1])
	}
	// Input slice is not mutated.
	if frames[0].Resolved() {
		t.Error("Resolve mutated its input")
	}
}

func TestAddr2LineSkipsResolvedFrames(t *testing.T) {
	a := NewAddr2Line(0)
	a.lookupExe = func(context.Context, int) (string, error) { return "/bin/victim", nil }
	called := false
	a.run = func(context.Context, string, ...string) ([]byte, error) {
		called = true
		return nil, nil
	}

	frames := []crash.Frame{{IP: "0x1000", Names: []crash.SymbolName{{Name: "known"}}}}
	if _, err := a.Resolve(context.Background(), 1, frames); err != nil {
		t.Fatal(err)
	}
	if called {
		t.Error("addr2line should not run when every frame already has names")
	}
}

func TestSplitLocation(t *testing.T) {
	tests := []struct {
		loc  string
		file string
		line int
	}{
		{"/src/main.go:10", "/src/main.go", 10},
		{"??:0", "", 0},
		{"??:?", "", 0},
		{"/src/x.c:7 (discriminator 3)", "/src/x.c", 7},
		{"noline", "", 0},
	}
	for _, tt := range tests {
		file, line := splitLocation(tt.loc)
		if file != tt.file || line != tt.line {
			t.Errorf("splitLocation(%q) = (%q, %d), want (%q, %d)", tt.loc, file, line, tt.file, tt.line)
		}
	}
}
