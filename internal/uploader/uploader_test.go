package uploader

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/signalhouse/crashtrack/internal/core"
	"github.com/signalhouse/crashtrack/internal/crash"
	"github.com/signalhouse/crashtrack/internal/logging"
)

func testReport() *crash.Report {
	r := crash.New()
	r.SetSigInfo(crash.SigInfo{Signum: 11, Signame: "SIGSEGV"})
	return r
}

func TestUploadHTTP(t *testing.T) {
	var gotKey string
	var gotBody crash.Report
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get(APIKeyHeader)
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding upload body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c, err := New(Config{Endpoint: srv.URL, APIKey: "k-123", Timeout: 5 * time.Second}, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	report := testReport()
	if err := c.Upload(context.Background(), report); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if gotKey != "k-123" {
		t.Errorf("api key header = %q, want %q", gotKey, "k-123")
	}
	if gotBody.UUID != report.UUID {
		t.Errorf("uploaded uuid = %q, want %q", gotBody.UUID, report.UUID)
	}
	if !gotBody.IsCrash {
		t.Error("uploaded report lost is_crash")
	}
}

func TestUploadHTTPRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	c, err := New(Config{Endpoint: srv.URL}, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = c.Upload(context.Background(), testReport())
	if err == nil {
		t.Fatal("expected error for 403 response")
	}
	var de *core.DomainError
	if !errors.As(err, &de) || de.Category != core.ErrCatUpload {
		t.Errorf("error = %v, want upload category", err)
	}
}

func TestUploadTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c, err := New(Config{Endpoint: srv.URL, Timeout: 50 * time.Millisecond}, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	start := time.Now()
	if err := c.Upload(context.Background(), testReport()); err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("upload took %v, timeout not enforced", elapsed)
	}
}

func TestUploadToFile(t *testing.T) {
	dir := t.TempDir()
	c, err := New(Config{Endpoint: "file://" + dir}, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	report := testReport()
	if err := c.Upload(context.Background(), report); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, report.UUID+".json"))
	if err != nil {
		t.Fatalf("reading written report: %v", err)
	}
	var got crash.Report
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("written report is not valid JSON: %v", err)
	}
	if got.SigInfo == nil || got.SigInfo.Signum != 11 {
		t.Errorf("written report siginfo = %+v", got.SigInfo)
	}
}

func TestNewRejectsBadEndpoint(t *testing.T) {
	for _, endpoint := range []string{"ftp://host/path", "not a url\x00"} {
		if _, err := New(Config{Endpoint: endpoint}, logging.NewNop()); err == nil {
			t.Errorf("New(%q) accepted invalid endpoint", endpoint)
		}
	}
}
