// Package spool persists crash reports that could not be uploaded so
// they survive process restarts and get retried later. A spool entry
// is one report serialized to <dir>/<uuid>.json; entries that fail to
// parse on retry are quarantined with a .bad suffix rather than
// deleted, so nothing crash-related is ever silently discarded.
package spool

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/renameio/v2"

	"github.com/signalhouse/crashtrack/internal/core"
	"github.com/signalhouse/crashtrack/internal/crash"
	"github.com/signalhouse/crashtrack/internal/logging"
)

// Spool is a directory of pending crash reports.
type Spool struct {
	dir string
	log *logging.Logger
}

// New creates the spool directory if needed.
func New(dir string, log *logging.Logger) (*Spool, error) {
	if dir == "" {
		return nil, core.ErrValidation(core.CodeInvalidConfig, "spool directory not configured")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, core.ErrStorage(core.CodeSpoolUnwritable,
			fmt.Sprintf("creating spool directory %s", dir)).WithCause(err)
	}
	return &Spool{dir: dir, log: log}, nil
}

// Dir returns the spool directory path.
func (s *Spool) Dir() string {
	return s.dir
}

// Put writes one report atomically and returns its path. Writes go
// through a temp file and rename so the sweeper never observes a
// half-written entry.
func (s *Spool) Put(report *crash.Report) (string, error) {
	payload, err := json.Marshal(report)
	if err != nil {
		return "", core.ErrInternal("encoding report for spool").WithCause(err)
	}
	path := filepath.Join(s.dir, report.UUID+".json")
	if err := renameio.WriteFile(path, payload, 0o600); err != nil {
		return "", core.ErrStorage(core.CodeSpoolUnwritable,
			fmt.Sprintf("spooling report %s", report.UUID)).WithCause(err)
	}
	s.log.Info("report spooled", "report_id", report.UUID, "path", path)
	return path, nil
}

// List returns the pending entry paths, oldest name first.
func (s *Spool) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, core.ErrStorage(core.CodeSpoolUnwritable,
			fmt.Sprintf("reading spool directory %s", s.dir)).WithCause(err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		paths = append(paths, filepath.Join(s.dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// Load parses one spool entry.
func (s *Spool) Load(path string) (*crash.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.ErrStorage(core.CodeSpoolUnwritable,
			fmt.Sprintf("reading spool entry %s", path)).WithCause(err)
	}
	var report crash.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, core.ErrStorage(core.CodeArchiveCorrupt,
			fmt.Sprintf("spool entry %s is not a valid report", path)).WithCause(err)
	}
	return &report, nil
}

// Remove deletes a delivered entry.
func (s *Spool) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return core.ErrStorage(core.CodeSpoolUnwritable,
			fmt.Sprintf("removing spool entry %s", path)).WithCause(err)
	}
	return nil
}

// Quarantine renames a malformed entry out of the retry set.
func (s *Spool) Quarantine(path string) {
	bad := path + ".bad"
	if err := os.Rename(path, bad); err != nil {
		s.log.Warn("failed to quarantine spool entry", "path", path, "error", err)
		return
	}
	s.log.Warn("quarantined malformed spool entry", "path", bad)
}
