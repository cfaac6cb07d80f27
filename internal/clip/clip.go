// Package clip copies text to the user's clipboard with graceful
// degradation: native clipboard, then an OSC52 escape for terminals
// without one (SSH, WSL), then a temp file whose path is shown to the
// user.
package clip

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	atotto "github.com/atotto/clipboard"
	osc52 "github.com/aymanbagabas/go-osc52/v2"
	"golang.org/x/term"

	"github.com/signalhouse/crashtrack/internal/crash"
)

// Method is the mechanism that ended up carrying the content.
type Method string

const (
	MethodNative Method = "native" // OS clipboard via atotto/clipboard
	MethodOSC52  Method = "osc52"  // terminal clipboard escape sequence
	MethodFile   Method = "file"   // temp file fallback
)

// Result says how the content was made copyable. FilePath is set only
// for MethodFile.
type Result struct {
	Method   Method
	FilePath string
}

// Seams for tests.
var (
	nativeWriteAll = func(text string) error { return atotto.WriteAll(text) }
	osc52WriteAll  = writeAllOSC52
)

// WriteReport copies a crash report as indented JSON. When the temp
// file is the only option, it is named after the report uuid so dumps
// from different crashes stay apart.
func WriteReport(r *crash.Report) (Result, error) {
	payload, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return Result{}, err
	}
	return writeAll(string(payload), fmt.Sprintf("crashtrack-report-%s-*.json", r.UUID))
}

// WriteAll copies text, falling through native, OSC52, temp file.
// It only errors when even the temp file cannot be written.
func WriteAll(text string) (Result, error) {
	return writeAll(text, fmt.Sprintf("crashtrack-clipboard-%d-*.txt", time.Now().UnixNano()))
}

func writeAll(text, tempPattern string) (Result, error) {
	if err := nativeWriteAll(text); err == nil {
		return Result{Method: MethodNative}, nil
	}

	if err := osc52WriteAll(text); err == nil {
		return Result{Method: MethodOSC52}, nil
	}

	path, err := writeTempFile(text, tempPattern)
	if err != nil {
		return Result{}, err
	}
	return Result{Method: MethodFile, FilePath: path}, nil
}

// Terminals enforce their own OSC52 payload limits; stay under a
// conservative one rather than have the sequence silently dropped.
const osc52LimitBytes = 100_000

func writeAllOSC52(text string) error {
	if text == "" {
		return errors.New("empty clipboard text")
	}
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return errors.New("stderr is not a terminal")
	}
	if len(text) > osc52LimitBytes {
		return fmt.Errorf("text too large for OSC52 (%d bytes > %d)", len(text), osc52LimitBytes)
	}

	seq := osc52.New(text).Limit(osc52LimitBytes)
	if os.Getenv("TMUX") != "" {
		seq = seq.Tmux()
	} else if os.Getenv("STY") != "" {
		seq = seq.Screen()
	}

	// Stderr, so the escape never lands in a TUI's stdout stream.
	_, err := seq.WriteTo(os.Stderr)
	return err
}

func writeTempFile(text, pattern string) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", err
	}
	path := f.Name()
	defer func() {
		_ = f.Close()
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	if _, err = f.WriteString(text); err != nil {
		return "", err
	}
	if err = f.Close(); err != nil {
		return "", err
	}
	return filepath.Clean(path), nil
}
