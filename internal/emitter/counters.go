package emitter

import (
	"fmt"
	"io"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/signalhouse/crashtrack/internal/wire"
)

// MaxCounters bounds the counter registry. Registration happens during
// initialization; the crash path only loads atomics from a fixed array.
const MaxCounters = 32

// Counter is a process-wide numeric counter included in crash reports,
// e.g. "allocations in flight". Updates are lock-free.
type Counter struct {
	// linePrefix is the pre-rendered `{"name": ` so emission only
	// appends the value.
	linePrefix []byte
	value      atomic.Int64
}

// Add adjusts the counter by delta.
func (c *Counter) Add(delta int64) { c.value.Add(delta) }

// Set replaces the counter value.
func (c *Counter) Set(v int64) { c.value.Store(v) }

// Value returns the current value.
func (c *Counter) Value() int64 { return c.value.Load() }

var counterRegistry struct {
	mu       sync.Mutex // guards registration only, never the emit path
	count    atomic.Int32
	counters [MaxCounters]Counter
}

// RegisterCounter reserves a counter slot under name. Call during
// initialization, before any crash can occur; the name is rendered into
// its wire line here so crash-time emission does no formatting.
func RegisterCounter(name string) (*Counter, error) {
	if name == "" {
		return nil, fmt.Errorf("counter name must not be empty")
	}
	counterRegistry.mu.Lock()
	defer counterRegistry.mu.Unlock()

	n := int(counterRegistry.count.Load())
	if n >= MaxCounters {
		return nil, fmt.Errorf("counter registry full (%d counters)", MaxCounters)
	}
	c := &counterRegistry.counters[n]
	c.linePrefix = appendJSONString(make([]byte, 0, len(name)+6), name)
	c.linePrefix = append([]byte{'{'}, c.linePrefix...)
	c.linePrefix = append(c.linePrefix, ':', ' ')
	counterRegistry.count.Store(int32(n + 1))
	return c, nil
}

// resetCounters empties the registry. Tests only.
func resetCounters() {
	counterRegistry.mu.Lock()
	defer counterRegistry.mu.Unlock()
	counterRegistry.count.Store(0)
	for i := range counterRegistry.counters {
		counterRegistry.counters[i] = Counter{}
	}
}

// emitCounters writes the counters block: one single-key JSON object
// per line.
func (e *Emitter) emitCounters(w io.Writer) error {
	e.scratch = e.scratch[:0]
	e.scratch = append(e.scratch, wire.BeginCounters...)
	e.scratch = append(e.scratch, '\n')

	n := int(counterRegistry.count.Load())
	for i := 0; i < n; i++ {
		c := &counterRegistry.counters[i]
		e.scratch = append(e.scratch, c.linePrefix...)
		e.scratch = strconv.AppendInt(e.scratch, c.value.Load(), 10)
		e.scratch = append(e.scratch, '}', '\n')
	}

	e.scratch = append(e.scratch, wire.EndCounters...)
	e.scratch = append(e.scratch, '\n')
	_, err := w.Write(e.scratch)
	return err
}
