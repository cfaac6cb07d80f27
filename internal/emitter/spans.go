package emitter

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/signalhouse/crashtrack/internal/wire"
)

// MaxTrackedIDs bounds how many active span/trace ids are carried into
// a crash report. In-flight ids churn constantly, so slots are claimed
// and released with atomics rather than a locked set.
const MaxTrackedIDs = 16

const (
	slotFree     uint32 = 0
	slotClaimed  uint32 = 1
	slotOccupied uint32 = 2
)

// idSlot holds one 128-bit id. state transitions free -> claimed ->
// occupied on insert and occupied -> free on remove; the emitter reads
// only occupied slots.
type idSlot struct {
	state atomic.Uint32
	hi    atomic.Uint64
	lo    atomic.Uint64
}

type idRing struct {
	slots [MaxTrackedIDs]idSlot
}

var (
	spanRing  idRing
	traceRing idRing
)

func (r *idRing) insert(hi, lo uint64) (int, error) {
	for i := range r.slots {
		s := &r.slots[i]
		if s.state.CompareAndSwap(slotFree, slotClaimed) {
			s.hi.Store(hi)
			s.lo.Store(lo)
			s.state.Store(slotOccupied)
			return i, nil
		}
	}
	return -1, fmt.Errorf("id registry full (%d slots)", MaxTrackedIDs)
}

func (r *idRing) remove(slot int, hi, lo uint64) error {
	if slot < 0 || slot >= MaxTrackedIDs {
		return fmt.Errorf("slot %d out of range", slot)
	}
	s := &r.slots[slot]
	if s.state.Load() != slotOccupied || s.hi.Load() != hi || s.lo.Load() != lo {
		return fmt.Errorf("slot %d does not hold the given id", slot)
	}
	s.state.Store(slotFree)
	return nil
}

func (r *idRing) reset() {
	for i := range r.slots {
		r.slots[i].state.Store(slotFree)
	}
}

// InsertSpan registers an active span id, returning the slot to pass
// to RemoveSpan when the span finishes.
func InsertSpan(hi, lo uint64) (int, error) { return spanRing.insert(hi, lo) }

// RemoveSpan releases a span id slot.
func RemoveSpan(slot int, hi, lo uint64) error { return spanRing.remove(slot, hi, lo) }

// InsertTrace registers an active trace id.
func InsertTrace(hi, lo uint64) (int, error) { return traceRing.insert(hi, lo) }

// RemoveTrace releases a trace id slot.
func RemoveTrace(slot int, hi, lo uint64) error { return traceRing.remove(slot, hi, lo) }

// emitIDs writes one id block as a single JSON array line of decimal
// 128-bit integers.
func (e *Emitter) emitIDs(w io.Writer, ring *idRing, begin, end string) error {
	e.scratch = e.scratch[:0]
	e.scratch = append(e.scratch, begin...)
	e.scratch = append(e.scratch, '\n', '[')

	first := true
	for i := range ring.slots {
		s := &ring.slots[i]
		if s.state.Load() != slotOccupied {
			continue
		}
		if !first {
			e.scratch = append(e.scratch, ',', ' ')
		}
		first = false
		e.scratch = wire.AppendU128(e.scratch, s.hi.Load(), s.lo.Load())
	}

	e.scratch = append(e.scratch, ']', '\n')
	e.scratch = append(e.scratch, end...)
	e.scratch = append(e.scratch, '\n')
	_, err := w.Write(e.scratch)
	return err
}
