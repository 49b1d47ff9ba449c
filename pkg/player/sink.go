package player

import (
	"errors"
	"sync"
)

// ErrSwapInProgress is returned when a sink swap is requested while
// another swap has not completed yet.
var ErrSwapInProgress = errors.New("output sink swap already in progress")

// Sink accepts raw 3-byte MIDI messages. Implementations are external
// transports; the engine only ever calls Send and Close on whatever is
// currently bound.
type Sink interface {
	Send(msg [3]byte) error
	Close() error
}

// SwitchableSink holds the engine's single mutable output sink reference
// and makes it hot-swappable. While a swap is in progress all sends are
// silently dropped, never queued or blocked, so a stale sink reference is
// never used past its disconnect.
type SwitchableSink struct {
	mu        sync.Mutex
	sink      Sink
	switching bool
}

// NewSwitchableSink creates a holder bound to the given sink. A nil sink
// is valid; sends are dropped until one is bound.
func NewSwitchableSink(s Sink) *SwitchableSink {
	return &SwitchableSink{sink: s}
}

// Send forwards a message to the current sink. Messages sent while no
// sink is bound or while a swap is in progress are dropped without error.
func (ss *SwitchableSink) Send(msg [3]byte) error {
	ss.mu.Lock()
	if ss.switching || ss.sink == nil {
		ss.mu.Unlock()
		return nil
	}
	snk := ss.sink
	ss.mu.Unlock()
	return snk.Send(msg)
}

// Bound reports whether a sink is currently bound and not mid-swap.
func (ss *SwitchableSink) Bound() bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.sink != nil && !ss.switching
}

// Swap disconnects the current sink and binds the one produced by
// connect. The switching window covers the whole disconnect+reconnect
// span. A nil connect simply unbinds. The old sink's Close error is
// swallowed; the connect error is returned with the holder left unbound.
func (ss *SwitchableSink) Swap(connect func() (Sink, error)) error {
	ss.mu.Lock()
	if ss.switching {
		ss.mu.Unlock()
		return ErrSwapInProgress
	}
	ss.switching = true
	old := ss.sink
	ss.sink = nil
	ss.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}

	var next Sink
	var err error
	if connect != nil {
		next, err = connect()
		if err != nil {
			next = nil
		}
	}

	ss.mu.Lock()
	ss.sink = next
	ss.switching = false
	ss.mu.Unlock()
	return err
}

// Close unbinds and closes the current sink.
func (ss *SwitchableSink) Close() error {
	ss.mu.Lock()
	snk := ss.sink
	ss.sink = nil
	ss.mu.Unlock()
	if snk == nil {
		return nil
	}
	return snk.Close()
}
