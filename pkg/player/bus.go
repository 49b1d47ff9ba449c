package player

import (
	"sync"
	"time"

	"github.com/zurustar/pianola/pkg/song"
)

// EventType identifies the kind of a playback notification.
type EventType int

const (
	// EventLoaded fires when a new song replaces the current one.
	EventLoaded EventType = iota
	// EventPlay fires when playback starts or resumes.
	EventPlay
	// EventPause fires when playback pauses.
	EventPause
	// EventStop fires when playback stops.
	EventStop
	// EventSeek fires after the transport repositions.
	EventSeek
	// EventUpdate is the periodic coarse state snapshot (~10 Hz).
	EventUpdate
	// EventEnded fires once when the song plays to completion.
	EventEnded
	// EventLyrics carries the active lyric line for the display.
	EventLyrics
	// EventNoteOn is a semantic note-on for the synthesis path.
	EventNoteOn
	// EventNoteOff is a semantic note-off for the synthesis path.
	EventNoteOff
	// EventAllNotesOff is the safety broadcast silencing all channels.
	EventAllNotesOff
)

// String returns the string representation of an EventType.
func (e EventType) String() string {
	switch e {
	case EventLoaded:
		return "loaded"
	case EventPlay:
		return "play"
	case EventPause:
		return "pause"
	case EventStop:
		return "stop"
	case EventSeek:
		return "seek"
	case EventUpdate:
		return "update"
	case EventEnded:
		return "ended"
	case EventLyrics:
		return "lyrics"
	case EventNoteOn:
		return "noteOn"
	case EventNoteOff:
		return "noteOff"
	case EventAllNotesOff:
		return "allNotesOff"
	default:
		return "unknown"
	}
}

// Event is a playback notification. Only the fields relevant to the
// event's Type are populated.
type Event struct {
	Type EventType

	// Note events. Channel and Program are the source values so the
	// synthesis path can select the right timbre; Velocity stays a unit
	// float until an output boundary converts it.
	Channel  int
	Note     int
	Velocity float64
	Program  int

	// Lyrics events. LineIndex is -1 when no line is active.
	LineIndex   int
	Lines       []song.LyricLine
	TimeSeconds float64

	// Transport events and state snapshots.
	SongName   string
	Singer     string
	State      string
	PositionMs int64
	DurationMs int64
}

// Handler receives published events. Handlers run on the publisher's or a
// timer goroutine; they must return quickly and must not call back into
// the publishing component.
type Handler func(Event)

// Bus is the fan-out mechanism for playback notifications. Publications
// can be immediate or delayed; delayed publications are scheduled as one
// cancellable timer per batch, never as a blocking sleep.
type Bus struct {
	mu       sync.Mutex
	handlers map[EventType][]Handler
	pending  map[int]*delayedBatch
	nextID   int
}

type delayedBatch struct {
	timer  *time.Timer
	safety bool
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
		pending:  make(map[int]*delayedBatch),
	}
}

// Subscribe registers a handler for one event type.
func (b *Bus) Subscribe(t EventType, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], h)
}

// Publish delivers an event to all subscribers immediately, in
// subscription order.
func (b *Bus) Publish(ev Event) {
	for _, h := range b.subscribers(ev.Type) {
		h(ev)
	}
}

// PublishAfter delivers a batch of events after the given delay,
// preserving batch order. A non-positive delay publishes immediately.
// These batches represent committed-to-have-sounded events on the
// synthesis side and deliberately survive a later pause or stop.
func (b *Bus) PublishAfter(d time.Duration, events ...Event) {
	b.publishAfter(d, false, events)
}

// PublishSafetyAfter schedules a delayed safety broadcast. Unlike regular
// delayed batches, safety broadcasts are cancelled by CancelSafety when a
// transport transition supersedes them.
func (b *Bus) PublishSafetyAfter(d time.Duration, ev Event) {
	b.publishAfter(d, true, []Event{ev})
}

func (b *Bus) publishAfter(d time.Duration, safety bool, events []Event) {
	if len(events) == 0 {
		return
	}
	if d <= 0 {
		for _, ev := range events {
			b.Publish(ev)
		}
		return
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	batch := &delayedBatch{safety: safety}
	batch.timer = time.AfterFunc(d, func() {
		b.mu.Lock()
		_, live := b.pending[id]
		delete(b.pending, id)
		b.mu.Unlock()
		if !live {
			return
		}
		for _, ev := range events {
			b.Publish(ev)
		}
	})
	b.pending[id] = batch
	b.mu.Unlock()
}

// CancelSafety cancels all outstanding delayed safety broadcasts.
// Per-note delayed batches are left to fire.
func (b *Bus) CancelSafety() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, batch := range b.pending {
		if batch.safety {
			batch.timer.Stop()
			delete(b.pending, id)
		}
	}
}

// PendingDelayed returns the number of outstanding delayed batches.
func (b *Bus) PendingDelayed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

func (b *Bus) subscribers(t EventType) []Handler {
	b.mu.Lock()
	defer b.mu.Unlock()
	hs := b.handlers[t]
	out := make([]Handler, len(hs))
	copy(out, hs)
	return out
}
