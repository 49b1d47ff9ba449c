package player

import (
	"sort"

	"github.com/zurustar/pianola/pkg/song"
)

// scheduledNote is one note of the loaded song with its emission flags.
// The notes live in a single arena for the whole load epoch; flags are
// the only mutable part.
type scheduledNote struct {
	channel   int
	pitch     int
	velocity  float64 // unit range, converted to 7-bit at the output boundary
	onTimeMs  int64
	offTimeMs int64
	onSent    bool
	offSent   bool
}

// noteSchedule holds every note of the loaded song pre-sorted by onset
// time. Each tick performs a full linear scan; tick rate is bounded and
// song note counts are modest, so the scan stays cheap.
type noteSchedule struct {
	notes []scheduledNote
}

// newNoteSchedule flattens a song's tracks into the sorted arena.
func newNoteSchedule(s *song.Song) *noteSchedule {
	notes := make([]scheduledNote, 0, s.NoteCount())
	for _, tr := range s.Tracks {
		for _, n := range tr.Notes {
			notes = append(notes, scheduledNote{
				channel:   n.Channel,
				pitch:     n.Pitch,
				velocity:  n.Velocity,
				onTimeMs:  int64(n.StartTimeSeconds * 1000),
				offTimeMs: int64((n.StartTimeSeconds + n.DurationSeconds) * 1000),
			})
		}
	}
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].onTimeMs < notes[j].onTimeMs
	})
	return &noteSchedule{notes: notes}
}

// resetFlags marks every note unsent, starting a fresh playback epoch.
func (ns *noteSchedule) resetFlags() {
	for i := range ns.notes {
		ns.notes[i].onSent = false
		ns.notes[i].offSent = false
	}
}

// rearm reconfigures the emission flags for a seek to targetMs. Notes
// entirely after the target become unsent; notes sounding across the
// target are marked on-sent so they are not re-struck but their release
// still fires; notes fully before the target stay completed.
func (ns *noteSchedule) rearm(targetMs int64) {
	for i := range ns.notes {
		n := &ns.notes[i]
		switch {
		case n.onTimeMs >= targetMs:
			n.onSent = false
			n.offSent = false
		case n.offTimeMs >= targetMs:
			n.onSent = true
			n.offSent = false
		default:
			n.onSent = true
			n.offSent = true
		}
	}
}

// advance emits every event due at logical time nowMs and marks it sent.
// Re-querying at the same or a later time never re-emits. A note's off is
// only ever emitted after its on was marked sent, so zero-duration notes
// produce an on immediately followed by an off.
func (ns *noteSchedule) advance(nowMs int64, emit func(n *scheduledNote, noteOn bool)) {
	for i := range ns.notes {
		n := &ns.notes[i]
		if !n.onSent && n.onTimeMs <= nowMs {
			n.onSent = true
			emit(n, true)
		}
		if n.onSent && !n.offSent && n.offTimeMs <= nowMs {
			n.offSent = true
			emit(n, false)
		}
	}
}

// flags returns a copy of the emission flag configuration, used by tests
// to compare epochs.
func (ns *noteSchedule) flags() [][2]bool {
	out := make([][2]bool, len(ns.notes))
	for i, n := range ns.notes {
		out[i] = [2]bool{n.onSent, n.offSent}
	}
	return out
}
