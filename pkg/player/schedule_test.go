package player

import (
	"sort"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/zurustar/pianola/pkg/song"
)

func scheduleSong(notes ...song.NoteEvent) *song.Song {
	return &song.Song{
		Name:            "schedule test",
		DurationSeconds: 60,
		Tracks:          []song.Track{{Channel: 0, Notes: notes}},
	}
}

type emission struct {
	pitch  int
	noteOn bool
}

func collect(ns *noteSchedule, nowMs int64) []emission {
	var out []emission
	ns.advance(nowMs, func(n *scheduledNote, noteOn bool) {
		out = append(out, emission{pitch: n.pitch, noteOn: noteOn})
	})
	return out
}

func TestScheduleOrdering(t *testing.T) {
	s := scheduleSong(
		song.NoteEvent{Channel: 0, Pitch: 62, Velocity: 0.5, StartTimeSeconds: 1, DurationSeconds: 1},
		song.NoteEvent{Channel: 0, Pitch: 60, Velocity: 0.5, StartTimeSeconds: 0, DurationSeconds: 1},
	)
	ns := newNoteSchedule(s)

	if ns.notes[0].pitch != 60 || ns.notes[1].pitch != 62 {
		t.Errorf("notes not sorted by onset: %v %v", ns.notes[0], ns.notes[1])
	}
}

func TestScheduleAtMostOnce(t *testing.T) {
	s := scheduleSong(
		song.NoteEvent{Channel: 0, Pitch: 60, Velocity: 0.5, StartTimeSeconds: 0, DurationSeconds: 0.5},
	)
	ns := newNoteSchedule(s)

	first := collect(ns, 1000)
	if len(first) != 2 {
		t.Fatalf("got %d emissions, want on and off", len(first))
	}
	if !first[0].noteOn || first[1].noteOn {
		t.Errorf("expected on before off, got %v", first)
	}

	// Re-querying at the same or later times never re-emits.
	if again := collect(ns, 1000); len(again) != 0 {
		t.Errorf("re-advance at same time emitted %v", again)
	}
	if later := collect(ns, 5000); len(later) != 0 {
		t.Errorf("re-advance at later time emitted %v", later)
	}
}

func TestScheduleZeroDurationNote(t *testing.T) {
	s := scheduleSong(
		song.NoteEvent{Channel: 0, Pitch: 72, Velocity: 1, StartTimeSeconds: 1, DurationSeconds: 0},
	)
	ns := newNoteSchedule(s)

	if early := collect(ns, 500); len(early) != 0 {
		t.Fatalf("emitted %v before the note was due", early)
	}
	got := collect(ns, 1000)
	want := []emission{{pitch: 72, noteOn: true}, {pitch: 72, noteOn: false}}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("zero-duration note emitted %v, want on immediately followed by off", got)
	}
}

func TestScheduleResetFlags(t *testing.T) {
	s := scheduleSong(
		song.NoteEvent{Channel: 0, Pitch: 60, Velocity: 0.5, StartTimeSeconds: 0, DurationSeconds: 0.5},
	)
	ns := newNoteSchedule(s)

	collect(ns, 1000)
	ns.resetFlags()
	if replay := collect(ns, 1000); len(replay) != 2 {
		t.Errorf("after reset, replay emitted %d events, want 2", len(replay))
	}
}

func TestScheduleRearm(t *testing.T) {
	s := scheduleSong(
		song.NoteEvent{Channel: 0, Pitch: 60, Velocity: 0.5, StartTimeSeconds: 0, DurationSeconds: 0.5},
		song.NoteEvent{Channel: 0, Pitch: 62, Velocity: 0.5, StartTimeSeconds: 1, DurationSeconds: 1},
		song.NoteEvent{Channel: 0, Pitch: 64, Velocity: 0.5, StartTimeSeconds: 3, DurationSeconds: 0.5},
	)
	ns := newNoteSchedule(s)

	// Target falls inside the second note's sounding interval.
	ns.rearm(1500)

	want := [][2]bool{
		{true, true},   // fully before the target: completed
		{true, false},  // sounding across the target: release still due
		{false, false}, // fully after the target: fresh
	}
	got := ns.flags()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("note %d flags = %v, want %v", i, got[i], want[i])
		}
	}

	// Advancing from the target emits the straddling note's off and the
	// later note in full, but never re-strikes the straddling note.
	got2 := collect(ns, 4000)
	want2 := []emission{
		{pitch: 62, noteOn: false},
		{pitch: 64, noteOn: true},
		{pitch: 64, noteOn: false},
	}
	if len(got2) != len(want2) {
		t.Fatalf("emitted %v, want %v", got2, want2)
	}
	for i := range want2 {
		if got2[i] != want2[i] {
			t.Errorf("emission %d = %v, want %v", i, got2[i], want2[i])
		}
	}
}

// TestScheduleAtMostOnceProperty checks that over any monotone query
// sequence every note produces exactly one on and at most one off, with
// the on preceding the off.
func TestScheduleAtMostOnceProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("every note emits at most one on and one off", prop.ForAll(
		func(startsMs []int, queriesMs []int) bool {
			notes := make([]song.NoteEvent, len(startsMs))
			for i, st := range startsMs {
				notes[i] = song.NoteEvent{
					Channel:          0,
					Pitch:            60 + i%12,
					Velocity:         0.5,
					StartTimeSeconds: float64(st) / 1000,
					DurationSeconds:  0.25,
				}
			}
			ns := newNoteSchedule(scheduleSong(notes...))

			sort.Ints(queriesMs)
			onCount := make(map[int]int)
			offCount := make(map[int]int)
			for _, q := range queriesMs {
				ns.advance(int64(q), func(n *scheduledNote, noteOn bool) {
					if noteOn {
						onCount[n.pitch]++
					} else {
						offCount[n.pitch]++
						if offCount[n.pitch] > onCount[n.pitch] {
							t.Log("off emitted before on")
						}
					}
				})
			}

			for pitch, c := range onCount {
				if c > len(startsMs) {
					t.Logf("pitch %d on count %d exceeds note count", pitch, c)
					return false
				}
				if offCount[pitch] > c {
					return false
				}
			}
			// Querying far past the end emits everything exactly once total.
			ns.advance(1<<40, func(n *scheduledNote, noteOn bool) {
				if noteOn {
					onCount[n.pitch]++
				} else {
					offCount[n.pitch]++
				}
			})
			totalOn, totalOff := 0, 0
			for _, c := range onCount {
				totalOn += c
			}
			for _, c := range offCount {
				totalOff += c
			}
			return totalOn == len(startsMs) && totalOff == len(startsMs)
		},
		gen.SliceOf(gen.IntRange(0, 5000)),
		gen.SliceOf(gen.IntRange(0, 6000)),
	))

	properties.TestingRun(t)
}

// TestScheduleRearmDeterminismProperty checks that the flag configuration
// after a seek depends only on the target, not on playback history.
func TestScheduleRearmDeterminismProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("rearm result depends only on the target", prop.ForAll(
		func(targetMs int, historyMs []int) bool {
			makeSchedule := func() *noteSchedule {
				return newNoteSchedule(scheduleSong(
					song.NoteEvent{Channel: 0, Pitch: 60, Velocity: 0.5, StartTimeSeconds: 0.5, DurationSeconds: 1},
					song.NoteEvent{Channel: 0, Pitch: 62, Velocity: 0.5, StartTimeSeconds: 2, DurationSeconds: 1},
					song.NoteEvent{Channel: 0, Pitch: 64, Velocity: 0.5, StartTimeSeconds: 4, DurationSeconds: 1},
				))
			}

			fresh := makeSchedule()
			fresh.rearm(int64(targetMs))

			played := makeSchedule()
			for _, q := range historyMs {
				played.advance(int64(q), func(*scheduledNote, bool) {})
			}
			played.rearm(int64(targetMs))

			a, b := fresh.flags(), played.flags()
			for i := range a {
				if a[i] != b[i] {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 6000),
		gen.SliceOf(gen.IntRange(0, 6000)),
	))

	properties.TestingRun(t)
}
