// Package song defines the parsed-song data model handed to the playback
// engine by external parsers, together with structural validation and a
// JSON codec that makes the contract concrete.
//
// All event times are pre-resolved to seconds; no tick/PPQ math happens
// anywhere in this module.
package song

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrInvalidSong is returned when a parsed song fails structural validation.
var ErrInvalidSong = errors.New("invalid song data")

// PercussionChannel is the MIDI channel reserved for percussion by
// convention, regardless of the declared instrument program.
const PercussionChannel = 9

// LyricEvent is a single raw lyric syllable with its absolute time.
type LyricEvent struct {
	Text        string  `json:"text"`
	TimeSeconds float64 `json:"timeSeconds"`
}

// NoteEvent is a single note with absolute start time and duration.
// Velocity is a unit float; it is converted to a 7-bit value only at the
// output boundary.
type NoteEvent struct {
	Channel          int     `json:"channel"`
	Pitch            int     `json:"pitch"`
	Velocity         float64 `json:"velocity"`
	StartTimeSeconds float64 `json:"startTimeSeconds"`
	DurationSeconds  float64 `json:"durationSeconds"`
}

// Track groups the notes played on one channel with one instrument program.
type Track struct {
	Channel           int         `json:"channel"`
	InstrumentProgram int         `json:"instrumentProgram"`
	Notes             []NoteEvent `json:"notes"`
}

// Song is a fully parsed performance. It is immutable once handed to the
// player.
type Song struct {
	Name            string       `json:"name"`
	DurationSeconds float64      `json:"durationSeconds"`
	BPM             float64      `json:"bpm"`
	TimeSignature   string       `json:"timeSignature"`
	LyricEvents     []LyricEvent `json:"lyricEvents"`
	Tracks          []Track      `json:"tracks"`
	PianoChannels   []int        `json:"pianoChannels,omitempty"`
}

// NoteCount returns the total number of notes across all tracks.
func (s *Song) NoteCount() int {
	n := 0
	for _, tr := range s.Tracks {
		n += len(tr.Notes)
	}
	return n
}

// Validate checks the structural invariants of a parsed song. A song that
// fails validation must never reach the player.
func (s *Song) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: song is nil", ErrInvalidSong)
	}
	if s.DurationSeconds < 0 {
		return fmt.Errorf("%w: negative duration %f", ErrInvalidSong, s.DurationSeconds)
	}
	for i, tr := range s.Tracks {
		if tr.Channel < 0 || tr.Channel > 15 {
			return fmt.Errorf("%w: track %d channel %d out of range", ErrInvalidSong, i, tr.Channel)
		}
		if tr.InstrumentProgram < 0 || tr.InstrumentProgram > 127 {
			return fmt.Errorf("%w: track %d program %d out of range", ErrInvalidSong, i, tr.InstrumentProgram)
		}
		for j, n := range tr.Notes {
			if n.Channel != tr.Channel {
				return fmt.Errorf("%w: track %d note %d on channel %d, track owns channel %d",
					ErrInvalidSong, i, j, n.Channel, tr.Channel)
			}
			if n.Pitch < 0 || n.Pitch > 127 {
				return fmt.Errorf("%w: track %d note %d pitch %d out of range", ErrInvalidSong, i, j, n.Pitch)
			}
			if n.Velocity < 0 || n.Velocity > 1 {
				return fmt.Errorf("%w: track %d note %d velocity %f out of range", ErrInvalidSong, i, j, n.Velocity)
			}
			if n.StartTimeSeconds < 0 {
				return fmt.Errorf("%w: track %d note %d negative start time", ErrInvalidSong, i, j)
			}
			if n.DurationSeconds < 0 {
				return fmt.Errorf("%w: track %d note %d negative duration", ErrInvalidSong, i, j)
			}
		}
	}
	for i, ch := range s.PianoChannels {
		if ch < 0 || ch > 15 || ch == PercussionChannel {
			return fmt.Errorf("%w: piano channel %d at index %d out of range", ErrInvalidSong, ch, i)
		}
	}
	for i := 1; i < len(s.LyricEvents); i++ {
		if s.LyricEvents[i].TimeSeconds < s.LyricEvents[i-1].TimeSeconds {
			return fmt.Errorf("%w: lyric events out of order at index %d", ErrInvalidSong, i)
		}
	}
	return nil
}

// Parse decodes and validates a parsed-song JSON document.
func Parse(data []byte) (*Song, error) {
	var s Song
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode song: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadFile reads and parses a parsed-song JSON file.
func LoadFile(path string) (*Song, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read song file %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("song file %s: %w", path, err)
	}
	return s, nil
}
