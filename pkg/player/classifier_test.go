package player

import (
	"testing"

	"github.com/zurustar/pianola/pkg/song"
)

func TestClassifyPianoChannels(t *testing.T) {
	tests := []struct {
		name   string
		tracks []song.Track
		want   map[int]bool
	}{
		{
			name: "piano program marks its channel",
			tracks: []song.Track{
				{Channel: 0, InstrumentProgram: 0},
				{Channel: 1, InstrumentProgram: 40},
			},
			want: map[int]bool{0: true},
		},
		{
			name: "whole piano family counts",
			tracks: []song.Track{
				{Channel: 0, InstrumentProgram: 7},
				{Channel: 1, InstrumentProgram: 8},
			},
			want: map[int]bool{0: true},
		},
		{
			name: "percussion channel never piano",
			tracks: []song.Track{
				{Channel: 9, InstrumentProgram: 0},
			},
			want: map[int]bool{},
		},
		{
			name: "no piano tracks yields empty set",
			tracks: []song.Track{
				{Channel: 2, InstrumentProgram: 25},
				{Channel: 3, InstrumentProgram: 48},
			},
			want: map[int]bool{},
		},
		{
			name: "several tracks on one piano channel collapse",
			tracks: []song.Track{
				{Channel: 4, InstrumentProgram: 1},
				{Channel: 4, InstrumentProgram: 2},
			},
			want: map[int]bool{4: true},
		},
		{
			name:   "empty input",
			tracks: nil,
			want:   map[int]bool{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyPianoChannels(tt.tracks)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for ch := range tt.want {
				if !got[ch] {
					t.Errorf("channel %d missing from %v", ch, got)
				}
			}
		})
	}
}

func TestProgramMap(t *testing.T) {
	tracks := []song.Track{
		{Channel: 0, InstrumentProgram: 0},
		{Channel: 1, InstrumentProgram: 40},
		{Channel: 1, InstrumentProgram: 41}, // later track wins
	}
	got := programMap(tracks)
	if got[0] != 0 {
		t.Errorf("channel 0 program = %d, want 0", got[0])
	}
	if got[1] != 41 {
		t.Errorf("channel 1 program = %d, want 41", got[1])
	}
}
