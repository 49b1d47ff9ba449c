package player

import "github.com/zurustar/pianola/pkg/song"

// pianoFamilySize is the number of General MIDI programs in the piano
// family (programs 0-7: acoustic, electric and related pianos).
const pianoFamilySize = 8

// ClassifyPianoChannels determines which channels carry physically
// playable piano content. A channel is piano when any track declares a
// piano-family program on it and it is not the percussion channel.
//
// An empty result is not an error: routing falls back to sending all
// non-percussion channels so songs without explicit piano metadata still
// produce physical sound.
func ClassifyPianoChannels(tracks []song.Track) map[int]bool {
	channels := make(map[int]bool)
	for _, tr := range tracks {
		ch := tr.Channel & 0x0F
		if ch == song.PercussionChannel {
			continue
		}
		if tr.InstrumentProgram >= 0 && tr.InstrumentProgram < pianoFamilySize {
			channels[ch] = true
		}
	}
	return channels
}

// programMap builds the channel to instrument-program mapping used for
// audio-synthesis routing. Later tracks win when several tracks share a
// channel.
func programMap(tracks []song.Track) map[int]int {
	programs := make(map[int]int, len(tracks))
	for _, tr := range tracks {
		programs[tr.Channel&0x0F] = tr.InstrumentProgram
	}
	return programs
}
