package player

import "math"

// MIDI status bytes and controller numbers used at the output boundary.
const (
	statusNoteOff       = 0x80
	statusNoteOn        = 0x90
	statusControlChange = 0xB0

	ccAllNotesOff = 123
)

// physicalChannel is the output channel every physical message is
// remapped to; piano control surfaces listen on a single channel only.
const physicalChannel = 0

// velocityByte converts a unit-range velocity to its 7-bit wire value.
func velocityByte(v float64) byte {
	scaled := int(math.Round(v * 127))
	if scaled < 0 {
		scaled = 0
	}
	if scaled > 127 {
		scaled = 127
	}
	return byte(scaled)
}

func noteOnMessage(channel int, pitch int, velocity byte) [3]byte {
	return [3]byte{statusNoteOn | byte(channel&0x0F), byte(pitch & 0x7F), velocity}
}

func noteOffMessage(channel int, pitch int) [3]byte {
	return [3]byte{statusNoteOff | byte(channel&0x0F), byte(pitch & 0x7F), 0}
}

func controlChangeMessage(channel int, controller byte, value byte) [3]byte {
	return [3]byte{statusControlChange | byte(channel&0x0F), controller, value}
}
