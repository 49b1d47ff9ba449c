// Package synth renders the delayed semantic note events from the event
// bus through a SoundFont software synthesizer, streamed to the sound
// card via Ebitengine's audio player.
package synth

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/sinshu/go-meltysynth/meltysynth"

	"github.com/zurustar/pianola/pkg/logger"
	"github.com/zurustar/pianola/pkg/player"
)

// SampleRate is the audio sample rate for synthesis.
const SampleRate = 44100

// midiProgramChange is the MIDI program change command byte.
const midiProgramChange = 0xC0

var (
	// Ebiten allows only one audio context per process.
	globalAudioContext *audio.Context
	audioContextMutex  sync.Mutex
)

func getAudioContext() *audio.Context {
	audioContextMutex.Lock()
	defer audioContextMutex.Unlock()

	if globalAudioContext == nil {
		globalAudioContext = audio.NewContext(SampleRate)
	}
	return globalAudioContext
}

// Synth is the audio-synthesis observer. It subscribes to the delayed
// note path of the event bus and renders through go-meltysynth.
type Synth struct {
	mu          sync.Mutex
	log         *slog.Logger
	synthesizer *meltysynth.Synthesizer
	player      *audio.Player
	programs    [16]int32
	muted       bool
}

// New loads a SoundFont and starts the streaming audio player.
func New(soundFontPath string) (*Synth, error) {
	data, err := os.ReadFile(soundFontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load soundfont %s: %w", soundFontPath, err)
	}
	soundFont, err := meltysynth.NewSoundFont(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse soundfont %s: %w", soundFontPath, err)
	}

	settings := meltysynth.NewSynthesizerSettings(SampleRate)
	synthesizer, err := meltysynth.NewSynthesizer(soundFont, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesizer: %w", err)
	}

	s := &Synth{
		log:         logger.GetLogger(),
		synthesizer: synthesizer,
	}
	for ch := range s.programs {
		s.programs[ch] = -1
	}

	s.player, err = getAudioContext().NewPlayer(&synthStream{synth: s})
	if err != nil {
		return nil, fmt.Errorf("failed to create audio player: %w", err)
	}
	s.player.Play()

	s.log.Info("synthesizer ready", "soundfont", soundFontPath, "sample_rate", SampleRate)
	return s, nil
}

// Attach subscribes the synthesizer to the bus's note and safety events.
func (s *Synth) Attach(bus *player.Bus) {
	bus.Subscribe(player.EventNoteOn, s.handleNoteOn)
	bus.Subscribe(player.EventNoteOff, s.handleNoteOff)
	bus.Subscribe(player.EventAllNotesOff, s.handleAllNotesOff)
}

// SetMuted silences rendering without stopping the stream.
func (s *Synth) SetMuted(muted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted = muted
	if s.player != nil {
		if muted {
			s.player.SetVolume(0)
		} else {
			s.player.SetVolume(1)
		}
	}
}

// Close stops the audio player and silences the synthesizer.
func (s *Synth) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synthesizer.NoteOffAll(true)
	if s.player != nil {
		err := s.player.Close()
		s.player = nil
		return err
	}
	return nil
}

func (s *Synth) handleNoteOn(ev player.Event) {
	ch := int32(ev.Channel & 0x0F)
	velocity := int32(ev.Velocity*127 + 0.5)
	if velocity < 0 {
		velocity = 0
	}
	if velocity > 127 {
		velocity = 127
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Track the source program so the timbre follows the original
	// channel, not the physical remap.
	if program := int32(ev.Program); s.programs[ch] != program {
		s.synthesizer.ProcessMidiMessage(ch, midiProgramChange, program, 0)
		s.programs[ch] = program
	}
	s.synthesizer.NoteOn(ch, int32(ev.Note), velocity)
}

func (s *Synth) handleNoteOff(ev player.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synthesizer.NoteOff(int32(ev.Channel&0x0F), int32(ev.Note))
}

func (s *Synth) handleAllNotesOff(player.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synthesizer.NoteOffAll(false)
}

// synthStream implements io.Reader for Ebitengine's audio player,
// rendering 16-bit interleaved stereo from the synthesizer.
type synthStream struct {
	synth *Synth
}

func (st *synthStream) Read(p []byte) (int, error) {
	// 2 channels * 2 bytes per sample
	sampleCount := len(p) / 4
	if sampleCount == 0 {
		return 0, nil
	}

	left := make([]float32, sampleCount)
	right := make([]float32, sampleCount)

	st.synth.mu.Lock()
	st.synth.synthesizer.Render(left, right)
	st.synth.mu.Unlock()

	for i := 0; i < sampleCount; i++ {
		l := int16(clamp(left[i], -1, 1) * 32767)
		r := int16(clamp(right[i], -1, 1) * 32767)
		binary.LittleEndian.PutUint16(p[i*4:], uint16(l))
		binary.LittleEndian.PutUint16(p[i*4+2:], uint16(r))
	}

	return sampleCount * 4, nil
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
