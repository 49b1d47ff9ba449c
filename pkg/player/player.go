// Package player implements the playback scheduling engine: transport
// control, per-channel output routing, lyric projection and the
// event bus keeping the physical piano and the synthesis/display path in
// sync.
//
// The engine is single-actor: all state mutation happens under one mutex,
// on tick callbacks or on transport calls. Work per tick is a linear scan
// over the loaded song's notes, bounded and cheap at the ~60 Hz tick
// rate.
package player

import (
	"log/slog"
	"sync"
	"time"

	"github.com/zurustar/pianola/pkg/logger"
	"github.com/zurustar/pianola/pkg/song"
)

const (
	// tickInterval is the playback tick cadence (~60 Hz).
	tickInterval = 16 * time.Millisecond

	// updateInterval throttles coarse state snapshots to ~10 Hz so
	// observers are not flooded on every tick.
	updateInterval = 100 * time.Millisecond

	// DefaultAudioOffset delays the synthesis/lyrics path behind the
	// physical piano to compensate for mechanical action latency.
	DefaultAudioOffset = 500 * time.Millisecond
)

// Player is the transport controller. It owns the play/pause/stop/seek
// state machine, the mapping from wall-clock to logical song time, and
// drives the note scheduler on a fixed-period tick loop.
type Player struct {
	mu  sync.Mutex
	log *slog.Logger
	bus *Bus
	out *SwitchableSink

	song          *song.Song
	singer        string
	sched         *noteSchedule
	lines         []song.LyricLine
	pianoChannels map[int]bool
	programs      map[int]int

	st          playbackState
	audioOffset time.Duration

	stopCh         chan struct{}
	lastLyricIndex int
	lastUpdate     time.Time
}

// NewPlayer creates a transport controller publishing on bus and sending
// physical messages through out.
func NewPlayer(bus *Bus, out *SwitchableSink) *Player {
	return &Player{
		log:            logger.GetLogger(),
		bus:            bus,
		out:            out,
		st:             stoppedState(),
		audioOffset:    DefaultAudioOffset,
		lastLyricIndex: -1,
	}
}

// LoadSong replaces the current song and leaves the transport Stopped.
// It is the only operation that can fail outward; on a validation error
// the previously loaded song and transport state are left untouched.
func (p *Player) LoadSong(s *song.Song, singer string) error {
	if err := s.Validate(); err != nil {
		return err
	}

	p.mu.Lock()
	p.stopTickLoopLocked()
	// A new song must never inherit stuck notes from the previous one.
	p.allNotesOffLocked()

	p.song = s
	p.singer = singer
	p.sched = newNoteSchedule(s)
	p.lines = song.GroupLyricLines(s.LyricEvents)
	p.pianoChannels = ClassifyPianoChannels(s.Tracks)
	p.programs = programMap(s.Tracks)
	p.st = stoppedState()
	p.lastLyricIndex = -1

	name := s.Name
	duration := s.DurationSeconds
	pianoCount := len(p.pianoChannels)
	p.mu.Unlock()

	p.log.Info("song loaded",
		"song", name,
		"singer", singer,
		"duration_s", duration,
		"notes", s.NoteCount(),
		"piano_channels", pianoCount)
	if pianoCount == 0 {
		p.log.Warn("no piano channels detected, falling back to all non-percussion channels", "song", name)
	}

	p.bus.Publish(Event{
		Type:       EventLoaded,
		SongName:   name,
		Singer:     singer,
		DurationMs: int64(duration * 1000),
	})
	return nil
}

// Play starts playback from a full stop or resumes from a pause. It is a
// no-op when no song is loaded or playback is already running.
func (p *Player) Play() {
	p.mu.Lock()
	if p.song == nil || p.st.mode == modePlaying {
		p.mu.Unlock()
		return
	}

	nowMs := time.Now().UnixMilli()
	switch p.st.mode {
	case modeStopped:
		// Defensive reset in case of residual flag state.
		p.sched.resetFlags()
		p.st = playingState(nowMs)
	case modePaused:
		// Shift the origin forward by the pause duration so logical time
		// resumes exactly where it left off.
		p.st = playingState(nowMs - p.st.elapsedMs)
	}
	p.lastLyricIndex = -1
	p.startTickLoopLocked()

	name := p.song.Name
	singer := p.singer
	position := p.st.logicalMs(nowMs)
	p.mu.Unlock()

	p.log.Info("playback started", "song", name, "position_ms", position)
	p.bus.Publish(Event{Type: EventPlay, SongName: name, Singer: singer, PositionMs: position})
}

// Pause freezes logical time and releases all sounding keys. It is a
// no-op unless playback is running.
func (p *Player) Pause() {
	p.mu.Lock()
	if p.st.mode != modePlaying {
		p.mu.Unlock()
		return
	}

	elapsed := p.st.logicalMs(time.Now().UnixMilli())
	p.st = pausedState(elapsed)
	p.stopTickLoopLocked()
	// A mechanical key held down must be released when paused.
	p.allNotesOffLocked()
	p.mu.Unlock()

	p.log.Info("playback paused", "position_ms", elapsed)
	p.bus.Publish(Event{Type: EventPause, PositionMs: elapsed})
}

// Stop halts playback from any state and discards logical time. It is a
// no-op when no song is loaded.
func (p *Player) Stop() {
	p.mu.Lock()
	if p.song == nil {
		p.mu.Unlock()
		return
	}
	p.stopTickLoopLocked()
	p.sched.resetFlags()
	p.st = stoppedState()
	p.lastLyricIndex = -1
	p.allNotesOffLocked()
	p.mu.Unlock()

	p.log.Info("playback stopped")
	p.bus.Publish(Event{Type: EventStop})
}

// Seek repositions the transport to targetMs, preserving the current
// Playing/Paused mode. Seeking while stopped leaves the transport paused
// at the target so a following Play resumes from it. A negative target
// is treated as zero; a target past the end stops on the next tick.
func (p *Player) Seek(targetMs int64) {
	p.mu.Lock()
	if p.song == nil {
		p.mu.Unlock()
		return
	}
	if targetMs < 0 {
		targetMs = 0
	}

	wasPlaying := p.st.mode == modePlaying
	p.stopTickLoopLocked()
	// Clear currently-sounding notes that no longer match the new
	// position before re-arming.
	p.allNotesOffLocked()
	p.sched.rearm(targetMs)

	if wasPlaying {
		p.st = playingState(time.Now().UnixMilli() - targetMs)
		p.startTickLoopLocked()
	} else {
		p.st = pausedState(targetMs)
	}
	p.lastLyricIndex = -1
	p.mu.Unlock()

	p.log.Info("seek", "target_ms", targetMs, "resumed", wasPlaying)
	p.bus.Publish(Event{Type: EventSeek, PositionMs: targetMs})
}

// SetAudioOffset adjusts the synthesis/lyrics delay at runtime. The value
// is clamped to be non-negative and takes effect on the next tick.
func (p *Player) SetAudioOffset(d time.Duration) {
	if d < 0 {
		d = 0
	}
	p.mu.Lock()
	p.audioOffset = d
	p.mu.Unlock()
	p.log.Debug("audio offset changed", "offset", d)
}

// AudioOffset returns the current synthesis/lyrics delay.
func (p *Player) AudioOffset() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.audioOffset
}

// PositionMs returns the current logical song time in milliseconds.
func (p *Player) PositionMs() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.st.logicalMs(time.Now().UnixMilli())
}

// State returns the current transport state name.
func (p *Player) State() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.st.mode.String()
}

// Song returns the currently loaded song, or nil.
func (p *Player) Song() *song.Song {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.song
}

// PianoChannels returns the detected piano channel set for the loaded
// song.
func (p *Player) PianoChannels() map[int]bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[int]bool, len(p.pianoChannels))
	for ch := range p.pianoChannels {
		out[ch] = true
	}
	return out
}

// Close stops playback and cancels outstanding safety broadcasts. The
// output sink is left to its owner.
func (p *Player) Close() {
	p.Stop()
	p.bus.CancelSafety()
}

// startTickLoopLocked launches the fixed-period tick goroutine. Caller
// holds p.mu.
func (p *Player) startTickLoopLocked() {
	stopCh := make(chan struct{})
	p.stopCh = stopCh
	go func() {
		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				p.tick()
			}
		}
	}()
}

// stopTickLoopLocked signals the tick goroutine to exit. Caller holds
// p.mu. A tick already racing for the mutex re-checks the transport mode
// and becomes a no-op.
func (p *Player) stopTickLoopLocked() {
	if p.stopCh != nil {
		close(p.stopCh)
		p.stopCh = nil
	}
}

// tick advances playback by one scheduling step: compute logical time,
// detect end of song, emit due note events, project lyrics and publish
// the coarse state snapshot.
func (p *Player) tick() {
	p.mu.Lock()
	if p.st.mode != modePlaying || p.song == nil {
		p.mu.Unlock()
		return
	}

	nowMs := time.Now().UnixMilli()
	logical := p.st.logicalMs(nowMs)
	durationMs := int64(p.song.DurationSeconds * 1000)

	if logical >= durationMs {
		p.finishLocked()
		return
	}

	offset := p.audioOffset
	var batch []Event
	p.sched.advance(logical, func(n *scheduledNote, noteOn bool) {
		batch = append(batch, p.emitPhysicalLocked(n, noteOn))
	})

	if lyricEv, changed := p.projectLyricsLocked(logical); changed {
		batch = append(batch, lyricEv)
	}

	var updateEv *Event
	if time.Since(p.lastUpdate) >= updateInterval {
		p.lastUpdate = time.Now()
		ev := p.snapshotLocked(logical)
		updateEv = &ev
	}
	p.mu.Unlock()

	// One cancellable timer per tick batch keeps within-tick ordering on
	// the delayed synthesis path.
	p.bus.PublishAfter(offset, batch...)
	if updateEv != nil {
		p.bus.Publish(*updateEv)
	}
}

// emitPhysicalLocked routes one due event to the output sink when its
// channel is physically playable and returns the corresponding bus event
// for the delayed synthesis path. Caller holds p.mu.
func (p *Player) emitPhysicalLocked(n *scheduledNote, noteOn bool) Event {
	if p.routableLocked(n.channel) {
		var msg [3]byte
		if noteOn {
			msg = noteOnMessage(physicalChannel, n.pitch, velocityByte(n.velocity))
		} else {
			msg = noteOffMessage(physicalChannel, n.pitch)
		}
		// Best effort: physical silence is a degraded mode, a crashed
		// player is not.
		if err := p.out.Send(msg); err != nil {
			p.log.Error("output send failed", "pitch", n.pitch, "err", err)
		}
	}

	ev := Event{Channel: n.channel & 0x0F, Note: n.pitch}
	if noteOn {
		ev.Type = EventNoteOn
		ev.Velocity = n.velocity
		ev.Program = p.programs[n.channel&0x0F]
	} else {
		ev.Type = EventNoteOff
	}
	return ev
}

// routableLocked decides whether a channel's notes go to the physical
// sink. Percussion never does; with no detected piano channels every
// other channel does. Caller holds p.mu.
func (p *Player) routableLocked(channel int) bool {
	ch := channel & 0x0F
	if ch == song.PercussionChannel {
		return false
	}
	if len(p.pianoChannels) == 0 {
		return true
	}
	return p.pianoChannels[ch]
}

// projectLyricsLocked derives the active lyric line from logical time.
// Caller holds p.mu.
func (p *Player) projectLyricsLocked(logicalMs int64) (Event, bool) {
	if len(p.lines) == 0 {
		return Event{}, false
	}
	t := float64(logicalMs) / 1000.0
	idx := song.ActiveLineIndex(p.lines, t)
	if idx == p.lastLyricIndex {
		return Event{}, false
	}
	p.lastLyricIndex = idx
	return Event{
		Type:        EventLyrics,
		LineIndex:   idx,
		Lines:       p.lines,
		TimeSeconds: t,
	}, true
}

// snapshotLocked builds the coarse playback-state snapshot. Caller holds
// p.mu.
func (p *Player) snapshotLocked(logicalMs int64) Event {
	return Event{
		Type:       EventUpdate,
		SongName:   p.song.Name,
		Singer:     p.singer,
		State:      p.st.mode.String(),
		PositionMs: logicalMs,
		DurationMs: int64(p.song.DurationSeconds * 1000),
	}
}

// finishLocked handles end of song: transition to Stopped and raise the
// terminal ended notification. Caller holds p.mu; the lock is released.
func (p *Player) finishLocked() {
	p.stopTickLoopLocked()
	p.sched.resetFlags()
	p.st = stoppedState()
	p.lastLyricIndex = -1
	p.allNotesOffLocked()
	name := p.song.Name
	singer := p.singer
	p.mu.Unlock()

	p.log.Info("playback ended", "song", name)
	p.bus.Publish(Event{Type: EventEnded, SongName: name, Singer: singer})
}

// allNotesOffLocked silences every channel on the physical sink
// immediately and schedules the matching safety broadcast on the delayed
// synthesis path, superseding any broadcast still pending. Caller holds
// p.mu.
func (p *Player) allNotesOffLocked() {
	for ch := 0; ch < 16; ch++ {
		if err := p.out.Send(controlChangeMessage(ch, ccAllNotesOff, 0)); err != nil {
			p.log.Debug("all-notes-off send failed", "channel", ch, "err", err)
		}
	}
	p.bus.CancelSafety()
	p.bus.PublishSafetyAfter(p.audioOffset, Event{Type: EventAllNotesOff})
}
