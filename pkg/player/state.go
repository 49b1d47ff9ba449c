package player

// transportMode enumerates the transport state machine states.
type transportMode int

const (
	modeStopped transportMode = iota
	modePlaying
	modePaused
)

// String returns the string representation of a transport mode.
func (m transportMode) String() string {
	switch m {
	case modeStopped:
		return "Stopped"
	case modePlaying:
		return "Playing"
	case modePaused:
		return "Paused"
	default:
		return "Unknown"
	}
}

// playbackState is the transport state as a tagged value. A fresh value
// is constructed on every transition instead of patching flags in place;
// only the field belonging to the current mode is meaningful.
type playbackState struct {
	mode      transportMode
	originMs  int64 // Playing: wall-clock milliseconds of logical time zero
	elapsedMs int64 // Paused: frozen logical position in milliseconds
}

func stoppedState() playbackState {
	return playbackState{mode: modeStopped}
}

func playingState(originMs int64) playbackState {
	return playbackState{mode: modePlaying, originMs: originMs}
}

func pausedState(elapsedMs int64) playbackState {
	return playbackState{mode: modePaused, elapsedMs: elapsedMs}
}

// logicalMs maps wall-clock time to logical song time. Logical time is
// frozen while paused and zero while stopped; it never goes negative.
func (st playbackState) logicalMs(nowMs int64) int64 {
	switch st.mode {
	case modePlaying:
		if nowMs < st.originMs {
			return 0
		}
		return nowMs - st.originMs
	case modePaused:
		if st.elapsedMs < 0 {
			return 0
		}
		return st.elapsedMs
	default:
		return 0
	}
}
