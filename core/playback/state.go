package playback

import (
	"fmt"
	"math"

	"otakuwave/model"
)

// State is the playback state machine.
//
//	           select            (playback starts)
//	  Idle ───────────▶ Loading ──────────────────▶ Playing
//	   ▲                   ▲                        │    ▲
//	   │ close / empty     │ skip, auto-advance     │    │ toggle, reselect
//	   │ track list        │ to another track       ▼    │
//	   └───────────────────┴──────────────────────  Paused
//
// Any state returns to Idle on Close or when the track list empties.
// Loading lasts only until the element has been told to play: a source
// that never starts is not detected.
type State int

const (
	StateIdle State = iota
	StateLoading
	StatePlaying
	StatePaused
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name written by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	for _, st := range []State{StateIdle, StateLoading, StatePlaying, StatePaused} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown playback state %q", text)
}

// Snapshot is a copy of a controller's reported state.
type Snapshot struct {
	State       State        `json:"state"`
	Track       *model.Track `json:"track"`
	Playing     bool         `json:"playing"`
	CurrentTime float64      `json:"currentTime"`
	Duration    float64      `json:"duration"`
}

// Progress returns the position as a percentage of the duration, or 0 while
// the duration is unknown.
func (s Snapshot) Progress() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return s.CurrentTime / s.Duration * 100
}

// knownDuration reports whether d is a usable track length.
func knownDuration(d float64) bool {
	return d > 0 && !math.IsInf(d, 0) && !math.IsNaN(d)
}

// clampPosition keeps pos within [0, duration] once the duration is known.
func clampPosition(pos, duration float64) float64 {
	if math.IsNaN(pos) || pos < 0 {
		return 0
	}
	if knownDuration(duration) && pos > duration {
		return duration
	}
	return pos
}
