package engine

import "fmt"

// State is the orchestrator state after a tick.
//
// Engaging means a selected target was inside the aim tolerance. A tick that
// the humanizer skips still reports Engaging but sends no fire sequence; only
// the miss counter records it.
type State int

const (
	Idle State = iota
	Scanning
	Tracking
	Engaging
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scanning:
		return "scanning"
	case Tracking:
		return "tracking"
	case Engaging:
		return "engaging"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText renders the state name in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name produced by MarshalText.
func (s *State) UnmarshalText(b []byte) error {
	for st := Idle; st <= Engaging; st++ {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", b)
}
