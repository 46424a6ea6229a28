package transfer

import (
	"fmt"
	"time"
)

// State is the lifecycle stage of a transfer.
type State int

const (
	Idle State = iota
	InProgress
	Cancelled
	Failed
	Succeeded
)

var stateNames = map[State]string{
	Idle:       "idle",
	InProgress: "in_progress",
	Cancelled:  "cancelled",
	Failed:     "failed",
	Succeeded:  "succeeded",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}

	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no event can move the transfer out of s.
func (s State) Terminal() bool {
	return s == Cancelled || s == Failed || s == Succeeded
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for state, name := range stateNames {
		if name == string(b) {
			*s = state

			return nil
		}
	}

	return fmt.Errorf("unknown transfer state %q", b)
}

// Snapshot is a copy of the observable data of a transfer.
type Snapshot struct {
	URL        string    `json:"url,omitempty"`
	Path       string    `json:"path,omitempty"`
	State      State     `json:"state"`
	BytesRead  int64     `json:"bytes_read"`
	BytesTotal int64     `json:"bytes_total"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at,omitempty"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// Percent returns the completed fraction in [0, 100], or -1 when the total
// length is unknown.
func (s Snapshot) Percent() float64 {
	if s.BytesTotal <= 0 {
		return -1
	}

	p := float64(s.BytesRead) * 100 / float64(s.BytesTotal)
	if p > 100 {
		p = 100
	}

	return p
}
