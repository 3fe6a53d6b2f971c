package playback

// Status is the lifecycle state of a Sequencer.
type Status int

const (
	// StatusIdle means nothing is being read.
	StatusIdle Status = iota
	// StatusPlaying means a session is submitting chunks.
	StatusPlaying
	// StatusCancelled is the transient state between a toggle off and idle.
	StatusCancelled
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPlaying:
		return "playing"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// State is a snapshot of a Sequencer.
type State struct {
	Status Status
	Cursor int // Index of the chunk being read, or the next one to read
	Total  int // Number of chunks in the script
}

// IsPlaying reports whether a session is active.
func (s State) IsPlaying() bool {
	return s.Status == StatusPlaying
}
