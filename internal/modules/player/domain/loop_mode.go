package domain

// LoopMode is the display form of the queue's two loop flags.
type LoopMode int

const (
	LoopModeNone  LoopMode = iota // no looping
	LoopModeTrack                 // loopOne set
	LoopModeQueue                 // loopAll set, loopOne clear
)

// String returns a human-readable representation of the loop mode.
func (m LoopMode) String() string {
	switch m {
	case LoopModeTrack:
		return "track"
	case LoopModeQueue:
		return "queue"
	default:
		return "none"
	}
}

// ParseLoopMode converts a string to a LoopMode. Unknown values map to none.
func ParseLoopMode(s string) LoopMode {
	switch s {
	case "track", "one":
		return LoopModeTrack
	case "queue", "all":
		return LoopModeQueue
	default:
		return LoopModeNone
	}
}

// Next cycles through loop modes: none -> track -> queue -> none.
func (m LoopMode) Next() LoopMode {
	switch m {
	case LoopModeNone:
		return LoopModeTrack
	case LoopModeTrack:
		return LoopModeQueue
	default:
		return LoopModeNone
	}
}

// Flags returns the loopOne and loopAll values that represent the mode.
func (m LoopMode) Flags() (loopOne, loopAll bool) {
	switch m {
	case LoopModeTrack:
		return true, false
	case LoopModeQueue:
		return false, true
	default:
		return false, false
	}
}

func loopModeFromFlags(loopOne, loopAll bool) LoopMode {
	switch {
	case loopOne:
		return LoopModeTrack
	case loopAll:
		return LoopModeQueue
	default:
		return LoopModeNone
	}
}
