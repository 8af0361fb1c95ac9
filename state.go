package alohaplay

// State of the transport.
type State int

const (
	Stopped State = iota
	Playing
	Paused

	// Finished is entered when every stream ran out while playing, unless
	// the player loops.
	Finished
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}
