package pipeline

import "strconv"

// State is the driver's position in its per-batch cycle.
type State int32

const (
	Idle State = iota
	AwaitingBatch
	Extracting
	Enriching
	Committing
)

var stateNames = [...]string{"idle", "awaiting_batch", "extracting", "enriching", "committing"}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "state(" + strconv.Itoa(int(s)) + ")"
}

// States lists every state in cycle order.
func States() []State {
	return []State{Idle, AwaitingBatch, Extracting, Enriching, Committing}
}
