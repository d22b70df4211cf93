package match

import "fmt"

// Phase is the controller's lifecycle phase
type Phase int

const (
	// PhaseIdle - at least one seat is empty
	PhaseIdle Phase = iota

	// PhaseReady - both seats bound, no game in progress
	PhaseReady

	// PhaseInGame - players are moving
	PhaseInGame

	// PhaseScored - the last game finished and both players saw the outcome
	PhaseScored
)

// String returns the string representation of a Phase
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseReady:
		return "Ready"
	case PhaseInGame:
		return "InGame"
	case PhaseScored:
		return "Scored"
	default:
		return fmt.Sprintf("Unknown(%d)", p)
	}
}

// CanStartGame returns true if a new game may begin from this phase
func (p Phase) CanStartGame() bool {
	return p == PhaseReady || p == PhaseScored
}

// AllowedTransitions returns the valid phases this phase can transition to.
// InGame goes back to Ready when a game is aborted by a failing strategy.
func (p Phase) AllowedTransitions() []Phase {
	switch p {
	case PhaseIdle:
		return []Phase{PhaseReady}
	case PhaseReady:
		return []Phase{PhaseInGame, PhaseIdle}
	case PhaseInGame:
		return []Phase{PhaseScored, PhaseReady}
	case PhaseScored:
		return []Phase{PhaseInGame, PhaseReady, PhaseIdle}
	default:
		return []Phase{}
	}
}

// CanTransitionTo checks if a transition from this phase to the target phase is allowed
func (p Phase) CanTransitionTo(target Phase) bool {
	for _, phase := range p.AllowedTransitions() {
		if phase == target {
			return true
		}
	}
	return false
}
