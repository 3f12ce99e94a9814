package sim

import "errors"

var (
	// ErrGoalUnreachable is returned when no selected agent can reach a goal.
	ErrGoalUnreachable = errors.New("goal unreachable")
	// ErrAgentNotFound is returned for unknown agent IDs.
	ErrAgentNotFound = errors.New("agent not found")
	// ErrNoActiveField is returned when a field query arrives before any goal was issued.
	ErrNoActiveField = errors.New("no active flow field")
	// ErrPositionBlocked is returned when placing an agent outside open terrain.
	ErrPositionBlocked = errors.New("position blocked")
	// ErrAgentLimit is returned when the agent cap is reached.
	ErrAgentLimit = errors.New("agent limit reached")
)
