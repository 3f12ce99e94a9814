package sim

import (
	"encoding/json"
	"time"
)

// EventType enum for event classification
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeTick              // Tick boundary
	EventTypeAgentSpawn
	EventTypeAgentRemove
	EventTypeGoalIssued
	EventTypeGoalRejected
	EventTypeAgentArrived
	EventTypeSearchCap // Flow field safety valve tripped
)

// EventVersion for backwards compatibility in replay
const EventVersion uint8 = 1

// Event is the core event structure for the event log
type Event struct {
	Version   uint8           `json:"version"`
	Type      EventType       `json:"type"`
	Timestamp int64           `json:"timestamp"` // Unix nano
	Sequence  uint64          `json:"sequence"`  // Monotonic sequence
	TickNum   uint64          `json:"tickNum"`
	Source    string          `json:"source"` // Agent ID or client, used for rate limiting
	Payload   json.RawMessage `json:"payload"`
}

// String returns human-readable event type
func (t EventType) String() string {
	switch t {
	case EventTypeTick:
		return "tick"
	case EventTypeAgentSpawn:
		return "agent_spawn"
	case EventTypeAgentRemove:
		return "agent_remove"
	case EventTypeGoalIssued:
		return "goal_issued"
	case EventTypeGoalRejected:
		return "goal_rejected"
	case EventTypeAgentArrived:
		return "agent_arrived"
	case EventTypeSearchCap:
		return "search_cap"
	default:
		return "unknown"
	}
}

// MarshalJSON writes the event type by name so JSONL logs stay readable.
func (t EventType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// TickPayload contains tick boundary information
type TickPayload struct {
	AgentCount  int   `json:"agentCount"`
	MovingCount int   `json:"movingCount"`
	DeltaTimeNs int64 `json:"deltaTimeNs"`
}

// AgentPayload describes a spawned or removed agent
type AgentPayload struct {
	AgentID string  `json:"agentId"`
	X       float64 `json:"x"`
	Z       float64 `json:"z"`
}

// GoalPayload describes a goal order
type GoalPayload struct {
	X        float64 `json:"x"`
	Z        float64 `json:"z"`
	Assigned int     `json:"assigned"`
	Rejected int     `json:"rejected"`
}

// ArrivalPayload describes an agent reaching its goal
type ArrivalPayload struct {
	AgentID string  `json:"agentId"`
	X       float64 `json:"x"`
	Z       float64 `json:"z"`
	Ticks   uint64  `json:"ticks"` // Ticks since the goal was issued
}

// SearchCapPayload identifies the field whose search was aborted
type SearchCapPayload struct {
	GoalX int `json:"goalX"` // Fine cell
	GoalZ int `json:"goalZ"`
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload interface{}) json.RawMessage {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, tickNum uint64, source string, payload interface{}) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		TickNum:   tickNum,
		Source:    source,
		Payload:   EncodePayload(payload),
	}
}
