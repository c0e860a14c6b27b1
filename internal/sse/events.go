// Package sse implements the Server-Sent Events session stream. Each
// connection runs its own session state machine and is pushed a guard
// decision whenever the state changes.
package sse

import (
	"time"

	"github.com/nookapp/nook-server/internal/session"
)

// EventType represents the type of SSE event.
type EventType string

const (
	// EventConnected confirms the stream is established.
	EventConnected EventType = "connected"
	// EventSessionState carries a session state and guard decision.
	EventSessionState EventType = "session.state"
	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to the client.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
}

// StateEventData is the payload for session state events.
type StateEventData struct {
	State  session.State  `json:"state"`
	Action session.Action `json:"action"`
	Target string         `json:"target,omitempty"`
	Route  string         `json:"route"`
}

// NewStateEvent creates a session state event.
func NewStateEvent(route string, state session.State, decision session.Decision) Event {
	return Event{
		Timestamp: time.Now(),
		Type:      EventSessionState,
		Data: StateEventData{
			State:  state,
			Action: decision.Action,
			Target: decision.Target,
			Route:  route,
		},
	}
}

// NewConnectedEvent creates the stream-established event.
func NewConnectedEvent(clientID string) Event {
	return Event{
		Timestamp: time.Now(),
		Type:      EventConnected,
		Data: map[string]string{
			"client_id": clientID,
		},
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	return Event{
		Timestamp: time.Now(),
		Type:      EventHeartbeat,
		Data:      map[string]string{"status": "alive"},
	}
}
