// Package broadcast defines the events pushed over live group channels and
// the dispatcher that fans them out.
package broadcast

import (
	"time"

	"cinematch/internal/metadata"

	id "cinematch/pkg/domain"
)

// EventType discriminates the JSON messages sent to subscribers. Every
// payload carries one in its "type" field so clients can route without
// guessing at shapes.
type EventType string

const (
	EventConnectionEstablished EventType = "connection_established"
	EventMatchFound            EventType = "match_found"
	EventError                 EventType = "error"
	EventPong                  EventType = "pong"
)

// ConnectionEstablished confirms a successful subscription to the client.
type ConnectionEstablished struct {
	Type   EventType `json:"type"`
	Group  string    `json:"group"`
	Member string    `json:"member"`
}

func NewConnectionEstablished(group id.GroupID, member id.MemberID) ConnectionEstablished {
	return ConnectionEstablished{
		Type:   EventConnectionEstablished,
		Group:  group.String(),
		Member: member.String(),
	}
}

// MatchFound announces that the group reached consensus on an item. The
// enrichment makes the payload self-contained; when metadata lookup failed it
// carries the degraded fallback instead.
type MatchFound struct {
	Type       EventType           `json:"type"`
	Group      string              `json:"group"`
	Item       int64               `json:"item"`
	Approvers  []string            `json:"approvers"`
	Enrichment metadata.Enrichment `json:"enrichment"`
	DetectedAt time.Time           `json:"detectedAt"`
}

// ErrorEvent reports a per-message failure without tearing down the
// connection.
type ErrorEvent struct {
	Type    EventType `json:"type"`
	Message string    `json:"message"`
}

func NewErrorEvent(message string) ErrorEvent {
	return ErrorEvent{Type: EventError, Message: message}
}

// Pong answers a client ping.
type Pong struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

func NewPong() Pong {
	return Pong{Type: EventPong, Timestamp: time.Now().UTC()}
}
