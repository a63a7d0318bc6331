// internal/domain/websocket/types.go
package websocket

import (
	"encoding/json"
	"strings"
	"time"
)

// EventType names a realtime event
type EventType string

const (
	// Connection events
	EventTypePing         EventType = "ping"
	EventTypePong         EventType = "pong"
	EventTypeConnected    EventType = "connected"
	EventTypeDisconnected EventType = "disconnected"
	EventTypeError        EventType = "error"

	// Task events (server -> client)
	EventTypeTaskCreated EventType = "task:created"
	EventTypeTaskUpdated EventType = "task:updated"
	EventTypeTaskDeleted EventType = "task:deleted"

	// User events
	EventTypeUserOnline  EventType = "user:online"
	EventTypeUserOffline EventType = "user:offline"

	// Presence events
	EventTypePresenceJoin  EventType = "presence:join"
	EventTypePresenceLeave EventType = "presence:leave"

	// Room requests (client -> server)
	EventTypeJoinRoom  EventType = "join:room"
	EventTypeLeaveRoom EventType = "leave:room"
)

// UserChannelPrefix is reserved for the per-identity channels the gateway
// joins on handshake.
const UserChannelPrefix = "user:"

// UserChannel is the channel every connection of userID is joined to.
func UserChannel(userID string) string {
	return UserChannelPrefix + userID
}

// IsUserChannel reports whether name is in the reserved namespace.
func IsUserChannel(name string) bool {
	return strings.HasPrefix(name, UserChannelPrefix)
}

// Envelope wraps every server -> client message
type Envelope struct {
	Event     EventType `json:"event"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientMessage is a client -> server request
type ClientMessage struct {
	Event   EventType       `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// AuthFrame is the first frame a client sends after the upgrade.
type AuthFrame struct {
	Auth struct {
		Token string `json:"token"`
	} `json:"auth"`
}

// ErrorData for error events
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ConnectedData is sent to a connection once its handshake succeeds.
type ConnectedData struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// PresenceData for user:* and presence:* events. Room is empty for the
// online/offline broadcasts.
type PresenceData struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Room   string `json:"room,omitempty"`
}

// TaskEventData for task:* events. task:deleted carries only TaskID.
type TaskEventData struct {
	Task   any    `json:"task,omitempty"`
	TaskID string `json:"taskId,omitempty"`
}

func NewEnvelope(event EventType, payload any, at time.Time) *Envelope {
	return &Envelope{Event: event, Payload: payload, Timestamp: at}
}

func (e *Envelope) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func ParseClientMessage(data []byte) (*ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ParseAuthFrame extracts the access token from a handshake frame. An
// empty token is returned as is; callers treat it as missing.
func ParseAuthFrame(data []byte) (string, error) {
	var frame AuthFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return "", err
	}
	return strings.TrimSpace(frame.Auth.Token), nil
}
