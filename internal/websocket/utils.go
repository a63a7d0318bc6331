// internal/websocket/utils.go
package websocket

import (
	"encoding/json"
	"strings"

	wstypes "taskhub-service/internal/domain/websocket"
)

// DecodePayload unmarshals a request payload into target.
func DecodePayload(msg *wstypes.ClientMessage, target any) error {
	if len(msg.Payload) == 0 {
		return json.Unmarshal([]byte("null"), target)
	}
	return json.Unmarshal(msg.Payload, target)
}

// RoomName reads a room name from a payload that is either a bare string
// or an object with a "room" field.
func RoomName(msg *wstypes.ClientMessage) (string, error) {
	var name string
	if err := DecodePayload(msg, &name); err != nil {
		var obj struct {
			Room string `json:"room"`
		}
		if err := DecodePayload(msg, &obj); err != nil {
			return "", ErrInvalidRoom
		}
		name = obj.Room
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrInvalidRoom
	}
	return name, nil
}
