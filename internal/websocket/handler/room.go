// internal/websocket/handler/room.go
package handler

import (
	"context"
	"fmt"

	wstypes "taskhub-service/internal/domain/websocket"
	ws "taskhub-service/internal/websocket"

	"go.uber.org/zap"
)

// RoomHandler serves join:room and leave:room. Any authenticated
// connection may join any room outside the reserved user: namespace.
type RoomHandler struct {
	gateway *ws.Gateway
	logger  *zap.Logger
}

func NewRoomHandler(gateway *ws.Gateway, logger *zap.Logger) *RoomHandler {
	return &RoomHandler{
		gateway: gateway,
		logger:  logger,
	}
}

// SupportedEvents returns events this handler supports
func (h *RoomHandler) SupportedEvents() []wstypes.EventType {
	return []wstypes.EventType{
		wstypes.EventTypeJoinRoom,
		wstypes.EventTypeLeaveRoom,
	}
}

// HandleMessage processes room requests
func (h *RoomHandler) HandleMessage(ctx context.Context, client *ws.Client, msg *wstypes.ClientMessage) error {
	room, err := ws.RoomName(msg)
	if err != nil {
		return err
	}
	if wstypes.IsUserChannel(room) {
		return ws.ErrReservedRoom
	}

	switch msg.Event {
	case wstypes.EventTypeJoinRoom:
		return h.handleJoin(client, room)

	case wstypes.EventTypeLeaveRoom:
		h.handleLeave(client, room)
		return nil

	default:
		return fmt.Errorf("unsupported event type: %s", msg.Event)
	}
}

func (h *RoomHandler) handleJoin(client *ws.Client, room string) error {
	if err := h.gateway.JoinRoom(client, room); err != nil {
		return err
	}
	h.logger.Debug("joined room", zap.String("user_id", client.UserID()), zap.String("room", room))

	h.gateway.Publish(room, wstypes.EventTypePresenceJoin, presence(client, room))
	return nil
}

func (h *RoomHandler) handleLeave(client *ws.Client, room string) {
	h.gateway.LeaveRoom(client, room)
	h.logger.Debug("left room", zap.String("user_id", client.UserID()), zap.String("room", room))

	h.gateway.Publish(room, wstypes.EventTypePresenceLeave, presence(client, room))
}

func presence(client *ws.Client, room string) wstypes.PresenceData {
	identity := client.Identity()
	return wstypes.PresenceData{
		UserID: identity.UserID,
		Email:  identity.Email,
		Room:   room,
	}
}
