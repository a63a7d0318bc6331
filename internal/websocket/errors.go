// internal/websocket/errors.go
package websocket

import "errors"

var (
	ErrMissingToken     = errors.New("missing authentication token")
	ErrMalformedAuth    = errors.New("malformed authentication frame")
	ErrInvalidRoom      = errors.New("room name is required")
	ErrReservedRoom     = errors.New("room name uses a reserved prefix")
	ErrNotConnected     = errors.New("connection is not registered")
	ErrUnsupportedEvent = errors.New("unsupported event")
)
