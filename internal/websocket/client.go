// internal/websocket/client.go
package websocket

import (
	"sync"
	"time"

	wstypes "taskhub-service/internal/domain/websocket"
	"taskhub-service/internal/pkg/jwt"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024 // 64KB
	sendBufferSize = 256
)

// Client is one authenticated connection. The send queue is drained by a
// single writer goroutine, so envelopes reach the peer in queue order.
type Client struct {
	id       string
	gateway  *Gateway
	conn     *websocket.Conn
	send     chan []byte
	identity jwt.Identity

	done      chan struct{}
	closeOnce sync.Once
}

func newClient(g *Gateway, conn *websocket.Conn, identity jwt.Identity) *Client {
	return &Client{
		id:       uuid.NewString(),
		gateway:  g,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		identity: identity,
		done:     make(chan struct{}),
	}
}

// ID identifies the connection in logs.
func (c *Client) ID() string {
	return c.id
}

// Identity returns the claims the connection authenticated with.
func (c *Client) Identity() jwt.Identity {
	return c.identity
}

func (c *Client) UserID() string {
	return c.identity.UserID
}

// Enqueue queues an encoded envelope without blocking. A full queue means
// the peer is not keeping up; the connection is dropped and false returned.
func (c *Client) Enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- data:
		return true
	default:
		c.gateway.metrics.EventsDropped.Inc()
		c.gateway.logger.Warn("slow consumer dropped",
			zap.String("conn_id", c.id),
			zap.String("user_id", c.identity.UserID),
		)
		// the close handshake can block on a stuck peer; keep it off the publisher
		go c.gateway.disconnect(c, websocket.ClosePolicyViolation, "send queue full")
		return false
	}
}

// SendMessage sends an envelope to this connection only.
func (c *Client) SendMessage(env *wstypes.Envelope) bool {
	data, err := env.ToJSON()
	if err != nil {
		c.gateway.logger.Error("failed to marshal envelope", zap.String("event", string(env.Event)), zap.Error(err))
		return false
	}
	return c.Enqueue(data)
}

// SendError sends an error envelope. The connection stays open.
func (c *Client) SendError(code, message string) {
	c.SendMessage(wstypes.NewEnvelope(wstypes.EventTypeError, wstypes.ErrorData{
		Code:    code,
		Message: message,
	}, c.gateway.now()))
}

// readPump handles incoming requests until the peer goes away.
func (c *Client) readPump() {
	defer c.gateway.disconnect(c, websocket.CloseNormalClosure, "")

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.gateway.logger.Debug("websocket read error", zap.String("conn_id", c.id), zap.Error(err))
			}
			return
		}
		c.gateway.dispatch(c, message)
	}
}

// writePump is the only goroutine that writes data frames to the peer.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return

		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.gateway.disconnect(c, websocket.CloseAbnormalClosure, "")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.gateway.disconnect(c, websocket.CloseAbnormalClosure, "")
				return
			}
		}
	}
}

// close releases the connection exactly once. The returned flag is true
// only for the call that did the work.
func (c *Client) close(code int, reason string) bool {
	closed := false
	c.closeOnce.Do(func() {
		closed = true
		close(c.done)
		if c.conn == nil {
			return
		}
		if code != websocket.CloseAbnormalClosure {
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(code, reason),
				time.Now().Add(writeWait))
		}
		_ = c.conn.Close()
	})
	return closed
}
