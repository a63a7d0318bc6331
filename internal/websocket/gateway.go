// Package websocket is the realtime event gateway.
//
// Delivery is fire-and-forget: envelopes are queued to the connections
// that are members of a channel at publish time, with no acknowledgement,
// retry or persistence. A client that is disconnected misses the event and
// is expected to refetch state when it reconnects.
package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	wstypes "taskhub-service/internal/domain/websocket"
	"taskhub-service/internal/pkg/jwt"
	"taskhub-service/internal/pkg/metrics"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// CloseAuthFailed rejects a handshake. The reason is always the same
	// generic text.
	CloseAuthFailed = 4401
	// CloseRevoked is sent when the server ends a user's connections.
	CloseRevoked = 4403

	authFailedReason   = "authentication failed"
	defaultAuthTimeout = 10 * time.Second
)

// Verifier validates the access token carried in the handshake frame.
type Verifier interface {
	VerifyAccess(ctx context.Context, token string) (*jwt.Claims, error)
}

type Config struct {
	AuthTimeout    time.Duration
	AllowedOrigins []string
	Now            func() time.Time
}

type Gateway struct {
	registry    *Registry
	handlers    *HandlerRegistry
	verifier    Verifier
	upgrader    websocket.Upgrader
	metrics     *metrics.Metrics
	logger      *zap.Logger
	authTimeout time.Duration
	now         func() time.Time
	closing     atomic.Bool
}

func NewGateway(verifier Verifier, m *metrics.Metrics, logger *zap.Logger, cfg Config) *Gateway {
	if cfg.AuthTimeout <= 0 {
		cfg.AuthTimeout = defaultAuthTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if m == nil {
		m = metrics.New()
	}

	return &Gateway{
		registry: NewRegistry(),
		handlers: NewHandlerRegistry(),
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
		metrics:     m,
		logger:      logger,
		authTimeout: cfg.AuthTimeout,
		now:         cfg.Now,
	}
}

// RegisterHandler registers a client request handler
func (g *Gateway) RegisterHandler(handler MessageHandler) {
	g.handlers.Register(handler)
}

// Registry exposes the membership table, mainly for stats and tests.
func (g *Gateway) Registry() *Registry {
	return g.registry
}

// ServeHTTP upgrades the request and runs the connection in the
// background. Authentication happens on the first frame, not the request.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if g.closing.Load() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", zap.Error(err), zap.String("remote", r.RemoteAddr))
		return
	}
	go g.serve(conn)
}

func (g *Gateway) serve(conn *websocket.Conn) {
	claims, err := g.handshake(conn)
	if err != nil {
		g.logger.Debug("websocket handshake rejected", zap.Error(err), zap.String("remote", conn.RemoteAddr().String()))
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(CloseAuthFailed, authFailedReason),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	identity := claims.Identity()
	c := newClient(g, conn, identity)
	g.registry.Add(c)
	g.registry.Join(c, wstypes.UserChannel(identity.UserID))
	g.metrics.WSConnections.Inc()
	if g.closing.Load() {
		g.disconnect(c, websocket.CloseGoingAway, "server shutting down")
		return
	}

	g.logger.Info("websocket client connected",
		zap.String("conn_id", c.id),
		zap.String("user_id", identity.UserID),
		zap.Int("total", g.registry.Count()),
	)

	go c.writePump()

	c.SendMessage(wstypes.NewEnvelope(wstypes.EventTypeConnected, wstypes.ConnectedData{
		UserID: identity.UserID,
		Email:  identity.Email,
		Role:   identity.Role,
	}, g.now()))
	g.Broadcast(wstypes.EventTypeUserOnline, wstypes.PresenceData{
		UserID: identity.UserID,
		Email:  identity.Email,
	})

	c.readPump()
}

// handshake reads the auth frame within the auth timeout and verifies it.
func (g *Gateway) handshake(conn *websocket.Conn) (*jwt.Claims, error) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(g.authTimeout))

	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("read auth frame: %w", err)
	}
	token, err := wstypes.ParseAuthFrame(data)
	if err != nil {
		return nil, ErrMalformedAuth
	}
	if token == "" {
		return nil, ErrMissingToken
	}

	ctx, cancel := context.WithTimeout(context.Background(), g.authTimeout)
	defer cancel()
	return g.verifier.VerifyAccess(ctx, token)
}

// dispatch routes one client request. Registered handlers win over the
// built-in events.
func (g *Gateway) dispatch(c *Client, data []byte) {
	msg, err := wstypes.ParseClientMessage(data)
	if err != nil {
		c.SendError("invalid_message", "failed to parse message")
		return
	}

	if handler, ok := g.handlers.GetHandler(msg.Event); ok {
		if err := handler.HandleMessage(context.Background(), c, msg); err != nil {
			c.SendError("handler_error", err.Error())
		}
		return
	}

	switch msg.Event {
	case wstypes.EventTypePing:
		c.SendMessage(wstypes.NewEnvelope(wstypes.EventTypePong, nil, g.now()))
	default:
		c.SendError("unsupported_event", fmt.Sprintf("%s: %q", ErrUnsupportedEvent, msg.Event))
	}
}

// ========== Publish API ==========

// Publish delivers an envelope to every current member of channel.
func (g *Gateway) Publish(channel string, event wstypes.EventType, payload any) {
	g.deliver(g.registry.MembersOf(channel), event, payload)
}

// ToUser delivers to every connection of userID.
func (g *Gateway) ToUser(userID string, event wstypes.EventType, payload any) {
	g.Publish(wstypes.UserChannel(userID), event, payload)
}

// Broadcast delivers to every connected client regardless of channel.
func (g *Gateway) Broadcast(event wstypes.EventType, payload any) {
	g.deliver(g.registry.All(), event, payload)
}

func (g *Gateway) deliver(targets []*Client, event wstypes.EventType, payload any) {
	if len(targets) == 0 {
		return
	}
	data, err := wstypes.NewEnvelope(event, payload, g.now()).ToJSON()
	if err != nil {
		g.logger.Error("failed to marshal envelope", zap.String("event", string(event)), zap.Error(err))
		return
	}
	queued := 0
	for _, c := range targets {
		if c.Enqueue(data) {
			queued++
		}
	}
	g.metrics.EventsPublished.WithLabelValues(string(event)).Add(float64(queued))
}

// JoinRoom adds c to room.
func (g *Gateway) JoinRoom(c *Client, room string) error {
	if !g.registry.Join(c, room) {
		return ErrNotConnected
	}
	return nil
}

// LeaveRoom removes c from room.
func (g *Gateway) LeaveRoom(c *Client, room string) {
	g.registry.Leave(c, room)
}

// DisconnectUser closes every connection of userID, e.g. after the
// account is deleted. It returns the number of connections closed.
func (g *Gateway) DisconnectUser(userID, reason string) int {
	n := 0
	for _, c := range g.registry.ConnectionsOf(userID) {
		if g.disconnect(c, CloseRevoked, reason) {
			n++
		}
	}
	if n > 0 {
		g.logger.Info("user disconnected", zap.String("user_id", userID), zap.String("reason", reason), zap.Int("connections", n))
	}
	return n
}

// Stats reports the current registry size.
func (g *Gateway) Stats() Stats {
	return g.registry.Stats()
}

// Shutdown closes every connection with 1001 going away. New upgrades are
// refused from this point on.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.closing.Store(true)
	for _, c := range g.registry.All() {
		if err := ctx.Err(); err != nil {
			return err
		}
		g.disconnect(c, websocket.CloseGoingAway, "server shutting down")
	}
	return nil
}

// disconnect tears a connection down. Whichever path gets there first
// (read error, write error, slow consumer, revoke, shutdown) does the work;
// later calls return false.
func (g *Gateway) disconnect(c *Client, code int, reason string) bool {
	if !c.close(code, reason) {
		return false
	}
	if !g.registry.Remove(c) {
		return true
	}
	g.metrics.WSConnections.Dec()

	g.logger.Info("websocket client disconnected",
		zap.String("conn_id", c.id),
		zap.String("user_id", c.identity.UserID),
		zap.Int("total", g.registry.Count()),
	)

	if !g.closing.Load() {
		g.Broadcast(wstypes.EventTypeUserOffline, wstypes.PresenceData{
			UserID: c.identity.UserID,
			Email:  c.identity.Email,
		})
	}
	return true
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// IsAuthRejection reports whether err is the close the gateway sends for a
// failed handshake. Useful for clients and tests.
func IsAuthRejection(err error) bool {
	var closeErr *websocket.CloseError
	return errors.As(err, &closeErr) && closeErr.Code == CloseAuthFailed
}
