package websocket_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	wstypes "taskhub-service/internal/domain/websocket"
	"taskhub-service/internal/pkg/jwt"
	"taskhub-service/internal/pkg/metrics"
	ws "taskhub-service/internal/websocket"
	"taskhub-service/internal/websocket/handler"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type verifier struct{ m *jwt.Manager }

func (v verifier) VerifyAccess(_ context.Context, token string) (*jwt.Claims, error) {
	return v.m.Verify(token)
}

type envelope struct {
	Event     wstypes.EventType `json:"event"`
	Payload   json.RawMessage   `json:"payload"`
	Timestamp time.Time         `json:"timestamp"`
}

type harness struct {
	gateway *ws.Gateway
	tokens  *jwt.Manager
	metrics *metrics.Metrics
	url     string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	tokens, err := jwt.LoadAndBuild(jwt.Config{
		Secret:    "gateway-test-secret-0123456789abcdef",
		Issuer:    "taskhub",
		AccessTTL: time.Minute,
	}, nil)
	require.NoError(t, err)

	m := metrics.New()
	logger := zap.NewNop()
	g := ws.NewGateway(verifier{tokens}, m, logger, ws.Config{AuthTimeout: 300 * time.Millisecond})
	g.RegisterHandler(handler.NewRoomHandler(g, logger))

	srv := httptest.NewServer(g)
	t.Cleanup(func() {
		_ = g.Shutdown(context.Background())
		srv.Close()
	})

	return &harness{
		gateway: g,
		tokens:  tokens,
		metrics: m,
		url:     "ws" + strings.TrimPrefix(srv.URL, "http"),
	}
}

func (h *harness) token(t *testing.T, userID string) string {
	t.Helper()
	token, _, err := h.tokens.Issue(jwt.Identity{UserID: userID, Email: userID + "@example.com", Role: jwt.RoleUser}, 0)
	require.NoError(t, err)
	return token
}

func (h *harness) rawDial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(h.url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// connect authenticates as userID and waits for the connected envelope.
func (h *harness) connect(t *testing.T, userID string) *websocket.Conn {
	t.Helper()
	conn := h.rawDial(t)
	require.NoError(t, conn.WriteJSON(map[string]any{"auth": map[string]string{"token": h.token(t, userID)}}))

	env := next(t, conn)
	require.Equal(t, wstypes.EventTypeConnected, env.Event)
	return conn
}

func send(t *testing.T, conn *websocket.Conn, event wstypes.EventType, payload any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{"event": event, "payload": payload}))
}

// next returns the next envelope, skipping online/offline broadcasts
// caused by other clients in the test.
func next(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	for {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var env envelope
		require.NoError(t, conn.ReadJSON(&env))
		if env.Event == wstypes.EventTypeUserOnline || env.Event == wstypes.EventTypeUserOffline {
			continue
		}
		return env
	}
}

func expectRejected(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, ws.IsAuthRejection(err), "got %v", err)

	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, "authentication failed", closeErr.Text)
}

func TestHandshake_Rejections(t *testing.T) {
	h := newHarness(t)

	frames := map[string]string{
		"missing token": `{"auth":{}}`,
		"malformed":     `not json`,
		"invalid token": `{"auth":{"token":"abc.def.ghi"}}`,
	}
	for name, frame := range frames {
		t.Run(name, func(t *testing.T) {
			conn := h.rawDial(t)
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
			expectRejected(t, conn)
		})
	}

	t.Run("timeout", func(t *testing.T) {
		conn := h.rawDial(t)
		expectRejected(t, conn)
	})

	assert.Zero(t, h.gateway.Stats().Connections)
}

func TestHandshake_Success(t *testing.T) {
	h := newHarness(t)
	conn := h.rawDial(t)
	require.NoError(t, conn.WriteJSON(map[string]any{"auth": map[string]string{"token": h.token(t, "u1")}}))

	env := next(t, conn)
	require.Equal(t, wstypes.EventTypeConnected, env.Event)
	var data wstypes.ConnectedData
	require.NoError(t, json.Unmarshal(env.Payload, &data))
	assert.Equal(t, "u1", data.UserID)
	assert.False(t, env.Timestamp.IsZero())

	// the new connection also sees its own online broadcast
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var online envelope
	require.NoError(t, conn.ReadJSON(&online))
	assert.Equal(t, wstypes.EventTypeUserOnline, online.Event)

	assert.Equal(t, ws.Stats{Connections: 1, Users: 1, Channels: 1}, h.gateway.Stats())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.WSConnections))
}

func TestToUser_ReachesOnlyThatUser(t *testing.T) {
	h := newHarness(t)
	first := h.connect(t, "U1")
	second := h.connect(t, "U1")
	other := h.connect(t, "U2")

	h.gateway.ToUser("U1", wstypes.EventTypeTaskCreated, wstypes.TaskEventData{TaskID: "t1"})
	h.gateway.ToUser("U2", wstypes.EventTypeTaskDeleted, wstypes.TaskEventData{TaskID: "t2"})

	for _, conn := range []*websocket.Conn{first, second} {
		env := next(t, conn)
		assert.Equal(t, wstypes.EventTypeTaskCreated, env.Event)
		assert.JSONEq(t, `{"taskId":"t1"}`, string(env.Payload))
	}

	// U2's first task event is its own, not U1's
	env := next(t, other)
	assert.Equal(t, wstypes.EventTypeTaskDeleted, env.Event)
}

func TestToUser_AfterDisconnect(t *testing.T) {
	h := newHarness(t)
	conn := h.connect(t, "U1")
	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		return h.gateway.Stats().Connections == 0
	}, 2*time.Second, 10*time.Millisecond)

	assert.NotPanics(t, func() {
		h.gateway.ToUser("U1", wstypes.EventTypeTaskUpdated, wstypes.TaskEventData{TaskID: "t1"})
	})
	assert.Zero(t, testutil.ToFloat64(h.metrics.WSConnections))
}

func TestOfflineBroadcast(t *testing.T) {
	h := newHarness(t)
	watcher := h.connect(t, "U1")
	leaver := h.connect(t, "U2")
	require.NoError(t, leaver.Close())

	for {
		_ = watcher.SetReadDeadline(time.Now().Add(2 * time.Second))
		var env envelope
		require.NoError(t, watcher.ReadJSON(&env))
		if env.Event != wstypes.EventTypeUserOffline {
			continue
		}
		var data wstypes.PresenceData
		require.NoError(t, json.Unmarshal(env.Payload, &data))
		assert.Equal(t, "U2", data.UserID)
		return
	}
}

func TestRooms(t *testing.T) {
	h := newHarness(t)
	alice := h.connect(t, "alice")
	bob := h.connect(t, "bob")
	carol := h.connect(t, "carol")

	send(t, alice, wstypes.EventTypeJoinRoom, "project-x")
	env := next(t, alice)
	require.Equal(t, wstypes.EventTypePresenceJoin, env.Event)

	send(t, bob, wstypes.EventTypeJoinRoom, map[string]string{"room": "project-x"})
	for _, conn := range []*websocket.Conn{alice, bob} {
		env := next(t, conn)
		require.Equal(t, wstypes.EventTypePresenceJoin, env.Event)
		var data wstypes.PresenceData
		require.NoError(t, json.Unmarshal(env.Payload, &data))
		assert.Equal(t, "bob", data.UserID)
		assert.Equal(t, "project-x", data.Room)
	}

	h.gateway.Publish("project-x", wstypes.EventTypeTaskUpdated, wstypes.TaskEventData{TaskID: "t9"})
	assert.Equal(t, wstypes.EventTypeTaskUpdated, next(t, alice).Event)
	assert.Equal(t, wstypes.EventTypeTaskUpdated, next(t, bob).Event)

	send(t, bob, wstypes.EventTypeLeaveRoom, "project-x")
	env = next(t, alice)
	assert.Equal(t, wstypes.EventTypePresenceLeave, env.Event)

	// carol never joined and bob has left
	h.gateway.Publish("project-x", wstypes.EventTypeTaskDeleted, wstypes.TaskEventData{TaskID: "t9"})
	h.gateway.ToUser("bob", wstypes.EventTypePong, nil)
	h.gateway.ToUser("carol", wstypes.EventTypePong, nil)
	assert.Equal(t, wstypes.EventTypeTaskDeleted, next(t, alice).Event)
	assert.Equal(t, wstypes.EventTypePong, next(t, bob).Event)
	assert.Equal(t, wstypes.EventTypePong, next(t, carol).Event)
}

func TestRooms_RejectedNames(t *testing.T) {
	h := newHarness(t)
	conn := h.connect(t, "alice")

	for _, room := range []any{"user:bob", "", nil} {
		send(t, conn, wstypes.EventTypeJoinRoom, room)
		env := next(t, conn)
		assert.Equal(t, wstypes.EventTypeError, env.Event)
	}
	assert.Empty(t, h.gateway.Registry().MembersOf("user:bob"))
}

func TestPingAndUnknownEvents(t *testing.T) {
	h := newHarness(t)
	conn := h.connect(t, "alice")

	send(t, conn, wstypes.EventTypePing, nil)
	assert.Equal(t, wstypes.EventTypePong, next(t, conn).Event)

	send(t, conn, "task:explode", nil)
	env := next(t, conn)
	require.Equal(t, wstypes.EventTypeError, env.Event)
	var data wstypes.ErrorData
	require.NoError(t, json.Unmarshal(env.Payload, &data))
	assert.Equal(t, "unsupported_event", data.Code)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{")))
	assert.Equal(t, wstypes.EventTypeError, next(t, conn).Event)

	// still open
	send(t, conn, wstypes.EventTypePing, nil)
	assert.Equal(t, wstypes.EventTypePong, next(t, conn).Event)
}

func TestDisconnectUser(t *testing.T) {
	h := newHarness(t)
	a := h.connect(t, "U1")
	b := h.connect(t, "U1")
	h.connect(t, "U2")

	assert.Equal(t, 2, h.gateway.DisconnectUser("U1", "account deleted"))

	for _, conn := range []*websocket.Conn{a, b} {
		for {
			_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			_, _, err := conn.ReadMessage()
			if err == nil {
				continue
			}
			assert.True(t, websocket.IsCloseError(err, ws.CloseRevoked), "got %v", err)
			break
		}
	}
	assert.Equal(t, 1, h.gateway.Stats().Connections)
	assert.Zero(t, h.gateway.DisconnectUser("U1", "again"))
}

func TestShutdown(t *testing.T) {
	h := newHarness(t)
	conn := h.connect(t, "U1")

	require.NoError(t, h.gateway.Shutdown(context.Background()))

	for {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, _, err := conn.ReadMessage()
		if err == nil {
			continue
		}
		assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
		break
	}
	assert.Zero(t, h.gateway.Stats().Connections)
	assert.Equal(t, 0.0, testutil.ToFloat64(h.metrics.WSConnections))

	_, resp, err := websocket.DefaultDialer.Dial(h.url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 503, resp.StatusCode)
}
