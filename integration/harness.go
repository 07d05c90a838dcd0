package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	apirest "github.com/kasuganosora/mazechase/api/rest"
	"github.com/kasuganosora/mazechase/api/sse"
	apows "github.com/kasuganosora/mazechase/api/ws"
	"github.com/kasuganosora/mazechase/config"
	"github.com/kasuganosora/mazechase/game/world"
	mw "github.com/kasuganosora/mazechase/middleware"
	"github.com/kasuganosora/mazechase/pubsub"
	"github.com/kasuganosora/mazechase/testutil"
)

// TestServer wraps a real HTTP server with every subsystem wired together.
type TestServer struct {
	Config *config.Config
	PubSub pubsub.PubSub
	WM     *world.Manager
	Server *httptest.Server
	URL    string // http://127.0.0.1:<port>
	WSURL  string // ws://127.0.0.1:<port>/ws/sessions
}

// NewTestServer creates a fully wired server for integration testing.
// It mirrors the dependency wiring in main.go.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.Sim.TickMs = 5
	cfg.Security.RateLimitRPS = 1000
	cfg.Security.RateLimitBurst = 2000
	logger := zap.NewNop()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	ps := testutil.SetupTestPubSub(t)
	wm := world.NewManager(cfg.SessionOptions(), cfg.Sim.MaxSessions, ps, logger)

	wsRouter := apows.NewRouter(logger)
	apows.RegisterHandlers(wsRouter)

	limit := rate.Limit(cfg.Security.RateLimitRPS)
	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(ctx, limit, cfg.Security.RateLimitBurst))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": wm.Count()})
	})

	sessions := r.Group("/api/sessions", mw.RateLimitBy(ctx, mw.SessionKey, limit, cfg.Security.RateLimitBurst))
	apirest.NewSessionHandler(wm, cfg.Mode(), logger).Register(sessions)
	sessions.GET("/:id/events", sse.NewHandler(wm, ps, logger).ServeSSE)
	r.GET("/ws/sessions/:id", apows.NewHandler(wm, ps, cfg.Security, wsRouter, logger).ServeWS)

	server := httptest.NewServer(r)
	ts := &TestServer{
		Config: cfg,
		PubSub: ps,
		WM:     wm,
		Server: server,
		URL:    server.URL,
		WSURL:  "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/sessions",
	}
	t.Cleanup(ts.Close)
	return ts
}

// Close shuts down the sessions and then the server.
func (ts *TestServer) Close() {
	ts.WM.StopAll()
	ts.Server.Close()
}

// --- HTTP helpers ---

// Do sends a request with an optional JSON body.
func (ts *TestServer) Do(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()
	var data []byte
	if body != nil {
		var err error
		data, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req, err := http.NewRequest(method, ts.URL+path, bytes.NewReader(data))
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// DecodeJSON checks resp's status and reads its body into v.
func DecodeJSON(t *testing.T, resp *http.Response, status int, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.Equal(t, status, resp.StatusCode)
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
}

// CreateSession starts a session over REST and returns its id.
func (ts *TestServer) CreateSession(t *testing.T, mode int) string {
	t.Helper()
	var out struct {
		ID string `json:"id"`
	}
	DecodeJSON(t, ts.Do(t, http.MethodPost, "/api/sessions", map[string]int{"mode": mode}), http.StatusCreated, &out)
	require.NotEmpty(t, out.ID)
	return out.ID
}

// --- WS helpers ---

// WSClient is a host connection used by tests.
type WSClient struct {
	Conn *websocket.Conn
	seq  uint64
}

// Packet is any message on the host bridge, in either direction.
type Packet struct {
	Seq     uint64          `json:"seq,omitempty"`
	Type    string          `json:"type"`
	Tick    uint64          `json:"tick,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Dial connects a host to session id.
func (ts *TestServer) Dial(t *testing.T, id string) *WSClient {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(ts.WSURL+"/"+id, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &WSClient{Conn: conn}
}

// Send writes a packet with the next sequence number.
func (c *WSClient) Send(t *testing.T, typ string, payload interface{}) {
	t.Helper()
	c.seq++
	pkt := Packet{Seq: c.seq, Type: typ}
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		pkt.Payload = raw
	}
	require.NoError(t, c.Conn.WriteJSON(pkt))
}

// ReadUntil reads packets until one of type typ arrives.
func (c *WSClient) ReadUntil(t *testing.T, typ string, timeout time.Duration) Packet {
	t.Helper()
	require.NoError(t, c.Conn.SetReadDeadline(time.Now().Add(timeout)))
	for {
		var pkt Packet
		require.NoError(t, c.Conn.ReadJSON(&pkt), "waiting for %q", typ)
		if pkt.Type == typ {
			return pkt
		}
	}
}
