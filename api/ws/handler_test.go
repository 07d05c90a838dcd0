package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/mazechase/config"
	"github.com/kasuganosora/mazechase/game/difficulty"
	"github.com/kasuganosora/mazechase/game/world"
	"github.com/kasuganosora/mazechase/testutil"
)

func newWSServer(t *testing.T, sec config.SecurityConfig) (*httptest.Server, *world.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ps := testutil.SetupTestPubSub(t)
	wm := testutil.SetupTestManager(t, 0, ps)

	router := NewRouter(nop())
	RegisterHandlers(router)
	r := gin.New()
	r.GET("/ws/sessions/:id", NewHandler(wm, ps, sec, router, nop()).ServeWS)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, wm
}

func wsURL(srv *httptest.Server, id string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/sessions/" + id
}

// readUntil reads packets until one of type typ arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) json.RawMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var pkt struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		require.NoError(t, conn.ReadJSON(&pkt))
		if pkt.Type == typ {
			return pkt.Payload
		}
	}
}

func TestServeWS_Bridge(t *testing.T) {
	srv, wm := newWSServer(t, config.SecurityConfig{})
	s, err := wm.Create(difficulty.Normal, 0, 0)
	require.NoError(t, err)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, s.ID), nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	snap := readUntil(t, conn, "snapshot")
	assert.Contains(t, string(snap), s.ID)

	require.NoError(t, conn.WriteJSON(Packet{Seq: 1, Type: "pause"}))
	readUntil(t, conn, "pause")

	require.NoError(t, conn.WriteJSON(Packet{Seq: 2, Type: "resume"}))
	readUntil(t, conn, "resume")

	require.NoError(t, conn.WriteJSON(Packet{Seq: 3, Type: "reposition"}))
	payload := readUntil(t, conn, "reposition")
	var rep struct {
		Agents map[string][2]float64 `json:"agents"`
	}
	require.NoError(t, json.Unmarshal(payload, &rep))
	assert.Len(t, rep.Agents, 2)
}

func TestServeWS_SessionEndClosesConnection(t *testing.T) {
	srv, wm := newWSServer(t, config.SecurityConfig{})
	s, err := wm.Create(difficulty.Normal, 0, 0)
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, s.ID), nil)
	require.NoError(t, err)
	defer conn.Close()
	readUntil(t, conn, "snapshot")

	require.NoError(t, wm.Destroy(s.ID))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), err.Error())
			return
		}
	}
}

func TestServeWS_UnknownSession(t *testing.T) {
	srv, _ := newWSServer(t, config.SecurityConfig{})
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "missing"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServeWS_OriginCheck(t *testing.T) {
	srv, wm := newWSServer(t, config.SecurityConfig{AllowedOrigins: []string{"https://game.example"}})
	s, err := wm.Create(difficulty.Normal, 0, 0)
	require.NoError(t, err)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, s.ID), http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, s.ID), http.Header{"Origin": {"https://game.example"}})
	require.NoError(t, err)
	conn.Close()
}
