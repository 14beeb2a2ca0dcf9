package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelarena/config"
	"voxelarena/protocol"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	cfg := config.Default()
	cfg.Server.StaticDir = ""
	cfg.World.TerrainBlocks = 20
	s := New(cfg)
	ts := httptest.NewServer(s.Router())
	t.Cleanup(func() {
		ts.Close()
		s.Close()
	})
	return s, ts
}

func dial(t *testing.T, ts *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func writeEnvelope(t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()
	b, err := protocol.Encode(msgType, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, b))
}

// waitFor 读取直到出现满足条件的某类型消息
func waitFor(t *testing.T, conn *websocket.Conn, msgType string, v any, accept func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %s", msgType)
		env, err := protocol.Decode(raw)
		require.NoError(t, err)
		if env.Type != msgType {
			continue
		}
		require.NoError(t, json.Unmarshal(env.Payload, v))
		if accept == nil || accept() {
			return
		}
	}
}

func TestWebSocketJoinUpdateAndDeparture(t *testing.T) {
	_, ts := newTestServer(t)

	a := dial(t, ts, "/ws")
	var terrain protocol.Terrain
	waitFor(t, a, protocol.TypeLoadup, &terrain, nil)
	assert.Len(t, terrain, 20)

	writeEnvelope(t, a, protocol.TypeIDRequest, nil)
	var resA protocol.IDResponse
	waitFor(t, a, protocol.TypeIDResponse, &resA, nil)
	require.NotEmpty(t, resA.Identity)

	b := dial(t, ts, "/ws")
	writeEnvelope(t, b, protocol.TypeIDRequest, nil)
	var resB protocol.IDResponse
	waitFor(t, b, protocol.TypeIDResponse, &resB, nil)
	assert.NotEqual(t, resA.Identity, resB.Identity)

	writeEnvelope(t, a, protocol.TypeClientUpdate, pose(resA.Identity, 1, 0, 0))
	var table protocol.StateTable
	waitFor(t, b, protocol.TypeState, &table, func() bool {
		_, ok := table[resA.Identity]
		return ok
	})
	assert.Equal(t, protocol.Vec3{X: 1}, *table[resA.Identity].Position)

	require.NoError(t, a.Close())
	var departed protocol.Departed
	waitFor(t, b, protocol.TypeDeparted, &departed, nil)
	assert.Equal(t, resA.Identity, departed.Identity)
}

func TestWebSocketRejectsSpoofedIdentity(t *testing.T) {
	s, ts := newTestServer(t)

	a := dial(t, ts, "/ws")
	writeEnvelope(t, a, protocol.TypeClientUpdate, pose("someone-else", 1, 0, 0))
	var e protocol.ErrorPayload
	waitFor(t, a, protocol.TypeError, &e, nil)
	assert.Equal(t, "unauthorized_update", e.Code)

	world, ok := s.Worlds().Lookup("world-1")
	require.True(t, ok)
	assert.Empty(t, world.Snapshot())
}

func TestGraphWebSocketClaim(t *testing.T) {
	_, ts := newTestServer(t)

	a := dial(t, ts, "/graph/ws")
	b := dial(t, ts, "/graph/ws")
	writeEnvelope(t, a, protocol.TypeConnectUser, nil)
	var nodes map[string]protocol.GraphNode
	waitFor(t, a, protocol.TypeUpdateGraph, &nodes, nil)
	require.Contains(t, nodes, "0")

	// 确保 b 已登记后再认领
	writeEnvelope(t, b, protocol.TypeConnectUser, nil)
	waitFor(t, b, protocol.TypeUpdateGraph, &nodes, nil)

	writeEnvelope(t, a, protocol.TypeClaim, protocol.Claim{ID: 0})
	for _, conn := range []*websocket.Conn{a, b} {
		var got map[string]protocol.GraphNode
		waitFor(t, conn, protocol.TypeUpdateGraph, &got, func() bool { return got["0"].Owner })
	}
}

func TestAdminEndpoints(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/admin/config")
	require.NoError(t, err)
	var cfg struct {
		DeparturePolicy string `json:"departurePolicy"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cfg))
	resp.Body.Close()
	assert.Equal(t, config.DepartureBroadcast, cfg.DeparturePolicy)

	resp, err = http.Post(ts.URL+"/admin/config", "application/json", strings.NewReader(`{"departurePolicy":"lazy"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/admin/config", "application/json", strings.NewReader(`{"departurePolicy":"bogus"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/admin/stats")
	require.NoError(t, err)
	var stats map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	resp.Body.Close()
	assert.Equal(t, "world-1", stats["world"])
	assert.EqualValues(t, 20, stats["terrain"])

	resp, err = http.Get(ts.URL + "/admin/stats?world=missing")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsAndHealth(t *testing.T) {
	_, ts := newTestServer(t)
	a := dial(t, ts, "/ws")
	var terrain protocol.Terrain
	waitFor(t, a, protocol.TypeLoadup, &terrain, nil)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "voxelarena_connections")

	resp, err = http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))
}
