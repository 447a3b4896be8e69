package httpapi

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lassenordahl/rank-everything-sub001/internal/v1/room"
)

func dialWS(t *testing.T, ts *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestWebSocket_IdentifyReceivesRoomSnapshot(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := room.NewRegistry(time.Minute, nil, nil, nil, nil)
	srv := &Server{Registry: reg}
	r := NewRouter(srv, "")
	ts := httptest.NewServer(r)
	defer ts.Close()

	rm, _ := reg.GetOrCreate(room.Code("ABCD"))
	res, err := rm.Create("Alice", nil)
	require.NoError(t, err)

	conn := dialWS(t, ts, "/room/ABCD/ws")
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(room.ClientMessage{Type: "identify", PlayerID: string(res.PlayerID)}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg room.Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, room.EventRoomUpdated, msg.Type)
}

func TestWebSocket_PingRepliesWithPong(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := room.NewRegistry(time.Minute, nil, nil, nil, nil)
	srv := &Server{Registry: reg}
	r := NewRouter(srv, "")
	ts := httptest.NewServer(r)
	defer ts.Close()

	rm, _ := reg.GetOrCreate(room.Code("ABCD"))
	_, err := rm.Create("Alice", nil)
	require.NoError(t, err)

	conn := dialWS(t, ts, "/room/ABCD/ws")
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(room.ClientMessage{Type: "ping"}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg room.Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, room.EventPong, msg.Type)
}

func TestWebSocket_UnboundCommandRepliesWithError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := room.NewRegistry(time.Minute, nil, nil, nil, nil)
	srv := &Server{Registry: reg}
	r := NewRouter(srv, "")
	ts := httptest.NewServer(r)
	defer ts.Close()

	rm, _ := reg.GetOrCreate(room.Code("ABCD"))
	_, err := rm.Create("Alice", nil)
	require.NoError(t, err)

	conn := dialWS(t, ts, "/room/ABCD/ws")
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(room.ClientMessage{Type: "submit_item", Text: "pizza"}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg room.Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, room.EventError, msg.Type)
	assert.Equal(t, string(room.ErrPlayerNotFound), msg.Code)
}

func TestWebSocket_MissingRoomReturnsNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := room.NewRegistry(time.Minute, nil, nil, nil, nil)
	srv := &Server{Registry: reg}
	r := NewRouter(srv, "")
	ts := httptest.NewServer(r)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/room/ZZZZ/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 404, resp.StatusCode)
}
