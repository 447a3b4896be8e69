package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lassenordahl/rank-everything-sub001/internal/v1/room"
)

func newTestServer(t *testing.T) (*gin.Engine, *Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	srv := &Server{Registry: room.NewRegistry(time.Minute, nil, nil, nil, nil)}
	r := NewRouter(srv, "")
	return r, srv
}

func doJSON(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestHandleRoomCommand_Create(t *testing.T) {
	r, _ := newTestServer(t)

	resp := doJSON(r, "POST", "/room/ABCD", roomCommandRequest{Action: "create", Nickname: "Alice"})
	require.Equal(t, http.StatusOK, resp.Code)

	var out roomCommandResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	assert.NotEmpty(t, out.PlayerID)
	assert.Equal(t, "ABCD", out.Room.Code)
	assert.Equal(t, string(room.StatusLobby), string(out.Room.Status))
}

func TestHandleRoomCommand_CreateTwiceConflicts(t *testing.T) {
	r, _ := newTestServer(t)

	resp := doJSON(r, "POST", "/room/ABCD", roomCommandRequest{Action: "create", Nickname: "Alice"})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = doJSON(r, "POST", "/room/ABCD", roomCommandRequest{Action: "create", Nickname: "Bob"})
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestHandleRoomCommand_JoinMissingRoom(t *testing.T) {
	r, _ := newTestServer(t)

	resp := doJSON(r, "POST", "/room/ZZZZ", roomCommandRequest{Action: "join", Nickname: "Bob"})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestHandleRoomCommand_JoinAndStart(t *testing.T) {
	r, _ := newTestServer(t)

	resp := doJSON(r, "POST", "/room/ABCD", roomCommandRequest{Action: "create", Nickname: "Alice"})
	require.Equal(t, http.StatusOK, resp.Code)
	var created roomCommandResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))

	resp = doJSON(r, "POST", "/room/ABCD", roomCommandRequest{Action: "join", Nickname: "Bob"})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = doJSON(r, "POST", "/room/ABCD", roomCommandRequest{Action: "start", PlayerID: created.PlayerID})
	require.Equal(t, http.StatusOK, resp.Code)

	var started roomCommandResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &started))
	assert.Equal(t, string(room.StatusInProgress), string(started.Room.Status))
}

func TestHandleRoomCommand_InvalidCode(t *testing.T) {
	r, _ := newTestServer(t)

	resp := doJSON(r, "POST", "/room/AB", roomCommandRequest{Action: "create", Nickname: "Alice"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestHandleRoomCommand_UnknownAction(t *testing.T) {
	r, _ := newTestServer(t)

	resp := doJSON(r, "POST", "/room/ABCD", roomCommandRequest{Action: "nonsense"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestHandleRoomCommand_NotHostMapsToForbidden(t *testing.T) {
	r, _ := newTestServer(t)

	resp := doJSON(r, "POST", "/room/ABCD", roomCommandRequest{Action: "create", Nickname: "Alice"})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = doJSON(r, "POST", "/room/ABCD", roomCommandRequest{Action: "join", Nickname: "Bob"})
	require.Equal(t, http.StatusOK, resp.Code)
	var joined roomCommandResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &joined))

	resp = doJSON(r, "POST", "/room/ABCD", roomCommandRequest{Action: "start", PlayerID: joined.PlayerID})
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestHandleRoomSnapshot(t *testing.T) {
	r, _ := newTestServer(t)

	resp := doJSON(r, "POST", "/room/ABCD", roomCommandRequest{Action: "create", Nickname: "Alice"})
	require.Equal(t, http.StatusOK, resp.Code)

	req, _ := http.NewRequest("GET", "/room/ABCD", nil)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestHandleRoomSnapshot_NotFound(t *testing.T) {
	r, _ := newTestServer(t)

	req, _ := http.NewRequest("GET", "/room/ZZZZ", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestHandleLiveness(t *testing.T) {
	r, _ := newTestServer(t)

	req, _ := http.NewRequest("GET", "/healthz", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestHandleReadiness_NoHealthCheckerAlwaysReady(t *testing.T) {
	r, _ := newTestServer(t)

	req, _ := http.NewRequest("GET", "/readyz", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code)
}
