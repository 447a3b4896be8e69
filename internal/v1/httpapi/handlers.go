package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lassenordahl/rank-everything-sub001/internal/v1/metrics"
	"github.com/lassenordahl/rank-everything-sub001/internal/v1/room"
)

// roomCommandRequest is the body of POST /room/{code} (§4.8, §6). action
// discriminates between the three commands this surface accepts; the
// remaining commands only make sense against an already-open message
// channel and are handled in ws.go instead.
type roomCommandRequest struct {
	Action   string            `json:"action"`
	Nickname string            `json:"nickname,omitempty"`
	PlayerID string            `json:"playerId,omitempty"`
	Config   *room.ConfigPatch `json:"config,omitempty"`
}

type roomCommandResponse struct {
	PlayerID string         `json:"playerId,omitempty"`
	Room     room.RoomState `json:"room"`
}

// handleRoomCommand dispatches POST /room/{code} (§4.8 HTTP Control
// Surface): create, join, and start are the only commands reachable
// without an already-open message channel.
func (s *Server) handleRoomCommand(c *gin.Context) {
	code := room.NormalizeCode(c.Param("code"))
	if err := room.ValidateRoomCode(string(code)); err != nil {
		writeCommandError(c, err)
		return
	}

	var req roomCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST", "message": "malformed request body"})
		return
	}

	start := time.Now()
	var state room.RoomState
	var playerID room.PlayerID
	var err error

	switch req.Action {
	case "create":
		rm, created := s.Registry.GetOrCreate(code)
		if !created {
			c.JSON(http.StatusConflict, gin.H{"error": "ROOM_EXISTS", "message": "room already exists"})
			return
		}
		var result room.CreateResult
		result, err = rm.Create(req.Nickname, req.Config)
		playerID, state = result.PlayerID, result.State
	case "join":
		rm, ok := s.Registry.Get(code)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "ROOM_NOT_FOUND", "message": "room not found"})
			return
		}
		playerID, state, err = rm.Join(req.Nickname)
	case "start":
		rm, ok := s.Registry.Get(code)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "ROOM_NOT_FOUND", "message": "room not found"})
			return
		}
		state, err = rm.Start(room.PlayerID(req.PlayerID))
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST", "message": "unknown action"})
		return
	}

	metrics.CommandDuration.WithLabelValues(req.Action).Observe(time.Since(start).Seconds())
	if err != nil {
		writeCommandError(c, err)
		return
	}

	c.JSON(http.StatusOK, roomCommandResponse{PlayerID: string(playerID), Room: state})
}

// handleRoomSnapshot serves GET /room/{code}, the read-only state fetch
// a reconnecting client issues before opening the message channel.
func (s *Server) handleRoomSnapshot(c *gin.Context) {
	code := room.NormalizeCode(c.Param("code"))
	if err := room.ValidateRoomCode(string(code)); err != nil {
		writeCommandError(c, err)
		return
	}

	rm, ok := s.Registry.Get(code)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "ROOM_NOT_FOUND", "message": "room not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"room": rm.Snapshot()})
}

// writeCommandError maps a room.CommandError to the §7 error taxonomy's
// HTTP status, falling back to 500 for anything unrecognized.
func writeCommandError(c *gin.Context, err error) {
	ce, ok := room.AsCommandError(err)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL", "message": "internal error"})
		return
	}

	status := http.StatusBadRequest
	switch ce.Code {
	case room.ErrRoomNotFound, room.ErrPlayerNotFound, room.ErrItemNotFound:
		status = http.StatusNotFound
	case room.ErrNotHost, room.ErrNotYourTurn, room.ErrNoHostAvailable:
		status = http.StatusForbidden
	case room.ErrNicknameTaken, room.ErrDuplicateItem, room.ErrRankingSlotTaken,
		room.ErrGameAlreadyStarted, room.ErrRoomEnded, room.ErrRoomClosed:
		status = http.StatusConflict
	case room.ErrCodeExhausted, room.ErrInternal:
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"error": string(ce.Code), "message": ce.Message})
}
