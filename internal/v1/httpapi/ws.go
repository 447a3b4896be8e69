package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/lassenordahl/rank-everything-sub001/internal/v1/logging"
	"github.com/lassenordahl/rank-everything-sub001/internal/v1/metrics"
	"github.com/lassenordahl/rank-everything-sub001/internal/v1/room"
)

// writeWait bounds how long a single websocket write may take before the
// connection is considered dead.
const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// handleWebSocket upgrades GET /room/{code}/ws to the message channel
// (C4, §4.4). The subscriber it creates starts anonymous; the client's
// first identify binds it to a player id.
func (s *Server) handleWebSocket(c *gin.Context) {
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

	if s.RateLimit != nil && !s.RateLimit.CheckWebSocket(c) {
		return
	}

	upgrader.CheckOrigin = s.checkOrigin
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Warn(c.Request.Context(), "websocket upgrade failed", zap.Error(err))
		return
	}

	sub := rm.Hub().Add()
	metrics.IncConnection()

	done := make(chan struct{})
	go s.writePump(conn, sub, done)
	s.readPump(rm, sub, conn)

	close(done)
	metrics.DecConnection()
	conn.Close()
	rm.Disconnect(sub.ID())
}

// writePump drains the subscriber's outbox onto the websocket connection
// until the Hub removes it or the read side signals shutdown via done.
func (s *Server) writePump(conn *websocket.Conn, sub *room.Subscriber, done <-chan struct{}) {
	for {
		select {
		case payload, ok := <-sub.Outbox():
			if !ok {
				return
			}
			if err := writeRawBytes(conn, payload); err != nil {
				return
			}
		case <-sub.Done():
			return
		case <-done:
			return
		}
	}
}

func writeRawBytes(conn *websocket.Conn, payload []byte) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, payload)
}

// readPump reads control messages from the client and dispatches them as
// Room Actor commands (§4.5, §6). It returns when the connection closes.
func (s *Server) readPump(rm *room.Room, sub *room.Subscriber, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg room.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			rm.Hub().Send(sub.ID(), room.Message{Type: room.EventError, Code: "INVALID_REQUEST", ErrMsg: "malformed message"})
			continue
		}

		s.dispatch(rm, sub, msg)
	}
}

// dispatch routes one client message to the matching Room command,
// replying with a direct error to the originating subscriber on failure
// (§4.5 Propagation policy: errors are never broadcast).
func (s *Server) dispatch(rm *room.Room, sub *room.Subscriber, msg room.ClientMessage) {
	start := time.Now()
	defer func() {
		metrics.CommandDuration.WithLabelValues(msg.Type).Observe(time.Since(start).Seconds())
	}()

	playerID, bound := rm.Hub().PlayerOf(sub.ID())

	switch msg.Type {
	case "identify":
		if _, err := rm.Reconnect(sub.ID(), room.PlayerID(msg.PlayerID)); err != nil {
			s.replyError(rm, sub, err)
		}

	case "ping":
		rm.Hub().RecordPing(sub.ID())

	case "submit_item":
		if !bound {
			s.replyError(rm, sub, &room.CommandError{Code: room.ErrPlayerNotFound, Message: "identify before issuing commands"})
			return
		}
		if err := rm.SubmitItem(playerID, msg.Text); err != nil {
			s.replyError(rm, sub, err)
		}

	case "rank_item":
		if !bound {
			s.replyError(rm, sub, &room.CommandError{Code: room.ErrPlayerNotFound, Message: "identify before issuing commands"})
			return
		}
		if _, err := rm.RankItem(playerID, room.ItemID(msg.ItemID), msg.Ranking); err != nil {
			s.replyError(rm, sub, err)
		}

	case "skip_turn":
		if !bound {
			s.replyError(rm, sub, &room.CommandError{Code: room.ErrPlayerNotFound, Message: "identify before issuing commands"})
			return
		}
		if _, err := rm.SkipTurn(playerID); err != nil {
			s.replyError(rm, sub, err)
		}

	case "update_config":
		if !bound {
			s.replyError(rm, sub, &room.CommandError{Code: room.ErrPlayerNotFound, Message: "identify before issuing commands"})
			return
		}
		if _, err := rm.UpdateConfig(playerID, msg.Config); err != nil {
			s.replyError(rm, sub, err)
		}

	case "reset_room":
		if !bound {
			s.replyError(rm, sub, &room.CommandError{Code: room.ErrPlayerNotFound, Message: "identify before issuing commands"})
			return
		}
		if _, err := rm.Reset(playerID); err != nil {
			s.replyError(rm, sub, err)
		}

	default:
		rm.Hub().Send(sub.ID(), room.Message{Type: room.EventError, Code: "INVALID_REQUEST", ErrMsg: "unknown message type"})
	}
}

func (s *Server) replyError(rm *room.Room, sub *room.Subscriber, err error) {
	ce, ok := room.AsCommandError(err)
	if !ok {
		rm.Hub().Send(sub.ID(), room.Message{Type: room.EventError, Code: "INTERNAL", ErrMsg: "internal error"})
		return
	}
	rm.Hub().Send(sub.ID(), room.Message{Type: room.EventError, Code: string(ce.Code), ErrMsg: ce.Message})
}

// checkOrigin allows the configured origins plus same-origin requests
// with no Origin header (native clients, curl).
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
