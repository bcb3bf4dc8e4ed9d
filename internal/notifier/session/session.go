package session

import (
	"encoding/json"
	"time"

	"quiklii/internal/notifier/hub"
	"quiklii/internal/xpkg/auth"
	"quiklii/internal/xpkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 4 << 10
	sendBuffer     = 32
)

type clientFrame struct {
	Action string `json:"action"`
	Room   string `json:"room"`
}

type serverFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Session is one authenticated websocket connection. Events are queued on a
// bounded channel; a full queue closes the session rather than blocking the
// publisher.
type Session struct {
	id     string
	claims auth.Claims
	conn   *websocket.Conn
	h      *hub.Hub
	send   chan serverFrame
	done   chan struct{}
	mylog  logger.Logger
}

func New(conn *websocket.Conn, claims auth.Claims, h *hub.Hub, mylog logger.Logger) *Session {
	s := &Session{
		id:     uuid.NewString(),
		claims: claims,
		conn:   conn,
		h:      h,
		send:   make(chan serverFrame, sendBuffer),
		done:   make(chan struct{}),
	}
	s.mylog = mylog.With("session_id", s.id, "user_id", claims.UserID)
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) Claims() auth.Claims { return s.claims }

// TrySend queues an event without blocking.
func (s *Session) TrySend(event string, payload []byte) bool {
	frame := serverFrame{Event: event, Data: payload}
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}

// Run blocks until the connection drops, then purges room membership.
// Every session is in its own user room from the start.
func (s *Session) Run() {
	s.h.Join(s, hub.RoomForUser(s.claims.UserID))

	go s.writePump()
	s.readPump()

	close(s.done)
	s.h.Disconnect(s)
}

func (s *Session) readPump() {
	defer s.conn.Close()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.mylog.Action("read_failed").Debug("Connection dropped", "error", err.Error())
			}
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			s.mylog.Action("frame_rejected").Debug("Malformed client frame")
			continue
		}

		switch frame.Action {
		case "join_room":
			if frame.Room != "" {
				s.h.Join(s, frame.Room)
			}
		case "leave_room":
			if frame.Room != "" {
				s.h.Leave(s, frame.Room)
			}
		default:
			s.mylog.Action("frame_rejected").Debug("Unknown action", "frame_action", frame.Action)
		}
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case frame := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}
