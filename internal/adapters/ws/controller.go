// Package ws is the session gateway: it owns every live WebSocket
// connection, decodes inbound frames, dispatches them against the room
// directory and game state machine, and fans resulting state out to room
// members plus a lobby summary to everyone.
package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/ninegrid/server/internal/app"
	"github.com/ninegrid/server/internal/config"
	"github.com/ninegrid/server/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

type Controller struct {
	cfg   *config.Config
	dir   *app.Directory
	nicks *app.Nicks

	mu    sync.RWMutex
	conns map[string]*session

	// sendMu serializes every fan-out. Snapshots are stamped under the
	// directory lock but delivered from whichever goroutine performed the
	// mutation; without serialization two deliveries could interleave and
	// show a client an older state after a newer one.
	sendMu   sync.Mutex
	roomSeq  map[string]uint64
	lobbySeq uint64
}

func NewController(cfg *config.Config, dir *app.Directory, nicks *app.Nicks) *Controller {
	return &Controller{
		cfg:     cfg,
		dir:     dir,
		nicks:   nicks,
		conns:   make(map[string]*session),
		roomSeq: make(map[string]uint64),
	}
}

type wsConn struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- data:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// session is one connection's volatile identity. Fields beyond conn are
// only touched from the connection's own readPump goroutine.
type session struct {
	id      string
	conn    *wsConn
	nick    string
	role    domain.Role
	roomID  string
	limiter *rateLimiter
}

func (s *session) ID() string                { return s.id }
func (s *session) TrySend(data []byte) error { return s.conn.TrySend(data) }

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (ctl *Controller) HandleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("upgrade failed")
		return
	}

	sess := &session{
		id:      uuid.NewString(),
		conn:    &wsConn{conn: conn, send: make(chan []byte, 32)},
		limiter: newRateLimiter(ctl.cfg.MsgRateLimit, ctl.cfg.MsgRateWindow),
	}
	log.Info().Str("module", "ws").Str("id", sess.id).Msg("connected")

	ctl.mu.Lock()
	ctl.conns[sess.id] = sess
	ctl.mu.Unlock()

	go ctl.writePump(sess)
	go ctl.readPump(sess)
}

func (ctl *Controller) sendJSON(s *session, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("marshal outbound")
		return
	}
	_ = s.TrySend(b)
}

func (ctl *Controller) sendError(s *session, message string) {
	ctl.sendJSON(s, errorMsg{Type: "error", Message: message})
}

// Broadcast fans a mutation's state view out to the room's attendees and
// refreshes the lobby for every live connection. Deliveries run under
// sendMu in snapshot order; a frame whose Seq a newer delivery already
// passed is dropped, since the newer full snapshot supersedes it.
func (ctl *Controller) Broadcast(b app.Broadcast) {
	payload, err := json.Marshal(stateMsg{Type: "state", State: b.State})
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("marshal state")
		return
	}
	ctl.sendMu.Lock()
	defer ctl.sendMu.Unlock()
	if b.Seq > ctl.roomSeq[b.RoomID] {
		ctl.roomSeq[b.RoomID] = b.Seq
		for _, c := range b.To {
			_ = c.TrySend(payload)
		}
	}
	ctl.pushLobbyLocked(b.Lobby)
}

// BroadcastLobby pushes the lobby snapshot to all connections.
func (ctl *Controller) BroadcastLobby(u app.LobbyUpdate) {
	ctl.sendMu.Lock()
	defer ctl.sendMu.Unlock()
	ctl.pushLobbyLocked(u)
}

func (ctl *Controller) pushLobbyLocked(u app.LobbyUpdate) {
	if u.Seq <= ctl.lobbySeq {
		return
	}
	ctl.lobbySeq = u.Seq
	payload, err := json.Marshal(lobbyMsg{Type: "lobby", Rooms: u.Rooms})
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("marshal lobby")
		return
	}
	ctl.mu.RLock()
	defer ctl.mu.RUnlock()
	for _, s := range ctl.conns {
		_ = s.TrySend(payload)
	}
}

// Forget drops delivery bookkeeping for rooms the sweep released, so a
// reused id starts from a clean sequence.
func (ctl *Controller) Forget(roomIDs []string) {
	ctl.sendMu.Lock()
	defer ctl.sendMu.Unlock()
	for _, id := range roomIDs {
		delete(ctl.roomSeq, id)
	}
}

// disconnect tears a session down synchronously: nick freed, room slot
// released and broadcast, connection unregistered. Runs before the read
// pump returns, so no later frame for this session can be processed.
func (ctl *Controller) disconnect(s *session) {
	log.Info().Str("module", "ws").Str("id", s.id).Msg("disconnected")
	ctl.nicks.Release(s.id)

	if s.roomID != "" {
		if b, ok := ctl.dir.Leave(s.roomID, s.id); ok {
			ctl.Broadcast(b)
		}
		s.roomID = ""
	} else {
		ctl.BroadcastLobby(ctl.dir.Lobby())
	}

	ctl.mu.Lock()
	delete(ctl.conns, s.id)
	ctl.mu.Unlock()
	s.conn.Close()
}
