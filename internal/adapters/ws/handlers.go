package ws

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/rs/zerolog/log"

	"github.com/ninegrid/server/internal/app"
	"github.com/ninegrid/server/internal/domain"
)

func (ctl *Controller) handleMessage(s *session, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "ws").Str("id", s.id).Msg("bad json frame")
		ctl.sendError(s, "malformed message")
		return
	}

	switch env.Type {
	case TypeSetNick:
		ctl.handleSetNick(s, data)
	case TypeJoin:
		ctl.handleJoin(s, data)
	case TypeLeave:
		ctl.handleLeave(s)
	case TypeLogout:
		ctl.handleLogout(s)
	case TypeReset:
		ctl.handleReset(s, data)
	case TypeMove:
		ctl.handleMove(s, data)
	case TypeSwitchRole:
		ctl.handleSwitchRole(s, data)
	case TypeRequestLobby:
		ctl.sendJSON(s, lobbyMsg{Type: "lobby", Rooms: ctl.dir.Lobby().Rooms})
	default:
		log.Warn().Str("module", "ws").Str("type", env.Type).Msg("unknown message type")
		ctl.sendError(s, "unknown message type")
	}
}

func (ctl *Controller) handleSetNick(s *session, data []byte) {
	var p setNickMsg
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(s, "malformed message")
		return
	}
	nick, err := ctl.nicks.Claim(p.Nick, s.id)
	if err != nil {
		ctl.sendJSON(s, nickTakenMsg{Type: "nick_taken", Message: err.Error(), Attempted: p.Nick})
		return
	}
	s.nick = nick
	ctl.sendJSON(s, nickOKMsg{Type: "nick_ok", Nick: nick})
	ctl.BroadcastLobby(ctl.dir.Lobby())
}

// ensureNick guarantees the session holds a registered nick before a join:
// the join-supplied candidate when free, else a generated placeholder.
func (ctl *Controller) ensureNick(s *session, candidate string) {
	if s.nick != "" {
		return
	}
	if candidate != "" {
		if nick, err := ctl.nicks.Claim(candidate, s.id); err == nil {
			s.nick = nick
			return
		}
	}
	// Generated names must fit the nick length limit, so the connection id
	// is only used as a prefix; random suffixes break any residual tie.
	for _, gen := range []string{"player-" + s.id[:4], "player-" + s.id[:8], "player-" + s.id[:13]} {
		if nick, err := ctl.nicks.Claim(gen, s.id); err == nil {
			s.nick = nick
			return
		}
	}
	for {
		gen := fmt.Sprintf("player-%05x", rand.Intn(1<<20))
		if nick, err := ctl.nicks.Claim(gen, s.id); err == nil {
			s.nick = nick
			return
		}
	}
}

func (ctl *Controller) handleJoin(s *session, data []byte) {
	var p joinMsg
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(s, "malformed message")
		return
	}
	log.Info().Str("module", "ws").Str("id", s.id).Str("room", p.RoomID).Str("role", p.Role).Msg("join request")

	// Joining while attached elsewhere detaches from the old room first.
	if s.roomID != "" {
		if b, ok := ctl.dir.Leave(s.roomID, s.id); ok {
			ctl.Broadcast(b)
		}
		s.roomID = ""
	}

	ctl.ensureNick(s, p.Nick)

	role := domain.RolePlayer
	if p.Role == string(domain.RoleSpectator) {
		role = domain.RoleSpectator
	}
	res := ctl.dir.JoinRoom(p.RoomID, s, s.nick, role, p.PlayWithAI)
	s.roomID = res.RoomID
	s.role = res.Role

	ctl.sendJSON(s, joinedMsg{
		Type:     "joined",
		RoomID:   res.RoomID,
		ClientID: s.id,
		Symbol:   res.Symbol,
		Role:     res.Role,
		State:    res.State,
	})
	log.Info().Str("module", "ws").Str("id", s.id).Str("room", res.RoomID).
		Str("role", string(res.Role)).Str("symbol", string(res.Symbol)).Msg("joined")
	ctl.Broadcast(res.Broadcast)
}

func (ctl *Controller) handleLeave(s *session) {
	if s.roomID == "" {
		return
	}
	roomID := s.roomID
	b, ok := ctl.dir.Leave(roomID, s.id)
	s.roomID = ""
	s.role = ""
	ctl.sendJSON(s, leftMsg{Type: "left", RoomID: roomID})
	if ok {
		ctl.Broadcast(b)
	}
}

func (ctl *Controller) handleLogout(s *session) {
	if s.nick == "" {
		return
	}
	ctl.nicks.Release(s.id)
	s.nick = ""
	ctl.sendJSON(s, typeOnlyMsg{Type: "logged_out"})
	ctl.handleLeave(s)
	ctl.BroadcastLobby(ctl.dir.Lobby())
}

func (ctl *Controller) handleReset(s *session, data []byte) {
	var p resetMsg
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(s, "malformed message")
		return
	}
	b, err := ctl.dir.Reset(p.RoomID, s.id)
	if err != nil {
		ctl.sendError(s, err.Error())
		return
	}
	ctl.Broadcast(b)
}

func (ctl *Controller) handleMove(s *session, data []byte) {
	var p moveMsg
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(s, "malformed message")
		return
	}
	b, err := ctl.dir.Move(p.RoomID, s.id, p.BoardIndex, p.CellIndex)
	if err != nil {
		ctl.sendError(s, err.Error())
		return
	}
	ctl.Broadcast(b)
}

func (ctl *Controller) handleSwitchRole(s *session, data []byte) {
	var p switchRoleMsg
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(s, "malformed message")
		return
	}

	switch domain.Role(p.Role) {
	case domain.RoleSpectator:
		b, err := ctl.dir.SwitchToSpectator(p.RoomID, s.id)
		if err != nil {
			ctl.sendError(s, err.Error())
			return
		}
		s.role = domain.RoleSpectator
		ctl.sendJSON(s, switchedMsg{Type: "switched", Role: domain.RoleSpectator})
		ctl.Broadcast(b)

	case domain.RolePlayer:
		res, err := ctl.dir.SwitchToPlayer(p.RoomID, s.id)
		if err != nil {
			ctl.sendError(s, err.Error())
			return
		}
		switch res.Outcome {
		case app.SwitchAssigned, app.SwitchReplacedAI:
			s.role = domain.RolePlayer
			ctl.sendJSON(s, switchedMsg{Type: "switched", Role: domain.RolePlayer, Symbol: res.Symbol})
			ctl.Broadcast(res.Broadcast)
		case app.SwitchRequested:
			payload, err := json.Marshal(joinRequestMsg{
				Type: "join_request",
				From: requesterInfo{ID: s.id, Nick: s.nick},
			})
			if err == nil {
				for _, h := range res.Humans {
					_ = h.TrySend(payload)
				}
			}
			ctl.sendJSON(s, infoMsg{Type: "info", Message: "join request sent to current players"})
		}

	default:
		ctl.sendError(s, "unknown role")
	}
}
