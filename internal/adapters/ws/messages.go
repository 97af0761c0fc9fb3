package ws

import (
	"github.com/ninegrid/server/internal/app"
	"github.com/ninegrid/server/internal/domain"
)

// Inbound message kinds. The dispatch switch in handlers.go is closed over
// this set; anything else gets an error reply.
const (
	TypeSetNick      = "set_nick"
	TypeJoin         = "join"
	TypeLeave        = "leave"
	TypeLogout       = "logout"
	TypeReset        = "reset"
	TypeMove         = "move"
	TypeSwitchRole   = "switch_role"
	TypeRequestLobby = "request_lobby"
)

type setNickMsg struct {
	Nick string `json:"nick"`
}

type joinMsg struct {
	RoomID     string `json:"roomId"`
	Role       string `json:"role"`
	Nick       string `json:"nick"`
	PlayWithAI bool   `json:"playWithAi"`
}

type resetMsg struct {
	RoomID string `json:"roomId"`
}

type moveMsg struct {
	RoomID     string `json:"roomId"`
	BoardIndex int    `json:"boardIndex"`
	CellIndex  int    `json:"cellIndex"`
}

type switchRoleMsg struct {
	RoomID string `json:"roomId"`
	Role   string `json:"role"`
}

// Outbound frames.

type nickOKMsg struct {
	Type string `json:"type"`
	Nick string `json:"nick"`
}

type nickTakenMsg struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Attempted string `json:"attempted"`
}

type joinedMsg struct {
	Type     string        `json:"type"`
	RoomID   string        `json:"roomId"`
	ClientID string        `json:"clientId"`
	Symbol   domain.Symbol `json:"symbol"`
	Role     domain.Role   `json:"role"`
	State    app.StateView `json:"state"`
}

type typeOnlyMsg struct {
	Type string `json:"type"`
}

type leftMsg struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
}

type stateMsg struct {
	Type  string        `json:"type"`
	State app.StateView `json:"state"`
}

type lobbyMsg struct {
	Type  string          `json:"type"`
	Rooms []app.LobbyRoom `json:"rooms"`
}

type switchedMsg struct {
	Type   string        `json:"type"`
	Role   domain.Role   `json:"role"`
	Symbol domain.Symbol `json:"symbol,omitempty"`
}

type requesterInfo struct {
	ID   string `json:"id"`
	Nick string `json:"nick"`
}

type joinRequestMsg struct {
	Type string        `json:"type"`
	From requesterInfo `json:"from"`
}

type infoMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
