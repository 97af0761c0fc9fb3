package app

import (
	"sort"

	"github.com/ninegrid/server/internal/domain"
)

// Wire-format views. Internal room/game state never crosses the socket
// directly; these projections are rebuilt from scratch on every broadcast.

type BoardView struct {
	Cells [9]domain.Symbol `json:"cells"`
	Owner domain.Symbol    `json:"owner"`
}

type StateView struct {
	RoomID           string                   `json:"roomId"`
	Boards           [9]BoardView             `json:"boards"`
	CurrentPlayer    domain.Symbol            `json:"currentPlayer"`
	NextAllowedBoard int                      `json:"nextAllowedBoard"`
	Winner           domain.Symbol            `json:"winner"`
	Players          map[domain.Symbol]string `json:"players"`
	SpectatorCount   int                      `json:"spectatorCount"`
	HasVacancy       bool                     `json:"hasVacancy"`
}

type LobbyRoom struct {
	RoomID         string                   `json:"roomId"`
	Players        map[domain.Symbol]string `json:"players"`
	SpectatorCount int                      `json:"spectatorCount"`
	HasVacancy     bool                     `json:"hasVacancy"`
	HostID         string                   `json:"hostId"`
	HostNick       string                   `json:"hostNick"`
}

func displayNames(r *Room) map[domain.Symbol]string {
	out := make(map[domain.Symbol]string, 2)
	for _, sym := range []domain.Symbol{domain.X, domain.O} {
		name := r.PlayerNames[sym]
		if name == "" && r.Players[sym] == domain.AIOccupantID && r.AI != nil {
			name = r.AI.Name
		}
		out[sym] = name
	}
	return out
}

func spectatorCount(r *Room) int {
	n := 0
	for _, att := range r.Clients {
		if att.Role == domain.RoleSpectator {
			n++
		}
	}
	return n
}

// hasVacancy: a seat is open, or an AI holds one and can be replaced.
func hasVacancy(r *Room) bool {
	x, o := r.Players[domain.X], r.Players[domain.O]
	return x == "" || o == "" || x == domain.AIOccupantID || o == domain.AIOccupantID
}

func stateView(r *Room) StateView {
	v := StateView{
		RoomID:           r.ID,
		CurrentPlayer:    r.State.CurrentPlayer,
		NextAllowedBoard: r.State.NextAllowedBoard,
		Winner:           r.State.Winner,
		Players:          displayNames(r),
		SpectatorCount:   spectatorCount(r),
		HasVacancy:       hasVacancy(r),
	}
	for i := range r.State.Boards {
		v.Boards[i] = BoardView{Cells: r.State.Boards[i].Cells, Owner: r.State.Boards[i].Owner}
	}
	return v
}

func lobbyView(rooms map[string]*Room) []LobbyRoom {
	out := make([]LobbyRoom, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, LobbyRoom{
			RoomID:         r.ID,
			Players:        displayNames(r),
			SpectatorCount: spectatorCount(r),
			HasVacancy:     hasVacancy(r),
			HostID:         r.HostID,
			HostNick:       r.PlayerNames[domain.X],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomID < out[j].RoomID })
	return out
}
