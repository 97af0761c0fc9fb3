// Package domain contains entities without logic, just meta-data.
package domain

// Symbol is a player mark on the board. Empty means unoccupied.
type Symbol string

const (
	Empty Symbol = ""
	X     Symbol = "X"
	O     Symbol = "O"
)

// Other returns the opposing symbol. Empty maps to Empty.
func (s Symbol) Other() Symbol {
	switch s {
	case X:
		return O
	case O:
		return X
	}
	return Empty
}

type Role string

const (
	RolePlayer    Role = "player"
	RoleSpectator Role = "spectator"
)

const (
	MinNickLen = 2
	MaxNickLen = 20
)

// AIOccupantID is the sentinel stored in a player slot occupied by the AI.
const AIOccupantID = "AI"

// AIName is the display name shown for an AI occupant.
const AIName = "Bot"
