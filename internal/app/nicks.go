package app

import (
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/ninegrid/server/internal/domain"
)

// Nicks is the process-wide display-name registry. Names are unique
// case-insensitively among live connections and are released the moment a
// connection disconnects or logs out.
type Nicks struct {
	mu      sync.Mutex
	byLower map[string]string // lower(nick) -> connection id
	byConn  map[string]string // connection id -> lower(nick)
}

func NewNicks() *Nicks {
	return &Nicks{
		byLower: make(map[string]string),
		byConn:  make(map[string]string),
	}
}

// Claim binds nick to connID, replacing any previous nick the connection
// held. Returns the trimmed nick actually bound.
func (n *Nicks) Claim(nick, connID string) (string, error) {
	trimmed := strings.TrimSpace(nick)
	if l := len([]rune(trimmed)); l < domain.MinNickLen || l > domain.MaxNickLen {
		return "", domain.ErrNickInvalid
	}
	lower := strings.ToLower(trimmed)

	n.mu.Lock()
	defer n.mu.Unlock()
	if owner, ok := n.byLower[lower]; ok && owner != connID {
		return "", domain.ErrNickTaken
	}
	if prev, ok := n.byConn[connID]; ok {
		delete(n.byLower, prev)
	}
	n.byLower[lower] = connID
	n.byConn[connID] = lower
	return trimmed, nil
}

// Release frees any nick held by connID. Safe to call repeatedly.
func (n *Nicks) Release(connID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if lower, ok := n.byConn[connID]; ok {
		delete(n.byLower, lower)
		delete(n.byConn, connID)
		log.Info().Str("module", "app.nicks").Str("nick", lower).Msg("nick released")
	}
}
