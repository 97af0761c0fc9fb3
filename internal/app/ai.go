package app

import (
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ninegrid/server/internal/domain"
	"github.com/ninegrid/server/internal/game"
)

// AIScheduler produces moves for AI-occupied slots. At most one timer is
// pending per room; every fire re-validates against current room state
// under the directory lock, so a timer that outlived its trigger is a
// silent no-op. The opponent is intentionally weak: uniform random over
// legal boards and cells.
type AIScheduler struct {
	dir      *Directory
	minDelay time.Duration
	maxDelay time.Duration
	notify   func(Broadcast)
}

func NewAIScheduler(dir *Directory, minDelay, maxDelay time.Duration) *AIScheduler {
	if maxDelay <= minDelay {
		maxDelay = minDelay + time.Millisecond
	}
	s := &AIScheduler{dir: dir, minDelay: minDelay, maxDelay: maxDelay}
	dir.ai = s
	return s
}

// Notify registers the broadcast sink for AI-originated state changes.
func (s *AIScheduler) Notify(fn func(Broadcast)) {
	s.notify = fn
}

// schedule arms the move timer when the room has an AI whose turn it is.
// A pending timer makes this a no-op. Caller holds the directory lock.
func (s *AIScheduler) schedule(r *Room) {
	if r.AI == nil || r.aiTimer != nil {
		return
	}
	if r.State.Winner != domain.Empty || r.State.CurrentPlayer != r.AI.Symbol {
		return
	}
	delay := s.minDelay + time.Duration(rand.Int63n(int64(s.maxDelay-s.minDelay)))
	roomID := r.ID
	r.aiTimer = time.AfterFunc(delay, func() { s.fire(roomID) })
}

// cancel stops a pending timer. Caller holds the directory lock.
func (s *AIScheduler) cancel(r *Room) {
	if r.aiTimer != nil {
		r.aiTimer.Stop()
		r.aiTimer = nil
	}
}

func (s *AIScheduler) fire(roomID string) {
	b, ok := s.aiMove(roomID)
	if !ok {
		return
	}
	if s.notify != nil {
		s.notify(b)
	}
}

// aiMove re-validates and applies one AI move. Stale preconditions (room
// gone, AI replaced, game over, not AI's turn) abort without effect.
func (s *AIScheduler) aiMove(roomID string) (Broadcast, bool) {
	d := s.dir
	d.mu.Lock()
	defer d.mu.Unlock()

	r, ok := d.rooms[roomID]
	if !ok {
		return Broadcast{}, false
	}
	r.aiTimer = nil
	if r.AI == nil || r.State.Winner != domain.Empty || r.State.CurrentPlayer != r.AI.Symbol {
		return Broadcast{}, false
	}

	boardIdx := r.State.NextAllowedBoard
	if boardIdx == game.AnyBoard {
		open := r.State.OpenBoards()
		if len(open) == 0 {
			return Broadcast{}, false
		}
		boardIdx = open[rand.Intn(len(open))]
	}
	var empty []int
	for i, c := range r.State.Boards[boardIdx].Cells {
		if c == domain.Empty {
			empty = append(empty, i)
		}
	}
	if len(empty) == 0 {
		return Broadcast{}, false
	}
	cellIdx := empty[rand.Intn(len(empty))]

	if err := r.State.ApplyMove(r.AI.Symbol, boardIdx, cellIdx); err != nil {
		log.Warn().Err(err).Str("module", "app.ai").Str("room", roomID).Msg("ai move rejected")
		return Broadcast{}, false
	}
	r.LastActivity = time.Now()
	log.Info().Str("module", "app.ai").Str("room", roomID).Int("board", boardIdx).Int("cell", cellIdx).Msg("ai moved")

	// Covers the theoretical consecutive-AI-turn case.
	s.schedule(r)
	return d.broadcast(r), true
}
