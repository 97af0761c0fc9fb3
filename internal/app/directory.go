package app

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ninegrid/server/internal/domain"
	"github.com/ninegrid/server/internal/game"
)

// Client is what the directory needs from a connected party. Implemented
// by the gateway session; tests use fakes.
type Client interface {
	ID() string
	TrySend(data []byte) error
}

// Attendee is one connection attached to a room, player or spectator.
type Attendee struct {
	Conn Client
	Nick string
	Role domain.Role
}

type AIOccupant struct {
	Symbol domain.Symbol
	Name   string
}

// Room is one game session. All fields are guarded by the owning
// Directory's mutex.
type Room struct {
	ID           string
	HostID       string
	Players      map[domain.Symbol]string
	PlayerNames  map[domain.Symbol]string
	Clients      map[string]*Attendee
	AI           *AIOccupant
	State        *game.State
	LastActivity time.Time

	aiTimer *time.Timer
	seq     uint64
}

// Directory is the process-wide room registry. Every mutation of any room
// runs under its mutex; the AI timer and the idle sweep re-enter through
// the same lock, so room state never sees concurrent writers.
type Directory struct {
	mu          sync.RWMutex
	rooms       map[string]*Room
	idleTimeout time.Duration
	lobbySeq    atomic.Uint64

	ai *AIScheduler
}

func NewDirectory(idleTimeout time.Duration) *Directory {
	return &Directory{
		rooms:       make(map[string]*Room),
		idleTimeout: idleTimeout,
	}
}

// Broadcast is the fan-out set produced by a mutation: the room state view,
// the attendees it goes to, and the refreshed lobby for every connection.
// Seq is stamped under the directory lock and increases with each applied
// mutation of the room; the gateway delivers frames in Seq order and drops
// any snapshot a newer one has already superseded, so the goroutine that
// happens to perform the fan-out cannot reorder what clients observe.
type Broadcast struct {
	RoomID string
	Seq    uint64
	State  StateView
	To     []Client
	Lobby  LobbyUpdate
}

// LobbyUpdate is a stamped cross-room summary. Same contract as
// Broadcast.Seq: deliver in order, drop superseded snapshots.
type LobbyUpdate struct {
	Seq   uint64
	Rooms []LobbyRoom
}

type JoinResult struct {
	RoomID   string
	ClientID string
	Symbol   domain.Symbol
	Role     domain.Role
	Broadcast
}

func newRoomID() string {
	b := make([]byte, 3)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// getOrCreate returns the room for id, creating it when id is empty or
// unknown. Caller holds the write lock.
func (d *Directory) getOrCreate(id string) *Room {
	if id != "" {
		if r, ok := d.rooms[id]; ok {
			return r
		}
	}
	if id == "" {
		for {
			id = newRoomID()
			if _, ok := d.rooms[id]; !ok {
				break
			}
		}
	}
	r := &Room{
		ID:           id,
		Players:      make(map[domain.Symbol]string),
		PlayerNames:  make(map[domain.Symbol]string),
		Clients:      make(map[string]*Attendee),
		State:        game.NewState(),
		LastActivity: time.Now(),
	}
	d.rooms[id] = r
	log.Info().Str("module", "app.directory").Str("room", id).Msg("room created")
	return r
}

// normalizeSlots restores the one-occupant-per-symbol invariant before any
// slot-touching mutation: a connection holding both slots loses O.
func (d *Directory) normalizeSlots(r *Room) {
	x, o := r.Players[domain.X], r.Players[domain.O]
	if x != "" && x == o {
		delete(r.Players, domain.O)
		delete(r.PlayerNames, domain.O)
		log.Warn().Str("module", "app.directory").Str("room", r.ID).Msg("repaired duplicate slot occupancy, cleared O")
	}
}

// assignSlot gives clientID a symbol: the desired one when free, else the
// first free slot in X, O order. Empty result means no slot was available.
// Caller holds the write lock.
func (d *Directory) assignSlot(r *Room, clientID, nick string, desired domain.Symbol) domain.Symbol {
	d.normalizeSlots(r)
	for _, sym := range []domain.Symbol{domain.X, domain.O} {
		if r.Players[sym] == clientID {
			delete(r.Players, sym)
			delete(r.PlayerNames, sym)
		}
	}
	take := func(sym domain.Symbol) domain.Symbol {
		r.Players[sym] = clientID
		r.PlayerNames[sym] = nick
		return sym
	}
	if desired == domain.X || desired == domain.O {
		if r.Players[desired] == "" {
			return take(desired)
		}
		return domain.Empty
	}
	for _, sym := range []domain.Symbol{domain.X, domain.O} {
		if r.Players[sym] == "" {
			return take(sym)
		}
	}
	return domain.Empty
}

func (d *Directory) addAI(r *Room, humanSymbol domain.Symbol) bool {
	sym := humanSymbol.Other()
	if r.Players[sym] != "" {
		return false
	}
	r.Players[sym] = domain.AIOccupantID
	r.AI = &AIOccupant{Symbol: sym, Name: domain.AIName}
	r.PlayerNames[sym] = domain.AIName
	log.Info().Str("module", "app.directory").Str("room", r.ID).Str("symbol", string(sym)).Msg("ai occupant added")
	return true
}

// removeAI vacates the AI slot and stops any pending AI timer, so a stale
// fire cannot race the human that took the seat over.
func (d *Directory) removeAI(r *Room) {
	if r.AI == nil {
		return
	}
	sym := r.AI.Symbol
	if r.Players[sym] == domain.AIOccupantID {
		delete(r.Players, sym)
		delete(r.PlayerNames, sym)
	}
	r.AI = nil
	if d.ai != nil {
		d.ai.cancel(r)
	}
}

func (d *Directory) scheduleAI(r *Room) {
	if d.ai != nil {
		d.ai.schedule(r)
	}
}

// JoinRoom attaches a connection to a room (creating it on demand),
// assigns a player slot when asked for one, and optionally seats an AI
// opponent. Never fails: a full room downgrades the joiner to spectator.
func (d *Directory) JoinRoom(roomID string, c Client, nick string, role domain.Role, playWithAI bool) JoinResult {
	d.mu.Lock()
	defer d.mu.Unlock()

	r := d.getOrCreate(roomID)
	if role != domain.RoleSpectator {
		role = domain.RolePlayer
	}
	att := &Attendee{Conn: c, Nick: nick, Role: role}
	r.Clients[c.ID()] = att
	if r.HostID == "" {
		r.HostID = c.ID()
	}

	symbol := domain.Empty
	if role == domain.RolePlayer {
		symbol = d.assignSlot(r, c.ID(), nick, domain.Empty)
		if symbol == domain.Empty {
			att.Role = domain.RoleSpectator
			role = domain.RoleSpectator
		}
	}
	if playWithAI && symbol != domain.Empty {
		d.addAI(r, symbol)
	}

	r.LastActivity = time.Now()
	d.scheduleAI(r)
	return JoinResult{
		RoomID:    r.ID,
		ClientID:  c.ID(),
		Symbol:    symbol,
		Role:      role,
		Broadcast: d.broadcast(r),
	}
}

// Leave detaches a connection from a room, vacating any slot it held.
// Idempotent: unknown rooms and already-released connections are no-ops.
func (d *Directory) Leave(roomID, clientID string) (Broadcast, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, ok := d.rooms[roomID]
	if !ok {
		return Broadcast{}, false
	}
	d.normalizeSlots(r)
	delete(r.Clients, clientID)
	for _, sym := range []domain.Symbol{domain.X, domain.O} {
		if r.Players[sym] == clientID {
			delete(r.Players, sym)
			delete(r.PlayerNames, sym)
		}
	}
	r.LastActivity = time.Now()
	return d.broadcast(r), true
}

// Reset reinstalls a fresh game. Only a seated player may reset.
func (d *Directory) Reset(roomID, clientID string) (Broadcast, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, ok := d.rooms[roomID]
	if !ok {
		return Broadcast{}, domain.ErrRoomNotFound
	}
	d.normalizeSlots(r)
	if r.Players[domain.X] != clientID && r.Players[domain.O] != clientID {
		return Broadcast{}, domain.ErrNotAPlayer
	}
	r.State = game.NewState()
	r.LastActivity = time.Now()
	d.scheduleAI(r)
	return d.broadcast(r), nil
}

// Move applies a human move through the game state machine.
func (d *Directory) Move(roomID, clientID string, boardIndex, cellIndex int) (Broadcast, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, ok := d.rooms[roomID]
	if !ok {
		return Broadcast{}, domain.ErrRoomNotFound
	}
	d.normalizeSlots(r)
	r.LastActivity = time.Now()

	symbol := domain.Empty
	switch clientID {
	case r.Players[domain.X]:
		symbol = domain.X
	case r.Players[domain.O]:
		symbol = domain.O
	}
	if symbol == domain.Empty {
		return Broadcast{}, domain.ErrNotAPlayer
	}
	if err := r.State.ApplyMove(symbol, boardIndex, cellIndex); err != nil {
		return Broadcast{}, err
	}
	d.scheduleAI(r)
	return d.broadcast(r), nil
}

// SwitchToSpectator vacates any player slot held by the connection.
func (d *Directory) SwitchToSpectator(roomID, clientID string) (Broadcast, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, ok := d.rooms[roomID]
	if !ok {
		return Broadcast{}, domain.ErrRoomNotFound
	}
	att, ok := r.Clients[clientID]
	if !ok {
		return Broadcast{}, domain.ErrNotAPlayer
	}
	d.normalizeSlots(r)
	for _, sym := range []domain.Symbol{domain.X, domain.O} {
		if r.Players[sym] == clientID {
			delete(r.Players, sym)
			delete(r.PlayerNames, sym)
		}
	}
	att.Role = domain.RoleSpectator
	r.LastActivity = time.Now()
	return d.broadcast(r), nil
}

type SwitchOutcome int

const (
	// SwitchAssigned: an empty slot was taken.
	SwitchAssigned SwitchOutcome = iota
	// SwitchReplacedAI: an AI occupant was evicted and its slot taken.
	SwitchReplacedAI
	// SwitchRequested: both slots are human-held; the request was relayed.
	SwitchRequested
)

type SwitchResult struct {
	Outcome SwitchOutcome
	Symbol  domain.Symbol
	// Humans receive the join_request relay when Outcome is SwitchRequested.
	Humans []Client
	Broadcast
}

// SwitchToPlayer promotes a spectator: empty slot first, then an AI seat,
// otherwise the current human players get a join request to arbitrate.
func (d *Directory) SwitchToPlayer(roomID, clientID string) (SwitchResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, ok := d.rooms[roomID]
	if !ok {
		return SwitchResult{}, domain.ErrRoomNotFound
	}
	att, ok := r.Clients[clientID]
	if !ok {
		return SwitchResult{}, domain.ErrNotAPlayer
	}

	if sym := d.assignSlot(r, clientID, att.Nick, domain.Empty); sym != domain.Empty {
		att.Role = domain.RolePlayer
		r.LastActivity = time.Now()
		d.scheduleAI(r)
		return SwitchResult{Outcome: SwitchAssigned, Symbol: sym, Broadcast: d.broadcast(r)}, nil
	}

	for _, sym := range []domain.Symbol{domain.X, domain.O} {
		if r.Players[sym] == domain.AIOccupantID {
			d.removeAI(r)
			d.assignSlot(r, clientID, att.Nick, sym)
			att.Role = domain.RolePlayer
			r.LastActivity = time.Now()
			return SwitchResult{Outcome: SwitchReplacedAI, Symbol: sym, Broadcast: d.broadcast(r)}, nil
		}
	}

	var humans []Client
	for _, sym := range []domain.Symbol{domain.X, domain.O} {
		pid := r.Players[sym]
		if pid == "" || pid == domain.AIOccupantID || pid == clientID {
			continue
		}
		if p, ok := r.Clients[pid]; ok {
			humans = append(humans, p.Conn)
		}
	}
	return SwitchResult{Outcome: SwitchRequested, Humans: humans}, nil
}

// Lobby returns the current cross-room summary.
func (d *Directory) Lobby() LobbyUpdate {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lobbySnapshot()
}

// RoomCount is a small introspection helper for logs and tests.
func (d *Directory) RoomCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms)
}

// Sweep deletes rooms that have had zero attached clients for longer than
// the idle timeout. A room with any client attached is never deleted.
// Returns the deleted ids and, when anything was deleted, a fresh lobby.
func (d *Directory) Sweep(now time.Time) ([]string, LobbyUpdate) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var deleted []string
	for id, r := range d.rooms {
		if len(r.Clients) > 0 {
			continue
		}
		if now.Sub(r.LastActivity) <= d.idleTimeout {
			continue
		}
		if d.ai != nil {
			d.ai.cancel(r)
		}
		delete(d.rooms, id)
		deleted = append(deleted, id)
		log.Info().Str("module", "app.directory").Str("room", id).Msg("idle room released")
	}
	if len(deleted) == 0 {
		return nil, LobbyUpdate{}
	}
	return deleted, d.lobbySnapshot()
}

// lobbySnapshot builds a stamped summary. Caller holds either lock; the
// counter is atomic so read-locked snapshots stay ordered against
// write-locked ones.
func (d *Directory) lobbySnapshot() LobbyUpdate {
	return LobbyUpdate{
		Seq:   d.lobbySeq.Add(1),
		Rooms: lobbyView(d.rooms),
	}
}

func (d *Directory) broadcast(r *Room) Broadcast {
	to := make([]Client, 0, len(r.Clients))
	for _, att := range r.Clients {
		to = append(to, att.Conn)
	}
	r.seq++
	return Broadcast{
		RoomID: r.ID,
		Seq:    r.seq,
		State:  stateView(r),
		To:     to,
		Lobby:  d.lobbySnapshot(),
	}
}
