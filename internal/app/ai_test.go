package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninegrid/server/internal/domain"
)

func waitBroadcast(t *testing.T, ch <-chan Broadcast) Broadcast {
	t.Helper()
	select {
	case b := <-ch:
		return b
	case <-time.After(2 * time.Second):
		t.Fatal("no AI broadcast within deadline")
		return Broadcast{}
	}
}

func TestAIMovesAfterHumanMove(t *testing.T) {
	d := NewDirectory(time.Minute)
	s := NewAIScheduler(d, time.Millisecond, 10*time.Millisecond)
	got := make(chan Broadcast, 4)
	s.Notify(func(b Broadcast) { got <- b })

	h := &fakeClient{id: "h1"}
	res := d.JoinRoom("", h, "alice", domain.RolePlayer, true)
	require.Equal(t, domain.X, res.Symbol)

	_, err := d.Move(res.RoomID, "h1", 4, 4)
	require.NoError(t, err)

	b := waitBroadcast(t, got)
	assert.Equal(t, domain.X, b.State.CurrentPlayer, "turn returns to the human")

	// Exactly one legal AI move: board 4 was the constrained target.
	marks := 0
	for _, c := range b.State.Boards[4].Cells {
		if c == domain.O {
			marks++
		}
	}
	assert.Equal(t, 1, marks)

	// No second broadcast: the scheduler must not double-fire.
	select {
	case <-got:
		t.Fatal("unexpected second AI move")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAISchedulerSinglePendingTimer(t *testing.T) {
	d := NewDirectory(time.Minute)
	NewAIScheduler(d, time.Hour, time.Hour+time.Second)

	h := &fakeClient{id: "h1"}
	res := d.JoinRoom("", h, "alice", domain.RolePlayer, true)
	_, err := d.Move(res.RoomID, "h1", 4, 4)
	require.NoError(t, err)

	d.mu.Lock()
	r := d.rooms[res.RoomID]
	first := r.aiTimer
	require.NotNil(t, first)
	d.ai.schedule(r)
	assert.Same(t, first, r.aiTimer, "re-scheduling while pending is a no-op")
	d.mu.Unlock()
}

func TestAISchedulerNoopWhenNotAITurn(t *testing.T) {
	d := NewDirectory(time.Minute)
	NewAIScheduler(d, time.Millisecond, 2*time.Millisecond)

	h := &fakeClient{id: "h1"}
	res := d.JoinRoom("", h, "alice", domain.RolePlayer, true)

	// X (human) to move: nothing pending.
	d.mu.Lock()
	assert.Nil(t, d.rooms[res.RoomID].aiTimer)
	d.mu.Unlock()
}

func TestAIStaleFireAborts(t *testing.T) {
	d := NewDirectory(time.Minute)
	s := NewAIScheduler(d, time.Hour, time.Hour+time.Second)
	got := make(chan Broadcast, 1)
	s.Notify(func(b Broadcast) { got <- b })

	h := &fakeClient{id: "h1"}
	res := d.JoinRoom("", h, "alice", domain.RolePlayer, true)
	_, err := d.Move(res.RoomID, "h1", 4, 4)
	require.NoError(t, err)

	// Simulate the timer firing after the game ended.
	d.mu.Lock()
	d.rooms[res.RoomID].State.Winner = domain.X
	d.mu.Unlock()
	s.fire(res.RoomID)

	select {
	case <-got:
		t.Fatal("stale fire must not move")
	default:
	}

	// Unknown room is equally silent.
	s.fire("gone")
}

func TestReplacingAICancelsPendingTimer(t *testing.T) {
	d := NewDirectory(time.Minute)
	NewAIScheduler(d, time.Hour, time.Hour+time.Second)

	h := &fakeClient{id: "h1"}
	viewer := &fakeClient{id: "h2"}
	res := d.JoinRoom("", h, "alice", domain.RolePlayer, true)
	d.JoinRoom(res.RoomID, viewer, "bob", domain.RoleSpectator, false)

	_, err := d.Move(res.RoomID, "h1", 4, 4)
	require.NoError(t, err)

	d.mu.Lock()
	require.NotNil(t, d.rooms[res.RoomID].aiTimer)
	d.mu.Unlock()

	sw, err := d.SwitchToPlayer(res.RoomID, "h2")
	require.NoError(t, err)
	require.Equal(t, SwitchReplacedAI, sw.Outcome)

	d.mu.Lock()
	assert.Nil(t, d.rooms[res.RoomID].aiTimer, "vacating the AI slot cancels its timer")
	d.mu.Unlock()
}

func TestAIRearmsForConsecutiveTurn(t *testing.T) {
	d := NewDirectory(time.Minute)
	s := NewAIScheduler(d, time.Millisecond, 2*time.Millisecond)
	got := make(chan Broadcast, 1)
	s.Notify(func(b Broadcast) { got <- b })

	h := &fakeClient{id: "h1"}
	res := d.JoinRoom("", h, "alice", domain.RolePlayer, true)
	_, err := d.Move(res.RoomID, "h1", 4, 4)
	require.NoError(t, err)
	waitBroadcast(t, got)

	// After a normal AI move the turn is the human's again, so nothing
	// stays armed.
	d.mu.Lock()
	assert.Nil(t, d.rooms[res.RoomID].aiTimer)
	d.mu.Unlock()
}
