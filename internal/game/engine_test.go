package game_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ninegrid/server/internal/domain"
	"github.com/ninegrid/server/internal/game"
)

func grid(marks ...domain.Symbol) [9]domain.Symbol {
	var out [9]domain.Symbol
	copy(out[:], marks)
	return out
}

func TestEvaluate(t *testing.T) {
	x, o, e := domain.X, domain.O, domain.Empty

	tests := []struct {
		name  string
		cells [9]domain.Symbol
		want  game.Outcome
	}{
		{"empty grid open", grid(), game.Open},
		{"top row X", grid(x, x, x, o, o, e, e, e, e), game.WonX},
		{"middle row O", grid(x, e, x, o, o, o, x, e, e), game.WonO},
		{"left column X", grid(x, o, e, x, o, e, x, e, e), game.WonX},
		{"main diagonal X", grid(x, o, o, e, x, e, e, e, x), game.WonX},
		{"anti diagonal O", grid(x, x, o, e, o, x, o, e, e), game.WonO},
		{"in progress no line", grid(x, o, x, e, e, e, e, e, e), game.Open},
		{"full grid no line is draw", grid(x, o, x, x, o, o, o, x, x), game.Draw},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, game.Evaluate(tt.cells))
		})
	}
}

func TestEvaluateMeta(t *testing.T) {
	x, o, e := domain.X, domain.O, domain.Empty

	// Owners of undecided sub-boards read as empty.
	assert.Equal(t, game.Open, game.EvaluateMeta(grid(x, x, e, o, o, e, e, e, e)))
	assert.Equal(t, game.WonX, game.EvaluateMeta(grid(x, x, x, o, o, e, e, e, e)))
	assert.Equal(t, game.WonO, game.EvaluateMeta(grid(o, x, x, o, x, e, o, e, e)))
}

func TestOutcomeWinner(t *testing.T) {
	assert.Equal(t, domain.X, game.WonX.Winner())
	assert.Equal(t, domain.O, game.WonO.Winner())
	assert.Equal(t, domain.Empty, game.Open.Winner())
	assert.Equal(t, domain.Empty, game.Draw.Winner())
}
