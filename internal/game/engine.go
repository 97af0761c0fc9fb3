// Package game implements the ultimate tic-tac-toe rules: line evaluation
// for a single 3x3 grid and the move state machine across the nine
// sub-boards. Everything here is pure and transport-free.
package game

import "github.com/ninegrid/server/internal/domain"

// Outcome of evaluating a 3x3 grid.
type Outcome int

const (
	Open Outcome = iota
	WonX
	WonO
	Draw
)

// Winner returns the symbol behind a won outcome, Empty otherwise.
func (o Outcome) Winner() domain.Symbol {
	switch o {
	case WonX:
		return domain.X
	case WonO:
		return domain.O
	}
	return domain.Empty
}

var lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// Evaluate checks the 8 standard triples over a 3x3 grid.
func Evaluate(cells [9]domain.Symbol) Outcome {
	for _, l := range lines {
		if cells[l[0]] != domain.Empty && cells[l[0]] == cells[l[1]] && cells[l[1]] == cells[l[2]] {
			if cells[l[0]] == domain.X {
				return WonX
			}
			return WonO
		}
	}
	for _, c := range cells {
		if c == domain.Empty {
			return Open
		}
	}
	return Draw
}

// EvaluateMeta applies the same algorithm to the nine sub-board owners.
func EvaluateMeta(owners [9]domain.Symbol) Outcome {
	return Evaluate(owners)
}
