package game

import "github.com/ninegrid/server/internal/domain"

// AnyBoard marks NextAllowedBoard as unconstrained.
const AnyBoard = -1

type SubBoard struct {
	Cells [9]domain.Symbol
	Owner domain.Symbol
}

// Full reports whether every cell is occupied.
func (b *SubBoard) Full() bool {
	for _, c := range b.Cells {
		if c == domain.Empty {
			return false
		}
	}
	return true
}

// Open reports whether the sub-board still accepts moves.
func (b *SubBoard) Open() bool {
	return b.Owner == domain.Empty && !b.Full()
}

// State is one room's game. Mutated exclusively through ApplyMove; callers
// serialize access (the directory holds the lock).
type State struct {
	Boards           [9]SubBoard
	CurrentPlayer    domain.Symbol
	NextAllowedBoard int
	Winner           domain.Symbol
}

func NewState() *State {
	return &State{
		CurrentPlayer:    domain.X,
		NextAllowedBoard: AnyBoard,
	}
}

// OpenBoards returns indices of sub-boards that are unowned and have at
// least one empty cell.
func (s *State) OpenBoards() []int {
	out := make([]int, 0, 9)
	for i := range s.Boards {
		if s.Boards[i].Open() {
			out = append(out, i)
		}
	}
	return out
}

// ApplyMove places symbol at (boardIndex, cellIndex). Checks fail fast in
// a fixed order; the first violation is returned and nothing is mutated.
func (s *State) ApplyMove(symbol domain.Symbol, boardIndex, cellIndex int) error {
	if s.Winner != domain.Empty {
		return domain.ErrGameOver
	}
	if symbol != s.CurrentPlayer {
		return domain.ErrWrongTurn
	}
	if boardIndex < 0 || boardIndex > 8 || cellIndex < 0 || cellIndex > 8 {
		return domain.ErrInvalidBoard
	}
	if s.NextAllowedBoard != AnyBoard && s.NextAllowedBoard != boardIndex {
		return domain.ErrBoardNotAllowed
	}
	board := &s.Boards[boardIndex]
	if board.Owner != domain.Empty {
		return domain.ErrBoardClosed
	}
	if board.Cells[cellIndex] != domain.Empty {
		return domain.ErrCellOccupied
	}

	board.Cells[cellIndex] = symbol

	if won := Evaluate(board.Cells).Winner(); won != domain.Empty {
		board.Owner = won
		// Fill all cells with the owner's mark so the sub-board renders
		// as fully claimed.
		for i := range board.Cells {
			board.Cells[i] = won
		}
	}

	var owners [9]domain.Symbol
	for i := range s.Boards {
		owners[i] = s.Boards[i].Owner
	}
	if won := EvaluateMeta(owners).Winner(); won != domain.Empty {
		s.Winner = won
	}

	// The cell played points at the next board, unless that board is
	// already decided or full.
	if s.Boards[cellIndex].Open() {
		s.NextAllowedBoard = cellIndex
	} else {
		s.NextAllowedBoard = AnyBoard
	}

	s.CurrentPlayer = s.CurrentPlayer.Other()
	return nil
}
