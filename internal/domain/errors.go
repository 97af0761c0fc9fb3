package domain

import "errors"

// Validation errors surfaced verbatim to the requesting connection.
var (
	ErrGameOver        = errors.New("game already over")
	ErrWrongTurn       = errors.New("not your turn")
	ErrInvalidBoard    = errors.New("no such board or cell")
	ErrBoardNotAllowed = errors.New("move not allowed on this board")
	ErrBoardClosed     = errors.New("board already claimed")
	ErrCellOccupied    = errors.New("cell already occupied")

	ErrRoomNotFound = errors.New("room not found")
	ErrNotAPlayer   = errors.New("you are not a player")
	ErrSlotTaken    = errors.New("slot already taken")

	ErrNickInvalid = errors.New("nickname must be 2-20 characters")
	ErrNickTaken   = errors.New("nickname already taken")
)
