package core

import "errors"

var (
	ErrInvalidPlayer   = errors.New("invalid player ID")
	ErrInvalidGeometry = errors.New("invalid board geometry")
	ErrIllegalMove     = errors.New("illegal move")
	ErrGameOver        = errors.New("game is over")
)
