package repl

import "errors"

// Sentinel errors.
var (
	ErrOutOfBounds  = errors.New("index out of range")
	ErrEditDeclined = errors.New("decline edit")
	ErrNoTerminal   = errors.New("input() needs the terminal; run the block again to answer it")
	ErrInterrupted  = errors.New("interrupted")
)
