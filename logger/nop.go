package logger

import (
	"io"

	"github.com/rs/zerolog"
)

// Nop returns a Logger that discards every event.
func Nop() Logger {
	l := zerolog.New(io.Discard).Level(zerolog.Disabled)
	return &ZeroLogger{zlog: &l}
}
