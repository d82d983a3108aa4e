package testutil

import (
	"io"

	"github.com/dtroode/fintrack-server/internal/logger"
)

// MakeNoopLogger returns a logger that discards everything, debug included.
func MakeNoopLogger() *logger.Logger {
	return logger.NewWithWriter(io.Discard, -4, "text")
}
