package test

import (
	"os"
	"sync"

	"github.com/aki/twig/internal/core/logger"
)

var (
	initOnce   sync.Once
	testLogger logger.Logger
)

// TestLogger returns a logger at warn level to match the CLI default
func TestLogger() logger.Logger {
	initOnce.Do(func() {
		testLogger = logger.New(logger.WithQuiet(), logger.WithOutput(os.Stderr))
	})
	return testLogger
}
