package test

import (
	"os"
	"testing"

	"github.com/aki/twig/internal/cli/commands"
)

// envRunCLI makes the test binary behave as the twig CLI. Cleanup hooks
// re-execute os.Executable, which during tests is this binary.
const envRunCLI = "TWIG_TEST_RUN_CLI"

func TestMain(m *testing.M) {
	if os.Getenv(envRunCLI) == "1" {
		if err := commands.Execute(); err != nil {
			os.Exit(1)
		}
		os.Exit(0)
	}
	os.Exit(m.Run())
}
