package main

import (
	"os"

	"github.com/aki/twig/internal/cli/commands"
	"github.com/aki/twig/internal/cli/ui"
)

func main() {
	if err := commands.Execute(); err != nil {
		ui.Error("%v", err)
		os.Exit(1)
	}
}
