package main

import (
	"os"

	"github.com/coverpilot/coverpilot/pkg/cmd"
)

func main() {
	command := cmd.NewCoverPilotCommand()
	if err := command.Execute(); err != nil {
		os.Exit(1)
	}
}
