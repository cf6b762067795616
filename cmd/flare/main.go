package main

import (
	"os"

	"github.com/moolen/flare/cmd/flare/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
