package main

import (
	"os"

	"github.com/avatarctic/offline-sync/cmd/offlinectl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
