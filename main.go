package main

import (
	"os"

	"github.com/sergev/fluxkit/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
