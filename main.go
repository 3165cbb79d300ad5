package main

import (
	"os"

	"github.com/gregLibert/sim-card/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
