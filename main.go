package main

import (
	"os"

	"github.com/itzzomkar/navyatra-engine/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
