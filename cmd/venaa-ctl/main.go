package main

import (
	"os"

	"github.com/Chicken/VenaaRauhassa/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
