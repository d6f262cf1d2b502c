package main

import (
	"os"

	"github.com/umbralabs/umbra/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
