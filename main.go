package main

import (
	"os"

	"github.com/biromiro/swgnn/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
