package main

import (
	"os"

	"github.com/linguaforge/linguaforge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
