package main

import (
	"os"

	"github.com/tunaaoguzhann/fixedwindow/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
