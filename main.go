package main

import (
	"os"

	"github.com/agrodesk/agrodesk/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
