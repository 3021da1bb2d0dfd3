package main

import (
	"os"

	"github.com/leefowlercu/batch-monitor/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
