package main

import (
	"fmt"
	"os"

	"ocrd/internal/config"
)

func main() {
	cfg := config.Config{}.WithDefaults()
	root := buildRootCmd(&cfg)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
