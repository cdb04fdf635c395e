// Command api serves the run ledger over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/eshaffer321/preorder-gather/internal/cli"
	"github.com/eshaffer321/preorder-gather/internal/infrastructure/config"
)

func main() {
	flags := cli.ParseServeFlags()

	if err := config.LoadEnvFile(flags.EnvFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cfg := config.LoadOrEnv_WithPath(flags.ConfigPath)

	if err := cli.RunServe(cfg, flags); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
