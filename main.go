// Package main is the entry point for the Argus correlation service.
package main

import (
	"context"
	"fmt"
	"os"

	"argus/bootstrap"
	"argus/cmd"
)

// run initializes and starts the correlation service.
func run() error {
	ctx := context.Background()

	app, err := bootstrap.NewApp(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	app.Start()
	app.WaitForShutdown()
	app.Shutdown()
	return nil
}

func main() {
	// CLI subcommands run without the server.
	if len(os.Args) > 1 && (os.Args[1] == "rules" || os.Args[1] == "run") {
		sub := os.Args[1]
		os.Args = append([]string{os.Args[0]}, os.Args[2:]...)

		var err error
		switch sub {
		case "rules":
			err = cmd.NewRulesCmd().Execute()
		case "run":
			err = cmd.NewRunCmd().Execute()
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
