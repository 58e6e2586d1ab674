// Package main is the entry point for the sprout CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/runoshun/git-sprout/internal/app"
	"github.com/runoshun/git-sprout/internal/cli"
)

// version is set at build time using -ldflags.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(exitCode(err))
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	container, err := app.New(cwd, stderr)
	if err != nil {
		// Help and version still work without a usable data directory
		if canRunWithoutContainer(args) {
			root := cli.NewRootCommand(nil, version)
			root.SetArgs(args)
			return root.ExecuteContext(ctx)
		}
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer func() {
		if cerr := container.Close(); cerr != nil {
			container.Logger.Warn("close", "error", cerr)
		}
	}()

	root := cli.NewRootCommand(container, version)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func canRunWithoutContainer(args []string) bool {
	if len(args) == 0 {
		return true
	}
	if args[0] == "help" {
		return true
	}
	for _, arg := range args {
		switch arg {
		case "--version", "-v", "--help", "-h":
			return true
		}
	}
	return false
}

// exitCode maps an error to the process exit status. Interrupted runs exit with 130.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return 130
	default:
		return 1
	}
}
