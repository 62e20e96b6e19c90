// Package main implements the quizgen command, which generates assessment
// items from a work-unit manifest by fanning calls out across a pool of
// LLM credentials, and the supporting migrate and serve-batch commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// Exit codes.
const (
	exitOK          = 0
	exitFailure     = 1
	exitUsage       = 2
	exitInterrupted = 130
)

// errInterrupted is returned when a run stopped on a signal with units left.
var errInterrupted = errors.New("run interrupted")

// errUsage marks command-line errors.
var errUsage = errors.New("usage error")

const usageText = `usage: quizgen <command> [flags]

commands:
  run          generate items for every unit in a manifest
  migrate      apply database migrations for the postgres checkpoint backend
  serve-batch  serve a batch endpoint backed by the configured generator
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(execute(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// execute dispatches a subcommand and maps its error to an exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usageText)
		return exitUsage
	}

	var err error
	switch args[0] {
	case "run":
		err = runCommand(ctx, args[1:], stdout, stderr)
	case "migrate":
		err = migrateCommand(ctx, args[1:], stderr)
	case "serve-batch":
		err = serveBatchCommand(ctx, args[1:], stderr)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usageText)
		return exitOK
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usageText)
		return exitUsage
	}

	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errUsage):
		fmt.Fprintln(stderr, err)
		return exitUsage
	case errors.Is(err, errInterrupted):
		return exitInterrupted
	default:
		fmt.Fprintf(stderr, "quizgen: %v\n", err)
		return exitFailure
	}
}
