package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexjbarnes/remsync/internal/output"
	"github.com/alexjbarnes/remsync/internal/remarkable"
	"github.com/alexjbarnes/remsync/internal/tree"
)

// Version may be set at build time via -ldflags "-X main.Version=...".
var Version = "dev"

// Exit codes, so scripts can tell failure classes apart.
const (
	exitFailure   = 1
	exitControl   = 2
	exitTransfer  = 3
	exitBadRemote = 4
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd.Version = Version

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		output.Error("%v", err)
		os.Exit(exitCode(err))
	}
}

// exitCode classifies an error into the exit status contract: control
// channel failures, transfer channel failures, and remote state the
// engine refuses to interpret each get their own code.
func exitCode(err error) int {
	if remarkable.IsControl(err) {
		return exitControl
	}

	if remarkable.IsTransfer(err) {
		return exitTransfer
	}

	var dup *remarkable.DuplicateRecordError
	if errors.As(err, &dup) {
		return exitBadRemote
	}

	var amb *tree.AmbiguityError
	if errors.As(err, &amb) {
		return exitBadRemote
	}

	return exitFailure
}
