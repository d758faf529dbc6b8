package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/alexjbarnes/remsync/internal/config"
	"github.com/alexjbarnes/remsync/internal/logging"
	"github.com/alexjbarnes/remsync/internal/remarkable"
	"github.com/alexjbarnes/remsync/internal/state"
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "remsync",
	Short: "Push, pull, and tidy documents on a reMarkable tablet over ssh",
	Long: `remsync talks to a reMarkable tablet's document store over ssh: it
pushes local pdf/epub files and folders, pulls documents back out, lists
the library, and cleans up leftovers the device interface no longer shows.

Connection settings come from the environment (or a .env file); flags
override them per invocation.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		if remote, _ := cmd.Flags().GetString("remote"); remote != "" {
			cfg.Host = remote
		}

		verbose, _ := cmd.Flags().GetBool("verbose")
		logger = logging.NewLogger(cfg.Environment, verbose)

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("remote", "r", "", "remote address of the device (overrides REMARKABLE_HOST)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
}

// dial opens the device channel, prompting for the ssh password when no
// credential is configured and stdin is a terminal.
func dial(ctx context.Context) (*remarkable.Channel, error) {
	password := cfg.SSHPassword

	if cfg.SSHKey == "" && password == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintf(os.Stderr, "%s@%s's password: ", cfg.SSHUser, cfg.Host)

		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return nil, fmt.Errorf("reading password: %w", err)
		}

		password = string(raw)
	}

	return remarkable.Dial(ctx, remarkable.Options{
		Host:         cfg.Host,
		Port:         cfg.SSHPort,
		User:         cfg.SSHUser,
		Password:     password,
		KeyPath:      cfg.SSHKey,
		DataDir:      cfg.DataDir,
		FetchWorkers: cfg.FetchWorkers,
	}, logger)
}

// fetchIndex snapshots the remote store and indexes it. The raw
// snapshot is cached for offline listings; cache trouble never fails
// the run.
func fetchIndex(ctx context.Context, ch *remarkable.Channel) (*remarkable.Index, error) {
	records, err := ch.FetchAllMetadata(ctx)
	if err != nil {
		return nil, err
	}

	cacheSnapshot(records)

	return remarkable.NewIndex(records)
}

func cacheSnapshot(records []*remarkable.Record) {
	st, err := state.Load()
	if err != nil {
		logger.Warn("snapshot cache unavailable", slog.String("error", err.Error()))
		return
	}
	defer st.Close()

	if err := st.SaveSnapshot(cfg.Host, records); err != nil {
		logger.Warn("saving snapshot cache", slog.String("error", err.Error()))
	}
}
