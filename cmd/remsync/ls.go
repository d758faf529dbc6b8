package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexjbarnes/remsync/internal/output"
	"github.com/alexjbarnes/remsync/internal/remarkable"
	"github.com/alexjbarnes/remsync/internal/state"
	"github.com/alexjbarnes/remsync/internal/tree"
)

var lsCmd = &cobra.Command{
	Use:   "ls [folder]",
	Short: "List the device library",
	Long: `Prints the device library as a tree, whole or scoped to one folder
path. --cached lists the snapshot left behind by the last connected
command instead of talking to the device.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cached, _ := cmd.Flags().GetBool("cached")

		var idx *remarkable.Index

		if cached {
			st, err := state.Load()
			if err != nil {
				return err
			}
			defer st.Close()

			records, fetchedAt, err := st.Snapshot(cfg.Host)
			if err != nil {
				return err
			}

			if fetchedAt.IsZero() {
				return fmt.Errorf("no cached snapshot for %s, run a connected command first", cfg.Host)
			}

			output.Subtle("snapshot of %s from %s", cfg.Host, fetchedAt.Local().Format(time.RFC822))

			idx, err = remarkable.NewIndex(records)
			if err != nil {
				return err
			}
		} else {
			ch, err := dial(ctx)
			if err != nil {
				return err
			}
			defer ch.Close()

			idx, err = fetchIndex(ctx, ch)
			if err != nil {
				return err
			}
		}

		builder := tree.NewPullBuilder(idx, logger)

		var roots []*tree.Node
		if len(args) == 1 {
			_, anchor, err := builder.ResolveAnchor(args[0])
			if err != nil {
				return err
			}

			roots = []*tree.Node{anchor}
		} else {
			roots = builder.Roots()
		}

		for _, r := range roots {
			builder.Expand(r)
			fmt.Print(output.Tree(r))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)

	lsCmd.Flags().Bool("cached", false, "list the last fetched snapshot without connecting")
}
