package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/alexjbarnes/remsync/internal/output"
	"github.com/alexjbarnes/remsync/internal/tree"
)

var pullCmd = &cobra.Command{
	Use:   "pull [documents and folders]",
	Short: "Download documents from the device",
	Long: `Downloads documents out of the device's document store. A bare name
is found anywhere in the library; a slash-separated path pins down one
location and is recreated as directories under the destination. Folders
are downloaded recursively.

Paths that match nothing are reported and skipped; the remaining
arguments still run.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		policyName, _ := cmd.Flags().GetString("on-existing")
		policy, err := tree.ParsePullPolicy(policyName)
		if err != nil {
			return err
		}

		excludes, _ := cmd.Flags().GetStringArray("exclude")
		exclusion, err := tree.NewExclusion(append(cfg.Exclude, excludes...))
		if err != nil {
			return err
		}

		dest, _ := cmd.Flags().GetString("output")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		ch, err := dial(ctx)
		if err != nil {
			return err
		}
		defer ch.Close()

		idx, err := fetchIndex(ctx, ch)
		if err != nil {
			return err
		}

		builder := tree.NewPullBuilder(idx, logger)
		dl := tree.NewDownloader(ch, ch.DataDir(), policy, logger)

		for _, arg := range args {
			root, anchor, err := builder.ResolveAnchor(arg)
			if errors.Is(err, tree.ErrNotFound) {
				output.Warning("%s not found, skipping", arg)
				continue
			}
			if err != nil {
				return err
			}

			builder.Expand(anchor)

			if exclusion.Curb(root) {
				logger.Info("excluded", slog.String("path", root.Path()))
				continue
			}

			if dryRun {
				fmt.Print(output.Tree(root))
				fmt.Println()
				continue
			}

			if err := dl.Download(root, dest); err != nil {
				return err
			}
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(pullCmd)

	pullCmd.Flags().StringP("output", "o", ".", "local directory to download into")
	pullCmd.Flags().String("on-existing", "skip", "what to do when a local file already exists (skip, overwrite)")
	pullCmd.Flags().StringArray("exclude", nil, "regular expression matched against tree paths, pruning matches (repeatable)")
	pullCmd.Flags().Bool("dry-run", false, "show what would be downloaded without fetching anything")
}
