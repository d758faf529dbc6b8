package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alexjbarnes/remsync/internal/output"
	"github.com/alexjbarnes/remsync/internal/tree"
)

var pushCmd = &cobra.Command{
	Use:   "push [files and folders]",
	Short: "Upload local documents and folders to the device",
	Long: `Uploads pdf and epub files, or whole folder trees of them, into the
device's document store. Each object is matched against the store by
name and location; what happens on a match is governed by --on-existing.

With --output the uploads land under the named folder path, which is
created as needed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		policyName, _ := cmd.Flags().GetString("on-existing")
		policy, err := tree.ParsePushPolicy(policyName)
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
		renderOnly, _ := cmd.Flags().GetBool("render-only")
		stagingDir, _ := cmd.Flags().GetString("staging-dir")

		ch, err := dial(ctx)
		if err != nil {
			return err
		}
		defer ch.Close()

		idx, err := fetchIndex(ctx, ch)
		if err != nil {
			return err
		}

		builder := tree.NewBuilder(idx, policy, logger)

		var roots []*tree.Node
		root, anchor := builder.BuildAnchor(dest)

		for _, arg := range args {
			n, err := builder.BuildLocal(arg, anchor)
			if err != nil {
				return err
			}

			if n != nil && anchor == nil {
				roots = append(roots, n)
			}
		}

		if root != nil {
			roots = []*tree.Node{root}
		}

		kept := roots[:0]
		for _, r := range roots {
			if !exclusion.Curb(r) {
				kept = append(kept, r)
			}
		}
		roots = kept

		if dryRun {
			for _, r := range roots {
				fmt.Print(output.Tree(r))
				fmt.Println()
			}

			return nil
		}

		created := 0
		for _, r := range roots {
			r.Walk(func(n *tree.Node) {
				if n.Disposition != tree.DispositionReused {
					created++
				}
			})
		}

		if created == 0 {
			output.Info("Nothing to push, everything exists already.")
			return nil
		}

		staging := stagingDir
		if staging == "" {
			tmp, err := os.MkdirTemp("", "remsync-")
			if err != nil {
				return fmt.Errorf("creating staging dir: %w", err)
			}

			staging = tmp

			// Keep the artifacts around when they are the product.
			if !renderOnly {
				defer os.RemoveAll(staging)
			}
		}

		renderer := tree.NewRenderer(staging, logger)
		for _, r := range roots {
			if err := renderer.Render(r); err != nil {
				return err
			}
		}

		if renderOnly {
			output.Info(" --> Payload data can be found in %s", staging)
			return nil
		}

		if err := ch.Ship(ctx, staging); err != nil {
			return err
		}

		if err := ch.Restart(); err != nil {
			return err
		}

		output.Success("Pushed %d objects to %s", created, cfg.Host)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(pushCmd)

	pushCmd.Flags().StringP("output", "o", "", "device folder path to push into (created as needed)")
	pushCmd.Flags().String("on-existing", "duplicate", "what to do when an object already exists (skip, duplicate, overwrite, doconly)")
	pushCmd.Flags().StringArray("exclude", nil, "regular expression matched against tree paths, pruning matches (repeatable)")
	pushCmd.Flags().Bool("dry-run", false, "show the tree that would be created without rendering or shipping")
	pushCmd.Flags().Bool("render-only", false, "render artifacts into the staging dir, but don't ship them")
	pushCmd.Flags().String("staging-dir", "", "render into this directory instead of a temporary one")
}
