package main

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alexjbarnes/remsync/internal/output"
	"github.com/alexjbarnes/remsync/internal/remarkable"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove deleted and orphaned files from the device store",
	Long: `Scans the device's document store for leftovers the interface no
longer shows: records still flagged as deleted, and files whose stem has
no metadata record at all. Each class is confirmed once before removal.

Orphaned stems that would sweep up files of other documents are left
alone and reported for manual review.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		dryRun, _ := cmd.Flags().GetBool("dry-run")
		yes, _ := cmd.Flags().GetBool("yes")

		ch, err := dial(ctx)
		if err != nil {
			return err
		}
		defer ch.Close()

		records, err := ch.FetchAllMetadata(ctx)
		if err != nil {
			return err
		}

		entries, err := ch.ListDataDir()
		if err != nil {
			return err
		}

		plan := remarkable.BuildCleanPlan(records, entries)

		if len(plan.DeletedIDs) == 0 {
			output.Info("No deleted files found.")
		} else if yes || confirm(fmt.Sprintf("Clean up %d deleted files?", len(plan.DeletedIDs))) {
			if err := removeStems(ch, plan, plan.DeletedIDs, dryRun); err != nil {
				return err
			}
		}

		if len(plan.OrphanStems) == 0 && len(plan.AmbiguousStems) == 0 {
			output.Info("No orphaned files found.")
			return nil
		}

		for _, stem := range plan.AmbiguousStems {
			output.Warning("%s* has no metadata, but matches more than one document or file. Ignoring this, you will have to check this manually.",
				path.Join(ch.DataDir(), stem))
		}

		if len(plan.OrphanStems) == 0 {
			return nil
		}

		if yes || confirm(fmt.Sprintf("Clear %d orphaned files that don't have metadata associated with them?", len(plan.OrphanStems))) {
			if err := removeStems(ch, plan, plan.OrphanStems, dryRun); err != nil {
				return err
			}
		}

		return nil
	},
}

// removeStems removes every store entry covered by the given stems, or
// just prints them on a dry run.
func removeStems(ch *remarkable.Channel, plan *remarkable.CleanPlan, stems []string, dryRun bool) error {
	for _, stem := range stems {
		for _, entry := range plan.Removals(stem) {
			p := path.Join(ch.DataDir(), entry)

			if dryRun {
				output.Info("would remove %s", p)
				continue
			}

			if err := ch.RemoveTree(p); err != nil {
				return err
			}

			logger.Debug("removed " + p)
		}
	}

	return nil
}

// confirm asks on stdin, defaulting to yes on empty input.
func confirm(prompt string) bool {
	fmt.Printf("%s [Y/n] ", prompt)

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return false
	}

	answer := strings.TrimSpace(scanner.Text())

	return answer == "" || answer == "y" || answer == "Y"
}

func init() {
	rootCmd.AddCommand(cleanCmd)

	cleanCmd.Flags().BoolP("dry-run", "n", false, "show what would be removed without touching the device")
	cleanCmd.Flags().BoolP("yes", "y", false, "skip confirmation prompts")
}
