package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alexjbarnes/remsync/internal/output"
	"github.com/alexjbarnes/remsync/internal/remarkable"
	"github.com/alexjbarnes/remsync/internal/tree"
)

var signCmd = &cobra.Command{
	Use:   "sign [documents]",
	Short: "Relay documents over the device for signing",
	Long: `Pushes copies of the given documents to the device root under a
sign_ prefix, waits while you sign them on the device, then pulls the
signed copies back as <name>_signed.pdf and removes the relay copies
from the device.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		ch, err := dial(ctx)
		if err != nil {
			return err
		}
		defer ch.Close()

		prep, err := os.MkdirTemp("", "remsync-sign-")
		if err != nil {
			return fmt.Errorf("creating relay dir: %w", err)
		}
		defer os.RemoveAll(prep)

		var targets []string
		for _, arg := range args {
			name := "sign_" + filepath.Base(arg)
			if err := copyFile(arg, filepath.Join(prep, name)); err != nil {
				return fmt.Errorf("staging %s: %w", arg, err)
			}

			targets = append(targets, name)
		}

		idx, err := fetchIndex(ctx, ch)
		if err != nil {
			return err
		}

		builder := tree.NewBuilder(idx, tree.PushDuplicate, logger)

		var roots []*tree.Node
		for _, name := range targets {
			n, err := builder.BuildLocal(filepath.Join(prep, name), nil)
			if err != nil {
				return err
			}

			if n != nil {
				roots = append(roots, n)
			}
		}

		if len(roots) == 0 {
			output.Info("Nothing to sign, no supported documents given.")
			return nil
		}

		staging, err := os.MkdirTemp("", "remsync-")
		if err != nil {
			return fmt.Errorf("creating staging dir: %w", err)
		}
		defer os.RemoveAll(staging)

		renderer := tree.NewRenderer(staging, logger)
		for _, r := range roots {
			if err := renderer.Render(r); err != nil {
				return err
			}
		}

		if err := ch.Ship(ctx, staging); err != nil {
			return err
		}

		if err := ch.Restart(); err != nil {
			return err
		}

		// The relay copies have served their purpose; pulling back into
		// the same directory must not find them there.
		for _, name := range targets {
			if err := os.Remove(filepath.Join(prep, name)); err != nil {
				return err
			}
		}

		fmt.Print("Now sign all documents and press enter once you're done.")
		waitEnter()

		// The store changed while we waited, work from a fresh snapshot.
		idx, err = fetchIndex(ctx, ch)
		if err != nil {
			return err
		}

		pb := tree.NewPullBuilder(idx, logger)
		dl := tree.NewDownloader(ch, ch.DataDir(), tree.PullOverwrite, logger)

		for _, name := range targets {
			root, anchor, err := pb.ResolveAnchor(name)
			if errors.Is(err, tree.ErrNotFound) {
				output.Warning("%s not found on the device, skipping", name)
				continue
			}
			if err != nil {
				return err
			}

			pb.Expand(anchor)

			if err := dl.Download(root, prep); err != nil {
				return err
			}

			base := strings.TrimPrefix(name, "sign_")
			signed := strings.TrimSuffix(base, filepath.Ext(base)) + "_signed.pdf"

			if err := moveLocal(filepath.Join(prep, root.Name), signed); err != nil {
				return fmt.Errorf("placing %s: %w", signed, err)
			}

			output.Success("Signed copy written to %s", signed)
		}

		entries, err := ch.ListDataDir()
		if err != nil {
			return err
		}

		for _, name := range targets {
			rec := idx.ByNameAndParent(name, remarkable.RootID)
			if rec == nil {
				output.Warning("%s was not found on the device, unable to clean it up", name)
				continue
			}

			for _, entry := range entries {
				if strings.HasPrefix(entry, rec.ID) {
					if err := ch.RemoveTree(path.Join(ch.DataDir(), entry)); err != nil {
						return err
					}
				}
			}
		}

		if err := ch.Restart(); err != nil {
			return err
		}

		output.Info("All documents processed, have fun with your remaining paperwork.")

		return nil
	},
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}

// moveLocal renames src to dst, copying when the rename crosses
// filesystems.
func moveLocal(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	if err := copyFile(src, dst); err != nil {
		return err
	}

	return os.Remove(src)
}

func waitEnter() {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Scan()
}

func init() {
	rootCmd.AddCommand(signCmd)
}
