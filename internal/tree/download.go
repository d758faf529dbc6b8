package tree

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/tidwall/gjson"

	"github.com/alexjbarnes/remsync/internal/remarkable"
)

//go:generate mockgen -source=download.go -destination=mock_fetcher_test.go -package=tree

// Fetcher is the remote read surface the downloader needs. The device
// channel implements it; tests substitute a mock.
type Fetcher interface {
	// ReadFile returns a remote file's bytes. Missing files satisfy
	// errors.Is(err, fs.ErrNotExist).
	ReadFile(path string) ([]byte, error)

	// Exists reports whether a remote path exists.
	Exists(path string) (bool, error)
}

// Downloader walks a pull tree, creating local directories for folders
// and fetching document payloads, honoring the configured policy for
// files that already exist locally.
type Downloader struct {
	fetcher Fetcher
	dataDir string
	policy  PullPolicy
	logger  *slog.Logger
}

// NewDownloader returns a downloader reading payloads from the remote
// document store at dataDir.
func NewDownloader(fetcher Fetcher, dataDir string, policy PullPolicy, logger *slog.Logger) *Downloader {
	return &Downloader{fetcher: fetcher, dataDir: dataDir, policy: policy, logger: logger}
}

// Download materializes the node under the local directory dir. Folder
// directories are created idempotently; fetch failures are fatal,
// never silently skipped.
func (d *Downloader) Download(n *Node, dir string) error {
	if n.Kind == remarkable.KindFolder {
		sub := filepath.Join(dir, n.Name)
		if err := os.MkdirAll(sub, stagingDirPerm); err != nil {
			return fmt.Errorf("creating %s: %w", sub, err)
		}

		for _, child := range n.Children {
			if err := d.Download(child, sub); err != nil {
				return err
			}
		}

		return nil
	}

	local := filepath.Join(dir, n.Name)

	if _, err := os.Stat(local); err == nil {
		if d.policy == PullSkip {
			d.logger.Info("exists locally, skipping", slog.String("path", n.Path()))
			return nil
		}

		d.logger.Info("exists locally, overwriting", slog.String("path", n.Path()))
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", local, err)
	}

	ext, err := d.payloadExt(n)
	if err != nil {
		return err
	}

	if ext == "" {
		d.logger.Warn("no payload on device, skipping",
			slog.String("path", n.Path()),
			slog.String("id", n.ID),
		)

		return nil
	}

	data, err := d.fetcher.ReadFile(path.Join(d.dataDir, n.ID+"."+ext))
	if err != nil {
		return fmt.Errorf("fetching %s: %w", n.Path(), err)
	}

	if err := os.WriteFile(local, data, stagingFilePerm); err != nil {
		return fmt.Errorf("writing %s: %w", local, err)
	}

	d.logger.Info("downloaded",
		slog.String("path", n.Path()),
		slog.Int("bytes", len(data)),
	)

	return nil
}

// payloadExt determines a document's payload extension: the fileType
// recorded in its content blob when usable, otherwise probing the
// store for the known payload types. Empty means no payload exists,
// which is normal for notebooks created on the device.
func (d *Downloader) payloadExt(n *Node) (string, error) {
	raw, err := d.fetcher.ReadFile(path.Join(d.dataDir, n.ID+".content"))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("reading content blob for %s: %w", n.Path(), err)
	}

	if err == nil {
		if ft := gjson.GetBytes(raw, "fileType").String(); ft == "pdf" || ft == "epub" {
			return ft, nil
		}
	}

	for _, ext := range []string{"pdf", "epub"} {
		ok, err := d.fetcher.Exists(path.Join(d.dataDir, n.ID+"."+ext))
		if err != nil {
			return "", fmt.Errorf("probing payload for %s: %w", n.Path(), err)
		}

		if ok {
			return ext, nil
		}
	}

	return "", nil
}
