package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/alexjbarnes/remsync/internal/remarkable"
	"github.com/alexjbarnes/remsync/internal/tree"
)

// Device is the slice of the control channel the library needs.
// Satisfied by *remarkable.Channel.
type Device interface {
	// FetchAllMetadata returns every metadata record in the store.
	FetchAllMetadata(ctx context.Context) ([]*remarkable.Record, error)

	// ReadFile returns a remote file's bytes. Missing files satisfy
	// errors.Is(err, fs.ErrNotExist).
	ReadFile(path string) ([]byte, error)

	// Exists reports whether a remote path exists.
	Exists(path string) (bool, error)

	// DataDir returns the remote document store directory.
	DataDir() string
}

// Library exposes the device document store to MCP tools. Every call
// works from a fresh snapshot, since the store can change between
// calls.
type Library struct {
	device Device
	logger *slog.Logger
}

// NewLibrary returns a library backed by the given device channel.
func NewLibrary(device Device, logger *slog.Logger) *Library {
	return &Library{device: device, logger: logger}
}

// TreeEntry is one object in a tree listing.
type TreeEntry struct {
	Path string `json:"path"`
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// TreeResult is the output of library_tree.
type TreeResult struct {
	TotalObjects int         `json:"total_objects"`
	Entries      []TreeEntry `json:"entries"`
}

// StatResult is the output of library_stat.
type StatResult struct {
	Path         string `json:"path"`
	ID           string `json:"id"`
	Kind         string `json:"kind"`
	Parent       string `json:"parent,omitempty"`
	Pinned       bool   `json:"pinned"`
	Version      int    `json:"version"`
	LastModified string `json:"last_modified,omitempty"`
}

// PullResult is the output of document_pull.
type PullResult struct {
	LocalPath string `json:"local_path"`
	Documents int    `json:"documents"`
}

// Tree lists the store as flat path entries, whole store when folder
// is empty, otherwise scoped to the named subtree.
func (l *Library) Tree(ctx context.Context, folder string) (*TreeResult, error) {
	builder, err := l.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	var nodes []*tree.Node
	if folder == "" {
		nodes = builder.Roots()
	} else {
		_, anchor, err := builder.ResolveAnchor(folder)
		if err != nil {
			return nil, err
		}

		nodes = []*tree.Node{anchor}
	}

	result := &TreeResult{Entries: []TreeEntry{}}
	for _, n := range nodes {
		builder.Expand(n)
		n.Walk(func(node *tree.Node) {
			result.Entries = append(result.Entries, TreeEntry{
				Path: node.Path(),
				Kind: node.Kind.String(),
				ID:   node.ID,
			})
		})
	}
	result.TotalObjects = len(result.Entries)

	return result, nil
}

// Stat returns one object's metadata by path.
func (l *Library) Stat(ctx context.Context, objectPath string) (*StatResult, error) {
	builder, err := l.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	rec, err := builder.Find(objectPath)
	if err != nil {
		return nil, err
	}

	result := &StatResult{
		Path:    objectPath,
		ID:      rec.ID,
		Kind:    rec.Kind().String(),
		Parent:  rec.Parent,
		Pinned:  rec.Pinned,
		Version: rec.Version,
	}
	if ts := rec.LastModified.Time(); !ts.IsZero() {
		result.LastModified = ts.UTC().Format(time.RFC3339)
	}

	return result, nil
}

// Pull downloads the object at objectPath into dest, recursing into
// folders. Existing local files are skipped unless overwrite is set.
func (l *Library) Pull(ctx context.Context, objectPath, dest string, overwrite bool) (*PullResult, error) {
	builder, err := l.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	root, anchor, err := builder.ResolveAnchor(objectPath)
	if err != nil {
		return nil, err
	}
	builder.Expand(anchor)

	policy := tree.PullSkip
	if overwrite {
		policy = tree.PullOverwrite
	}

	if dest == "" {
		dest = "."
	}

	dl := tree.NewDownloader(l.device, l.device.DataDir(), policy, l.logger)
	if err := dl.Download(root, dest); err != nil {
		return nil, err
	}

	documents := 0
	root.Walk(func(n *tree.Node) {
		if n.Kind == remarkable.KindDocument {
			documents++
		}
	})

	return &PullResult{
		LocalPath: filepath.Join(dest, filepath.FromSlash(anchor.Path())),
		Documents: documents,
	}, nil
}

func (l *Library) snapshot(ctx context.Context) (*tree.PullBuilder, error) {
	records, err := l.device.FetchAllMetadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching store snapshot: %w", err)
	}

	idx, err := remarkable.NewIndex(records)
	if err != nil {
		return nil, err
	}

	return tree.NewPullBuilder(idx, l.logger), nil
}
