package tree

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alexjbarnes/remsync/internal/remarkable"
)

// supportedExts are the payload types the device can display.
var supportedExts = map[string]struct{}{
	"pdf":  {},
	"epub": {},
}

// Builder constructs push trees. Every node resolves its identifier
// and disposition against the snapshot index at construction time,
// strictly top-down: a folder's id is fixed before any child is built,
// because children match under the parent's id.
type Builder struct {
	idx    *remarkable.Index
	policy PushPolicy
	logger *slog.Logger
}

// NewBuilder returns a push tree builder over one snapshot index.
func NewBuilder(idx *remarkable.Index, policy PushPolicy, logger *slog.Logger) *Builder {
	return &Builder{idx: idx, policy: policy, logger: logger}
}

// BuildAnchor turns a slash-separated destination like "Books/Papers"
// into a chain of folder nodes, resolved top-down, returning the
// chain's outermost node and its deepest folder, where pushed entries
// attach. An empty destination returns nil, nil: entries then attach
// at the device root.
func (b *Builder) BuildAnchor(dest string) (root, anchor *Node) {
	for _, seg := range strings.Split(dest, "/") {
		if seg == "" {
			continue
		}

		node := &Node{Name: remarkable.NormalizeName(seg), Kind: remarkable.KindFolder}

		if anchor == nil {
			root = node
		} else {
			anchor.AddChild(node)
		}

		b.resolve(node)
		anchor = node
	}

	return root, anchor
}

// BuildLocal mirrors a local file or directory into a node attached to
// parent (nil for a top-level push). Files with unsupported extensions
// are skipped with a warning and a nil node; siblings continue.
func (b *Builder) BuildLocal(localPath string, parent *Node) (*Node, error) {
	info, err := os.Stat(localPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", localPath, err)
	}

	name := remarkable.NormalizeName(filepath.Base(localPath))

	if !info.IsDir() {
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
		if _, ok := supportedExts[ext]; !ok {
			b.logger.Warn("skipping unsupported file type",
				slog.String("path", localPath),
			)

			return nil, nil
		}

		node := &Node{Name: name, Kind: remarkable.KindDocument, Payload: localPath, Ext: ext}
		if parent != nil {
			parent.AddChild(node)
		}

		b.resolve(node)

		return node, nil
	}

	node := &Node{Name: name, Kind: remarkable.KindFolder}
	if parent != nil {
		parent.AddChild(node)
	}

	b.resolve(node)

	entries, err := os.ReadDir(localPath)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", localPath, err)
	}

	for _, entry := range entries {
		if _, err := b.BuildLocal(filepath.Join(localPath, entry.Name()), node); err != nil {
			return nil, err
		}
	}

	return node, nil
}

// resolve seeds a node's identity from the snapshot: a same-kind
// record at (name, parent id) is a match, anything else means the slot
// is free. The policy turns the match into a disposition, which in
// turn decides whether the existing id is reused or a fresh one
// assigned.
func (b *Builder) resolve(n *Node) {
	rec := b.idx.ByNameAndParent(n.Name, n.ParentID())
	if rec != nil && rec.Kind() != n.Kind {
		// A folder may legally share a name with a document, so a
		// different-kind record is no match.
		rec = nil
	}

	n.Disposition = Resolve(n.Kind, rec != nil, b.policy)

	if n.Disposition == DispositionNew {
		n.ID = remarkable.NewID()
		return
	}

	n.ID = rec.ID
}
