package tree

import (
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/alexjbarnes/remsync/internal/remarkable"
)

// ErrNotFound reports a requested pull path with no matching visible
// record. Callers log it and continue with their remaining paths.
var ErrNotFound = errors.New("no matching remote object")

// AmbiguityError reports a bare document name matching records in
// several locations with no unique root-level match to break the tie.
type AmbiguityError struct {
	Name  string
	Count int
}

func (e *AmbiguityError) Error() string {
	return fmt.Sprintf("%q matches %d remote objects in different locations, qualify it with a folder path",
		e.Name, e.Count)
}

// PullBuilder constructs pull trees from the snapshot index.
type PullBuilder struct {
	idx    *remarkable.Index
	logger *slog.Logger
}

// NewPullBuilder returns a pull tree builder over one snapshot index.
func NewPullBuilder(idx *remarkable.Index, logger *slog.Logger) *PullBuilder {
	return &PullBuilder{idx: idx, logger: logger}
}

// ResolveAnchor resolves a requested slash-separated path to its remote
// object: root is the outermost node of the local destination chain and
// anchor the node bound to the matched record. A multi-segment path is
// walked from the root container one (name, parent) lookup per segment,
// and any failed segment fails the whole path with ErrNotFound. A bare
// name is looked up anywhere in the store, preferring a unique
// root-level match when several locations carry it.
func (p *PullBuilder) ResolveAnchor(requested string) (root, anchor *Node, err error) {
	segments := splitPath(requested)
	if len(segments) == 0 {
		return nil, nil, fmt.Errorf("%w: empty path", ErrNotFound)
	}

	if len(segments) == 1 {
		rec, err := p.lookupName(segments[0])
		if err != nil {
			return nil, nil, err
		}

		node := nodeFromRecord(rec)

		return node, node, nil
	}

	// Walk intermediate segments to pin down the final parent. The
	// nodes built for them are plain destination folders carrying no
	// remote identity of their own.
	parentID := remarkable.RootID

	for _, seg := range segments[:len(segments)-1] {
		rec := p.idx.ByNameAndParent(seg, parentID)
		if rec == nil || rec.Kind() != remarkable.KindFolder {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, requested)
		}

		node := &Node{Name: remarkable.NormalizeName(seg), Kind: remarkable.KindFolder}

		if anchor == nil {
			root = node
		} else {
			anchor.AddChild(node)
		}

		anchor = node
		parentID = rec.ID
	}

	last := segments[len(segments)-1]

	rec := p.idx.ByNameAndParent(last, parentID)
	if rec == nil {
		if base, ok := listedBase(last); ok {
			rec = p.idx.ByNameAndParent(base, parentID)
		}
	}

	if rec == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, requested)
	}

	node := nodeFromRecord(rec)
	anchor.AddChild(node)

	return root, node, nil
}

// lookupName finds a bare name anywhere in the store. One match wins
// outright; several fall back to a unique root-level record.
func (p *PullBuilder) lookupName(name string) (*remarkable.Record, error) {
	matches := p.idx.ByName(name)
	if len(matches) == 0 {
		if base, ok := listedBase(name); ok {
			matches = p.idx.ByName(base)
			name = base
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	case 1:
		return matches[0], nil
	}

	if rec := p.idx.ByNameAndParent(name, remarkable.RootID); rec != nil {
		p.logger.Debug("ambiguous name resolved to root-level object",
			slog.String("name", name),
			slog.Int("matches", len(matches)),
		)

		return rec, nil
	}

	return nil, &AmbiguityError{Name: name, Count: len(matches)}
}

// Find resolves a requested path to its record without building a
// destination chain. Same resolution rules as ResolveAnchor.
func (p *PullBuilder) Find(requested string) (*remarkable.Record, error) {
	_, anchor, err := p.ResolveAnchor(requested)
	if err != nil {
		return nil, err
	}

	return p.idx.ByID(anchor.ID), nil
}

// Roots returns a node per top-level object, in display-name order.
func (p *PullBuilder) Roots() []*Node {
	var roots []*Node

	for _, rec := range p.idx.ByParent(remarkable.RootID) {
		roots = append(roots, nodeFromRecord(rec))
	}

	return roots
}

// Expand populates a folder anchor with the full remote subtree below
// it, children in display-name order.
func (p *PullBuilder) Expand(n *Node) {
	if n.Kind != remarkable.KindFolder {
		return
	}

	for _, rec := range p.idx.ByParent(n.ID) {
		child := nodeFromRecord(rec)
		n.AddChild(child)
		p.Expand(child)
	}
}

// nodeFromRecord builds the local node for a remote record. Documents
// get a filename extension appended when the display name lacks one,
// since display names rarely carry extensions.
func nodeFromRecord(rec *remarkable.Record) *Node {
	name := remarkable.NormalizeName(rec.VisibleName)
	kind := rec.Kind()

	if kind == remarkable.KindDocument {
		name = suffixedName(name)
	}

	return &Node{Name: name, Kind: kind, ID: rec.ID}
}

// suffixedName appends ".pdf" to a display name without a payload
// extension. Names already ending in a supported extension are kept.
func suffixedName(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if _, ok := supportedExts[ext]; ok {
		return name
	}

	return name + ".pdf"
}

// listedBase undoes suffixedName: listings append ".pdf" to
// extensionless display names, so a path quoted from a listing may
// carry a suffix the store never saw.
func listedBase(name string) (string, bool) {
	base, ok := strings.CutSuffix(name, ".pdf")
	if !ok || base == "" {
		return "", false
	}

	return base, true
}

func splitPath(p string) []string {
	var segments []string

	for _, seg := range strings.Split(p, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}

	return segments
}
