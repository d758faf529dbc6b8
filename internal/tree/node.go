// Package tree builds, resolves, filters, and materializes the object
// trees exchanged with the device: local files become push trees whose
// nodes are matched against the store snapshot, and remote subtrees
// become pull trees downloaded into local directories.
package tree

import (
	"strings"

	"github.com/alexjbarnes/remsync/internal/remarkable"
)

// Node is one position in a push or pull tree. Children are owned by
// their parent; the parent pointer is a non-owning back reference used
// for path reconstruction and parent-id lookups.
type Node struct {
	Name     string
	Kind     remarkable.Kind
	Parent   *Node
	Children []*Node

	// ID is the object's remote identifier: matched from an existing
	// record or freshly generated, depending on disposition. Empty for
	// pull-side destination folders, which have no remote identity.
	ID          string
	Disposition Disposition

	// Payload is the local source file and Ext its extension without
	// the dot. Documents only.
	Payload string
	Ext     string
}

// AddChild appends a child and wires its parent pointer.
func (n *Node) AddChild(child *Node) {
	child.Parent = n
	n.Children = append(n.Children, child)
}

// ParentID returns the remote parent identifier the node matches
// under: the parent node's id, or the root sentinel at the top level.
func (n *Node) ParentID() string {
	if n.Parent == nil {
		return remarkable.RootID
	}

	return n.Parent.ID
}

// Path returns the slash-joined path from the tree root down to this
// node. Used for exclusion matching and reporting.
func (n *Node) Path() string {
	if n.Parent == nil {
		return n.Name
	}

	var parts []string
	for cur := n; cur != nil; cur = cur.Parent {
		parts = append(parts, cur.Name)
	}

	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}

	return strings.Join(parts, "/")
}

// Walk visits the node and every descendant depth-first.
func (n *Node) Walk(visit func(*Node)) {
	visit(n)
	for _, child := range n.Children {
		child.Walk(visit)
	}
}
