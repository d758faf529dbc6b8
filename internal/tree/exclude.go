package tree

import (
	"fmt"
	"regexp"
)

// Exclusion prunes subtrees whose slash-joined path matches one of the
// configured patterns. A matched node is removed together with its
// entire subtree.
type Exclusion struct {
	patterns []*regexp.Regexp
}

// NewExclusion compiles the pattern list. Expressions are tested with
// match-from-start semantics against full node paths.
func NewExclusion(exprs []string) (*Exclusion, error) {
	e := &Exclusion{}

	for _, expr := range exprs {
		re, err := regexp.Compile("^(?:" + expr + ")")
		if err != nil {
			return nil, fmt.Errorf("compiling exclusion pattern %q: %w", expr, err)
		}

		e.patterns = append(e.patterns, re)
	}

	return e, nil
}

// Curb tests the node and filters its descendants, reporting true when
// the node itself is excluded. A surviving node keeps only surviving
// children; losing every child never removes the node itself.
func (e *Exclusion) Curb(n *Node) bool {
	if e == nil || len(e.patterns) == 0 {
		return false
	}

	p := n.Path()
	for _, re := range e.patterns {
		if re.MatchString(p) {
			return true
		}
	}

	kept := n.Children[:0]

	for _, child := range n.Children {
		if !e.Curb(child) {
			kept = append(kept, child)
		}
	}

	n.Children = kept

	return false
}
