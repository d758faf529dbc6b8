package tree

import (
	"fmt"

	"github.com/alexjbarnes/remsync/internal/remarkable"
)

// Disposition is the decided action for a node: create it fresh, leave
// the matched object alone, or overwrite the matched object in full or
// payload only. The renderer performs I/O strictly from dispositions.
type Disposition int

const (
	// DispositionNew creates the object under a fresh identifier.
	DispositionNew Disposition = iota

	// DispositionReused leaves the matched object untouched. No
	// artifact is emitted for the node.
	DispositionReused

	// DispositionModified overwrites the matched object in place:
	// metadata, content, and payload are all re-rendered under the
	// existing identifier.
	DispositionModified

	// DispositionModifiedPayloadOnly replaces just the payload file,
	// keeping remote metadata, notes, and reading position intact.
	DispositionModifiedPayloadOnly
)

func (d Disposition) String() string {
	switch d {
	case DispositionNew:
		return "new"
	case DispositionReused:
		return "reused"
	case DispositionModified:
		return "modified"
	case DispositionModifiedPayloadOnly:
		return "modified-payload-only"
	default:
		return fmt.Sprintf("Disposition(%d)", int(d))
	}
}

// PushPolicy controls what happens when a pushed document already
// occupies its (name, parent) slot on the device.
type PushPolicy int

const (
	// PushDuplicate ignores the match and creates a same-named sibling
	// under a fresh identifier.
	PushDuplicate PushPolicy = iota

	// PushSkip reuses the existing object and uploads nothing.
	PushSkip

	// PushOverwrite re-renders metadata and payload under the existing
	// identifier.
	PushOverwrite

	// PushDocOnly replaces only the payload file, preserving notes and
	// annotations attached to the existing object.
	PushDocOnly
)

func (p PushPolicy) String() string {
	switch p {
	case PushDuplicate:
		return "duplicate"
	case PushSkip:
		return "skip"
	case PushOverwrite:
		return "overwrite"
	case PushDocOnly:
		return "doconly"
	default:
		return fmt.Sprintf("PushPolicy(%d)", int(p))
	}
}

// ParsePushPolicy maps an --on-existing flag value onto a policy.
func ParsePushPolicy(s string) (PushPolicy, error) {
	switch s {
	case "duplicate":
		return PushDuplicate, nil
	case "skip":
		return PushSkip, nil
	case "overwrite":
		return PushOverwrite, nil
	case "doconly":
		return PushDocOnly, nil
	default:
		return 0, fmt.Errorf("unknown push policy %q (want skip, duplicate, overwrite, or doconly)", s)
	}
}

// PullPolicy controls what happens when a downloaded document's local
// file already exists.
type PullPolicy int

const (
	// PullSkip keeps the local file and skips the download.
	PullSkip PullPolicy = iota

	// PullOverwrite replaces the local file.
	PullOverwrite
)

func (p PullPolicy) String() string {
	switch p {
	case PullSkip:
		return "skip"
	case PullOverwrite:
		return "overwrite"
	default:
		return fmt.Sprintf("PullPolicy(%d)", int(p))
	}
}

// ParsePullPolicy maps an --on-existing flag value onto a policy.
func ParsePullPolicy(s string) (PullPolicy, error) {
	switch s {
	case "skip":
		return PullSkip, nil
	case "overwrite":
		return PullOverwrite, nil
	default:
		return 0, fmt.Errorf("unknown pull policy %q (want skip or overwrite)", s)
	}
}

// Resolve decides a push node's disposition from whether a same-kind
// record occupies its (name, parent) slot. Pure decision logic with no
// I/O; the builder assigns identifiers from the result.
func Resolve(kind remarkable.Kind, matched bool, policy PushPolicy) Disposition {
	// Step 1: a free slot always means a fresh object.
	if !matched {
		return DispositionNew
	}

	// Step 2: folders are containers, never duplicated or overwritten.
	// A matched folder is reused regardless of policy.
	if kind == remarkable.KindFolder {
		return DispositionReused
	}

	// Step 3: the policy decides document conflicts.
	switch policy {
	case PushSkip:
		return DispositionReused
	case PushOverwrite:
		return DispositionModified
	case PushDocOnly:
		return DispositionModifiedPayloadOnly
	default:
		// PushDuplicate: treat the slot as free.
		return DispositionNew
	}
}
