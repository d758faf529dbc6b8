package tree

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/alexjbarnes/remsync/internal/remarkable"
)

const (
	stagingDirPerm  = fs.FileMode(0o755)
	stagingFilePerm = fs.FileMode(0o644)
)

// emptyContent is the content blob paired with every fresh metadata
// record. The device fills it in on first open.
var emptyContent = []byte("{}")

// Renderer walks a resolved push tree and emits the staging artifacts
// each node's disposition calls for. Reused nodes emit nothing.
// Rendering never touches the device; shipping the staging directory
// is the channel's job.
type Renderer struct {
	staging string
	logger  *slog.Logger

	// Now stamps lastModified in rendered metadata. Overridable for
	// deterministic output.
	Now func() time.Time
}

// NewRenderer returns a renderer writing into the staging directory.
func NewRenderer(staging string, logger *slog.Logger) *Renderer {
	return &Renderer{staging: staging, logger: logger, Now: time.Now}
}

// Render emits the node's artifacts and recurses into its children.
func (r *Renderer) Render(n *Node) error {
	switch n.Disposition {
	case DispositionReused:
		// Already on the device, leave it alone.

	case DispositionModifiedPayloadOnly:
		if err := r.copyPayload(n); err != nil {
			return err
		}

		r.logger.Info("rendered payload only",
			slog.String("path", n.Path()),
			slog.String("id", n.ID),
		)

	case DispositionNew, DispositionModified:
		if err := r.renderObject(n); err != nil {
			return err
		}

		r.logger.Info("rendered",
			slog.String("path", n.Path()),
			slog.String("id", n.ID),
			slog.String("disposition", n.Disposition.String()),
		)
	}

	for _, child := range n.Children {
		if err := r.Render(child); err != nil {
			return err
		}
	}

	return nil
}

// renderObject writes the metadata and content blobs and, for
// documents, the payload copy plus the empty page and thumbnail
// directories the device expects alongside it.
func (r *Renderer) renderObject(n *Node) error {
	meta, err := remarkable.MarshalRecord(n.Kind, n.Name, n.ParentID(), r.Now())
	if err != nil {
		return err
	}

	if err := os.WriteFile(filepath.Join(r.staging, n.ID+".metadata"), meta, stagingFilePerm); err != nil {
		return fmt.Errorf("writing metadata for %s: %w", n.Path(), err)
	}

	if err := os.WriteFile(filepath.Join(r.staging, n.ID+".content"), emptyContent, stagingFilePerm); err != nil {
		return fmt.Errorf("writing content for %s: %w", n.Path(), err)
	}

	if n.Kind != remarkable.KindDocument {
		return nil
	}

	if err := os.MkdirAll(filepath.Join(r.staging, n.ID), stagingDirPerm); err != nil {
		return fmt.Errorf("creating page directory for %s: %w", n.Path(), err)
	}

	if err := os.MkdirAll(filepath.Join(r.staging, n.ID+".thumbnails"), stagingDirPerm); err != nil {
		return fmt.Errorf("creating thumbnail directory for %s: %w", n.Path(), err)
	}

	return r.copyPayload(n)
}

func (r *Renderer) copyPayload(n *Node) error {
	src, err := os.Open(n.Payload)
	if err != nil {
		return fmt.Errorf("opening payload for %s: %w", n.Path(), err)
	}
	defer src.Close()

	dst, err := os.OpenFile(
		filepath.Join(r.staging, n.ID+"."+n.Ext),
		os.O_WRONLY|os.O_CREATE|os.O_TRUNC,
		stagingFilePerm,
	)
	if err != nil {
		return fmt.Errorf("creating payload copy for %s: %w", n.Path(), err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("copying payload for %s: %w", n.Path(), err)
	}

	return dst.Close()
}
