package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexjbarnes/remsync/internal/remarkable"
)

func TestResolveAnchorBareName(t *testing.T) {
	t.Parallel()

	idx := testIndex(t,
		folder("f1", "Books", ""),
		document("d1", "paper", "f1"),
		document("d2", "unique.epub", "f1"),
		document("d3", "everywhere", ""),
		document("d4", "everywhere", "f1"),
		document("d5", "dup", "pa"),
		document("d6", "dup", "pb"),
	)

	p := NewPullBuilder(idx, testLogger())

	t.Run("unique document gains pdf suffix", func(t *testing.T) {
		t.Parallel()

		root, anchor, err := p.ResolveAnchor("paper")
		require.NoError(t, err)

		assert.Equal(t, root, anchor)
		assert.Equal(t, "paper.pdf", anchor.Name)
		assert.Equal(t, "d1", anchor.ID)
		assert.Equal(t, remarkable.KindDocument, anchor.Kind)
	})

	t.Run("existing suffix kept", func(t *testing.T) {
		t.Parallel()

		_, anchor, err := p.ResolveAnchor("unique.epub")
		require.NoError(t, err)

		assert.Equal(t, "unique.epub", anchor.Name)
	})

	t.Run("folder name untouched", func(t *testing.T) {
		t.Parallel()

		_, anchor, err := p.ResolveAnchor("Books")
		require.NoError(t, err)

		assert.Equal(t, "Books", anchor.Name)
		assert.Equal(t, "f1", anchor.ID)
		assert.Equal(t, remarkable.KindFolder, anchor.Kind)
	})

	t.Run("root-level match breaks ties", func(t *testing.T) {
		t.Parallel()

		_, anchor, err := p.ResolveAnchor("everywhere")
		require.NoError(t, err)

		assert.Equal(t, "d3", anchor.ID)
	})

	t.Run("ambiguous without root match", func(t *testing.T) {
		t.Parallel()

		_, _, err := p.ResolveAnchor("dup")
		require.Error(t, err)

		var amb *AmbiguityError
		require.ErrorAs(t, err, &amb)
		assert.Equal(t, "dup", amb.Name)
		assert.Equal(t, 2, amb.Count)
	})

	t.Run("listed suffix resolves extensionless name", func(t *testing.T) {
		t.Parallel()

		// Listings show "paper" as "paper.pdf"; pasting that back
		// should still find it.
		_, anchor, err := p.ResolveAnchor("paper.pdf")
		require.NoError(t, err)
		assert.Equal(t, "d1", anchor.ID)
	})

	t.Run("missing name", func(t *testing.T) {
		t.Parallel()

		_, _, err := p.ResolveAnchor("nothing-here")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("empty path", func(t *testing.T) {
		t.Parallel()

		_, _, err := p.ResolveAnchor("")
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestResolveAnchorPath(t *testing.T) {
	t.Parallel()

	idx := testIndex(t,
		folder("f1", "Books", ""),
		folder("f2", "Papers", "f1"),
		document("d1", "deep.pdf", "f2"),
		document("d2", "NotAFolder", ""),
		document("d3", "draft", "f2"),
	)

	p := NewPullBuilder(idx, testLogger())

	t.Run("nested document", func(t *testing.T) {
		t.Parallel()

		root, anchor, err := p.ResolveAnchor("Books/Papers/deep.pdf")
		require.NoError(t, err)

		assert.Equal(t, "Books", root.Name)
		assert.Empty(t, root.ID)
		require.Len(t, root.Children, 1)

		assert.Equal(t, "Papers", root.Children[0].Name)
		assert.Empty(t, root.Children[0].ID)

		assert.Equal(t, "deep.pdf", anchor.Name)
		assert.Equal(t, "d1", anchor.ID)
		assert.Equal(t, "Books/Papers/deep.pdf", anchor.Path())
	})

	t.Run("nested folder", func(t *testing.T) {
		t.Parallel()

		_, anchor, err := p.ResolveAnchor("Books/Papers")
		require.NoError(t, err)

		assert.Equal(t, "f2", anchor.ID)
		assert.Equal(t, remarkable.KindFolder, anchor.Kind)
	})

	t.Run("missing leaf fails the path", func(t *testing.T) {
		t.Parallel()

		_, _, err := p.ResolveAnchor("Books/Papers/absent.pdf")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("missing intermediate fails the whole path", func(t *testing.T) {
		t.Parallel()

		_, _, err := p.ResolveAnchor("Archive/deep.pdf")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("document cannot be an intermediate", func(t *testing.T) {
		t.Parallel()

		_, _, err := p.ResolveAnchor("NotAFolder/deep.pdf")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("no partial matching against other containers", func(t *testing.T) {
		t.Parallel()

		// deep.pdf exists, but only under Books/Papers.
		_, _, err := p.ResolveAnchor("Books/deep.pdf")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("listed suffix on the final segment", func(t *testing.T) {
		t.Parallel()

		// "draft" lists as "Books/Papers/draft.pdf"; the suffixed form
		// resolves back to the same record.
		_, anchor, err := p.ResolveAnchor("Books/Papers/draft.pdf")
		require.NoError(t, err)
		assert.Equal(t, "d3", anchor.ID)
	})
}

func TestFind(t *testing.T) {
	t.Parallel()

	idx := testIndex(t,
		folder("f1", "Books", ""),
		document("d1", "paper.pdf", "f1"),
	)

	p := NewPullBuilder(idx, testLogger())

	t.Run("returns the record behind a path", func(t *testing.T) {
		t.Parallel()

		rec, err := p.Find("Books/paper.pdf")
		require.NoError(t, err)
		assert.Equal(t, "d1", rec.ID)
		assert.Equal(t, "paper.pdf", rec.VisibleName)
	})

	t.Run("folder by bare name", func(t *testing.T) {
		t.Parallel()

		rec, err := p.Find("Books")
		require.NoError(t, err)
		assert.Equal(t, "f1", rec.ID)
	})

	t.Run("unknown path", func(t *testing.T) {
		t.Parallel()

		_, err := p.Find("Books/missing.pdf")
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRoots(t *testing.T) {
	t.Parallel()

	idx := testIndex(t,
		folder("f1", "Books", ""),
		document("d1", "loose", ""),
		document("d2", "nested.pdf", "f1"),
	)

	p := NewPullBuilder(idx, testLogger())
	roots := p.Roots()

	require.Len(t, roots, 2)
	assert.Equal(t, "Books", roots[0].Name)
	assert.Equal(t, "loose.pdf", roots[1].Name)
}

func TestExpand(t *testing.T) {
	t.Parallel()

	idx := testIndex(t,
		folder("f1", "Books", ""),
		folder("f2", "Nested", "f1"),
		document("d1", "b.pdf", "f1"),
		document("d2", "a", "f2"),
	)

	p := NewPullBuilder(idx, testLogger())

	t.Run("folder subtree in name order", func(t *testing.T) {
		t.Parallel()

		_, anchor, err := p.ResolveAnchor("Books")
		require.NoError(t, err)

		p.Expand(anchor)

		require.Len(t, anchor.Children, 2)
		assert.Equal(t, "Nested", anchor.Children[0].Name)
		assert.Equal(t, "b.pdf", anchor.Children[1].Name)

		nested := anchor.Children[0]
		require.Len(t, nested.Children, 1)
		assert.Equal(t, "a.pdf", nested.Children[0].Name)
		assert.Equal(t, "d2", nested.Children[0].ID)
		assert.Equal(t, "Books/Nested/a.pdf", nested.Children[0].Path())
	})

	t.Run("document anchor stays a leaf", func(t *testing.T) {
		t.Parallel()

		_, anchor, err := p.ResolveAnchor("Books/b.pdf")
		require.NoError(t, err)

		p.Expand(anchor)
		assert.Empty(t, anchor.Children)
	})
}
