package e2e_test

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/alexjbarnes/remsync/internal/mcpserver"
	"github.com/alexjbarnes/remsync/internal/remarkable"
	"github.com/alexjbarnes/remsync/internal/tree"
)

// store is an on-disk stand-in for the device document store: the same
// flat file layout, addressed relative to one directory. It satisfies
// both the downloader's fetch surface and the MCP library's device
// surface.
type store struct {
	dir string
}

func newStore(t *testing.T) *store {
	t.Helper()

	return &store{dir: t.TempDir()}
}

func (s *store) FetchAllMetadata(_ context.Context) ([]*remarkable.Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	var records []*remarkable.Record
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".metadata") {
			continue
		}

		raw, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			return nil, err
		}

		rec, err := remarkable.ParseRecord(strings.TrimSuffix(name, ".metadata"), raw)
		if err != nil {
			return nil, err
		}

		records = append(records, rec)
	}

	return records, nil
}

func (s *store) ReadFile(p string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.dir, filepath.FromSlash(p)))
}

func (s *store) Exists(p string) (bool, error) {
	_, err := os.Stat(filepath.Join(s.dir, filepath.FromSlash(p)))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

func (s *store) DataDir() string { return "" }

func (s *store) index(t *testing.T) *remarkable.Index {
	t.Helper()

	records, err := s.FetchAllMetadata(context.Background())
	require.NoError(t, err)

	idx, err := remarkable.NewIndex(records)
	require.NoError(t, err)

	return idx
}

// ship copies rendered staging artifacts into the store the way the
// transfer channel would.
func (s *store) ship(t *testing.T, staging string) {
	t.Helper()

	err := filepath.WalkDir(staging, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(staging, p)
		if err != nil || rel == "." {
			return err
		}

		target := filepath.Join(s.dir, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}

		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}

		return os.WriteFile(target, data, 0o644)
	})
	require.NoError(t, err)
}

func (s *store) metadataCount(t *testing.T) int {
	t.Helper()

	entries, err := os.ReadDir(s.dir)
	require.NoError(t, err)

	count := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".metadata") {
			count++
		}
	}

	return count
}

// push runs the whole push pipeline against the store: build local
// trees under an optional destination anchor, prune exclusions,
// render, and ship. Returns the pushed roots for disposition checks.
func (s *store) push(t *testing.T, policy tree.PushPolicy, dest string, excludes []string, paths ...string) []*tree.Node {
	t.Helper()

	builder := tree.NewBuilder(s.index(t), policy, newLogger())

	var roots []*tree.Node
	root, anchor := builder.BuildAnchor(dest)

	for _, p := range paths {
		n, err := builder.BuildLocal(p, anchor)
		require.NoError(t, err)

		if n != nil && anchor == nil {
			roots = append(roots, n)
		}
	}

	if root != nil {
		roots = []*tree.Node{root}
	}

	if len(excludes) > 0 {
		exclusion, err := tree.NewExclusion(excludes)
		require.NoError(t, err)

		kept := roots[:0]
		for _, r := range roots {
			if !exclusion.Curb(r) {
				kept = append(kept, r)
			}
		}
		roots = kept
	}

	staging := t.TempDir()
	renderer := tree.NewRenderer(staging, newLogger())
	for _, r := range roots {
		require.NoError(t, renderer.Render(r))
	}

	s.ship(t, staging)

	return roots
}

// pull downloads a requested path from the store into dest.
func (s *store) pull(t *testing.T, request, dest string, policy tree.PullPolicy) {
	t.Helper()

	builder := tree.NewPullBuilder(s.index(t), newLogger())

	root, anchor, err := builder.ResolveAnchor(request)
	require.NoError(t, err)
	builder.Expand(anchor)

	dl := tree.NewDownloader(s, s.DataDir(), policy, newLogger())
	require.NoError(t, dl.Download(root, dest))
}

func newLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// seedLocal writes the given relative path to content mapping under a
// fresh temp dir and returns the dir.
func seedLocal(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()

	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}

	return dir
}

// startMCP serves the store's library over the streamable HTTP
// transport at /mcp, optionally guarded by a bearer token, mirroring
// the production server wiring.
func startMCP(t *testing.T, st *store, token string) *httptest.Server {
	t.Helper()

	lib := mcpserver.NewLibrary(st, newLogger())

	server := mcp.NewServer(&mcp.Implementation{Name: "remsync", Version: "e2e"}, nil)
	mcpserver.RegisterTools(server, lib)

	var handler http.Handler = mcp.NewStreamableHTTPHandler(
		func(*http.Request) *mcp.Server { return server },
		nil,
	)
	if token != "" {
		handler = mcpserver.RequireToken(token, handler)
	}

	mux := http.NewServeMux()
	mux.Handle("/mcp", handler)

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	return ts
}

// mcpSession connects an MCP client to the test server's endpoint.
func mcpSession(t *testing.T, ts *httptest.Server, token string) *mcp.ClientSession {
	t.Helper()

	httpClient := ts.Client()
	if token != "" {
		httpClient = &http.Client{
			Transport: &bearerTransport{token: token, base: ts.Client().Transport},
		}
	}

	transport := &mcp.StreamableClientTransport{
		Endpoint:             ts.URL + "/mcp",
		HTTPClient:           httpClient,
		DisableStandaloneSSE: true,
	}

	client := mcp.NewClient(&mcp.Implementation{Name: "e2e-test-client", Version: "e2e"}, nil)

	session, err := client.Connect(t.Context(), transport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })

	return session
}

// bearerTransport injects a bearer token into every request.
type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (b *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("Authorization", "Bearer "+b.token)

	return b.base.RoundTrip(r)
}
