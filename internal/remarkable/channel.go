package remarkable

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/sync/errgroup"
)

const (
	// dialTimeout bounds the TCP connect and ssh handshake. The tablet
	// is normally one USB hop away, so failures should surface fast.
	dialTimeout = 5 * time.Second

	// defaultFetchWorkers bounds concurrent metadata reads during a
	// snapshot fetch.
	defaultFetchWorkers = 8
)

// restartCommand reloads the device UI so shipped documents appear.
const restartCommand = "systemctl restart xochitl"

// Options configures the connection to the device.
type Options struct {
	Host     string
	Port     int
	User     string
	Password string

	// KeyPath points at a private key file. When set it takes
	// precedence over Password.
	KeyPath string

	// DataDir is the document store location relative to the ssh
	// user's home directory.
	DataDir string

	// FetchWorkers bounds the concurrency of snapshot fetches.
	FetchWorkers int
}

// Channel is one ssh connection to the device plus an sftp session on
// top of it. The ssh side executes remote commands (the control
// channel), the sftp side moves bytes (the transfer channel). Errors
// carry the channel they belong to so callers can exit with the right
// status.
type Channel struct {
	client  *ssh.Client
	files   *sftp.Client
	dataDir string
	workers int
	logger  *slog.Logger
}

// Dial connects to the device. An unreachable or unauthenticated ssh
// endpoint is a ControlError; an unavailable sftp subsystem is a
// TransferError.
func Dial(ctx context.Context, opts Options, logger *slog.Logger) (*Channel, error) {
	auth, err := authMethods(opts)
	if err != nil {
		return nil, &ControlError{Op: "configuring auth", Err: err}
	}

	port := opts.Port
	if port == 0 {
		port = 22
	}

	user := opts.User
	if user == "" {
		user = "root"
	}

	dataDir := opts.DataDir
	if dataDir == "" {
		dataDir = DefaultDataDir
	}

	workers := opts.FetchWorkers
	if workers <= 0 {
		workers = defaultFetchWorkers
	}

	cfg := &ssh.ClientConfig{
		User: user,
		Auth: auth,
		// The tablet regenerates its host key on factory reset, so
		// there is no stable key to pin.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         dialTimeout,
	}

	addr := net.JoinHostPort(opts.Host, strconv.Itoa(port))

	conn, err := (&net.Dialer{Timeout: dialTimeout}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ControlError{Op: "dialing " + addr, Err: err}
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		conn.Close()
		return nil, &ControlError{Op: "ssh handshake with " + addr, Err: err}
	}

	client := ssh.NewClient(sshConn, chans, reqs)

	files, err := sftp.NewClient(client)
	if err != nil {
		client.Close()
		return nil, &TransferError{Op: "opening sftp subsystem", Err: err}
	}

	logger.Debug("device channel open",
		slog.String("addr", addr),
		slog.String("data_dir", dataDir),
	)

	return &Channel{
		client:  client,
		files:   files,
		dataDir: dataDir,
		workers: workers,
		logger:  logger,
	}, nil
}

func authMethods(opts Options) ([]ssh.AuthMethod, error) {
	if opts.KeyPath != "" {
		raw, err := os.ReadFile(opts.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("reading ssh key %s: %w", opts.KeyPath, err)
		}

		signer, err := ssh.ParsePrivateKey(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing ssh key %s: %w", opts.KeyPath, err)
		}

		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	}

	if opts.Password != "" {
		return []ssh.AuthMethod{ssh.Password(opts.Password)}, nil
	}

	return nil, errors.New("no ssh credentials configured")
}

// Close tears down both channels.
func (c *Channel) Close() error {
	if c.files != nil {
		c.files.Close()
	}

	return c.client.Close()
}

// DataDir returns the remote document store path.
func (c *Channel) DataDir() string {
	return c.dataDir
}

// FetchAllMetadata reads every metadata record in the store as one
// snapshot. Records that cannot be read or parsed are logged and
// dropped; the rest of the snapshot proceeds. Deleted records are
// included, visibility filtering is the index's concern.
func (c *Channel) FetchAllMetadata(ctx context.Context) ([]*Record, error) {
	entries, err := c.files.ReadDir(c.dataDir)
	if err != nil {
		return nil, &TransferError{Op: "listing", Path: c.dataDir, Err: err}
	}

	var ids []string

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".metadata") {
			continue
		}

		ids = append(ids, strings.TrimSuffix(name, ".metadata"))
	}

	records := make([]*Record, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			raw, err := c.readAll(path.Join(c.dataDir, id+".metadata"))
			if err != nil {
				c.logger.Warn("skipping unreadable metadata record",
					slog.String("id", id),
					slog.String("error", err.Error()),
				)

				return nil
			}

			rec, err := ParseRecord(id, raw)
			if err != nil {
				c.logger.Warn("skipping malformed metadata record",
					slog.String("id", id),
					slog.String("error", err.Error()),
				)

				return nil
			}

			records[i] = rec

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetching metadata snapshot: %w", err)
	}

	out := make([]*Record, 0, len(records))

	for _, rec := range records {
		if rec != nil {
			out = append(out, rec)
		}
	}

	c.logger.Debug("metadata snapshot fetched", slog.Int("records", len(out)))

	return out, nil
}

// ReadFile returns the contents of a remote path, relative to the ssh
// user's home directory. Missing files satisfy
// errors.Is(err, fs.ErrNotExist); other failures are TransferErrors.
func (c *Channel) ReadFile(p string) ([]byte, error) {
	data, err := c.readAll(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", fs.ErrNotExist, p)
		}

		return nil, &TransferError{Op: "reading", Path: p, Err: err}
	}

	return data, nil
}

func (c *Channel) readAll(p string) ([]byte, error) {
	f, err := c.files.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}

// MkdirAll creates a remote directory and any missing parents.
func (c *Channel) MkdirAll(p string) error {
	if p == "" || p == "." {
		return nil
	}

	if err := c.files.MkdirAll(p); err != nil {
		return &TransferError{Op: "creating directory", Path: p, Err: err}
	}

	return nil
}

// Exists reports whether a remote path exists.
func (c *Channel) Exists(p string) (bool, error) {
	if _, err := c.files.Stat(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err) {
			return false, nil
		}

		return false, &TransferError{Op: "checking", Path: p, Err: err}
	}

	return true, nil
}

// RemoveTree deletes a remote path recursively.
func (c *Channel) RemoveTree(p string) error {
	if err := c.files.RemoveAll(p); err != nil {
		return &TransferError{Op: "removing tree", Path: p, Err: err}
	}

	return nil
}

// ListDataDir returns the name of every entry in the document store,
// sorted. Directories are included: orphan page and thumbnail
// directories matter to cleanup.
func (c *Channel) ListDataDir() ([]string, error) {
	entries, err := c.files.ReadDir(c.dataDir)
	if err != nil {
		return nil, &TransferError{Op: "listing", Path: c.dataDir, Err: err}
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}

	sort.Strings(names)

	return names, nil
}

// Ship uploads the contents of a local staging directory into the
// document store. Directories are created as encountered so empty page
// and thumbnail placeholders survive the trip.
func (c *Channel) Ship(ctx context.Context, stagingDir string) error {
	return filepath.WalkDir(stagingDir, func(local string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(stagingDir, local)
		if err != nil {
			return err
		}

		if rel == "." {
			return nil
		}

		remote := path.Join(c.dataDir, filepath.ToSlash(rel))

		if d.IsDir() {
			return c.MkdirAll(remote)
		}

		return c.upload(local, remote)
	})
}

func (c *Channel) upload(local, remote string) error {
	src, err := os.Open(local)
	if err != nil {
		return fmt.Errorf("opening %s: %w", local, err)
	}
	defer src.Close()

	dst, err := c.files.Create(remote)
	if err != nil {
		return &TransferError{Op: "creating", Path: remote, Err: err}
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return &TransferError{Op: "uploading", Path: remote, Err: err}
	}

	if err := dst.Close(); err != nil {
		return &TransferError{Op: "closing", Path: remote, Err: err}
	}

	c.logger.Debug("uploaded", slog.String("path", remote))

	return nil
}

// Restart reloads the device UI so newly shipped documents are picked
// up.
func (c *Channel) Restart() error {
	session, err := c.client.NewSession()
	if err != nil {
		return &ControlError{Op: "opening session", Err: err}
	}
	defer session.Close()

	if err := session.Run(restartCommand); err != nil {
		return &ControlError{Op: restartCommand, Err: err}
	}

	c.logger.Info("device UI restarted")

	return nil
}
