package vault

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
)

// ErrPathEscapesVault is returned when a relative path would resolve to a
// location outside the vault root, either lexically or through a symlink.
var ErrPathEscapesVault = errors.New("path escapes vault")

// ErrNoteExists is returned by CreateNote when the target already exists
// and overwrite was not requested.
var ErrNoteExists = errors.New("note already exists")

const dirPerms = 0o755

// Client provides access to a markdown vault on disk. All paths accepted by
// its methods are relative to the vault root and validated against escape
// before any filesystem access.
type Client struct {
	root     string
	excluded []string
	logger   *slog.Logger
}

// Option configures a vault Client.
type Option func(*Client)

// WithExcludedFolders replaces the default set of folders hidden from
// listing, search, and stats.
func WithExcludedFolders(folders []string) Option {
	return func(c *Client) { c.excluded = folders }
}

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a vault client rooted at vaultPath. The root is resolved to
// its real location once so that later escape checks compare against it.
func New(vaultPath string, opts ...Option) (*Client, error) {
	abs, err := filepath.Abs(vaultPath)
	if err != nil {
		return nil, fmt.Errorf("vault path: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("vault path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault path is not a directory: %s", abs)
	}

	c := &Client{
		root:     abs,
		excluded: []string{".batch_backups", ".trash", ".obsidian", ".git", ".locks"},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.logger.Info("vault opened", "path", c.root)
	return c, nil
}

// Root returns the absolute vault root path.
func (c *Client) Root() string {
	return c.root
}

// Resolve validates rel and returns the absolute path inside the vault.
// Rejected: null bytes, absolute paths, lexical traversal via "..", and
// symlinks whose target lies outside the vault root.
func (c *Client) Resolve(rel string) (string, error) {
	if strings.ContainsRune(rel, 0) {
		return "", fmt.Errorf("%w: null byte in path", ErrPathEscapesVault)
	}
	if rel == "" || rel == "." {
		return "", fmt.Errorf("%w: empty path", ErrPathEscapesVault)
	}
	if filepath.IsAbs(rel) || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %q", ErrPathEscapesVault, rel)
	}

	abs := filepath.Join(c.root, filepath.FromSlash(rel))

	// The validated path may not exist yet (writes create it), but every
	// existing component must stay inside the vault. Walk up to the
	// nearest existing ancestor and resolve its symlinks.
	existing := abs
	for {
		resolved, err := filepath.EvalSymlinks(existing)
		if err == nil {
			if resolved != c.root && !strings.HasPrefix(resolved, c.root+string(filepath.Separator)) {
				return "", fmt.Errorf("%w: %q resolves outside vault", ErrPathEscapesVault, rel)
			}
			break
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("resolve %q: %w", rel, err)
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			break
		}
		existing = parent
	}

	return abs, nil
}

// --- Raw file layer (consumed by the batch engine) ---

// ReadFile reads the raw bytes of a file. The returned error wraps
// fs.ErrNotExist when the file is absent.
func (c *Client) ReadFile(rel string) ([]byte, error) {
	abs, err := c.Resolve(rel)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(abs)
}

// WriteFile overwrites rel with data, creating parent directories as
// needed. The write is atomic: readers never observe a partial file.
func (c *Client) WriteFile(rel string, data []byte) error {
	abs, err := c.Resolve(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), dirPerms); err != nil {
		return fmt.Errorf("write %q: %w", rel, err)
	}
	if err := atomic.WriteFile(abs, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %q: %w", rel, err)
	}
	return nil
}

// DeleteFile removes a file permanently. The returned error wraps
// fs.ErrNotExist when the file is absent.
func (c *Client) DeleteFile(rel string) error {
	abs, err := c.Resolve(rel)
	if err != nil {
		return err
	}
	return os.Remove(abs)
}

// FileExists reports whether rel exists and is a regular file.
func (c *Client) FileExists(rel string) bool {
	abs, err := c.Resolve(rel)
	if err != nil {
		return false
	}
	info, err := os.Stat(abs)
	return err == nil && info.Mode().IsRegular()
}

// isExcluded reports whether any component of rel is an excluded folder.
func (c *Client) isExcluded(rel string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		for _, ex := range c.excluded {
			if part == ex {
				return true
			}
		}
	}
	return false
}
