package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/natefinch/atomic"
	"golang.org/x/sync/errgroup"
)

// ErrBackupNotFound is returned by Restore for an unknown snapshot id.
var ErrBackupNotFound = errors.New("backup not found")

const (
	manifestName = "manifest.json"
	filesDirName = "files"

	snapshotIDFormat = "20060102_150405"
)

// manifest records the pre-batch state of every touched path. It is written
// last, after all file copies: a snapshot directory without a manifest is
// incomplete and is never listed or restored.
type manifest struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"createdAt"`
	Entries   []manifestEntry `json:"entries"`
}

// manifestEntry maps one path to its pre-batch state. Existed false means
// the file was absent at snapshot time, which is distinct from empty
// content: restore deletes such files.
type manifestEntry struct {
	Path    string `json:"path"`
	Existed bool   `json:"existed"`
	Size    int64  `json:"size"`
}

// EntryError is a per-entry restore failure.
type EntryError struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// RestoreReport summarizes one restore attempt. Failed entries mean the
// vault may not be byte-identical to its snapshot state.
type RestoreReport struct {
	BackupID string       `json:"backupId"`
	Restored int          `json:"restored"`
	Deleted  int          `json:"deleted"`
	Failed   []EntryError `json:"failed,omitempty"`
}

// Store creates, restores, and lists point-in-time snapshots of vault
// files. One snapshot is one directory under the store root, named by its
// id, holding manifest.json plus a full copy of each path's pre-batch
// content under files/ mirroring the original relative layout.
//
// The store never deletes a snapshot; retention is left to the operator.
type Store struct {
	root    string
	files   FileStore
	workers int
	logger  *slog.Logger

	mu sync.Mutex // serializes id allocation
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreLogger sets the logger (default: slog.Default()).
func WithStoreLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// NewStore creates a snapshot store rooted at dir, reading pre-images from
// and restoring into files. The root directory is created on first use.
func NewStore(dir string, files FileStore, opts ...StoreOption) *Store {
	s := &Store{
		root:    dir,
		files:   files,
		workers: maxWorkers,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create snapshots the current content of every path and returns the new
// snapshot id. Absent files are recorded explicitly as nonexistent. The
// snapshot is fully written and synced before Create returns; on any
// failure the partial directory is removed and no id is reported.
func (s *Store) Create(ctx context.Context, paths []string) (string, error) {
	id, dir, err := s.allocate()
	if err != nil {
		return "", err
	}

	m := manifest{ID: id, CreatedAt: time.Now().UTC(), Entries: make([]manifestEntry, len(paths))}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(min(len(paths), s.workers))
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			data, err := s.files.ReadFile(path)
			if errors.Is(err, fs.ErrNotExist) {
				m.Entries[i] = manifestEntry{Path: filepath.ToSlash(path)}
				return nil
			}
			if err != nil {
				return fmt.Errorf("snapshot %q: %w", path, err)
			}

			copyPath := filepath.Join(dir, filesDirName, filepath.FromSlash(path))
			if err := os.MkdirAll(filepath.Dir(copyPath), 0o755); err != nil {
				return fmt.Errorf("snapshot %q: %w", path, err)
			}
			if err := atomic.WriteFile(copyPath, bytes.NewReader(data)); err != nil {
				return fmt.Errorf("snapshot %q: %w", path, err)
			}

			m.Entries[i] = manifestEntry{Path: filepath.ToSlash(path), Existed: true, Size: int64(len(data))}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			s.logger.Warn("could not remove partial snapshot", "id", id, "error", rmErr)
		}
		return "", err
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		os.RemoveAll(dir)
		return "", fmt.Errorf("snapshot manifest: %w", err)
	}
	if err := atomic.WriteFile(filepath.Join(dir, manifestName), bytes.NewReader(data)); err != nil {
		os.RemoveAll(dir)
		return "", fmt.Errorf("snapshot manifest: %w", err)
	}

	// Sync the directories so the snapshot survives a crash after return.
	if err := syncDir(dir); err != nil {
		os.RemoveAll(dir)
		return "", fmt.Errorf("snapshot sync: %w", err)
	}
	if err := syncDir(s.root); err != nil {
		return "", fmt.Errorf("snapshot sync: %w", err)
	}

	s.logger.Info("snapshot created", "id", id, "paths", len(paths))
	return id, nil
}

// allocate reserves a fresh snapshot directory. Ids are the creation
// timestamp at second resolution; rapid successive calls get a numeric
// suffix, so ids stay unique and lexically ordered by creation.
func (s *Store) allocate() (id, dir string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return "", "", fmt.Errorf("snapshot root: %w", err)
	}

	base := time.Now().Format(snapshotIDFormat)
	id = base
	for n := 2; ; n++ {
		dir = filepath.Join(s.root, id)
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return id, dir, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", "", fmt.Errorf("snapshot dir: %w", err)
		}
		id = fmt.Sprintf("%s_%d", base, n)
	}
}

// Restore rewrites every path in the snapshot's manifest to its recorded
// content, deleting paths recorded as nonexistent. It is best-effort-all:
// every entry is attempted and per-entry failures are aggregated in the
// report rather than stopping the restore.
func (s *Store) Restore(ctx context.Context, id string) (*RestoreReport, error) {
	m, err := s.readManifest(id)
	if err != nil {
		return nil, err
	}

	report := &RestoreReport{BackupID: id}
	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(min(max(len(m.Entries), 1), s.workers))
	for _, entry := range m.Entries {
		g.Go(func() error {
			fail := func(err error) {
				mu.Lock()
				report.Failed = append(report.Failed, EntryError{Path: entry.Path, Reason: err.Error()})
				mu.Unlock()
			}

			if !entry.Existed {
				err := s.files.DeleteFile(entry.Path)
				if err != nil && !errors.Is(err, fs.ErrNotExist) {
					fail(err)
					return nil
				}
				mu.Lock()
				report.Deleted++
				mu.Unlock()
				return nil
			}

			copyPath := filepath.Join(s.root, id, filesDirName, filepath.FromSlash(entry.Path))
			data, err := os.ReadFile(copyPath)
			if err != nil {
				fail(err)
				return nil
			}
			if err := s.files.WriteFile(entry.Path, data); err != nil {
				fail(err)
				return nil
			}
			mu.Lock()
			report.Restored++
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	if len(report.Failed) > 0 {
		s.logger.Warn("restore incomplete", "id", id, "failed", len(report.Failed))
	} else {
		s.logger.Info("restore complete", "id", id, "restored", report.Restored, "deleted", report.Deleted)
	}
	return report, nil
}

// List enumerates retained snapshots, most recent first, bounded by limit
// (default 10 when limit <= 0). Incomplete snapshot directories without a
// manifest are skipped.
func (s *Store) List(limit int) ([]Info, error) {
	if limit <= 0 {
		limit = 10
	}

	entries, err := os.ReadDir(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}

	var infos []Info
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		m, err := s.readManifest(entry.Name())
		if err != nil {
			continue
		}

		info := Info{ID: m.ID, ItemCount: len(m.Entries), CreatedAt: m.CreatedAt}
		for _, e := range m.Entries {
			info.TotalBytes += e.Size
		}
		infos = append(infos, info)
	}

	// Order by recorded creation time, not id: suffixed ids from rapid
	// successive calls do not sort lexically ("_9" vs "_10").
	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].CreatedAt.After(infos[j].CreatedAt)
		}
		return infos[i].ID > infos[j].ID
	})
	if len(infos) > limit {
		infos = infos[:limit]
	}
	return infos, nil
}

func (s *Store) readManifest(id string) (*manifest, error) {
	// Ids are bare directory names; anything with separators or traversal
	// would resolve outside the store root.
	if id == "" || id != filepath.Base(id) || !filepath.IsLocal(id) {
		return nil, fmt.Errorf("%w: %q", ErrBackupNotFound, id)
	}

	data, err := os.ReadFile(filepath.Join(s.root, id, manifestName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %q", ErrBackupNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("backup %q: %w", id, err)
	}

	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("backup %q: manifest: %w", id, err)
	}
	return &m, nil
}

// syncDir fsyncs a directory so its entries are durable.
func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
