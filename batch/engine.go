package batch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"
)

// maxWorkers bounds per-batch concurrency. Bounding avoids descriptor
// exhaustion on 50-item batches while still overlapping file I/O.
const maxWorkers = 8

// ErrAbandoned reports that the caller's context expired after mutations
// began. The batch keeps running in the background and rollback logic still
// applies; the wrapped message carries the backup id for manual recovery.
var ErrAbandoned = errors.New("caller stopped waiting, batch continues in background")

const previewBytes = 100

// Engine runs batches through validate, snapshot, apply, and reconcile.
//
// Two engines (or two concurrent Apply calls) against overlapping paths are
// not isolated from each other: each batch snapshots and applies its own
// path set independently, and the outcome of such a race is undefined.
// Serializing overlapping batches is the caller's responsibility.
type Engine struct {
	files  FileStore
	snaps  *Store
	logger *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEngineLogger sets the logger (default: slog.Default()).
func WithEngineLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a batch engine mutating files and snapshotting into snaps.
func NewEngine(files FileStore, snaps *Store, opts ...EngineOption) *Engine {
	e := &Engine{files: files, snaps: snaps, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply runs one batch.
//
// A request failing the lexical checks or destination resolution is rejected
// with no mutation and no backup. A dry run returns a computed preview, again
// with no backup and no mutation. Otherwise a snapshot of every touched path is created and
// durable before the first write; items are then applied concurrently, and
// any item failure triggers a rollback of all touched paths, with the
// snapshot retained either way.
//
// A snapshot-creation failure aborts the whole batch before any mutation.
// Once applying has begun, ctx expiry does not cancel in-flight writes:
// Apply returns ErrAbandoned while the batch, and if needed its rollback,
// finishes in the background.
func (e *Engine) Apply(ctx context.Context, req Request) (*Result, error) {
	if err := Validate(req); err != nil {
		return &Result{Status: StatusRejected}, err
	}

	// The lexical gate cannot see symlinks; resolve every destination
	// through the collaborator so escaping paths are rejected, not
	// surfaced later as a snapshot failure.
	for i, item := range req.Items {
		if _, err := e.files.Resolve(item.Path); err != nil {
			return &Result{Status: StatusRejected}, fmt.Errorf("item %d: %w: %v", i+1, ErrInvalidPath, err)
		}
	}

	if req.DryRun {
		return e.preview(req.Items), nil
	}

	paths := make([]string, len(req.Items))
	for i, item := range req.Items {
		paths[i] = item.Path
	}

	id, err := e.snaps.Create(ctx, paths)
	if err != nil {
		// Nothing has been mutated; there is nothing to roll back.
		return nil, fmt.Errorf("create backup: %w", err)
	}

	e.logger.Info("batch applying", "backup", id, "items", len(req.Items))

	done := make(chan *Result, 1)
	go func() { done <- e.run(req.Items, id) }()

	select {
	case res := <-done:
		return res, nil
	case <-ctx.Done():
		go func() {
			res := <-done
			e.logger.Warn("abandoned batch finished", "backup", id, "status", res.Status)
		}()
		return nil, fmt.Errorf("%w (backup %s): %v", ErrAbandoned, id, ctx.Err())
	}
}

// run applies all items and reconciles the outcome against the snapshot.
// It deliberately takes no context: once mutations start they run to
// completion or failure.
func (e *Engine) run(items []Item, backupID string) *Result {
	results := e.applyAll(items)

	failed := 0
	for _, r := range results {
		if !r.Applied() {
			failed++
		}
	}

	if failed == 0 {
		e.logger.Info("batch committed", "backup", backupID, "items", len(items))
		return &Result{Status: StatusCommitted, BackupID: backupID, Items: results}
	}

	e.logger.Warn("batch failed, rolling back", "backup", backupID, "failed", failed)

	res := &Result{Status: StatusRolledBack, BackupID: backupID, Items: results}
	report, err := e.snaps.Restore(context.Background(), backupID)
	if err != nil {
		res.RestoreWarnings = append(res.RestoreWarnings, err.Error())
		return res
	}
	for _, f := range report.Failed {
		res.RestoreWarnings = append(res.RestoreWarnings, fmt.Sprintf("%s: %s", f.Path, f.Reason))
	}
	return res
}

// applyAll runs items on a bounded worker pool. Item failures are captured
// in the results; one failing item never stops the others, and no ordering
// is guaranteed between items.
func (e *Engine) applyAll(items []Item) []ItemResult {
	results := make([]ItemResult, len(items))

	g := new(errgroup.Group)
	g.SetLimit(min(len(items), maxWorkers))
	for i, item := range items {
		g.Go(func() error {
			results[i] = e.applyOne(item)
			return nil
		})
	}
	g.Wait()

	return results
}

func (e *Engine) applyOne(item Item) ItemResult {
	res := ItemResult{Path: item.Path, Op: item.Op}

	var err error
	switch item.Op {
	case OpReplace:
		err = e.files.WriteFile(item.Path, []byte(item.Content))
	case OpAppend:
		var data []byte
		data, err = e.files.ReadFile(item.Path)
		if err == nil {
			err = e.files.WriteFile(item.Path, appendPayload(data, item.Content))
		}
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownOp, item.Op)
	}

	if err != nil {
		res.Err = err.Error()
	}
	return res
}

// appendPayload joins existing content and the payload, inserting a newline
// separator when the existing content does not end with one.
func appendPayload(existing []byte, payload string) []byte {
	s := string(existing)
	if s != "" && !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	return []byte(s + payload)
}

// preview computes the effect of a batch without creating a backup or
// mutating any file. Targets are only read.
func (e *Engine) preview(items []Item) *Result {
	previews := make([]ItemPreview, len(items))
	for i, item := range items {
		p := ItemPreview{Path: item.Path, Op: item.Op, ContentPreview: truncate(item.Content)}

		data, err := e.files.ReadFile(item.Path)
		exists := err == nil
		p.Exists = exists
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			// Unreadable target: the real run would fail this item.
			p.Err = err.Error()
			previews[i] = p
			continue
		}

		switch item.Op {
		case OpReplace:
			p.NewBytes = len(item.Content)
		case OpAppend:
			if exists {
				p.NewBytes = len(appendPayload(data, item.Content))
			}
		}
		previews[i] = p
	}
	return &Result{Status: StatusPreview, Preview: previews}
}

func truncate(s string) string {
	if len(s) <= previewBytes {
		return s
	}
	return s[:previewBytes] + "..."
}
