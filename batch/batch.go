// Package batch applies sets of independent note edits as a single
// all-or-nothing unit. Every non-dry-run batch snapshots the pre-image of
// each touched path before the first write; any item failure rolls every
// touched path back to that snapshot. Snapshots are retained indefinitely
// and can be listed and restored manually.
package batch

import "time"

// Op is the kind of mutation applied to one path.
type Op string

const (
	// OpReplace overwrites the destination's full content.
	OpReplace Op = "replace-content"
	// OpAppend writes the payload after the existing content,
	// separated by a newline when one is missing.
	OpAppend Op = "append-content"
)

// Item is one requested change: a destination path relative to the vault
// root, the operation kind, and the payload.
type Item struct {
	Path    string `json:"path"`
	Op      Op     `json:"op"`
	Content string `json:"content"`
}

// Request is one batch of 1..MaxBatchSize items with pairwise distinct
// paths. Confirm must be set for non-dry-run requests.
type Request struct {
	Items   []Item `json:"items"`
	DryRun  bool   `json:"dryRun"`
	Confirm bool   `json:"confirm"`
}

// Status is the overall outcome of a batch attempt.
type Status string

const (
	StatusCommitted  Status = "committed"
	StatusRolledBack Status = "rolled-back"
	StatusRejected   Status = "rejected"
	StatusPreview    Status = "preview"
)

// ItemResult is the outcome of a single item. An empty Err means applied.
type ItemResult struct {
	Path string `json:"path"`
	Op   Op     `json:"op"`
	Err  string `json:"error,omitempty"`
}

// Applied reports whether the item succeeded.
func (r ItemResult) Applied() bool { return r.Err == "" }

// ItemPreview describes what one item would do, computed by a dry run.
// A non-empty Err means the target could not be read and the real run
// would fail this item.
type ItemPreview struct {
	Path           string `json:"path"`
	Op             Op     `json:"op"`
	Exists         bool   `json:"exists"`
	NewBytes       int    `json:"newBytes"`
	ContentPreview string `json:"contentPreview"`
	Err            string `json:"error,omitempty"`
}

// Result is the outcome of one batch attempt. BackupID is set whenever a
// snapshot was created (committed and rolled-back outcomes). On rollback,
// RestoreWarnings carries any per-entry restore failures: the vault may not
// be byte-identical to its pre-batch state when it is non-empty.
type Result struct {
	Status          Status        `json:"status"`
	BackupID        string        `json:"backupId,omitempty"`
	Items           []ItemResult  `json:"items,omitempty"`
	Preview         []ItemPreview `json:"preview,omitempty"`
	RestoreWarnings []string      `json:"restoreWarnings,omitempty"`
}

// Failed returns the results of items that did not apply.
func (r *Result) Failed() []ItemResult {
	var failed []ItemResult
	for _, ir := range r.Items {
		if !ir.Applied() {
			failed = append(failed, ir)
		}
	}
	return failed
}

// Info describes one retained snapshot for catalog listing.
type Info struct {
	ID         string    `json:"id"`
	ItemCount  int       `json:"itemCount"`
	TotalBytes int64     `json:"totalBytes"`
	CreatedAt  time.Time `json:"createdAt"`
}

// FileStore is the vault collaborator the engine mutates through. Paths are
// relative to the vault root; implementations are responsible for rejecting
// paths that resolve outside it.
//
// Resolve reports whether a path lands inside the vault, including through
// symlinks, without requiring the target to exist. ReadFile and DeleteFile
// report a missing file with an error wrapping fs.ErrNotExist. WriteFile
// creates missing parent directories.
type FileStore interface {
	Resolve(path string) (string, error)
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
	DeleteFile(path string) error
}
