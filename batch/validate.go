package batch

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// MaxBatchSize is the hard item cardinality limit per batch.
const MaxBatchSize = 50

// Validation sentinels. A request failing any of these is rejected before
// any filesystem access, so rejected requests never create a backup.
var (
	ErrEmptyBatch           = errors.New("batch contains no items")
	ErrBatchTooLarge        = errors.New("batch exceeds maximum size")
	ErrDuplicatePath        = errors.New("duplicate destination path")
	ErrInvalidPath          = errors.New("invalid destination path")
	ErrUnknownOp            = errors.New("unknown operation")
	ErrConfirmationRequired = errors.New("batch requires explicit confirmation")
)

// Validate checks a request without touching the filesystem. Path checks
// are purely lexical; the engine additionally resolves every destination
// through the vault collaborator (catching symlink escapes) before the
// dry-run preview or the snapshot.
func Validate(req Request) error {
	if len(req.Items) == 0 {
		return ErrEmptyBatch
	}
	if len(req.Items) > MaxBatchSize {
		return fmt.Errorf("%w: %d items (max %d)", ErrBatchTooLarge, len(req.Items), MaxBatchSize)
	}

	seen := make(map[string]bool, len(req.Items))
	for i, item := range req.Items {
		switch item.Op {
		case OpReplace, OpAppend:
		default:
			return fmt.Errorf("item %d: %w: %q", i+1, ErrUnknownOp, item.Op)
		}

		if err := checkPath(item.Path); err != nil {
			return fmt.Errorf("item %d: %w", i+1, err)
		}

		key := filepath.ToSlash(item.Path)
		if seen[key] {
			return fmt.Errorf("item %d: %w: %q", i+1, ErrDuplicatePath, item.Path)
		}
		seen[key] = true
	}

	if !req.DryRun && !req.Confirm {
		return fmt.Errorf("%w: set confirm to apply %d changes", ErrConfirmationRequired, len(req.Items))
	}

	return nil
}

// checkPath rejects paths that cannot resolve inside the vault: empty,
// containing null bytes, absolute, or traversing upward.
func checkPath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	if strings.ContainsRune(path, 0) {
		return fmt.Errorf("%w: null byte in path", ErrInvalidPath)
	}
	if filepath.IsAbs(path) || !filepath.IsLocal(path) {
		return fmt.Errorf("%w: %q escapes the vault", ErrInvalidPath, path)
	}
	return nil
}
