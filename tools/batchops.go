package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/ovsenka/mdvault/batch"
	"github.com/ovsenka/mdvault/types"
)

// Batch implements the transactional batch MCP tools.
type Batch struct {
	engine *batch.Engine
	snaps  *batch.Store
}

// NewBatch creates a Batch tool handler.
func NewBatch(engine *batch.Engine, snaps *batch.Store) *Batch {
	return &Batch{engine: engine, snaps: snaps}
}

// UpdateNotes replaces the content of up to 50 notes as one all-or-nothing
// unit with automatic backup and rollback.
func (b *Batch) UpdateNotes(ctx context.Context, req *mcp.CallToolRequest, input types.BatchUpdateInput) (*mcp.CallToolResult, any, error) {
	items := make([]batch.Item, len(input.Updates))
	for i, u := range input.Updates {
		items[i] = batch.Item{Path: u.Path, Op: batch.OpReplace, Content: u.Content}
	}

	return b.apply(ctx, batch.Request{Items: items, DryRun: input.DryRun, Confirm: input.Confirm})
}

// AppendNotes appends content to up to 50 notes as one all-or-nothing unit.
func (b *Batch) AppendNotes(ctx context.Context, req *mcp.CallToolRequest, input types.BatchAppendInput) (*mcp.CallToolResult, any, error) {
	items := make([]batch.Item, len(input.Appends))
	for i, a := range input.Appends {
		items[i] = batch.Item{Path: a.Path, Op: batch.OpAppend, Content: a.Content}
	}

	return b.apply(ctx, batch.Request{Items: items, Confirm: input.Confirm})
}

func (b *Batch) apply(ctx context.Context, req batch.Request) (*mcp.CallToolResult, any, error) {
	res, err := b.engine.Apply(ctx, req)

	switch {
	case err == nil:
		out, jerr := jsonTextResult(res)
		return out, nil, jerr
	case res != nil && res.Status == batch.StatusRejected:
		return errorResult(fmt.Sprintf("batch rejected: %v", err)), nil, nil
	case errors.Is(err, batch.ErrAbandoned):
		return errorResult(err.Error()), nil, nil
	default:
		return errorResult(fmt.Sprintf("batch failed before any change: %v", err)), nil, nil
	}
}

// RestoreBackup restores every path in a backup to its recorded content,
// re-deleting paths that did not exist at snapshot time.
func (b *Batch) RestoreBackup(ctx context.Context, req *mcp.CallToolRequest, input types.RestoreBackupInput) (*mcp.CallToolResult, any, error) {
	if input.BackupID == "" {
		return errorResult("backupId must not be empty"), nil, nil
	}

	report, err := b.snaps.Restore(ctx, input.BackupID)
	if errors.Is(err, batch.ErrBackupNotFound) {
		return errorResult(fmt.Sprintf("backup not found: %s", input.BackupID)), nil, nil
	}
	if err != nil {
		return errorResult(fmt.Sprintf("restore failed: %v", err)), nil, nil
	}

	res, err := jsonTextResult(report)
	return res, nil, err
}

// ListBackups enumerates retained backups, most recent first.
func (b *Batch) ListBackups(ctx context.Context, req *mcp.CallToolRequest, input types.ListBackupsInput) (*mcp.CallToolResult, any, error) {
	infos, err := b.snaps.List(input.Limit)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to list backups: %v", err)), nil, nil
	}

	res, err := jsonTextResult(map[string]any{"count": len(infos), "backups": infos})
	return res, nil, err
}
