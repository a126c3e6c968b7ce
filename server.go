package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/ovsenka/mdvault/batch"
	"github.com/ovsenka/mdvault/tools"
	"github.com/ovsenka/mdvault/vault"
)

// newServer creates and configures the MCP server with all tools registered.
// If readOnly is true, mutating tools (including restore) are not registered.
func newServer(v *vault.Client, snaps *batch.Store, engine *batch.Engine, readOnly bool) *mcp.Server {
	srv := mcp.NewServer(
		&mcp.Implementation{
			Name:    "mdvault",
			Version: version,
		},
		nil,
	)

	notes := tools.NewNotes(v)

	// --- Read tools ---
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "read_note",
		Description: "Read a note from the vault. Returns the body, parsed YAML frontmatter, and tags (frontmatter tags plus inline #tags).",
	}, notes.ReadNote)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_notes",
		Description: "List notes with path, size, and modification time, newest first. Optionally restrict to a folder, list only its top level, or extract tags per note.",
	}, notes.ListNotes)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "search_notes",
		Description: "Case-insensitive text search across all notes. Returns the first matching line of each note with its line number.",
	}, notes.SearchNotes)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "vault_stats",
		Description: "Get vault statistics: note count, total size in bytes, and tag usage counts.",
	}, notes.VaultStats)

	// --- Write tools (skipped in read-only mode) ---
	if !readOnly {
		mcp.AddTool(srv, &mcp.Tool{
			Name:        "create_note",
			Description: "Create a new note with optional YAML frontmatter. Fails if the note exists unless overwrite is set.",
		}, notes.CreateNote)

		mcp.AddTool(srv, &mcp.Tool{
			Name:        "update_note",
			Description: "Replace an existing note's body. The frontmatter block is preserved unless new frontmatter is provided.",
		}, notes.UpdateNote)

		mcp.AddTool(srv, &mcp.Tool{
			Name:        "append_to_note",
			Description: "Append content to an existing note, separated from the current content by a newline.",
		}, notes.AppendToNote)

		mcp.AddTool(srv, &mcp.Tool{
			Name:        "update_frontmatter",
			Description: "Merge keys into a note's YAML frontmatter without touching the body. Keys not listed keep their current values.",
		}, notes.UpdateFrontmatter)

		mcp.AddTool(srv, &mcp.Tool{
			Name:        "delete_note",
			Description: "Delete a note. By default it is moved to the vault's .trash folder; set permanent to remove it for good.",
		}, notes.DeleteNote)
	}

	// --- Batch tools ---
	batchTools := tools.NewBatch(engine, snaps)

	if !readOnly {
		mcp.AddTool(srv, &mcp.Tool{
			Name:        "batch_update_notes",
			Description: "Update up to 50 notes atomically: a point-in-time backup of every touched note is taken first, and any failure rolls all notes back. Requires confirm=true; use dryRun to preview without touching anything.",
		}, batchTools.UpdateNotes)

		mcp.AddTool(srv, &mcp.Tool{
			Name:        "batch_append_notes",
			Description: "Append content to up to 50 notes atomically with automatic backup and rollback on any failure. Requires confirm=true.",
		}, batchTools.AppendNotes)

		mcp.AddTool(srv, &mcp.Tool{
			Name:        "restore_batch_backup",
			Description: "Restore every note in a batch backup to its recorded pre-batch content (undo a batch operation). Notes that did not exist at backup time are deleted again.",
		}, batchTools.RestoreBackup)
	}

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_batch_backups",
		Description: "List retained batch backups with id, note count, total size, and creation time, most recent first. Backups are kept until removed manually.",
	}, batchTools.ListBackups)

	// --- Health tool ---
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "health",
		Description: "Check server status: version, vault path, read-only mode, and note count.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, input struct{}) (*mcp.CallToolResult, any, error) {
		notes, err := v.ListNotes("", true, 0, false)

		status := "ok"
		if err != nil {
			status = fmt.Sprintf("error: %v", err)
		}

		data, _ := json.MarshalIndent(map[string]any{
			"status":    status,
			"version":   version,
			"vault":     v.Root(),
			"readOnly":  readOnly,
			"noteCount": len(notes),
		}, "", "  ")

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil, nil
	})

	return srv
}
