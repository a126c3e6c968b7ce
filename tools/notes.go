package tools

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/ovsenka/mdvault/types"
	"github.com/ovsenka/mdvault/vault"
)

// Notes implements the single-note MCP tools.
type Notes struct {
	vault *vault.Client
}

// NewNotes creates a Notes tool handler.
func NewNotes(v *vault.Client) *Notes {
	return &Notes{vault: v}
}

// ReadNote returns a note's content, body, and parsed frontmatter.
func (n *Notes) ReadNote(ctx context.Context, req *mcp.CallToolRequest, input types.ReadNoteInput) (*mcp.CallToolResult, any, error) {
	note, err := n.vault.ReadNote(input.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return errorResult(fmt.Sprintf("note not found: %s", input.Path)), nil, nil
	}
	if err != nil {
		return errorResult(fmt.Sprintf("failed to read '%s': %v", input.Path, err)), nil, nil
	}

	res, err := jsonTextResult(map[string]any{
		"path":        note.Path,
		"body":        note.Body(),
		"frontmatter": note.Frontmatter,
		"tags":        note.Tags(),
	})
	return res, nil, err
}

// CreateNote creates a new note with optional frontmatter.
func (n *Notes) CreateNote(ctx context.Context, req *mcp.CallToolRequest, input types.CreateNoteInput) (*mcp.CallToolResult, any, error) {
	err := n.vault.CreateNote(input.Path, input.Content, input.Frontmatter, input.Overwrite)
	if errors.Is(err, vault.ErrNoteExists) {
		return errorResult(fmt.Sprintf("note already exists: %s (set overwrite to replace)", input.Path)), nil, nil
	}
	if err != nil {
		return errorResult(fmt.Sprintf("failed to create '%s': %v", input.Path, err)), nil, nil
	}

	res, err := jsonTextResult(map[string]any{"created": true, "path": input.Path})
	return res, nil, err
}

// UpdateNote replaces a note's body, preserving frontmatter unless new
// frontmatter is provided.
func (n *Notes) UpdateNote(ctx context.Context, req *mcp.CallToolRequest, input types.UpdateNoteInput) (*mcp.CallToolResult, any, error) {
	err := n.vault.UpdateNote(input.Path, input.Content, input.Frontmatter)
	if errors.Is(err, fs.ErrNotExist) {
		return errorResult(fmt.Sprintf("note not found: %s", input.Path)), nil, nil
	}
	if err != nil {
		return errorResult(fmt.Sprintf("failed to update '%s': %v", input.Path, err)), nil, nil
	}

	res, err := jsonTextResult(map[string]any{"updated": true, "path": input.Path})
	return res, nil, err
}

// AppendToNote appends content to an existing note.
func (n *Notes) AppendToNote(ctx context.Context, req *mcp.CallToolRequest, input types.AppendNoteInput) (*mcp.CallToolResult, any, error) {
	err := n.vault.AppendToNote(input.Path, input.Content)
	if errors.Is(err, fs.ErrNotExist) {
		return errorResult(fmt.Sprintf("note not found: %s", input.Path)), nil, nil
	}
	if err != nil {
		return errorResult(fmt.Sprintf("failed to append to '%s': %v", input.Path, err)), nil, nil
	}

	res, err := jsonTextResult(map[string]any{"appended": true, "path": input.Path})
	return res, nil, err
}

// UpdateFrontmatter merges keys into a note's frontmatter, leaving the body
// and unlisted keys unchanged.
func (n *Notes) UpdateFrontmatter(ctx context.Context, req *mcp.CallToolRequest, input types.UpdateFrontmatterInput) (*mcp.CallToolResult, any, error) {
	if len(input.Updates) == 0 {
		return errorResult("updates must not be empty"), nil, nil
	}

	err := n.vault.UpdateFrontmatter(input.Path, input.Updates)
	if errors.Is(err, fs.ErrNotExist) {
		return errorResult(fmt.Sprintf("note not found: %s", input.Path)), nil, nil
	}
	if err != nil {
		return errorResult(fmt.Sprintf("failed to update frontmatter of '%s': %v", input.Path, err)), nil, nil
	}

	res, err := jsonTextResult(map[string]any{"updated": true, "path": input.Path, "keys": len(input.Updates)})
	return res, nil, err
}

// DeleteNote moves a note to .trash, or deletes it permanently.
func (n *Notes) DeleteNote(ctx context.Context, req *mcp.CallToolRequest, input types.DeleteNoteInput) (*mcp.CallToolResult, any, error) {
	err := n.vault.DeleteNote(input.Path, !input.Permanent)
	if errors.Is(err, fs.ErrNotExist) {
		return errorResult(fmt.Sprintf("note not found: %s", input.Path)), nil, nil
	}
	if err != nil {
		return errorResult(fmt.Sprintf("failed to delete '%s': %v", input.Path, err)), nil, nil
	}

	res, err := jsonTextResult(map[string]any{"deleted": true, "path": input.Path, "trashed": !input.Permanent})
	return res, nil, err
}

// ListNotes lists notes with metadata, newest first.
func (n *Notes) ListNotes(ctx context.Context, req *mcp.CallToolRequest, input types.ListNotesInput) (*mcp.CallToolResult, any, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 100
	}
	notes, err := n.vault.ListNotes(input.Folder, !input.Flat, limit, input.IncludeTags)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to list notes: %v", err)), nil, nil
	}

	res, err := jsonTextResult(map[string]any{"count": len(notes), "notes": notes})
	return res, nil, err
}

// SearchNotes searches note content for a substring.
func (n *Notes) SearchNotes(ctx context.Context, req *mcp.CallToolRequest, input types.SearchNotesInput) (*mcp.CallToolResult, any, error) {
	if input.Query == "" {
		return errorResult("query must not be empty"), nil, nil
	}

	hits, err := n.vault.SearchNotes(input.Query, input.Limit)
	if err != nil {
		return errorResult(fmt.Sprintf("search failed: %v", err)), nil, nil
	}

	res, err := jsonTextResult(map[string]any{"query": input.Query, "count": len(hits), "hits": hits})
	return res, nil, err
}

// VaultStats returns note count, total size, and tag usage.
func (n *Notes) VaultStats(ctx context.Context, req *mcp.CallToolRequest, input types.VaultStatsInput) (*mcp.CallToolResult, any, error) {
	stats, err := n.vault.VaultStats()
	if err != nil {
		return errorResult(fmt.Sprintf("failed to collect stats: %v", err)), nil, nil
	}

	res, err := jsonTextResult(stats)
	return res, nil, err
}
