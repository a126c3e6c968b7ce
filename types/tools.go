// Package types holds the MCP tool input structs.
package types

// --- Note tool inputs ---

type ReadNoteInput struct {
	Path string `json:"path" jsonschema:"Note path relative to the vault root (e.g. projects/plan.md)"`
}

type CreateNoteInput struct {
	Path        string         `json:"path" jsonschema:"Note path relative to the vault root"`
	Content     string         `json:"content" jsonschema:"Note content (without frontmatter)"`
	Frontmatter map[string]any `json:"frontmatter,omitempty" jsonschema:"Optional YAML frontmatter as key-value pairs"`
	Overwrite   bool           `json:"overwrite,omitempty" jsonschema:"Overwrite if the note already exists. Default: false"`
}

type UpdateNoteInput struct {
	Path        string         `json:"path" jsonschema:"Note path relative to the vault root"`
	Content     string         `json:"content" jsonschema:"New note body (replaces existing body entirely)"`
	Frontmatter map[string]any `json:"frontmatter,omitempty" jsonschema:"Optional frontmatter (replaces existing; omit to preserve)"`
}

type AppendNoteInput struct {
	Path    string `json:"path" jsonschema:"Note path relative to the vault root"`
	Content string `json:"content" jsonschema:"Content to append after the existing body"`
}

type UpdateFrontmatterInput struct {
	Path    string         `json:"path" jsonschema:"Note path relative to the vault root"`
	Updates map[string]any `json:"updates" jsonschema:"Frontmatter keys to set or overwrite. Keys not listed are kept"`
}

type DeleteNoteInput struct {
	Path      string `json:"path" jsonschema:"Note path relative to the vault root"`
	Permanent bool   `json:"permanent,omitempty" jsonschema:"Delete permanently instead of moving to .trash. Default: false"`
}

type ListNotesInput struct {
	Folder      string `json:"folder,omitempty" jsonschema:"Subfolder to list (omit for vault root)"`
	Flat        bool   `json:"flat,omitempty" jsonschema:"List only the top level of the folder, no subfolders. Default: false"`
	Limit       int    `json:"limit,omitempty" jsonschema:"Max results. Default: 100"`
	IncludeTags bool   `json:"includeTags,omitempty" jsonschema:"Extract tags per note (slower). Default: false"`
}

type SearchNotesInput struct {
	Query string `json:"query" jsonschema:"Text to search for (case-insensitive substring)"`
	Limit int    `json:"limit,omitempty" jsonschema:"Max results. Default: 20"`
}

// VaultStatsInput has no required params — returns vault-wide statistics.
type VaultStatsInput struct{}

// --- Batch tool inputs ---

// NoteEdit is one path plus its new or appended content.
type NoteEdit struct {
	Path    string `json:"path" jsonschema:"Note path relative to the vault root"`
	Content string `json:"content" jsonschema:"Content for this note"`
}

type BatchUpdateInput struct {
	Updates []NoteEdit `json:"updates" jsonschema:"Notes to update (1-50, distinct paths). Each note's content is replaced"`
	DryRun  bool       `json:"dryRun,omitempty" jsonschema:"Preview changes without a backup or any mutation. Default: false"`
	Confirm bool       `json:"confirm,omitempty" jsonschema:"Must be true to apply changes (safety check). Default: false"`
}

type BatchAppendInput struct {
	Appends []NoteEdit `json:"appends" jsonschema:"Notes to append to (1-50, distinct paths)"`
	Confirm bool       `json:"confirm,omitempty" jsonschema:"Must be true to apply changes (safety check). Default: false"`
}

type RestoreBackupInput struct {
	BackupID string `json:"backupId" jsonschema:"Backup id from a batch result or list_batch_backups"`
}

type ListBackupsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Max backups to list, most recent first. Default: 10"`
}
