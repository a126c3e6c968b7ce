package vault

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// tagPattern matches inline #tags, including nested ones like #project/go.
var tagPattern = regexp.MustCompile(`#([\w/-]+)`)

// Note is a markdown note with its parsed frontmatter. Content holds the
// full file text including the frontmatter block.
type Note struct {
	Path        string         `json:"path"`
	Content     string         `json:"content"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
}

// Body returns the note content without the frontmatter block.
func (n Note) Body() string {
	if n.Frontmatter == nil {
		return n.Content
	}
	_, body := parseFrontmatter(n.Content)
	return body
}

// Tags returns the note's tags from frontmatter and inline #tags, sorted.
func (n Note) Tags() []string {
	return extractTags(n.Content, n.Frontmatter)
}

func extractTags(content string, frontmatter map[string]any) []string {
	set := make(map[string]bool)

	if frontmatter != nil {
		switch fm := frontmatter["tags"].(type) {
		case string:
			set[fm] = true
		case []any:
			for _, t := range fm {
				if s, ok := t.(string); ok {
					set[s] = true
				}
			}
		}
	}

	for _, m := range tagPattern.FindAllStringSubmatch(content, -1) {
		set[m[1]] = true
	}

	tags := make([]string, 0, len(set))
	for t := range set {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// ReadNote reads a note and parses its frontmatter.
func (c *Client) ReadNote(rel string) (*Note, error) {
	data, err := c.ReadFile(rel)
	if err != nil {
		return nil, err
	}

	content := string(data)
	props, _ := parseFrontmatter(content)

	return &Note{Path: filepath.ToSlash(rel), Content: content, Frontmatter: props}, nil
}

// CreateNote creates a new note with optional frontmatter. Fails with
// ErrNoteExists when the target exists and overwrite is false.
func (c *Client) CreateNote(rel, content string, frontmatter map[string]any, overwrite bool) error {
	if !overwrite && c.FileExists(rel) {
		return fmt.Errorf("%w: %s", ErrNoteExists, rel)
	}

	full := renderFrontmatter(frontmatter) + content
	if err := c.WriteFile(rel, []byte(full)); err != nil {
		return err
	}

	c.logger.Info("note created", "path", rel)
	return nil
}

// UpdateNote replaces a note's body. When frontmatter is nil the existing
// frontmatter block is preserved; otherwise it replaces the existing one.
// The note must already exist.
func (c *Client) UpdateNote(rel, content string, frontmatter map[string]any) error {
	if frontmatter == nil {
		note, err := c.ReadNote(rel)
		if err != nil {
			return err
		}
		frontmatter = note.Frontmatter
	} else if !c.FileExists(rel) {
		return fmt.Errorf("note not found: %s: %w", rel, fs.ErrNotExist)
	}

	full := renderFrontmatter(frontmatter) + content
	if err := c.WriteFile(rel, []byte(full)); err != nil {
		return err
	}

	c.logger.Info("note updated", "path", rel)
	return nil
}

// AppendToNote appends content to an existing note, inserting a newline
// separator when the note does not end with one.
func (c *Client) AppendToNote(rel, content string) error {
	data, err := c.ReadFile(rel)
	if err != nil {
		return err
	}

	existing := string(data)
	if existing != "" && !strings.HasSuffix(existing, "\n") {
		existing += "\n"
	}

	if err := c.WriteFile(rel, []byte(existing+content)); err != nil {
		return err
	}

	c.logger.Info("note appended", "path", rel, "bytes", len(content))
	return nil
}

// UpdateFrontmatter merges updates into a note's frontmatter, keeping the
// body unchanged.
func (c *Client) UpdateFrontmatter(rel string, updates map[string]any) error {
	note, err := c.ReadNote(rel)
	if err != nil {
		return err
	}

	frontmatter := note.Frontmatter
	if frontmatter == nil {
		frontmatter = make(map[string]any)
	}
	for k, v := range updates {
		frontmatter[k] = v
	}

	return c.UpdateNote(rel, note.Body(), frontmatter)
}

// DeleteNote deletes a note. With useTrash the file is moved to the vault's
// .trash folder (numbered on name collision) instead of being removed.
func (c *Client) DeleteNote(rel string, useTrash bool) error {
	abs, err := c.Resolve(rel)
	if err != nil {
		return err
	}
	if _, err := os.Stat(abs); err != nil {
		return err
	}

	if !useTrash {
		if err := os.Remove(abs); err != nil {
			return err
		}
		c.logger.Info("note deleted", "path", rel)
		return nil
	}

	trashDir := filepath.Join(c.root, ".trash")
	if err := os.MkdirAll(trashDir, dirPerms); err != nil {
		return fmt.Errorf("trash %q: %w", rel, err)
	}

	base := filepath.Base(abs)
	target := filepath.Join(trashDir, base)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for n := 1; ; n++ {
		if _, err := os.Stat(target); os.IsNotExist(err) {
			break
		}
		target = filepath.Join(trashDir, fmt.Sprintf("%s.%d%s", stem, n, ext))
	}

	if err := os.Rename(abs, target); err != nil {
		return fmt.Errorf("trash %q: %w", rel, err)
	}

	c.logger.Info("note trashed", "path", rel, "trash", filepath.Base(target))
	return nil
}
