package vault

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// NoteInfo is note metadata without full content.
type NoteInfo struct {
	Path     string    `json:"path"`
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
	Tags     []string  `json:"tags,omitempty"`
}

// SearchHit is one search result with the first matching line as context.
type SearchHit struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

// Stats summarizes the vault.
type Stats struct {
	NoteCount  int            `json:"noteCount"`
	TotalBytes int64          `json:"totalBytes"`
	TagCounts  map[string]int `json:"tagCounts"`
}

// ListNotes lists markdown notes under folder ("" for the vault root),
// newest first. Excluded folders are skipped. A limit <= 0 means no limit.
// Set includeTags to extract tags, which reads every file.
func (c *Client) ListNotes(folder string, recursive bool, limit int, includeTags bool) ([]NoteInfo, error) {
	start := c.root
	if folder != "" {
		abs, err := c.Resolve(folder)
		if err != nil {
			return nil, err
		}
		start = abs
	}

	var notes []NoteInfo
	err := filepath.WalkDir(start, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped
		}
		rel, relErr := filepath.Rel(c.root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if path != start && (c.isExcluded(rel) || !recursive) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".md") || c.isExcluded(rel) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}

		ni := NoteInfo{
			Path:     rel,
			Name:     strings.TrimSuffix(d.Name(), ".md"),
			Size:     info.Size(),
			Modified: info.ModTime(),
		}
		if includeTags {
			if data, err := os.ReadFile(path); err == nil {
				content := string(data)
				props, _ := parseFrontmatter(content)
				ni.Tags = extractTags(content, props)
			}
		}
		notes = append(notes, ni)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(notes, func(i, j int) bool {
		return notes[i].Modified.After(notes[j].Modified)
	})
	if limit > 0 && len(notes) > limit {
		notes = notes[:limit]
	}
	return notes, nil
}

// SearchNotes scans all notes for a case-insensitive substring match and
// returns the first matching line per note, up to limit hits.
func (c *Client) SearchNotes(query string, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = 20
	}
	queryLower := strings.ToLower(query)

	notes, err := c.ListNotes("", true, 0, false)
	if err != nil {
		return nil, err
	}

	var hits []SearchHit
	for _, ni := range notes {
		if len(hits) >= limit {
			break
		}
		data, err := c.ReadFile(ni.Path)
		if err != nil {
			continue
		}
		for i, line := range strings.Split(string(data), "\n") {
			if strings.Contains(strings.ToLower(line), queryLower) {
				hits = append(hits, SearchHit{Path: ni.Path, Line: i + 1, Text: strings.TrimSpace(line)})
				break
			}
		}
	}
	return hits, nil
}

// VaultStats walks the vault and aggregates note count, size, and tag usage.
func (c *Client) VaultStats() (*Stats, error) {
	notes, err := c.ListNotes("", true, 0, true)
	if err != nil {
		return nil, err
	}

	stats := &Stats{TagCounts: make(map[string]int)}
	for _, ni := range notes {
		stats.NoteCount++
		stats.TotalBytes += ni.Size
		for _, tag := range ni.Tags {
			stats.TagCounts[tag]++
		}
	}
	return stats, nil
}
