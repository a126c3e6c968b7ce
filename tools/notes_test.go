package tools

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/ovsenka/mdvault/types"
	"github.com/ovsenka/mdvault/vault"
)

func testNotes(t *testing.T) (*Notes, *vault.Client) {
	t.Helper()

	v, err := vault.New(t.TempDir(), vault.WithLogger(slog.New(slog.DiscardHandler)))
	if err != nil {
		t.Fatalf("vault.New: %v", err)
	}
	return NewNotes(v), v
}

func TestNoteLifecycle(t *testing.T) {
	n, v := testNotes(t)
	ctx := context.Background()

	res, _, err := n.CreateNote(ctx, nil, types.CreateNoteInput{
		Path:        "ideas/draft.md",
		Content:     "first thought",
		Frontmatter: map[string]any{"status": "draft"},
	})
	if err != nil {
		t.Fatal(err)
	}
	var created struct {
		Created bool   `json:"created"`
		Path    string `json:"path"`
	}
	decodeResult(t, res, &created)
	if !created.Created {
		t.Fatalf("create result = %+v", created)
	}

	// Creating again without overwrite is refused.
	res, _, err = n.CreateNote(ctx, nil, types.CreateNoteInput{Path: "ideas/draft.md", Content: "clobber"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("existing note overwritten without overwrite flag")
	}

	res, _, err = n.ReadNote(ctx, nil, types.ReadNoteInput{Path: "ideas/draft.md"})
	if err != nil {
		t.Fatal(err)
	}
	var read struct {
		Body        string         `json:"body"`
		Frontmatter map[string]any `json:"frontmatter"`
	}
	decodeResult(t, res, &read)
	if read.Body != "first thought" {
		t.Errorf("body = %q", read.Body)
	}
	if read.Frontmatter["status"] != "draft" {
		t.Errorf("frontmatter = %v", read.Frontmatter)
	}

	res, _, err = n.AppendToNote(ctx, nil, types.AppendNoteInput{Path: "ideas/draft.md", Content: "second thought"})
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("append failed: %s", resultText(t, res))
	}

	// Update replaces the body but keeps frontmatter.
	res, _, err = n.UpdateNote(ctx, nil, types.UpdateNoteInput{Path: "ideas/draft.md", Content: "rewritten"})
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("update failed: %s", resultText(t, res))
	}
	note, err := v.ReadNote("ideas/draft.md")
	if err != nil {
		t.Fatal(err)
	}
	if note.Body() != "rewritten" {
		t.Errorf("body = %q", note.Body())
	}
	if note.Frontmatter["status"] != "draft" {
		t.Errorf("frontmatter lost on update: %v", note.Frontmatter)
	}

	res, _, err = n.DeleteNote(ctx, nil, types.DeleteNoteInput{Path: "ideas/draft.md"})
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("delete failed: %s", resultText(t, res))
	}
	if v.FileExists("ideas/draft.md") {
		t.Error("note still present after delete")
	}
	if !v.FileExists(".trash/draft.md") {
		t.Error("deleted note not moved to trash")
	}
}

func TestUpdateFrontmatter(t *testing.T) {
	n, v := testNotes(t)
	ctx := context.Background()

	if err := v.CreateNote("n.md", "body", map[string]any{"title": "N", "status": "draft"}, false); err != nil {
		t.Fatal(err)
	}

	res, _, err := n.UpdateFrontmatter(ctx, nil, types.UpdateFrontmatterInput{
		Path:    "n.md",
		Updates: map[string]any{"status": "done", "reviewed": true},
	})
	if err != nil {
		t.Fatal(err)
	}
	var updated struct {
		Updated bool `json:"updated"`
		Keys    int  `json:"keys"`
	}
	decodeResult(t, res, &updated)
	if !updated.Updated || updated.Keys != 2 {
		t.Fatalf("result = %+v", updated)
	}

	note, err := v.ReadNote("n.md")
	if err != nil {
		t.Fatal(err)
	}
	if note.Frontmatter["title"] != "N" || note.Frontmatter["status"] != "done" || note.Frontmatter["reviewed"] != true {
		t.Errorf("frontmatter = %v", note.Frontmatter)
	}
	if note.Body() != "body" {
		t.Errorf("body changed: %q", note.Body())
	}

	t.Run("empty updates", func(t *testing.T) {
		res, _, err := n.UpdateFrontmatter(ctx, nil, types.UpdateFrontmatterInput{Path: "n.md"})
		if err != nil {
			t.Fatal(err)
		}
		if !res.IsError {
			t.Error("empty updates accepted")
		}
	})

	t.Run("missing note", func(t *testing.T) {
		res, _, err := n.UpdateFrontmatter(ctx, nil, types.UpdateFrontmatterInput{
			Path:    "nope.md",
			Updates: map[string]any{"k": "v"},
		})
		if err != nil {
			t.Fatal(err)
		}
		if !res.IsError {
			t.Error("missing note accepted")
		}
	})
}

func TestReadNote_NotFound(t *testing.T) {
	n, _ := testNotes(t)

	res, _, err := n.ReadNote(context.Background(), nil, types.ReadNoteInput{Path: "nope.md"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Fatal("missing note read succeeded")
	}
	if msg := resultText(t, res); !strings.Contains(msg, "note not found") {
		t.Errorf("message = %q", msg)
	}
}

func TestSearchNotes_EmptyQuery(t *testing.T) {
	n, _ := testNotes(t)

	res, _, err := n.SearchNotes(context.Background(), nil, types.SearchNotesInput{})
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("empty query accepted")
	}
}

func TestListNotesAndStats(t *testing.T) {
	n, v := testNotes(t)
	ctx := context.Background()

	if err := v.WriteFile("a.md", []byte("# A\n#project")); err != nil {
		t.Fatal(err)
	}
	if err := v.WriteFile("sub/b.md", []byte("# B")); err != nil {
		t.Fatal(err)
	}

	res, _, err := n.ListNotes(ctx, nil, types.ListNotesInput{})
	if err != nil {
		t.Fatal(err)
	}
	var listed struct {
		Count int `json:"count"`
	}
	decodeResult(t, res, &listed)
	if listed.Count != 2 {
		t.Errorf("count = %d, want 2", listed.Count)
	}

	res, _, err = n.VaultStats(ctx, nil, types.VaultStatsInput{})
	if err != nil {
		t.Fatal(err)
	}
	var stats vault.Stats
	decodeResult(t, res, &stats)
	if stats.NoteCount != 2 {
		t.Errorf("NoteCount = %d, want 2", stats.NoteCount)
	}
}
