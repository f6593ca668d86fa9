package skills

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var testAllowedTools = []string{"read", "edit", "write", "grep", "glob", "bash"}

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func newTestLoader(t *testing.T) (*Loader, string, string) {
	t.Helper()
	root := t.TempDir()
	commandDir := filepath.Join(root, "commands")
	skillDir := filepath.Join(root, "skills")
	for _, d := range []string{commandDir, skillDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatalf("mkdir %s: %v", d, err)
		}
	}
	return NewLoader(commandDir, skillDir, testAllowedTools), commandDir, skillDir
}

// =============================================================================
// FRONTMATTER TESTS
// =============================================================================

func TestSplitFrontmatter(t *testing.T) {
	t.Parallel()

	content := `---
name: readproject
description: Summarize the project descriptor
requires:
  - read
---

Read PROJECT.md and report module status.
`
	fm, body, err := splitFrontmatter(content)
	if err != nil {
		t.Fatalf("splitFrontmatter error: %v", err)
	}
	if fm.Name != "readproject" {
		t.Errorf("name = %q", fm.Name)
	}
	if fm.Description != "Summarize the project descriptor" {
		t.Errorf("description = %q", fm.Description)
	}
	if len(fm.Requires) != 1 || fm.Requires[0] != "read" {
		t.Errorf("requires = %v", fm.Requires)
	}
	if !strings.HasPrefix(body, "Read PROJECT.md") {
		t.Errorf("body = %q", body)
	}
}

func TestSplitFrontmatter_NoHeader(t *testing.T) {
	t.Parallel()

	if _, _, err := splitFrontmatter("Just a body.\n"); err == nil {
		t.Error("expected error for a file without a frontmatter block")
	}
}

func TestSplitFrontmatter_Unterminated(t *testing.T) {
	t.Parallel()

	if _, _, err := splitFrontmatter("---\nname: x\n"); err == nil {
		t.Error("expected error for unterminated frontmatter")
	}
}

// =============================================================================
// LOADER TESTS
// =============================================================================

func TestLoader_LoadAll(t *testing.T) {
	t.Parallel()

	loader, commandDir, skillDir := newTestLoader(t)

	writeDoc(t, commandDir, "commit.md", "---\nname: commit\ndescription: Record a commit\nrequires: [read, write]\n---\nBody A\n")
	writeDoc(t, skillDir, "review.md", "---\nname: review\ndescription: Review changes\n---\nBody B\n")

	count, err := loader.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 documents, got %d", count)
	}

	doc, ok := loader.Get(KindCommand, "commit")
	if !ok {
		t.Fatal("commit command not loaded")
	}
	if doc.Description != "Record a commit" {
		t.Errorf("description = %q", doc.Description)
	}
	if doc.Checksum == "" {
		t.Error("expected a checksum")
	}

	if _, ok := loader.Get(KindSkill, "review"); !ok {
		t.Error("review skill not loaded")
	}
}

func TestLoader_RejectsMissingFrontmatter(t *testing.T) {
	t.Parallel()

	loader, commandDir, _ := newTestLoader(t)
	writeDoc(t, commandDir, "ask.md", "No frontmatter here.\n")
	writeDoc(t, commandDir, "ok.md", "---\nname: ok\n---\nBody\n")

	count, err := loader.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll error: %v", err)
	}
	if count != 1 {
		t.Fatalf("headerless document should be skipped, got %d loaded", count)
	}
	if _, ok := loader.Get(KindCommand, "ask"); ok {
		t.Error("document without a frontmatter block must be rejected")
	}
}

func TestLoader_NameFallsBackToFilename(t *testing.T) {
	t.Parallel()

	loader, commandDir, _ := newTestLoader(t)
	writeDoc(t, commandDir, "ask.md", "---\ndescription: unnamed\n---\nBody\n")

	if _, err := loader.LoadAll(); err != nil {
		t.Fatalf("LoadAll error: %v", err)
	}
	if _, ok := loader.Get(KindCommand, "ask"); !ok {
		t.Error("document without a name should fall back to its filename")
	}
}

func TestLoader_RejectsDisallowedTool(t *testing.T) {
	t.Parallel()

	loader, commandDir, _ := newTestLoader(t)
	writeDoc(t, commandDir, "evil.md", "---\nname: evil\nrequires: [network]\n---\nBody\n")
	writeDoc(t, commandDir, "good.md", "---\nname: good\nrequires: [read]\n---\nBody\n")

	count, err := loader.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected only the valid document, got %d", count)
	}
	if _, ok := loader.Get(KindCommand, "evil"); ok {
		t.Error("document with disallowed tool must be skipped")
	}
}

func TestLoader_DedupesIdenticalContent(t *testing.T) {
	t.Parallel()

	loader, commandDir, _ := newTestLoader(t)
	content := "---\nname: first\n---\nSame body\n"
	writeDoc(t, commandDir, "a.md", content)
	writeDoc(t, commandDir, "b.md", content)

	count, err := loader.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll error: %v", err)
	}
	if count != 1 {
		t.Errorf("identical files should dedupe to 1, got %d", count)
	}
}

func TestLoader_SkipsBadYAML(t *testing.T) {
	t.Parallel()

	loader, commandDir, _ := newTestLoader(t)
	writeDoc(t, commandDir, "broken.md", "---\nname: [unclosed\n---\nBody\n")
	writeDoc(t, commandDir, "fine.md", "---\nname: fine\n---\nBody\n")

	count, err := loader.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll error: %v", err)
	}
	if count != 1 {
		t.Errorf("bad document should be skipped, got %d loaded", count)
	}
}

func TestLoader_MissingDirsAreEmpty(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	loader := NewLoader(filepath.Join(root, "nope"), filepath.Join(root, "also-nope"), testAllowedTools)

	count, err := loader.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll error: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 documents, got %d", count)
	}
}

func TestLoader_ListSorted(t *testing.T) {
	t.Parallel()

	loader, commandDir, skillDir := newTestLoader(t)
	writeDoc(t, skillDir, "zeta.md", "---\nname: zeta\n---\nZ\n")
	writeDoc(t, commandDir, "beta.md", "---\nname: beta\n---\nB\n")
	writeDoc(t, commandDir, "alpha.md", "---\nname: alpha\n---\nA\n")

	if _, err := loader.LoadAll(); err != nil {
		t.Fatalf("LoadAll error: %v", err)
	}

	docs := loader.List()
	if len(docs) != 3 {
		t.Fatalf("expected 3 documents, got %d", len(docs))
	}
	got := []string{docs[0].Name, docs[1].Name, docs[2].Name}
	want := []string{"alpha", "beta", "zeta"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
	if docs[2].Kind != KindSkill {
		t.Errorf("skills should sort after commands")
	}
}
