package registry

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"steward/internal/config"
)

type staticResolver map[string]string

func (r staticResolver) ResolveModule(path string) string {
	for prefix, mod := range r {
		if strings.HasPrefix(path, prefix) {
			return mod
		}
	}
	return ""
}

func newTestRegistry(t *testing.T, resolver ModuleResolver) (*Registry, string) {
	t.Helper()
	workspace := t.TempDir()

	files := map[string]string{
		"go.mod":                         "module example\n",
		"README.md":                      "# Example\n",
		"internal/parser/parser.go":      "package parser\n",
		"internal/parser/parser_test.go": "package parser\n",
		"scripts/build.sh":               "#!/bin/sh\n",
		".git/HEAD":                      "ref: refs/heads/main\n",
		"vendor/dep/dep.go":              "package dep\n",
	}
	for name, content := range files {
		path := filepath.Join(workspace, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	reg, err := New(workspace, filepath.Join(workspace, ".steward"), config.DefaultConfig().Registry, resolver)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	t.Cleanup(func() { reg.Close() })
	return reg, workspace
}

func TestRegistry_Scan(t *testing.T) {
	t.Parallel()

	reg, _ := newTestRegistry(t, staticResolver{"internal/parser": "parser"})

	res, err := reg.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	// .git and vendor are ignored
	if res.Scanned != 5 {
		t.Errorf("scanned = %d, want 5", res.Scanned)
	}

	assets, err := reg.List(Filter{})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(assets) != 5 {
		t.Fatalf("expected 5 assets, got %d", len(assets))
	}
	for _, a := range assets {
		if strings.HasPrefix(a.Path, ".git/") || strings.HasPrefix(a.Path, "vendor/") {
			t.Errorf("ignored directory leaked into inventory: %s", a.Path)
		}
		if a.FirstSeen.IsZero() || a.LastSeen.IsZero() {
			t.Errorf("asset %s missing timestamps", a.Path)
		}
	}
}

func TestRegistry_Tagging(t *testing.T) {
	t.Parallel()

	reg, _ := newTestRegistry(t, nil)
	if _, err := reg.Scan(context.Background()); err != nil {
		t.Fatalf("Scan error: %v", err)
	}

	cases := map[string][]string{
		"internal/parser/parser.go":      {"go", "internal"},
		"internal/parser/parser_test.go": {"go", "internal", "tests"},
		"README.md":                      {"docs"},
		"scripts/build.sh":               {"script"},
	}
	for path, wantTags := range cases {
		assets, err := reg.List(Filter{Prefix: path})
		if err != nil {
			t.Fatalf("List error: %v", err)
		}
		if len(assets) != 1 {
			t.Fatalf("expected 1 asset for %s, got %d", path, len(assets))
		}
		got := assets[0].Tags
		if len(got) != len(wantTags) {
			t.Errorf("%s tags = %v, want %v", path, got, wantTags)
			continue
		}
		for i := range wantTags {
			if got[i] != wantTags[i] {
				t.Errorf("%s tags = %v, want %v", path, got, wantTags)
				break
			}
		}
	}
}

func TestRegistry_CustomTagRule(t *testing.T) {
	t.Parallel()

	workspace := t.TempDir()
	if err := os.WriteFile(filepath.Join(workspace, "deploy.proto"), []byte("syntax"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg := config.DefaultConfig().Registry
	cfg.TagRules = append(cfg.TagRules, config.TagRule{Pattern: `\.proto$`, Tag: "proto"})

	reg, err := New(workspace, filepath.Join(workspace, ".steward"), cfg, nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	t.Cleanup(func() { reg.Close() })

	if _, err := reg.Scan(context.Background()); err != nil {
		t.Fatalf("Scan error: %v", err)
	}

	assets, err := reg.List(Filter{Tag: "proto"})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(assets) != 1 || assets[0].Path != "deploy.proto" {
		t.Errorf("custom tag rule not applied: %+v", assets)
	}
}

func TestRegistry_ListPaging(t *testing.T) {
	t.Parallel()

	reg, _ := newTestRegistry(t, nil)
	if _, err := reg.Scan(context.Background()); err != nil {
		t.Fatalf("Scan error: %v", err)
	}

	all, err := reg.List(Filter{})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5 assets, got %d", len(all))
	}

	page, err := reg.List(Filter{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected a 2-asset page, got %d", len(page))
	}
	if page[0].Path != all[1].Path || page[1].Path != all[2].Path {
		t.Errorf("page = [%s %s], want [%s %s]", page[0].Path, page[1].Path, all[1].Path, all[2].Path)
	}

	// Offset past the end yields an empty page, not an error
	tail, err := reg.List(Filter{Offset: 10})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(tail) != 0 {
		t.Errorf("expected an empty page past the end, got %d", len(tail))
	}
}

func TestRegistry_ModuleFilter(t *testing.T) {
	t.Parallel()

	reg, _ := newTestRegistry(t, staticResolver{"internal/parser": "parser"})
	if _, err := reg.Scan(context.Background()); err != nil {
		t.Fatalf("Scan error: %v", err)
	}

	assets, err := reg.List(Filter{Module: "parser"})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(assets) != 2 {
		t.Fatalf("expected 2 parser assets, got %d", len(assets))
	}
}

func TestRegistry_RescanPrunesDeleted(t *testing.T) {
	t.Parallel()

	reg, workspace := newTestRegistry(t, nil)
	if _, err := reg.Scan(context.Background()); err != nil {
		t.Fatalf("Scan error: %v", err)
	}

	if err := os.Remove(filepath.Join(workspace, "README.md")); err != nil {
		t.Fatalf("remove: %v", err)
	}

	res, err := reg.Scan(context.Background())
	if err != nil {
		t.Fatalf("rescan error: %v", err)
	}
	if res.Removed != 1 {
		t.Errorf("removed = %d, want 1", res.Removed)
	}

	assets, err := reg.List(Filter{Prefix: "README.md"})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(assets) != 0 {
		t.Errorf("deleted asset should be pruned, got %+v", assets)
	}
}

func TestRegistry_RescanPreservesFirstSeen(t *testing.T) {
	t.Parallel()

	reg, _ := newTestRegistry(t, nil)
	if _, err := reg.Scan(context.Background()); err != nil {
		t.Fatalf("Scan error: %v", err)
	}

	before, err := reg.List(Filter{Prefix: "go.mod"})
	if err != nil || len(before) != 1 {
		t.Fatalf("List error: %v (%d assets)", err, len(before))
	}

	if _, err := reg.Scan(context.Background()); err != nil {
		t.Fatalf("rescan error: %v", err)
	}

	after, err := reg.List(Filter{Prefix: "go.mod"})
	if err != nil || len(after) != 1 {
		t.Fatalf("List error: %v (%d assets)", err, len(after))
	}
	if !after[0].FirstSeen.Equal(before[0].FirstSeen) {
		t.Errorf("first_seen changed across rescans: %v -> %v", before[0].FirstSeen, after[0].FirstSeen)
	}
	if after[0].LastSeen.Before(before[0].LastSeen) {
		t.Errorf("last_seen should advance or stay equal")
	}
}
