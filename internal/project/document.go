package project

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"steward/internal/logging"
)

// Load reads and parses PROJECT.md from the workspace root.
func Load(workspace string) (*Descriptor, error) {
	docPath := filepath.Join(workspace, DocumentName)
	data, err := os.ReadFile(docPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", DocumentName, err)
	}

	d, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", DocumentName, err)
	}

	logging.Get(logging.CategoryProject).Debug("Loaded descriptor: %d modules, %d history entries", len(d.Modules), len(d.History))
	return d, nil
}

// Save renders and writes the descriptor to the workspace root.
func Save(workspace string, d *Descriptor) error {
	docPath := filepath.Join(workspace, DocumentName)
	if err := os.WriteFile(docPath, Render(d), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", DocumentName, err)
	}
	return nil
}

// Exists reports whether the workspace has a descriptor document.
func Exists(workspace string) bool {
	_, err := os.Stat(filepath.Join(workspace, DocumentName))
	return err == nil
}

// ModuleFor resolves a file path to the module record whose path pattern
// matches it. When several patterns match, the longest pattern wins.
// The boolean is false when no module claims the path.
func (d *Descriptor) ModuleFor(file string) (*Module, bool) {
	file = path.Clean(toSlash(file))
	file = strings.TrimPrefix(file, "./")

	var best *Module
	bestLen := -1
	for i := range d.Modules {
		m := &d.Modules[i]
		if matchPattern(m.PathPattern, file) && len(m.PathPattern) > bestLen {
			best = m
			bestLen = len(m.PathPattern)
		}
	}
	return best, best != nil
}

// matchPattern matches a file path against a module path pattern.
// Supported forms:
//   - "internal/goal/**"  prefix match on the directory
//   - "cmd/*/main.go"     path.Match glob per segment
//   - "go.mod"            exact match
//   - "internal/goal"     directory match (the path or anything under it)
func matchPattern(pattern, file string) bool {
	pattern = strings.TrimPrefix(path.Clean(toSlash(pattern)), "./")
	if pattern == "" || pattern == "." {
		return false
	}

	if prefix, ok := strings.CutSuffix(pattern, "/**"); ok {
		return file == prefix || strings.HasPrefix(file, prefix+"/")
	}

	if strings.ContainsAny(pattern, "*?[") {
		ok, err := path.Match(pattern, file)
		return err == nil && ok
	}

	return file == pattern || strings.HasPrefix(file, pattern+"/")
}

// toSlash converts separators unconditionally. filepath.ToSlash is a no-op
// on Unix, but backslash paths still arrive from Windows-authored tooling.
func toSlash(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}
