// Package skills loads agent instruction documents from .steward/commands
// and .steward/skills. Documents are markdown with a YAML frontmatter block;
// the loader dedupes identical content by MD5 and validates the tools a
// document requests against the configured allow list.
package skills

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"steward/internal/logging"
)

// Kind distinguishes the two document directories.
type Kind string

const (
	KindCommand Kind = "command" // .steward/commands, one per slash command
	KindSkill   Kind = "skill"   // .steward/skills, reusable instruction sets
)

// Frontmatter is the YAML header of an instruction document.
type Frontmatter struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Requires    []string `yaml:"requires,omitempty"` // tools the document needs
}

// Document is one loaded instruction file.
type Document struct {
	Kind        Kind
	Name        string
	Description string
	Requires    []string
	Body        string
	Path        string
	Checksum    string // MD5 of the raw file content
}

// Loader reads, validates, and caches instruction documents.
type Loader struct {
	mu           sync.RWMutex
	commandDir   string
	skillDir     string
	allowedTools map[string]bool
	docs         map[string]*Document // keyed by kind/name
	checksums    map[string]string    // checksum -> kind/name, for dedupe
}

// NewLoader creates a loader over the two document directories. allowedTools
// is the closed set of tool names a document may require.
func NewLoader(commandDir, skillDir string, allowedTools []string) *Loader {
	allowed := make(map[string]bool, len(allowedTools))
	for _, t := range allowedTools {
		allowed[strings.ToLower(t)] = true
	}
	return &Loader{
		commandDir:   commandDir,
		skillDir:     skillDir,
		allowedTools: allowed,
		docs:         make(map[string]*Document),
		checksums:    make(map[string]string),
	}
}

// LoadAll scans both directories and replaces the cache. Files without a
// frontmatter block, failing to parse, or requesting disallowed tools are
// skipped with a logged error; one bad document never blocks the rest.
func (l *Loader) LoadAll() (int, error) {
	docs := make(map[string]*Document)
	checksums := make(map[string]string)

	for _, src := range []struct {
		dir  string
		kind Kind
	}{
		{l.commandDir, KindCommand},
		{l.skillDir, KindSkill},
	} {
		if src.dir == "" {
			continue
		}
		entries, err := os.ReadDir(src.dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, fmt.Errorf("failed to read %s: %w", src.dir, err)
		}

		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
				continue
			}
			path := filepath.Join(src.dir, entry.Name())
			doc, err := l.loadFile(path, src.kind)
			if err != nil {
				logging.Get(logging.CategorySkills).Error("skipping %s: %v", path, err)
				continue
			}

			if existing, dup := checksums[doc.Checksum]; dup {
				logging.Skills("skipping %s: duplicate of %s", path, existing)
				continue
			}

			key := string(doc.Kind) + "/" + doc.Name
			if _, clash := docs[key]; clash {
				logging.Get(logging.CategorySkills).Error("skipping %s: name %q already loaded", path, doc.Name)
				continue
			}

			docs[key] = doc
			checksums[doc.Checksum] = key
		}
	}

	l.mu.Lock()
	l.docs = docs
	l.checksums = checksums
	l.mu.Unlock()

	logging.Skills("loaded %d instruction documents", len(docs))
	return len(docs), nil
}

// loadFile parses one document and validates its required tools.
func (l *Loader) loadFile(path string, kind Kind) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	fm, body, err := splitFrontmatter(string(data))
	if err != nil {
		return nil, err
	}

	name := fm.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), ".md")
	}

	for _, tool := range fm.Requires {
		if !l.allowedTools[strings.ToLower(tool)] {
			return nil, fmt.Errorf("document requires disallowed tool %q", tool)
		}
	}

	sum := md5.Sum(data)
	return &Document{
		Kind:        kind,
		Name:        name,
		Description: fm.Description,
		Requires:    fm.Requires,
		Body:        body,
		Path:        path,
		Checksum:    hex.EncodeToString(sum[:]),
	}, nil
}

// splitFrontmatter separates the YAML header from the markdown body. The
// header is required; a file without one is not an instruction document.
func splitFrontmatter(content string) (Frontmatter, string, error) {
	var fm Frontmatter

	if !strings.HasPrefix(content, "---\n") && !strings.HasPrefix(content, "---\r\n") {
		return fm, "", fmt.Errorf("missing frontmatter block")
	}

	rest := content[strings.Index(content, "\n")+1:]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return fm, "", fmt.Errorf("unterminated frontmatter block")
	}

	header := rest[:end]
	body := rest[end+len("\n---"):]
	if idx := strings.Index(body, "\n"); idx >= 0 {
		body = body[idx+1:]
	} else {
		body = ""
	}

	if err := yaml.Unmarshal([]byte(header), &fm); err != nil {
		return fm, "", fmt.Errorf("invalid frontmatter: %w", err)
	}
	return fm, strings.TrimLeft(body, "\n"), nil
}

// Get returns a loaded document by kind and name.
func (l *Loader) Get(kind Kind, name string) (*Document, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	doc, ok := l.docs[string(kind)+"/"+name]
	return doc, ok
}

// List returns the loaded documents sorted by kind then name.
func (l *Loader) List() []*Document {
	l.mu.RLock()
	defer l.mu.RUnlock()

	docs := make([]*Document, 0, len(l.docs))
	for _, d := range l.docs {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Kind != docs[j].Kind {
			return docs[i].Kind < docs[j].Kind
		}
		return docs[i].Name < docs[j].Name
	})
	return docs
}
