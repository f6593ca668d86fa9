// Package registry discovers workspace assets and keeps a tagged inventory
// in the steward database. A scan walks the top-level directories in
// parallel, tags each file through regex rules, and upserts the result so
// first-seen timestamps survive rescans.
package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/sync/errgroup"

	"steward/internal/config"
	"steward/internal/logging"
)

// Asset is one tracked workspace file.
type Asset struct {
	Path      string    `json:"path"` // workspace-relative, slash-separated
	Module    string    `json:"module,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Size      int64     `json:"size"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// ModuleResolver maps a file path to its owning module name.
type ModuleResolver interface {
	ResolveModule(path string) string
}

// defaultTagRules classify common file shapes before user rules apply.
var defaultTagRules = []tagRule{
	{regexp.MustCompile(`_test\.go$`), "tests"},
	{regexp.MustCompile(`\.go$`), "go"},
	{regexp.MustCompile(`(^|/)api(/|$)`), "api"},
	{regexp.MustCompile(`(^|/)cmd(/|$)`), "cli"},
	{regexp.MustCompile(`(^|/)internal(/|$)`), "internal"},
	{regexp.MustCompile(`\.(md|rst|txt)$`), "docs"},
	{regexp.MustCompile(`\.(ya?ml|toml|json)$`), "config"},
	{regexp.MustCompile(`(^|/)(Makefile|Dockerfile)$`), "build"},
	{regexp.MustCompile(`\.(sh|bash)$`), "script"},
}

type tagRule struct {
	re  *regexp.Regexp
	tag string
}

// Registry scans the workspace and stores the asset inventory.
type Registry struct {
	db         *sql.DB
	workspace  string
	ignoreDirs map[string]bool
	rules      []tagRule
	resolver   ModuleResolver
	mu         sync.Mutex
}

// New creates or opens the registry store. User tag rules from the config
// are compiled after the defaults; a rule with a bad regex is skipped.
func New(workspace, stewardDir string, cfg config.RegistryConfig, resolver ModuleResolver) (*Registry, error) {
	dbPath := filepath.Join(stewardDir, "registry.db")
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ignore := make(map[string]bool, len(cfg.IgnoreDirs))
	for _, d := range cfg.IgnoreDirs {
		ignore[d] = true
	}

	rules := make([]tagRule, 0, len(defaultTagRules)+len(cfg.TagRules))
	rules = append(rules, defaultTagRules...)
	for _, r := range cfg.TagRules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			logging.Get(logging.CategoryRegistry).Error("skipping tag rule %q: %v", r.Pattern, err)
			continue
		}
		rules = append(rules, tagRule{re, r.Tag})
	}

	reg := &Registry{
		db:         db,
		workspace:  workspace,
		ignoreDirs: ignore,
		rules:      rules,
		resolver:   resolver,
	}
	if err := reg.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return reg, nil
}

// Close closes the database connection.
func (r *Registry) Close() error {
	return r.db.Close()
}

func (r *Registry) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS assets (
		path TEXT PRIMARY KEY,
		module TEXT,
		tags_json TEXT,
		size INTEGER NOT NULL,
		first_seen DATETIME NOT NULL,
		last_seen DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_assets_module ON assets(module);
	`
	_, err := r.db.Exec(schema)
	return err
}

// ScanResult summarizes one workspace scan.
type ScanResult struct {
	Scanned  int           `json:"scanned"`
	Removed  int           `json:"removed"` // assets no longer on disk
	Duration time.Duration `json:"duration"`
}

// Scan walks the workspace and refreshes the inventory. Top-level
// directories are walked concurrently; files under ignored directories and
// dotfiles at the root are skipped. Assets that disappeared from disk are
// pruned afterwards.
func (r *Registry) Scan(ctx context.Context) (ScanResult, error) {
	start := time.Now()

	entries, err := os.ReadDir(r.workspace)
	if err != nil {
		return ScanResult{}, fmt.Errorf("failed to read workspace: %w", err)
	}

	var mu sync.Mutex
	var found []Asset

	collect := func(assets []Asset) {
		mu.Lock()
		found = append(found, assets...)
		mu.Unlock()
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, entry := range entries {
		if r.skipEntry(entry.Name()) {
			continue
		}

		if !entry.IsDir() {
			a, err := r.assetFor(filepath.Join(r.workspace, entry.Name()))
			if err == nil {
				collect([]Asset{a})
			}
			continue
		}

		dir := filepath.Join(r.workspace, entry.Name())
		g.Go(func() error {
			assets, err := r.walkDir(ctx, dir)
			if err != nil {
				return err
			}
			collect(assets)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ScanResult{}, err
	}

	if err := r.store(found); err != nil {
		return ScanResult{}, err
	}
	removed, err := r.prune(found)
	if err != nil {
		return ScanResult{}, err
	}

	res := ScanResult{Scanned: len(found), Removed: removed, Duration: time.Since(start)}
	logging.Get(logging.CategoryRegistry).Info("scan: %d assets, %d removed in %s", res.Scanned, res.Removed, res.Duration)
	return res, nil
}

func (r *Registry) skipEntry(name string) bool {
	return r.ignoreDirs[name] || strings.HasPrefix(name, ".")
}

func (r *Registry) walkDir(ctx context.Context, dir string) ([]Asset, error) {
	var assets []Asset
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if r.skipEntry(d.Name()) && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		a, err := r.assetFor(path)
		if err != nil {
			return nil // file vanished mid-scan
		}
		assets = append(assets, a)
		return nil
	})
	return assets, err
}

func (r *Registry) assetFor(path string) (Asset, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Asset{}, err
	}

	rel, err := filepath.Rel(r.workspace, path)
	if err != nil {
		return Asset{}, err
	}
	rel = filepath.ToSlash(rel)

	a := Asset{
		Path: rel,
		Tags: r.tagsFor(rel),
		Size: info.Size(),
	}
	if r.resolver != nil {
		a.Module = r.resolver.ResolveModule(rel)
	}
	return a, nil
}

// tagsFor applies every matching rule; tags are deduped and sorted.
func (r *Registry) tagsFor(path string) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, rule := range r.rules {
		if rule.re.MatchString(path) && !seen[rule.tag] {
			seen[rule.tag] = true
			tags = append(tags, rule.tag)
		}
	}
	sort.Strings(tags)
	return tags
}

// store upserts scanned assets, preserving first_seen on conflict.
func (r *Registry) store(assets []Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO assets (path, module, tags_json, size, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			module = excluded.module,
			tags_json = excluded.tags_json,
			size = excluded.size,
			last_seen = excluded.last_seen
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, a := range assets {
		tagsJSON, _ := json.Marshal(a.Tags)
		if _, err := stmt.Exec(a.Path, a.Module, string(tagsJSON), a.Size, now, now); err != nil {
			return fmt.Errorf("failed to store %s: %w", a.Path, err)
		}
	}
	return tx.Commit()
}

// prune removes assets not present in the latest scan.
func (r *Registry) prune(current []Asset) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	live := make(map[string]bool, len(current))
	for _, a := range current {
		live[a.Path] = true
	}

	rows, err := r.db.Query(`SELECT path FROM assets`)
	if err != nil {
		return 0, err
	}
	var stale []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			continue
		}
		if !live[p] {
			stale = append(stale, p)
		}
	}
	rows.Close()

	for _, p := range stale {
		if _, err := r.db.Exec(`DELETE FROM assets WHERE path = ?`, p); err != nil {
			return 0, err
		}
	}
	return len(stale), nil
}

// Filter narrows and pages a List call.
type Filter struct {
	Tag    string // only assets carrying this tag
	Prefix string // only assets under this path prefix
	Module string // only assets owned by this module
	Limit  int    // page size; zero means no limit
	Offset int    // matching assets skipped before the page starts
}

// List returns assets sorted by path, optionally filtered and paged.
// Offset and Limit apply after the other filters.
func (r *Registry) List(f Filter) ([]Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`
		SELECT path, module, tags_json, size, first_seen, last_seen
		FROM assets ORDER BY path ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	skip := f.Offset
	var out []Asset
	for rows.Next() {
		var a Asset
		var module sql.NullString
		var tagsJSON sql.NullString
		if err := rows.Scan(&a.Path, &module, &tagsJSON, &a.Size, &a.FirstSeen, &a.LastSeen); err != nil {
			continue
		}
		a.Module = module.String
		if tagsJSON.Valid {
			json.Unmarshal([]byte(tagsJSON.String), &a.Tags)
		}
		if !matchFilter(a, f) {
			continue
		}
		if skip > 0 {
			skip--
			continue
		}
		out = append(out, a)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, rows.Err()
}

func matchFilter(a Asset, f Filter) bool {
	if f.Prefix != "" && !strings.HasPrefix(a.Path, f.Prefix) {
		return false
	}
	if f.Module != "" && a.Module != f.Module {
		return false
	}
	if f.Tag != "" {
		found := false
		for _, t := range a.Tags {
			if t == f.Tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
