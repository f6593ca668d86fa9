package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"steward/internal/config"
	"steward/internal/goal"
	"steward/internal/guard"
	"steward/internal/logging"
	"steward/internal/policy"
	"steward/internal/project"
	"steward/internal/registry"
	"steward/internal/skills"
	"steward/internal/stats"
	"steward/internal/workspace"
)

// Output styles shared by all commands.
var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// app bundles the long-lived components a command needs. Close it when done.
type app struct {
	workspace  string
	stewardDir string
	cfg        *config.Config
	userCfg    *config.UserConfig

	goals     *goal.Store
	policy    *policy.Engine
	audit     *logging.AuditLogger
	collector *stats.Collector
	guard     *guard.Guard
	loader    *skills.Loader
}

// fileDescriptorSource reloads PROJECT.md on every policy check so manual
// edits take effect without restarting.
type fileDescriptorSource struct {
	workspace string
}

func (s *fileDescriptorSource) Descriptor() (*project.Descriptor, error) {
	return project.Load(s.workspace)
}

// openApp wires the stores and engines for an initialized workspace.
func openApp() (*app, error) {
	ws := resolveWorkspace()
	if !workspace.IsInitialized(ws) {
		return nil, fmt.Errorf("workspace %s is not initialized (run 'steward init')", ws)
	}
	stewardDir := workspace.StewardDir(ws)

	cfg, err := config.Load(filepath.Join(ws, "steward.yaml"))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	userCfg, err := config.LoadUserConfig(filepath.Join(stewardDir, "config.json"))
	if err != nil {
		return nil, err
	}

	audit, err := logging.NewAuditLogger(filepath.Join(stewardDir, "audit"), logging.AuditOptions{
		MaxFileSize: cfg.Logging.AuditMaxFileSize,
		MaxFiles:    cfg.Logging.AuditMaxFiles,
	})
	if err != nil {
		return nil, err
	}

	goals, err := goal.NewStore(stewardDir)
	if err != nil {
		audit.Close()
		return nil, err
	}

	collector, err := stats.NewCollector(stewardDir)
	if err != nil {
		goals.Close()
		audit.Close()
		return nil, err
	}

	defaultLevel, err := project.ParseLevel(cfg.Policy.DefaultLevel)
	if err != nil {
		defaultLevel = project.LevelActive
	}
	engine := policy.NewEngine(
		&fileDescriptorSource{workspace: ws},
		cfg.GetConfirmTTL(),
		policy.WithAuditor(audit),
		policy.WithDefaultLevel(defaultLevel),
	)
	engine.Restore(loadGrants(stewardDir))

	g := guard.New(cfg, collector)
	if timeout > 0 {
		for _, key := range []string{"commit", "scan", "reload", "ask"} {
			g.SetTimeout(key, timeout)
		}
	}

	loader := skills.NewLoader(
		filepath.Join(stewardDir, cfg.Skills.CommandDir),
		filepath.Join(stewardDir, cfg.Skills.SkillDir),
		cfg.Skills.AllowedTools,
	)

	return &app{
		workspace:  ws,
		stewardDir: stewardDir,
		cfg:        cfg,
		userCfg:    userCfg,
		goals:      goals,
		policy:     engine,
		audit:      audit,
		collector:  collector,
		guard:      g,
		loader:     loader,
	}, nil
}

// Close persists live grants and releases the app's stores. Grants survive
// between CLI invocations so a confirm in one run covers the commit in the
// next.
func (a *app) Close() {
	saveGrants(a.stewardDir, a.policy.Grants())
	a.collector.Close()
	a.goals.Close()
	a.audit.Close()
}

func grantsPath(stewardDir string) string {
	return filepath.Join(stewardDir, "grants.json")
}

func loadGrants(stewardDir string) []policy.Grant {
	data, err := os.ReadFile(grantsPath(stewardDir))
	if err != nil {
		return nil
	}
	var grants []policy.Grant
	if err := json.Unmarshal(data, &grants); err != nil {
		return nil
	}
	return grants
}

func saveGrants(stewardDir string, grants []policy.Grant) {
	data, err := json.MarshalIndent(grants, "", "  ")
	if err != nil {
		return
	}
	os.WriteFile(grantsPath(stewardDir), data, 0644)
}

// operatorName resolves the identity written on grants and history entries:
// the --operator flag, then the user config, then $USER.
func (a *app) operatorName() string {
	if operator != "" {
		return operator
	}
	if a.userCfg.Operator != "" {
		return a.userCfg.Operator
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "unknown"
}

// newRegistry opens the asset registry, resolving modules through PROJECT.md.
func (a *app) newRegistry() (*registry.Registry, error) {
	return registry.New(a.workspace, a.stewardDir, a.cfg.Registry, &descriptorResolver{workspace: a.workspace})
}

type descriptorResolver struct {
	workspace string
}

func (r *descriptorResolver) ResolveModule(path string) string {
	d, err := project.Load(r.workspace)
	if err != nil {
		return ""
	}
	if mod, ok := d.ModuleFor(path); ok {
		return mod.Name
	}
	return ""
}

// syncDocuments re-renders GOAL.md and the descriptor's goal pointer after a
// goal mutation. g may be nil when no goal is active.
func (a *app) syncDocuments(g *goal.Goal) error {
	if err := goal.WriteDocument(a.workspace, g); err != nil {
		return err
	}

	d, err := project.Load(a.workspace)
	if err != nil {
		return err
	}
	if g != nil && g.Active() {
		d.CurrentGoal = g.Description
	} else {
		d.CurrentGoal = ""
	}
	return project.Save(a.workspace, d)
}

// renderMarkdown renders markdown for the terminal, honoring the configured
// theme. Plain text comes back on renderer failure.
func (a *app) renderMarkdown(md string) string {
	var renderer *glamour.TermRenderer
	var err error
	switch a.userCfg.GetTheme() {
	case "auto":
		renderer, err = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
	default:
		renderer, err = glamour.NewTermRenderer(
			glamour.WithStylePath(a.userCfg.GetTheme()),
			glamour.WithWordWrap(100),
		)
	}
	if err != nil {
		return md
	}
	out, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}
