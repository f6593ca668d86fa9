package goal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"steward/internal/logging"
)

// Store manages goal state in the steward database.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// NewStore creates or opens the goal store under the .steward directory.
func NewStore(stewardDir string) (*Store, error) {
	dbPath := filepath.Join(stewardDir, "steward.db")

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{
		db:     db,
		dbPath: dbPath,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// initSchema creates the database schema.
func (s *Store) initSchema() error {
	schema := `
	-- Goals table
	CREATE TABLE IF NOT EXISTS goals (
		id TEXT PRIMARY KEY,
		description TEXT NOT NULL,
		status TEXT NOT NULL,
		priority INTEGER NOT NULL,
		criteria_json TEXT,
		created_at DATETIME NOT NULL,
		completed_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_goals_status ON goals(status);
	CREATE INDEX IF NOT EXISTS idx_goals_created ON goals(created_at);

	-- Progress log (append-only, ordered by timestamp then rowid)
	CREATE TABLE IF NOT EXISTS progress (
		id TEXT PRIMARY KEY,
		goal_id TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		note TEXT NOT NULL,
		FOREIGN KEY (goal_id) REFERENCES goals(id)
	);
	CREATE INDEX IF NOT EXISTS idx_progress_goal ON progress(goal_id);

	-- Status transitions
	CREATE TABLE IF NOT EXISTS transitions (
		id TEXT PRIMARY KEY,
		goal_id TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		from_status TEXT NOT NULL,
		to_status TEXT NOT NULL,
		reason TEXT,
		FOREIGN KEY (goal_id) REFERENCES goals(id)
	);
	CREATE INDEX IF NOT EXISTS idx_transitions_goal ON transitions(goal_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// GOAL OPERATIONS
// =============================================================================

// Set creates a new goal. At most one active (non-completed) goal may exist;
// when force is true an existing active goal is superseded: it is completed
// with a progress note pointing at the new goal.
func (s *Store) Set(description string, priority Priority, criteria []string, force bool) (*Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.activeGoal()
	if err != nil {
		return nil, err
	}
	if current != nil {
		if !force {
			return nil, fmt.Errorf("%w: %q", ErrActiveGoalExists, current.Description)
		}
		now := time.Now()
		if err := s.appendProgress(current.ID, "Superseded by a new goal."); err != nil {
			return nil, err
		}
		if err := s.transition(current, StatusCompleted, "superseded", now); err != nil {
			return nil, err
		}
	}

	g := &Goal{
		ID:          uuid.NewString(),
		Description: description,
		Status:      StatusInProgress,
		Priority:    priority,
		Criteria:    criteria,
		CreatedAt:   time.Now(),
	}

	criteriaJSON, _ := json.Marshal(g.Criteria)
	_, err = s.db.Exec(`
		INSERT INTO goals (id, description, status, priority, criteria_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, g.ID, g.Description, g.Status, g.Priority, string(criteriaJSON), g.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create goal: %w", err)
	}

	logging.Goal("set goal %s: %s", g.ID, g.Description)
	return g, nil
}

// Active returns the current active goal, or ErrNoActiveGoal.
func (s *Store) Active() (*Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, err := s.activeGoal()
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNoActiveGoal
	}
	return g, nil
}

// activeGoal returns the non-completed goal, or nil. Caller must hold a lock.
func (s *Store) activeGoal() (*Goal, error) {
	row := s.db.QueryRow(`
		SELECT id, description, status, priority, criteria_json, created_at, completed_at
		FROM goals
		WHERE status != ?
		ORDER BY created_at DESC
		LIMIT 1
	`, StatusCompleted)

	g, err := scanGoal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load active goal: %w", err)
	}

	g.Progress, err = s.progressFor(g.ID)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// Get returns a goal by ID with its progress log.
func (s *Store) Get(id string) (*Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT id, description, status, priority, criteria_json, created_at, completed_at
		FROM goals WHERE id = ?
	`, id)

	g, err := scanGoal(row)
	if err == sql.ErrNoRows {
		return nil, ErrGoalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load goal: %w", err)
	}

	g.Progress, err = s.progressFor(g.ID)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// List returns goals newest-first, including completed ones.
func (s *Store) List(limit int) ([]Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, description, status, priority, criteria_json, created_at, completed_at
		FROM goals
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var goals []Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			continue
		}
		goals = append(goals, *g)
	}
	return goals, rows.Err()
}

// =============================================================================
// STATUS TRANSITIONS
// =============================================================================

// Done completes the active goal. Blocked goals must be unblocked first.
func (s *Store) Done() (*Goal, error) {
	return s.transitionActive(StatusCompleted, "")
}

// Block marks the active goal blocked and appends the reason to its progress.
func (s *Store) Block(reason string) (*Goal, error) {
	return s.transitionActive(StatusBlocked, reason)
}

// Unblock returns a blocked goal to in_progress.
func (s *Store) Unblock() (*Goal, error) {
	return s.transitionActive(StatusInProgress, "")
}

func (s *Store) transitionActive(to Status, reason string) (*Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.activeGoal()
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNoActiveGoal
	}

	if !validTransition(g.Status, to) {
		return nil, &TransitionError{From: g.Status, To: to}
	}

	now := time.Now()
	if reason != "" {
		if err := s.appendProgress(g.ID, fmt.Sprintf("Blocked: %s", reason)); err != nil {
			return nil, err
		}
	}
	if err := s.transition(g, to, reason, now); err != nil {
		return nil, err
	}

	g.Progress, err = s.progressFor(g.ID)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// transition writes the status change. Caller must hold the lock.
func (s *Store) transition(g *Goal, to Status, reason string, now time.Time) error {
	from := g.Status

	var completedAt interface{}
	if to == StatusCompleted {
		completedAt = now
	}

	_, err := s.db.Exec(`
		UPDATE goals SET status = ?, completed_at = COALESCE(?, completed_at)
		WHERE id = ?
	`, to, completedAt, g.ID)
	if err != nil {
		return fmt.Errorf("failed to update goal status: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO transitions (id, goal_id, timestamp, from_status, to_status, reason)
		VALUES (?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), g.ID, now, from, to, reason)
	if err != nil {
		return fmt.Errorf("failed to record transition: %w", err)
	}

	g.Status = to
	if to == StatusCompleted {
		g.CompletedAt = &now
	}

	logging.Goal("goal %s: %s -> %s", g.ID, from, to)
	return nil
}

// Transitions returns the status change history for a goal, oldest first.
func (s *Store) Transitions(goalID string) ([]Transition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT timestamp, from_status, to_status, reason
		FROM transitions
		WHERE goal_id = ?
		ORDER BY timestamp ASC, rowid ASC
	`, goalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transitions []Transition
	for rows.Next() {
		var t Transition
		var reason sql.NullString
		if err := rows.Scan(&t.Timestamp, &t.From, &t.To, &reason); err != nil {
			continue
		}
		t.Reason = reason.String
		transitions = append(transitions, t)
	}
	return transitions, rows.Err()
}

// =============================================================================
// PROGRESS LOG
// =============================================================================

// AppendProgress adds an ordered progress entry to the active goal.
func (s *Store) AppendProgress(note string) (*Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.activeGoal()
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNoActiveGoal
	}

	if err := s.appendProgress(g.ID, note); err != nil {
		return nil, err
	}

	g.Progress, err = s.progressFor(g.ID)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// appendProgress inserts a progress row. Caller must hold the lock.
func (s *Store) appendProgress(goalID, note string) error {
	_, err := s.db.Exec(`
		INSERT INTO progress (id, goal_id, timestamp, note)
		VALUES (?, ?, ?, ?)
	`, uuid.NewString(), goalID, time.Now(), note)
	if err != nil {
		return fmt.Errorf("failed to append progress: %w", err)
	}
	return nil
}

// progressFor loads the ordered progress log for a goal.
func (s *Store) progressFor(goalID string) ([]ProgressEntry, error) {
	rows, err := s.db.Query(`
		SELECT timestamp, note
		FROM progress
		WHERE goal_id = ?
		ORDER BY timestamp ASC, rowid ASC
	`, goalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ProgressEntry
	for rows.Next() {
		var e ProgressEntry
		if err := rows.Scan(&e.Timestamp, &e.Note); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// scanner matches both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanGoal(row scanner) (*Goal, error) {
	var g Goal
	var criteriaJSON sql.NullString
	var completedAt sql.NullTime

	if err := row.Scan(&g.ID, &g.Description, &g.Status, &g.Priority,
		&criteriaJSON, &g.CreatedAt, &completedAt); err != nil {
		return nil, err
	}

	if criteriaJSON.Valid {
		json.Unmarshal([]byte(criteriaJSON.String), &g.Criteria)
	}
	if completedAt.Valid {
		t := completedAt.Time
		g.CompletedAt = &t
	}
	return &g, nil
}
