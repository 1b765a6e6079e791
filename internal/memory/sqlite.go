package memory

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists ideas, notes, conversations, graphs, branches and
// snapshots in a single SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens (or creates) the database at dbPath.
// Pass ":memory:" for an ephemeral database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A single connection keeps ":memory:" databases alive across calls and
	// keeps the foreign_keys pragma in effect for every statement.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable WAL: %w", err)
		}
	}

	store := &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}

	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return store, nil
}

// initSchema creates the database tables if they don't exist.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ideas (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',  -- active, completed, archived
		synthesis TEXT,                         -- NULL until first synthesis
		synthesis_version INTEGER NOT NULL DEFAULT 0,
		conversation_id TEXT REFERENCES conversations(id) ON DELETE SET NULL,
		project_path TEXT,                      -- NULL until scaffolded
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS notes (
		id TEXT PRIMARY KEY,
		idea_id TEXT NOT NULL,
		content TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT 'text',    -- voice, text
		created_at TEXT NOT NULL,
		FOREIGN KEY (idea_id) REFERENCES ideas(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		idea_id TEXT REFERENCES ideas(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		system_prompt TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id TEXT NOT NULL,
		role TEXT NOT NULL,                     -- user, assistant, system
		content TEXT NOT NULL,
		created_at TEXT NOT NULL,
		FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS graph_nodes (
		id TEXT PRIMARY KEY,
		idea_id TEXT NOT NULL,
		name TEXT NOT NULL,
		provider TEXT,
		description TEXT,
		pricing TEXT,                           -- JSON object
		x REAL NOT NULL DEFAULT 0,
		y REAL NOT NULL DEFAULT 0,
		color TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		FOREIGN KEY (idea_id) REFERENCES ideas(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS graph_edges (
		id TEXT PRIMARY KEY,
		idea_id TEXT NOT NULL,
		source_id TEXT NOT NULL,
		target_id TEXT NOT NULL,
		label TEXT,
		technical_details TEXT,                 -- JSON object
		created_at TEXT NOT NULL,
		FOREIGN KEY (idea_id) REFERENCES ideas(id) ON DELETE CASCADE,
		FOREIGN KEY (source_id) REFERENCES graph_nodes(id) ON DELETE CASCADE,
		FOREIGN KEY (target_id) REFERENCES graph_nodes(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS conversation_branches (
		id TEXT PRIMARY KEY,
		idea_id TEXT NOT NULL,
		parent_id TEXT REFERENCES conversation_branches(id),
		conversation_id TEXT REFERENCES conversations(id) ON DELETE SET NULL,
		label TEXT NOT NULL,
		depth INTEGER NOT NULL DEFAULT 0,
		folder_name TEXT NOT NULL,
		synthesis TEXT,                         -- Frozen text, stale while active
		graph_state TEXT,                       -- Frozen JSON {nodes, edges}, stale while active
		compacted_summary TEXT,
		is_active INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		FOREIGN KEY (idea_id) REFERENCES ideas(id) ON DELETE CASCADE,
		UNIQUE(idea_id, folder_name)
	);

	CREATE TABLE IF NOT EXISTS idea_snapshots (
		id TEXT PRIMARY KEY,
		idea_id TEXT NOT NULL,
		version INTEGER NOT NULL,
		synthesis TEXT,
		files TEXT NOT NULL DEFAULT '[]',       -- JSON [{path, content}]
		nodes TEXT NOT NULL DEFAULT '[]',       -- JSON []GraphNode
		edges TEXT NOT NULL DEFAULT '[]',       -- JSON []GraphEdge
		tools_used TEXT NOT NULL DEFAULT '[]',  -- JSON []string
		created_at TEXT NOT NULL,
		FOREIGN KEY (idea_id) REFERENCES ideas(id) ON DELETE CASCADE,
		UNIQUE(idea_id, version)
	);

	-- Indexes
	CREATE INDEX IF NOT EXISTS idx_notes_idea ON notes(idea_id);
	CREATE INDEX IF NOT EXISTS idx_conversations_idea ON conversations(idea_id);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id);
	CREATE INDEX IF NOT EXISTS idx_graph_nodes_idea ON graph_nodes(idea_id);
	CREATE INDEX IF NOT EXISTS idx_graph_edges_idea ON graph_edges(idea_id);
	CREATE INDEX IF NOT EXISTS idx_graph_edges_source ON graph_edges(source_id);
	CREATE INDEX IF NOT EXISTS idx_graph_edges_target ON graph_edges(target_id);
	CREATE INDEX IF NOT EXISTS idx_branches_idea ON conversation_branches(idea_id);
	CREATE INDEX IF NOT EXISTS idx_branches_parent ON conversation_branches(parent_id);

	-- At most one active branch and one root per idea
	CREATE UNIQUE INDEX IF NOT EXISTS idx_branches_one_active
		ON conversation_branches(idea_id) WHERE is_active = 1;
	CREATE UNIQUE INDEX IF NOT EXISTS idx_branches_one_root
		ON conversation_branches(idea_id) WHERE parent_id IS NULL;
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Columns added after the first release. Databases created before them
	// are upgraded in place.
	migrations := []struct {
		table  string
		column string
		sql    string
	}{
		{"conversation_branches", "summary_message_count", "ALTER TABLE conversation_branches ADD COLUMN summary_message_count INTEGER NOT NULL DEFAULT 0"},
		{"idea_snapshots", "branch_id", "ALTER TABLE idea_snapshots ADD COLUMN branch_id TEXT"}, // Active branch at capture time
	}

	for _, m := range migrations {
		exists, err := s.columnExists(m.table, m.column)
		if err != nil {
			return fmt.Errorf("inspect %s: %w", m.table, err)
		}
		if exists {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("migration %s.%s failed: %w", m.table, m.column, err)
		}
	}

	return nil
}

func (s *SQLiteStore) columnExists(table, column string) (bool, error) {
	rows, err := s.db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		return false, err
	}
	defer func() { _ = rows.Close() }()

	found := false
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			found = true
		}
	}
	if err := checkRowsErr(rows); err != nil {
		return false, err
	}
	return found, nil
}

// withTx runs fn inside a transaction, committing on success.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// === Lifecycle ===

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying database handle.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Path returns the database location this store was opened with.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}
