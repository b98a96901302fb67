// Package store persists analysis results in SQLite so that symbols of
// earlier runs can be queried without reparsing.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"cxxsema/internal/encoding"
	"cxxsema/internal/source"
	"cxxsema/internal/symbols"
	"cxxsema/internal/syntax"
)

const schemaVersion = 1

// ErrUnknownRun is returned for run ids the database does not hold.
var ErrUnknownRun = errors.New("unknown run")

// Store wraps one SQLite database.
type Store struct {
	conn   *sql.DB
	dbPath string
}

// Open opens or creates the database at path. ":memory:" gives a private
// in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a second pooled connection would see a different :memory: database
	conn.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	if path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL", "PRAGMA synchronous=NORMAL")
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &Store{conn: conn, dbPath: path}
	if err := s.initializeSchema(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initializeSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			language TEXT NOT NULL,
			tool_version TEXT NOT NULL,
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_runs_path ON runs(path);

		CREATE TABLE IF NOT EXISTS scopes (
			run TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			id INTEGER NOT NULL,
			kind TEXT NOT NULL,
			outer_id INTEGER NOT NULL,
			name BLOB,
			PRIMARY KEY (run, id)
		);

		CREATE TABLE IF NOT EXISTS symbols (
			run TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			id INTEGER NOT NULL,
			scope INTEGER NOT NULL,
			kind TEXT NOT NULL,
			name BLOB NOT NULL,
			qualified TEXT NOT NULL,
			type BLOB,
			definition INTEGER NOT NULL,
			value INTEGER,
			params INTEGER NOT NULL DEFAULT 0,
			default_args INTEGER NOT NULL DEFAULT 0,
			line INTEGER NOT NULL DEFAULT 0,
			col INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (run, id)
		);
		CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(run, name);
		CREATE INDEX IF NOT EXISTS idx_symbols_qualified ON symbols(qualified);

		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);
	`
	if _, err := s.conn.Exec(schema); err != nil {
		return err
	}
	_, err := s.conn.Exec("INSERT OR REPLACE INTO schema_version (version) VALUES (?)", schemaVersion)
	return err
}

// Path returns the database location.
func (s *Store) Path() string { return s.dbPath }

// Close closes the database connection.
func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// Run is one analyzed translation unit to be saved.
type Run struct {
	Path        string
	Language    string
	ToolVersion string
	Snapshot    *symbols.Snapshot
	// Position maps declaring nodes to source positions. May be nil.
	Position func(syntax.NodeID) source.LineCol
}

// RunInfo describes a saved run.
type RunInfo struct {
	ID          string    `json:"id" yaml:"id"`
	Path        string    `json:"path" yaml:"path"`
	Language    string    `json:"language" yaml:"language"`
	ToolVersion string    `json:"tool_version" yaml:"tool_version"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// SymbolRow is a saved symbol. Name and Type keep their exact encoding.
type SymbolRow struct {
	Run         string            `json:"run" yaml:"run"`
	ID          symbols.SymbolID  `json:"id" yaml:"id"`
	Scope       symbols.ScopeID   `json:"scope" yaml:"scope"`
	Kind        string            `json:"kind" yaml:"kind"`
	Name        encoding.Encoding `json:"-" yaml:"-"`
	Qualified   string            `json:"qualified" yaml:"qualified"`
	Type        encoding.Encoding `json:"-" yaml:"-"`
	TypeDisplay string            `json:"type,omitempty" yaml:"type,omitempty"`
	Definition  bool              `json:"definition" yaml:"definition"`
	Value       *int64            `json:"value,omitempty" yaml:"value,omitempty"`
	Params      int               `json:"params,omitempty" yaml:"params,omitempty"`
	DefaultArgs int               `json:"default_args,omitempty" yaml:"default_args,omitempty"`
	Line        uint32            `json:"line,omitempty" yaml:"line,omitempty"`
	Col         uint32            `json:"col,omitempty" yaml:"col,omitempty"`
}

// SaveRun stores the run in one transaction and returns its id.
func (s *Store) SaveRun(ctx context.Context, run Run) (string, error) {
	if run.Snapshot == nil {
		return "", errors.New("save run: nil snapshot")
	}
	id := uuid.New().String()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO runs (id, path, language, tool_version, created_at) VALUES (?, ?, ?, ?, ?)",
		id, run.Path, run.Language, run.ToolVersion, time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	scopeStmt, err := tx.PrepareContext(ctx, "INSERT INTO scopes (run, id, kind, outer_id, name) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return "", err
	}
	defer scopeStmt.Close()
	for _, rec := range run.Snapshot.Scopes {
		if _, err := scopeStmt.ExecContext(ctx, id, rec.ID, rec.Kind, rec.Outer, rec.Name); err != nil {
			return "", fmt.Errorf("insert scope %d: %w", rec.ID, err)
		}
	}

	symStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO symbols (run, id, scope, kind, name, qualified, type, definition, value, params, default_args, line, col)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer symStmt.Close()
	for _, rec := range run.Snapshot.Symbols {
		var pos source.LineCol
		if run.Position != nil {
			pos = run.Position(rec.Node)
		}
		var value sql.NullInt64
		if rec.Value != nil {
			value = sql.NullInt64{Int64: *rec.Value, Valid: true}
		}
		if _, err := symStmt.ExecContext(ctx,
			id, rec.ID, rec.Scope, rec.Kind, nonNil(rec.Name), run.Snapshot.QualifiedName(rec.ID), rec.Type,
			rec.Definition, value, rec.Params, rec.DefaultArgs, pos.Line, pos.Col,
		); err != nil {
			return "", fmt.Errorf("insert symbol %d: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// Runs lists saved runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.conn.QueryContext(ctx,
		"SELECT id, path, language, tool_version, created_at FROM runs ORDER BY created_at DESC, rowid DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunInfo
	for rows.Next() {
		var info RunInfo
		var created string
		if err := rows.Scan(&info.ID, &info.Path, &info.Language, &info.ToolVersion, &created); err != nil {
			return nil, err
		}
		info.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("run %s: %w", info.ID, err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// LatestRun returns the newest run of path.
func (s *Store) LatestRun(ctx context.Context, path string) (string, error) {
	var id string
	err := s.conn.QueryRowContext(ctx,
		"SELECT id FROM runs WHERE path = ? ORDER BY created_at DESC, rowid DESC LIMIT 1", path).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w for %s", ErrUnknownRun, path)
	}
	return id, err
}

const symbolColumns = "run, id, scope, kind, name, qualified, type, definition, value, params, default_args, line, col"

// FindSymbols returns the symbols of a run whose simple name is exactly
// name, byte for byte.
func (s *Store) FindSymbols(ctx context.Context, runID string, name encoding.Encoding) ([]SymbolRow, error) {
	if err := s.checkRun(ctx, runID); err != nil {
		return nil, err
	}
	return s.querySymbols(ctx,
		"SELECT "+symbolColumns+" FROM symbols WHERE run = ? AND name = ? ORDER BY id",
		runID, name.Bytes())
}

// FindQualified searches every run for symbols with the given qualified
// name, as rendered by symbols.Snapshot.QualifiedName.
func (s *Store) FindQualified(ctx context.Context, qualified string) ([]SymbolRow, error) {
	return s.querySymbols(ctx,
		"SELECT "+symbolColumns+" FROM symbols WHERE qualified = ? ORDER BY run, id",
		qualified)
}

// DeleteRun removes a run with its scopes and symbols.
func (s *Store) DeleteRun(ctx context.Context, runID string) error {
	res, err := s.conn.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", runID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w %s", ErrUnknownRun, runID)
	}
	return nil
}

func (s *Store) checkRun(ctx context.Context, runID string) error {
	var one int
	err := s.conn.QueryRowContext(ctx, "SELECT 1 FROM runs WHERE id = ?", runID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w %s", ErrUnknownRun, runID)
	}
	return err
}

func (s *Store) querySymbols(ctx context.Context, query string, args ...any) ([]SymbolRow, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SymbolRow
	for rows.Next() {
		var row SymbolRow
		var name, typ []byte
		var value sql.NullInt64
		if err := rows.Scan(&row.Run, &row.ID, &row.Scope, &row.Kind, &name, &row.Qualified, &typ,
			&row.Definition, &value, &row.Params, &row.DefaultArgs, &row.Line, &row.Col); err != nil {
			return nil, err
		}
		row.Name = encoding.FromBytes(name)
		row.Type = encoding.FromBytes(typ)
		row.TypeDisplay = row.Type.Unmangled()
		if value.Valid {
			v := value.Int64
			row.Value = &v
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// nonNil keeps an empty name from being stored as NULL.
func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
