// Package store handles SQLite persistence of operation history.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/verte-zerg/tuicaesar/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for operation history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS operations (
			id INTEGER PRIMARY KEY,
			created_at TEXT NOT NULL,
			mode TEXT NOT NULL,
			input_path TEXT NOT NULL,
			output_path TEXT NOT NULL,
			cipher_key INTEGER NOT NULL,
			candidates TEXT NOT NULL,
			runes INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_operations_created_at ON operations(created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_operations_mode ON operations(mode);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertOperation stores a completed operation and returns its id.
func (s *Store) InsertOperation(ctx context.Context, op model.Operation) (int64, error) {
	if !op.Mode.Valid() {
		return 0, fmt.Errorf("unknown mode %q", op.Mode)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO operations (created_at, mode, input_path, output_path, cipher_key, candidates, runes)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		op.CreatedAt.Format(time.RFC3339Nano),
		string(op.Mode),
		op.InputPath,
		op.OutputPath,
		op.Key,
		joinKeys(op.Candidates),
		op.Runes,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListOperations returns operations oldest first. Last keeps only the most
// recent N after filtering.
func (s *Store) ListOperations(ctx context.Context, filter model.HistoryFilter) ([]model.Operation, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Mode != "" {
		clauses = append(clauses, "mode = ?")
		args = append(args, string(filter.Mode))
	}
	limit := -1
	if filter.Last > 0 {
		limit = filter.Last
	}
	args = append(args, limit)
	query := fmt.Sprintf(`SELECT id, created_at, mode, input_path, output_path, cipher_key, candidates, runes
		FROM (
			SELECT * FROM operations
			WHERE %s
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		)
		ORDER BY created_at ASC, id ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var ops []model.Operation
	for rows.Next() {
		var op model.Operation
		var createdAt, mode, candidates string
		if err := rows.Scan(&op.ID, &createdAt, &mode, &op.InputPath, &op.OutputPath, &op.Key, &candidates, &op.Runes); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, err
		}
		op.CreatedAt = parsed
		op.Mode = model.Mode(mode)
		keys, err := splitKeys(candidates)
		if err != nil {
			return nil, err
		}
		op.Candidates = keys
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ops, nil
}

func joinKeys(keys []int) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = strconv.Itoa(k)
	}
	return strings.Join(parts, ",")
}

func splitKeys(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	keys := make([]int, 0, len(parts))
	for _, part := range parts {
		k, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid stored candidate %q: %w", part, err)
		}
		keys = append(keys, k)
	}
	return keys, nil
}
