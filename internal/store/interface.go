package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("key not found")

// Backend is the persistent key-value collaborator every registry writes to.
// Writes are atomic per key; nothing spans keys.
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Migrator is implemented by SQL backends.
type Migrator interface {
	ApplyMigrations(dir string) error
}

type entry struct {
	Key       string `db:"entry_key"`
	Value     string `db:"entry_value"`
	UpdatedAt int64  `db:"updated_at"`
}

// BaseStore provides common functionality for SQL implementations
type BaseStore struct {
	DB        *sqlx.DB
	Converter func(string) string
}

func (s *BaseStore) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// ApplyMigrations applies SQL migrations from a directory in name order,
// translating dialect if needed
func (s *BaseStore) ApplyMigrations(dir string, translateSQL func(string) string) error {
	files, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	names := make([]string, 0, len(files))
	for _, file := range files {
		if strings.HasSuffix(file.Name(), ".sql") {
			names = append(names, file.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}

		query := string(content)
		if translateSQL != nil {
			query = translateSQL(query)
		}

		if _, err := s.DB.Exec(query); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *BaseStore) Load(ctx context.Context, key string) ([]byte, error) {
	var e entry
	query := s.Converter(`SELECT entry_key, entry_value, updated_at FROM kv_entries WHERE entry_key = ?`)

	err := s.DB.GetContext(ctx, &e, query, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}
	return []byte(e.Value), nil
}

func (s *BaseStore) Save(ctx context.Context, key string, value []byte) error {
	_, err := s.DB.NamedExecContext(ctx, `
		INSERT INTO kv_entries (entry_key, entry_value, updated_at)
		VALUES (:entry_key, :entry_value, :updated_at)
		ON CONFLICT(entry_key) DO UPDATE SET
		entry_value = excluded.entry_value,
		updated_at = excluded.updated_at
	`, entry{Key: key, Value: string(value), UpdatedAt: time.Now().UnixMilli()})
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func (s *BaseStore) Delete(ctx context.Context, key string) error {
	query := s.Converter(`DELETE FROM kv_entries WHERE entry_key = ?`)
	if _, err := s.DB.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (s *BaseStore) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	if err := s.DB.SelectContext(ctx, &keys, `SELECT entry_key FROM kv_entries ORDER BY entry_key`); err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	return keys, nil
}
