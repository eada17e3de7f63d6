package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"github.com/shuizhiqing/examtrainer/internal/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var sqlBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

// SQLiteStore implements Store on a single sqlite file (or :memory: in
// tests).
type SQLiteStore struct {
	db  *sql.DB
	log *logger.Logger
}

// Open opens the store and applies pending migrations.
func Open(path string) (*SQLiteStore, error) {
	log := logger.Default().WithPrefix("store")

	dsn := fmt.Sprintf("%s?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL", path)
	log.Info("opening store: %s", path)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		log.Error("failed to open store: %v", err)
		return nil, err
	}
	db.SetMaxOpenConns(1) // SQLite best practice for single writer

	s := &SQLiteStore{db: db, log: log}
	if err := s.applyMigrations(context.Background()); err != nil {
		log.Error("failed to apply migrations: %v", err)
		return nil, err
	}

	log.Info("store ready")
	return s, nil
}

func (s *SQLiteStore) applyMigrations(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied_at DATETIME DEFAULT CURRENT_TIMESTAMP)`); err != nil {
		return err
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return err
	}

	for _, entry := range entries {
		version := entry.Name()
		var n int
		err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&n)
		if err != nil {
			return err
		}
		if n > 0 {
			s.log.Debug("migration %s already applied, skipping", version)
			continue
		}
		sqlBytes, err := migrationsFS.ReadFile("migrations/" + version)
		if err != nil {
			return err
		}
		s.log.Info("applying migration: %s", version)
		if _, err := s.db.ExecContext(ctx, string(sqlBytes)); err != nil {
			return fmt.Errorf("apply migration %s: %w", version, err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, ns, key string) ([]byte, bool, error) {
	query, args, err := sqlBuilder.
		Select("v").
		From("kv").
		Where(squirrel.Eq{"ns": ns, "k": key}).
		ToSql()
	if err != nil {
		return nil, false, err
	}

	var value string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		s.log.Error("get failed: ns=%s key=%s: %v", ns, key, err)
		return nil, false, err
	}
	return []byte(value), true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, ns, key string, value []byte) error {
	query, args, err := sqlBuilder.
		Insert("kv").
		Columns("ns", "k", "v").
		Values(ns, key, string(value)).
		Suffix("ON CONFLICT (ns, k) DO UPDATE SET v = excluded.v, updated_at = CURRENT_TIMESTAMP").
		ToSql()
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		s.log.Error("set failed: ns=%s key=%s: %v", ns, key, err)
		return err
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, ns, key string) (bool, error) {
	query, args, err := sqlBuilder.
		Delete("kv").
		Where(squirrel.Eq{"ns": ns, "k": key}).
		ToSql()
	if err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		s.log.Error("delete failed: ns=%s key=%s: %v", ns, key, err)
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) List(ctx context.Context, ns string) (map[string][]byte, error) {
	query, args, err := sqlBuilder.
		Select("k", "v").
		From("kv").
		Where(squirrel.Eq{"ns": ns}).
		OrderBy("updated_at DESC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.log.Error("list failed: ns=%s: %v", ns, err)
		return nil, err
	}
	defer rows.Close()

	out := map[string][]byte{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = []byte(v)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
