package postgres

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
)

// Migration is a single numbered SQL file, e.g. "001_billing.sql" is version 1
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Migrator applies numbered SQL files and records them in _migrations
type Migrator struct {
	db  *DB
	fs  fs.FS
	dir string
}

func NewMigrator(db *DB, fsys fs.FS, dir string) *Migrator {
	return &Migrator{db: db, fs: fsys, dir: dir}
}

// LoadMigrations reads the .sql files with a numeric prefix, sorted by version
func LoadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations directory %s: %w", dir, err)
	}

	var migrations []Migration
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}

		parts := strings.SplitN(name, "_", 2)
		if len(parts) < 2 {
			continue
		}
		version, err := strconv.Atoi(parts[0])
		if err != nil {
			continue
		}

		content, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read migration file %s: %w", name, err)
		}
		migrations = append(migrations, Migration{Version: version, Name: name, SQL: string(content)})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// Pending returns the migrations not yet recorded in _migrations
func (m *Migrator) Pending(ctx context.Context) ([]Migration, error) {
	if _, err := m.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS _migrations (
    version INTEGER PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    applied_at TIMESTAMPTZ DEFAULT NOW()
)`); err != nil {
		return nil, fmt.Errorf("create _migrations table: %w", err)
	}

	var applied []int
	if err := m.db.SelectContext(ctx, &applied, `SELECT version FROM _migrations`); err != nil {
		return nil, fmt.Errorf("query applied versions: %w", err)
	}
	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	all, err := LoadMigrations(m.fs, m.dir)
	if err != nil {
		return nil, err
	}

	pending := make([]Migration, 0, len(all))
	for _, mig := range all {
		if !done[mig.Version] {
			pending = append(pending, mig)
		}
	}
	return pending, nil
}

// Up applies every pending migration, each in its own transaction
func (m *Migrator) Up(ctx context.Context) ([]Migration, error) {
	pending, err := m.Pending(ctx)
	if err != nil {
		return nil, err
	}

	for _, mig := range pending {
		err := m.db.WithTx(ctx, func(ctx context.Context) error {
			q := m.db.GetQuerier(ctx)
			if _, err := q.ExecContext(ctx, mig.SQL); err != nil {
				return fmt.Errorf("apply migration %s: %w", mig.Name, err)
			}
			_, err := q.ExecContext(ctx, `INSERT INTO _migrations (version, name) VALUES ($1, $2)`, mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return nil, err
		}
		m.db.logger.Infow("applied migration", "version", mig.Version, "name", mig.Name)
	}
	return pending, nil
}
