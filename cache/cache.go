// Package cache stores decoded pronunciations in SQLite so repeated words
// skip the decoder.
package cache

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ieee0824/g2p-go/decoder"
	"github.com/ieee0824/g2p-go/semiring"
)

//go:embed schema.sql
var schemaSQL string

// Cache is a pronunciation store keyed by word and n-best size. It is safe
// for concurrent use.
type Cache struct {
	db *sql.DB
}

// Open connects to the database at path, creating it and its schema when
// missing. ":memory:" opens a private in-memory cache.
func Open(path string) (*Cache, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would see its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping cache: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Cache{db: db}, nil
}

// Get returns the cached pronunciations of word for an n-best request. ok
// is false on a miss; a cached word without pronunciations yields ok with
// no paths.
func (c *Cache) Get(ctx context.Context, word string, nbest int) (paths []decoder.Path, ok bool, err error) {
	var count int
	err = c.db.QueryRowContext(ctx,
		`SELECT paths FROM lookups WHERE word = ? AND nbest = ?`, word, nbest).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache lookup %q: %w", word, err)
	}

	rows, err := c.db.QueryContext(ctx,
		`SELECT cost, phonemes FROM pronunciations WHERE word = ? AND nbest = ? ORDER BY rank`, word, nbest)
	if err != nil {
		return nil, false, fmt.Errorf("cache read %q: %w", word, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cost     float64
			phonemes string
		)
		if err := rows.Scan(&cost, &phonemes); err != nil {
			return nil, false, err
		}
		paths = append(paths, decoder.Path{Phonemes: strings.Fields(phonemes), Cost: semiring.Weight(cost)})
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	if len(paths) != count {
		// a concurrent Put replaced the entry between the two reads
		return nil, false, nil
	}
	return paths, true, nil
}

// Put replaces the cached pronunciations of word for an n-best request.
func (c *Cache) Put(ctx context.Context, word string, nbest int, paths []decoder.Path) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM pronunciations WHERE word = ? AND nbest = ?`, word, nbest); err != nil {
		return fmt.Errorf("cache clear %q: %w", word, err)
	}
	now := time.Now()
	for rank, p := range paths {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pronunciations (word, nbest, rank, cost, phonemes, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			word, nbest, rank, float64(p.Cost), p.String(), now); err != nil {
			return fmt.Errorf("cache write %q: %w", word, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO lookups (word, nbest, paths, created_at) VALUES (?, ?, ?, ?)`,
		word, nbest, len(paths), now); err != nil {
		return fmt.Errorf("cache write %q: %w", word, err)
	}
	return tx.Commit()
}

// Len returns the number of cached lookups.
func (c *Cache) Len(ctx context.Context) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lookups`).Scan(&n)
	return n, err
}

// Purge removes every cached entry.
func (c *Cache) Purge(ctx context.Context) error {
	for _, stmt := range []string{`DELETE FROM pronunciations`, `DELETE FROM lookups`} {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}
