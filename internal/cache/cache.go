// Package cache remembers what the generator produced for each module so
// unchanged modules are not regenerated.
//
// Entries live in a single sqlite table keyed by module name. An entry is
// reused only when the module's fingerprint (source, configuration and
// codegen version) matches and the output file on disk still has the hash
// recorded when it was written.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/funvibe/pybind/internal/logger"
)

// codegenVersion is bumped when the generated code format changes.
// This ensures stale cached output is regenerated.
const codegenVersion = "v1"

const schema = `CREATE TABLE IF NOT EXISTS modules (
	module       TEXT PRIMARY KEY,
	fingerprint  TEXT NOT NULL,
	output_path  TEXT NOT NULL,
	output_hash  TEXT NOT NULL,
	manifest     BLOB,
	pass_id      TEXT NOT NULL,
	updated_at   INTEGER NOT NULL
)`

// Entry is the cached result of generating one module.
type Entry struct {
	Module      string
	Fingerprint string
	OutputPath  string
	OutputHash  string

	// Manifest is the module's serialized manifest entry, so a cache hit can
	// still contribute to the manifest.
	Manifest []byte

	// PassID identifies the generation pass that wrote the entry.
	PassID    string
	UpdatedAt time.Time
}

// Cache is an open generation cache.
type Cache struct {
	db   *sql.DB
	path string
}

// Open opens or creates the cache database at path.
func Open(ctx context.Context, path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache %s: %w", path, err)
	}
	// sqlite serializes writers; one connection avoids "database is locked"
	// when workers store entries concurrently.
	db.SetMaxOpenConns(1)

	c := &Cache{db: db, path: path}
	if err := c.init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	logger.Logger().Debug("cache opened", zap.String("path", path))
	return c, nil
}

func (c *Cache) init(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating cache schema: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (c *Cache) Path() string {
	return c.path
}

// Close closes the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Key computes the fingerprint of a module from its source and the
// configuration fingerprint.
func Key(source []byte, configFingerprint string) string {
	h := sha256.New()
	h.Write(source)
	h.Write([]byte("\x00"))
	h.Write([]byte(configFingerprint))

	// Include the version of the codegen (so cache invalidates on updates)
	h.Write([]byte("\x00"))
	h.Write([]byte(codegenVersion))

	return hex.EncodeToString(h.Sum(nil))
}

// HashOutput hashes generated file contents.
func HashOutput(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Lookup returns the entry for module when it is still valid for
// fingerprint and output: same fingerprint, written to output, and the file
// unchanged on disk.
func (c *Cache) Lookup(ctx context.Context, module, fingerprint, output string) (*Entry, bool, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT module, fingerprint, output_path, output_hash, manifest, pass_id, updated_at
		   FROM modules WHERE module = ?`, module)

	var (
		e       Entry
		updated int64
	)
	err := row.Scan(&e.Module, &e.Fingerprint, &e.OutputPath, &e.OutputHash, &e.Manifest, &e.PassID, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache entry %s: %w", module, err)
	}
	e.UpdatedAt = time.Unix(0, updated)

	if e.Fingerprint != fingerprint {
		logger.Logger().Debug("cache stale", zap.String("module", module))
		return &e, false, nil
	}
	if filepath.Clean(e.OutputPath) != filepath.Clean(output) {
		logger.Logger().Debug("cached output moved",
			zap.String("module", module), zap.String("cached", e.OutputPath), zap.String("output", output))
		return &e, false, nil
	}
	data, err := os.ReadFile(e.OutputPath)
	if err != nil || HashOutput(data) != e.OutputHash {
		logger.Logger().Debug("cached output missing or modified",
			zap.String("module", module), zap.String("output", e.OutputPath))
		return &e, false, nil
	}
	return &e, true, nil
}

// Store inserts or replaces the entry for e.Module.
func (c *Cache) Store(ctx context.Context, e Entry) error {
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = time.Now()
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO modules (module, fingerprint, output_path, output_hash, manifest, pass_id, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(module) DO UPDATE SET
		   fingerprint = excluded.fingerprint,
		   output_path = excluded.output_path,
		   output_hash = excluded.output_hash,
		   manifest    = excluded.manifest,
		   pass_id     = excluded.pass_id,
		   updated_at  = excluded.updated_at`,
		e.Module, e.Fingerprint, e.OutputPath, e.OutputHash, e.Manifest, e.PassID, e.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("storing cache entry %s: %w", e.Module, err)
	}
	return nil
}

// Forget removes the entry for module, if any.
func (c *Cache) Forget(ctx context.Context, module string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM modules WHERE module = ?`, module); err != nil {
		return fmt.Errorf("removing cache entry %s: %w", module, err)
	}
	return nil
}

// Len returns the number of cached modules.
func (c *Cache) Len(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM modules`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting cache entries: %w", err)
	}
	return n, nil
}

// Clean drops every cached entry.
func (c *Cache) Clean(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DROP TABLE IF EXISTS modules`); err != nil {
		return fmt.Errorf("dropping cache table: %w", err)
	}
	return c.init(ctx)
}
