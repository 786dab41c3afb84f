// Package sqlite persists the object store and key-value table backends in
// a single SQLite database file, for demos that need state to survive
// restarts.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cast"
	_ "modernc.org/sqlite"

	"github.com/toolwire-protocol/go-toolwire/src/backends"
	"github.com/toolwire-protocol/go-toolwire/src/json"
)

// Store implements both backend contracts over one SQLite file. SQLite
// serializes writes, so the store is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the database at path and applies the schema.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS buckets (
		name TEXT PRIMARY KEY
	);
	CREATE TABLE IF NOT EXISTS objects (
		bucket TEXT NOT NULL,
		key    TEXT NOT NULL,
		body   BLOB NOT NULL,
		PRIMARY KEY (bucket, key)
	);
	CREATE TABLE IF NOT EXISTS kv_tables (
		name TEXT PRIMARY KEY
	);
	CREATE TABLE IF NOT EXISTS kv_items (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		table_name TEXT NOT NULL,
		item       TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateBucket makes a bucket available. Creating it twice is a no-op.
func (s *Store) CreateBucket(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO buckets (name) VALUES (?)`, name)
	return err
}

// CreateTable makes a table available. Creating it twice is a no-op.
func (s *Store) CreateTable(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO kv_tables (name) VALUES (?)`, name)
	return err
}

func (s *Store) ListBuckets(ctx context.Context) ([]string, error) {
	return s.listNames(ctx, `SELECT name FROM buckets ORDER BY name`)
}

func (s *Store) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	if err := s.requireRow(ctx, `SELECT 1 FROM buckets WHERE name = ?`, bucket,
		&backends.BucketNotFoundError{Bucket: bucket}); err != nil {
		return nil, err
	}
	var body []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM objects WHERE bucket = ? AND key = ?`, bucket, key).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, &backends.ObjectNotFoundError{Bucket: bucket, Key: key}
	}
	if err != nil {
		return nil, fmt.Errorf("get object %s/%s: %w", bucket, key, err)
	}
	return body, nil
}

func (s *Store) PutObject(ctx context.Context, bucket, key string, body []byte) error {
	if err := s.requireRow(ctx, `SELECT 1 FROM buckets WHERE name = ?`, bucket,
		&backends.BucketNotFoundError{Bucket: bucket}); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO objects (bucket, key, body) VALUES (?, ?, ?)
		 ON CONFLICT (bucket, key) DO UPDATE SET body = excluded.body`,
		bucket, key, body)
	if err != nil {
		return fmt.Errorf("put object %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (s *Store) ListTables(ctx context.Context) ([]string, error) {
	return s.listNames(ctx, `SELECT name FROM kv_tables ORDER BY name`)
}

func (s *Store) GetItem(ctx context.Context, table, keyName, keyValue string) (map[string]any, error) {
	if err := s.requireRow(ctx, `SELECT 1 FROM kv_tables WHERE name = ?`, table,
		&backends.TableNotFoundError{Table: table}); err != nil {
		return nil, err
	}

	// Latest write wins when the same key value was stored twice.
	rows, err := s.db.QueryContext(ctx,
		`SELECT item FROM kv_items WHERE table_name = ? ORDER BY id DESC`, table)
	if err != nil {
		return nil, fmt.Errorf("query table %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var item map[string]any
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			return nil, fmt.Errorf("corrupt item in table %s: %w", table, err)
		}
		if cast.ToString(item[keyName]) == keyValue {
			return item, nil
		}
	}
	return nil, rows.Err()
}

func (s *Store) PutItem(ctx context.Context, table string, item map[string]any) error {
	if err := s.requireRow(ctx, `SELECT 1 FROM kv_tables WHERE name = ?`, table,
		&backends.TableNotFoundError{Table: table}); err != nil {
		return err
	}
	raw, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode item for table %s: %w", table, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO kv_items (table_name, item) VALUES (?, ?)`, table, string(raw))
	if err != nil {
		return fmt.Errorf("put item into %s: %w", table, err)
	}
	return nil
}

func (s *Store) listNames(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// requireRow returns notFound when the existence query matches nothing.
func (s *Store) requireRow(ctx context.Context, query, arg string, notFound error) error {
	var one int
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&one)
	if err == sql.ErrNoRows {
		return notFound
	}
	return err
}
