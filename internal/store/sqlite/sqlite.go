package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ochse/webwatch/internal/monitor"
)

// DB implements monitor.Store for SQLite (modernc.org/sqlite driver,
// CGO-free). DSN is a filesystem path; use ":memory:" for in-memory.
type DB struct {
	db *sql.DB
}

// New opens a SQLite database at path.
func New(path string) (*DB, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("empty sqlite path")
	}
	d, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	// SQLite serializes writers anyway, and a single pooled connection keeps
	// ":memory:" databases from fragmenting across connections.
	d.SetMaxOpenConns(1)
	// busy timeout helps with short concurrent locks
	_, _ = d.Exec("PRAGMA busy_timeout=3000;")
	return &DB{db: d}, nil
}

func (s *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS monitors(
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			url TEXT NOT NULL,
			css_selector TEXT NOT NULL,
			owner_email TEXT NOT NULL,
			owner_key TEXT NOT NULL,
			last_content TEXT NULL,
			last_checked_at TIMESTAMP NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_monitors_owner_key ON monitors(owner_key);`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *DB) Close() error { return s.db.Close() }

func (s *DB) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *DB) ListAll(ctx context.Context) ([]monitor.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, url, css_selector, owner_email, owner_key, last_content, last_checked_at
		FROM monitors
		ORDER BY id;`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanRecords(rows)
}

func (s *DB) ListByOwner(ctx context.Context, ownerKey string) ([]monitor.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, url, css_selector, owner_email, owner_key, last_content, last_checked_at
		FROM monitors
		WHERE owner_key=?
		ORDER BY id DESC;`, ownerKey)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanRecords(rows)
}

// Insert stores rec with NULL last_content regardless of the passed value;
// only the cycle runner writes content.
func (s *DB) Insert(ctx context.Context, rec monitor.Record) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO monitors(url, css_selector, owner_email, owner_key, last_content, last_checked_at)
		VALUES(?, ?, ?, ?, NULL, NULL);`,
		rec.URL, rec.Selector, rec.OwnerEmail, rec.OwnerKey)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *DB) Delete(ctx context.Context, id int64, ownerKey string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM monitors WHERE id=? AND owner_key=?;`, id, ownerKey)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *DB) UpdateContent(ctx context.Context, id int64, text string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE monitors
		SET last_content=?, last_checked_at=?
		WHERE id=?;`, text, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return monitor.ErrNotFound
	}
	return nil
}

func scanRecords(rows *sql.Rows) ([]monitor.Record, error) {
	out := make([]monitor.Record, 0)
	for rows.Next() {
		var r monitor.Record
		if err := rows.Scan(&r.ID, &r.URL, &r.Selector, &r.OwnerEmail, &r.OwnerKey, &r.LastContent, &r.LastCheckedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
