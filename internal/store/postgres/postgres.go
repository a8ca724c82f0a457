package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/ochse/webwatch/internal/monitor"
)

// DB implements monitor.Store for PostgreSQL via the pgx stdlib driver.
type DB struct {
	db *sql.DB
}

func New(dsn string) (*DB, error) {
	d, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &DB{db: d}, nil
}

func (p *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS monitors(
			id BIGSERIAL PRIMARY KEY,
			url TEXT NOT NULL,
			css_selector TEXT NOT NULL,
			owner_email TEXT NOT NULL,
			owner_key TEXT NOT NULL,
			last_content TEXT NULL,
			last_checked_at TIMESTAMPTZ NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_monitors_owner_key ON monitors(owner_key);`,
	}
	for _, q := range stmts {
		if _, err := p.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (p *DB) Close() error { return p.db.Close() }

func (p *DB) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *DB) ListAll(ctx context.Context) ([]monitor.Record, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, url, css_selector, owner_email, owner_key, last_content, last_checked_at
		FROM monitors
		ORDER BY id;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (p *DB) ListByOwner(ctx context.Context, ownerKey string) ([]monitor.Record, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, url, css_selector, owner_email, owner_key, last_content, last_checked_at
		FROM monitors
		WHERE owner_key=$1
		ORDER BY id DESC;`, ownerKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (p *DB) Insert(ctx context.Context, rec monitor.Record) (int64, error) {
	var id int64
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO monitors(url, css_selector, owner_email, owner_key, last_content, last_checked_at)
		VALUES($1,$2,$3,$4,NULL,NULL)
		RETURNING id;`,
		rec.URL, rec.Selector, rec.OwnerEmail, rec.OwnerKey).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (p *DB) Delete(ctx context.Context, id int64, ownerKey string) (bool, error) {
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM monitors WHERE id=$1 AND owner_key=$2;`, id, ownerKey)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (p *DB) UpdateContent(ctx context.Context, id int64, text string) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE monitors
		SET last_content=$1, last_checked_at=$2
		WHERE id=$3;`, text, time.Now().UTC(), id)
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
