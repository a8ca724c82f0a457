package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/ochse/webwatch/internal/monitor"
)

// startPostgresContainer starts a PostgreSQL container for tests and returns
// a DSN suitable for pgx stdlib. It skips the test if Docker is unavailable.
func startPostgresContainer(t *testing.T) (dsn string, terminate func()) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
	)
	if err != nil {
		cancel()
		t.Skipf("Failed to start PostgreSQL container: %v", err)
		return "", nil
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		cancel()
		t.Skipf("Failed to get host info: %v", err)
		return "", nil
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		_ = container.Terminate(ctx)
		cancel()
		t.Skipf("Failed to get mapped port: %v", err)
		return "", nil
	}

	dsn = fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())
	terminate = func() {
		_ = container.Terminate(ctx)
		cancel()
	}
	return dsn, terminate
}

func waitForPostgres(t *testing.T, dsn string) {
	t.Helper()
	deadline := time.Now().Add(45 * time.Second)
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		db, err := sql.Open("pgx", dsn)
		if err == nil {
			if err = db.PingContext(ctx); err == nil {
				_ = db.Close()
				cancel()
				return
			}
			_ = db.Close()
		}
		cancel()
		if time.Now().After(deadline) {
			t.Skipf("postgres did not become ready: %v", err)
			return
		}
		time.Sleep(500 * time.Millisecond)
	}
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	dsn, terminate := startPostgresContainer(t)
	if terminate != nil {
		defer terminate()
	}
	waitForPostgres(t, dsn)

	db, err := New(dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	if err := db.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	id, err := db.Insert(ctx, monitor.Record{
		URL:        "https://example.com/page",
		Selector:   "div.status",
		OwnerEmail: "who@example.com",
		OwnerKey:   "key-1",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	all, err := db.ListAll(ctx)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 1 || all[0].ID != id || !all[0].Virgin() {
		t.Fatalf("unexpected records: %+v", all)
	}

	if err := db.UpdateContent(ctx, id, "up"); err != nil {
		t.Fatalf("update content: %v", err)
	}
	byOwner, err := db.ListByOwner(ctx, "key-1")
	if err != nil {
		t.Fatalf("list by owner: %v", err)
	}
	if len(byOwner) != 1 || byOwner[0].PreviousContent() != "up" || !byOwner[0].LastCheckedAt.Valid {
		t.Fatalf("unexpected record after update: %+v", byOwner)
	}

	if err := db.UpdateContent(ctx, id+99, "x"); !errors.Is(err, monitor.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	ok, err := db.Delete(ctx, id, "wrong-key")
	if err != nil || ok {
		t.Fatalf("mismatched key must not delete: ok=%v err=%v", ok, err)
	}
	ok, err = db.Delete(ctx, id, "key-1")
	if err != nil || !ok {
		t.Fatalf("owner delete failed: ok=%v err=%v", ok, err)
	}
}
