package factory

import (
	"errors"
	"strings"

	"github.com/ochse/webwatch/internal/monitor"
	pg "github.com/ochse/webwatch/internal/store/postgres"
	sq "github.com/ochse/webwatch/internal/store/sqlite"
)

// NewFromDSN selects a store implementation based on DSN.
// Supported:
//   - postgres: DSN starting with "postgres://" or "postgresql://"
//   - sqlite:  "sqlite://<path>" or bare filepath (treated as sqlite)
func NewFromDSN(dsn string) (monitor.Store, error) {
	d := strings.TrimSpace(dsn)
	ld := strings.ToLower(d)
	if ld == "" {
		return nil, errors.New("empty DSN")
	}
	if strings.HasPrefix(ld, "postgres://") || strings.HasPrefix(ld, "postgresql://") {
		return pg.New(d)
	}
	if strings.HasPrefix(ld, "sqlite://") {
		return sq.New(strings.TrimPrefix(d, "sqlite://"))
	}
	// default to sqlite path
	return sq.New(d)
}
