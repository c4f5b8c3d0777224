// Package migrations embeds the schema migrations and applies them with
// golang-migrate (see DESIGN.md for the library's provenance).
package migrations

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/moltnet/moltnet/internal/infra/config"
)

//go:embed sql/*.sql
var sqlFS embed.FS

// Run applies every pending migration against cfg's database, blocking
// until the schema is up to date. It is safe to call repeatedly (e.g. from
// every process on boot); a no-op run returns ErrNoChange, which is
// swallowed here.
func Run(cfg *config.DatabaseConfig) error {
	src, err := iofs.New(sqlFS, "sql")
	if err != nil {
		return fmt.Errorf("loading embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, "pgx5://"+dsnWithoutScheme(cfg.DSN()))
	if err != nil {
		return fmt.Errorf("initializing migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// dsnWithoutScheme strips a leading "postgres://" or "postgresql://" so the
// pgx/v5 migrate driver's own "pgx5://" scheme can be prepended.
func dsnWithoutScheme(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if len(dsn) > len(prefix) && dsn[:len(prefix)] == prefix {
			return dsn[len(prefix):]
		}
	}
	return dsn
}
