package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/stapelberg/postgrestest"
)

// SetupEphemeralPostgresDatabase starts a throwaway PostgreSQL server with a migrated
// database. The returned cleanup stops the server.
func SetupEphemeralPostgresDatabase(ctx context.Context) (*sql.DB, func(), error) {
	Logger.Info("Starting ephemeral PostgreSQL server...")

	pgt, err := postgrestest.Start(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start ephemeral postgres: %w", err)
	}
	Logger.Info("Ephemeral PostgreSQL server started", "dsn", pgt.DefaultDatabase())

	dsn, err := pgt.CreateDatabase(ctx)
	if err != nil {
		pgt.Cleanup()
		return nil, nil, fmt.Errorf("failed to create pdfreader database: %w", err)
	}
	Logger.Info("Created ephemeral database", "dsn", dsn)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		pgt.Cleanup()
		return nil, nil, fmt.Errorf("failed to open pdfreader database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		pgt.Cleanup()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runPostgresMigrations(db); err != nil {
		db.Close()
		pgt.Cleanup()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	Logger.Info("Connected to ephemeral PostgreSQL database successfully")
	return db, pgt.Cleanup, nil
}
