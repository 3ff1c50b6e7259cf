package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/accountkeeper/internal/dbx"
	"github.com/dmitrijs2005/accountkeeper/internal/server/migrations"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/accounts"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repositories and applies
// the schema migrations when the connection is first opened.
type PostgresRepositoryManager struct {
	db *dbx.Lazy[*sql.DB]
}

// sqlOpen is a seam for testing sql.Open.
var sqlOpen = sql.Open

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// NewPostgresRepositoryManager constructs a manager for dsn.
func NewPostgresRepositoryManager(dsn string) *PostgresRepositoryManager {
	m := &PostgresRepositoryManager{}
	m.db = dbx.NewLazy(func(ctx context.Context) (*sql.DB, error) {
		db, err := sqlOpen("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		if err := m.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return db, nil
	})
	return m
}

// Accounts returns an accounts.Repository bound to the shared connection.
func (m *PostgresRepositoryManager) Accounts(ctx context.Context) (accounts.Repository, error) {
	db, err := m.db.Get(ctx)
	if err != nil {
		return nil, err
	}
	return accounts.NewPostgresRepository(db), nil
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}

// Close closes the connection if it was ever opened.
func (m *PostgresRepositoryManager) Close(context.Context) error {
	if db, ok := m.db.Peek(); ok {
		return db.Close()
	}
	return nil
}
