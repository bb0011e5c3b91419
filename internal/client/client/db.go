package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/liferepo/internal/client/migrations"
	"github.com/dmitrijs2005/liferepo/internal/client/repositories/drafts"
	"github.com/dmitrijs2005/liferepo/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/liferepo/internal/dbx"
)

type Repositories struct {
	Drafts drafts.Repository
	Active *metadata.ActiveSlot
}

func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Drafts: drafts.NewSQLiteRepository(db),
		Active: metadata.NewActiveSlot(metadata.NewSQLiteRepository(db)),
	}
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens the local SQLite database file at path and brings its
// schema up to date.
func InitDatabase(ctx context.Context, path string) (*sql.DB, error) {
	db, err := dbx.OpenSQLite(ctx, path)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate %s: %w", path, err)
	}

	return db, nil
}
