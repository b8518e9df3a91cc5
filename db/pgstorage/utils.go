package pgstorage

import (
	"context"
	"embed"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/stdlib"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/starkex-recovery/disbursal-service/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations will execute pending migrations if needed to keep
// the database updated with the latest changes
func RunMigrations(cfg Config) error {
	c, err := pgx.ParseConfig("postgres://" + cfg.User + ":" + cfg.Password + "@" + cfg.Host + ":" + cfg.Port + "/" + cfg.Name)
	if err != nil {
		return err
	}
	db := stdlib.OpenDB(*c)

	migrations := &migrate.EmbedFileSystemMigrationSource{FileSystem: migrationsFS, Root: "migrations"}
	nMigrations, err := migrate.Exec(db, "postgres", migrations, migrate.Up)
	if err != nil {
		return err
	}

	log.Info("successfully ran ", nMigrations, " migrations Up")
	return nil
}

// InitOrReset will initialize the db running the migrations or
// will reset all the known data and rerun the migrations
func InitOrReset(cfg Config) error {
	pgStorage, err := NewPostgresStorage(cfg)
	if err != nil {
		return err
	}
	defer pgStorage.Close()

	// reset db dropping the migrations table and the schema
	if _, err := pgStorage.Exec(context.Background(), "DROP TABLE IF EXISTS gorp_migrations CASCADE;"); err != nil {
		return err
	}
	if _, err := pgStorage.Exec(context.Background(), "DROP SCHEMA IF EXISTS disbursal CASCADE;"); err != nil {
		return err
	}

	return RunMigrations(cfg)
}
