package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

type config struct {
	migrationsPath  string
	migrationsTable string
	sslMode         string
	down            bool
	db              struct {
		dsn string
	}
}

func main() {
	var cfg config

	flag.StringVar(&cfg.db.dsn, "dsn", os.Getenv("MIGRATE_STRING"), "database connection string (user:pass@host:port/db)")
	flag.StringVar(&cfg.migrationsPath, "migrations-path", os.Getenv("MIGRATE_PATH"), "path to migrations")
	flag.StringVar(&cfg.migrationsTable, "migrations-table", "migrations", "name of migrations table")
	flag.StringVar(&cfg.sslMode, "sslmode", "disable", "sslmode")
	flag.BoolVar(&cfg.down, "down", false, "roll back every migration")
	flag.Parse()

	if cfg.migrationsPath == "" {
		panic("migrations-path is required")
	}

	m, err := migrate.New(
		"file://"+cfg.migrationsPath,
		fmt.Sprintf("postgres://%s?x-migrations-table=%s&sslmode=%s", cfg.db.dsn, cfg.migrationsTable, cfg.sslMode),
	)
	if err != nil {
		panic(err)
	}
	defer m.Close()

	apply := m.Up
	if cfg.down {
		apply = m.Down
	}

	if err := apply(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Println("no migrations to apply")

			return
		}

		panic(err)
	}

	fmt.Println("migrations applied")
}
