package main

import (
	"embed"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"

	"github.com/JaimeStill/sieve/internal/config"
)

//go:embed migrations/*.sql
var migrations embed.FS

const envDSN = "SIEVE_DB_DSN"

func main() {
	var (
		dsn     = flag.String("dsn", "", "Database connection string (default $"+envDSN+", then the [database] config section)")
		up      = flag.Bool("up", false, "Apply all up migrations")
		down    = flag.Bool("down", false, "Revert all migrations")
		steps   = flag.Int("steps", 0, "Number of migrations (positive=up, negative=down)")
		version = flag.Bool("version", false, "Print current migration version")
		force   = flag.Int("force", -1, "Force set version after a failed migration")
	)
	flag.Parse()

	forceSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "force" {
			forceSet = true
		}
	})

	if *dsn == "" {
		*dsn = os.Getenv(envDSN)
	}
	if *dsn == "" {
		cfg, err := config.Load()
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		*dsn = cfg.Database.URL()
	}

	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		log.Fatalf("open migration source: %v", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, *dsn)
	if err != nil {
		log.Fatalf("create migrator: %v", err)
	}
	defer m.Close()

	switch {
	case *version:
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Println("version: none")
			return
		}
		if err != nil {
			log.Fatalf("read version: %v", err)
		}
		fmt.Printf("version: %d, dirty: %v\n", v, dirty)
	case forceSet:
		if err := m.Force(*force); err != nil {
			log.Fatalf("force version: %v", err)
		}
		fmt.Printf("forced to version %d\n", *force)
	case *up:
		apply("up", m.Up())
	case *down:
		apply("down", m.Down())
	case *steps != 0:
		apply(fmt.Sprintf("%d steps", *steps), m.Steps(*steps))
	default:
		fmt.Println("usage: migrate [-dsn <connection-string>] -up | -down | -steps N | -version | -force N")
		flag.PrintDefaults()
	}
}

func apply(action string, err error) {
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		fmt.Printf("%s: no change\n", action)
	case err != nil:
		log.Fatalf("migrate %s: %v", action, err)
	default:
		fmt.Printf("migrate %s: applied\n", action)
	}
}
