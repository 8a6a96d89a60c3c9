package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/ignite/graphmail/internal/app"
	"github.com/ignite/graphmail/internal/config"
	"github.com/ignite/graphmail/internal/pkg/logger"
)

// Applies every .sql file in the migrations directory in name order, each
// in its own transaction. Pass --list to print the graphmail tables instead.
func main() {
	listOnly := flag.Bool("list", false, "print the graphmail tables and exit")
	flag.Parse()

	dir := "migrations"
	if flag.NArg() > 0 {
		dir = flag.Arg(0)
	}

	if err := run(dir, *listOnly); err != nil {
		logger.Error("migrate", "error", err)
		os.Exit(1)
	}
}

func run(dir string, listOnly bool) error {
	cfg, err := config.LoadFromEnv("")
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL is required")
	}

	db, err := app.OpenDB(context.Background(), cfg.Database)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer db.Close()

	if listOnly {
		return listTables(db)
	}

	ok, failed, err := apply(db, dir)
	if err != nil {
		return err
	}
	logger.Info("migrations complete", "ok", ok, "errors", failed)
	if failed > 0 {
		return fmt.Errorf("%d migration(s) failed", failed)
	}
	return nil
}

func listTables(db *sql.DB) error {
	rows, err := db.Query(`SELECT tablename FROM pg_tables
		WHERE schemaname = 'public'
		  AND (tablename LIKE 'sender_profile%' OR tablename LIKE 'notification_%')
		ORDER BY tablename`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return err
		}
		fmt.Println(" ", t)
	}
	return rows.Err()
}

func apply(db *sql.DB, dir string) (ok, failed int, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("read migrations dir %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, f := range files {
		data, err := os.ReadFile(filepath.Join(dir, f))
		if err != nil {
			return ok, failed, err
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return ok, failed, err
		}
		if _, err := tx.Exec(string(data)); err != nil {
			tx.Rollback()
			logger.Error("migration failed", "file", f, "error", err)
			failed++
			continue
		}
		if err := tx.Commit(); err != nil {
			return ok, failed, err
		}
		logger.Info("migration applied", "file", f)
		ok++
	}
	return ok, failed, nil
}
