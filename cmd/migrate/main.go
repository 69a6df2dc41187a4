// Command migrate manages the Agora database schema.
//
//	migrate up                 apply pending SQL migrations
//	migrate auto               run GORM AutoMigrate (refused in production)
//	migrate status             show the schema plan and pending migrations
//	migrate down <version>     roll back one migration
//	migrate constraints        list table constraints (Postgres only)
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"agora/internal/config"
	"agora/internal/database"
	"agora/internal/middleware"

	"gorm.io/gorm"
)

type command func(ctx context.Context, db *gorm.DB, cfg *config.Config, args []string) error

var commands = map[string]command{
	"up":          migrateUp,
	"auto":        migrateAuto,
	"status":      migrateStatus,
	"down":        migrateDown,
	"constraints": listConstraints,
}

var errUsage = errors.New("usage: migrate <up|auto|status|down|constraints> [version]")

func main() {
	flag.Parse()
	if err := run(flag.Args()); err != nil {
		log.Print(err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, ok := commands[strings.ToLower(strings.TrimSpace(args[0]))]
	if !ok {
		return errUsage
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	middleware.ConfigureLogger(cfg.Env, cfg.LogLevel)

	db, err := database.ConnectWithOptions(cfg, false)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer func() { _ = sqlDB.Close() }()
	}
	return cmd(context.Background(), db, cfg, args[1:])
}

func migrateUp(ctx context.Context, db *gorm.DB, _ *config.Config, _ []string) error {
	if err := database.RunMigrations(ctx, db); err != nil {
		return err
	}
	fmt.Println("schema is up to date")
	return nil
}

func migrateAuto(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string) error {
	cfg.DBSchemaMode = database.SchemaModeAuto
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		return err
	}
	fmt.Println("models synced")
	return nil
}

func migrateStatus(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string) error {
	st, err := database.GetSchemaStatus(ctx, db, cfg)
	if err != nil {
		return err
	}
	fmt.Printf("env:       %s\nmode:      %s (sql=%t auto=%t)\napplied:   %d\n",
		st.Environment, st.Mode, st.WillRunSQL, st.WillRunAutoMigrate, len(st.AppliedVersions))
	if len(st.PendingMigrations) == 0 {
		fmt.Println("pending:   none")
	}
	for _, m := range st.PendingMigrations {
		fmt.Printf("pending:   %s\n", m.String())
	}
	return nil
}

func migrateDown(ctx context.Context, db *gorm.DB, _ *config.Config, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: migrate down <version>")
	}
	version, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("version %q is not a number", args[0])
	}
	if err := database.RollbackMigration(ctx, db, version); err != nil {
		return err
	}
	fmt.Printf("rolled back %06d\n", version)
	return nil
}

func listConstraints(ctx context.Context, db *gorm.DB, _ *config.Config, _ []string) error {
	var rows []struct {
		Table      string `gorm:"column:table_name"`
		Name       string `gorm:"column:constraint_name"`
		Definition string `gorm:"column:definition"`
	}
	err := db.WithContext(ctx).Raw(`
		SELECT r.relname AS table_name, c.conname AS constraint_name, pg_get_constraintdef(c.oid) AS definition
		FROM pg_constraint c
		JOIN pg_class r ON r.oid = c.conrelid
		JOIN pg_namespace n ON n.oid = r.relnamespace
		WHERE n.nspname = 'public'
		ORDER BY 1, 2`).Scan(&rows).Error
	if err != nil {
		return fmt.Errorf("list constraints: %w", err)
	}
	for _, r := range rows {
		fmt.Printf("%-16s %-40s %s\n", r.Table, r.Name, r.Definition)
	}
	return nil
}
