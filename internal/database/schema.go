package database

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"agora/internal/config"
	"agora/internal/middleware"

	"gorm.io/gorm"
)

// DB_SCHEMA_MODE values. Hybrid runs the SQL migrations and, outside
// production, AutoMigrate on top to pick up model-only columns.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaStatus is the dry-run view of ApplySchema used by `migrate status`.
type SchemaStatus struct {
	Mode               string
	Environment        string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	AppliedVersions    []int
	PendingMigrations  []Migration
}

// schemaPlan is what ApplySchema decided to do for a config.
type schemaPlan struct {
	mode   string
	sql    bool
	auto   bool
	unsafe bool // AutoMigrate in a production-like env, explicitly allowed
}

var protectedEnvs = []string{"production", "prod", "staging", "stage"}

func normalizedSchemaMode(cfg *config.Config) string {
	if mode := strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode)); mode != "" {
		return mode
	}
	return SchemaModeHybrid
}

func planSchema(cfg *config.Config) (schemaPlan, error) {
	plan := schemaPlan{mode: normalizedSchemaMode(cfg)}
	protected := slices.Contains(protectedEnvs, strings.ToLower(strings.TrimSpace(cfg.Env)))

	switch plan.mode {
	case SchemaModeSQL:
		plan.sql = true
	case SchemaModeHybrid:
		plan.sql, plan.auto = true, !protected
	case SchemaModeAuto:
		if protected {
			if !cfg.DBAutoMigrateAllowDestructive {
				return plan, fmt.Errorf("DB_SCHEMA_MODE=auto is not allowed in %q unless DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
			}
			plan.unsafe = true
		}
		plan.auto = true
	default:
		return plan, fmt.Errorf("unknown DB_SCHEMA_MODE %q (want hybrid, sql or auto)", plan.mode)
	}
	return plan, nil
}

// schemaPolicy reports whether SQL migrations and AutoMigrate will run.
func schemaPolicy(cfg *config.Config) (runSQL bool, runAuto bool, err error) {
	plan, err := planSchema(cfg)
	if err != nil {
		return false, false, err
	}
	return plan.sql, plan.auto, nil
}

// ApplySchema brings the database up to date for the configured mode.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := planSchema(cfg)
	if err != nil {
		return err
	}
	if plan.sql {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("sql migrations: %w", err)
		}
	}
	if !plan.auto {
		return nil
	}
	if plan.unsafe {
		middleware.Logger.Warn("AutoMigrate enabled in a protected environment", slog.String("env", cfg.Env))
	}
	middleware.Logger.Info("Syncing models with AutoMigrate", slog.String("mode", plan.mode), slog.Int("models", len(PersistentModels())))
	return syncModels(ctx, db)
}

func syncModels(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// GetSchemaStatus reports the plan plus applied and pending migrations
// without changing anything.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := planSchema(cfg)
	if err != nil {
		return nil, err
	}
	status := &SchemaStatus{
		Mode:               plan.mode,
		Environment:        cfg.Env,
		WillRunSQL:         plan.sql,
		WillRunAutoMigrate: plan.auto,
	}
	if plan.sql {
		if status.AppliedVersions, err = (ledger{db}).versions(ctx); err != nil {
			return nil, err
		}
		status.PendingMigrations = pending(status.AppliedVersions)
	}
	return status, nil
}
