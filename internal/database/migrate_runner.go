package database

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"agora/internal/middleware"

	"gorm.io/gorm"
)

// schemaVersion is one row of the schema_versions ledger.
type schemaVersion struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255;not null"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

func (schemaVersion) TableName() string { return "schema_versions" }

const createLedgerSQL = `
CREATE TABLE IF NOT EXISTS schema_versions (
	version BIGINT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// ledger records which embedded migrations have run against a database.
type ledger struct {
	db *gorm.DB
}

// versions returns applied versions in ascending order. A database that has
// never been migrated has no ledger table and reports nothing applied.
func (l ledger) versions(ctx context.Context) ([]int, error) {
	var out []int
	err := l.db.WithContext(ctx).Model(&schemaVersion{}).Order("version").Pluck("version", &out).Error
	if err != nil {
		if ledgerMissing(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read schema_versions: %w", err)
	}
	return out, nil
}

func ledgerMissing(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "no such table") ||
		(strings.Contains(msg, "schema_versions") && strings.Contains(msg, "does not exist"))
}

// pending lists registered migrations not yet in applied, in version order.
func pending(applied []int) []Migration {
	var out []Migration
	for _, m := range migrations {
		if !slices.Contains(applied, m.Version) {
			out = append(out, m)
		}
	}
	return out
}

// RunMigrations applies every pending migration. Each script and its ledger
// row commit together.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).Exec(createLedgerSQL).Error; err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	applied, err := ledger{db}.versions(ctx)
	if err != nil {
		return err
	}
	if err := validateAppliedVersions(applied, migrations); err != nil {
		return err
	}

	todo := pending(applied)
	if len(todo) == 0 {
		middleware.Logger.Debug("Schema up to date", slog.Int("applied", len(applied)))
		return nil
	}
	for _, m := range todo {
		log := middleware.Logger.With(slog.Int("version", m.Version), slog.String("name", m.Name))
		start := time.Now()
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(m.UpScript).Error; err != nil {
				return fmt.Errorf("migration %s: %w", m.String(), err)
			}
			return tx.Create(&schemaVersion{Version: m.Version, Name: m.Name}).Error
		})
		if err != nil {
			return err
		}
		log.Info("Migration applied", slog.Duration("took", time.Since(start)))
	}
	return nil
}

// validateAppliedVersions fails when the database has versions this binary
// does not ship, which means it is running against a newer schema.
func validateAppliedVersions(applied []int, registered []Migration) error {
	var unknown []int
	for _, v := range applied {
		if !slices.ContainsFunc(registered, func(m Migration) bool { return m.Version == v }) {
			unknown = append(unknown, v)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	slices.Sort(unknown)
	labels := make([]string, len(unknown))
	for i, v := range unknown {
		labels[i] = fmt.Sprintf("%06d", v)
	}
	return fmt.Errorf("database has migrations this build does not know: %s", strings.Join(labels, ", "))
}

// RollbackMigration runs the down script of an applied migration and drops it
// from the ledger.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	m := GetMigrationByVersion(version)
	if m == nil {
		return fmt.Errorf("unknown migration version %d", version)
	}
	applied, err := ledger{db}.versions(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(applied, version) {
		return fmt.Errorf("migration %s is not applied", m.String())
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.DownScript).Error; err != nil {
			return fmt.Errorf("rollback %s: %w", m.String(), err)
		}
		return tx.Where("version = ?", version).Delete(&schemaVersion{}).Error
	})
	if err != nil {
		return err
	}
	middleware.Logger.Info("Migration rolled back", slog.Int("version", version), slog.String("name", m.Name))
	return nil
}
