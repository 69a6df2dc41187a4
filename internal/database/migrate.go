package database

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"slices"
	"strconv"
)

// Migration is one versioned SQL step with its rollback.
type Migration struct {
	Version    int
	Name       string
	UpScript   string
	DownScript string
}

func (m *Migration) String() string {
	return fmt.Sprintf("%06d_%s", m.Version, m.Name)
}

//go:embed migrations/*.sql
var migrationFS embed.FS

// migrations is the embedded set in version order.
var migrations = mustLoadMigrations()

func mustLoadMigrations() []Migration {
	m, err := LoadMigrations(migrationFS, "migrations")
	if err != nil {
		panic("embedded migrations: " + err.Error())
	}
	return m
}

var upFile = regexp.MustCompile(`^(\d+)_(\w+)\.up\.sql$`)

// LoadMigrations pairs NNNNNN_name.up.sql with NNNNNN_name.down.sql under
// dir. Other files are ignored; a missing down script or a reused version
// number is an error.
func LoadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	var out []Migration
	for _, e := range entries {
		match := upFile.FindStringSubmatch(e.Name())
		if e.IsDir() || match == nil {
			continue
		}
		version, err := strconv.Atoi(match[1])
		if err != nil {
			return nil, fmt.Errorf("%s: bad version: %w", e.Name(), err)
		}
		if i := slices.IndexFunc(out, func(m Migration) bool { return m.Version == version }); i >= 0 {
			return nil, fmt.Errorf("version %06d is used by %q and %q", version, out[i].Name, match[2])
		}

		m := Migration{Version: version, Name: match[2]}
		stem := path.Join(dir, match[1]+"_"+match[2])
		up, err := fs.ReadFile(fsys, stem+".up.sql")
		if err != nil {
			return nil, err
		}
		down, err := fs.ReadFile(fsys, stem+".down.sql")
		if err != nil {
			return nil, fmt.Errorf("%s has no down script: %w", m.String(), err)
		}
		m.UpScript, m.DownScript = string(up), string(down)
		out = append(out, m)
	}

	slices.SortFunc(out, func(a, b Migration) int { return a.Version - b.Version })
	return out, nil
}

// GetMigrations returns the embedded migrations in version order.
func GetMigrations() []Migration {
	return migrations
}

// GetMigrationByVersion returns nil for unknown versions.
func GetMigrationByVersion(version int) *Migration {
	i := slices.IndexFunc(migrations, func(m Migration) bool { return m.Version == version })
	if i < 0 {
		return nil
	}
	return &migrations[i]
}
