// Package migrate applies the Postgres schema with goose and offers the
// create/validate helpers used by cmd/migrate.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	"github.com/pressly/goose/v3"
)

const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

const embeddedDir = "migrations"

// statusOut receives the per-migration lines printed by status and the apply
// commands.
var statusOut io.Writer = os.Stdout

// newProvider builds a goose provider over dir, or over the embedded set when
// dir is empty. The provider does not own db, so it is never closed here.
func newProvider(db *sql.DB, dir string) (*goose.Provider, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	var source fs.FS
	if dir == "" {
		sub, err := fs.Sub(embedded, embeddedDir)
		if err != nil {
			return nil, err
		}
		source = sub
	} else {
		source = os.DirFS(dir)
	}
	p, err := goose.NewProvider(goose.DialectPostgres, db, source)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return p, nil
}

// Run executes up, down or status against db.
func Run(ctx context.Context, db *sql.DB, dir, command string) error {
	p, err := newProvider(db, dir)
	if err != nil {
		return err
	}
	switch command {
	case "up":
		results, err := p.Up(ctx)
		report(results...)
		return wrapGoose(command, err)
	case "down":
		result, err := p.Down(ctx)
		if result != nil {
			report(result)
		}
		return wrapGoose(command, err)
	case "status":
		statuses, err := p.Status(ctx)
		if err != nil {
			return wrapGoose(command, err)
		}
		for _, s := range statuses {
			applied := "pending"
			if s.State == goose.StateApplied {
				applied = s.AppliedAt.UTC().Format("2006-01-02 15:04:05")
			}
			fmt.Fprintf(statusOut, "%-20s %s\n", applied, s.Source.Path)
		}
		return nil
	default:
		return fmt.Errorf("unsupported goose command %q", command)
	}
}

// MigrateToVersion moves the schema up or down until it sits at
// targetVersion.
func MigrateToVersion(ctx context.Context, db *sql.DB, dir, targetVersion string) error {
	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return fmt.Errorf("version %q must be YYYYMMDDHHMMSS: %w", targetVersion, err)
	}
	p, err := newProvider(db, dir)
	if err != nil {
		return err
	}
	current, err := p.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("read db version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current < target:
		results, err = p.UpTo(ctx, target)
	case current > target:
		results, err = p.DownTo(ctx, target)
	}
	report(results...)
	return wrapGoose("version "+targetVersion, err)
}

func report(results ...*goose.MigrationResult) {
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		fmt.Fprintf(statusOut, "%-4s %s (%s)\n", r.Direction, r.Source.Path, r.Duration)
	}
}

func wrapGoose(command string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("goose %s: %w", command, err)
}
