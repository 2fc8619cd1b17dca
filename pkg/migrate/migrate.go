// Package migrate owns the storefront schema. Postgres runs the goose SQL
// files embedded below; sqlite gets an equivalent DDL from ApplySQLiteSchema.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/lock"
)

// DefaultDir is where new migration files are written, relative to the repo root.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Embedded returns the migrations compiled into the binary.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(fmt.Sprintf("migrations fs: %v", err))
	}
	return sub
}

// Runner applies goose migrations against Postgres. Concurrent runners
// (several pods auto-migrating at boot) serialize on an advisory lock.
type Runner struct {
	provider *goose.Provider
}

func NewRunner(db *sql.DB, fsys fs.FS) (*Runner, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if fsys == nil {
		fsys = Embedded()
	}
	locker, err := lock.NewPostgresSessionLocker()
	if err != nil {
		return nil, fmt.Errorf("session locker: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys,
		goose.WithSessionLocker(locker),
		goose.WithDisableGlobalRegistry(true),
	)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Runner{provider: provider}, nil
}

// Versions lists the known migration versions in ascending order.
func (r *Runner) Versions() []int64 {
	sources := r.provider.ListSources()
	out := make([]int64, 0, len(sources))
	for _, src := range sources {
		out = append(out, src.Version)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *Runner) Up(ctx context.Context) ([]string, error) {
	results, err := r.provider.Up(ctx)
	if err != nil {
		return report(results), fmt.Errorf("goose up: %w", err)
	}
	return report(results), nil
}

// Down rolls back the most recent migration.
func (r *Runner) Down(ctx context.Context) ([]string, error) {
	result, err := r.provider.Down(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose down: %w", err)
	}
	return report([]*goose.MigrationResult{result}), nil
}

// To moves the schema up or down until target is the current version.
func (r *Runner) To(ctx context.Context, target int64) ([]string, error) {
	current, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("db version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current == target:
		return nil, nil
	case current < target:
		results, err = r.provider.UpTo(ctx, target)
	default:
		results, err = r.provider.DownTo(ctx, target)
	}
	if err != nil {
		return report(results), fmt.Errorf("goose to %d: %w", target, err)
	}
	return report(results), nil
}

// Status renders one line per migration: state, applied time and file.
func (r *Runner) Status(ctx context.Context) ([]string, error) {
	statuses, err := r.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose status: %w", err)
	}
	lines := make([]string, 0, len(statuses))
	for _, st := range statuses {
		applied := "-"
		if st.State == goose.StateApplied {
			applied = st.AppliedAt.UTC().Format("2006-01-02 15:04:05")
		}
		lines = append(lines, fmt.Sprintf("%-8s %-19s %s", st.State, applied, st.Source.Path))
	}
	return lines, nil
}

func (r *Runner) Close() error {
	return r.provider.Close()
}

// ParseVersion accepts the 14-digit timestamp prefix used in file names.
func ParseVersion(raw string) (int64, error) {
	if len(raw) != len(versionLayout) {
		return 0, fmt.Errorf("invalid version %q: want %d digits", raw, len(versionLayout))
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid version %q", raw)
	}
	return v, nil
}

func report(results []*goose.MigrationResult) []string {
	out := make([]string, 0, len(results))
	for _, res := range results {
		if res != nil {
			out = append(out, res.String())
		}
	}
	return out
}
