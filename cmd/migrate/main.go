package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
)

const usage = `usage: migrate [-dir path] <command> [arg]

commands:
  up              apply all pending migrations
  down            roll back the latest migration
  to <version>    migrate up or down to a YYYYMMDDHHMMSS version
  status          list migrations and when they were applied
  create <name>   write a new empty migration into -dir
  validate        check migration file names and annotations

Without -dir the migrations compiled into the binary are used.
`

func main() {
	flags := flag.NewFlagSet("migrate", flag.ExitOnError)
	dir := flags.String("dir", "", "migrations directory (default: embedded set; create writes to "+migrate.DefaultDir+")")
	flags.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	_ = flags.Parse(os.Args[1:])

	if flags.NArg() == 0 {
		flags.Usage()
		os.Exit(2)
	}

	logg := logger.New(logger.Options{ServiceName: "migrate"})
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logg, *dir, flags.Arg(0), flags.Args()[1:]); err != nil {
		logg.Error(ctx, "migrate failed", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, logg *logger.Logger, dir, command string, args []string) error {
	ctx = logg.WithField(ctx, "command", command)

	// file commands never touch the database
	switch command {
	case "create":
		if len(args) != 1 {
			return errors.New("create takes exactly one name argument")
		}
		target := dir
		if target == "" {
			target = migrate.DefaultDir
		}
		path, err := migrate.Create(target, args[0], time.Now())
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	case "validate":
		if err := migrate.Validate(source(dir)); err != nil {
			return err
		}
		fmt.Println("migrations ok")
		return nil
	}

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.DB.IsSQLite() {
		return errors.New("goose migrations target postgres; sqlite schemas are applied at boot")
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Env:         cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      logger.ParseFormat(cfg.App.LogFormat),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer dbClient.Close()
	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}

	runner, err := migrate.NewRunner(sqlDB, source(dir))
	if err != nil {
		return err
	}
	defer runner.Close()

	var lines []string
	switch command {
	case "up":
		lines, err = runner.Up(ctx)
	case "down":
		lines, err = runner.Down(ctx)
	case "status":
		lines, err = runner.Status(ctx)
	case "to":
		if len(args) != 1 {
			return errors.New("to takes exactly one version argument")
		}
		var version int64
		if version, err = migrate.ParseVersion(args[0]); err != nil {
			return err
		}
		lines, err = runner.To(ctx, version)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
	for _, line := range lines {
		fmt.Println(line)
	}
	return err
}

func source(dir string) fs.FS {
	if dir == "" {
		return migrate.Embedded()
	}
	return os.DirFS(dir)
}
