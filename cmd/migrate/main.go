package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/pharmacy-backend/pkg/config"
	"github.com/angelmondragon/pharmacy-backend/pkg/db"
	"github.com/angelmondragon/pharmacy-backend/pkg/db/models"
	"github.com/angelmondragon/pharmacy-backend/pkg/logger"
	"github.com/angelmondragon/pharmacy-backend/pkg/migrate"
)

type options struct {
	cmd, dir, name, version string
}

// offline commands never open a database connection.
var offline = map[string]func(options) (string, error){
	"create": func(o options) (string, error) {
		if o.name == "" {
			return "", fmt.Errorf("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(o.dir, o.name)
		return "created migration: " + path, err
	},
	"validate": func(o options) (string, error) {
		return "migration validation passed", migrate.ValidateDir(o.dir)
	},
}

func main() {
	var o options
	flag.StringVar(&o.cmd, "cmd", "up", "up|down|status|version|create|validate")
	flag.StringVar(&o.dir, "dir", migrate.DefaultDir, "migrations directory; empty uses the set embedded in the binary")
	flag.StringVar(&o.name, "name", "", "migration name for -cmd=create")
	flag.StringVar(&o.version, "version", "", "target YYYYMMDDHHMMSS for -cmd=version")
	flag.Parse()

	if run, ok := offline[o.cmd]; ok {
		msg, err := run(o)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", o.cmd, err)
			os.Exit(1)
		}
		fmt.Println(msg)
		return
	}

	_ = godotenv.Load()
	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": o.cmd, "dir": o.dir})

	if err := apply(ctx, cfg, logg, o); err != nil {
		logg.Error(ctx, "migrate failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migrate complete")
}

func apply(ctx context.Context, cfg *config.Config, logg *logger.Logger, o options) error {
	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer client.Close()

	// the SQL files are Postgres-only; sqlite schemas come from the models
	if client.Dialect() == db.DriverSQLite {
		if o.cmd != "up" {
			return fmt.Errorf("sqlite databases only support -cmd=up")
		}
		return client.DB().WithContext(ctx).AutoMigrate(models.All()...)
	}

	var pool *sql.DB
	if pool, err = client.SQL(); err != nil {
		return err
	}
	switch o.cmd {
	case "up", "down", "status":
		return migrate.Run(ctx, pool, o.dir, o.cmd)
	case "version":
		if o.version == "" {
			return fmt.Errorf("missing -version for version command")
		}
		return migrate.MigrateToVersion(ctx, pool, o.dir, o.version)
	default:
		return fmt.Errorf("unknown -cmd value %q", o.cmd)
	}
}
