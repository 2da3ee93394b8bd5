package main

// Apply or inspect database migrations:
//   go run ./cmd/migrate [up|down|status|version]

import (
	"context"
	"os"

	"github.com/spf13/pflag"

	"resume-gap-analyzer/internal/bootstrap"
	"resume-gap-analyzer/internal/shared/config"
	"resume-gap-analyzer/internal/shared/storage/db"
	"resume-gap-analyzer/internal/shared/telemetry"
)

func main() {
	flags := pflag.NewFlagSet("migrate", pflag.ExitOnError)
	configPath := flags.StringP("config", "c", "", "YAML config file (overrides CONFIG_FILE)")
	_ = flags.Parse(os.Args[1:])
	if *configPath != "" {
		_ = os.Setenv("CONFIG_FILE", *configPath)
	}

	command := "up"
	if flags.NArg() > 0 {
		command = flags.Arg(0)
	}

	cfg := config.Load()
	telemetry.Init(cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	opts := db.Defaults(db.ProfileMigrate).Override(bootstrap.PoolOverrides(cfg))
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		telemetry.Error("migrate.connect_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := db.Migrate(ctx, sqlDB, command); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"command": command, "error": err.Error()})
		os.Exit(1)
	}
	telemetry.Info("migrate.done", map[string]any{"command": command})
}
