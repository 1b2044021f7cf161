// Package tasks parses tasks command flags and launches the service.
package tasks

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	entrypoint "github.com/louisbranch/offline-tasks/internal/platform/cmd"
	taskservice "github.com/louisbranch/offline-tasks/internal/services/tasks"
)

// Config holds tasks command configuration.
type Config struct {
	HTTPAddr       string        `env:"TASKS_HTTP_ADDR" envDefault:"localhost:8080"`
	DBPath         string        `env:"TASKS_DB_PATH" envDefault:"data/tasks-db.sqlite"`
	OriginURL      string        `env:"TASKS_ORIGIN_URL"`
	Version        string        `env:"TASKS_VERSION" envDefault:"0.0.1"`
	ResponseMode   string        `env:"TASKS_RESPONSE_MODE" envDefault:"redirect"`
	StaticStrategy string        `env:"TASKS_STATIC_STRATEGY" envDefault:"cache-first"`
	FetchTimeout   time.Duration `env:"TASKS_FETCH_TIMEOUT" envDefault:"10s"`
	LocalSanitizer bool          `env:"TASKS_LOCAL_SANITIZER" envDefault:"true"`
	ChannelOrigins []string      `env:"TASKS_CHANNEL_ORIGINS" envSeparator:","`
	LogFile        string        `env:"TASKS_LOG_FILE"`
	LogMaxSizeMB   int           `env:"TASKS_LOG_MAX_SIZE_MB" envDefault:"10"`
	LogMaxBackups  int           `env:"TASKS_LOG_MAX_BACKUPS" envDefault:"3"`
	LogMaxAgeDays  int           `env:"TASKS_LOG_MAX_AGE_DAYS" envDefault:"28"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	return parseFlags(cfg, fs, args)
}

func parseFlags(cfg Config, fs *flag.FlagSet, args []string) (Config, error) {
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The task SQLite database path")
	fs.StringVar(&cfg.OriginURL, "origin-url", cfg.OriginURL, "Remote origin base URL (empty serves embedded assets)")
	fs.StringVar(&cfg.Version, "version", cfg.Version, "Static cache version")
	fs.StringVar(&cfg.ResponseMode, "response-mode", cfg.ResponseMode, "Mutation responses: redirect, fragment or stream")
	fs.StringVar(&cfg.StaticStrategy, "static-strategy", cfg.StaticStrategy, "Static asset strategy: cache-first, network-first or stale-while-revalidate")
	fs.DurationVar(&cfg.FetchTimeout, "fetch-timeout", cfg.FetchTimeout, "Origin fetch timeout")
	fs.BoolVar(&cfg.LocalSanitizer, "local-sanitizer", cfg.LocalSanitizer, "Answer html-sanitizer messages in process")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Rotated log file (stderr only when empty)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if strings.TrimSpace(cfg.Version) == "" {
		return Config{}, fmt.Errorf("version is required")
	}
	return cfg, nil
}

// LogOptions returns the log output settings.
func (c Config) LogOptions() entrypoint.LogOptions {
	return entrypoint.LogOptions{
		File:       c.LogFile,
		MaxSizeMB:  c.LogMaxSizeMB,
		MaxBackups: c.LogMaxBackups,
		MaxAgeDays: c.LogMaxAgeDays,
	}
}

// Run starts the tasks service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceTasks, func(ctx context.Context) error {
		server, err := taskservice.NewServer(ctx, taskservice.Config{
			HTTPAddr:       cfg.HTTPAddr,
			DBPath:         cfg.DBPath,
			OriginURL:      cfg.OriginURL,
			Version:        cfg.Version,
			ResponseMode:   cfg.ResponseMode,
			StaticStrategy: cfg.StaticStrategy,
			FetchTimeout:   cfg.FetchTimeout,
			LocalSanitizer: cfg.LocalSanitizer,
			ChannelOrigins: cfg.ChannelOrigins,
		})
		if err != nil {
			return fmt.Errorf("init tasks server: %w", err)
		}
		defer server.Close()

		if err := server.ListenAndServe(ctx); err != nil {
			return fmt.Errorf("serve tasks: %w", err)
		}
		return nil
	})
}
