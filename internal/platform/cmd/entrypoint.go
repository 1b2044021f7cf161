// Package cmd holds shared command entrypoint helpers: config loading, log
// output, and telemetry setup around a service run loop.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/louisbranch/offline-tasks/internal/platform/config"
	"github.com/louisbranch/offline-tasks/internal/platform/otel"
	"gopkg.in/natefinch/lumberjack.v2"
)

const defaultOTelShutdownTimeout = 5 * time.Second

// ServiceTasks identifies the task list service in telemetry and logs.
const ServiceTasks = "tasks"

// RunOptions controls shared entrypoint behavior for service commands.
type RunOptions struct {
	// ShutdownTimeout sets the timeout used when stopping telemetry.
	ShutdownTimeout time.Duration
}

// LogOptions configures where the standard logger writes.
type LogOptions struct {
	// File enables a rotated log file in addition to stderr.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// ParseConfig loads environment defaults into cfg.
func ParseConfig[T any](cfg *T) error {
	if cfg == nil {
		return errors.New("config target is required")
	}
	return config.ParseEnv(cfg)
}

// ParseArgs parses command-line flags.
func ParseArgs(fs *flag.FlagSet, args []string) error {
	if fs == nil {
		return errors.New("flag parser is required")
	}
	if args == nil {
		args = []string{}
	}
	return fs.Parse(args)
}

// ConfigureLogging points the standard logger at stderr and, when a file is
// configured, a size-rotated log file. The returned closer releases the file.
func ConfigureLogging(prefix string, opts LogOptions) io.Closer {
	log.SetPrefix(prefix)
	file := strings.TrimSpace(opts.File)
	if file == "" {
		log.SetOutput(os.Stderr)
		return nopCloser{}
	}
	rotated := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    orDefault(opts.MaxSizeMB, 10),
		MaxBackups: orDefault(opts.MaxBackups, 3),
		MaxAge:     orDefault(opts.MaxAgeDays, 28),
	}
	log.SetOutput(io.MultiWriter(os.Stderr, rotated))
	return rotated
}

// RunWithTelemetry configures observability and executes a service run loop.
func RunWithTelemetry(ctx context.Context, service string, run func(context.Context) error) error {
	return RunWithTelemetryAndOptions(ctx, service, RunOptions{}, run)
}

// RunWithTelemetryAndOptions configures observability and executes a service run loop.
func RunWithTelemetryAndOptions(ctx context.Context, service string, options RunOptions, run func(context.Context) error) error {
	service = strings.TrimSpace(service)
	if service == "" {
		return fmt.Errorf("service name is required")
	}
	if run == nil {
		return fmt.Errorf("run function is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	shutdown, err := otel.Setup(ctx, service)
	if err != nil {
		return err
	}
	defer func() {
		shutdownTimeout := options.ShutdownTimeout
		if shutdownTimeout <= 0 {
			shutdownTimeout = defaultOTelShutdownTimeout
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Printf("%s otel shutdown: %v", service, err)
		}
	}()
	return run(ctx)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func orDefault(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}
