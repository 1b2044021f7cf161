// Package main starts the offline task list service.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	taskscmd "github.com/louisbranch/offline-tasks/internal/cmd/tasks"
	entrypoint "github.com/louisbranch/offline-tasks/internal/platform/cmd"
	"github.com/louisbranch/offline-tasks/internal/platform/config"
)

func main() {
	cfg, err := taskscmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	logs := entrypoint.ConfigureLogging("[TASKS] ", cfg.LogOptions())
	defer logs.Close()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := taskscmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
