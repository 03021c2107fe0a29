package commands

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskdeck/core/internal/adapters/storage/bolt"
	"github.com/taskdeck/core/internal/infrastructure/config"
	"github.com/taskdeck/core/internal/infrastructure/logger"
	"github.com/taskdeck/core/internal/infrastructure/server"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the TaskDeck API server",
		Long:  "Start the TaskDeck API server backed by the durable local task store",
		Run: func(cmd *cobra.Command, args []string) {
			runServer()
		},
	}
}

func runServer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	store, err := bolt.Open(cfg.Storage.Path, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to open task store", "error", err)
	}
	defer store.Close()

	srv, err := server.New(cfg, store, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize server", "error", err)
	}

	appLogger.Info("Starting TaskDeck API server",
		"address", cfg.Server.Address(),
		"environment", cfg.App.Environment,
	)

	go func() {
		if err := srv.Start(cfg.Server.Address()); err != nil {
			appLogger.Info("Server stopped", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Fatal("Server shutdown failed", "error", err)
	}
}
