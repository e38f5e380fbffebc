package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"invlearn/internal"
	"invlearn/internal/config"
	"invlearn/internal/container"
	"invlearn/ui"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	logger := internal.NewDefaultLogger()
	defer logger.Sync()

	// Load application configuration
	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Create dependency injection container; the database is optional
	appContainer, err := container.Open(ctx, appConfig, logger)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := appContainer.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown: %v", err)
		}
	}()

	if logger.GetLevel() < internal.LogLevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := appContainer.InitAPI(ctx)

	server, err := ui.NewApp(ui.Config{Port: appConfig.Server.Port, API: router}, appContainer.Learning, appContainer.InvariantRepo, logger)
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}

	logger.Info("Starting invariant learning server on port %s", appConfig.Server.Port)
	if err := server.Start(ctx); err != nil {
		logger.Error("server stopped: %v", err)
	}
}
