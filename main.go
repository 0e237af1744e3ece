package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cdeck95/filament-tracking/auth"
	"github.com/cdeck95/filament-tracking/config"
	"github.com/cdeck95/filament-tracking/repository"
	"github.com/cdeck95/filament-tracking/server"
	"github.com/cdeck95/filament-tracking/srvreg"
	"github.com/cdeck95/filament-tracking/storage"
	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func main() {
	configFile := flag.String("config", "", "Config file path (optional)")
	issueToken := flag.String("issue-token", "", "Issue an API token for the given tenant id and exit")
	tokenName := flag.String("token-name", "default", "Display name for the issued token")
	flag.Parse()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	logger, err := buildLogger(cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	if *issueToken != "" {
		issueAPIToken(cfg, sugar, *issueToken, *tokenName)
		return
	}

	sugar.Info("===========================================")
	sugar.Info("   Filament Tracking - Starting Up")
	sugar.Info("===========================================")
	sugar.Infof("✓ Configuration loaded")
	sugar.Infof("   HTTP Port: %s", cfg.HTTPPort)
	sugar.Infof("   Storage Backend: %s", cfg.StorageBackend)
	sugar.Infof("   Auth Enabled: %v", cfg.AuthEnabled)

	store, err := openStore(cfg, sugar)
	if err != nil {
		sugar.Fatalf("Failed to open blob store: %v", err)
	}

	repo := repository.NewRepository(store, sugar)

	var tokenStore *auth.TokenStore
	if cfg.AuthEnabled {
		tokenStore, err = auth.NewTokenStore(cfg.TokenFile)
		if err != nil {
			sugar.Fatalf("Failed to open token store: %v", err)
		}
	}
	gate := auth.NewGate(cfg.AuthEnabled, tokenStore, sugar)

	serviceRegistry := srvreg.NewServiceRegistry(repo, sugar)
	serviceRegistry.RegisterDefaultServices()

	webServer := server.NewWebServer(cfg.HTTPPort, serviceRegistry, gate, sugar)
	if err := webServer.Start(); err != nil {
		sugar.Fatalf("Failed to start web server: %v", err)
	}

	sugar.Info("===========================================")
	sugar.Infof("   Filament Tracking Ready!")
	sugar.Infof("   Listening on: http://localhost:%s", cfg.HTTPPort)
	sugar.Info("===========================================")

	// Wait for interrupt signal to gracefully shut down
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sugar.Info("shutdown signal received, gracefully shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var shutdownErr error
	shutdownErr = multierr.Append(shutdownErr, webServer.Shutdown(ctx))
	shutdownErr = multierr.Append(shutdownErr, store.Close())
	if shutdownErr != nil {
		sugar.Errorf("Error during shutdown: %v", shutdownErr)
	}

	sugar.Info("✓ Filament Tracking stopped")
}

func buildLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// openStore selects the blob store backend from configuration.
func openStore(cfg *config.Config, logger *zap.SugaredLogger) (storage.BlobStore, error) {
	switch cfg.StorageBackend {
	case config.BackendBadger:
		return storage.NewBadgerStore(cfg.DataDir, logger)
	case config.BackendPostgres:
		return storage.NewPostgresStore(cfg.GetDSN(), logger)
	case config.BackendHTTP:
		return storage.NewHTTPStore(cfg.BlobEndpoint, cfg.BlobToken, logger), nil
	case config.BackendMemory:
		logger.Warn("using in-memory storage, data will not survive a restart")
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// issueAPIToken mints a token bound to a tenant and prints it once.
func issueAPIToken(cfg *config.Config, logger *zap.SugaredLogger, tenantID, name string) {
	tokenStore, err := auth.NewTokenStore(cfg.TokenFile)
	if err != nil {
		logger.Fatalf("Failed to open token store: %v", err)
	}
	token, err := tokenStore.Issue(tenantID, name)
	if err != nil {
		logger.Fatalf("Failed to issue token: %v", err)
	}
	fmt.Printf("Issued token for tenant %q (store it now, it cannot be recovered):\n%s\n", tenantID, token)
}
