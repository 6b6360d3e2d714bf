package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/iudanet/realsync/internal/cache"
	"github.com/iudanet/realsync/internal/cache/boltdb"
	"github.com/iudanet/realsync/internal/cache/memory"
	"github.com/iudanet/realsync/internal/models"
	"github.com/iudanet/realsync/internal/presence"
	"github.com/iudanet/realsync/internal/transport/ws"
	"github.com/iudanet/realsync/internal/watch"
	"github.com/iudanet/realsync/pkg/api"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "Server base URL")
	collection := flag.String("collection", "members", "Collection to watch")
	username := flag.String("username", "", "Username for presence (required)")
	cachePath := flag.String("cache", "", "Path to boltdb cache file (empty for in-memory)")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	logger := newLogger(*logLevel)

	if *username == "" {
		logger.Error("username is required")
		os.Exit(1)
	}

	if err := run(logger, *serverURL, *collection, *username, *cachePath); err != nil {
		logger.Error("Client failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, serverURL, collection, username, cachePath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clientID := uuid.NewString()

	token, err := requestToken(ctx, serverURL, clientID, username)
	if err != nil {
		return fmt.Errorf("failed to obtain token: %w", err)
	}

	store, closeStore, err := openStore(ctx, cachePath, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	wsEndpoint := strings.Replace(serverURL, "http", "ws", 1) + "/ws"
	client, err := ws.Dial(ctx, logger, wsEndpoint, token)
	if err != nil {
		return fmt.Errorf("failed to dial server: %w", err)
	}
	defer client.Close()

	store.RegisterList("all", nil)

	watcher := watch.New(client, store, watch.Options{
		Collection: collection,
		Actor:      presence.Actor{UserID: clientID, Username: username},
	}, logger)

	watcher.OnChange(func(event models.ChangeEvent) {
		logger.Info("Entity changed",
			"type", string(event.Type),
			"entity_id", event.EntityID())
	})
	watcher.OnStatus(func(status models.ConnectionStatus) {
		logger.Info("Feed status changed",
			"connected", status.Connected,
			"connecting", status.Connecting,
			"error", status.Error,
			"reconnect_attempts", status.ReconnectAttempts)
	})

	return watchLoop(ctx, logger, watcher, collection)
}

func printVersion() {
	fmt.Printf("RealSync Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func requestToken(ctx context.Context, serverURL, clientID, username string) (string, error) {
	body, err := json.Marshal(api.TokenRequest{ClientID: clientID, Username: username})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		serverURL+"/api/v1/auth/token", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request failed with status %d", resp.StatusCode)
	}

	var tokenResp api.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", err
	}
	return tokenResp.AccessToken, nil
}

func openStore(ctx context.Context, path string, logger *slog.Logger) (cache.Store, func(), error) {
	if path == "" {
		return memory.New(), func() {}, nil
	}

	store, err := boltdb.New(ctx, path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open cache: %w", err)
	}
	return store, func() {
		if err := store.Close(); err != nil {
			logger.Warn("Failed to close cache", "error", err)
		}
	}, nil
}

func watchLoop(ctx context.Context, logger *slog.Logger, watcher *watch.Watcher, collection string) error {
	if err := watcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer watcher.Stop()

	logger.Info("Watching collection", "collection", collection)

	<-ctx.Done()
	logger.Info("Shutting down")
	return nil
}
