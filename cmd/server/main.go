package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"coaching-chat/internal/api"
	"coaching-chat/internal/auth"
	"coaching-chat/internal/config"
	"coaching-chat/internal/db"
	"coaching-chat/internal/guestpass"
	"coaching-chat/internal/llm"
	"coaching-chat/internal/logger"
	"coaching-chat/internal/onboarding"
	"coaching-chat/internal/service"
	"coaching-chat/internal/session"
	"coaching-chat/internal/store"
	"coaching-chat/internal/stream"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logg.Sync()

	// Ensure data directory exists
	dbDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		logg.Fatal("failed to create data directory", "dir", dbDir, "error", err)
	}

	database, err := db.NewDB(cfg.DBPath)
	if err != nil {
		logg.Fatal("failed to open database", "path", cfg.DBPath, "error", err)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		logg.Fatal("failed to migrate database", "error", err)
	}
	logg.Info("database migrated", "path", cfg.DBPath)

	// Durable store: Redis when configured, in-process otherwise.
	var kv store.Store
	if cfg.RedisAddr != "" {
		redisStore, err := store.NewRedis(cfg.RedisAddr, "coaching")
		if err != nil {
			logg.Fatal("failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
		}
		defer redisStore.Close()
		kv = redisStore
		logg.Info("redis store connected", "addr", cfg.RedisAddr)
	} else {
		kv = store.NewMemory()
		logg.Info("using in-memory store")
	}

	var llmOpts []llm.ClientOption
	if cfg.OpenAI.Model != "" {
		llmOpts = append(llmOpts, llm.WithModel(cfg.OpenAI.Model))
	}
	if cfg.OpenAI.BaseURL != "" {
		llmOpts = append(llmOpts, llm.WithBaseURL(cfg.OpenAI.BaseURL))
	}
	llmClient := llm.NewClient(cfg.OpenAI.APIKey, logg, llmOpts...)

	svc := service.New(database, llmClient, kv, logg)
	manager := session.NewManager(logg, svc.Factory(), kv)

	checker := guestpass.NewChecker(database, logg)
	verifier := auth.NewVerifier(cfg.Auth.JWTSecret)
	resolver := api.NewIdentityResolver(database, checker, kv, logg)
	revealer := stream.NewRevealer(logg, cfg.RevealInterval)
	broadcaster := api.NewEventBroadcaster(logg)
	manager.SetNotifier(broadcaster)

	router := api.NewRouter(api.RouterConfig{
		Log:         logg,
		Manager:     manager,
		Resolver:    resolver,
		Revealer:    revealer,
		Broadcaster: broadcaster,
		Accounts:    database,
		Passes:      checker,
		Flow:        onboarding.NewFlow(kv),
		Verifier:    verifier,
		KV:          kv,
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logg.Info("server shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Pause live sessions so they can be resumed after restart.
		manager.Shutdown(ctx)

		if err := server.Shutdown(ctx); err != nil {
			logg.Fatal("server forced to shutdown", "error", err)
		}

		close(done)
	}()

	logg.Info("server starting", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Fatal("server failed to start", "error", err)
	}

	<-done
	logg.Info("server stopped")
}
