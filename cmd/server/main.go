package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lassenordahl/rank-everything-sub001/internal/v1/config"
	"github.com/lassenordahl/rank-everything-sub001/internal/v1/emoji"
	"github.com/lassenordahl/rank-everything-sub001/internal/v1/health"
	"github.com/lassenordahl/rank-everything-sub001/internal/v1/httpapi"
	"github.com/lassenordahl/rank-everything-sub001/internal/v1/itemstore"
	"github.com/lassenordahl/rank-everything-sub001/internal/v1/logging"
	"github.com/lassenordahl/rank-everything-sub001/internal/v1/ratelimit"
	"github.com/lassenordahl/rank-everything-sub001/internal/v1/room"
)

func main() {
	// Load .env file for local development. Try multiple paths to handle
	// different ways of running the binary.
	for _, path := range []string{".env", "../../.env", "../.env"} {
		if err := godotenv.Load(path); err == nil {
			break
		}
	}

	cfg, err := config.ValidateEnv()
	if err != nil {
		panic(err)
	}

	if err := logging.Initialize(cfg.DevelopmentMode); err != nil {
		panic(err)
	}
	log := logging.GetLogger()

	var store *itemstore.Store
	if cfg.RedisEnabled {
		store, err = itemstore.New(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Warn("item store unavailable, random-item suggestions will be empty", zap.Error(err))
			store = nil
		}
	}

	var emojiProvider room.EmojiProvider
	if cfg.EmojiEnabled {
		emojiProvider = emoji.NewProvider(cfg.OpenAIAPIKey, cfg.EmojiDailyBudget)
	}

	var itemStore room.ItemStore
	if store != nil {
		itemStore = store
	}
	registry := room.NewRegistry(time.Duration(cfg.RoomTTLMinutes)*time.Minute, emojiProvider, itemStore, nil, log)

	var rateLimitRedis *redis.Client
	if store != nil {
		rateLimitRedis = store.Client()
	}
	rl, err := ratelimit.NewRateLimiter(cfg, rateLimitRedis)
	if err != nil {
		panic(err)
	}

	var pinger health.ItemStorePinger
	if store != nil {
		pinger = store
	}

	srv := &httpapi.Server{
		Registry:  registry,
		RateLimit: rl,
		Health:    health.NewChecker(pinger),
	}

	router := httpapi.NewRouter(srv, cfg.AllowedOrigins)
	stopSweep := startHeartbeatSweep(registry)
	defer stopSweep()

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info("rank-everything server starting", zap.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	if store != nil {
		_ = store.Close()
	}

	log.Info("server exiting")
}

// startHeartbeatSweep drives the Connection Hub heartbeat (§4.4) with one
// process-wide ticker across every live room, rather than a per-room
// timer.
func startHeartbeatSweep(reg *room.Registry) func() {
	ticker := time.NewTicker(20 * time.Second)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				reg.SweepAll()
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	return func() { close(done) }
}
