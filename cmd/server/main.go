package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mymmrac/telego"

	"fans3-backend/internal/common/config"
	"fans3-backend/internal/common/logger"
	bindingsvc "fans3-backend/internal/features/binding/service"
	listingsvc "fans3-backend/internal/features/listing/service"
	httpapi "fans3-backend/internal/http"
	"fans3-backend/internal/platform/ethereum"
	"fans3-backend/internal/platform/telegram"
	"fans3-backend/internal/store"
	memorystore "fans3-backend/internal/store/memory"
	redisstore "fans3-backend/internal/store/redis"
	sqlitestore "fans3-backend/internal/store/sqlite"
)

func main() {
	cfg := config.Load()
	logger.Init("fans3-server", cfg.Debug)

	ctx := context.Background()

	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Cannot open index store")
	}
	defer st.Close()

	chain, err := ethereum.Dial(ctx, cfg.Ethereum.RPCURL, cfg.Ethereum.ContractAddress, cfg.Ethereum.CallTimeout)
	if err != nil {
		logger.Fatal().Err(err).Msg("Cannot connect to eth rpc")
	}
	defer chain.Close()

	// API-only bot client; the server creates invite links lazily and never
	// polls for updates.
	api, err := telego.NewBot(cfg.Telegram.BotToken, telego.WithDiscardLogger())
	if err != nil {
		logger.Fatal().Err(err).Msg("Cannot create telegram client")
	}
	transport := telegram.NewClient(api)

	binding := bindingsvc.NewService(st)
	listing := listingsvc.NewService(st, chain, transport)

	handler := httpapi.NewVerifyHandler(binding, listing)
	router := httpapi.NewRouter(cfg, handler)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("API server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Forced shutdown")
	}
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Storage.Backend {
	case "redis":
		addr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
		return redisstore.Open(ctx, addr, cfg.Redis.Password, cfg.Redis.DB)
	case "sqlite":
		return sqlitestore.Open(cfg.Storage.SqlitePath)
	case "memory":
		return memorystore.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
