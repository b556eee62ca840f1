package main

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"

	"fans3-backend/internal/bot"
	"fans3-backend/internal/common/config"
	"fans3-backend/internal/common/logger"
	accesssvc "fans3-backend/internal/features/access/service"
	bindingsvc "fans3-backend/internal/features/binding/service"
	listingsvc "fans3-backend/internal/features/listing/service"
	regsvc "fans3-backend/internal/features/registration/service"
	"fans3-backend/internal/platform/ethereum"
	"fans3-backend/internal/platform/telegram"
	"fans3-backend/internal/store"
	memorystore "fans3-backend/internal/store/memory"
	redisstore "fans3-backend/internal/store/redis"
	sqlitestore "fans3-backend/internal/store/sqlite"
)

func main() {
	cfg := config.Load()
	logger.Init("fans3-bot", cfg.Debug)

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

	api, err := telego.NewBot(cfg.Telegram.BotToken, telego.WithDiscardLogger())
	if err != nil {
		logger.Fatal().Err(err).Msg("Cannot create telegram client")
	}
	transport := telegram.NewClient(api)

	binding := bindingsvc.NewService(st)
	access := accesssvc.NewService(st, chain)
	registration := regsvc.NewService(st, chain, transport)
	listing := listingsvc.NewService(st, chain, transport)

	b := bot.New(api, transport, binding, access, registration, listing, cfg.BaseURL, cfg.Telegram.DeveloperChatID)

	logger.Info().Msg("Starting bot")
	if err := b.Run(); err != nil {
		logger.Fatal().Err(err).Msg("Bot stopped")
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
