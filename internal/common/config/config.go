package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	// BaseURL is the web signing origin; verify and buy deep links point there.
	BaseURL string `env:"BASE_URL,required"`

	Server struct {
		Port   int    `env:"PORT" envDefault:"8080"`
		Origin string `env:"ORIGIN" envDefault:"http://localhost:3000"`
	}

	Storage struct {
		// Backend selects the index store implementation: redis or sqlite.
		Backend    string `env:"STORAGE_BACKEND" envDefault:"redis"`
		SqlitePath string `env:"SQLITE_PATH" envDefault:"tg.db"`
	}

	Redis struct {
		Host     string `env:"REDIS_HOST" envDefault:"localhost"`
		Port     int    `env:"REDIS_PORT" envDefault:"6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	Telegram struct {
		BotToken        string `env:"BOT_TOKEN,required"`
		DeveloperChatID int64  `env:"DEVELOPER_CHAT_ID" envDefault:"0"`
	}

	Ethereum struct {
		RPCURL          string        `env:"ETH_RPC,required"`
		ContractAddress string        `env:"CONTRACT_ADDRESS,required"`
		CallTimeout     time.Duration `env:"ETH_CALL_TIMEOUT" envDefault:"10s"`
	}
}

func Load() *Config {
	// A missing .env file is fine; in production the variables are set directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		panic(err)
	}

	return cfg
}
