package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App   AppConfig
	Chat  ChatConfig
	Redis RedisConfig
}

type AppConfig struct {
	Environment string
	LogFilePath string
}

type ChatConfig struct {
	APIURL      string
	SocketURL   string
	Token       string
	HTTPTimeout time.Duration
}

type RedisConfig struct {
	URL string
}

// IsProduction reports whether GO_ENV selects production behavior.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Environment: getEnv("GO_ENV", "development"),
			LogFilePath: getEnv("LOG_FILE_PATH", "supportchat.log"),
		},
		Chat: ChatConfig{
			APIURL:      getEnv("CHAT_API_URL", "http://localhost:5000/api"),
			SocketURL:   getEnv("CHAT_SOCKET_URL", "ws://localhost:5000/ws"),
			Token:       getEnv("CHAT_TOKEN", ""),
			HTTPTimeout: getEnvAsDuration("CHAT_HTTP_TIMEOUT", HTTPTimeout),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go duration strings ("5s") or a bare number of seconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if secs := getEnvAsInt(key, -1); secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
