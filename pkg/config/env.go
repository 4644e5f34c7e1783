package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variable names
const (
	EnvBybitAPIKey    = "BYBIT_API_KEY"
	EnvBybitAPISecret = "BYBIT_API_SECRET"
	EnvDatabaseURL    = "PB_DATABASE_URL"
	EnvWorkers        = "PB_WORKERS"
	EnvTelegramToken  = "TELEGRAM_BOT_TOKEN"
	EnvTelegramChatID = "TELEGRAM_CHAT_ID"
)

// Env holds settings that come from the process environment or a .env file
type Env struct {
	BybitAPIKey    string
	BybitAPISecret string
	DatabaseURL    string
	Workers        int
	TelegramToken  string
	TelegramChatID string
}

// LoadEnv loads the given .env files (".env" when none are given) into the process
// environment and reads the settings. Missing files are ignored; variables that are
// already set win over file values.
func LoadEnv(files ...string) (Env, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Env{}, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return ReadEnv()
}

// ReadEnv reads the settings from the process environment
func ReadEnv() (Env, error) {
	env := Env{
		BybitAPIKey:    strings.TrimSpace(os.Getenv(EnvBybitAPIKey)),
		BybitAPISecret: strings.TrimSpace(os.Getenv(EnvBybitAPISecret)),
		DatabaseURL:    strings.TrimSpace(os.Getenv(EnvDatabaseURL)),
		TelegramToken:  strings.TrimSpace(os.Getenv(EnvTelegramToken)),
		TelegramChatID: strings.TrimSpace(os.Getenv(EnvTelegramChatID)),
	}
	if raw := strings.TrimSpace(os.Getenv(EnvWorkers)); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return Env{}, fmt.Errorf("%s must be a non-negative integer, got %q", EnvWorkers, raw)
		}
		env.Workers = n
	}
	return env, nil
}

// Apply fills sweep settings the configuration file left unset
func (e Env) Apply(cfg *SweepConfig) {
	if cfg.Workers == 0 && e.Workers > 0 {
		cfg.Workers = e.Workers
	}
}

// HasCredentials reports whether both Bybit credentials are present
func (e Env) HasCredentials() bool {
	return e.BybitAPIKey != "" && e.BybitAPISecret != ""
}

// HasTelegram reports whether sweep alerts can be sent to Telegram
func (e Env) HasTelegram() bool {
	return e.TelegramToken != "" && e.TelegramChatID != ""
}
