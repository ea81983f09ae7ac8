package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config keeps runtime settings for the bot.
type Config struct {
	TelegramToken     string        `envconfig:"TELEGRAM_TOKEN"`
	TelegramTokenFile string        `envconfig:"TELEGRAM_TOKEN_FILE"`
	DatabaseURL       string        `envconfig:"DATABASE_URL" default:"data/mensabot.db"`
	Timezone          string        `envconfig:"TIMEZONE"`
	MensaLocation     string        `envconfig:"MENSA_LOCATION" default:"am Park"`
	MensaBaseURL      string        `envconfig:"MENSA_BASE_URL" default:"https://www.studentenwerk-leipzig.de/mensen-cafeterien/speiseplan"`
	FetchTimeout      time.Duration `envconfig:"FETCH_TIMEOUT" default:"30s"`
	SendRate          int           `envconfig:"SEND_RATE" default:"25"`
	LogLevel          string        `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error
	HTTPAddr          string        `envconfig:"HTTP_ADDR"`                // empty disables /healthz
	LockFile          string        `envconfig:"LOCK_FILE" default:"data/mensabot.lock"`
}

// Load reads configuration from environment variables with sane defaults.
// A .env file in the working directory is applied first if present; real
// environment variables win over it.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	cfg.TelegramToken = strings.TrimSpace(cfg.TelegramToken)
	if cfg.TelegramToken == "" && cfg.TelegramTokenFile != "" {
		token, err := readTokenFile(cfg.TelegramTokenFile)
		if err != nil {
			return cfg, err
		}
		cfg.TelegramToken = token
	}

	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	if cfg.SendRate <= 0 {
		cfg.SendRate = 25
	}

	return cfg, nil
}

// RequireToken reports a missing bot token. Offline commands (menu, reset-db)
// do not need one.
func (c Config) RequireToken() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN or TELEGRAM_TOKEN_FILE is required")
	}
	return nil
}

// Location resolves TIMEZONE, falling back to the system zone.
func (c Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Timezone)
	if tz == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}
	return loc, nil
}

// readTokenFile returns the first line of path.
func readTokenFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", fmt.Errorf("read token file: %w", err)
		}
		return "", fmt.Errorf("token file %q is empty", path)
	}
	token := strings.TrimSpace(sc.Text())
	if token == "" {
		return "", fmt.Errorf("token file %q is empty", path)
	}
	return token, nil
}
