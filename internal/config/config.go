package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Port               string
	Storage            string
	DatabaseURL        string
	RegistrationSecret string
	RegistrationIssuer string
	RegistrationTTL    time.Duration
	BcryptCost         int
	BootstrapEnabled   bool
	CORSOrigins        []string
	LogLevel           zerolog.Level
	LogFormat          string
}

// Load reads configuration from the environment and performs minimal validation.
func Load() (Config, error) {
	cfg := Config{
		Port:               fallback(os.Getenv("PORT"), "8080"),
		Storage:            strings.ToLower(fallback(os.Getenv("STORAGE"), StoragePostgres)),
		DatabaseURL:        strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RegistrationSecret: strings.TrimSpace(os.Getenv("REGISTRATION_SECRET")),
		RegistrationIssuer: fallback(os.Getenv("REGISTRATION_ISSUER"), "ctrl-hora"),
		RegistrationTTL:    time.Duration(positiveInt(os.Getenv("REGISTRATION_TTL_HOURS"), 72)) * time.Hour,
		BcryptCost:         positiveInt(os.Getenv("BCRYPT_COST"), bcrypt.DefaultCost),
		BootstrapEnabled:   parseBool(os.Getenv("BOOTSTRAP_ENABLED"), true),
		CORSOrigins:        parseCSV(fallback(os.Getenv("CORS_ALLOWED_ORIGINS"), "*")),
		LogFormat:          strings.ToLower(fallback(os.Getenv("LOG_FORMAT"), "json")),
	}

	level, err := zerolog.ParseLevel(strings.ToLower(fallback(os.Getenv("LOG_LEVEL"), "info")))
	if err != nil {
		return Config{}, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level

	switch cfg.Storage {
	case StorageMemory:
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, errors.New("DATABASE_URL is required")
		}
	default:
		return Config{}, fmt.Errorf("STORAGE must be %q or %q, got %q", StoragePostgres, StorageMemory, cfg.Storage)
	}
	if cfg.RegistrationSecret == "" {
		return Config{}, errors.New("REGISTRATION_SECRET is required")
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return Config{}, fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func positiveInt(value string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func parseBool(value string, def bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return def
	}
	return b
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
