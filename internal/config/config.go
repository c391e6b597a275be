package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const configPathEnv = "IMPACTBOARD_CONFIG"

type Config struct {
	Env         string `yaml:"env"`
	ListenAddr  string `yaml:"listenAddr"`
	DatabaseURL string `yaml:"databaseUrl"`
	LogLevel    string `yaml:"logLevel"`
	DebounceMS  int    `yaml:"debounceMs"`
}

// Debounce is the quiet period applied to coalesced settings writes.
func (c Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

func defaults() Config {
	return Config{
		Env:        "development",
		ListenAddr: ":8080",
		LogLevel:   "info",
		DebounceMS: 1000,
	}
}

// Load reads the optional YAML file pointed at by IMPACTBOARD_CONFIG, then
// applies environment overrides. A missing DATABASE_URL is reported as an
// error value so callers can decide how fatal it is.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.Env = getenv("APP_ENV", cfg.Env)
	cfg.ListenAddr = getenv("LISTEN_ADDR", cfg.ListenAddr)
	cfg.DatabaseURL = getenv("DATABASE_URL", cfg.DatabaseURL)
	cfg.LogLevel = getenv("LOG_LEVEL", cfg.LogLevel)
	cfg.DebounceMS = getenvInt("DEBOUNCE_MS", cfg.DebounceMS)

	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL not set")
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var out int
		if _, err := fmt.Sscanf(v, "%d", &out); err == nil {
			return out
		}
	}
	return def
}
