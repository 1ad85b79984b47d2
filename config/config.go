package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is loaded once per run and passed explicitly; there is no
// package-level cache.
type Config struct {
	DBPath      string
	DatabaseURL string // when set, Postgres is used instead of SQLite
	OutputDir   string
	ImagesDir   string
	LogLevel    string
	Proxy       ProxyConfig
	Scheduler   SchedulerConfig
	Recheck     RecheckConfig
	Stores      map[string]*StoreConfig
}

type ProxyConfig struct {
	URL string
}

type SchedulerConfig struct {
	Cron     string
	Interval time.Duration
}

type RecheckConfig struct {
	BatchSize int
	Stale     time.Duration
	DelayMS   int
}

// StoreConfig maps a domain to its defaults and extraction profile.
type StoreConfig struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Domain      string `yaml:"domain"`
	Currency    string `yaml:"currency"`
	Sizing      string `yaml:"sizing"`  // "eu" or "us" bare numerals
	Profile     string `yaml:"profile"` // adapter name, "" = generic
	RateLimitMS int    `yaml:"rate_limit_ms"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBPath:      getEnv("DB_PATH", "catalog.db"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		OutputDir:   getEnv("OUTPUT_DIR", "public"),
		ImagesDir:   getEnv("IMAGES_DIR", "public/images"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Proxy: ProxyConfig{
			URL: os.Getenv("PROXY_URL"),
		},
		Scheduler: SchedulerConfig{
			Cron: os.Getenv("RECHECK_CRON"),
		},
		Recheck: RecheckConfig{
			BatchSize: getEnvInt("RECHECK_BATCH_SIZE", 50),
			Stale:     24 * time.Hour,
			DelayMS:   getEnvInt("RECHECK_DELAY_MS", 500),
		},
		Stores: make(map[string]*StoreConfig),
	}

	if interval := os.Getenv("RECHECK_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			cfg.Scheduler.Interval = d
		}
	}
	if stale := os.Getenv("RECHECK_STALE"); stale != "" {
		if d, err := time.ParseDuration(stale); err == nil {
			cfg.Recheck.Stale = d
		}
	}

	if err := cfg.loadStoreConfigs("config/stores"); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadStoreConfigs(configDir string) error {
	entries, err := os.ReadDir(configDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(configDir, entry.Name()))
		if err != nil {
			return err
		}

		var store StoreConfig
		if err := yaml.Unmarshal(data, &store); err != nil {
			return err
		}
		c.Stores[store.ID] = &store
	}

	return nil
}

// StoreFor finds the config whose domain matches, or nil.
func (c *Config) StoreFor(domain string) *StoreConfig {
	for _, s := range c.Stores {
		if s.Domain == domain {
			return s
		}
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
