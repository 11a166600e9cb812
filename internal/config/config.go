package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds the service settings.
type Config struct {
	DatabaseURL       string        `yaml:"database_url"`
	HTTPAddr          string        `yaml:"http_addr"`
	SystemID          string        `yaml:"system_id"`
	AuthJWTSecret     string        `yaml:"auth_jwt_secret"`
	Backend           BackendConfig `yaml:"backend"`
	Script            ScriptConfig  `yaml:"script"`
	Solax             SolaxConfig   `yaml:"solax"`
	Battery           BatteryConfig `yaml:"battery"`
	Import            ImportConfig  `yaml:"import"`
	OptimizerZeroFill string        `yaml:"optimizer_zero_fill"`
	Log               LogConfig     `yaml:"log"`
}

// BackendConfig points at the remote compute backend.
type BackendConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// ScriptConfig describes the local dashboard script.
type ScriptConfig struct {
	Path    string        `yaml:"path"`
	WorkDir string        `yaml:"workdir"`
	Timeout time.Duration `yaml:"timeout"`
	Python  string        `yaml:"python"`
}

// SolaxConfig holds the live telemetry credentials.
type SolaxConfig struct {
	BaseURL       string        `yaml:"base_url"`
	TokenID       string        `yaml:"token_id"`
	WifiSN        string        `yaml:"wifi_sn"`
	Timeout       time.Duration `yaml:"timeout"`
	RatePerMinute int           `yaml:"rate_per_minute"`
}

// BatteryConfig prices the scenario simulation in Kč.
type BatteryConfig struct {
	PricePerKWh float64 `yaml:"price_per_kwh"`
	ImportPrice float64 `yaml:"import_price"`
	FeedInPrice float64 `yaml:"feed_in_tariff"`
}

// ImportConfig bounds uploads and locates the import history.
type ImportConfig struct {
	MaxBytes int64  `yaml:"max_bytes"`
	RedisURL string `yaml:"redis_url"`
	LogPath  string `yaml:"log_path"`
}

// LogConfig selects the log level and format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		HTTPAddr: ":8080",
		SystemID: "default",
		Backend:  BackendConfig{Timeout: 30 * time.Second},
		Script:   ScriptConfig{Timeout: 60 * time.Second, Python: "python3"},
		Solax: SolaxConfig{
			BaseURL:       "https://global.solaxcloud.com",
			Timeout:       10 * time.Second,
			RatePerMinute: 10,
		},
		Battery: BatteryConfig{
			PricePerKWh: 10000,
			ImportPrice: 6.5,
			FeedInPrice: 1.5,
		},
		Import: ImportConfig{
			MaxBytes: 10 << 20,
			LogPath:  "data/import-log.json",
		},
		OptimizerZeroFill: "zero",
		Log:               LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads .env files, then the YAML file named by ENERGY_CONFIG, then
// environment overrides. Missing .env files are ignored.
func Load(dotenvFiles ...string) (Config, error) {
	if len(dotenvFiles) == 0 {
		dotenvFiles = []string{".env"}
	}
	for _, path := range dotenvFiles {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	cfg := Default()
	if path := os.Getenv("ENERGY_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) {
	cfg.DatabaseURL = getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", cfg.DatabaseURL))
	cfg.HTTPAddr = getenvDefault("HTTP_ADDR", cfg.HTTPAddr)
	cfg.SystemID = getenvDefault("SYSTEM_ID", cfg.SystemID)
	cfg.AuthJWTSecret = getenvDefault("AUTH_JWT_SECRET", cfg.AuthJWTSecret)

	cfg.Backend.URL = getenvDefault("PY_BACKEND_URL", cfg.Backend.URL)
	cfg.Backend.Timeout = getenvDuration("PY_BACKEND_TIMEOUT", cfg.Backend.Timeout)

	cfg.Script.Path = getenvDefault("PY_DASHBOARD_SCRIPT", cfg.Script.Path)
	cfg.Script.WorkDir = getenvDefault("PY_WORKDIR", cfg.Script.WorkDir)
	cfg.Script.Timeout = getenvDuration("PY_SCRIPT_TIMEOUT", cfg.Script.Timeout)
	cfg.Script.Python = getenvDefault("PYTHON_BIN", cfg.Script.Python)

	cfg.Solax.BaseURL = getenvDefault("SOLAX_BASE_URL", cfg.Solax.BaseURL)
	cfg.Solax.TokenID = getenvDefault("SOLAX_TOKEN_ID", cfg.Solax.TokenID)
	cfg.Solax.WifiSN = getenvDefault("SOLAX_WIFI_SN", cfg.Solax.WifiSN)
	cfg.Solax.Timeout = getenvDuration("SOLAX_TIMEOUT", cfg.Solax.Timeout)
	cfg.Solax.RatePerMinute = getenvIntDefault("SOLAX_RATE_PER_MINUTE", cfg.Solax.RatePerMinute)

	cfg.Battery.PricePerKWh = getenvFloatDefault("BATTERY_PRICE_PER_KWH", cfg.Battery.PricePerKWh)
	cfg.Battery.ImportPrice = getenvFloatDefault("CZK_GRID_IMPORT_PRICE", cfg.Battery.ImportPrice)
	cfg.Battery.FeedInPrice = getenvFloatDefault("CZK_FEEDIN_TARIFF", cfg.Battery.FeedInPrice)

	cfg.Import.MaxBytes = int64(getenvIntDefault("IMPORT_MAX_BYTES", int(cfg.Import.MaxBytes)))
	cfg.Import.RedisURL = getenvDefault("IMPORT_REDIS_URL", cfg.Import.RedisURL)
	cfg.Import.LogPath = getenvDefault("IMPORT_LOG_PATH", cfg.Import.LogPath)

	cfg.OptimizerZeroFill = getenvDefault("OPTIMIZER_ZERO_FILL", cfg.OptimizerZeroFill)
	cfg.Log.Level = getenvDefault("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getenvDefault("LOG_FORMAT", cfg.Log.Format)
}

// Validate reports settings the service cannot start with.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("config: DATABASE_URL or PG_DSN is required")
	}
	if c.Import.MaxBytes <= 0 {
		return errors.New("config: IMPORT_MAX_BYTES must be positive")
	}
	switch c.OptimizerZeroFill {
	case "zero", "skip":
	default:
		return fmt.Errorf("config: OPTIMIZER_ZERO_FILL must be zero or skip, got %q", c.OptimizerZeroFill)
	}
	if c.Battery.PricePerKWh < 0 || c.Battery.ImportPrice < 0 || c.Battery.FeedInPrice < 0 {
		return errors.New("config: battery prices must not be negative")
	}
	return nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvFloatDefault(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// getenvDuration accepts Go durations and bare milliseconds.
func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// NewLogger builds the process logger. Unknown levels fall back to info.
func (c LogConfig) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if c.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}
