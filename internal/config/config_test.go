package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"DATABASE_URL", "PG_DSN", "ENERGY_CONFIG", "HTTP_ADDR", "PY_BACKEND_TIMEOUT", "SOLAX_TOKEN_ID", "OPTIMIZER_ZERO_FILL", "BATTERY_PRICE_PER_KWH", "IMPORT_MAX_BYTES"} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultsAndEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/energy")
	t.Setenv("PY_BACKEND_TIMEOUT", "1500")
	t.Setenv("BATTERY_PRICE_PER_KWH", "9000")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/energy", cfg.DatabaseURL)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 1500*time.Millisecond, cfg.Backend.Timeout)
	assert.Equal(t, 9000.0, cfg.Battery.PricePerKWh)
	assert.Equal(t, 6.5, cfg.Battery.ImportPrice)
	assert.Equal(t, int64(10<<20), cfg.Import.MaxBytes)
	assert.Equal(t, "zero", cfg.OptimizerZeroFill)
}

func TestLoadYAMLThenEnvOverride(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "energy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database_url: postgres://yaml/energy
http_addr: ":9090"
optimizer_zero_fill: skip
solax:
  token_id: from-yaml
  timeout: 3s
battery:
  feed_in_tariff: 2.25
`), 0o600))
	t.Setenv("ENERGY_CONFIG", path)
	t.Setenv("HTTP_ADDR", ":7070")

	cfg, err := Load(filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "postgres://yaml/energy", cfg.DatabaseURL)
	assert.Equal(t, ":7070", cfg.HTTPAddr)
	assert.Equal(t, "skip", cfg.OptimizerZeroFill)
	assert.Equal(t, "from-yaml", cfg.Solax.TokenID)
	assert.Equal(t, 3*time.Second, cfg.Solax.Timeout)
	assert.Equal(t, 2.25, cfg.Battery.FeedInPrice)
	assert.Equal(t, 10000.0, cfg.Battery.PricePerKWh)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SOLAX_WIFI_SN=from-dotenv\n"), 0o600))
	t.Setenv("DATABASE_URL", "postgres://localhost/energy")
	require.NoError(t, os.Unsetenv("SOLAX_WIFI_SN"))
	t.Cleanup(func() { _ = os.Unsetenv("SOLAX_WIFI_SN") })

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Solax.WifiSN)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.Validate())

	cfg.DatabaseURL = "postgres://localhost/energy"
	require.NoError(t, cfg.Validate())

	cfg.OptimizerZeroFill = "maybe"
	assert.Error(t, cfg.Validate())
}

func TestNewLogger(t *testing.T) {
	logger := LogConfig{Level: "debug", Format: "json"}.NewLogger()
	assert.Equal(t, "debug", logger.GetLevel().String())

	fallback := LogConfig{Level: "loud"}.NewLogger()
	assert.Equal(t, "info", fallback.GetLevel().String())
}
