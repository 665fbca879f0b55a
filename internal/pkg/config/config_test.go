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
	for _, key := range []string{
		"ALPHA_VANTAGE_API_KEY", "DB_URI", "DATABASE_URL", "SYMBOL", "PRICE_TABLE",
		"ARTIFACT_PATH", "HTTP_TIMEOUT", "FETCH_MAX_RETRIES", "PCT_THRESHOLD",
		"DB_CONNECT_TIMEOUT", "DB_STATEMENT_TIMEOUT", "FETCH_RETRY_WAIT",
		"LOG_ROTATION_MB", "LOG_RETENTION_DAYS", "PORT", "GIN_MODE", "CORS_ORIGINS",
	} {
		t.Setenv(key, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "AAPL", cfg.Market.Symbol)
	assert.Equal(t, "full", cfg.Market.OutputSize)
	assert.Equal(t, 30*time.Second, cfg.Market.Timeout)
	assert.Equal(t, 0, cfg.Market.MaxRetries)
	assert.Equal(t, "apple_stock", cfg.Database.Table)
	assert.Equal(t, "Data/apple_stock_data.csv", cfg.Artifact.Path)
	assert.InDelta(t, 0.1, cfg.Predictor.PctThreshold, 1e-12)
	assert.Equal(t, "8099", cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
}

func TestFromEnv_CORSOrigins(t *testing.T) {
	clearEnv(t)
	t.Setenv("CORS_ORIGINS", "http://localhost:3000, ,http://localhost:3099")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:3099"}, cfg.Server.CORSOrigins)
}

func TestFromEnv_DatabaseURLAlias(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/alias")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/alias", cfg.Database.URL)

	t.Setenv("DB_URI", "postgres://localhost/primary")
	cfg, err = FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/primary", cfg.Database.URL)
}

func TestFromEnv_MalformedValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_TIMEOUT", "soon")
	t.Setenv("PCT_THRESHOLD", "ten")

	_, err := FromEnv()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), "HTTP_TIMEOUT")
	assert.Contains(t, err.Error(), "PCT_THRESHOLD")
}

func TestValidate(t *testing.T) {
	clearEnv(t)

	t.Run("missing credentials", func(t *testing.T) {
		cfg, err := FromEnv()
		require.NoError(t, err)

		err = cfg.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrConfiguration)
		assert.Contains(t, err.Error(), "ALPHA_VANTAGE_API_KEY")
		assert.Contains(t, err.Error(), "DB_URI")
	})

	t.Run("complete", func(t *testing.T) {
		t.Setenv("ALPHA_VANTAGE_API_KEY", "demo")
		t.Setenv("DB_URI", "postgres://localhost/stock_data")

		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("negative threshold", func(t *testing.T) {
		t.Setenv("ALPHA_VANTAGE_API_KEY", "demo")
		t.Setenv("DB_URI", "postgres://localhost/stock_data")
		t.Setenv("PCT_THRESHOLD", "-1")

		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.ErrorIs(t, cfg.Validate(), ErrConfiguration)
	})
}

func TestValidatePerStage(t *testing.T) {
	clearEnv(t)
	t.Setenv("ALPHA_VANTAGE_API_KEY", "demo")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.NoError(t, cfg.ValidateMarket())
	assert.ErrorIs(t, cfg.ValidateDatabase(), ErrConfiguration)
	assert.ErrorIs(t, cfg.Validate(), ErrConfiguration)

	cfg.Market.APIKey = ""
	cfg.Database.URL = "postgres://localhost/stock_data"
	assert.ErrorIs(t, cfg.ValidateMarket(), ErrConfiguration)
	assert.NoError(t, cfg.ValidateDatabase())
}

func TestLoad_ExplicitFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "pipeline.env")
	require.NoError(t, os.WriteFile(path, []byte("SYMBOL=MSFT\nPRICE_TABLE=msft_stock\n"), 0o644))

	// godotenv never overrides variables that exist, even when empty
	for _, key := range []string{"SYMBOL", "PRICE_TABLE"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "MSFT", cfg.Market.Symbol)
	assert.Equal(t, "msft_stock", cfg.Database.Table)

	_, err = Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorIs(t, err, ErrConfiguration)
}
