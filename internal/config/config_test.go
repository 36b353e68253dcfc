package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maternal-care-agent/internal/domain"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PROVIDERS", "rules")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, 12*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, 4*time.Second, cfg.ChatEscalationTimeout)
	assert.Equal(t, -1.2921, cfg.DefaultLatitude)
	assert.Equal(t, 36.8219, cfg.DefaultLongitude)
	assert.Equal(t, 5000, cfg.FacilityRadiusMeters)
	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, "https://api.mistral.ai/v1", cfg.MistralBaseURL)
	assert.Empty(t, cfg.GenerativeProviders())
}

func TestLoadFromDotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "PROVIDERS=mistral, aimlapi\nMISTRAL_API_KEY=m-key\nAI_ML_API_KEY=a-key\nPORT=9000\nTELEGRAM_ALERT_CHAT_ID=-100123\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	t.Setenv("PORT", "7000")
	// register for cleanup; godotenv sets these with os.Setenv
	for _, k := range []string{"PROVIDERS", "MISTRAL_API_KEY", "AI_ML_API_KEY", "TELEGRAM_ALERT_CHAT_ID"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, []string{"mistral", "aimlapi"}, cfg.Providers)
	assert.Equal(t, "m-key", cfg.MistralKey)
	assert.Equal(t, int64(-100123), cfg.TelegramAlertChatID)
}

func TestLoadYAMLFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("providers: gemini\ngemini_api_key: g-key\nfacility_radius_meters: 8000\n"), 0o600))
	t.Setenv("CONFIG_FILE", file)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, []string{"gemini"}, cfg.Providers)
	assert.Equal(t, 8000, cfg.FacilityRadiusMeters)
}

func TestValidate(t *testing.T) {
	base := Config{StoreDriver: "memory", Providers: []string{"mistral"}, MistralKey: "k"}
	require.NoError(t, base.Validate())

	tests := map[string]func(c *Config){
		"no providers":      func(c *Config) { c.Providers = nil },
		"unknown provider":  func(c *Config) { c.Providers = []string{"claude"} },
		"missing key":       func(c *Config) { c.Providers = []string{"mistral", "aimlapi"} },
		"sqlite without db": func(c *Config) { c.StoreDriver = "sqlite" },
		"mongo without uri": func(c *Config) { c.StoreDriver = "mongo" },
		"unknown driver":    func(c *Config) { c.StoreDriver = "redis" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := base
			mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), domain.ErrConfiguration)
		})
	}
}

func TestParseIDs(t *testing.T) {
	assert.Equal(t, []int64{1, -2}, parseIDs("1, -2, x"))
	assert.Nil(t, parseIDs(" "))
}
