package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"era-photobooth/internal/apperr"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", " key ")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "key", cfg.GeminiAPIKey)
	assert.Equal(t, "gemini-2.5-flash-image", cfg.GeminiModel)
	assert.Equal(t, 90*time.Second, cfg.GenerationTimeout)
	assert.Equal(t, 120*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, ":8080", cfg.WebAddr)
	assert.Equal(t, SceneStoreFile, cfg.SceneStore)
	assert.Equal(t, "127.0.0.1:6379", cfg.ValkeyAddr)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryBackoff)
	assert.Equal(t, ShareFormatPNG, cfg.ShareFormat)
	assert.False(t, cfg.TelegramEnabled())
}

func TestLoadOverridesAndClamps(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("MAX_ATTEMPTS", "0")
	t.Setenv("RETRY_BACKOFF_MS", "-5")
	t.Setenv("GENERATION_TIMEOUT_SECONDS", "abc")
	t.Setenv("SHARE_FORMAT", "WEBP")
	t.Setenv("SCENE_STORE", "valkey")
	t.Setenv("VALKEY_ADDR", "cache:6379")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_ALERT_CHAT_ID", "-100200")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.MaxAttempts)
	assert.Zero(t, cfg.RetryBackoff)
	assert.Equal(t, 90*time.Second, cfg.GenerationTimeout)
	assert.Equal(t, ShareFormatWebP, cfg.ShareFormat)
	assert.Equal(t, "cache:6379", cfg.ValkeyAddr)
	assert.Equal(t, int64(-100200), cfg.TelegramAlertChatID)
	assert.True(t, cfg.TelegramEnabled())
}

func TestLoadRejectsInvalidConfiguration(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing key", env: map[string]string{"GEMINI_API_KEY": ""}},
		{name: "valkey without address", env: map[string]string{"SCENE_STORE": "valkey", "VALKEY_ADDR": " "}},
		{name: "unknown store", env: map[string]string{"SCENE_STORE": "postgres"}},
		{name: "unknown share format", env: map[string]string{"SHARE_FORMAT": "gif"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("GEMINI_API_KEY", "key")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.KindConfiguration))
		})
	}
}
