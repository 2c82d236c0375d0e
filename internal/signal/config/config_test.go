package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("applies defaults when sections are omitted", func(t *testing.T) {
		path := writeConfig(t, `
app:
  name: signal-service
ai:
  provider: gemini
`)

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, DefaultSignalName, cfg.Signal.Name)
		assert.Equal(t, DefaultLookbackDays, cfg.Signal.LookbackDays)
		assert.Equal(t, DefaultConfidenceCeilingPosts, cfg.Signal.ConfidenceCeilingPosts)
		assert.Equal(t, 1, cfg.Signal.MaxConcurrentPairs)

		// Limiter periods are derived by dividing a minute by these, so
		// they must come back positive even without a gemini block.
		assert.Equal(t, DefaultGeminiMaxRequestPerMinute, cfg.Gemini.MaxRequestPerMinute)
		assert.Equal(t, DefaultGeminiMaxTokenPerMinute, cfg.Gemini.MaxTokenPerMinute)
	})

	t.Run("keeps explicit values", func(t *testing.T) {
		path := writeConfig(t, `
signal:
  name: SENTIMENT_CUSTOM
  lookback_days: 7
  confidence_ceiling_posts: 10
  max_concurrent_pairs: 4
gemini:
  max_request_per_minute: 30
  max_token_per_minute: 500000
`)

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "SENTIMENT_CUSTOM", cfg.Signal.Name)
		assert.Equal(t, 7, cfg.Signal.LookbackDays)
		assert.Equal(t, 10, cfg.Signal.ConfidenceCeilingPosts)
		assert.Equal(t, 4, cfg.Signal.MaxConcurrentPairs)
		assert.Equal(t, 30, cfg.Gemini.MaxRequestPerMinute)
		assert.Equal(t, 500000, cfg.Gemini.MaxTokenPerMinute)
	})
}
