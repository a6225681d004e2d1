package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 350, cfg.Expansion.IntroTarget)
	assert.Equal(t, 400, cfg.Expansion.SubtopicTarget)
	assert.Equal(t, 300, cfg.Expansion.ConclusionTarget)
	assert.Equal(t, 20, cfg.Expansion.MaxIterations)
	assert.Equal(t, 3, cfg.LLM.MaxAttempts)
	assert.Equal(t, time.Second, cfg.LLM.BaseDelay)
	assert.Equal(t, "eleven_turbo_v2", cfg.TTS.Model)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	t.Setenv("BRAVE_API_KEY", "brave-key")
	t.Setenv("ANTHROPIC_API_KEY", "anthropic-key")
	t.Setenv("RESEARCHCAST_LLM_PROVIDER", "openai")
	t.Setenv("RESEARCHCAST_LLM_ATTEMPT_TIMEOUT", "8s")
	t.Setenv("RESEARCHCAST_MAX_ITERATIONS", "5")
	t.Setenv("RESEARCHCAST_EXPAND_PARALLELISM", "3")
	t.Setenv("RESEARCHCAST_OTLP_INSECURE", "false")
	t.Setenv("RESEARCHCAST_TTS_RPS", "2.5")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "brave-key", cfg.Search.APIKey)
	assert.Equal(t, "anthropic-key", cfg.LLM.AnthropicAPIKey)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 8*time.Second, cfg.LLM.AttemptTimeout)
	assert.Equal(t, 5, cfg.Expansion.MaxIterations)
	assert.Equal(t, 3, cfg.Expansion.Parallelism)
	assert.False(t, cfg.Telemetry.OTLPInsecure)
	assert.InDelta(t, 2.5, cfg.TTS.RequestsPerSec, 1e-9)
}

func TestLoadFile(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "researchcast.yaml")
	data := []byte(`
service_name: castd
llm:
  provider: bedrock
  model: us.amazon.nova-2-lite-v1:0
expansion:
  subtopic_target: 500
tts:
  provider: polly
pipeline_deadline: 2m
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "castd", cfg.ServiceName)
	assert.Equal(t, "bedrock", cfg.LLM.Provider)
	assert.Equal(t, 500, cfg.Expansion.SubtopicTarget)
	assert.Equal(t, 350, cfg.Expansion.IntroTarget, "unset fields keep defaults")
	assert.Equal(t, "polly", cfg.TTS.Provider)
	assert.Equal(t, 2*time.Minute, cfg.Deadline)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad provider", func(c *Config) { c.LLM.Provider = "gemini" }, "llm.provider"},
		{"zero attempts", func(c *Config) { c.LLM.MaxAttempts = 0 }, "llm.max_attempts"},
		{"zero ceiling", func(c *Config) { c.Expansion.MaxIterations = 0 }, "expansion.max_iterations"},
		{"negative target", func(c *Config) { c.Expansion.IntroTarget = -1 }, "expansion targets"},
		{"bad tts", func(c *Config) { c.TTS.Provider = "say" }, "tts.provider"},
		{"bad port", func(c *Config) { c.HTTP.Port = 70000 }, "http.port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
