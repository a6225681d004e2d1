package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/apresai/researchcast/internal/config"
	"github.com/apresai/researchcast/internal/pipeline"
	"github.com/apresai/researchcast/internal/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		flagConfig, flagLLMProvider, flagModel, flagTTS = "", "", "", ""
		flagBraveAPIKey, flagAnthropicAPIKey, flagOpenAIAPIKey, flagElevenLabsAPIKey = "", "", "", ""
		flagVerbose = false
	})
}

func TestLoadConfigFlagsOverrideEnv(t *testing.T) {
	resetFlags(t)
	t.Setenv(config.EnvConfigPath, "")
	t.Setenv("BRAVE_API_KEY", "from-env")
	flagBraveAPIKey = "from-flag"
	flagLLMProvider = "openai"
	flagTTS = "polly"

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-flag", cfg.Search.APIKey)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "polly", cfg.TTS.Provider)
}

func TestLoadConfigRejectsBadFlag(t *testing.T) {
	resetFlags(t)
	t.Setenv(config.EnvConfigPath, "")
	flagTTS = "espeak"

	_, err := loadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tts.provider")
}

func TestCLILogLevel(t *testing.T) {
	resetFlags(t)
	cfg := config.Default()
	assert.Equal(t, "warn", cliLogLevel(cfg))

	cfg.Telemetry.LogLevel = "error"
	assert.Equal(t, "error", cliLogLevel(cfg))

	flagVerbose = true
	assert.Equal(t, "debug", cliLogLevel(cfg))
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, Execute(context.Background()))
	assert.Equal(t, "researchcast dev\n", out.String())
}

func TestWriteResult(t *testing.T) {
	res := &pipeline.Result{
		RunID:  "01J",
		Script: []script.Utterance{{Speaker: 1, Text: "Hello."}},
	}

	var out bytes.Buffer
	require.NoError(t, writeResult(&out, "", res))
	assert.True(t, strings.Contains(out.String(), `"run_id": "01J"`))

	path := t.TempDir() + "/result.json"
	require.NoError(t, writeResult(&out, path, res))
	got, err := script.LoadScript(path)
	require.NoError(t, err)
	assert.Equal(t, res.Script, got)
}
