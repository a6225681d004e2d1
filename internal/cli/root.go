package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/apresai/researchcast/internal/config"
	"github.com/apresai/researchcast/internal/observability"
	"github.com/apresai/researchcast/internal/progress"
	"github.com/spf13/cobra"
)

var Version = "dev"

var rootCmd = &cobra.Command{
	Use:          "researchcast",
	Short:        "Research a topic and turn it into a two-host podcast script and audio",
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "researchcast %s\n", Version)
	},
}

var (
	flagConfig           string
	flagVerbose          bool
	flagLLMProvider      string
	flagModel            string
	flagTTS              string
	flagBraveAPIKey      string
	flagAnthropicAPIKey  string
	flagOpenAIAPIKey     string
	flagElevenLabsAPIKey string
)

func init() {
	rootCmd.AddCommand(versionCmd)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagConfig, "config", "c", "", "Path to a YAML config file (default $RESEARCHCAST_CONFIG)")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Enable detailed logging")
	pf.StringVar(&flagLLMProvider, "llm", "", "Generation provider: anthropic, openai, bedrock")
	pf.StringVarP(&flagModel, "model", "m", "", "Generation model ID")
	pf.StringVarP(&flagTTS, "tts", "T", "", "TTS provider: elevenlabs, google, polly")
	pf.StringVar(&flagBraveAPIKey, "brave-api-key", "", "Brave Search API key (overrides BRAVE_API_KEY env var)")
	pf.StringVar(&flagAnthropicAPIKey, "anthropic-api-key", "", "Anthropic API key (overrides ANTHROPIC_API_KEY env var)")
	pf.StringVar(&flagOpenAIAPIKey, "openai-api-key", "", "OpenAI API key (overrides OPENAI_API_KEY env var)")
	pf.StringVar(&flagElevenLabsAPIKey, "elevenlabs-api-key", "", "ElevenLabs API key (overrides ELEVENLABS_API_KEY env var)")
}

// Execute runs the root command; ctx is cancelled on SIGINT/SIGTERM.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// loadConfig reads the config file and environment, then applies flags.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return cfg, err
	}
	applyFlags(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyFlags(cfg *config.Config) {
	set := func(target *string, v string) {
		if v != "" {
			*target = v
		}
	}
	set(&cfg.LLM.Provider, flagLLMProvider)
	set(&cfg.LLM.Model, flagModel)
	set(&cfg.TTS.Provider, flagTTS)
	set(&cfg.Search.APIKey, flagBraveAPIKey)
	set(&cfg.LLM.AnthropicAPIKey, flagAnthropicAPIKey)
	set(&cfg.LLM.OpenAIAPIKey, flagOpenAIAPIKey)
	set(&cfg.TTS.ElevenLabsAPIKey, flagElevenLabsAPIKey)
	if flagVerbose {
		cfg.Telemetry.LogLevel = "debug"
	}
}

// cliLogLevel keeps the terminal quiet behind the progress bar unless
// --verbose is set.
func cliLogLevel(cfg config.Config) string {
	if flagVerbose {
		return "debug"
	}
	if cfg.Telemetry.LogLevel == "info" {
		return "warn"
	}
	return cfg.Telemetry.LogLevel
}

// progressSink returns the NATS publisher callback when one is configured.
// The returned func closes the connection.
func progressSink(cfg config.Config, logger *slog.Logger) (progress.Callback, func()) {
	if cfg.Progress.NATSURL == "" {
		return progress.NopCallback, func() {}
	}
	pub, err := progress.ConnectNATS(cfg.Progress.NATSURL, cfg.Progress.Subject, logger)
	if err != nil {
		logger.Warn("Progress publishing disabled", "error", err)
		return progress.NopCallback, func() {}
	}
	return pub.Handle, pub.Close
}

// startTelemetry installs tracing and metrics; failures only disable them.
func startTelemetry(ctx context.Context, cfg config.Config, logger *slog.Logger) *observability.Telemetry {
	tel, err := observability.Init(ctx, cfg, Version, logger)
	if err != nil {
		logger.Warn("Failed to init telemetry, continuing without it", "error", err)
		return nil
	}
	return tel
}

func shutdownTelemetry(tel *observability.Telemetry, logger *slog.Logger) {
	if tel == nil {
		return
	}
	if err := tel.Shutdown(context.Background()); err != nil {
		logger.Error("Telemetry shutdown error", "error", err)
	}
}
