package cli

import (
	"github.com/apresai/researchcast/internal/httpapi"
	"github.com/apresai/researchcast/internal/observability"
	"github.com/apresai/researchcast/internal/pipeline"
	"github.com/apresai/researchcast/internal/topics"
	"github.com/apresai/researchcast/internal/tts"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

var flagPort int

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&flagPort, "port", 0, "Listen port (overrides http.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if flagPort > 0 {
		cfg.HTTP.Port = flagPort
	}
	logger := observability.InitLogger(cfg.Telemetry.LogLevel)
	tel := startTelemetry(ctx, cfg, logger)
	defer shutdownTelemetry(tel, logger)

	sink, closeSink := progressSink(cfg, logger)
	defer closeSink()

	comp, err := pipeline.Build(ctx, cfg, sink, logger)
	if err != nil {
		return err
	}
	defer comp.Close()
	if err := comp.Ready(ctx); err != nil {
		logger.Warn("Starting without full configuration", "error", err)
	}

	opts := []httpapi.Option{
		httpapi.WithLogger(logger),
		httpapi.WithReadiness(comp.Ready),
		httpapi.WithTopics(topics.NewSuggester(comp.LLM, logger)),
	}
	if tel != nil && tel.Metrics != nil {
		opts = append(opts, httpapi.WithMetrics(tel.Metrics))
	}

	driver, closer, err := tts.NewFromConfig(ctx, cfg.TTS, logger)
	if err != nil {
		logger.Warn("Audio synthesis unavailable", "provider", cfg.TTS.Provider, "error", err)
		opts = append(opts, httpapi.WithAudioError(err))
	} else {
		defer closer.Close()
		opts = append(opts, httpapi.WithAudio(driver))
	}

	return httpapi.New(comp.Pipeline, opts...).ListenAndServe(ctx, cfg.HTTP)
}
