package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/apresai/researchcast/internal/observability"
	"github.com/apresai/researchcast/internal/pipeline"
	"github.com/apresai/researchcast/internal/progress"
	"github.com/apresai/researchcast/internal/script"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Research a topic and write a two-host podcast script",
	Example: `  researchcast generate --topic "tidal power" -o result.json
  researchcast generate -p "deep sea mining" --prompt "keep it skeptical" --script-out script.json --audio episode.mp3`,
	RunE: runGenerate,
}

var (
	flagTopic     string
	flagPrompt    string
	flagOutput    string
	flagScriptOut string
	flagAudioOut  string
)

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringVarP(&flagTopic, "topic", "p", "", "Episode topic (required)")
	generateCmd.Flags().StringVar(&flagPrompt, "prompt", "", "Extra steering for the outline and dialogue")
	generateCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Write the full result JSON here (default stdout)")
	generateCmd.Flags().StringVar(&flagScriptOut, "script-out", "", "Also write just the script, in the format accepted by the audio command")
	generateCmd.Flags().StringVar(&flagAudioOut, "audio", "", "Also synthesize the script to this MP3 file")
	_ = generateCmd.MarkFlagRequired("topic")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := observability.InitLogger(cliLogLevel(cfg))
	tel := startTelemetry(ctx, cfg, logger)
	defer shutdownTelemetry(tel, logger)

	sink, closeSink := progressSink(cfg, logger)
	defer closeSink()
	callbacks := []progress.Callback{sink}
	if !flagVerbose {
		r := progress.NewBarRenderer(os.Stderr)
		defer r.Finish()
		callbacks = append(callbacks, r.Handle)
	}

	comp, err := pipeline.Build(ctx, cfg, progress.Multi(callbacks...), logger)
	if err != nil {
		return err
	}
	defer comp.Close()
	if err := comp.Ready(ctx); err != nil {
		return fmt.Errorf("not ready: %w", err)
	}

	res, err := comp.Pipeline.Run(ctx, pipeline.Request{Topic: flagTopic, Prompt: flagPrompt})
	if err != nil {
		return err
	}

	if err := writeResult(cmd.OutOrStdout(), flagOutput, res); err != nil {
		return err
	}
	if flagScriptOut != "" {
		if err := script.SaveScript(res.Script, flagScriptOut); err != nil {
			return err
		}
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning [%s] %s\n", w.Code, w.Message)
	}

	if flagAudioOut != "" {
		return synthesizeToFile(cmd, cfg, logger, res.Script, flagAudioOut)
	}
	return nil
}

func writeResult(stdout io.Writer, path string, res *pipeline.Result) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if path == "" {
		_, err = fmt.Fprintln(stdout, string(data))
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}
