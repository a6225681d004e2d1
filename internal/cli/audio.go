package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/apresai/researchcast/internal/config"
	"github.com/apresai/researchcast/internal/observability"
	"github.com/apresai/researchcast/internal/progress"
	"github.com/apresai/researchcast/internal/script"
	"github.com/apresai/researchcast/internal/tts"
	"github.com/spf13/cobra"
)

var audioCmd = &cobra.Command{
	Use:     "audio",
	Short:   "Synthesize a script file into a single MP3",
	Example: `  researchcast audio --script script.json -o episode.mp3`,
	RunE:    runAudio,
}

var (
	flagScriptIn string
	flagMP3Out   string
)

func init() {
	rootCmd.AddCommand(audioCmd)
	audioCmd.Flags().StringVarP(&flagScriptIn, "script", "s", "", "Script JSON ({\"script\":[...]}, a generate result, or a bare array)")
	audioCmd.Flags().StringVarP(&flagMP3Out, "output", "o", "episode.mp3", "Output MP3 path")
	_ = audioCmd.MarkFlagRequired("script")
}

func runAudio(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := observability.InitLogger(cliLogLevel(cfg))
	tel := startTelemetry(cmd.Context(), cfg, logger)
	defer shutdownTelemetry(tel, logger)

	utterances, err := script.LoadScript(flagScriptIn)
	if err != nil {
		return err
	}
	return synthesizeToFile(cmd, cfg, logger, utterances, flagMP3Out)
}

// synthesizeToFile streams the script's audio into path. A failed segment
// leaves the partial file in place and returns the error.
func synthesizeToFile(cmd *cobra.Command, cfg config.Config, logger *slog.Logger, utterances []script.Utterance, path string) error {
	ctx := cmd.Context()
	driver, closer, err := tts.NewFromConfig(ctx, cfg.TTS, logger)
	if err != nil {
		return err
	}
	defer closer.Close()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	var r *progress.BarRenderer
	if !flagVerbose {
		r = progress.NewBarRenderer(os.Stderr)
		r.Handle(progress.Event{
			Stage:   progress.StageAudio,
			Message: fmt.Sprintf("Synthesizing %d segments with %s...", len(utterances), driver.Provider()),
		})
	}

	rep, err := driver.Stream(ctx, utterances, f)
	if r != nil {
		if err == nil {
			r.Handle(progress.Event{Stage: progress.StageComplete, Message: "Audio ready", OutputFile: path})
		}
		r.Finish()
	}
	if err != nil {
		return fmt.Errorf("audio stopped after %d of %d segments (%d bytes written to %s): %w",
			rep.Segments, len(utterances), rep.Bytes, path, err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s (%d segments, %.1f MB)\n", path, rep.Segments, float64(rep.Bytes)/(1024*1024))
	return nil
}
