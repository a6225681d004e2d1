package cli

import (
	"fmt"
	"strings"

	"github.com/apresai/researchcast/internal/llm"
	"github.com/apresai/researchcast/internal/observability"
	"github.com/apresai/researchcast/internal/topics"
	"github.com/spf13/cobra"
)

var topicsCmd = &cobra.Command{
	Use:     "topics <interest>",
	Short:   "Suggest episode topics for a broad interest",
	Example: `  researchcast topics "ocean science"`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runTopics,
}

func init() {
	rootCmd.AddCommand(topicsCmd)
}

func runTopics(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := observability.InitLogger(cliLogLevel(cfg))

	client, err := llm.NewFromConfig(ctx, cfg.LLM, logger)
	if err != nil {
		return err
	}
	if err := client.Unavailable(); err != nil {
		return err
	}

	list, err := topics.NewSuggester(client, logger).Suggest(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i, t := range list {
		fmt.Fprintf(out, "%d. %s\n", i+1, t.Title)
		if t.Description != "" {
			fmt.Fprintf(out, "   %s\n", t.Description)
		}
		if len(t.Tags) > 0 {
			fmt.Fprintf(out, "   tags: %s\n", strings.Join(t.Tags, ", "))
		}
	}
	return nil
}
