package outline

import (
	"fmt"
	"strings"

	"github.com/apresai/researchcast/internal/research"
)

const systemPrompt = `You are a podcast producer who plans two-host documentary-style episodes. You answer with a single JSON object and nothing else.`

const shapeInstruction = `Respond with ONLY a JSON object in exactly this shape:

{
  "title": "Episode title",
  "introduction": {
    "hook": "Opening hook that grabs attention",
    "mainThemes": ["theme", "theme"],
    "narrativeSetup": "How the episode will unfold"
  },
  "subtopics": [
    {
      "title": "Subtopic title",
      "keyPoint": "The single most important point",
      "supportingEvidence": "Facts, examples or sources that back it up",
      "narrativeConnection": "How it leads into the next subtopic"
    }
  ],
  "conclusion": {
    "keyInsights": ["insight", "insight"],
    "fascinatingElements": ["surprising detail"],
    "finalThoughts": "Closing reflection"
  }
}

Include between 3 and 6 subtopics.`

func buildPrompt(b *research.Bundle, userPrompt string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Plan a podcast episode about %q.\n\n", b.Topic())
	fmt.Fprintf(&sb, "RESEARCH OVERVIEW:\n%s\n\n", b.Summary())
	if kw := b.TopKeywords(); len(kw) > 0 {
		fmt.Fprintf(&sb, "KEY TOPICS: %s\n\n", strings.Join(kw, ", "))
	}
	if results := b.TopResults(5); len(results) > 0 {
		sb.WriteString("SOURCES:\n")
		for _, r := range results {
			fmt.Fprintf(&sb, "- %s\n  %s\n", r.Title, r.Description)
		}
		sb.WriteString("\n")
	}
	if p := strings.TrimSpace(userPrompt); p != "" {
		fmt.Fprintf(&sb, "LISTENER REQUEST:\n%s\n\n", p)
	}
	sb.WriteString(shapeInstruction)
	return sb.String()
}
