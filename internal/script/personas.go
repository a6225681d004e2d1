package script

import (
	"fmt"
	"strings"
)

// Persona describes one of the two speakers.
type Persona struct {
	Speaker       int
	Role          string
	SpeakingStyle string
	Relationship  string
}

// Host drives the conversation as Speaker 1.
var Host = Persona{
	Speaker: 1,
	Role:    "Host and storyteller. Sets the agenda, introduces each section, and builds narrative momentum from the research.",
	SpeakingStyle: `Uses analogies and vivid scene-setting. Builds explanations in layers, simple first, then nuance.
Mixes short punchy setups with longer explanatory stretches.`,
	Relationship: "Respects the analyst's depth and hands them the hard questions.",
}

// Analyst probes and adds depth as Speaker 2.
var Analyst = Persona{
	Speaker: 2,
	Role:    "Analyst and questioner. Probes assumptions, brings up counterpoints and edge cases, and grounds claims in specifics.",
	SpeakingStyle: `Asks sharp, targeted questions that reframe the discussion. Measured cadence.
Uses data and concrete examples rather than abstractions.`,
	Relationship: "Enjoys sparring with the host. Pushes back when the evidence warrants it and concedes gracefully.",
}

func buildSystemPrompt(personas ...Persona) string {
	var sb strings.Builder
	sb.WriteString("You are a podcast script writer expanding one section of a two-host documentary episode.\n\nHOSTS:\n")
	for _, p := range personas {
		fmt.Fprintf(&sb, "- Speaker %d: %s\n  Style: %s\n  Dynamic: %s\n",
			p.Speaker, p.Role, strings.ReplaceAll(p.SpeakingStyle, "\n", " "), p.Relationship)
	}
	sb.WriteString(`
RULES:
1. Stay faithful to the section brief and research context. Do not invent statistics.
2. Both speakers participate. Each turn is 1-4 sentences of natural speech.
3. Every line starts with a speaker tag: <Speaker 1>: or <Speaker 2>:
4. No stage directions, sound effects, headings or markdown.`)
	return sb.String()
}
