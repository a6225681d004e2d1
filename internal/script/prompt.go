package script

import (
	"fmt"
	"strings"
)

// SharedContext is the episode-wide context included in every section prompt.
type SharedContext struct {
	Topic    string
	Title    string
	Keywords []string
	Prompt   string
}

var sectionSystemPrompt = buildSystemPrompt(Host, Analyst)

func buildSectionPrompt(u Unit, shared SharedContext, current string, remaining int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "EPISODE: %s\n", shared.Title)
	fmt.Fprintf(&sb, "TOPIC: %s\n", shared.Topic)
	if len(shared.Keywords) > 0 {
		fmt.Fprintf(&sb, "KEY TOPICS: %s\n", strings.Join(shared.Keywords, ", "))
	}
	if p := strings.TrimSpace(shared.Prompt); p != "" {
		fmt.Fprintf(&sb, "LISTENER REQUEST: %s\n", p)
	}
	fmt.Fprintf(&sb, "\nSECTION: %s\n%s\n\n", u.Label, u.Brief)

	if strings.TrimSpace(current) == "" {
		fmt.Fprintf(&sb, "Write approximately %d words of dialogue for this section.\n", remaining)
	} else {
		fmt.Fprintf(&sb, "The section so far:\n\n%s\n\n", current)
		fmt.Fprintf(&sb, "Continue from where it stops with approximately %d more words. Do not repeat or summarize what is already written.\n", remaining)
	}
	sb.WriteString("Format every line as <Speaker 1>: ... or <Speaker 2>: ...")
	return sb.String()
}
