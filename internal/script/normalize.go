package script

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var (
	sectionLabelRe = regexp.MustCompile(`(?i)^[*_#\s]*(introduction|conclusion|subtopic\s*\d+|section\b[^:]*)[*_\s]*:[*_\s]*`)
	speakerTagRe   = regexp.MustCompile(`(?i)^[*_\s]*<?\s*speaker\s*(\d+|one|two)\b\s*>?(?:\s*\([^)]*\))?[*_\s]*:[*_]*\s*(.*)$`)
	directionRe    = regexp.MustCompile(`<[^>]*>|\[[^\]]*\]`)
)

// Result is the outcome of Normalize. Dropped counts non-empty lines that
// yielded no utterance.
type Result struct {
	Utterances []Utterance
	Dropped    int
}

// Normalize parses "<Speaker N>: text" lines into utterances. It never
// fails; lines without a speaker tag are dropped.
func Normalize(text string) Result {
	res := Result{Utterances: []Utterance{}}
	last := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if loc := sectionLabelRe.FindStringIndex(line); loc != nil {
			line = strings.TrimSpace(line[loc[1]:])
			if line == "" {
				continue
			}
		}

		m := speakerTagRe.FindStringSubmatch(line)
		if m == nil {
			res.Dropped++
			continue
		}
		speaker, ok := parseSpeaker(m[1])
		if !ok {
			speaker = 1
			if last == 1 {
				speaker = 2
			}
		}
		body := cleanText(m[2])
		if body == "" {
			res.Dropped++
			continue
		}
		res.Utterances = append(res.Utterances, Utterance{Speaker: speaker, Text: body})
		last = speaker
	}
	return res
}

// Render formats utterances back into tagged lines accepted by Normalize.
func Render(utterances []Utterance) string {
	var sb strings.Builder
	for i, u := range utterances {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "<Speaker %d>: %s", u.Speaker, u.Text)
	}
	return sb.String()
}

func parseSpeaker(s string) (int, bool) {
	switch strings.ToLower(s) {
	case "1", "one":
		return 1, true
	case "2", "two":
		return 2, true
	}
	return 0, false
}

func cleanText(s string) string {
	s = directionRe.ReplaceAllString(s, " ")
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
