package script

import (
	"fmt"
	"strings"
)

// Issue is a quality problem found by Review.
type Issue struct {
	Category string // "balance" or "filler"
	Message  string
}

// minSpeakerShare is the smallest fraction of utterances either speaker
// should hold.
const minSpeakerShare = 0.30

// Review runs cheap heuristic checks over a normalized script. It never
// calls a model; issues are surfaced as warnings.
func Review(utterances []Utterance) []Issue {
	var issues []Issue
	issues = append(issues, checkSpeakerBalance(utterances)...)
	issues = append(issues, checkFillerPhrases(utterances)...)
	return issues
}

func checkSpeakerBalance(utterances []Utterance) []Issue {
	total := len(utterances)
	if total == 0 {
		return nil
	}
	counts := map[int]int{}
	for _, u := range utterances {
		counts[u.Speaker]++
	}
	var issues []Issue
	for _, speaker := range []int{1, 2} {
		share := float64(counts[speaker]) / float64(total)
		if share < minSpeakerShare {
			issues = append(issues, Issue{
				Category: "balance",
				Message: fmt.Sprintf("Speaker %d has only %.0f%% of utterances (%d/%d), minimum is %.0f%%",
					speaker, share*100, counts[speaker], total, minSpeakerShare*100),
			})
		}
	}
	return issues
}

var fillerPhrases = []string{
	"that's a great point",
	"great question",
	"that's fascinating",
	"i couldn't agree more",
	"you hit the nail on the head",
	"that's so interesting",
	"you nailed it",
	"that's spot on",
	"couldn't have said it better",
	"that's exactly right",
}

func checkFillerPhrases(utterances []Utterance) []Issue {
	n := 0
	for _, u := range utterances {
		lower := strings.ToLower(u.Text)
		for _, phrase := range fillerPhrases {
			if strings.Contains(lower, phrase) {
				n++
				break
			}
		}
	}
	if n == 0 {
		return nil
	}
	return []Issue{{
		Category: "filler",
		Message:  fmt.Sprintf("Found %d utterances with filler phrases", n),
	}}
}
