package pipeline

import (
	"fmt"

	"github.com/apresai/researchcast/internal/outline"
	"github.com/apresai/researchcast/internal/script"
)

// WarningCode identifies a non-fatal quality problem with a run.
type WarningCode string

const (
	WarnNormalizationEmpty WarningCode = "normalization_empty"
	WarnSectionShort       WarningCode = "section_short"
	WarnOutlineSmall       WarningCode = "outline_small"
	WarnScriptShort        WarningCode = "script_short"
	WarnSpeakerBalance     WarningCode = "speaker_balance"
	WarnFiller             WarningCode = "filler"
)

type Warning struct {
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
	Unit    string      `json:"unit,omitempty"`
}

func outlineWarnings(o *outline.Outline) []Warning {
	if len(o.Subtopics) >= outline.MinSubtopics {
		return nil
	}
	return []Warning{{
		Code:    WarnOutlineSmall,
		Message: fmt.Sprintf("outline has %d subtopics, expected at least %d", len(o.Subtopics), outline.MinSubtopics),
	}}
}

func draftWarnings(drafts []script.SectionDraft) []Warning {
	var (
		warnings    []Warning
		total, goal int
	)
	for _, d := range drafts {
		words := d.WordCount()
		total += words
		goal += d.Target
		if d.Stop == script.StopTargetReached {
			continue
		}
		warnings = append(warnings, Warning{
			Code:    WarnSectionShort,
			Unit:    string(d.Unit),
			Message: fmt.Sprintf("%s ended with %d of %d words (%s)", d.Label, words, d.Target, d.Stop),
		})
	}
	if goal > 0 && total*2 < goal {
		warnings = append(warnings, Warning{
			Code:    WarnScriptShort,
			Message: fmt.Sprintf("script has %d words, under half of the %d targeted", total, goal),
		})
	}
	return warnings
}

func scriptWarnings(res script.Result) []Warning {
	if len(res.Utterances) == 0 {
		return []Warning{{
			Code:    WarnNormalizationEmpty,
			Message: fmt.Sprintf("no speaker lines found in generated text (%d lines dropped)", res.Dropped),
		}}
	}
	var warnings []Warning
	for _, issue := range script.Review(res.Utterances) {
		code := WarnFiller
		if issue.Category == "balance" {
			code = WarnSpeakerBalance
		}
		warnings = append(warnings, Warning{Code: code, Message: issue.Message})
	}
	return warnings
}
