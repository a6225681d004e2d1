package script

import (
	"fmt"
	"strings"

	"github.com/apresai/researchcast/internal/outline"
)

// UnitID identifies one expandable section of the outline.
type UnitID string

const (
	UnitIntro      UnitID = "intro"
	UnitConclusion UnitID = "conclusion"
)

// SubtopicUnit returns the id of the i-th (0-indexed) subtopic.
func SubtopicUnit(i int) UnitID {
	return UnitID(fmt.Sprintf("subtopic-%d", i+1))
}

// StopReason records why an expansion loop ended.
type StopReason string

const (
	StopTargetReached  StopReason = "target_reached"
	StopStalled        StopReason = "stalled"
	StopCeilingReached StopReason = "ceiling_reached"
)

// Unit is one outline section plus the word target it must reach.
type Unit struct {
	ID     UnitID
	Label  string
	Brief  string
	Target int
}

// SectionDraft is the accumulated text for one unit.
type SectionDraft struct {
	Unit       UnitID     `json:"unit"`
	Label      string     `json:"label"`
	Text       string     `json:"-"`
	Target     int        `json:"target"`
	Iterations int        `json:"iterations"`
	Stop       StopReason `json:"stop"`
}

func (d SectionDraft) WordCount() int { return WordCount(d.Text) }

// Targets are per-unit word goals.
type Targets struct {
	Intro      int
	Subtopic   int
	Conclusion int
}

// DefaultTargets returns the standard word goals.
func DefaultTargets() Targets {
	return Targets{Intro: 350, Subtopic: 400, Conclusion: 300}
}

// Units lays the outline out in speaking order: introduction, each
// subtopic, conclusion.
func Units(o *outline.Outline, t Targets) []Unit {
	units := make([]Unit, 0, len(o.Subtopics)+2)
	units = append(units, Unit{
		ID:     UnitIntro,
		Label:  "INTRODUCTION",
		Brief:  introBrief(o.Introduction),
		Target: t.Intro,
	})
	for i, st := range o.Subtopics {
		units = append(units, Unit{
			ID:     SubtopicUnit(i),
			Label:  fmt.Sprintf("SUBTOPIC %d", i+1),
			Brief:  subtopicBrief(st),
			Target: t.Subtopic,
		})
	}
	units = append(units, Unit{
		ID:     UnitConclusion,
		Label:  "CONCLUSION",
		Brief:  conclusionBrief(o.Conclusion),
		Target: t.Conclusion,
	})
	return units
}

func introBrief(in outline.Introduction) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Hook: %s\n", in.Hook)
	if len(in.MainThemes) > 0 {
		fmt.Fprintf(&sb, "Main themes: %s\n", strings.Join(in.MainThemes, "; "))
	}
	fmt.Fprintf(&sb, "Narrative setup: %s", in.NarrativeSetup)
	return sb.String()
}

func subtopicBrief(st outline.Subtopic) string {
	return fmt.Sprintf("Title: %s\nKey point: %s\nSupporting evidence: %s\nNarrative connection: %s",
		st.Title, st.KeyPoint, st.SupportingEvidence, st.NarrativeConnection)
}

func conclusionBrief(c outline.Conclusion) string {
	var sb strings.Builder
	if len(c.KeyInsights) > 0 {
		fmt.Fprintf(&sb, "Key insights: %s\n", strings.Join(c.KeyInsights, "; "))
	}
	if len(c.FascinatingElements) > 0 {
		fmt.Fprintf(&sb, "Fascinating elements: %s\n", strings.Join(c.FascinatingElements, "; "))
	}
	fmt.Fprintf(&sb, "Final thoughts: %s", c.FinalThoughts)
	return sb.String()
}

// Assemble joins drafts in order, each preceded by its section label line.
func Assemble(drafts []SectionDraft) string {
	parts := make([]string, 0, len(drafts))
	for _, d := range drafts {
		parts = append(parts, d.Label+":\n"+strings.TrimSpace(d.Text))
	}
	return strings.Join(parts, "\n\n")
}
