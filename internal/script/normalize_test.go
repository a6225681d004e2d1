package script

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []Utterance
		dropped int
	}{
		{
			name: "directions stripped",
			in:   "<Speaker 1>: Hello <excited> there\n<Speaker 2>: Hi!",
			want: []Utterance{{1, "Hello there"}, {2, "Hi!"}},
		},
		{
			name: "word numerals",
			in:   "<Speaker one>: First\n<speaker TWO>: Second",
			want: []Utterance{{1, "First"}, {2, "Second"}},
		},
		{
			name: "without brackets",
			in:   "Speaker 1: plain\nSpeaker 2:   spaced   out  ",
			want: []Utterance{{1, "plain"}, {2, "spaced out"}},
		},
		{
			name: "section labels",
			in:   "INTRODUCTION:\n<Speaker 1>: Welcome\n\nSUBTOPIC 2: <Speaker 2>: Deeper\nConclusion:\n<Speaker 1>: Bye",
			want: []Utterance{{1, "Welcome"}, {2, "Deeper"}, {1, "Bye"}},
		},
		{
			name:    "bracket directions and untagged lines",
			in:      "Narrator intro\n<Speaker 2>: [laughs] Right [pause] so\n<Speaker 1>: [music]",
			want:    []Utterance{{2, "Right so"}},
			dropped: 2,
		},
		{
			name: "unknown numeral alternates",
			in:   "<Speaker 2>: a\n<Speaker 0>: b\n<Speaker 3>: c",
			want: []Utterance{{2, "a"}, {1, "b"}, {2, "c"}},
		},
		{
			name:    "words starting with speaker are not tags",
			in:      "Speakers: both laugh together\nSpeakerphone: ring ring\n<Speaker 1>: Hello",
			want:    []Utterance{{1, "Hello"}},
			dropped: 2,
		},
		{
			name: "parenthetical before colon",
			in:   "<Speaker 1> (laughing): That's wild\nSpeaker 2 (softly): It is",
			want: []Utterance{{1, "That's wild"}, {2, "It is"}},
		},
		{
			name: "control characters",
			in:   "<Speaker 1>: tab\there\x07bell",
			want: []Utterance{{1, "tab here bell"}},
		},
		{
			name: "markdown emphasis on tag",
			in:   "**Speaker 1:** bold tag",
			want: []Utterance{{1, "bold tag"}},
		},
		{
			name:    "malformed",
			in:      "just prose\nno tags here",
			want:    []Utterance{},
			dropped: 2,
		},
		{
			name: "empty",
			in:   "   \n\n",
			want: []Utterance{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Normalize(tt.in)
			assert.Equal(t, tt.want, res.Utterances)
			assert.Equal(t, tt.dropped, res.Dropped)
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"<Speaker 1>: Hello <excited> there\n<Speaker 2>: Hi!",
		"INTRODUCTION:\nSpeaker two: [sighs] *well* ok\n<Speaker 9>: who",
		"noise\n<Speaker 1>:   a   b   ",
	}
	for _, in := range inputs {
		first := Normalize(in).Utterances
		second := Normalize(Render(first)).Utterances
		assert.Equal(t, first, second, in)
	}
}

func TestReview(t *testing.T) {
	balanced := []Utterance{{1, "a"}, {2, "b"}, {1, "c"}, {2, "d"}}
	assert.Empty(t, Review(balanced))

	lopsided := []Utterance{{1, "a"}, {1, "b"}, {1, "c"}, {1, "d"}, {2, "That's a great point"}}
	issues := Review(lopsided)
	require.Len(t, issues, 2)
	assert.Equal(t, "balance", issues[0].Category)
	assert.Contains(t, issues[0].Message, "Speaker 2")
	assert.Equal(t, "filler", issues[1].Category)

	assert.Empty(t, Review(nil))
}

func TestSaveLoadScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.json")
	want := []Utterance{{1, "Hello"}, {2, "Hi"}}
	require.NoError(t, SaveScript(want, path))

	got, err := LoadScript(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"id": 1`)
}

func TestDecodeUtterances(t *testing.T) {
	got, err := DecodeUtterances([]byte(`[{"id":2,"text":"bare"}]`))
	require.NoError(t, err)
	assert.Equal(t, []Utterance{{2, "bare"}}, got)

	_, err = DecodeUtterances([]byte(`{"script":[{"id":3,"text":"x"}]}`))
	assert.ErrorContains(t, err, "speaker must be 1 or 2")

	_, err = DecodeUtterances([]byte(`{"script":[{"id":1,"text":"  "}]}`))
	assert.ErrorContains(t, err, "empty text")

	_, err = LoadScript(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
