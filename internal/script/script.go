// Package script expands an outline into a two-speaker script and normalizes
// the resulting text into ordered utterances.
package script

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Utterance is one spoken line. Speaker is 1 or 2; Text is never empty
// once produced by Normalize.
type Utterance struct {
	Speaker int    `json:"id"`
	Text    string `json:"text"`
}

type scriptFile struct {
	Script []Utterance `json:"script"`
}

// SaveScript writes utterances as {"script": [...]}.
func SaveScript(utterances []Utterance, path string) error {
	if utterances == nil {
		utterances = []Utterance{}
	}
	data, err := json.MarshalIndent(scriptFile{Script: utterances}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal script: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write script to %s: %w", path, err)
	}
	return nil
}

// LoadScript reads a script file written by SaveScript, a generate result
// (which also carries a "script" key) or a bare utterance array.
func LoadScript(path string) ([]Utterance, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script from %s: %w", path, err)
	}
	utterances, err := DecodeUtterances(data)
	if err != nil {
		return nil, fmt.Errorf("parse script from %s: %w", path, err)
	}
	if len(utterances) == 0 {
		return nil, fmt.Errorf("script %s has no utterances", path)
	}
	return utterances, nil
}

// DecodeUtterances accepts either {"script": [...]} or a bare array and
// validates speaker ids and text.
func DecodeUtterances(data []byte) ([]Utterance, error) {
	var utterances []Utterance
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &utterances); err != nil {
			return nil, err
		}
	} else {
		var f scriptFile
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		utterances = f.Script
	}
	for i, u := range utterances {
		if u.Speaker != 1 && u.Speaker != 2 {
			return nil, fmt.Errorf("utterance %d: speaker must be 1 or 2, got %d", i, u.Speaker)
		}
		if strings.TrimSpace(u.Text) == "" {
			return nil, fmt.Errorf("utterance %d: empty text", i)
		}
	}
	return utterances, nil
}

// WordCount counts whitespace-separated tokens.
func WordCount(s string) int {
	return len(strings.Fields(s))
}
