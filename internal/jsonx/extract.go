// Package jsonx pulls JSON values out of free-form model output.
package jsonx

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var (
	// ErrNoObject is returned when the text contains no balanced JSON object.
	ErrNoObject = errors.New("no JSON object found")
	// ErrNoArray is returned when the text contains no balanced JSON array.
	ErrNoArray = errors.New("no JSON array found")
)

var scratchpadRe = regexp.MustCompile(`(?s)<scratchpad>.*?</scratchpad>`)

// ExtractObject returns the first balanced {...} value in text that is valid
// JSON. Fenced code blocks are searched before the surrounding prose.
func ExtractObject(s string) (string, error) {
	if v, ok := extract(s, '{', '}'); ok {
		return v, nil
	}
	return "", ErrNoObject
}

// ExtractArray is ExtractObject for [...] values.
func ExtractArray(s string) (string, error) {
	if v, ok := extract(s, '[', ']'); ok {
		return v, nil
	}
	return "", ErrNoArray
}

func extract(s string, open, close byte) (string, bool) {
	s = scratchpadRe.ReplaceAllString(s, "")
	for _, block := range fencedBlocks(s) {
		if v, ok := scan(block, open, close); ok {
			return v, true
		}
	}
	return scan(s, open, close)
}

// fencedBlocks returns the bodies of markdown fenced code blocks, json
// fences first.
func fencedBlocks(s string) []string {
	if !strings.Contains(s, "```") && !strings.Contains(s, "~~~") {
		return nil
	}
	src := []byte(s)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var tagged, other []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fb, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		var buf bytes.Buffer
		lines := fb.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(src))
		}
		if strings.EqualFold(string(fb.Language(src)), "json") {
			tagged = append(tagged, buf.String())
		} else {
			other = append(other, buf.String())
		}
		return ast.WalkSkipChildren, nil
	})
	return append(tagged, other...)
}

// scan tries each opening delimiter in turn and returns the first balanced
// span that parses as JSON. String literals are skipped so braces inside
// them do not affect depth.
func scan(s string, open, close byte) (string, bool) {
	for start := strings.IndexByte(s, open); start >= 0; {
		if end := matchClose(s, start, open, close); end > 0 {
			candidate := s[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, true
			}
		}
		next := strings.IndexByte(s[start+1:], open)
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

func matchClose(s string, start int, open, close byte) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
