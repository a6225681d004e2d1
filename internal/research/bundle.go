// Package research gathers web search results for a topic and derives the
// keyword analysis used to ground the outline.
package research

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Result is one web search hit.
type Result struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// Bundle is the read-only output of a Collect call. Accessors return copies
// so downstream stages cannot mutate a shared bundle.
type Bundle struct {
	topic    string
	results  []Result
	keywords []string
}

// NewBundle copies results and keywords into a new Bundle.
func NewBundle(topic string, results []Result, keywords []string) *Bundle {
	return &Bundle{
		topic:    topic,
		results:  append([]Result(nil), results...),
		keywords: append([]string(nil), keywords...),
	}
}

func (b *Bundle) Topic() string { return b.topic }

func (b *Bundle) Results() []Result { return append([]Result(nil), b.results...) }

func (b *Bundle) TopKeywords() []string { return append([]string(nil), b.keywords...) }

// TopResults returns at most n results.
func (b *Bundle) TopResults(n int) []Result {
	if n > len(b.results) {
		n = len(b.results)
	}
	return append([]Result(nil), b.results[:n]...)
}

// Summary is a one-sentence overview naming the leading keywords.
func (b *Bundle) Summary() string {
	kw := b.keywords
	if len(kw) > 5 {
		kw = kw[:5]
	}
	if len(kw) == 0 {
		return fmt.Sprintf("The topic '%s' has little coverage in current web results.", b.topic)
	}
	return fmt.Sprintf("The topic '%s' has been discussed widely, with recurring themes such as %s. These terms frequently appeared in analyses and summaries.",
		b.topic, strings.Join(kw, ", "))
}

type bundleJSON struct {
	Topic       string   `json:"topic"`
	Results     []Result `json:"results"`
	TopKeywords []string `json:"top_keywords"`
}

func (b *Bundle) MarshalJSON() ([]byte, error) {
	results := b.results
	if results == nil {
		results = []Result{}
	}
	keywords := b.keywords
	if keywords == nil {
		keywords = []string{}
	}
	return json.Marshal(bundleJSON{Topic: b.topic, Results: results, TopKeywords: keywords})
}

func (b *Bundle) UnmarshalJSON(data []byte) error {
	var v bundleJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*b = Bundle{topic: v.Topic, results: v.Results, keywords: v.TopKeywords}
	return nil
}
