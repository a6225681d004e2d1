package research

import (
	"regexp"
	"sort"
	"strings"
)

// DefaultKeywordCount is how many keywords a Bundle carries.
const DefaultKeywordCount = 10

var nonWordRe = regexp.MustCompile(`\W+`)

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true,
}

// TopKeywords counts tokens across result titles and descriptions and returns
// the n most frequent. Tokens of three characters or fewer and stopwords are
// ignored. Ties keep first-encounter order.
func TopKeywords(results []Result, n int) []string {
	counts := make(map[string]int)
	var order []string
	for _, r := range results {
		text := strings.ToLower(r.Title + " " + r.Description)
		for _, word := range nonWordRe.Split(text, -1) {
			if len(word) <= 3 || stopWords[word] {
				continue
			}
			if counts[word] == 0 {
				order = append(order, word)
			}
			counts[word]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > n {
		order = order[:n]
	}
	return order
}
