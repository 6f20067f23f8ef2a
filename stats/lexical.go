package stats

import (
	"regexp"
	"sort"
	"strings"

	"github.com/brettboylen/thread-analyzer/models"
)

// wordPattern matches runs of 3 or more ASCII letters bounded by non-word characters
var wordPattern = regexp.MustCompile(`\b[a-z]{3,}\b`)

var stopWords = newStopWordSet(
	"the", "is", "at", "which", "on", "a", "an", "and", "or", "but", "in", "with",
	"to", "for", "of", "as", "by", "that", "this", "it", "from", "be", "are", "was",
	"were", "been", "have", "has", "had", "do", "does", "did", "will", "would",
	"could", "should", "may", "might", "can", "i", "you", "he", "she", "we", "they",
	"my", "your", "his", "her", "its", "our", "their",
)

func newStopWordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// IsStopWord reports whether word is excluded from word frequency counts
func IsStopWord(word string) bool {
	_, ok := stopWords[word]
	return ok
}

// Tokenize lowercases text and returns its countable words in order
func Tokenize(text string) []string {
	matches := wordPattern.FindAllString(strings.ToLower(text), -1)

	tokens := matches[:0]
	for _, word := range matches {
		if !IsStopWord(word) {
			tokens = append(tokens, word)
		}
	}
	return tokens
}

// AggregateWords counts words over all comment bodies and returns the most
// frequent ones. Equal counts keep first-occurrence order. limit <= 0 keeps
// every word.
func AggregateWords(comments []models.Comment, limit int) []models.WordCount {
	index := make(map[string]int)
	counts := make([]models.WordCount, 0)

	for _, c := range comments {
		for _, word := range Tokenize(c.Body) {
			i, ok := index[word]
			if !ok {
				i = len(counts)
				index[word] = i
				counts = append(counts, models.WordCount{Word: word})
			}
			counts[i].Count++
		}
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})

	if limit > 0 && len(counts) > limit {
		counts = counts[:limit]
	}
	return counts
}
