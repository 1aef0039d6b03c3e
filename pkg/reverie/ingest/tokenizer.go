package ingest

import (
	"regexp"
	"strings"

	"github.com/cognicore/reverie/pkg/reverie/stoplist"
)

var nonWord = regexp.MustCompile(`[^\w\s]`)

// suffixes are stripped at most once per word, longest match first.
var suffixes = []string{"ing", "ed", "er", "est", "ly", "ies", "ied", "ying", "tion", "sion", "ness", "ment", "able", "ful"}

// Tokenizer handles text tokenization and normalization
type Tokenizer struct {
	stops *stoplist.Manager
}

// NewTokenizer creates a new tokenizer with the given stopword list
func NewTokenizer(stopwords []string) *Tokenizer {
	return &Tokenizer{stops: stoplist.NewManager(stopwords)}
}

// NewDefaultTokenizer creates a tokenizer using the built-in stopword list.
func NewDefaultTokenizer() *Tokenizer {
	return &Tokenizer{stops: stoplist.NewDefault()}
}

// Words lower-cases text, turns punctuation into whitespace and returns the
// words longer than two characters that are not stopwords. No stemming.
func (t *Tokenizer) Words(text string) []string {
	fields := strings.Fields(normalize(text))
	words := fields[:0]
	for _, w := range fields {
		if len(w) > 2 && !t.stops.IsStop(w) {
			words = append(words, w)
		}
	}
	return words
}

// Tokenize splits text into normalized, stemmed tokens with stopwords removed.
func (t *Tokenizer) Tokenize(text string) []string {
	words := t.Words(text)
	for i, w := range words {
		words[i] = Stem(w)
	}
	return words
}

// Stem strips a single suffix from word. The longest matching suffix wins and
// is only removed when more than two characters would remain.
func Stem(word string) string {
	best := ""
	for _, suf := range suffixes {
		if len(suf) > len(best) && strings.HasSuffix(word, suf) && len(word) > len(suf)+2 {
			best = suf
		}
	}
	return word[:len(word)-len(best)]
}

// ExtractPhrases returns every n-gram of length minLen..maxLen (shortest
// first, then left to right) that contains no stopword.
func (t *Tokenizer) ExtractPhrases(text string, minLen, maxLen int) []string {
	if minLen < 1 {
		minLen = 1
	}
	words := strings.Fields(normalize(text))
	var phrases []string
	for n := minLen; n <= maxLen; n++ {
		for i := 0; i+n <= len(words); i++ {
			gram := words[i : i+n]
			if t.containsStop(gram) {
				continue
			}
			phrases = append(phrases, strings.Join(gram, " "))
		}
	}
	return phrases
}

func (t *Tokenizer) containsStop(words []string) bool {
	for _, w := range words {
		if t.stops.IsStop(w) {
			return true
		}
	}
	return false
}

// IsStopword reports whether word is in the tokenizer's stoplist.
func (t *Tokenizer) IsStopword(word string) bool {
	return t.stops.IsStop(strings.ToLower(word))
}

// AddStopword adds a word to the stopword list
func (t *Tokenizer) AddStopword(word string) {
	t.stops.Add(word)
}

// RemoveStopword removes a word from the stopword list
func (t *Tokenizer) RemoveStopword(word string) {
	t.stops.Remove(word)
}

// Stopwords returns the current stopword list, sorted.
func (t *Tokenizer) Stopwords() []string {
	return t.stops.All()
}

func normalize(text string) string {
	return nonWord.ReplaceAllString(strings.ToLower(text), " ")
}
