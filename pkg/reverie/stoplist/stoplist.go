package stoplist

import (
	"sort"
	"strings"
)

// defaultWords are the function words dropped by the tokenizer and by
// phrase extraction.
var defaultWords = []string{
	"a", "an", "and", "are", "as", "at", "be", "by", "for", "from",
	"has", "he", "in", "is", "it", "its", "of", "on", "that", "the",
	"to", "was", "will", "with", "but", "or", "not", "this", "they", "have",
	"had", "what", "said", "each", "which", "their", "time", "if", "up", "out",
	"many", "then", "them", "these", "so", "some", "her", "would", "make", "like",
	"into", "him", "two", "more", "very", "go", "no", "way", "could", "my",
	"than", "first", "been", "call", "who", "now", "find", "long", "down", "day",
	"did", "get", "come", "made", "may", "part", "i", "me", "im", "you",
	"your", "we", "us", "our", "am", "can", "just",
}

// conceptWords are short generic words excluded from concept extraction.
var conceptWords = []string{
	"the", "and", "for", "are", "but", "not", "you", "all", "can", "had",
	"her", "was", "one", "our", "out", "day", "get", "has", "him", "his",
	"how", "man", "new", "now", "old", "see", "two", "way", "who", "boy",
	"did", "its", "let", "put", "say", "she", "too", "use",
}

// Default returns a copy of the built-in stop-word list.
func Default() []string {
	return append([]string(nil), defaultWords...)
}

// ConceptExclusions returns a copy of the words never reported as concepts.
func ConceptExclusions() []string {
	return append([]string(nil), conceptWords...)
}

// Manager holds a mutable stop-word set. It is not safe for concurrent
// mutation; callers build one and then share it read-only.
type Manager struct {
	stops map[string]struct{}
}

// NewManager creates a stoplist manager seeded with the given words.
func NewManager(initialStops []string) *Manager {
	stops := make(map[string]struct{}, len(initialStops))
	for _, s := range initialStops {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			stops[s] = struct{}{}
		}
	}
	return &Manager{stops: stops}
}

// NewDefault creates a manager seeded with Default().
func NewDefault() *Manager {
	return NewManager(defaultWords)
}

// IsStop checks if a token is a stopword
func (m *Manager) IsStop(token string) bool {
	_, ok := m.stops[token]
	return ok
}

// Add adds a token to the stoplist
func (m *Manager) Add(token string) {
	if token = strings.ToLower(strings.TrimSpace(token)); token != "" {
		m.stops[token] = struct{}{}
	}
}

// Remove removes a token from the stoplist
func (m *Manager) Remove(token string) {
	delete(m.stops, strings.ToLower(strings.TrimSpace(token)))
}

// Len returns the number of stopwords.
func (m *Manager) Len() int { return len(m.stops) }

// All returns all stopwords, sorted.
func (m *Manager) All() []string {
	result := make([]string, 0, len(m.stops))
	for s := range m.stops {
		result = append(result, s)
	}
	sort.Strings(result)
	return result
}
