package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/reverie/pkg/reverie/internalerr"
	"github.com/cognicore/reverie/pkg/reverie/sentiment"
	"github.com/cognicore/reverie/pkg/reverie/stoplist"
)

// Stoplist is the stop-word resource file. With Extend set the terms are
// added to the built-in list instead of replacing it.
type Stoplist struct {
	Terms  []string `yaml:"terms"`
	Extend bool     `yaml:"extend"`
}

// ParseStoplist decodes a stoplist document. Terms are lowercased and
// blanks dropped; a document with no terms is rejected.
func ParseStoplist(data []byte) (*Stoplist, error) {
	var sl Stoplist
	if err := yaml.Unmarshal(data, &sl); err != nil {
		return nil, fmt.Errorf("%w: stoplist: %v", internalerr.ErrInvalidConfig, err)
	}
	terms := sl.Terms[:0]
	for _, t := range sl.Terms {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			terms = append(terms, t)
		}
	}
	if len(terms) == 0 {
		return nil, fmt.Errorf("%w: stoplist has no terms", internalerr.ErrInvalidConfig)
	}
	sl.Terms = terms
	return &sl, nil
}

// LoadStoplist reads and parses a stoplist file.
func LoadStoplist(path string) (*Stoplist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseStoplist(data)
}

// Words returns the effective stop words.
func (s *Stoplist) Words() []string {
	if !s.Extend {
		return s.Terms
	}
	return append(stoplist.Default(), s.Terms...)
}

// LoadLexicon loads a sentiment lexicon from a YAML file with `positive`
// and `negative` word-to-weight maps.
func LoadLexicon(path string) (*sentiment.Lexicon, error) {
	return sentiment.LoadLexicon(path)
}
