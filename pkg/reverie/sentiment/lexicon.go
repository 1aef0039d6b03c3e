package sentiment

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/reverie/pkg/reverie/ingest"
	"github.com/cognicore/reverie/pkg/reverie/internalerr"
)

// Lexicon maps words to signed sentiment weights.
//
// Expected YAML format:
//
//	positive:
//	  amazing: 0.9
//	negative:
//	  awful: -0.8
type Lexicon struct {
	Positive map[string]float64 `yaml:"positive"`
	Negative map[string]float64 `yaml:"negative"`
}

// DefaultLexicon returns the built-in lexicon.
func DefaultLexicon() *Lexicon {
	return &Lexicon{
		Positive: map[string]float64{
			"amazing": 0.9, "awesome": 0.8, "brilliant": 0.8, "excellent": 0.8, "fantastic": 0.9,
			"good": 0.5, "great": 0.7, "happy": 0.6, "love": 0.8, "perfect": 0.9, "wonderful": 0.8,
			"excited": 0.7, "thrilled": 0.8, "grateful": 0.7, "blessed": 0.7, "joy": 0.8,
		},
		Negative: map[string]float64{
			"awful": -0.8, "terrible": -0.8, "horrible": -0.8, "hate": -0.7, "bad": -0.5,
			"sad": -0.6, "angry": -0.7, "frustrated": -0.6, "disappointed": -0.6, "worst": -0.9,
			"annoying": -0.5, "stressed": -0.6, "overwhelmed": -0.7, "anxious": -0.6,
		},
	}
}

// ParseLexicon decodes a YAML lexicon. Positive weights must lie in (0,1]
// and negative weights in [-1,0).
func ParseLexicon(data []byte) (*Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}
	for w, v := range lex.Positive {
		if v <= 0 || v > 1 {
			return nil, fmt.Errorf("%w: positive weight for %q out of range: %v", internalerr.ErrInvalidConfig, w, v)
		}
	}
	for w, v := range lex.Negative {
		if v >= 0 || v < -1 {
			return nil, fmt.Errorf("%w: negative weight for %q out of range: %v", internalerr.ErrInvalidConfig, w, v)
		}
	}
	lex.normalize()
	return &lex, nil
}

// LoadLexicon reads a YAML lexicon from path.
func LoadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseLexicon(data)
}

func (l *Lexicon) normalize() {
	lower := func(in map[string]float64) map[string]float64 {
		out := make(map[string]float64, len(in))
		for w, v := range in {
			out[strings.ToLower(strings.TrimSpace(w))] = v
		}
		return out
	}
	l.Positive = lower(l.Positive)
	l.Negative = lower(l.Negative)
}

// Weight returns the signed weight of word. The surface form is tried
// first, then its stem.
func (l *Lexicon) Weight(word string) (float64, bool) {
	if w, ok := l.lookup(word); ok {
		return w, true
	}
	if stem := ingest.Stem(word); stem != word {
		return l.lookup(stem)
	}
	return 0, false
}

func (l *Lexicon) lookup(word string) (float64, bool) {
	if w, ok := l.Positive[word]; ok {
		return w, true
	}
	if w, ok := l.Negative[word]; ok {
		return w, true
	}
	return 0, false
}

// Size returns the number of entries.
func (l *Lexicon) Size() int {
	return len(l.Positive) + len(l.Negative)
}
