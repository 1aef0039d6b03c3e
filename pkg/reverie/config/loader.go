package config

import (
	"fmt"

	"github.com/cognicore/reverie/pkg/reverie/ingest"
	"github.com/cognicore/reverie/pkg/reverie/sentiment"
)

// Loader loads resource files and constructs the analysis components
type Loader struct {
	StoplistPath string
	LexiconPath  string
}

// Components holds the components built from resource files
type Components struct {
	Tokenizer *ingest.Tokenizer
	Taxonomy  *ingest.Taxonomy
	Pipeline  *ingest.Pipeline
	Lexicon   *sentiment.Lexicon
	Analyzer  *sentiment.Analyzer
}

// Load reads the configured files and returns initialized components.
// Empty paths select the built-in resources.
func (l *Loader) Load() (*Components, error) {
	comp := &Components{Taxonomy: ingest.NewTaxonomy()}

	if l.StoplistPath != "" {
		sl, err := LoadStoplist(l.StoplistPath)
		if err != nil {
			return nil, fmt.Errorf("load stoplist: %w", err)
		}
		comp.Tokenizer = ingest.NewTokenizer(sl.Words())
	} else {
		comp.Tokenizer = ingest.NewDefaultTokenizer()
	}

	if l.LexiconPath != "" {
		lex, err := LoadLexicon(l.LexiconPath)
		if err != nil {
			return nil, fmt.Errorf("load lexicon: %w", err)
		}
		comp.Lexicon = lex
	} else {
		comp.Lexicon = sentiment.DefaultLexicon()
	}

	comp.Pipeline = ingest.NewPipeline(comp.Tokenizer, comp.Taxonomy)
	comp.Analyzer = sentiment.NewAnalyzer(comp.Tokenizer, comp.Lexicon)
	return comp, nil
}
