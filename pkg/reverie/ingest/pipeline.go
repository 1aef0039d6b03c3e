package ingest

import "strings"

// Pipeline orchestrates the full preprocessing flow:
// text → tokens → phrases → concepts/themes
type Pipeline struct {
	tokenizer *Tokenizer
	taxonomy  *Taxonomy
}

// NewPipeline creates a pipeline with the given components. Nil components
// are replaced by the defaults.
func NewPipeline(tokenizer *Tokenizer, taxonomy *Taxonomy) *Pipeline {
	if tokenizer == nil {
		tokenizer = NewDefaultTokenizer()
	}
	if taxonomy == nil {
		taxonomy = NewTaxonomy()
	}
	return &Pipeline{tokenizer: tokenizer, taxonomy: taxonomy}
}

// NewDefaultPipeline returns a pipeline built from the default tokenizer and taxonomy.
func NewDefaultPipeline() *Pipeline {
	return NewPipeline(nil, nil)
}

// Tokenizer returns the pipeline's tokenizer.
func (p *Pipeline) Tokenizer() *Tokenizer { return p.tokenizer }

// Taxonomy returns the pipeline's taxonomy.
func (p *Pipeline) Taxonomy() *Taxonomy { return p.taxonomy }

// ProcessedText is a piece of text after preprocessing.
type ProcessedText struct {
	Lower    string
	Words    []string // filtered, unstemmed
	Tokens   []string // filtered, stemmed
	Phrases  []string
	Concepts []string
	Themes   []string
}

// Process runs text through the full pipeline
func (p *Pipeline) Process(text string) ProcessedText {
	words := p.tokenizer.Words(text)
	tokens := make([]string, len(words))
	for i, w := range words {
		tokens[i] = Stem(w)
	}
	return ProcessedText{
		Lower:    strings.ToLower(text),
		Words:    words,
		Tokens:   tokens,
		Phrases:  p.tokenizer.ExtractPhrases(text, 2, 4),
		Concepts: p.taxonomy.ExtractConcepts(text),
		Themes:   p.taxonomy.Themes(text),
	}
}
