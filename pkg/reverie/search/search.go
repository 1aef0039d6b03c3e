// Package search ranks thoughts against a free-text query or against another
// thought using TF-IDF cosine similarity.
package search

import (
	"sort"
	"strings"

	"github.com/cognicore/reverie/pkg/reverie/ingest"
	"github.com/cognicore/reverie/pkg/reverie/similarity"
	"github.com/cognicore/reverie/pkg/reverie/thought"
)

// Defaults for Options.
const (
	DefaultThreshold        = 0.1
	DefaultRelatedThreshold = 0.2
	DefaultRelatedLimit     = 5
)

// Result is a scored match.
type Result struct {
	Thought thought.Thought `json:"thought"`
	Score   float64         `json:"score"`
}

// Options configures a Searcher. Zero values select the defaults.
type Options struct {
	Tokenizer        *ingest.Tokenizer
	Threshold        float64
	RelatedThreshold float64
	RelatedLimit     int
}

// Searcher is stateless apart from its configuration.
type Searcher struct {
	tokenizer        *ingest.Tokenizer
	threshold        float64
	relatedThreshold float64
	relatedLimit     int
}

// New creates a searcher.
func New(opts Options) *Searcher {
	s := &Searcher{
		tokenizer:        opts.Tokenizer,
		threshold:        opts.Threshold,
		relatedThreshold: opts.RelatedThreshold,
		relatedLimit:     opts.RelatedLimit,
	}
	if s.tokenizer == nil {
		s.tokenizer = ingest.NewDefaultTokenizer()
	}
	if s.threshold <= 0 {
		s.threshold = DefaultThreshold
	}
	if s.relatedThreshold <= 0 {
		s.relatedThreshold = DefaultRelatedThreshold
	}
	if s.relatedLimit <= 0 {
		s.relatedLimit = DefaultRelatedLimit
	}
	return s
}

// Search scores every thought against query and returns those above the
// search threshold, best first. The query takes part in the IDF corpus.
func (s *Searcher) Search(query string, thoughts []thought.Thought) []Result {
	query = strings.TrimSpace(query)
	if query == "" || len(thoughts) == 0 {
		return nil
	}

	ranked := s.rank(query, thoughts)
	out := ranked[:0]
	for _, r := range ranked {
		if r.Score > s.threshold {
			out = append(out, r)
		}
	}
	return out
}

// Related returns up to limit thoughts most similar to target, excluding
// target itself. The limit is applied before the relatedness threshold, so
// fewer than limit results may come back. limit <= 0 selects the default.
func (s *Searcher) Related(target thought.Thought, all []thought.Thought, limit int) []Result {
	if limit <= 0 {
		limit = s.relatedLimit
	}
	others := make([]thought.Thought, 0, len(all))
	for _, t := range all {
		if t.ID != target.ID {
			others = append(others, t)
		}
	}
	if len(others) == 0 {
		return nil
	}

	ranked := s.rank(target.Content, others)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := ranked[:0]
	for _, r := range ranked {
		if r.Score > s.relatedThreshold {
			out = append(out, r)
		}
	}
	return out
}

// rank scores candidates against probe, which is document 0 of the corpus.
func (s *Searcher) rank(probe string, candidates []thought.Thought) []Result {
	docs := make([][]string, 0, len(candidates)+1)
	docs = append(docs, s.tokenizer.Tokenize(probe))
	for _, t := range candidates {
		docs = append(docs, s.tokenizer.Tokenize(t.Content))
	}

	corpus := similarity.NewCorpus(docs)
	pv := corpus.Vector(docs[0])
	out := make([]Result, len(candidates))
	for i, t := range candidates {
		out[i] = Result{Thought: t, Score: similarity.Cosine(pv, corpus.Vector(docs[i+1]))}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
