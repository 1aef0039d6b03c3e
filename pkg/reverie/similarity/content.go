package similarity

import (
	"github.com/cognicore/reverie/pkg/reverie/ingest"
)

const (
	conceptWeight = 0.6
	wordWeight    = 0.3
	themeWeight   = 0.1
)

// Profile is the precomputed concept view of one text.
type Profile struct {
	Concepts []string
	Words    map[string]struct{}
	Themes   map[string]struct{}
}

// ContentScorer computes concept-overlap similarity between texts.
type ContentScorer struct {
	taxonomy *ingest.Taxonomy
}

// NewContentScorer creates a scorer over the given taxonomy (default when nil).
func NewContentScorer(tax *ingest.Taxonomy) *ContentScorer {
	if tax == nil {
		tax = ingest.NewTaxonomy()
	}
	return &ContentScorer{taxonomy: tax}
}

// Profile extracts concepts, content words and themes from text.
func (s *ContentScorer) Profile(text string) Profile {
	themes := s.taxonomy.Themes(text)
	set := make(map[string]struct{}, len(themes))
	for _, th := range themes {
		set[th] = struct{}{}
	}
	return Profile{
		Concepts: s.taxonomy.ExtractConcepts(text),
		Words:    ingest.ContentWords(text),
		Themes:   set,
	}
}

// Similarity scores two profiles in [0,1]:
// 0.6·concept overlap + 0.3·word overlap + 0.1·theme overlap.
func (s *ContentScorer) Similarity(a, b Profile) float64 {
	sim := conceptWeight*conceptOverlap(a.Concepts, b.Concepts) +
		wordWeight*setOverlap(a.Words, b.Words) +
		themeWeight*themeOverlap(a.Themes, b.Themes)
	if sim > 1 {
		sim = 1
	}
	return sim
}

// Texts scores two raw texts.
func (s *ContentScorer) Texts(a, b string) float64 {
	return s.Similarity(s.Profile(a), s.Profile(b))
}

// Matrix builds the pairwise concept-similarity matrix for texts.
func (s *ContentScorer) Matrix(texts []string) [][]float64 {
	profiles := make([]Profile, len(texts))
	for i, t := range texts {
		profiles[i] = s.Profile(t)
	}
	return s.ProfileMatrix(profiles)
}

// ProfileMatrix builds the pairwise matrix from precomputed profiles.
func (s *ContentScorer) ProfileMatrix(profiles []Profile) [][]float64 {
	return pairwise(len(profiles), func(i, j int) float64 {
		return s.Similarity(profiles[i], profiles[j])
	})
}

// SharedConcepts returns the concepts of a that also appear in b, in a's order.
func SharedConcepts(a, b Profile) []string {
	in := make(map[string]struct{}, len(b.Concepts))
	for _, c := range b.Concepts {
		in[c] = struct{}{}
	}
	var out []string
	for _, c := range a.Concepts {
		if _, ok := in[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

func conceptOverlap(a, b []string) float64 {
	common := 0
	in := make(map[string]struct{}, len(b))
	for _, c := range b {
		in[c] = struct{}{}
	}
	for _, c := range a {
		if _, ok := in[c]; ok {
			common++
		}
	}
	return float64(common) / float64(max(len(a), len(b), 1))
}

func setOverlap(a, b map[string]struct{}) float64 {
	common := 0
	for w := range a {
		if _, ok := b[w]; ok {
			common++
		}
	}
	return float64(common) / float64(max(len(a), len(b), 1))
}

func themeOverlap(a, b map[string]struct{}) float64 {
	common := 0
	for th := range a {
		if _, ok := b[th]; ok {
			common++
		}
	}
	total := len(a) + len(b) - common
	if total == 0 {
		return 0
	}
	return float64(common) / float64(total)
}
