package similarity

import (
	"math"
	"sort"
)

// Corpus holds document frequencies for a batch of token documents.
type Corpus struct {
	n  int
	df map[string]int
}

// NewCorpus computes document frequencies over docs.
func NewCorpus(docs [][]string) *Corpus {
	c := &Corpus{n: len(docs), df: make(map[string]int)}
	for _, doc := range docs {
		seen := make(map[string]struct{}, len(doc))
		for _, term := range doc {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			c.df[term]++
		}
	}
	return c
}

// Len returns the number of documents in the corpus.
func (c *Corpus) Len() int { return c.n }

// IDF returns ln(N / (df+1)). Terms common to most documents get a zero or
// negative weight and drop out of vectors.
func (c *Corpus) IDF(term string) float64 {
	df, ok := c.df[term]
	if !ok || c.n == 0 {
		return 0
	}
	return math.Log(float64(c.n) / float64(df+1))
}

// Vector is a sparse TF-IDF vector with terms kept in sorted order.
type Vector struct {
	Terms   []string
	Weights []float64
	norm    float64
}

// Norm returns the Euclidean norm of the vector.
func (v Vector) Norm() float64 { return v.norm }

// Len returns the number of non-zero entries.
func (v Vector) Len() int { return len(v.Terms) }

// Vector builds the TF-IDF vector of doc. Only strictly positive weights are kept.
func (c *Corpus) Vector(doc []string) Vector {
	if len(doc) == 0 {
		return Vector{}
	}
	counts := make(map[string]int, len(doc))
	for _, term := range doc {
		counts[term]++
	}
	terms := make([]string, 0, len(counts))
	for term := range counts {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	var v Vector
	total := float64(len(doc))
	for _, term := range terms {
		w := float64(counts[term]) / total * c.IDF(term)
		if w <= 0 {
			continue
		}
		v.Terms = append(v.Terms, term)
		v.Weights = append(v.Weights, w)
		v.norm += w * w
	}
	v.norm = math.Sqrt(v.norm)
	return v
}

// Cosine returns the cosine similarity of a and b, or 0 when either is empty.
func Cosine(a, b Vector) float64 {
	if a.norm == 0 || b.norm == 0 {
		return 0
	}
	var dot float64
	i, j := 0, 0
	for i < len(a.Terms) && j < len(b.Terms) {
		switch {
		case a.Terms[i] == b.Terms[j]:
			dot += a.Weights[i] * b.Weights[j]
			i++
			j++
		case a.Terms[i] < b.Terms[j]:
			i++
		default:
			j++
		}
	}
	sim := dot / (a.norm * b.norm)
	if sim > 1 {
		sim = 1
	}
	return sim
}

// TFIDFMatrix builds the full pairwise cosine matrix of docs. The matrix is
// exactly symmetric and has 1 on the diagonal.
func TFIDFMatrix(docs [][]string) [][]float64 {
	corpus := NewCorpus(docs)
	vectors := make([]Vector, len(docs))
	for i, doc := range docs {
		vectors[i] = corpus.Vector(doc)
	}
	return pairwise(len(docs), func(i, j int) float64 {
		return Cosine(vectors[i], vectors[j])
	})
}

func pairwise(n int, sim func(i, j int) float64) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		m[i][i] = 1
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			s := sim(i, j)
			m[i][j] = s
			m[j][i] = s
		}
	}
	return m
}
