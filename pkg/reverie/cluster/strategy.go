package cluster

import (
	"github.com/cognicore/reverie/pkg/reverie/sentiment"
	"github.com/cognicore/reverie/pkg/reverie/similarity"
	"github.com/cognicore/reverie/pkg/reverie/thought"
)

// batch caches per-thought analysis for one clustering run.
type batch struct {
	e          *Engine
	thoughts   []thought.Thought
	sentiments []sentiment.Result
	matrix     [][]float64
}

func (e *Engine) newBatch(thoughts []thought.Thought) *batch {
	b := &batch{e: e, thoughts: thoughts, sentiments: make([]sentiment.Result, len(thoughts))}
	for i, t := range thoughts {
		b.sentiments[i] = e.analyzer.Analyze(t.Content)
	}
	return b
}

func (b *batch) similarity() [][]float64 {
	if b.matrix == nil {
		profiles := make([]similarity.Profile, len(b.thoughts))
		for i, t := range b.thoughts {
			profiles[i] = b.e.scorer.Profile(t.Content)
		}
		b.matrix = b.e.scorer.ProfileMatrix(profiles)
	}
	return b.matrix
}

func (b *batch) groups(s Strategy, minSize int) [][]int {
	switch s {
	case StrategyContent:
		return b.byContent(minSize)
	case StrategyTime:
		return b.byTime(minSize)
	case StrategyEmotion:
		return b.byEmotion(minSize)
	case StrategyHybrid:
		return b.hybrid(minSize)
	}
	panic("cluster: unknown strategy " + string(s))
}

func (b *batch) byContent(minSize int) [][]int {
	groups := agglomerate(b.similarity(), b.e.threshold, minSize)
	if len(groups) == 0 {
		return b.byCategory(minSize)
	}
	return groups
}

// agglomerate runs average-linkage agglomerative clustering over sim until
// the best pair falls below threshold, then drops groups under minSize.
func agglomerate(sim [][]float64, threshold float64, minSize int) [][]int {
	clusters := make([][]int, len(sim))
	for i := range clusters {
		clusters[i] = []int{i}
	}

	for len(clusters) > 1 {
		best := -1.0
		bi, bj := 0, 1
		for i := 0; i < len(clusters); i++ {
			for j := i + 1; j < len(clusters); j++ {
				if s := averageLinkage(clusters[i], clusters[j], sim); s > best {
					best = s
					bi, bj = i, j
				}
			}
		}
		if best < threshold {
			break
		}

		merged := make([]int, 0, len(clusters[bi])+len(clusters[bj]))
		merged = append(merged, clusters[bi]...)
		merged = append(merged, clusters[bj]...)
		clusters = append(clusters[:bj], clusters[bj+1:]...)
		clusters = append(clusters[:bi], clusters[bi+1:]...)
		clusters = append(clusters, merged)
	}

	var out [][]int
	for _, c := range clusters {
		if len(c) >= minSize {
			out = append(out, c)
		}
	}
	return out
}

func averageLinkage(a, b []int, sim [][]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var total float64
	for _, i := range a {
		for _, j := range b {
			total += sim[i][j]
		}
	}
	return total / float64(len(a)*len(b))
}

func (b *batch) byCategory(minSize int) [][]int {
	return groupBy(len(b.thoughts), minSize, func(i int) string {
		return string(b.thoughts[i].Category)
	})
}

func (b *batch) byTime(minSize int) [][]int {
	return groupBy(len(b.thoughts), minSize, func(i int) string {
		return b.thoughts[i].CreatedAt.In(b.e.loc).Format("2006-01-02")
	})
}

func (b *batch) byEmotion(minSize int) [][]int {
	return groupBy(len(b.thoughts), minSize, func(i int) string {
		return emotionKey(b.sentiments[i])
	})
}

// emotionKey buckets a sentiment as positive, negative, intense or neutral,
// suffixed with the dominant emotion when one was detected.
func emotionKey(r sentiment.Result) string {
	key := "neutral"
	switch {
	case r.Score > 0.3:
		key = "positive"
	case r.Score < -0.3:
		key = "negative"
	case r.Magnitude > 0.6:
		key = "intense"
	}
	if dom, ok := r.Dominant(); ok {
		key += "-" + string(dom)
	}
	return key
}

// hybrid prefers content groups. Below two groups it takes the first of
// emotion then time that yields at least two, else the content result.
func (b *batch) hybrid(minSize int) [][]int {
	relaxed := max(2, minSize-1)
	return firstMultiGroup(b.byContent(relaxed),
		func() [][]int { return b.byEmotion(relaxed) },
		func() [][]int { return b.byTime(relaxed) },
	)
}

func firstMultiGroup(primary [][]int, fallbacks ...func() [][]int) [][]int {
	if len(primary) >= 2 {
		return primary
	}
	for _, next := range fallbacks {
		if g := next(); len(g) >= 2 {
			return g
		}
	}
	return primary
}

// groupBy buckets indices 0..n-1 by key, keeping first-seen bucket order,
// and drops buckets smaller than minSize.
func groupBy(n, minSize int, key func(int) string) [][]int {
	index := make(map[string]int)
	var buckets [][]int
	for i := 0; i < n; i++ {
		k := key(i)
		pos, ok := index[k]
		if !ok {
			pos = len(buckets)
			index[k] = pos
			buckets = append(buckets, nil)
		}
		buckets[pos] = append(buckets[pos], i)
	}

	var out [][]int
	for _, g := range buckets {
		if len(g) >= minSize {
			out = append(out, g)
		}
	}
	return out
}
