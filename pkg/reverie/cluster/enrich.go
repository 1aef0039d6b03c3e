package cluster

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/cognicore/reverie/pkg/reverie/sentiment"
	"github.com/cognicore/reverie/pkg/reverie/thought"
)

const maxKeywords = 6

func (b *batch) enrich(group []int) Cluster {
	members := make([]thought.Thought, len(group))
	moods := make([]sentiment.Result, len(group))
	ids := make([]string, len(group))
	for i, idx := range group {
		members[i] = b.thoughts[idx]
		moods[i] = b.sentiments[idx]
		ids[i] = members[i].ID
	}

	return Cluster{
		ID:          b.e.ids.New(),
		Name:        b.e.name(members, moods),
		ThoughtIDs:  ids,
		CreatedAt:   b.e.now(),
		Keywords:    b.e.keywords(members),
		Description: describe(members, moods),
	}
}

// counted is an ordered frequency table; iteration follows first appearance.
type counted struct {
	keys   []string
	counts map[string]int
}

func countAll(items []string) counted {
	c := counted{counts: make(map[string]int)}
	for _, it := range items {
		if _, ok := c.counts[it]; !ok {
			c.keys = append(c.keys, it)
		}
		c.counts[it]++
	}
	return c
}

type scoredTerm struct {
	term  string
	score float64
}

func (e *Engine) name(members []thought.Thought, moods []sentiment.Result) string {
	text := joinContent(members)
	tok := e.pipeline.Tokenizer()
	tokens := tok.Tokenize(text)

	var terms []scoredTerm
	tc := countAll(tokens)
	for _, t := range tc.keys {
		n := tc.counts[t]
		if n >= 2 && len(t) > 3 {
			rarity := math.Log(float64(len(tokens)) / float64(n))
			terms = append(terms, scoredTerm{t, float64(n*len(t)) * rarity * 0.8})
		}
	}
	pc := countAll(tok.ExtractPhrases(text, 2, 4))
	for _, p := range pc.keys {
		if n := pc.counts[p]; n >= 2 {
			terms = append(terms, scoredTerm{p, float64(n*len(strings.Fields(p))) * 3})
		}
	}
	sort.SliceStable(terms, func(i, j int) bool { return terms[i].score > terms[j].score })

	if len(terms) > 0 {
		parts := make([]string, 0, 2)
		for _, st := range terms[:min(2, len(terms))] {
			parts = append(parts, titleWords(st.term))
		}
		return strings.Join(parts, " & ")
	}

	if emo, total := dominantEmotion(moods); total > 1 {
		return emo.Title() + " Thoughts"
	}
	return dominantCategory(members).Title() + " Collection"
}

func (e *Engine) keywords(members []thought.Thought) []string {
	tok := e.pipeline.Tokenizer()
	var tokens []string
	for _, m := range members {
		tokens = append(tokens, tok.Tokenize(m.Content)...)
	}
	tc := countAll(tokens)

	var kws []string
	for _, t := range tc.keys {
		if tc.counts[t] >= 2 && len(t) > 3 {
			kws = append(kws, t)
		}
	}
	sort.SliceStable(kws, func(i, j int) bool { return tc.counts[kws[i]] > tc.counts[kws[j]] })
	if len(kws) > maxKeywords {
		kws = kws[:maxKeywords]
	}
	return kws
}

// describe renders the templated cluster description.
func describe(members []thought.Thought, moods []sentiment.Result) string {
	var sum, mag float64
	for _, m := range moods {
		sum += m.Score
		mag += m.Magnitude
	}
	n := float64(max(len(moods), 1))
	avg, avgMag := sum/n, mag/n

	tone := "neutral"
	switch {
	case avg > 0.3:
		tone = "positive"
	case avg < -0.3:
		tone = "concerning"
	case avgMag > 0.6:
		tone = "emotionally intense"
	}

	cats := make([]string, len(members))
	for i, m := range members {
		cats[i] = string(m.Category)
	}
	cc := countAll(cats)
	top := append([]string(nil), cc.keys...)
	sort.SliceStable(top, func(i, j int) bool { return cc.counts[top[i]] > cc.counts[top[j]] })
	if len(top) > 2 {
		top = top[:2]
	}

	return fmt.Sprintf("A group of %d thoughts primarily about %s with a %s tone. "+
		"These thoughts were clustered based on semantic similarity and shared themes.",
		len(members), strings.Join(top, " and "), tone)
}

// dominantEmotion sums intensities per emotion and returns the largest.
func dominantEmotion(moods []sentiment.Result) (sentiment.Emotion, float64) {
	var order []sentiment.Emotion
	totals := make(map[sentiment.Emotion]float64)
	for _, m := range moods {
		for _, es := range m.Emotions {
			if _, ok := totals[es.Emotion]; !ok {
				order = append(order, es.Emotion)
			}
			totals[es.Emotion] += es.Intensity
		}
	}
	var best sentiment.Emotion
	var bestTotal float64
	for _, emo := range order {
		if best == "" || totals[emo] > bestTotal {
			best, bestTotal = emo, totals[emo]
		}
	}
	return best, bestTotal
}

// dominantCategory returns the most common category; the first seen wins ties.
func dominantCategory(members []thought.Thought) thought.Category {
	counts := make(map[thought.Category]int)
	var best thought.Category
	for _, m := range members {
		counts[m.Category]++
	}
	for _, m := range members {
		if best == "" || counts[m.Category] > counts[best] {
			best = m.Category
		}
	}
	if best == "" {
		return thought.Idea
	}
	return best
}

func joinContent(members []thought.Thought) string {
	parts := make([]string, len(members))
	for i, m := range members {
		parts[i] = m.Content
	}
	return strings.Join(parts, " ")
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
