// Package recap summarises a recent window of thoughts.
package recap

import (
	"sort"
	"time"

	"github.com/cognicore/reverie/pkg/reverie/cluster"
	"github.com/cognicore/reverie/pkg/reverie/sentiment"
	"github.com/cognicore/reverie/pkg/reverie/thought"
)

// DefaultWindowDays is the recap window when none is given.
const DefaultWindowDays = 7

const maxThemes = 5

// Insight sentences.
const (
	InsightPositive = "Your thoughts this week show a positive outlook"
	InsightNegative = "This week's thoughts suggest some challenges"
	InsightDiverse  = "You've been thinking about diverse topics"
)

// WeeklyRecap summarises the thoughts of one window.
type WeeklyRecap struct {
	WeekStarting      time.Time                `json:"weekStarting"`
	TopThemes         []string                 `json:"topThemes"`
	ThoughtCount      int                      `json:"thoughtCount"`
	CategoryBreakdown map[thought.Category]int `json:"categoryBreakdown"`
	SuggestedRevisit  *thought.Thought         `json:"suggestedRevisit,omitempty"`
	AverageSentiment  float64                  `json:"averageSentiment"`
	Insights          []string                 `json:"insights"`
	ClusterCount      int                      `json:"clusterCount"`
}

// Generator builds recaps. now is injected so windows are reproducible.
type Generator struct {
	analyzer *sentiment.Analyzer
	engine   *cluster.Engine
	now      func() time.Time
}

// NewGenerator creates a generator. Nil arguments select defaults.
func NewGenerator(analyzer *sentiment.Analyzer, engine *cluster.Engine, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	if analyzer == nil {
		analyzer = sentiment.NewAnalyzer(nil, nil)
	}
	if engine == nil {
		engine = cluster.New(cluster.Options{Analyzer: analyzer, Now: now})
	}
	return &Generator{analyzer: analyzer, engine: engine, now: now}
}

// Window returns the thoughts created within [now-days, now], in input order.
func (g *Generator) Window(thoughts []thought.Thought, days int) []thought.Thought {
	if days <= 0 {
		days = DefaultWindowDays
	}
	now := g.now()
	start := now.AddDate(0, 0, -days)
	var out []thought.Thought
	for _, t := range thoughts {
		if !t.CreatedAt.Before(start) && !t.CreatedAt.After(now) {
			out = append(out, t)
		}
	}
	return out
}

// Recap summarises the window. It returns nil when no thought falls inside it.
func (g *Generator) Recap(thoughts []thought.Thought, days int) *WeeklyRecap {
	if days <= 0 {
		days = DefaultWindowDays
	}
	window := g.Window(thoughts, days)
	if len(window) == 0 {
		return nil
	}

	breakdown := make(map[thought.Category]int)
	for _, t := range window {
		breakdown[t.Category]++
	}
	avg := g.AverageSentiment(window)
	clusters := g.engine.Cluster(window)
	first := window[0]

	return &WeeklyRecap{
		WeekStarting:      g.now().AddDate(0, 0, -days),
		TopThemes:         topCategories(window, breakdown),
		ThoughtCount:      len(window),
		CategoryBreakdown: breakdown,
		SuggestedRevisit:  &first,
		AverageSentiment:  avg,
		Insights:          Insights(avg, len(clusters)),
		ClusterCount:      len(clusters),
	}
}

// AverageSentiment is the mean sentiment score of thoughts, 0 when empty.
func (g *Generator) AverageSentiment(thoughts []thought.Thought) float64 {
	if len(thoughts) == 0 {
		return 0
	}
	var sum float64
	for _, t := range thoughts {
		sum += g.analyzer.Analyze(t.Content).Score
	}
	return sum / float64(len(thoughts))
}

// Insights derives the canned observations for an average sentiment and a
// cluster count. The result is never nil.
func Insights(avg float64, clusters int) []string {
	out := []string{}
	switch {
	case avg > 0.3:
		out = append(out, InsightPositive)
	case avg < -0.3:
		out = append(out, InsightNegative)
	}
	if clusters > 3 {
		out = append(out, InsightDiverse)
	}
	return out
}

// topCategories lists up to five category labels by count; ties keep first
// appearance in the window.
func topCategories(window []thought.Thought, counts map[thought.Category]int) []string {
	var cats []thought.Category
	seen := make(map[thought.Category]bool)
	for _, t := range window {
		if !seen[t.Category] {
			seen[t.Category] = true
			cats = append(cats, t.Category)
		}
	}
	sort.SliceStable(cats, func(i, j int) bool { return counts[cats[i]] > counts[cats[j]] })
	if len(cats) > maxThemes {
		cats = cats[:maxThemes]
	}
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = string(c)
	}
	return out
}
