package cluster

import (
	"time"

	"go.uber.org/zap"

	"github.com/cognicore/reverie/pkg/reverie/ingest"
	"github.com/cognicore/reverie/pkg/reverie/sentiment"
	"github.com/cognicore/reverie/pkg/reverie/similarity"
	"github.com/cognicore/reverie/pkg/reverie/thought"
)

// Defaults for Options.
const (
	DefaultMinClusterSize = 2
	DefaultMaxClusters    = 8
	DefaultThreshold      = 0.25
)

// Strategy names one of the grouping strategies.
type Strategy string

const (
	StrategyContent Strategy = "content"
	StrategyTime    Strategy = "time"
	StrategyEmotion Strategy = "emotion"
	StrategyHybrid  Strategy = "hybrid"
)

// Strategies lists the strategies in evaluation order. Quality ties keep
// the earlier strategy.
var Strategies = []Strategy{StrategyContent, StrategyTime, StrategyEmotion, StrategyHybrid}

// Options configures an Engine.
type Options struct {
	MinClusterSize int
	MaxClusters    int
	Threshold      float64
	// Location decides calendar days for the time strategy. Defaults to time.Local.
	Location *time.Location

	Pipeline *ingest.Pipeline
	Analyzer *sentiment.Analyzer
	Scorer   *similarity.ContentScorer
	IDs      *IDSource
	Now      func() time.Time
	Logger   *zap.Logger
}

// Engine clusters thoughts. It keeps no state between calls apart from its
// configuration and ID source, and is safe for concurrent use.
type Engine struct {
	minSize   int
	maxCount  int
	threshold float64
	loc       *time.Location

	pipeline *ingest.Pipeline
	analyzer *sentiment.Analyzer
	scorer   *similarity.ContentScorer
	ids      *IDSource
	now      func() time.Time
	log      *zap.Logger
}

// New creates an engine, filling unset options with defaults.
func New(opts Options) *Engine {
	e := &Engine{
		minSize:   opts.MinClusterSize,
		maxCount:  opts.MaxClusters,
		threshold: opts.Threshold,
		loc:       opts.Location,
		pipeline:  opts.Pipeline,
		analyzer:  opts.Analyzer,
		scorer:    opts.Scorer,
		ids:       opts.IDs,
		now:       opts.Now,
		log:       opts.Logger,
	}
	if e.minSize <= 0 {
		e.minSize = DefaultMinClusterSize
	}
	if e.maxCount <= 0 {
		e.maxCount = DefaultMaxClusters
	}
	if e.threshold <= 0 {
		e.threshold = DefaultThreshold
	}
	if e.loc == nil {
		e.loc = time.Local
	}
	if e.pipeline == nil {
		e.pipeline = ingest.NewDefaultPipeline()
	}
	if e.analyzer == nil {
		e.analyzer = sentiment.NewAnalyzer(e.pipeline.Tokenizer(), nil)
	}
	if e.scorer == nil {
		e.scorer = similarity.NewContentScorer(e.pipeline.Taxonomy())
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.ids == nil {
		e.ids = NewIDSource(nil, e.now)
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	return e
}

// MinClusterSize returns the configured minimum cluster size.
func (e *Engine) MinClusterSize() int { return e.minSize }

// NewID mints a cluster identifier.
func (e *Engine) NewID() string { return e.ids.New() }

// Outcome is the result of a clustering run.
type Outcome struct {
	Strategy Strategy
	Quality  float64
	Clusters []Cluster
}

// Cluster groups thoughts and returns the enriched clusters of the best
// strategy. Fewer than MinClusterSize thoughts yield no clusters.
func (e *Engine) Cluster(thoughts []thought.Thought) []Cluster {
	return e.Run(thoughts).Clusters
}

// Run evaluates every strategy, keeps the highest quality grouping and
// enriches at most MaxClusters of its groups.
func (e *Engine) Run(thoughts []thought.Thought) Outcome {
	if len(thoughts) < e.minSize || len(thoughts) == 0 {
		return Outcome{}
	}

	b := e.newBatch(thoughts)
	var best Outcome
	var bestGroups [][]int
	for _, s := range Strategies {
		groups := b.groups(s, e.minSize)
		q := quality(groups, len(thoughts))
		e.log.Debug("cluster strategy evaluated",
			zap.String("strategy", string(s)),
			zap.Int("groups", len(groups)),
			zap.Float64("quality", q))
		if q > best.Quality {
			best = Outcome{Strategy: s, Quality: q}
			bestGroups = groups
		}
	}

	if len(bestGroups) > e.maxCount {
		bestGroups = bestGroups[:e.maxCount]
	}
	best.Clusters = make([]Cluster, 0, len(bestGroups))
	for _, g := range bestGroups {
		best.Clusters = append(best.Clusters, b.enrich(g))
	}

	e.log.Info("clustered thoughts",
		zap.Int("thoughts", len(thoughts)),
		zap.String("strategy", string(best.Strategy)),
		zap.Int("clusters", len(best.Clusters)),
		zap.Float64("quality", best.Quality))
	return best
}

// quality scores a grouping: 0.3·count + 0.3·balance + 0.4·coverage.
func quality(groups [][]int, total int) float64 {
	if len(groups) == 0 || total == 0 {
		return 0
	}

	countScore := 0.3
	switch n := len(groups); {
	case n >= 2 && n <= 6:
		countScore = 1
	case n > 6:
		countScore = 0.5
	}

	var sum float64
	for _, g := range groups {
		sum += float64(len(g))
	}
	mean := sum / float64(len(groups))
	var variance float64
	for _, g := range groups {
		d := float64(len(g)) - mean
		variance += d * d
	}
	variance /= float64(len(groups))
	balance := max(0, 1-variance/(mean*mean))

	coverage := sum / float64(total)
	return 0.3*countScore + 0.3*balance + 0.4*coverage
}
