// Package reverie ties the thought store to the analysis engine: thought
// lifecycle, clustering, search, recaps and the optional language model
// assistant.
package reverie

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cognicore/reverie/pkg/reverie/categorize"
	"github.com/cognicore/reverie/pkg/reverie/cluster"
	"github.com/cognicore/reverie/pkg/reverie/ingest"
	"github.com/cognicore/reverie/pkg/reverie/internalerr"
	"github.com/cognicore/reverie/pkg/reverie/recap"
	"github.com/cognicore/reverie/pkg/reverie/search"
	"github.com/cognicore/reverie/pkg/reverie/sentiment"
	"github.com/cognicore/reverie/pkg/reverie/store"
	"github.com/cognicore/reverie/pkg/reverie/thought"
)

// Assistant makes the same decisions as the local heuristics using a remote
// model. Any error makes the caller fall back to the local result.
type Assistant interface {
	Categorize(ctx context.Context, content string) (thought.Category, error)
	RelevanceScores(ctx context.Context, ts []thought.Thought) ([]thought.Relevance, error)
	HierarchicalClusters(ctx context.Context, ts []thought.Thought, rel []thought.Relevance) ([]cluster.Cluster, error)
	Themes(ctx context.Context, ts []thought.Thought) ([]string, error)
	RevisitCandidate(ctx context.Context, ts []thought.Thought) (thought.Thought, error)
}

// Reverie is the main journaling engine facade
type Reverie struct {
	store       store.Store
	pipeline    *ingest.Pipeline
	analyzer    *sentiment.Analyzer
	categorizer *categorize.Categorizer
	engine      *cluster.Engine
	searcher    *search.Searcher
	recaps      *recap.Generator
	assistant   Assistant
	ids         *cluster.IDSource
	metrics     *Metrics
	log         *zap.Logger
	now         func() time.Time
	windowDays  int

	// mu serialises mutations of the stored hierarchy.
	mu sync.Mutex
}

// Options configures a Reverie instance. Only Store is required.
type Options struct {
	Store       store.Store
	Pipeline    *ingest.Pipeline
	Analyzer    *sentiment.Analyzer
	Categorizer *categorize.Categorizer
	Engine      *cluster.Engine
	Searcher    *search.Searcher
	Recap       *recap.Generator
	Assistant   Assistant
	IDs         *cluster.IDSource
	Metrics     *Metrics
	Logger      *zap.Logger
	Now         func() time.Time
	// RecapWindowDays is used when Recap is called without a window.
	RecapWindowDays int
}

// New creates a Reverie instance with the given dependencies
func New(opts Options) *Reverie {
	r := &Reverie{
		store:       opts.Store,
		pipeline:    opts.Pipeline,
		analyzer:    opts.Analyzer,
		categorizer: opts.Categorizer,
		engine:      opts.Engine,
		searcher:    opts.Searcher,
		recaps:      opts.Recap,
		assistant:   opts.Assistant,
		ids:         opts.IDs,
		metrics:     opts.Metrics,
		log:         opts.Logger,
		now:         opts.Now,
		windowDays:  opts.RecapWindowDays,
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	if r.metrics == nil {
		r.metrics = NewMetrics(nil)
	}
	if r.pipeline == nil {
		r.pipeline = ingest.NewDefaultPipeline()
	}
	if r.analyzer == nil {
		r.analyzer = sentiment.NewAnalyzer(r.pipeline.Tokenizer(), nil)
	}
	if r.categorizer == nil {
		r.categorizer = categorize.New(r.pipeline.Tokenizer())
	}
	if r.ids == nil {
		r.ids = cluster.NewIDSource(nil, r.now)
	}
	if r.engine == nil {
		r.engine = cluster.New(cluster.Options{
			Pipeline: r.pipeline,
			Analyzer: r.analyzer,
			IDs:      r.ids,
			Now:      r.now,
			Logger:   r.log,
		})
	}
	if r.searcher == nil {
		r.searcher = search.New(search.Options{Tokenizer: r.pipeline.Tokenizer()})
	}
	if r.recaps == nil {
		r.recaps = recap.NewGenerator(r.analyzer, r.engine, r.now)
	}
	if r.windowDays <= 0 {
		r.windowDays = recap.DefaultWindowDays
	}
	return r
}

// Close cleanly shuts down the Reverie instance
func (r *Reverie) Close() error {
	return r.store.Close()
}

// fallback records an assistant failure that is recovered locally.
func (r *Reverie) fallback(op string, err error) {
	r.metrics.AssistantFallbacks.WithLabelValues(op).Inc()
	r.log.Warn("assistant failed, using local result", zap.String("op", op), zap.Error(err))
}

// AddThought validates and stores a new thought, then refreshes clusters.
// An empty category is filled in by Categorize. A failed refresh is logged
// and does not fail the call; the same holds for UpdateThought and
// DeleteThought.
func (r *Reverie) AddThought(ctx context.Context, content string, category thought.Category) (thought.Thought, error) {
	content, err := thought.ValidateContent(content)
	if err != nil {
		return thought.Thought{}, err
	}
	category, err = r.resolveCategory(ctx, content, category)
	if err != nil {
		return thought.Thought{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	t := thought.New(content, category, r.now())
	if err := r.store.UpsertThought(ctx, t); err != nil {
		return thought.Thought{}, err
	}
	r.log.Debug("thought added", zap.String("thought.id", t.ID), zap.String("category", string(t.Category)))
	r.refreshAfter(ctx, "add")
	return t, nil
}

// UpdateThought replaces the content of an existing thought. An empty
// category keeps the current one.
func (r *Reverie) UpdateThought(ctx context.Context, id, content string, category thought.Category) (thought.Thought, error) {
	content, err := thought.ValidateContent(content)
	if err != nil {
		return thought.Thought{}, err
	}
	if category != "" && !category.Valid() {
		return thought.Thought{}, fmt.Errorf("%w: %q", internalerr.ErrInvalidCategory, category)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.getThought(ctx, id)
	if err != nil {
		return thought.Thought{}, err
	}
	t.Content = content
	if category != "" {
		t.Category = category
	}
	t.UpdatedAt = r.now()
	if err := r.store.UpsertThought(ctx, t); err != nil {
		return thought.Thought{}, err
	}
	r.refreshAfter(ctx, "update")
	return t, nil
}

// DeleteThought removes a thought with its relevance entries and
// memberships, then refreshes clusters.
func (r *Reverie) DeleteThought(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.store.DeleteThought(ctx, id); err != nil {
		return err
	}
	r.refreshAfter(ctx, "delete")
	return nil
}

// GetThought returns a thought or ErrNotFound.
func (r *Reverie) GetThought(ctx context.Context, id string) (thought.Thought, error) {
	return r.getThought(ctx, id)
}

func (r *Reverie) getThought(ctx context.Context, id string) (thought.Thought, error) {
	t, ok, err := r.store.GetThought(ctx, id)
	if err != nil {
		return thought.Thought{}, err
	}
	if !ok {
		return thought.Thought{}, fmt.Errorf("%w: thought %s", internalerr.ErrNotFound, id)
	}
	return t, nil
}

// ListThoughts returns every thought, newest first.
func (r *Reverie) ListThoughts(ctx context.Context) ([]thought.Thought, error) {
	return r.store.ListThoughts(ctx)
}

func (r *Reverie) resolveCategory(ctx context.Context, content string, category thought.Category) (thought.Category, error) {
	if category == "" {
		return r.Categorize(ctx, content).Category, nil
	}
	if !category.Valid() {
		return "", fmt.Errorf("%w: %q", internalerr.ErrInvalidCategory, category)
	}
	return category, nil
}

// Categorize labels content. The assistant decides when configured; any
// assistant failure yields the local result.
func (r *Reverie) Categorize(ctx context.Context, content string) categorize.Result {
	if r.assistant != nil {
		cat, err := r.assistant.Categorize(ctx, content)
		if err == nil {
			return categorize.Result{
				Category:   cat,
				Confidence: 1,
				Reasoning:  "Assigned by the language model",
			}
		}
		r.fallback("categorize", err)
	}
	return r.categorizer.Categorize(content)
}

// AnalyzeSentiment scores the polarity and emotions of content.
func (r *Reverie) AnalyzeSentiment(content string) sentiment.Result {
	return r.analyzer.Analyze(content)
}

// RefreshClusters rebuilds the hierarchy from all stored thoughts and
// persists it.
func (r *Reverie) RefreshClusters(ctx context.Context) (*cluster.Hierarchy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refresh(ctx)
}

// refreshAfter rebuilds clusters after a stored mutation. The mutation
// stands when the rebuild fails; the next refresh picks it up.
func (r *Reverie) refreshAfter(ctx context.Context, op string) {
	if _, err := r.refresh(ctx); err != nil {
		r.log.Warn("cluster refresh failed", zap.String("op", op), zap.Error(err))
	}
}

func (r *Reverie) refresh(ctx context.Context) (*cluster.Hierarchy, error) {
	start := time.Now()
	thoughts, err := r.store.ListThoughts(ctx)
	if err != nil {
		return nil, err
	}

	h, rel, strategy := r.assistantHierarchy(ctx, thoughts)
	if h == nil {
		outcome := r.engine.Run(thoughts)
		rel = r.engine.Relevance(thoughts)
		h, err = cluster.Build(r.ids, outcome.Clusters, rel)
		if err != nil {
			return nil, err
		}
		strategy = string(outcome.Strategy)
		if strategy == "" {
			strategy = "none"
		}
	}

	if err := r.store.SaveHierarchy(ctx, store.Hierarchy{Clusters: h.All(), Relevance: rel}); err != nil {
		return nil, err
	}
	r.metrics.ClusterDuration.WithLabelValues(strategy).Observe(time.Since(start).Seconds())
	r.log.Info("clusters refreshed",
		zap.Int("thoughts", len(thoughts)),
		zap.Int("clusters", h.Len()),
		zap.String("strategy", strategy))
	return h, nil
}

// assistantHierarchy returns nil when no assistant is configured or its
// output is unusable.
func (r *Reverie) assistantHierarchy(ctx context.Context, thoughts []thought.Thought) (*cluster.Hierarchy, []thought.Relevance, string) {
	if r.assistant == nil || len(thoughts) < r.engine.MinClusterSize() {
		return nil, nil, ""
	}
	rel, err := r.assistant.RelevanceScores(ctx, thoughts)
	if err != nil {
		r.fallback("relevance", err)
		return nil, nil, ""
	}
	clusters, err := r.assistant.HierarchicalClusters(ctx, thoughts, rel)
	if err != nil {
		r.fallback("clusters", err)
		return nil, nil, ""
	}
	h, err := cluster.Build(r.ids, clusters, rel)
	if err == nil && h.Height() > cluster.MaxDepth {
		err = fmt.Errorf("%w: hierarchy deeper than %d levels", internalerr.ErrInvalidInput, cluster.MaxDepth)
	}
	if err == nil && h.Len() == 0 {
		err = fmt.Errorf("%w: no clusters", internalerr.ErrInvalidInput)
	}
	if err != nil {
		r.fallback("clusters", err)
		return nil, nil, ""
	}
	return h, rel, "assistant"
}

// Hierarchy loads the persisted cluster hierarchy.
func (r *Reverie) Hierarchy(ctx context.Context) (*cluster.Hierarchy, error) {
	saved, err := r.store.LoadHierarchy(ctx)
	if err != nil {
		return nil, err
	}
	return cluster.Build(r.ids, saved.Clusters, saved.Relevance)
}

// Clusters returns every cluster in insertion order.
func (r *Reverie) Clusters(ctx context.Context) ([]cluster.Cluster, error) {
	h, err := r.Hierarchy(ctx)
	if err != nil {
		return nil, err
	}
	return h.All(), nil
}

// Cluster returns one cluster or ErrNotFound.
func (r *Reverie) Cluster(ctx context.Context, id string) (cluster.Cluster, error) {
	h, err := r.Hierarchy(ctx)
	if err != nil {
		return cluster.Cluster{}, err
	}
	c, ok := h.Get(id)
	if !ok {
		return cluster.Cluster{}, fmt.Errorf("%w: cluster %s", internalerr.ErrNotFound, id)
	}
	return c, nil
}

// ThoughtsInCluster resolves the members of a cluster in membership order.
func (r *Reverie) ThoughtsInCluster(ctx context.Context, id string) ([]thought.Thought, error) {
	c, err := r.Cluster(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]thought.Thought, 0, len(c.ThoughtIDs))
	for _, tid := range c.ThoughtIDs {
		t, ok, err := r.store.GetThought(ctx, tid)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// ChildClusters returns the direct children of a cluster.
func (r *Reverie) ChildClusters(ctx context.Context, id string) ([]cluster.Cluster, error) {
	h, err := r.Hierarchy(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := h.Get(id); !ok {
		return nil, fmt.Errorf("%w: cluster %s", internalerr.ErrNotFound, id)
	}
	return h.Children(id), nil
}

// Relevance returns the stored score of a thought pair, 0 when unscored.
func (r *Reverie) Relevance(ctx context.Context, a, b string) (float64, error) {
	h, err := r.Hierarchy(ctx)
	if err != nil {
		return 0, err
	}
	return h.Relevance(a, b), nil
}

// AdjustCluster applies a manual edit, persists the hierarchy and appends
// the edit to the adjustment log.
func (r *Reverie) AdjustCluster(ctx context.Context, adj cluster.Adjustment) (cluster.Adjustment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	saved, err := r.store.LoadHierarchy(ctx)
	if err != nil {
		return adj, err
	}
	h, err := cluster.Build(r.ids, saved.Clusters, saved.Relevance)
	if err != nil {
		return adj, err
	}
	for _, tid := range adjustmentThoughts(adj) {
		if _, err := r.getThought(ctx, tid); err != nil {
			return adj, err
		}
	}
	applied, err := h.Apply(adj)
	if err != nil {
		return applied, err
	}
	if err := r.store.SaveHierarchy(ctx, store.Hierarchy{Clusters: h.All(), Relevance: saved.Relevance}); err != nil {
		return applied, err
	}
	if err := r.store.AppendAdjustment(ctx, applied); err != nil {
		return applied, err
	}
	r.log.Info("cluster adjusted",
		zap.String("cluster.id", applied.ClusterID),
		zap.String("type", string(applied.Type)))
	return applied, nil
}

func adjustmentThoughts(adj cluster.Adjustment) []string {
	switch adj.Type {
	case cluster.AdjustAddThought:
		return []string{adj.Data.ThoughtID}
	case cluster.AdjustSplit, cluster.AdjustCreateChild:
		return adj.Data.ThoughtIDs
	}
	return nil
}

// Adjustments returns the adjustment log in append order.
func (r *Reverie) Adjustments(ctx context.Context) ([]cluster.Adjustment, error) {
	return r.store.ListAdjustments(ctx)
}

// Search ranks stored thoughts against a free-text query.
func (r *Reverie) Search(ctx context.Context, query string) ([]search.Result, error) {
	thoughts, err := r.store.ListThoughts(ctx)
	if err != nil {
		return nil, err
	}
	return r.searcher.Search(query, thoughts), nil
}

// Related returns the thoughts most similar to id. limit <= 0 selects the
// searcher default.
func (r *Reverie) Related(ctx context.Context, id string, limit int) ([]search.Result, error) {
	target, err := r.getThought(ctx, id)
	if err != nil {
		return nil, err
	}
	thoughts, err := r.store.ListThoughts(ctx)
	if err != nil {
		return nil, err
	}
	return r.searcher.Related(target, thoughts, limit), nil
}

// Recap summarises the last days of thoughts (the configured window when
// days <= 0). It returns nil when the window is empty. With an assistant,
// themes and the revisit suggestion come from the model when it answers.
func (r *Reverie) Recap(ctx context.Context, days int) (*recap.WeeklyRecap, error) {
	if days <= 0 {
		days = r.windowDays
	}
	thoughts, err := r.store.ListThoughts(ctx)
	if err != nil {
		return nil, err
	}
	rc := r.recaps.Recap(thoughts, days)
	if rc == nil || r.assistant == nil {
		return rc, nil
	}

	window := r.recaps.Window(thoughts, days)
	if themes, err := r.assistant.Themes(ctx, window); err != nil {
		r.fallback("themes", err)
	} else {
		rc.TopThemes = themes
	}
	if t, err := r.assistant.RevisitCandidate(ctx, window); err != nil {
		r.fallback("revisit", err)
	} else {
		rc.SuggestedRevisit = &t
	}
	return rc, nil
}
