package cluster

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/reverie/pkg/reverie/sentiment"
	"github.com/cognicore/reverie/pkg/reverie/thought"
)

var day1 = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return day1 }

func mk(id, content string, cat thought.Category, at time.Time) thought.Thought {
	return thought.Thought{ID: id, Content: content, Category: cat, CreatedAt: at, UpdatedAt: at}
}

func newTestEngine(opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = fixedNow
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return New(opts)
}

func TestClusterTooFewThoughts(t *testing.T) {
	e := newTestEngine(Options{})
	assert.Empty(t, e.Cluster(nil))
	assert.Empty(t, e.Cluster([]thought.Thought{mk("a", "Lonely thought about coffee", thought.Idea, day1)}))
}

func TestClusterSharedDeadline(t *testing.T) {
	e := newTestEngine(Options{})
	ts := []thought.Thought{
		mk("a", "Stressed about the client deadline", thought.Task, day1),
		mk("b", "The project deadline is making me anxious", thought.Task, day1.AddDate(0, 0, 1)),
	}

	out := e.Run(ts)
	assert.Equal(t, StrategyContent, out.Strategy)
	assert.InDelta(t, 0.79, out.Quality, 1e-9)
	require.Len(t, out.Clusters, 1)

	c := out.Clusters[0]
	assert.Equal(t, []string{"a", "b"}, c.ThoughtIDs)
	assert.Equal(t, "Deadline", c.Name)
	assert.Equal(t, []string{"deadline"}, c.Keywords)
	assert.Equal(t, "A group of 2 thoughts primarily about task with a concerning tone. "+
		"These thoughts were clustered based on semantic similarity and shared themes.", c.Description)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, day1, c.CreatedAt)
	assert.Empty(t, c.ParentID)
	assert.False(t, c.IsUserModified)
}

func TestClusterNearIdenticalPair(t *testing.T) {
	e := newTestEngine(Options{})
	ts := []thought.Thought{
		mk("a", "Morning coffee tastes great today", thought.Observation, day1),
		mk("b", "Morning coffee tastes great today", thought.Observation, day1),
	}

	clusters := e.Cluster(ts)
	require.Len(t, clusters, 1)
	assert.Equal(t, []string{"a", "b"}, clusters[0].ThoughtIDs)
	assert.Equal(t, "Morning Coffee Tastes Great & Coffee Tastes Great Today", clusters[0].Name)
	assert.Len(t, clusters[0].Keywords, 5)
}

func pairedThoughts() []thought.Thought {
	texts := []string{"alpha bravo charlie", "delta echo foxtrot", "golf hotel india", "juliet kilo lima"}
	var ts []thought.Thought
	for i, text := range texts {
		for k := 0; k < 2; k++ {
			ts = append(ts, mk(fmt.Sprintf("t%d", 2*i+k), text, thought.Idea, day1))
		}
	}
	return ts
}

func TestClusterTruncatesToMaxClusters(t *testing.T) {
	e := newTestEngine(Options{MaxClusters: 2})
	out := e.Run(pairedThoughts())

	assert.Equal(t, StrategyContent, out.Strategy)
	assert.InDelta(t, 1.0, out.Quality, 1e-9)
	require.Len(t, out.Clusters, 2)
	assert.Equal(t, []string{"t0", "t1"}, out.Clusters[0].ThoughtIDs)
	assert.Equal(t, []string{"t2", "t3"}, out.Clusters[1].ThoughtIDs)
	assert.NotEqual(t, out.Clusters[0].ID, out.Clusters[1].ID)
}

func TestClusterPartitionAndDeterminism(t *testing.T) {
	e := newTestEngine(Options{})
	ts := pairedThoughts()

	first := e.Run(ts)
	second := e.Run(ts)
	require.Equal(t, first.Strategy, second.Strategy)
	require.Len(t, second.Clusters, len(first.Clusters))

	seen := make(map[string]bool)
	for i, c := range first.Clusters {
		assert.Equal(t, c.ThoughtIDs, second.Clusters[i].ThoughtIDs)
		assert.Equal(t, c.Name, second.Clusters[i].Name)
		assert.Equal(t, c.Keywords, second.Clusters[i].Keywords)
		for _, id := range c.ThoughtIDs {
			assert.False(t, seen[id], "thought %s in two clusters", id)
			seen[id] = true
		}
	}
	assert.Len(t, first.Clusters, 4)
}

func TestAgglomerate(t *testing.T) {
	sim := [][]float64{
		{1, .9, .1, 0},
		{.9, 1, .2, .1},
		{.1, .2, 1, .8},
		{0, .1, .8, 1},
	}
	assert.Equal(t, [][]int{{0, 1}, {2, 3}}, agglomerate(sim, 0.25, 2))
	assert.Empty(t, agglomerate(sim, 0.25, 3))
	assert.Equal(t, [][]int{{0, 1, 2, 3}}, agglomerate(sim, 0.05, 2))
}

func TestQuality(t *testing.T) {
	assert.Zero(t, quality(nil, 5))
	assert.InDelta(t, 1.0, quality([][]int{{0, 1}, {2, 3}}, 4), 1e-9)
	assert.InDelta(t, 0.59, quality([][]int{{0, 1}}, 4), 1e-9)
	assert.InDelta(t, 0.3+0.3*(1-1.0/9)+0.4, quality([][]int{{0, 1, 2, 3}, {4, 5}}, 6), 1e-9)

	seven := make([][]int, 7)
	for i := range seven {
		seven[i] = []int{2 * i, 2*i + 1}
	}
	assert.InDelta(t, 0.15+0.3+0.4, quality(seven, 14), 1e-9)
}

func TestContentFallsBackToCategory(t *testing.T) {
	e := newTestEngine(Options{})
	ts := []thought.Thought{
		mk("a", "Buy milk", thought.Task, day1),
		mk("b", "Call mom", thought.Task, day1),
		mk("c", "Quantum physics lecture", thought.Idea, day1),
	}
	b := e.newBatch(ts)
	assert.Equal(t, [][]int{{0, 1}}, b.byContent(2))
}

func TestTimeStrategyUsesLocation(t *testing.T) {
	plus2 := time.FixedZone("UTC+2", 2*60*60)
	late := time.Date(2024, 3, 4, 23, 30, 0, 0, time.UTC)
	ts := []thought.Thought{
		mk("a", "one", thought.Idea, day1),
		mk("b", "two", thought.Idea, late),
		mk("c", "three", thought.Idea, day1.AddDate(0, 0, 1)),
	}

	utc := newTestEngine(Options{}).newBatch(ts)
	assert.Equal(t, [][]int{{0, 1}}, utc.byTime(2))

	shifted := newTestEngine(Options{Location: plus2}).newBatch(ts)
	assert.Equal(t, [][]int{{1, 2}}, shifted.byTime(2))
}

func TestEmotionKey(t *testing.T) {
	love := []sentiment.EmotionScore{{Emotion: sentiment.Love, Intensity: 0.5}}
	assert.Equal(t, "positive-love", emotionKey(sentiment.Result{Score: 0.5, Magnitude: 0.5, Emotions: love}))
	assert.Equal(t, "negative", emotionKey(sentiment.Result{Score: -0.5, Magnitude: 0.5}))
	assert.Equal(t, "neutral", emotionKey(sentiment.Result{Score: 0.2, Magnitude: 0.2}))
	assert.Equal(t, "intense", emotionKey(sentiment.Result{Magnitude: 0.7}))
}

func TestEmotionStrategyGroupsAnxiety(t *testing.T) {
	e := newTestEngine(Options{})
	ts := []thought.Thought{
		mk("a", "Stressed about the client deadline", thought.Task, day1),
		mk("b", "Lovely walk in the park", thought.Idea, day1),
		mk("c", "The project deadline is making me anxious", thought.Task, day1),
	}
	b := e.newBatch(ts)
	assert.Equal(t, [][]int{{0, 2}}, b.byEmotion(2))
}

func TestFirstMultiGroup(t *testing.T) {
	one := [][]int{{0, 1}}
	two := [][]int{{0, 1}, {2, 3}}
	other := [][]int{{0, 2}, {1, 3}}
	tests := []struct {
		name    string
		content [][]int
		emotion [][]int
		time    [][]int
		want    [][]int
	}{
		{"content wins", two, other, other, two},
		{"emotion after thin content", one, two, other, two},
		{"time after thin emotion", one, one, two, two},
		{"time after empty emotion", nil, nil, other, other},
		{"nothing reaches two", one, one, one, one},
		{"all empty", nil, nil, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := firstMultiGroup(tt.content,
				func() [][]int { return tt.emotion },
				func() [][]int { return tt.time },
			)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFirstMultiGroupSkipsFallbacks(t *testing.T) {
	called := false
	got := firstMultiGroup([][]int{{0, 1}, {2, 3}}, func() [][]int {
		called = true
		return nil
	})
	assert.Len(t, got, 2)
	assert.False(t, called)
}

func TestHybridFallsThroughToTime(t *testing.T) {
	e := newTestEngine(Options{})
	day3 := day1.AddDate(0, 0, 2)
	ts := []thought.Thought{
		mk("a", "Stressed about the client deadline", thought.Task, day1),
		mk("b", "The project deadline is making me anxious", thought.Task, day1),
		mk("c", "So grateful for this wonderful sunny morning", thought.Feeling, day3),
		mk("d", "Sad and hopeless tonight", thought.Feeling, day3),
	}
	b := e.newBatch(ts)
	require.Equal(t, [][]int{{0, 1}}, b.byContent(2))
	require.Equal(t, [][]int{{0, 1}}, b.byEmotion(2))
	require.Equal(t, [][]int{{0, 1}, {2, 3}}, b.byTime(2))

	assert.Equal(t, [][]int{{0, 1}, {2, 3}}, b.hybrid(2))
}

func TestEnrichmentFallbackNames(t *testing.T) {
	e := newTestEngine(Options{})

	anxious := []thought.Thought{
		mk("a", "Panic and worry, cant sleep", thought.Feeling, day1),
		mk("b", "Nervous tension, racing thoughts", thought.Feeling, day1),
	}
	b := e.newBatch(anxious)
	assert.Equal(t, "Anxiety Thoughts", b.enrich([]int{0, 1}).Name)

	plain := []thought.Thought{
		mk("a", "Buy milk", thought.Task, day1),
		mk("b", "Call mom", thought.Task, day1),
		mk("c", "Read book", thought.Idea, day1),
	}
	b = e.newBatch(plain)
	c := b.enrich([]int{0, 1, 2})
	assert.Equal(t, "Task Collection", c.Name)
	assert.Empty(t, c.Keywords)
	assert.Contains(t, c.Description, "primarily about task and idea with a neutral tone")
}

func TestRelevance(t *testing.T) {
	e := newTestEngine(Options{})
	ts := []thought.Thought{
		mk("a", "Stressed about the client deadline", thought.Task, day1),
		mk("b", "The project deadline is making me anxious", thought.Task, day1),
		mk("c", "Buy milk", thought.Task, day1),
	}

	rel := e.Relevance(ts)
	require.Len(t, rel, 1)
	assert.Equal(t, "a", rel[0].ThoughtID1)
	assert.Equal(t, "b", rel[0].ThoughtID2)
	assert.InDelta(t, 0.32, rel[0].Score, 1e-9)
	assert.Equal(t, "Shared concepts: deadline", rel[0].Reason)
}

func TestIDSourceMonotonic(t *testing.T) {
	ids := NewIDSource(nil, fixedNow)
	a, b := ids.New(), ids.New()
	assert.Len(t, a, 26)
	assert.Less(t, a, b)
}
