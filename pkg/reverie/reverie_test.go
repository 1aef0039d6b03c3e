package reverie

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cognicore/reverie/pkg/reverie/categorize"
	"github.com/cognicore/reverie/pkg/reverie/cluster"
	"github.com/cognicore/reverie/pkg/reverie/ingest"
	"github.com/cognicore/reverie/pkg/reverie/internalerr"
	"github.com/cognicore/reverie/pkg/reverie/recap"
	"github.com/cognicore/reverie/pkg/reverie/store"
	"github.com/cognicore/reverie/pkg/reverie/store/memstore"
	"github.com/cognicore/reverie/pkg/reverie/thought"
)

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

var errOffline = errors.New("assistant offline")

type fakeAssistant struct {
	category thought.Category
	err      error
	clusters func(ts []thought.Thought) []cluster.Cluster
	themes   []string
	revisit  int
}

func (f *fakeAssistant) Categorize(context.Context, string) (thought.Category, error) {
	return f.category, f.err
}

func (f *fakeAssistant) RelevanceScores(context.Context, []thought.Thought) ([]thought.Relevance, error) {
	return nil, f.err
}

func (f *fakeAssistant) HierarchicalClusters(_ context.Context, ts []thought.Thought, _ []thought.Relevance) ([]cluster.Cluster, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.clusters == nil {
		return nil, errors.New("no clusters")
	}
	return f.clusters(ts), nil
}

func (f *fakeAssistant) Themes(context.Context, []thought.Thought) ([]string, error) {
	return f.themes, f.err
}

func (f *fakeAssistant) RevisitCandidate(_ context.Context, ts []thought.Thought) (thought.Thought, error) {
	if f.err != nil {
		return thought.Thought{}, f.err
	}
	return ts[f.revisit], nil
}

type harness struct {
	r       *Reverie
	metrics *Metrics
	logs    *observer.ObservedLogs
}

func newHarness(t *testing.T, assistant Assistant) harness {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	metrics := NewMetrics(nil)
	opts := Options{
		Store:   memstore.New(),
		Logger:  zap.New(core),
		Metrics: metrics,
		Now:     func() time.Time { return testNow },
	}
	if assistant != nil {
		opts.Assistant = assistant
	}
	r := New(opts)
	t.Cleanup(func() { _ = r.Close() })
	return harness{r: r, metrics: metrics, logs: logs}
}

func (h harness) add(t *testing.T, content string, cat thought.Category) thought.Thought {
	t.Helper()
	th, err := h.r.AddThought(context.Background(), content, cat)
	require.NoError(t, err)
	return th
}

func TestAddThoughtValidation(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.r.AddThought(ctx, "   ", "")
	assert.ErrorIs(t, err, internalerr.ErrEmptyContent)
	_, err = h.r.AddThought(ctx, strings.Repeat("x", thought.MaxContentLength+1), "")
	assert.ErrorIs(t, err, internalerr.ErrContentTooLong)
	_, err = h.r.AddThought(ctx, "fine", "dream")
	assert.ErrorIs(t, err, internalerr.ErrInvalidCategory)
	assert.ErrorIs(t, err, internalerr.ErrInvalidInput)

	all, err := h.r.ListThoughts(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestAddThoughtStoresTrimmedContent(t *testing.T) {
	h := newHarness(t, nil)
	th := h.add(t, "  <b>Call</b> the plumber  ", thought.Task)

	assert.Equal(t, "Call the plumber", th.Content)
	assert.Equal(t, testNow, th.CreatedAt)
	assert.Equal(t, testNow, th.UpdatedAt)
	got, err := h.r.GetThought(context.Background(), th.ID)
	require.NoError(t, err)
	assert.Equal(t, th, got)
}

func TestAddThoughtUsesAssistantCategory(t *testing.T) {
	h := newHarness(t, &fakeAssistant{category: thought.Question, clusters: func([]thought.Thought) []cluster.Cluster { return nil }})
	th := h.add(t, "Buy milk", "")
	assert.Equal(t, thought.Question, th.Category)
}

func TestAssistantFailureFallsBackToLocalCategory(t *testing.T) {
	h := newHarness(t, &fakeAssistant{err: errOffline})
	content := "I need to finish the report by Friday"
	th := h.add(t, content, "")

	local := categorize.New(ingest.NewDefaultTokenizer()).Categorize(content)
	assert.Equal(t, local.Category, th.Category)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.AssistantFallbacks.WithLabelValues("categorize")))

	warns := h.logs.FilterLevelExact(zapcore.WarnLevel).FilterField(zap.String("op", "categorize")).All()
	require.Len(t, warns, 1)
	assert.Equal(t, errOffline.Error(), warns[0].ContextMap()["error"])
}

func TestCategorizeLocal(t *testing.T) {
	h := newHarness(t, nil)
	res := h.r.Categorize(context.Background(), "What should I cook tonight?")
	assert.True(t, res.Category.Valid())
	assert.NotEmpty(t, res.Reasoning)
}

func TestRefreshClustersLocal(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	a := h.add(t, "Stressed about the client deadline", thought.Task)
	b := h.add(t, "The project deadline is making me anxious", thought.Task)

	clusters, err := h.r.Clusters(ctx)
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, clusters[0].ThoughtIDs)
	assert.Equal(t, "Deadline", clusters[0].Name)

	members, err := h.r.ThoughtsInCluster(ctx, clusters[0].ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, thought.IDs(members))

	score, err := h.r.Relevance(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.32, score, 1e-9)
	score, err = h.r.Relevance(ctx, a.ID, "nobody")
	require.NoError(t, err)
	assert.Zero(t, score)

	children, err := h.r.ChildClusters(ctx, clusters[0].ID)
	require.NoError(t, err)
	assert.Empty(t, children)
	_, err = h.r.Cluster(ctx, "missing")
	assert.ErrorIs(t, err, internalerr.ErrNotFound)
	_, err = h.r.ThoughtsInCluster(ctx, "missing")
	assert.ErrorIs(t, err, internalerr.ErrNotFound)
}

func TestDeleteThoughtRefreshesClusters(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	a := h.add(t, "Stressed about the client deadline", thought.Task)
	h.add(t, "The project deadline is making me anxious", thought.Task)

	require.NoError(t, h.r.DeleteThought(ctx, a.ID))
	clusters, err := h.r.Clusters(ctx)
	require.NoError(t, err)
	assert.Empty(t, clusters)
	assert.ErrorIs(t, h.r.DeleteThought(ctx, a.ID), internalerr.ErrNotFound)
}

var errDiskFull = errors.New("disk full")

// brokenHierarchyStore keeps thoughts but cannot save clusters.
type brokenHierarchyStore struct {
	*memstore.Store
}

func (brokenHierarchyStore) SaveHierarchy(context.Context, store.Hierarchy) error {
	return errDiskFull
}

func TestMutationsSurviveFailedRefresh(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	r := New(Options{
		Store:  brokenHierarchyStore{memstore.New()},
		Logger: zap.New(core),
		Now:    func() time.Time { return testNow },
	})
	ctx := context.Background()

	th, err := r.AddThought(ctx, "Stressed about the client deadline", thought.Task)
	require.NoError(t, err)
	_, err = r.GetThought(ctx, th.ID)
	require.NoError(t, err)

	updated, err := r.UpdateThought(ctx, th.ID, "Client deadline moved to Monday", "")
	require.NoError(t, err)
	assert.Equal(t, "Client deadline moved to Monday", updated.Content)

	require.NoError(t, r.DeleteThought(ctx, th.ID))
	_, err = r.GetThought(ctx, th.ID)
	assert.ErrorIs(t, err, internalerr.ErrNotFound)

	_, err = r.RefreshClusters(ctx)
	assert.ErrorIs(t, err, errDiskFull)

	warns := logs.FilterMessage("cluster refresh failed").All()
	require.Len(t, warns, 3)
	for i, op := range []string{"add", "update", "delete"} {
		assert.Equal(t, op, warns[i].ContextMap()["op"])
		assert.Equal(t, errDiskFull.Error(), warns[i].ContextMap()["error"])
	}
}

func TestUpdateThought(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	th := h.add(t, "Plan the garden", thought.Idea)

	updated, err := h.r.UpdateThought(ctx, th.ID, "Plan the vegetable garden", "")
	require.NoError(t, err)
	assert.Equal(t, "Plan the vegetable garden", updated.Content)
	assert.Equal(t, thought.Idea, updated.Category)

	updated, err = h.r.UpdateThought(ctx, th.ID, "Plan the vegetable garden", thought.Task)
	require.NoError(t, err)
	assert.Equal(t, thought.Task, updated.Category)

	_, err = h.r.UpdateThought(ctx, "missing", "text", "")
	assert.ErrorIs(t, err, internalerr.ErrNotFound)
	_, err = h.r.UpdateThought(ctx, th.ID, "", "")
	assert.ErrorIs(t, err, internalerr.ErrEmptyContent)
}

func TestAssistantHierarchy(t *testing.T) {
	fake := &fakeAssistant{
		category: thought.Task,
		clusters: func(ts []thought.Thought) []cluster.Cluster {
			return []cluster.Cluster{
				{ID: "work", Name: "Work", ThoughtIDs: thought.IDs(ts)},
				{ID: "work-1", Name: "Deadlines", ThoughtIDs: thought.IDs(ts)[:1], ParentID: "work"},
			}
		},
	}
	h := newHarness(t, fake)
	ctx := context.Background()
	h.add(t, "Stressed about the client deadline", thought.Task)
	h.add(t, "The project deadline is making me anxious", thought.Task)

	clusters, err := h.r.Clusters(ctx)
	require.NoError(t, err)
	require.Len(t, clusters, 2)
	children, err := h.r.ChildClusters(ctx, "work")
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "Deadlines", children[0].Name)
	assert.Zero(t, testutil.ToFloat64(h.metrics.AssistantFallbacks.WithLabelValues("clusters")))
}

func TestAssistantHierarchyTooDeepFallsBack(t *testing.T) {
	fake := &fakeAssistant{
		category: thought.Task,
		clusters: func(ts []thought.Thought) []cluster.Cluster {
			ids := thought.IDs(ts)
			return []cluster.Cluster{
				{ID: "l1", Name: "One", ThoughtIDs: ids},
				{ID: "l2", Name: "Two", ThoughtIDs: ids, ParentID: "l1"},
				{ID: "l3", Name: "Three", ThoughtIDs: ids, ParentID: "l2"},
			}
		},
	}
	h := newHarness(t, fake)
	h.add(t, "Stressed about the client deadline", thought.Task)
	h.add(t, "The project deadline is making me anxious", thought.Task)

	clusters, err := h.r.Clusters(context.Background())
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assert.Equal(t, "Deadline", clusters[0].Name)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.AssistantFallbacks.WithLabelValues("clusters")))
}

func TestAdjustCluster(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.add(t, "Stressed about the client deadline", thought.Task)
	h.add(t, "The project deadline is making me anxious", thought.Task)
	clusters, err := h.r.Clusters(ctx)
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	id := clusters[0].ID

	applied, err := h.r.AdjustCluster(ctx, cluster.Adjustment{
		ClusterID: id,
		Type:      cluster.AdjustRename,
		Data:      cluster.AdjustmentData{Name: "Crunch time"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, applied.ID)
	assert.Equal(t, testNow, applied.Timestamp)

	c, err := h.r.Cluster(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Crunch time", c.Name)
	assert.True(t, c.IsUserModified)

	log, err := h.r.Adjustments(ctx)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, applied.ID, log[0].ID)

	_, err = h.r.AdjustCluster(ctx, cluster.Adjustment{
		ClusterID: id,
		Type:      cluster.AdjustAddThought,
		Data:      cluster.AdjustmentData{ThoughtID: "ghost"},
	})
	assert.ErrorIs(t, err, internalerr.ErrNotFound)
	_, err = h.r.AdjustCluster(ctx, cluster.Adjustment{ClusterID: "missing", Type: cluster.AdjustRename, Data: cluster.AdjustmentData{Name: "x"}})
	assert.ErrorIs(t, err, internalerr.ErrNotFound)

	log, err = h.r.Adjustments(ctx)
	require.NoError(t, err)
	assert.Len(t, log, 1)
}

func TestSearchAndRelated(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	coffee := h.add(t, "Morning coffee tastes great today", thought.Observation)
	twin := h.add(t, "Morning coffee tastes great today", thought.Observation)
	client := h.add(t, "Stressed about the client deadline", thought.Task)
	h.add(t, "The project deadline is making me anxious", thought.Task)
	h.add(t, "Buy milk", thought.Task)

	results, err := h.r.Search(ctx, "client")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, client.ID, results[0].Thought.ID)

	related, err := h.r.Related(ctx, coffee.ID, 0)
	require.NoError(t, err)
	require.NotEmpty(t, related)
	assert.Equal(t, twin.ID, related[0].Thought.ID)
	assert.InDelta(t, 1.0, related[0].Score, 1e-9)
	for _, res := range related {
		assert.NotEqual(t, coffee.ID, res.Thought.ID)
	}

	_, err = h.r.Related(ctx, "missing", 0)
	assert.ErrorIs(t, err, internalerr.ErrNotFound)
}

func TestRecapLocal(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	rc, err := h.r.Recap(ctx, 0)
	require.NoError(t, err)
	assert.Nil(t, rc)

	h.add(t, "Stressed about the client deadline", thought.Task)
	h.add(t, "The project deadline is making me anxious", thought.Task)
	rc, err = h.r.Recap(ctx, 0)
	require.NoError(t, err)
	require.NotNil(t, rc)
	assert.Equal(t, 2, rc.ThoughtCount)
	assert.Equal(t, []string{"task"}, rc.TopThemes)
	assert.Equal(t, testNow.AddDate(0, 0, -recap.DefaultWindowDays), rc.WeekStarting)
	assert.Equal(t, 1, rc.ClusterCount)
	require.NotNil(t, rc.SuggestedRevisit)
}

func TestRecapWithAssistant(t *testing.T) {
	fake := &fakeAssistant{category: thought.Task, themes: []string{"Work pressure"}, revisit: 1}
	h := newHarness(t, fake)
	ctx := context.Background()
	h.add(t, "Stressed about the client deadline", thought.Task)
	h.add(t, "The project deadline is making me anxious", thought.Task)
	all, err := h.r.ListThoughts(ctx)
	require.NoError(t, err)

	rc, err := h.r.Recap(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, rc)
	assert.Equal(t, []string{"Work pressure"}, rc.TopThemes)
	assert.Equal(t, all[1].ID, rc.SuggestedRevisit.ID)

	fake.err = errOffline
	rc, err = h.r.Recap(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"task"}, rc.TopThemes)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.AssistantFallbacks.WithLabelValues("themes")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.AssistantFallbacks.WithLabelValues("revisit")))
}

func TestExportImport(t *testing.T) {
	src := newHarness(t, nil)
	ctx := context.Background()
	src.add(t, "Stressed about the client deadline", thought.Task)
	src.add(t, "The project deadline is making me anxious", thought.Task)
	clusters, err := src.r.Clusters(ctx)
	require.NoError(t, err)
	_, err = src.r.AdjustCluster(ctx, cluster.Adjustment{
		ClusterID: clusters[0].ID,
		Type:      cluster.AdjustRename,
		Data:      cluster.AdjustmentData{Name: "Crunch"},
	})
	require.NoError(t, err)

	dump, err := src.r.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, testNow, dump.ExportedAt)
	assert.Len(t, dump.Thoughts, 2)
	assert.Len(t, dump.Adjustments, 1)

	dst := newHarness(t, nil)
	require.NoError(t, dst.r.Import(ctx, dump))
	thoughts, err := dst.r.ListThoughts(ctx)
	require.NoError(t, err)
	assert.Equal(t, dump.Thoughts, thoughts)
	got, err := dst.r.Clusters(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Crunch", got[0].Name)
	score, err := dst.r.Relevance(ctx, thoughts[0].ID, thoughts[1].ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.32, score, 1e-9)
}

func TestImportRejectsInvalidThought(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	kept := h.add(t, "Keep me", thought.Memory)

	bad := Export{}
	bad.Thoughts = []thought.Thought{
		{ID: "x", Content: "fine", Category: thought.Idea, CreatedAt: testNow},
		{ID: "y", Content: "  ", Category: thought.Idea, CreatedAt: testNow},
	}
	assert.ErrorIs(t, h.r.Import(ctx, bad), internalerr.ErrEmptyContent)

	bad.Thoughts = []thought.Thought{{ID: "x", Content: "fine", Category: "dream"}}
	assert.ErrorIs(t, h.r.Import(ctx, bad), internalerr.ErrInvalidCategory)

	bad.Thoughts = []thought.Thought{
		{ID: "x", Content: "fine", Category: thought.Idea},
		{ID: "x", Content: "again", Category: thought.Idea},
	}
	assert.ErrorIs(t, h.r.Import(ctx, bad), internalerr.ErrDuplicate)

	all, err := h.r.ListThoughts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, kept.ID, all[0].ID)
}
