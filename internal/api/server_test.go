package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/reverie/pkg/reverie"
	"github.com/cognicore/reverie/pkg/reverie/cluster"
	"github.com/cognicore/reverie/pkg/reverie/recap"
	"github.com/cognicore/reverie/pkg/reverie/search"
	"github.com/cognicore/reverie/pkg/reverie/sentiment"
	"github.com/cognicore/reverie/pkg/reverie/store/memstore"
	"github.com/cognicore/reverie/pkg/reverie/thought"
)

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*httptest.Server, *prometheus.Registry) {
	t.Helper()
	svc := reverie.New(reverie.Options{
		Store: memstore.New(),
		Now:   func() time.Time { return testNow },
	})
	reg := prometheus.NewRegistry()
	srv := httptest.NewServer(NewServer(Options{Service: svc, Registry: reg}))
	t.Cleanup(srv.Close)
	return srv, reg
}

func do(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func addThought(t *testing.T, base, content string, cat thought.Category) thought.Thought {
	t.Helper()
	resp := do(t, http.MethodPost, base+"/api/thoughts", map[string]any{"content": content, "category": cat})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[thought.Thought](t, resp)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := do(t, http.MethodGet, srv.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Content-Type"))
	assert.Equal(t, map[string]string{"status": "ok"}, decode[map[string]string](t, resp))
}

func TestThoughtLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)
	created := addThought(t, srv.URL, "Plan the garden", thought.Idea)
	assert.Equal(t, "Plan the garden", created.Content)
	assert.Equal(t, testNow, created.CreatedAt)

	resp := do(t, http.MethodGet, srv.URL+"/api/thoughts/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, created.ID, decode[thought.Thought](t, resp).ID)

	resp = do(t, http.MethodPut, srv.URL+"/api/thoughts/"+created.ID, map[string]any{"content": "Plan the vegetable garden"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Plan the vegetable garden", decode[thought.Thought](t, resp).Content)

	resp = do(t, http.MethodGet, srv.URL+"/api/thoughts", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]thought.Thought](t, resp), 1)

	resp = do(t, http.MethodDelete, srv.URL+"/api/thoughts/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = do(t, http.MethodGet, srv.URL+"/api/thoughts/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, decode[errorResponse](t, resp).Error, "not found")
}

func TestErrorMapping(t *testing.T) {
	srv, _ := newTestServer(t)
	cases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"empty content", http.MethodPost, "/api/thoughts", map[string]string{"content": "  "}, http.StatusBadRequest},
		{"too long", http.MethodPost, "/api/thoughts", map[string]string{"content": strings.Repeat("a", 10001)}, http.StatusBadRequest},
		{"bad category", http.MethodPost, "/api/thoughts", map[string]string{"content": "ok", "category": "dream"}, http.StatusBadRequest},
		{"bad json", http.MethodPost, "/api/thoughts", "not an object", http.StatusBadRequest},
		{"missing thought", http.MethodPut, "/api/thoughts/nope", map[string]string{"content": "x"}, http.StatusNotFound},
		{"missing cluster", http.MethodGet, "/api/clusters/nope", nil, http.StatusNotFound},
		{"bad adjustment", http.MethodPost, "/api/clusters/nope/adjust", map[string]string{"type": "explode"}, http.StatusBadRequest},
		{"bad days", http.MethodGet, "/api/recap?days=soon", nil, http.StatusBadRequest},
		{"relevance needs ids", http.MethodGet, "/api/relevance?a=x", nil, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := do(t, tc.method, srv.URL+tc.path, tc.body)
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.NotEmpty(t, decode[errorResponse](t, resp).Error)
		})
	}
}

func TestAnalyzeAndCategorize(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api/analyze", map[string]string{"content": "I am so happy and grateful today"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	mood := decode[sentiment.Result](t, resp)
	assert.Greater(t, mood.Score, 0.0)

	resp = do(t, http.MethodPost, srv.URL+"/api/categorize", map[string]string{"content": "What should I cook tonight?"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[struct {
		Category thought.Category `json:"category"`
	}](t, resp).Category.Valid())

	resp = do(t, http.MethodPost, srv.URL+"/api/analyze", map[string]string{"content": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestClusterRoutes(t *testing.T) {
	srv, _ := newTestServer(t)
	a := addThought(t, srv.URL, "Stressed about the client deadline", thought.Task)
	b := addThought(t, srv.URL, "The project deadline is making me anxious", thought.Task)

	resp := do(t, http.MethodGet, srv.URL+"/api/clusters", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	clusters := decode[[]cluster.Cluster](t, resp)
	require.Len(t, clusters, 1)
	id := clusters[0].ID

	resp = do(t, http.MethodGet, srv.URL+"/api/clusters/"+id+"/thoughts", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, thought.IDs(decode[[]thought.Thought](t, resp)))

	resp = do(t, http.MethodGet, srv.URL+"/api/clusters/"+id+"/children", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]cluster.Cluster](t, resp))

	resp = do(t, http.MethodPost, srv.URL+"/api/clusters/"+id+"/adjust", map[string]any{
		"type": "rename_cluster",
		"data": map[string]string{"name": "Crunch"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, cluster.AdjustRename, decode[cluster.Adjustment](t, resp).Type)

	resp = do(t, http.MethodGet, srv.URL+"/api/clusters/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[cluster.Cluster](t, resp)
	assert.Equal(t, "Crunch", got.Name)
	assert.True(t, got.IsUserModified)

	resp = do(t, http.MethodGet, srv.URL+"/api/relevance?a="+a.ID+"&b="+b.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 0.32, decode[map[string]any](t, resp)["score"], 1e-9)

	resp = do(t, http.MethodPost, srv.URL+"/api/clusters/refresh", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSearchRecapExport(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/api/recap", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	client := addThought(t, srv.URL, "Stressed about the client deadline", thought.Task)
	addThought(t, srv.URL, "The project deadline is making me anxious", thought.Task)
	addThought(t, srv.URL, "Buy milk", thought.Task)

	resp = do(t, http.MethodGet, srv.URL+"/api/search?q=client", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	results := decode[[]search.Result](t, resp)
	require.Len(t, results, 1)
	assert.Equal(t, client.ID, results[0].Thought.ID)

	resp = do(t, http.MethodGet, srv.URL+"/api/search?q=", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]search.Result](t, resp))

	resp = do(t, http.MethodGet, srv.URL+"/api/thoughts/"+client.ID+"/related?limit=2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/api/recap?days=7", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rc := decode[recap.WeeklyRecap](t, resp)
	assert.Equal(t, 3, rc.ThoughtCount)
	assert.Equal(t, []string{"task"}, rc.TopThemes)

	resp = do(t, http.MethodGet, srv.URL+"/api/export", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	dump := decode[reverie.Export](t, resp)
	assert.Len(t, dump.Thoughts, 3)

	other, _ := newTestServer(t)
	resp = do(t, http.MethodPost, other.URL+"/api/import", dump)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = do(t, http.MethodGet, other.URL+"/api/thoughts", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]thought.Thought](t, resp), 3)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, reg := newTestServer(t)
	do(t, http.MethodGet, srv.URL+"/health", nil)
	do(t, http.MethodGet, srv.URL+"/api/clusters/nope", nil)

	families, err := reg.Gather()
	require.NoError(t, err)
	counts := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "reverie_http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			counts[labels["route"]+" "+labels["status"]] += m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, 1.0, counts["/health 200"])
	assert.Equal(t, 1.0, counts["/api/clusters/{id} 404"])

	resp := do(t, http.MethodGet, srv.URL+"/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "reverie_http_request_duration_seconds")
}
