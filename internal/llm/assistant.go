package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cognicore/reverie/pkg/reverie/cluster"
	"github.com/cognicore/reverie/pkg/reverie/thought"
)

const (
	maxPromptContent = 300
	minScore         = 0.1
	maxScore         = 1.0
	maxThemes        = 5
)

// Assistant asks a chat model for the decisions the local engine makes.
// Every method returns an error rather than a partial result.
type Assistant struct {
	client *Client
	now    func() time.Time
}

// NewAssistant wraps c. now stamps generated clusters (time.Now when nil).
func NewAssistant(c *Client, now func() time.Time) *Assistant {
	if now == nil {
		now = time.Now
	}
	return &Assistant{client: c, now: now}
}

type promptThought struct {
	ID        string           `json:"id"`
	Content   string           `json:"content"`
	Category  thought.Category `json:"category"`
	CreatedAt string           `json:"createdAt,omitempty"`
}

func compact(ts []thought.Thought) []promptThought {
	out := make([]promptThought, len(ts))
	for i, t := range ts {
		content := t.Content
		if r := []rune(content); len(r) > maxPromptContent {
			content = string(r[:maxPromptContent]) + "..."
		}
		out[i] = promptThought{ID: t.ID, Content: content, Category: t.Category}
	}
	return out
}

func mustJSON(v any) string {
	raw, _ := json.Marshal(v)
	return string(raw)
}

// Categorize labels content with one of the fixed categories.
func (a *Assistant) Categorize(ctx context.Context, content string) (thought.Category, error) {
	system := "You categorize thoughts into exactly one of these categories: " + categoryList() +
		". Respond with ONLY the category name, nothing else."
	user := fmt.Sprintf("Categorize this thought into exactly one category (%s): %q", categoryList(), content)
	reply, err := a.client.Chat(ctx, system, user, 0.3)
	if err != nil {
		return "", err
	}
	cat, err := thought.ParseCategory(strings.Trim(strings.TrimSpace(reply), ".\"'"))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return cat, nil
}

func categoryList() string {
	names := make([]string, len(thought.Categories))
	for i, c := range thought.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

// RelevanceScores asks which pairs of thoughts are related. Pairs naming
// unknown thoughts are dropped and scores are clamped into [0.1, 1].
func (a *Assistant) RelevanceScores(ctx context.Context, ts []thought.Thought) ([]thought.Relevance, error) {
	if len(ts) < 2 {
		return nil, nil
	}
	system := "You analyze the semantic relationships between thoughts and assign a relevance score to related pairs."
	user := "Analyze these thoughts and determine which are related.\n\nThoughts: " + mustJSON(compact(ts)) +
		"\n\nFor each meaningfully related pair assign a score between 0.1 (slightly related) and 1.0 (extremely closely related)." +
		"\nRespond with a JSON array of objects with \"thoughtId1\", \"thoughtId2\", \"score\" and \"reason\"." +
		"\nReturn ONLY the JSON array and include only pairs scoring 0.2 or higher."
	reply, err := a.client.Chat(ctx, system, user, 0.3)
	if err != nil {
		return nil, err
	}
	var raw []thought.Relevance
	if err := json.Unmarshal([]byte(stripCodeFences(reply)), &raw); err != nil {
		return nil, fmt.Errorf("%w: relevance: %v", ErrMalformed, err)
	}
	known := make(map[string]bool, len(ts))
	for _, t := range ts {
		known[t.ID] = true
	}
	seen := make(map[string]bool, len(raw))
	out := make([]thought.Relevance, 0, len(raw))
	for _, r := range raw {
		key := r.Key()
		if key == "" || !known[r.ThoughtID1] || !known[r.ThoughtID2] || seen[key] {
			continue
		}
		seen[key] = true
		r.Score = clamp(r.Score, minScore, maxScore)
		out = append(out, r)
	}
	return out, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

type replyCluster struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	ThoughtIDs  []string `json:"thoughtIds"`
	ChildrenIDs []string `json:"childrenIds"`
	ParentID    string   `json:"parentId"`
	Keywords    []string `json:"keywords"`
	Description string   `json:"description"`
}

type replyHierarchy struct {
	RootClusters []replyCluster          `json:"rootClusters"`
	AllClusters  map[string]replyCluster `json:"allClusters"`
}

// HierarchicalClusters asks for a two-level cluster tree. The result is
// flattened with parent pointers; roots come first in reply order. Callers
// validate the shape with cluster.Build.
func (a *Assistant) HierarchicalClusters(ctx context.Context, ts []thought.Thought, rel []thought.Relevance) ([]cluster.Cluster, error) {
	if len(ts) < 2 {
		return nil, nil
	}
	system := "You organize thoughts into a hierarchical cluster structure of main themes (parent clusters) and sub-themes (child clusters). " +
		"Use the relevance scores between thoughts to inform your decisions."
	user := "Organize these thoughts into a hierarchical cluster structure.\n\nThoughts: " + mustJSON(compact(ts)) +
		"\n\nRelevance Scores: " + mustJSON(rel) +
		"\n\nRespond with a JSON object {\"rootClusters\": [...], \"allClusters\": {id: cluster}} where each cluster has" +
		" \"id\", \"name\", \"thoughtIds\", \"childrenIds\", \"parentId\", \"keywords\" and \"description\"." +
		"\nEach cluster should hold at least 2 thoughts. Limit the hierarchy to 2 levels. Return ONLY the JSON object."
	reply, err := a.client.Chat(ctx, system, user, 0.4)
	if err != nil {
		return nil, err
	}
	var raw replyHierarchy
	if err := json.Unmarshal([]byte(stripCodeFences(reply)), &raw); err != nil {
		return nil, fmt.Errorf("%w: clusters: %v", ErrMalformed, err)
	}
	known := make(map[string]bool, len(ts))
	for _, t := range ts {
		known[t.ID] = true
	}

	byID := make(map[string]replyCluster, len(raw.AllClusters)+len(raw.RootClusters))
	var order []string
	add := func(rc replyCluster) {
		if rc.ID == "" {
			return
		}
		if _, ok := byID[rc.ID]; !ok {
			order = append(order, rc.ID)
		}
		byID[rc.ID] = merge(byID[rc.ID], rc)
	}
	for _, rc := range raw.RootClusters {
		add(rc)
	}
	keys := make([]string, 0, len(raw.AllClusters))
	for k := range raw.AllClusters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rc := raw.AllClusters[k]
		if rc.ID == "" {
			rc.ID = k
		}
		add(rc)
	}
	for _, id := range order {
		for _, child := range byID[id].ChildrenIDs {
			if c, ok := byID[child]; ok && c.ParentID == "" {
				c.ParentID = id
				byID[child] = c
			}
		}
	}
	if len(order) == 0 {
		return nil, fmt.Errorf("%w: no clusters", ErrMalformed)
	}

	now := a.now()
	out := make([]cluster.Cluster, 0, len(order))
	for _, id := range order {
		rc := byID[id]
		members := make([]string, 0, len(rc.ThoughtIDs))
		for _, tid := range rc.ThoughtIDs {
			if known[tid] {
				members = append(members, tid)
			}
		}
		out = append(out, cluster.Cluster{
			ID:          rc.ID,
			Name:        rc.Name,
			ThoughtIDs:  members,
			CreatedAt:   now,
			ParentID:    rc.ParentID,
			Keywords:    rc.Keywords,
			Description: rc.Description,
		})
	}
	return out, nil
}

// merge fills empty fields of base from next.
func merge(base, next replyCluster) replyCluster {
	if base.ID == "" {
		return next
	}
	if base.Name == "" {
		base.Name = next.Name
	}
	if len(base.ThoughtIDs) == 0 {
		base.ThoughtIDs = next.ThoughtIDs
	}
	if len(base.ChildrenIDs) == 0 {
		base.ChildrenIDs = next.ChildrenIDs
	}
	if base.ParentID == "" {
		base.ParentID = next.ParentID
	}
	if len(base.Keywords) == 0 {
		base.Keywords = next.Keywords
	}
	if base.Description == "" {
		base.Description = next.Description
	}
	return base
}

// Themes asks for three to five key themes across ts.
func (a *Assistant) Themes(ctx context.Context, ts []thought.Thought) ([]string, error) {
	if len(ts) == 0 {
		return nil, nil
	}
	contents := make([]string, len(ts))
	for i, t := range ts {
		contents[i] = t.Content
	}
	system := "You identify common themes or topics in a set of thoughts."
	user := "Identify 3-5 key themes or topics in these thoughts:\n" + mustJSON(contents) +
		"\n\nRespond with a JSON array of strings, for example [\"Personal Growth\", \"Health\"]. Return ONLY the JSON array."
	reply, err := a.client.Chat(ctx, system, user, 0.3)
	if err != nil {
		return nil, err
	}
	var raw []string
	if err := json.Unmarshal([]byte(stripCodeFences(reply)), &raw); err != nil {
		return nil, fmt.Errorf("%w: themes: %v", ErrMalformed, err)
	}
	themes := make([]string, 0, len(raw))
	for _, th := range raw {
		if th = strings.TrimSpace(th); th != "" {
			themes = append(themes, th)
		}
	}
	if len(themes) == 0 {
		return nil, fmt.Errorf("%w: no themes", ErrMalformed)
	}
	if len(themes) > maxThemes {
		themes = themes[:maxThemes]
	}
	return themes, nil
}

// RevisitCandidate asks which thought is most worth revisiting.
func (a *Assistant) RevisitCandidate(ctx context.Context, ts []thought.Thought) (thought.Thought, error) {
	if len(ts) == 0 {
		return thought.Thought{}, fmt.Errorf("%w: no thoughts", ErrMalformed)
	}
	data := make([]promptThought, len(ts))
	for i, t := range ts {
		data[i] = promptThought{ID: t.ID, Content: t.Content, Category: t.Category, CreatedAt: t.CreatedAt.UTC().Format(time.RFC3339)}
	}
	system := "You identify the most insightful or important thought worth revisiting from a collection of thoughts."
	user := "From these thoughts, identify the ONE thought most worth revisiting or reflecting on further." +
		" Prefer meaningful questions, important ideas, tasks that need follow-up and deeper reflections.\n\nThoughts: " +
		mustJSON(data) + "\n\nReturn ONLY the ID of the thought you selected, nothing else."
	reply, err := a.client.Chat(ctx, system, user, 0.3)
	if err != nil {
		return thought.Thought{}, err
	}
	id := strings.Trim(strings.TrimSpace(reply), "\"'`")
	for _, t := range ts {
		if t.ID == id {
			return t, nil
		}
	}
	return thought.Thought{}, fmt.Errorf("%w: unknown thought %q", ErrMalformed, id)
}
