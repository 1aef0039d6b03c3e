package cluster

import (
	"encoding/json"
	"fmt"

	"github.com/cognicore/reverie/pkg/reverie/internalerr"
	"github.com/cognicore/reverie/pkg/reverie/thought"
)

// MaxDepth is the deepest level generated hierarchies may reach (roots are level 1).
const MaxDepth = 2

// Hierarchy is an arena of clusters keyed by ID. Edges are stored only as
// parent pointers; children and roots are derived.
type Hierarchy struct {
	clusters  map[string]Cluster
	order     []string
	relevance map[string]float64
	ids       *IDSource
}

// NewHierarchy returns an empty hierarchy. ids mints IDs for clusters
// created by adjustments; nil selects a default source.
func NewHierarchy(ids *IDSource) *Hierarchy {
	if ids == nil {
		ids = NewIDSource(nil, nil)
	}
	return &Hierarchy{
		clusters:  make(map[string]Cluster),
		relevance: make(map[string]float64),
		ids:       ids,
	}
}

// Build creates a hierarchy from clusters and thought relevance and
// validates it. Clusters may be listed in any order.
func Build(ids *IDSource, clusters []Cluster, relevance []thought.Relevance) (*Hierarchy, error) {
	h := NewHierarchy(ids)
	for _, c := range clusters {
		if c.ID == "" {
			return nil, fmt.Errorf("%w: cluster without id", internalerr.ErrInvalidInput)
		}
		if _, dup := h.clusters[c.ID]; dup {
			return nil, fmt.Errorf("%w: cluster %s", internalerr.ErrDuplicate, c.ID)
		}
		h.put(c.clone())
	}
	for _, r := range relevance {
		h.SetRelevance(r.ThoughtID1, r.ThoughtID2, r.Score)
	}
	if err := h.Validate(); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Hierarchy) put(c Cluster) {
	if _, ok := h.clusters[c.ID]; !ok {
		h.order = append(h.order, c.ID)
	}
	h.clusters[c.ID] = c
}

func (h *Hierarchy) remove(id string) {
	delete(h.clusters, id)
	for i, o := range h.order {
		if o == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of clusters.
func (h *Hierarchy) Len() int { return len(h.clusters) }

// Get returns a copy of the cluster with the given ID.
func (h *Hierarchy) Get(id string) (Cluster, bool) {
	c, ok := h.clusters[id]
	if !ok {
		return Cluster{}, false
	}
	return c.clone(), true
}

// All returns every cluster in insertion order.
func (h *Hierarchy) All() []Cluster {
	out := make([]Cluster, 0, len(h.order))
	for _, id := range h.order {
		out = append(out, h.clusters[id].clone())
	}
	return out
}

// Roots returns the clusters without a parent, in insertion order.
func (h *Hierarchy) Roots() []Cluster {
	var out []Cluster
	for _, id := range h.order {
		if c := h.clusters[id]; c.ParentID == "" {
			out = append(out, c.clone())
		}
	}
	return out
}

// Children returns the direct children of id, in insertion order.
func (h *Hierarchy) Children(id string) []Cluster {
	var out []Cluster
	for _, cid := range h.order {
		if c := h.clusters[cid]; c.ParentID == id && id != "" {
			out = append(out, c.clone())
		}
	}
	return out
}

// Depth returns the level of id: 1 for roots, 0 when unknown.
func (h *Hierarchy) Depth(id string) int {
	depth := 0
	for cur, ok := h.clusters[id]; ok; cur, ok = h.clusters[cur.ParentID] {
		depth++
		if depth > len(h.clusters) {
			return depth
		}
		if cur.ParentID == "" {
			break
		}
	}
	return depth
}

// Height returns the depth of the deepest cluster, 0 when empty.
func (h *Hierarchy) Height() int {
	height := 0
	for _, id := range h.order {
		height = max(height, h.Depth(id))
	}
	return height
}

// Validate checks that every parent exists and that no cluster is its own ancestor.
func (h *Hierarchy) Validate() error {
	for _, id := range h.order {
		c := h.clusters[id]
		if c.ParentID == "" {
			continue
		}
		if _, ok := h.clusters[c.ParentID]; !ok {
			return fmt.Errorf("%w: cluster %s has unknown parent %s", internalerr.ErrInvalidInput, id, c.ParentID)
		}
		if h.isAncestor(id, c.ParentID) {
			return fmt.Errorf("%w: cluster %s", internalerr.ErrCycle, id)
		}
	}
	return nil
}

// isAncestor reports whether anc is node or one of node's ancestors,
// walking up from node. It stops after len(clusters) steps.
func (h *Hierarchy) isAncestor(anc, node string) bool {
	for steps := 0; node != "" && steps <= len(h.clusters); steps++ {
		if node == anc {
			return true
		}
		node = h.clusters[node].ParentID
	}
	return false
}

// SetRelevance records the score of an unordered thought pair. Self-pairs are ignored.
func (h *Hierarchy) SetRelevance(a, b string, score float64) {
	if key := thought.PairKey(a, b); key != "" {
		h.relevance[key] = score
	}
}

// Relevance returns the recorded score of a thought pair, or 0 when unscored.
func (h *Hierarchy) Relevance(a, b string) float64 {
	return h.relevance[thought.PairKey(a, b)]
}

// RelevanceMap returns a copy of the pair-key to score map.
func (h *Hierarchy) RelevanceMap() map[string]float64 {
	out := make(map[string]float64, len(h.relevance))
	for k, v := range h.relevance {
		out[k] = v
	}
	return out
}

// DropThought removes a thought from every cluster and forgets its relevance.
func (h *Hierarchy) DropThought(thoughtID string) {
	for _, id := range h.order {
		c := h.clusters[id]
		if c.Contains(thoughtID) {
			c.ThoughtIDs = without(c.ThoughtIDs, thoughtID)
			h.clusters[id] = c
		}
	}
	for key := range h.relevance {
		if a, b, ok := splitKey(key); ok && (a == thoughtID || b == thoughtID) {
			delete(h.relevance, key)
		}
	}
}

type hierarchyJSON struct {
	RootClusters []Cluster         `json:"rootClusters"`
	AllClusters  map[string]Cluster `json:"allClusters"`
	RelevanceMap map[string]float64 `json:"relevanceMap"`
	Order        []string           `json:"order,omitempty"`
}

// MarshalJSON encodes the hierarchy as {rootClusters, allClusters, relevanceMap}.
func (h *Hierarchy) MarshalJSON() ([]byte, error) {
	all := make(map[string]Cluster, len(h.clusters))
	for id, c := range h.clusters {
		all[id] = c
	}
	roots := h.Roots()
	if roots == nil {
		roots = []Cluster{}
	}
	return json.Marshal(hierarchyJSON{
		RootClusters: roots,
		AllClusters:  all,
		RelevanceMap: h.relevance,
		Order:        h.order,
	})
}

// UnmarshalJSON decodes and validates a hierarchy. allClusters is the
// source of truth; rootClusters is ignored beyond ordering.
func (h *Hierarchy) UnmarshalJSON(data []byte) error {
	var raw hierarchyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	seen := make(map[string]bool)
	var ordered []Cluster
	add := func(id string) {
		if c, ok := raw.AllClusters[id]; ok && !seen[id] {
			seen[id] = true
			c.ID = id
			ordered = append(ordered, c)
		}
	}
	for _, id := range raw.Order {
		add(id)
	}
	for _, r := range raw.RootClusters {
		add(r.ID)
	}
	for _, id := range sortedKeys(raw.AllClusters) {
		add(id)
	}

	var rel []thought.Relevance
	for _, key := range sortedKeys(raw.RelevanceMap) {
		if a, b, ok := splitKey(key); ok {
			rel = append(rel, thought.Relevance{ThoughtID1: a, ThoughtID2: b, Score: raw.RelevanceMap[key]})
		}
	}

	ids := h.ids
	built, err := Build(ids, ordered, rel)
	if err != nil {
		return err
	}
	*h = *built
	return nil
}
