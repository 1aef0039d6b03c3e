package cluster

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/cognicore/reverie/pkg/reverie/internalerr"
)

// AdjustmentType names a manual edit to the hierarchy.
type AdjustmentType string

const (
	AdjustAddThought    AdjustmentType = "add_thought"
	AdjustRemoveThought AdjustmentType = "remove_thought"
	AdjustRename        AdjustmentType = "rename_cluster"
	AdjustMerge         AdjustmentType = "merge_clusters"
	AdjustSplit         AdjustmentType = "split_cluster"
	AdjustCreateChild   AdjustmentType = "create_child_cluster"
	AdjustMoveToParent  AdjustmentType = "move_to_parent"
)

// ParseAdjustmentType validates an adjustment type name.
func ParseAdjustmentType(s string) (AdjustmentType, error) {
	switch t := AdjustmentType(strings.ToLower(strings.TrimSpace(s))); t {
	case AdjustAddThought, AdjustRemoveThought, AdjustRename, AdjustMerge,
		AdjustSplit, AdjustCreateChild, AdjustMoveToParent:
		return t, nil
	default:
		return "", fmt.Errorf("%w: unknown adjustment type %q", internalerr.ErrInvalidInput, s)
	}
}

// AdjustmentData carries the per-type arguments of an Adjustment.
type AdjustmentData struct {
	Name             string   `json:"name,omitempty"`
	SourceClusterIDs []string `json:"sourceClusterIds,omitempty"`
	ThoughtIDs       []string `json:"thoughtIds,omitempty"`
	ThoughtID        string   `json:"thoughtId,omitempty"`
	ParentID         string   `json:"parentId,omitempty"`
	// NewClusterID is set by Apply for split and create-child edits.
	NewClusterID string `json:"newClusterId,omitempty"`
}

// Adjustment is one logged manual edit.
type Adjustment struct {
	ID        string         `json:"id"`
	ClusterID string         `json:"clusterId"`
	Type      AdjustmentType `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Data      AdjustmentData `json:"data"`
}

// Apply performs adj against the hierarchy. On error the hierarchy is left
// unchanged. The returned adjustment has ID, Timestamp and any new cluster
// ID filled in.
func (h *Hierarchy) Apply(adj Adjustment) (Adjustment, error) {
	if _, err := ParseAdjustmentType(string(adj.Type)); err != nil {
		return adj, err
	}
	if adj.ID == "" {
		adj.ID = h.ids.New()
	}
	if adj.Timestamp.IsZero() {
		adj.Timestamp = h.ids.now()
	}
	target, ok := h.clusters[adj.ClusterID]
	if !ok {
		return adj, fmt.Errorf("%w: cluster %s", internalerr.ErrNotFound, adj.ClusterID)
	}

	snap := h.snapshot()
	err := h.apply(&adj, target)
	if err == nil {
		err = h.Validate()
	}
	if err != nil {
		*h = *snap
		return adj, err
	}
	return adj, nil
}

func (h *Hierarchy) apply(adj *Adjustment, target Cluster) error {
	d := &adj.Data
	switch adj.Type {
	case AdjustRename:
		name := strings.TrimSpace(d.Name)
		if name == "" {
			return fmt.Errorf("%w: rename requires a name", internalerr.ErrInvalidInput)
		}
		target.Name = name

	case AdjustAddThought:
		if d.ThoughtID == "" {
			return fmt.Errorf("%w: thought id required", internalerr.ErrInvalidInput)
		}
		if !target.Contains(d.ThoughtID) {
			target.ThoughtIDs = append(target.ThoughtIDs, d.ThoughtID)
		}

	case AdjustRemoveThought:
		if !target.Contains(d.ThoughtID) {
			return fmt.Errorf("%w: thought %s not in cluster %s", internalerr.ErrNotFound, d.ThoughtID, target.ID)
		}
		target.ThoughtIDs = without(target.ThoughtIDs, d.ThoughtID)

	case AdjustMerge:
		if len(d.SourceClusterIDs) == 0 {
			return fmt.Errorf("%w: merge requires source clusters", internalerr.ErrInvalidInput)
		}
		for _, sid := range d.SourceClusterIDs {
			src, ok := h.clusters[sid]
			if !ok {
				return fmt.Errorf("%w: cluster %s", internalerr.ErrNotFound, sid)
			}
			if sid == target.ID {
				return fmt.Errorf("%w: cannot merge cluster into itself", internalerr.ErrInvalidInput)
			}
			target.ThoughtIDs = union(target.ThoughtIDs, src.ThoughtIDs)
			if target.ParentID == sid {
				target.ParentID = src.ParentID
			}
			for _, cid := range h.order {
				if c := h.clusters[cid]; c.ParentID == sid && cid != target.ID {
					c.ParentID = target.ID
					h.clusters[cid] = c
				}
			}
			h.remove(sid)
		}

	case AdjustSplit:
		if len(d.ThoughtIDs) == 0 {
			return fmt.Errorf("%w: split requires thought ids", internalerr.ErrInvalidInput)
		}
		for _, id := range d.ThoughtIDs {
			if !target.Contains(id) {
				return fmt.Errorf("%w: thought %s not in cluster %s", internalerr.ErrNotFound, id, target.ID)
			}
			target.ThoughtIDs = without(target.ThoughtIDs, id)
		}
		name := strings.TrimSpace(d.Name)
		if name == "" {
			name = target.Name + " (split)"
		}
		d.NewClusterID = h.ids.New()
		h.put(Cluster{
			ID:             d.NewClusterID,
			Name:           name,
			ThoughtIDs:     union(nil, d.ThoughtIDs),
			CreatedAt:      adj.Timestamp,
			IsUserModified: true,
		})

	case AdjustCreateChild:
		name := strings.TrimSpace(d.Name)
		if name == "" {
			return fmt.Errorf("%w: child cluster requires a name", internalerr.ErrInvalidInput)
		}
		d.NewClusterID = h.ids.New()
		h.put(Cluster{
			ID:             d.NewClusterID,
			Name:           name,
			ThoughtIDs:     union(nil, d.ThoughtIDs),
			CreatedAt:      adj.Timestamp,
			ParentID:       target.ID,
			IsUserModified: true,
		})

	case AdjustMoveToParent:
		if d.ParentID != "" {
			if _, ok := h.clusters[d.ParentID]; !ok {
				return fmt.Errorf("%w: cluster %s", internalerr.ErrNotFound, d.ParentID)
			}
			if h.isAncestor(target.ID, d.ParentID) {
				return fmt.Errorf("%w: %s cannot move under %s", internalerr.ErrCycle, target.ID, d.ParentID)
			}
		}
		target.ParentID = d.ParentID
	}

	target.IsUserModified = true
	h.clusters[target.ID] = target
	return nil
}

func (h *Hierarchy) snapshot() *Hierarchy {
	cp := &Hierarchy{
		clusters:  make(map[string]Cluster, len(h.clusters)),
		order:     append([]string(nil), h.order...),
		relevance: make(map[string]float64, len(h.relevance)),
		ids:       h.ids,
	}
	for id, c := range h.clusters {
		cp.clusters[id] = c.clone()
	}
	for k, v := range h.relevance {
		cp.relevance[k] = v
	}
	return cp
}

func without(ids []string, drop string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}

// union appends the members of b missing from a, keeping order.
func union(a, b []string) []string {
	out := append([]string(nil), a...)
	for _, id := range b {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func splitKey(key string) (string, string, bool) {
	a, b, ok := strings.Cut(key, ":")
	if !ok || a == "" || b == "" {
		return "", "", false
	}
	return a, b, true
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
