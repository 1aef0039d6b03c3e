package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/cognicore/reverie/pkg/reverie/cluster"
	"github.com/cognicore/reverie/pkg/reverie/internalerr"
	"github.com/cognicore/reverie/pkg/reverie/store"
	"github.com/cognicore/reverie/pkg/reverie/thought"
)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu          sync.RWMutex
	thoughts    map[string]thought.Thought
	clusters    []cluster.Cluster
	relevance   map[string]thought.Relevance
	relOrder    []string
	adjustments []cluster.Adjustment
}

var _ store.Store = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		thoughts:  make(map[string]thought.Thought),
		relevance: make(map[string]thought.Relevance),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// UpsertThought inserts or replaces a thought, keyed by ID.
func (s *Store) UpsertThought(ctx context.Context, t thought.Thought) error {
	if t.ID == "" {
		return fmt.Errorf("%w: thought without id", internalerr.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.thoughts[t.ID] = t
	return nil
}

// GetThought returns a thought by ID.
func (s *Store) GetThought(ctx context.Context, id string) (thought.Thought, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.thoughts[id]
	return t, ok, nil
}

// DeleteThought removes a thought, its relevance and its cluster memberships.
func (s *Store) DeleteThought(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.thoughts[id]; !ok {
		return fmt.Errorf("%w: thought %s", internalerr.ErrNotFound, id)
	}
	delete(s.thoughts, id)

	for i, c := range s.clusters {
		if !c.Contains(id) {
			continue
		}
		kept := make([]string, 0, len(c.ThoughtIDs))
		for _, tid := range c.ThoughtIDs {
			if tid != id {
				kept = append(kept, tid)
			}
		}
		s.clusters[i].ThoughtIDs = kept
	}

	order := s.relOrder[:0]
	for _, key := range s.relOrder {
		r := s.relevance[key]
		if r.ThoughtID1 == id || r.ThoughtID2 == id {
			delete(s.relevance, key)
			continue
		}
		order = append(order, key)
	}
	s.relOrder = order
	return nil
}

// ListThoughts returns every thought, newest first.
func (s *Store) ListThoughts(ctx context.Context) ([]thought.Thought, error) {
	s.mu.RLock()
	out := make([]thought.Thought, 0, len(s.thoughts))
	for _, t := range s.thoughts {
		out = append(out, t)
	}
	s.mu.RUnlock()

	store.SortNewestFirst(out)
	return out, nil
}

// SaveHierarchy replaces the stored clusters and relevance.
func (s *Store) SaveHierarchy(ctx context.Context, h store.Hierarchy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setHierarchy(h)
	return nil
}

func (s *Store) setHierarchy(h store.Hierarchy) {
	s.clusters = copyClusters(h.Clusters)
	s.relevance = make(map[string]thought.Relevance, len(h.Relevance))
	s.relOrder = s.relOrder[:0]
	for _, r := range h.Relevance {
		key := r.Key()
		if key == "" {
			continue
		}
		if _, ok := s.relevance[key]; !ok {
			s.relOrder = append(s.relOrder, key)
		}
		s.relevance[key] = r
	}
}

// LoadHierarchy returns copies of the stored clusters and relevance.
func (s *Store) LoadHierarchy(ctx context.Context) (store.Hierarchy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := store.Hierarchy{Clusters: copyClusters(s.clusters)}
	for _, key := range s.relOrder {
		h.Relevance = append(h.Relevance, s.relevance[key])
	}
	return h, nil
}

// AppendAdjustment adds an entry to the adjustment log.
func (s *Store) AppendAdjustment(ctx context.Context, a cluster.Adjustment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adjustments = append(s.adjustments, copyAdjustment(a))
	return nil
}

// ListAdjustments returns the adjustment log, oldest first.
func (s *Store) ListAdjustments(ctx context.Context) ([]cluster.Adjustment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]cluster.Adjustment, len(s.adjustments))
	for i, a := range s.adjustments {
		out[i] = copyAdjustment(a)
	}
	return out, nil
}

// Replace swaps the whole store content for snap.
func (s *Store) Replace(ctx context.Context, snap store.Snapshot) error {
	for _, t := range snap.Thoughts {
		if t.ID == "" {
			return fmt.Errorf("%w: thought without id", internalerr.ErrInvalidInput)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.thoughts = make(map[string]thought.Thought, len(snap.Thoughts))
	for _, t := range snap.Thoughts {
		s.thoughts[t.ID] = t
	}
	s.setHierarchy(store.Hierarchy{Clusters: snap.Clusters, Relevance: snap.Relevance})
	s.adjustments = nil
	for _, a := range snap.Adjustments {
		s.adjustments = append(s.adjustments, copyAdjustment(a))
	}
	return nil
}

func copyClusters(in []cluster.Cluster) []cluster.Cluster {
	if in == nil {
		return nil
	}
	out := make([]cluster.Cluster, len(in))
	for i, c := range in {
		c.ThoughtIDs = append([]string(nil), c.ThoughtIDs...)
		c.Keywords = append([]string(nil), c.Keywords...)
		out[i] = c
	}
	return out
}

func copyAdjustment(a cluster.Adjustment) cluster.Adjustment {
	a.Data.SourceClusterIDs = append([]string(nil), a.Data.SourceClusterIDs...)
	a.Data.ThoughtIDs = append([]string(nil), a.Data.ThoughtIDs...)
	return a
}
