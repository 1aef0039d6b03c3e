// Package store defines the persistence collaborator for thoughts and the
// cluster hierarchy derived from them.
package store

import (
	"context"
	"sort"

	"github.com/cognicore/reverie/pkg/reverie/cluster"
	"github.com/cognicore/reverie/pkg/reverie/thought"
)

// Store is the main interface for persisting and querying Reverie data
type Store interface {
	Close() error

	// Thoughts
	UpsertThought(ctx context.Context, t thought.Thought) error
	GetThought(ctx context.Context, id string) (thought.Thought, bool, error)
	// DeleteThought removes a thought together with its relevance entries
	// and cluster memberships. Missing ids report internalerr.ErrNotFound.
	DeleteThought(ctx context.Context, id string) error
	// ListThoughts returns every thought, newest first.
	ListThoughts(ctx context.Context) ([]thought.Thought, error)

	// Hierarchy
	SaveHierarchy(ctx context.Context, h Hierarchy) error
	LoadHierarchy(ctx context.Context) (Hierarchy, error)

	// Adjustment log
	AppendAdjustment(ctx context.Context, a cluster.Adjustment) error
	ListAdjustments(ctx context.Context) ([]cluster.Adjustment, error)

	// Replace swaps the whole content for snap in one step.
	Replace(ctx context.Context, snap Snapshot) error
}

// Hierarchy is the persisted form of a cluster hierarchy: clusters in
// insertion order plus the thought relevance it was built from.
type Hierarchy struct {
	Clusters  []cluster.Cluster
	Relevance []thought.Relevance
}

// Snapshot is the full content of a store.
type Snapshot struct {
	Thoughts    []thought.Thought    `json:"thoughts"`
	Clusters    []cluster.Cluster    `json:"clusters"`
	Relevance   []thought.Relevance  `json:"relevance"`
	Adjustments []cluster.Adjustment `json:"adjustments"`
}

// SortNewestFirst orders thoughts by CreatedAt descending, then by ID.
func SortNewestFirst(ts []thought.Thought) {
	sort.SliceStable(ts, func(i, j int) bool {
		if !ts[i].CreatedAt.Equal(ts[j].CreatedAt) {
			return ts[i].CreatedAt.After(ts[j].CreatedAt)
		}
		return ts[i].ID < ts[j].ID
	})
}
