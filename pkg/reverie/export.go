package reverie

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cognicore/reverie/pkg/reverie/cluster"
	"github.com/cognicore/reverie/pkg/reverie/internalerr"
	"github.com/cognicore/reverie/pkg/reverie/store"
	"github.com/cognicore/reverie/pkg/reverie/thought"
)

// Export is a complete dump of the journal.
type Export struct {
	store.Snapshot
	ExportedAt time.Time `json:"exportedAt"`
}

// Export returns every thought, the hierarchy and the adjustment log.
func (r *Reverie) Export(ctx context.Context) (Export, error) {
	thoughts, err := r.store.ListThoughts(ctx)
	if err != nil {
		return Export{}, err
	}
	saved, err := r.store.LoadHierarchy(ctx)
	if err != nil {
		return Export{}, err
	}
	adjustments, err := r.store.ListAdjustments(ctx)
	if err != nil {
		return Export{}, err
	}
	return Export{
		Snapshot: store.Snapshot{
			Thoughts:    thoughts,
			Clusters:    saved.Clusters,
			Relevance:   saved.Relevance,
			Adjustments: adjustments,
		},
		ExportedAt: r.now(),
	}, nil
}

// Import replaces the store content with data. Every thought is validated
// first and nothing is written when one fails.
func (r *Reverie) Import(ctx context.Context, data Export) error {
	seen := make(map[string]bool, len(data.Thoughts))
	thoughts := make([]thought.Thought, len(data.Thoughts))
	for i, t := range data.Thoughts {
		if strings.TrimSpace(t.ID) == "" {
			return fmt.Errorf("%w: thought %d has no id", internalerr.ErrInvalidInput, i)
		}
		if seen[t.ID] {
			return fmt.Errorf("%w: thought %s", internalerr.ErrDuplicate, t.ID)
		}
		seen[t.ID] = true
		content, err := thought.ValidateContent(t.Content)
		if err != nil {
			return fmt.Errorf("thought %s: %w", t.ID, err)
		}
		if !t.Category.Valid() {
			return fmt.Errorf("thought %s: %w: %q", t.ID, internalerr.ErrInvalidCategory, t.Category)
		}
		t.Content = content
		if t.UpdatedAt.IsZero() {
			t.UpdatedAt = t.CreatedAt
		}
		thoughts[i] = t
	}
	if _, err := cluster.Build(r.ids, data.Clusters, data.Relevance); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.store.Replace(ctx, store.Snapshot{
		Thoughts:    thoughts,
		Clusters:    data.Clusters,
		Relevance:   data.Relevance,
		Adjustments: data.Adjustments,
	}); err != nil {
		return err
	}
	r.log.Info("journal imported",
		zap.Int("thoughts", len(thoughts)),
		zap.Int("clusters", len(data.Clusters)))
	return nil
}
