package cluster

import (
	"strings"

	"github.com/cognicore/reverie/pkg/reverie/similarity"
	"github.com/cognicore/reverie/pkg/reverie/thought"
)

// RelevanceThreshold is the lowest concept similarity reported as relevance.
const RelevanceThreshold = 0.2

const maxReasonConcepts = 3

// Relevance scores every pair of thoughts by concept similarity and returns
// the pairs at or above RelevanceThreshold, in (i, j) order.
func (e *Engine) Relevance(thoughts []thought.Thought) []thought.Relevance {
	profiles := make([]similarity.Profile, len(thoughts))
	for i, t := range thoughts {
		profiles[i] = e.scorer.Profile(t.Content)
	}

	var out []thought.Relevance
	for i := 0; i < len(thoughts); i++ {
		for j := i + 1; j < len(thoughts); j++ {
			if thoughts[i].ID == thoughts[j].ID {
				continue
			}
			score := e.scorer.Similarity(profiles[i], profiles[j])
			if score < RelevanceThreshold {
				continue
			}
			out = append(out, thought.Relevance{
				ThoughtID1: thoughts[i].ID,
				ThoughtID2: thoughts[j].ID,
				Score:      score,
				Reason:     reason(profiles[i], profiles[j]),
			})
		}
	}
	return out
}

func reason(a, b similarity.Profile) string {
	shared := similarity.SharedConcepts(a, b)
	if len(shared) == 0 {
		return "Similar wording"
	}
	if len(shared) > maxReasonConcepts {
		shared = shared[:maxReasonConcepts]
	}
	return "Shared concepts: " + strings.Join(shared, ", ")
}
