package thought

import (
	"time"

	"github.com/google/uuid"
)

// MaxContentLength is the largest accepted thought, in characters.
const MaxContentLength = 10000

// Thought is a single journal entry.
type Thought struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Category  Category  `json:"category"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// New creates a thought with a fresh ID. Content is expected to be validated
// already (see ValidateContent).
func New(content string, category Category, now time.Time) Thought {
	return Thought{
		ID:        uuid.NewString(),
		Content:   content,
		Category:  category,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Relevance scores an unordered pair of thoughts.
type Relevance struct {
	ThoughtID1 string  `json:"thoughtId1"`
	ThoughtID2 string  `json:"thoughtId2"`
	Score      float64 `json:"score"`
	Reason     string  `json:"reason,omitempty"`
}

// Key returns the PairKey of the relevance pair.
func (r Relevance) Key() string {
	return PairKey(r.ThoughtID1, r.ThoughtID2)
}

// PairKey returns the canonical "a:b" key for an unordered pair, with the
// lexically smaller ID first. Self-pairs return "".
func PairKey(a, b string) string {
	if a == b || a == "" || b == "" {
		return ""
	}
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

// IDs returns the IDs of ts in order.
func IDs(ts []Thought) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.ID
	}
	return out
}
