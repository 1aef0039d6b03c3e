// Package cluster groups thoughts into topic clusters and maintains the
// user-editable cluster hierarchy.
package cluster

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Cluster is a named group of thoughts. ThoughtIDs keep discovery order.
type Cluster struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	ThoughtIDs     []string  `json:"thoughtIds"`
	CreatedAt      time.Time `json:"createdAt"`
	ParentID       string    `json:"parentId,omitempty"`
	Keywords       []string  `json:"keywords,omitempty"`
	Description    string    `json:"description,omitempty"`
	IsUserModified bool      `json:"isUserModified"`
}

// Contains reports whether the cluster holds thoughtID.
func (c Cluster) Contains(thoughtID string) bool {
	for _, id := range c.ThoughtIDs {
		if id == thoughtID {
			return true
		}
	}
	return false
}

func (c Cluster) clone() Cluster {
	c.ThoughtIDs = append([]string(nil), c.ThoughtIDs...)
	c.Keywords = append([]string(nil), c.Keywords...)
	return c
}

// IDSource mints ULIDs with monotonic entropy. It is safe for concurrent use.
type IDSource struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// NewIDSource creates an ID source reading entropy from r (crypto/rand when
// nil) and timestamps from now (time.Now when nil).
func NewIDSource(r io.Reader, now func() time.Time) *IDSource {
	if r == nil {
		r = rand.Reader
	}
	if now == nil {
		now = time.Now
	}
	return &IDSource{entropy: ulid.Monotonic(r, 0), now: now}
}

// New returns a fresh identifier.
func (s *IDSource) New() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(s.now()), s.entropy).String()
}
