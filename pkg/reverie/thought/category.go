package thought

import (
	"fmt"
	"strings"

	"github.com/cognicore/reverie/pkg/reverie/internalerr"
)

// Category is the single semantic label a thought carries.
type Category string

const (
	Idea        Category = "idea"
	Feeling     Category = "feeling"
	Memory      Category = "memory"
	Task        Category = "task"
	Question    Category = "question"
	Observation Category = "observation"
	Reflection  Category = "reflection"
)

// Categories lists every category in declaration order. Scoring ties are
// broken by this order.
var Categories = []Category{Idea, Feeling, Memory, Task, Question, Observation, Reflection}

// ParseCategory maps a label to a Category. Surrounding whitespace and case are ignored.
func ParseCategory(s string) (Category, error) {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case Idea, Feeling, Memory, Task, Question, Observation, Reflection:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", internalerr.ErrInvalidCategory, s)
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case Idea, Feeling, Memory, Task, Question, Observation, Reflection:
		return true
	}
	return false
}

// Title returns the label with an upper-case first letter ("idea" -> "Idea").
func (c Category) Title() string {
	if c == "" {
		return ""
	}
	return strings.ToUpper(string(c[:1])) + string(c[1:])
}

func (c Category) String() string { return string(c) }
