// Package categorize assigns a thought to exactly one category using
// weighted pattern, keyword and phrase scoring.
package categorize

import (
	"regexp"
	"sort"
	"strings"

	"github.com/cognicore/reverie/pkg/reverie/ingest"
	"github.com/cognicore/reverie/pkg/reverie/sentiment"
	"github.com/cognicore/reverie/pkg/reverie/thought"
)

const (
	directPoints  = 3
	contextPoints = 2
	phrasePoints  = 4

	subcategoryRatio = 0.3
	maxSubcategories = 2
	defaultReasoning = "No strong patterns detected, defaulting to idea category"
)

type rule struct {
	direct    []*regexp.Regexp
	context   []string
	phrases   []string
	reasoning string
}

func rulesFor(c thought.Category) rule {
	switch c {
	case thought.Question:
		return rule{
			direct: []*regexp.Regexp{
				regexp.MustCompile(`\?`),
				regexp.MustCompile(`\b(who|what|where|when|why|how|should|could|would|will|can|may|might)\b`),
			},
			context:   []string{"uncertain", "wonder", "curious", "ask", "inquire", "question", "dont know"},
			phrases:   []string{"i wonder", "what do you think", "any ideas", "help me understand"},
			reasoning: "Contains question words or uncertainty",
		}
	case thought.Feeling:
		return rule{
			direct:    []*regexp.Regexp{regexp.MustCompile(`\b(feel|feeling|emotion|mood|heart|soul)\b`)},
			context:   []string{"happy", "sad", "angry", "excited", "frustrated", "anxious", "love", "hate", "emotional"},
			phrases:   []string{"feeling like", "makes me feel", "emotional about", "in my heart"},
			reasoning: "Expresses emotions or emotional state",
		}
	case thought.Memory:
		return rule{
			direct:    []*regexp.Regexp{regexp.MustCompile(`\b(remember|recall|memory|past|childhood|yesterday|ago|used to|back when|nostalgia)\b`)},
			context:   []string{"nostalgic", "reminisce", "flashback", "remind", "think back", "brings back"},
			phrases:   []string{"i remember", "back in", "used to be", "reminds me of"},
			reasoning: "References past experiences or memories",
		}
	case thought.Task:
		return rule{
			direct:    []*regexp.Regexp{regexp.MustCompile(`\b(need to|should|must|have to|todo|task|deadline|remind|important|urgent|priority)\b`)},
			context:   []string{"complete", "finish", "accomplish", "work on", "schedule", "organize", "plan"},
			phrases:   []string{"need to do", "have to", "should probably", "dont forget"},
			reasoning: "Indicates something to be done",
		}
	case thought.Observation:
		return rule{
			direct:    []*regexp.Regexp{regexp.MustCompile(`\b(noticed|observed|saw|seems|appears|pattern|realize|interesting|weird|strange|unusual)\b`)},
			context:   []string{"notice", "trend", "remarkable", "striking", "obvious", "clear", "evident"},
			phrases:   []string{"i noticed", "seems like", "interesting that", "pattern of"},
			reasoning: "Makes note of patterns or phenomena",
		}
	case thought.Reflection:
		return rule{
			direct:    []*regexp.Regexp{regexp.MustCompile(`\b(think|thought|understand|consider|believe|wonder|maybe|perhaps|probably|philosophy)\b`)},
			context:   []string{"ponder", "contemplate", "meditate", "insight", "wisdom", "perspective", "meaning"},
			phrases:   []string{"i think", "been thinking", "my thoughts on", "i believe"},
			reasoning: "Shows contemplative thinking",
		}
	case thought.Idea:
		return rule{
			direct:    []*regexp.Regexp{regexp.MustCompile(`\b(idea|concept|plan|project|want to|wish|dream|goal|vision|imagine|create)\b`)},
			context:   []string{"invent", "design", "brainstorm", "innovate", "solution", "possibility", "potential"},
			phrases:   []string{"i want to", "what if we", "maybe we could", "good idea"},
			reasoning: "Presents creative concepts or plans",
		}
	}
	panic("categorize: no rules for category " + string(c))
}

// Score is a category with its accumulated points.
type Score struct {
	Category thought.Category `json:"category"`
	Points   float64          `json:"points"`
}

// Result is the outcome of categorising one text.
type Result struct {
	Category      thought.Category   `json:"category"`
	Confidence    float64            `json:"confidence"`
	Subcategories []thought.Category `json:"subcategories"`
	Reasoning     string             `json:"reasoning"`
	Scores        []Score            `json:"scores"`
}

// Categorizer scores text against every category. It is safe for concurrent use.
type Categorizer struct {
	tokenizer *ingest.Tokenizer
	rules     []rule // indexed like thought.Categories
}

// New creates a categorizer. A nil tokenizer selects the default one.
func New(tokenizer *ingest.Tokenizer) *Categorizer {
	if tokenizer == nil {
		tokenizer = ingest.NewDefaultTokenizer()
	}
	rules := make([]rule, len(thought.Categories))
	for i, c := range thought.Categories {
		rules[i] = rulesFor(c)
	}
	return &Categorizer{tokenizer: tokenizer, rules: rules}
}

// Categorize picks the best category for text. It is a pure function of
// text. Callers validate content first; empty text defaults to idea.
func (c *Categorizer) Categorize(text string) Result {
	lower := strings.ToLower(text)
	tokens := c.tokenizer.Tokenize(text)

	scores := make([]Score, len(thought.Categories))
	var total float64
	for i, cat := range thought.Categories {
		scores[i] = Score{Category: cat, Points: scoreRule(c.rules[i], lower, tokens)}
		if cat == thought.Feeling {
			for _, sig := range sentiment.Signals(text, tokens) {
				scores[i].Points += float64(sig.PatternHits+2*sig.ContextHits) * sig.Weight
			}
		}
		total += scores[i].Points
	}

	ranked := append([]Score(nil), scores...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Points > ranked[j].Points
	})

	top := ranked[0]
	if top.Points <= 0 {
		return Result{
			Category:   thought.Idea,
			Confidence: 0.1,
			Reasoning:  defaultReasoning,
			Scores:     scores,
		}
	}

	var subs []thought.Category
	for _, s := range ranked[1:min(len(ranked), 1+maxSubcategories)] {
		if s.Points > 0 && s.Points >= top.Points*subcategoryRatio {
			subs = append(subs, s.Category)
		}
	}

	return Result{
		Category:      top.Category,
		Confidence:    min(top.Points/max(total, 1), 1),
		Subcategories: subs,
		Reasoning:     c.reasoningFor(top.Category),
		Scores:        scores,
	}
}

// Category is a convenience wrapper returning only the winning category.
func (c *Categorizer) Category(text string) thought.Category {
	return c.Categorize(text).Category
}

func (c *Categorizer) reasoningFor(cat thought.Category) string {
	for i, known := range thought.Categories {
		if known == cat {
			return c.rules[i].reasoning
		}
	}
	return ""
}

func scoreRule(r rule, lower string, tokens []string) float64 {
	var score float64
	for _, re := range r.direct {
		score += float64(directPoints * len(re.FindAllStringIndex(lower, -1)))
	}
	for _, w := range r.context {
		if containsToken(tokens, w) || strings.Contains(lower, w) {
			score += contextPoints
		}
	}
	for _, p := range r.phrases {
		if strings.Contains(lower, p) {
			score += phrasePoints
		}
	}
	return score
}

func containsToken(tokens []string, w string) bool {
	for _, t := range tokens {
		if t == w {
			return true
		}
	}
	return false
}
