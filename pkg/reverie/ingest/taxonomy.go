package ingest

import (
	"regexp"
	"strings"

	"github.com/cognicore/reverie/pkg/reverie/stoplist"
)

// Pattern is a named regular expression over lower-cased text.
type Pattern struct {
	Name string
	Re   *regexp.Regexp
}

var defaultConcepts = []Pattern{
	{"tech", regexp.MustCompile(`\b(app|application|extension|browser|chrome|website|software|code|api|platform|tool)\b`)},
	{"emotion", regexp.MustCompile(`\b(anxious|worried|overwhelm|stress|fear|excited|happy|sad|nervous|confident)\b`)},
	{"action", regexp.MustCompile(`\b(build|create|develop|design|implement|record|transcribe|meeting|presentation)\b`)},
	{"work", regexp.MustCompile(`\b(project|work|task|job|deadline|client|team|business)\b`)},
	{"personal", regexp.MustCompile(`\b(life|personal|home|family|friend|relationship|health|habit)\b`)},
	{"learning", regexp.MustCompile(`\b(learn|study|read|research|understand|improve|practice|skill)\b`)},
	{"lifestyle", regexp.MustCompile(`\b(coffee|food|eat|drink|taste|recipe|cooking|meal)\b`)},
}

var defaultThemes = []Pattern{
	{"technology", regexp.MustCompile(`\b(app|tech|software|code|digital|online|web|api|platform|extension|browser)\b`)},
	{"anxiety", regexp.MustCompile(`\b(worry|anxious|stress|overwhelm|nervous|fear|panic|concern)\b`)},
	{"creativity", regexp.MustCompile(`\b(idea|create|design|build|concept|innovative|think|imagine)\b`)},
	{"work", regexp.MustCompile(`\b(project|work|job|business|meeting|deadline|client|professional)\b`)},
	{"personal", regexp.MustCompile(`\b(feel|emotion|life|personal|experience|myself|thinking|believe)\b`)},
	{"learning", regexp.MustCompile(`\b(learn|understand|study|research|knowledge|skill|improve)\b`)},
	{"lifestyle", regexp.MustCompile(`\b(daily|habit|routine|food|coffee|taste|home|life)\b`)},
}

var contentWord = regexp.MustCompile(`\b[a-z]{3,}\b`)

// Taxonomy holds the concept and theme pattern banks used for
// concept-overlap similarity.
type Taxonomy struct {
	concepts []Pattern
	themes   []Pattern
	exclude  map[string]struct{}
}

// NewTaxonomy creates a taxonomy with the built-in concept and theme banks.
func NewTaxonomy() *Taxonomy {
	t := &Taxonomy{
		concepts: append([]Pattern(nil), defaultConcepts...),
		themes:   append([]Pattern(nil), defaultThemes...),
		exclude:  make(map[string]struct{}),
	}
	for _, w := range stoplist.ConceptExclusions() {
		t.exclude[w] = struct{}{}
	}
	return t
}

// AddConcept appends a concept pattern. Patterns are matched against
// lower-cased text.
func (t *Taxonomy) AddConcept(name string, re *regexp.Regexp) {
	t.concepts = append(t.concepts, Pattern{Name: name, Re: re})
}

// AddTheme appends a theme pattern.
func (t *Taxonomy) AddTheme(name string, re *regexp.Regexp) {
	t.themes = append(t.themes, Pattern{Name: name, Re: re})
}

// ThemeNames returns the theme names in evaluation order.
func (t *Taxonomy) ThemeNames() []string {
	names := make([]string, len(t.themes))
	for i, p := range t.themes {
		names[i] = p.Name
	}
	return names
}

// ExtractConcepts returns the unique concepts of text in discovery order:
// pattern-bank matches first, then generic content words.
func (t *Taxonomy) ExtractConcepts(text string) []string {
	lower := strings.ToLower(text)
	seen := make(map[string]struct{})
	var out []string
	add := func(w string) {
		if _, ok := seen[w]; ok {
			return
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}

	for _, p := range t.concepts {
		for _, m := range p.Re.FindAllString(lower, -1) {
			add(m)
		}
	}
	for _, w := range contentWord.FindAllString(lower, -1) {
		if _, skip := t.exclude[w]; !skip {
			add(w)
		}
	}
	return out
}

// Themes returns the names of the themes that fire in text.
func (t *Taxonomy) Themes(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, p := range t.themes {
		if p.Re.MatchString(lower) {
			out = append(out, p.Name)
		}
	}
	return out
}

// ContentWords returns the set of lower-case words of three or more letters.
func ContentWords(text string) map[string]struct{} {
	words := contentWord.FindAllString(strings.ToLower(text), -1)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
