package sentiment

import "strings"

// Emotion names one of the detected emotional states.
type Emotion string

const (
	Anxiety    Emotion = "anxiety"
	Depression Emotion = "depression"
	Excitement Emotion = "excitement"
	Gratitude  Emotion = "gratitude"
	Confusion  Emotion = "confusion"
	Motivation Emotion = "motivation"
	Love       Emotion = "love"
)

// Title returns the emotion name with an upper-case first letter.
func (e Emotion) Title() string {
	if e == "" {
		return ""
	}
	return strings.ToUpper(string(e[:1])) + string(e[1:])
}

// EmotionDef describes how an emotion is recognised.
type EmotionDef struct {
	Emotion  Emotion
	Patterns []string // substrings of the lower-cased text
	Weight   float64
	Context  []string // multi-word phrases
}

var emotionDefs = []EmotionDef{
	{
		Emotion:  Anxiety,
		Patterns: []string{"worry", "anxious", "stress", "overwhelm", "panic", "nervous", "fear", "scared", "tension", "restless"},
		Weight:   0.9,
		Context:  []string{"cant sleep", "racing thoughts", "what if", "worst case"},
	},
	{
		Emotion:  Depression,
		Patterns: []string{"sad", "depress", "empty", "hopeless", "worthless", "numb", "tire", "exhaust", "alone", "dark"},
		Weight:   0.9,
		Context:  []string{"no energy", "dont care", "whats the point", "feel like"},
	},
	{
		Emotion:  Excitement,
		Patterns: []string{"excite", "thrill", "amaz", "awesome", "fantastic", "incredible", "wonderful", "energized"},
		Weight:   0.8,
		Context:  []string{"cant wait", "so pumped", "this is great", "feeling alive"},
	},
	{
		Emotion:  Gratitude,
		Patterns: []string{"grateful", "thankful", "blessed", "appreciate", "fortune", "lucky", "privilege"},
		Weight:   0.7,
		Context:  []string{"so grateful for", "blessed to have", "appreciate that"},
	},
	{
		Emotion:  Confusion,
		Patterns: []string{"confus", "unclear", "lost", "perplex", "puzzle", "unsure", "doubt", "uncertain"},
		Weight:   0.6,
		Context:  []string{"dont understand", "not sure", "confused about", "lost in"},
	},
	{
		Emotion:  Motivation,
		Patterns: []string{"motivate", "inspire", "determin", "goal", "achieve", "success", "progress", "driven"},
		Weight:   0.7,
		Context:  []string{"ready to", "going to", "determined to", "focused on"},
	},
	{
		Emotion:  Love,
		Patterns: []string{"love", "adore", "cherish", "care", "affection", "devoted", "heart", "soul"},
		Weight:   0.8,
		Context:  []string{"love you", "care about", "mean everything", "special to me"},
	},
}

// Definitions returns the emotion definitions in evaluation order.
func Definitions() []EmotionDef {
	return append([]EmotionDef(nil), emotionDefs...)
}

// Signal records the raw matches of one emotion in a text.
type Signal struct {
	Emotion     Emotion
	Weight      float64
	PatternHits int
	ContextHits int
	Matches     []string
}

// Intensity is (0.3 per pattern + 0.5 per context phrase) × weight, capped at 1.
func (s Signal) Intensity() float64 {
	return min((0.3*float64(s.PatternHits)+0.5*float64(s.ContextHits))*s.Weight, 1)
}

// Signals returns the emotions with at least one match, in definition order.
// tokens are the stemmed tokens of the text.
func Signals(text string, tokens []string) []Signal {
	lower := strings.ToLower(text)
	var out []Signal
	for _, def := range emotionDefs {
		sig := Signal{Emotion: def.Emotion, Weight: def.Weight}
		for _, p := range def.Patterns {
			if strings.Contains(lower, p) || anyContains(tokens, p) {
				sig.PatternHits++
				sig.Matches = append(sig.Matches, p)
			}
		}
		for _, c := range def.Context {
			if strings.Contains(lower, c) {
				sig.ContextHits++
				sig.Matches = append(sig.Matches, c)
			}
		}
		if len(sig.Matches) > 0 {
			out = append(out, sig)
		}
	}
	return out
}

func anyContains(tokens []string, sub string) bool {
	for _, t := range tokens {
		if strings.Contains(t, sub) {
			return true
		}
	}
	return false
}
