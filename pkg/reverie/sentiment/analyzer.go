package sentiment

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/cognicore/reverie/pkg/reverie/ingest"
)

// Polarity is the coarse direction of a sentiment score.
type Polarity string

const (
	Positive Polarity = "positive"
	Negative Polarity = "negative"
	Neutral  Polarity = "neutral"
)

const (
	polarityThreshold = 0.15
	nuanceThreshold   = 0.6
)

var sentenceSplit = regexp.MustCompile(`[.!?]+`)

// EmotionScore is a detected emotion with its intensity and the terms that fired.
type EmotionScore struct {
	Emotion   Emotion  `json:"emotion"`
	Intensity float64  `json:"intensity"`
	Context   []string `json:"context"`
}

// Result is the sentiment analysis of one text.
type Result struct {
	Score      float64        `json:"score"`
	Polarity   Polarity       `json:"polarity"`
	Confidence float64        `json:"confidence"`
	Magnitude  float64        `json:"magnitude"`
	Emotions   []EmotionScore `json:"emotions"`
	Nuance     string         `json:"nuance"`
}

// Dominant returns the most intense emotion, if any.
func (r Result) Dominant() (Emotion, bool) {
	if len(r.Emotions) == 0 {
		return "", false
	}
	return r.Emotions[0].Emotion, true
}

// Analyzer scores polarity from a lexicon and detects emotions.
// It holds no per-call state and is safe for concurrent use.
type Analyzer struct {
	tokenizer *ingest.Tokenizer
	lexicon   *Lexicon
}

// NewAnalyzer creates an analyzer. Nil arguments select the defaults.
func NewAnalyzer(tokenizer *ingest.Tokenizer, lexicon *Lexicon) *Analyzer {
	if tokenizer == nil {
		tokenizer = ingest.NewDefaultTokenizer()
	}
	if lexicon == nil {
		lexicon = DefaultLexicon()
	}
	return &Analyzer{tokenizer: tokenizer, lexicon: lexicon}
}

// Analyze scores text. Text with no lexicon matches scores 0 (neutral).
func (a *Analyzer) Analyze(text string) Result {
	sentences := splitSentences(text)

	var total float64
	matched := 0
	for _, s := range sentences {
		var sum float64
		found := 0
		for _, w := range a.tokenizer.Words(s) {
			if weight, ok := a.lexicon.Weight(w); ok {
				sum += weight
				found++
			}
		}
		if found > 0 {
			total += sum / float64(found)
			matched++
		}
	}

	var score float64
	if matched > 0 {
		score = total / float64(matched)
	}
	score = math.Max(-1, math.Min(1, score))
	magnitude := math.Abs(score)

	confidence := magnitude
	if len(sentences) > 0 {
		confidence = math.Min(magnitude+float64(matched)/float64(len(sentences))*0.5, 1)
	}

	emotions := a.Emotions(text)
	return Result{
		Score:      score,
		Polarity:   polarityOf(score),
		Confidence: confidence,
		Magnitude:  magnitude,
		Emotions:   emotions,
		Nuance:     nuanceOf(emotions),
	}
}

// Emotions returns the detected emotions sorted by intensity, strongest first.
// Equal intensities keep definition order.
func (a *Analyzer) Emotions(text string) []EmotionScore {
	signals := Signals(text, a.tokenizer.Tokenize(text))
	out := make([]EmotionScore, 0, len(signals))
	for _, s := range signals {
		out = append(out, EmotionScore{
			Emotion:   s.Emotion,
			Intensity: s.Intensity(),
			Context:   s.Matches,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Intensity > out[j].Intensity
	})
	return out
}

// Lexicon returns the analyzer's lexicon.
func (a *Analyzer) Lexicon() *Lexicon { return a.lexicon }

func splitSentences(text string) []string {
	var out []string
	for _, s := range sentenceSplit.Split(text, -1) {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func polarityOf(score float64) Polarity {
	switch {
	case score > polarityThreshold:
		return Positive
	case score < -polarityThreshold:
		return Negative
	default:
		return Neutral
	}
}

func nuanceOf(emotions []EmotionScore) string {
	if len(emotions) == 0 {
		return "balanced"
	}
	if emotions[0].Intensity > nuanceThreshold {
		return string(emotions[0].Emotion)
	}
	if len(emotions) > 2 {
		return "complex"
	}
	return "balanced"
}
