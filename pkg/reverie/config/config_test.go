package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cognicore/reverie/pkg/reverie/internalerr"
)

func TestLoadStoplist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stoplist.yaml")
	content := `terms:
  - the
  - a
  - and
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	sl, err := LoadStoplist(path)
	if err != nil {
		t.Fatalf("Failed to load stoplist: %v", err)
	}
	if len(sl.Terms) != 3 {
		t.Errorf("Expected 3 terms, got %d", len(sl.Terms))
	}
}

func TestParseStoplist(t *testing.T) {
	sl, err := ParseStoplist([]byte("terms: [' Coffee ', '', beans]\n"))
	if err != nil {
		t.Fatalf("ParseStoplist: %v", err)
	}
	if len(sl.Terms) != 2 || sl.Terms[0] != "coffee" || sl.Terms[1] != "beans" {
		t.Errorf("Terms = %v, want [coffee beans]", sl.Terms)
	}
	if len(sl.Words()) != 2 {
		t.Errorf("Words without extend = %v", sl.Words())
	}

	for _, doc := range []string{"terms: []\n", "terms: [' ']\n", "terms: {bad\n"} {
		if _, err := ParseStoplist([]byte(doc)); !errors.Is(err, internalerr.ErrInvalidConfig) {
			t.Errorf("ParseStoplist(%q) err = %v, want ErrInvalidConfig", doc, err)
		}
	}
}

func TestStoplistExtend(t *testing.T) {
	sl, err := ParseStoplist([]byte("extend: true\nterms: [coffee]\n"))
	if err != nil {
		t.Fatalf("ParseStoplist: %v", err)
	}
	words := sl.Words()
	found := map[string]bool{}
	for _, w := range words {
		found[w] = true
	}
	if !found["coffee"] || !found["the"] {
		t.Errorf("extended stoplist should keep defaults and add coffee, got %d words", len(words))
	}
}

func TestLoadLexicon(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	content := `positive:
  sunny: 0.6
negative:
  gloomy: -0.7
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	lex, err := LoadLexicon(path)
	if err != nil {
		t.Fatalf("LoadLexicon: %v", err)
	}
	if w, ok := lex.Weight("sunny"); !ok || w != 0.6 {
		t.Errorf("sunny = %v, %v", w, ok)
	}
	if w, ok := lex.Weight("gloomy"); !ok || w != -0.7 {
		t.Errorf("gloomy = %v, %v", w, ok)
	}
}

func TestLoaderAllEmpty(t *testing.T) {
	comp, err := (&Loader{}).Load()
	if err != nil {
		t.Fatalf("Empty loader should succeed: %v", err)
	}
	if comp.Tokenizer == nil || comp.Taxonomy == nil || comp.Pipeline == nil {
		t.Fatal("Should have default text components")
	}
	if comp.Analyzer == nil || comp.Lexicon == nil {
		t.Fatal("Should have default sentiment components")
	}
	if !comp.Tokenizer.IsStopword("the") {
		t.Error("default tokenizer should use the built-in stoplist")
	}
}

func TestLoaderCustomStoplist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stoplist.yaml")
	if err := os.WriteFile(path, []byte("terms: [coffee]\n"), 0644); err != nil {
		t.Fatal(err)
	}

	comp, err := (&Loader{StoplistPath: path}).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := comp.Pipeline.Tokenizer().Tokenize("coffee beans")
	if len(got) != 1 || got[0] != "beans" {
		t.Errorf("Tokenize = %v, want [beans]", got)
	}
}

func TestLoaderMissingFiles(t *testing.T) {
	tests := []struct {
		name   string
		loader Loader
	}{
		{"stoplist", Loader{StoplistPath: "/nonexistent/stoplist.yaml"}},
		{"lexicon", Loader{LexiconPath: "/nonexistent/lexicon.yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.loader.Load(); err == nil {
				t.Error("expected error for missing file")
			}
		})
	}
}
