package ingest

import (
	"reflect"
	"testing"
)

func TestPipelineProcess(t *testing.T) {
	p := NewDefaultPipeline()

	out := p.Process("Morning coffee tastes amazing")
	if !reflect.DeepEqual(out.Words, []string{"morning", "coffee", "tastes", "amazing"}) {
		t.Errorf("unexpected words: %v", out.Words)
	}
	if !reflect.DeepEqual(out.Tokens, []string{"morn", "coffee", "tastes", "amaz"}) {
		t.Errorf("unexpected tokens: %v", out.Tokens)
	}
	if out.Lower != "morning coffee tastes amazing" {
		t.Errorf("unexpected lower: %q", out.Lower)
	}
	if len(out.Phrases) != 6 {
		t.Errorf("expected 6 phrases, got %d: %v", len(out.Phrases), out.Phrases)
	}
	if !reflect.DeepEqual(out.Themes, []string{"lifestyle"}) {
		t.Errorf("unexpected themes: %v", out.Themes)
	}
	if len(out.Concepts) == 0 || out.Concepts[0] != "coffee" {
		t.Errorf("expected coffee as first concept, got %v", out.Concepts)
	}
}

func TestPipelineNilComponents(t *testing.T) {
	p := NewPipeline(nil, nil)
	if p.Tokenizer() == nil || p.Taxonomy() == nil {
		t.Fatal("expected default components")
	}
}
