package ingest

import (
	"reflect"
	"testing"

	"github.com/cognicore/entcorpus/pkg/entcorpus/lexicon"
)

func newLexicon(groups map[string][]string) *lexicon.Lexicon {
	lex := lexicon.New()
	for canonical, variants := range groups {
		lex.AddGroup(canonical, variants)
	}
	return lex
}

func TestMultiTokenBasic(t *testing.T) {
	parser := NewMultiTokenParser(newLexicon(map[string][]string{
		"machine learning": {"ml"},
		"neural network":   {"nn"},
	}), "_")

	tokens := []string{"deep", "machine", "learning", "uses", "neural", "network"}
	result := parser.Parse(tokens)

	expected := []string{"deep", "machine_learning", "uses", "neural_network"}
	if !reflect.DeepEqual(result, expected) {
		t.Errorf("Expected %v, got %v", expected, result)
	}
}

func TestMultiTokenVariantNormalization(t *testing.T) {
	parser := NewMultiTokenParser(newLexicon(map[string][]string{
		"machine learning": {"ml"},
	}), "_")

	result := parser.Parse([]string{"using", "ML", "for", "prediction"})
	expected := []string{"using", "machine_learning", "for", "prediction"}
	if !reflect.DeepEqual(result, expected) {
		t.Errorf("Expected %v, got %v", expected, result)
	}
}

func TestMultiTokenGreedyLongest(t *testing.T) {
	parser := NewMultiTokenParser(newLexicon(map[string][]string{
		"language model":       nil,
		"large language model": {"llm"},
	}), "_")

	result := parser.Parse([]string{"large", "language", "model", "training"})
	if result[0] != "large_language_model" {
		t.Errorf("Should match longest phrase, got %v", result)
	}
	if len(result) != 2 {
		t.Errorf("Expected 2 tokens, got %v", result)
	}
}

func TestMultiTokenKeepsCanonicalCase(t *testing.T) {
	parser := NewMultiTokenParser(newLexicon(map[string][]string{
		"New York": nil,
	}), " ")

	result := parser.Parse([]string{"NEW", "YORK", "times"})
	expected := []string{"New York", "times"}
	if !reflect.DeepEqual(result, expected) {
		t.Errorf("Expected %v, got %v", expected, result)
	}
}

func TestMultiTokenNilLexicon(t *testing.T) {
	parser := NewMultiTokenParser(nil, "_")
	tokens := []string{"a", "b"}
	if result := parser.Parse(tokens); !reflect.DeepEqual(result, tokens) {
		t.Errorf("Expected passthrough, got %v", result)
	}
}

func TestMultiTokenEmpty(t *testing.T) {
	parser := NewMultiTokenParser(lexicon.New(), "_")
	if result := parser.Parse(nil); len(result) != 0 {
		t.Errorf("Expected empty result, got %v", result)
	}
}
