package lexicon

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lexicon stores compound terms for dictionary-assisted segmentation:
// - Compounds: phrases kept as one token (new york -> New York)
// - Variants: alternative spellings mapped to the same canonical form
//
// Lookups are case-insensitive; the canonical form keeps its casing.
type Lexicon struct {
	// canonical -> all variants (including canonical itself), lowercased
	groups map[string][]string

	// lowercased variant -> canonical
	reverseIndex map[string]string

	// longest phrase, in words
	maxWords int
}

// New creates an empty lexicon.
func New() *Lexicon {
	return &Lexicon{
		groups:       make(map[string][]string),
		reverseIndex: make(map[string]string),
		maxWords:     1,
	}
}

// LoadFromYAML loads compound groups from a YAML file.
//
// Expected format:
//
//	compounds:
//	  - canonical: New York
//	    variants: [NYC, new york city]
//	  - canonical: e.g.
//	    variants: [eg]
func LoadFromYAML(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config struct {
		Compounds []struct {
			Canonical string   `yaml:"canonical"`
			Variants  []string `yaml:"variants"`
		} `yaml:"compounds"`
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse lexicon %s: %w", path, err)
	}

	lex := New()
	for _, entry := range config.Compounds {
		lex.AddGroup(entry.Canonical, entry.Variants)
	}

	return lex, nil
}

// AddGroup adds a canonical form and its variants.
// If the group already exists, old reverse index entries are cleaned up first.
func (l *Lexicon) AddGroup(canonical string, variants []string) {
	canonical = strings.Join(strings.Fields(canonical), " ")
	if canonical == "" {
		return
	}
	if old, exists := l.groups[canonical]; exists {
		for _, v := range old {
			delete(l.reverseIndex, v)
		}
	}

	normalized := make([]string, 0, len(variants)+1)
	seen := make(map[string]bool)
	for _, v := range append([]string{canonical}, variants...) {
		v = key(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		normalized = append(normalized, v)
		if n := len(strings.Fields(v)); n > l.maxWords {
			l.maxWords = n
		}
	}

	l.groups[canonical] = normalized
	for _, v := range normalized {
		l.reverseIndex[v] = canonical
	}
}

// Lookup returns the canonical form of a phrase. Words in phrase are
// separated by single spaces.
func (l *Lexicon) Lookup(phrase string) (string, bool) {
	canonical, ok := l.reverseIndex[key(phrase)]
	return canonical, ok
}

// MaxWords returns the word count of the longest known phrase.
func (l *Lexicon) MaxWords() int {
	return l.maxWords
}

// Stats returns statistics about the lexicon contents.
func (l *Lexicon) Stats() Stats {
	total := 0
	for _, variants := range l.groups {
		total += len(variants)
	}
	return Stats{Groups: len(l.groups), TotalVariants: total}
}

// Stats holds statistics about lexicon contents.
type Stats struct {
	Groups        int // Number of canonical forms
	TotalVariants int // Total number of variants across all groups
}

func key(phrase string) string {
	return strings.ToLower(strings.Join(strings.Fields(phrase), " "))
}
