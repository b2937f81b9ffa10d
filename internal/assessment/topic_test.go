package assessment

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestKeywordExtractor(t *testing.T) {
	k := NewKeywordExtractor(DefaultVocabulary())
	tests := []struct {
		question string
		want     string
		wantOK   bool
	}{
		{"What is the Spanish word for 'red'?", "colors", true},
		{"How do you say 'good morning'?", "greetings", true},
		{"Which word means MOTHER?", "family", true},
		{"Choose the color of the sky: blue", "colors", true},
		{"This is a test", "", false},
		{"Red, green or blue?", "colors", true},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := k.Extract(tt.question)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Extract(%q) = (%q, %v), want (%q, %v)", tt.question, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestKeywordExtractor_WholeWordsOnly(t *testing.T) {
	vocab, err := ParseVocabulary([]byte("topics:\n  - name: verbs\n    keywords: [go]\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	k := NewKeywordExtractor(vocab)
	if _, ok := k.Extract("Say goodbye"); ok {
		t.Fatal("substring 'go' in 'goodbye' must not match")
	}
	if topic, ok := k.Extract("Let's go home"); !ok || topic != "verbs" {
		t.Fatalf("Extract = (%q, %v), want verbs", topic, ok)
	}
}

func TestKeywordExtractor_TieGoesToFirstTopic(t *testing.T) {
	vocab, err := ParseVocabulary([]byte(`
topics:
  - name: zeta
    keywords: [shared]
  - name: alpha
    keywords: [shared]
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	topic, ok := NewKeywordExtractor(vocab).Extract("a shared word")
	if !ok || topic != "alpha" {
		t.Fatalf("Extract = (%q, %v), want alpha", topic, ok)
	}
}

func TestChainExtractor(t *testing.T) {
	never := ExtractorFunc(func(string) (string, bool) { return "", false })
	upper := ExtractorFunc(func(q string) (string, bool) {
		if strings.HasPrefix(q, "#") {
			return strings.TrimPrefix(q, "#"), true
		}
		return "", false
	})
	chain := ChainExtractor{never, upper, NewKeywordExtractor(DefaultVocabulary())}

	if got, _ := chain.Extract("#travel"); got != "travel" {
		t.Errorf("Extract(#travel) = %q", got)
	}
	if got, _ := chain.Extract("the red book"); got != "colors" {
		// colors and objects both hit once; colors sorts first.
		t.Errorf("Extract(the red book) = %q, want colors", got)
	}
	if _, ok := chain.Extract("nothing here"); ok {
		t.Error("expected no match")
	}
}

func TestParseVocabulary_Normalizes(t *testing.T) {
	vocab, err := ParseVocabulary([]byte(`
topics:
  - name: " Numbers "
    keywords: ["ONE", "one", "How  Many?"]
  - name: animals
    keywords: [dog]
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !slices.Equal(vocab.Names(), []string{"animals", "numbers"}) {
		t.Fatalf("names = %v", vocab.Names())
	}
	if !slices.Equal(vocab.Topics[1].Keywords, []string{"how many", "one"}) {
		t.Fatalf("keywords = %v", vocab.Topics[1].Keywords)
	}
	if !vocab.Contains("NUMBERS") || vocab.Contains("colors") {
		t.Fatal("Contains mismatch")
	}
}

func TestParseVocabulary_Errors(t *testing.T) {
	tests := map[string]string{
		"empty":     "topics: []\n",
		"no name":   "topics:\n  - keywords: [a]\n",
		"duplicate": "topics:\n  - name: a\n  - name: A\n",
		"bad yaml":  "topics: [\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseVocabulary([]byte(doc)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadVocabulary(t *testing.T) {
	v, err := LoadVocabulary("")
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	for _, topic := range []string{"colors", "numbers", "family", "greetings", "verbs", "objects"} {
		if !v.Contains(topic) {
			t.Errorf("default vocabulary missing %q", topic)
		}
	}

	path := filepath.Join(t.TempDir(), "topics.yaml")
	if err := os.WriteFile(path, []byte("topics:\n  - name: weather\n    keywords: [rain]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	v, err = LoadVocabulary(path)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	if !slices.Equal(v.Names(), []string{"weather"}) {
		t.Fatalf("names = %v", v.Names())
	}

	if _, err := LoadVocabulary(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
