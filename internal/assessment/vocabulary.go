package assessment

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/linguaforge/linguaforge/internal/content"
)

//go:embed topics.yaml
var defaultVocabularyYAML []byte

// Vocabulary is the set of known topic tags and the keywords that identify
// them in question text.
type Vocabulary struct {
	Topics []TopicEntry `yaml:"topics"`
}

// TopicEntry is one topic tag with its keywords.
type TopicEntry struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// DefaultVocabulary returns the embedded vocabulary.
func DefaultVocabulary() *Vocabulary {
	v, err := ParseVocabulary(defaultVocabularyYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded topic vocabulary is invalid: %v", err))
	}
	return v
}

// LoadVocabulary reads a vocabulary file. An empty path yields the default.
func LoadVocabulary(path string) (*Vocabulary, error) {
	if path == "" {
		return DefaultVocabulary(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read topic vocabulary: %w", err)
	}
	return ParseVocabulary(data)
}

// ParseVocabulary decodes YAML and normalizes it: names and keywords are
// lowercased and tokenized, topics are sorted by name.
func ParseVocabulary(data []byte) (*Vocabulary, error) {
	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse topic vocabulary: %w", err)
	}
	if len(v.Topics) == 0 {
		return nil, fmt.Errorf("topic vocabulary is empty")
	}

	seen := make(map[string]bool, len(v.Topics))
	for i := range v.Topics {
		t := &v.Topics[i]
		t.Name = content.NormalizeTopic(t.Name)
		if t.Name == "" {
			return nil, fmt.Errorf("topic %d has no name", i)
		}
		if seen[t.Name] {
			return nil, fmt.Errorf("duplicate topic %q", t.Name)
		}
		seen[t.Name] = true

		keywords := make([]string, 0, len(t.Keywords))
		for _, kw := range t.Keywords {
			if norm := strings.Join(tokenize(kw), " "); norm != "" {
				keywords = append(keywords, norm)
			}
		}
		slices.Sort(keywords)
		t.Keywords = slices.Compact(keywords)
	}

	slices.SortFunc(v.Topics, func(a, b TopicEntry) int { return strings.Compare(a.Name, b.Name) })
	return &v, nil
}

// Names returns the topic tags in sorted order.
func (v *Vocabulary) Names() []string {
	names := make([]string, len(v.Topics))
	for i, t := range v.Topics {
		names[i] = t.Name
	}
	return names
}

// Contains reports whether topic is a known tag (case-insensitive).
func (v *Vocabulary) Contains(topic string) bool {
	topic = content.NormalizeTopic(topic)
	_, found := slices.BinarySearchFunc(v.Topics, topic, func(e TopicEntry, t string) int {
		return strings.Compare(e.Name, t)
	})
	return found
}
