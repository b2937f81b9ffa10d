package assessment

import (
	"strings"
	"unicode"
)

// TopicExtractor infers a topic from a challenge's question text.
// It returns ("", false) when no topic applies.
type TopicExtractor interface {
	Name() string
	Extract(question string) (string, bool)
}

// ExtractorFunc adapts a plain function to TopicExtractor.
type ExtractorFunc func(question string) (string, bool)

func (f ExtractorFunc) Name() string { return "func" }

func (f ExtractorFunc) Extract(question string) (string, bool) { return f(question) }

// ChainExtractor runs extractors in order and returns the first match.
type ChainExtractor []TopicExtractor

func (c ChainExtractor) Name() string { return "chain" }

func (c ChainExtractor) Extract(question string) (string, bool) {
	for _, e := range c {
		if topic, ok := e.Extract(question); ok {
			return topic, true
		}
	}
	return "", false
}

// KeywordExtractor matches whole words and phrases of the question against a
// topic vocabulary. The topic with the most distinct keyword hits wins; ties
// go to the topic that sorts first.
type KeywordExtractor struct {
	vocab *Vocabulary
}

// NewKeywordExtractor creates an extractor over vocab.
func NewKeywordExtractor(vocab *Vocabulary) *KeywordExtractor {
	return &KeywordExtractor{vocab: vocab}
}

func (k *KeywordExtractor) Name() string { return "keyword" }

func (k *KeywordExtractor) Extract(question string) (string, bool) {
	words := tokenize(question)
	if len(words) == 0 {
		return "", false
	}
	joined := " " + strings.Join(words, " ") + " "

	best, bestHits := "", 0
	for _, topic := range k.vocab.Topics {
		hits := 0
		for _, kw := range topic.Keywords {
			if strings.Contains(joined, " "+kw+" ") {
				hits++
			}
		}
		// Topics are sorted by name, so a strict comparison keeps the
		// alphabetically first topic on ties.
		if hits > bestHits {
			best, bestHits = topic.Name, hits
		}
	}
	return best, bestHits > 0
}

// tokenize lowercases s and splits it into letter/digit runs. Quotes and
// punctuation act as separators.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
