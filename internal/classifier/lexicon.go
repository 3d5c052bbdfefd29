package classifier

import (
	"context"
	"regexp"
	"strings"
)

var wordPattern = regexp.MustCompile(`[a-z]+(?:'[a-z]+)?`)

// DefaultKeywords covers the stock risk and optimism labels.
var DefaultKeywords = map[string][]string{
	"Risky":       {"risk", "risky", "lawsuit", "fraud", "default", "volatile", "exposure"},
	"Worried":     {"trouble", "worried", "worry", "concern", "concerns", "miss", "misses", "warning"},
	"Scared":      {"crash", "panic", "plunge", "plunges", "collapse", "fear", "scared"},
	"Problematic": {"problem", "problems", "scandal", "investigation", "breach", "recall", "probe"},
	"Optimistic":  {"beat", "beats", "surge", "surges", "record", "growth", "upgrade", "strong", "rally", "improves", "optimistic"},
}

// Lexicon scores labels by keyword hits: n hits score n/(n+1), so one hit gives 0.5 and none gives 0.
// It runs offline and needs no model.
type Lexicon struct {
	keywords map[string]map[string]struct{}
}

// NewLexicon builds a classifier from label -> keywords. A nil map uses DefaultKeywords.
func NewLexicon(keywords map[string][]string) *Lexicon {
	if keywords == nil {
		keywords = DefaultKeywords
	}
	l := &Lexicon{keywords: make(map[string]map[string]struct{}, len(keywords))}
	for label, words := range keywords {
		set := make(map[string]struct{}, len(words))
		for _, w := range words {
			if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
				set[w] = struct{}{}
			}
		}
		l.keywords[label] = set
	}
	return l
}

// Classify implements signal.Classifier. Unknown labels score 0.
func (l *Lexicon) Classify(ctx context.Context, text string, labels []string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	scores := make([]float64, len(labels))
	for i, label := range labels {
		set := l.keywords[label]
		hits := 0
		for _, w := range words {
			if _, ok := set[w]; ok {
				hits++
			}
		}
		scores[i] = float64(hits) / float64(hits+1)
	}
	return scores, nil
}
