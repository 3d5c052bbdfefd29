package signal

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

const (
	// DefaultRiskThreshold is the score a risk label must exceed for a feed to count as risky.
	DefaultRiskThreshold = 0.4
	// DefaultOptimismThreshold is the score the optimism label must exceed.
	DefaultOptimismThreshold = 0.5
)

var (
	// DefaultRiskLabels are scored together; the highest score decides.
	DefaultRiskLabels = []string{"Risky", "Worried", "Scared", "Problematic"}
	// DefaultOptimismLabels holds the single optimism label.
	DefaultOptimismLabels = []string{"Optimistic"}
)

// Thresholds configures how classifier scores become verdicts.
type Thresholds struct {
	Risk           float64
	Optimism       float64
	RiskLabels     []string
	OptimismLabels []string
}

// DefaultThresholds returns the stock risk/optimism cut-offs and label sets.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Risk:           DefaultRiskThreshold,
		Optimism:       DefaultOptimismThreshold,
		RiskLabels:     append([]string(nil), DefaultRiskLabels...),
		OptimismLabels: append([]string(nil), DefaultOptimismLabels...),
	}
}

// Aggregator reduces a feed batch into per-instrument verdicts.
// It holds no per-cycle state; every call to Evaluate starts from scratch.
type Aggregator struct {
	classifier Classifier
	matcher    *Matcher
	th         Thresholds
	log        zerolog.Logger
}

// NewAggregator wires a classifier and matcher. Missing label sets fall back to the defaults.
func NewAggregator(classifier Classifier, matcher *Matcher, th Thresholds, log zerolog.Logger) *Aggregator {
	if len(th.RiskLabels) == 0 {
		th.RiskLabels = append([]string(nil), DefaultRiskLabels...)
	}
	if len(th.OptimismLabels) == 0 {
		th.OptimismLabels = append([]string(nil), DefaultOptimismLabels...)
	}
	return &Aggregator{classifier: classifier, matcher: matcher, th: th, log: log}
}

// Evaluate classifies each feed at most once and folds the results into verdicts for instrumentIDs.
// Feeds that reference none of the instruments are never sent to the classifier.
// A classifier error aborts the whole evaluation.
func (a *Aggregator) Evaluate(ctx context.Context, feeds []Feed, instrumentIDs []string) (Verdicts, error) {
	verdicts := make(Verdicts, len(instrumentIDs))
	for _, id := range instrumentIDs {
		verdicts[id] = Verdict{}
	}
	if len(feeds) == 0 {
		return verdicts, nil
	}

	for i, feed := range feeds {
		relevant := a.matcher.Relevant(feed.Post, instrumentIDs)
		if len(relevant) == 0 {
			continue
		}

		risky, err := a.isRisky(ctx, feed.Post)
		if err != nil {
			return nil, fmt.Errorf("classify feed %d for risk: %w", i, err)
		}
		optimistic, err := a.isOptimistic(ctx, feed.Post)
		if err != nil {
			return nil, fmt.Errorf("classify feed %d for optimism: %w", i, err)
		}
		if !risky && !optimistic {
			continue
		}

		for _, id := range relevant {
			v := verdicts[id]
			v.Risky = v.Risky || risky
			v.Optimistic = v.Optimistic || optimistic
			verdicts[id] = v
		}
		a.log.Debug().Strs("instruments", relevant).Bool("risky", risky).Bool("optimistic", optimistic).Str("post", feed.Post).Msg("feed classified")
	}
	return verdicts, nil
}

func (a *Aggregator) isRisky(ctx context.Context, text string) (bool, error) {
	scores, err := a.score(ctx, text, a.th.RiskLabels)
	if err != nil {
		return false, err
	}
	return maxScore(scores) > a.th.Risk, nil
}

func (a *Aggregator) isOptimistic(ctx context.Context, text string) (bool, error) {
	scores, err := a.score(ctx, text, a.th.OptimismLabels)
	if err != nil {
		return false, err
	}
	return scores[0] > a.th.Optimism, nil
}

func (a *Aggregator) score(ctx context.Context, text string, labels []string) ([]float64, error) {
	scores, err := a.classifier.Classify(ctx, text, labels)
	if err != nil {
		return nil, err
	}
	if len(scores) != len(labels) {
		return nil, fmt.Errorf("classifier returned %d scores for %d labels", len(scores), len(labels))
	}
	return scores, nil
}

func maxScore(scores []float64) float64 {
	best := 0.0
	for _, s := range scores {
		if s > best {
			best = s
		}
	}
	return best
}
