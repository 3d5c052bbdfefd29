// Package signal turns unstructured sentiment feeds into per-instrument trading verdicts.
package signal

import (
	"context"
	"time"
)

// Feed is one unit of sentiment content polled from the venue.
type Feed struct {
	Post      string    `json:"post"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Verdict is the per-instrument outcome of one feed batch.
type Verdict struct {
	Risky      bool
	Optimistic bool
}

// Verdicts maps instrument IDs to their verdict for the current cycle.
// Instruments without an entry carry the zero verdict.
type Verdicts map[string]Verdict

// For returns the verdict for an instrument.
func (v Verdicts) For(instrumentID string) Verdict {
	return v[instrumentID]
}

// Classifier scores text against candidate labels.
// Scores are aligned positionally with labels and are independent confidences in [0, 1].
type Classifier interface {
	Classify(ctx context.Context, text string, labels []string) ([]float64, error)
}

// ClassifierFunc adapts a plain function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, text string, labels []string) ([]float64, error)

// Classify calls f.
func (f ClassifierFunc) Classify(ctx context.Context, text string, labels []string) ([]float64, error) {
	return f(ctx, text, labels)
}
