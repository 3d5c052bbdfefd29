// Package classifier holds the zero-shot sentiment classifiers the aggregator can be wired to.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrBadResponse is returned when the inference endpoint answers with something that cannot be
// mapped back onto the requested labels.
var ErrBadResponse = errors.New("bad classifier response")

type zeroShotRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters zeroShotParameters `json:"parameters"`
}

type zeroShotParameters struct {
	CandidateLabels []string `json:"candidate_labels"`
	MultiLabel      bool     `json:"multi_label"`
}

// zeroShotResponse is the {"sequence","labels","scores"} shape; labels come back sorted by score.
type zeroShotResponse struct {
	Sequence string    `json:"sequence"`
	Labels   []string  `json:"labels"`
	Scores   []float64 `json:"scores"`
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// HTTP calls a hosted zero-shot classification endpoint with multi-label scoring, so each label
// gets an independent probability.
type HTTP struct {
	URL    string
	Token  string
	Client *http.Client
}

// NewHTTP builds a client for url; token may be empty for unauthenticated endpoints.
func NewHTTP(url, token string, timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTP{
		URL:    url,
		Token:  token,
		Client: &http.Client{Timeout: timeout},
	}
}

// Classify returns one score per label, in the order the labels were given.
func (c *HTTP) Classify(ctx context.Context, text string, labels []string) ([]float64, error) {
	if len(labels) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(zeroShotRequest{
		Inputs:     text,
		Parameters: zeroShotParameters{CandidateLabels: labels, MultiLabel: true},
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classifier request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier status %d: %s", resp.StatusCode, snippet(raw))
	}

	byLabel, err := decodeScores(raw)
	if err != nil {
		return nil, err
	}
	scores := make([]float64, len(labels))
	for i, label := range labels {
		score, ok := byLabel[label]
		if !ok {
			return nil, fmt.Errorf("%w: label %q missing", ErrBadResponse, label)
		}
		scores[i] = score
	}
	return scores, nil
}

// decodeScores accepts the object form, a one-element array of it, or a flat [{label,score}] list.
func decodeScores(raw []byte) (map[string]float64, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrBadResponse)
	}

	var obj zeroShotResponse
	switch trimmed[0] {
	case '{':
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
		}
	case '[':
		var wrapped []zeroShotResponse
		if err := json.Unmarshal(trimmed, &wrapped); err == nil && len(wrapped) == 1 && len(wrapped[0].Labels) > 0 {
			obj = wrapped[0]
			break
		}
		var pairs []labelScore
		if err := json.Unmarshal(trimmed, &pairs); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
		}
		for _, p := range pairs {
			obj.Labels = append(obj.Labels, p.Label)
			obj.Scores = append(obj.Scores, p.Score)
		}
	default:
		return nil, fmt.Errorf("%w: unexpected body %s", ErrBadResponse, snippet(trimmed))
	}

	if len(obj.Labels) != len(obj.Scores) {
		return nil, fmt.Errorf("%w: %d labels but %d scores", ErrBadResponse, len(obj.Labels), len(obj.Scores))
	}
	out := make(map[string]float64, len(obj.Labels))
	for i, label := range obj.Labels {
		out[label] = obj.Scores[i]
	}
	return out, nil
}

func snippet(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
