package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"quotebot-go/internal/signal"
)

func TestHTTPClassifyRealignsLabels(t *testing.T) {
	var got zeroShotRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("missing bearer token, got %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		// sorted by score, not by request order
		_, _ = w.Write([]byte(`{"sequence":"Cisco is in trouble","labels":["Worried","Risky","Scared"],"scores":[0.6,0.2,0.1]}`))
	}))
	defer server.Close()

	c := NewHTTP(server.URL, "tok", time.Second)
	scores, err := c.Classify(context.Background(), "Cisco is in trouble", []string{"Risky", "Worried", "Scared"})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	want := []float64{0.2, 0.6, 0.1}
	for i := range want {
		if scores[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, scores)
		}
	}
	if got.Inputs != "Cisco is in trouble" || !got.Parameters.MultiLabel || len(got.Parameters.CandidateLabels) != 3 {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestHTTPClassifyAcceptsPairList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"label":"Optimistic","score":0.8}]`))
	}))
	defer server.Close()

	scores, err := NewHTTP(server.URL, "", 0).Classify(context.Background(), "Nvidia beats", []string{"Optimistic"})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if len(scores) != 1 || scores[0] != 0.8 {
		t.Fatalf("unexpected scores %v", scores)
	}
}

func TestHTTPUsesConfiguredClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"labels":["Optimistic"],"scores":[0.7]}`))
	}))
	defer server.Close()

	c := NewHTTP(server.URL, "", 0)
	if c.Client == nil || c.Client.Timeout != 10*time.Second {
		t.Fatalf("expected default client with 10s timeout, got %+v", c.Client)
	}
	c.Client = server.Client()
	scores, err := c.Classify(context.Background(), "Nvidia beats", []string{"Optimistic"})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if len(scores) != 1 || scores[0] != 0.7 {
		t.Fatalf("unexpected scores %v", scores)
	}
}

func TestHTTPClassifyErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		bad    bool
	}{
		{name: "status", status: http.StatusServiceUnavailable, body: `{"error":"loading"}`},
		{name: "missing label", status: http.StatusOK, body: `{"labels":["Risky"],"scores":[0.3]}`, bad: true},
		{name: "length mismatch", status: http.StatusOK, body: `{"labels":["Risky","Worried"],"scores":[0.3]}`, bad: true},
		{name: "garbage", status: http.StatusOK, body: `oops`, bad: true},
	}
	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(tc.body))
		}))
		_, err := NewHTTP(server.URL, "", time.Second).Classify(context.Background(), "x", []string{"Risky", "Worried"})
		server.Close()
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if tc.bad && !errors.Is(err, ErrBadResponse) {
			t.Fatalf("%s: expected ErrBadResponse, got %v", tc.name, err)
		}
	}
}

func TestLexiconScores(t *testing.T) {
	lex := NewLexicon(nil)
	scores, err := lex.Classify(context.Background(), "Cisco is in trouble, worried about a crash", []string{"Risky", "Worried", "Scared", "Unknown"})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if scores[0] != 0 {
		t.Fatalf("expected no risky hits, got %v", scores[0])
	}
	if scores[1] < 0.66 || scores[1] > 0.67 {
		t.Fatalf("expected two worried hits to score 2/3, got %v", scores[1])
	}
	if scores[2] != 0.5 || scores[3] != 0 {
		t.Fatalf("unexpected scores %v", scores)
	}
}

func TestLexiconDrivesAggregator(t *testing.T) {
	m, err := signal.NewMatcher(map[string][]string{"CSCO": {"Cisco", "Cisco's"}})
	if err != nil {
		t.Fatalf("matcher: %v", err)
	}
	agg := signal.NewAggregator(NewLexicon(nil), m, signal.DefaultThresholds(), zerolog.Nop())
	verdicts, err := agg.Evaluate(context.Background(), []signal.Feed{{Post: "Cisco is in trouble"}}, []string{"CSCO"})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !verdicts.For("CSCO").Risky || verdicts.For("CSCO").Optimistic {
		t.Fatalf("unexpected verdict %+v", verdicts.For("CSCO"))
	}
}

var (
	_ signal.Classifier = (*HTTP)(nil)
	_ signal.Classifier = (*Lexicon)(nil)
)
