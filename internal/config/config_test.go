package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	path := filepath.Join("testdata", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Name != "quotebot-test" {
		t.Fatalf("unexpected App.Name: %s", cfg.App.Name)
	}
	if cfg.App.LogLevel != "debug" || cfg.App.MetricsAddr != ":9200" {
		t.Fatalf("unexpected app section: %+v", cfg.App)
	}
	if len(cfg.Exchange.Instruments) != 2 || cfg.Exchange.Instruments[0].ID != "CSCO" {
		t.Fatalf("unexpected instruments: %+v", cfg.Exchange.Instruments)
	}
	if cfg.Exchange.Instruments[0].SpreadTicks != 20 || cfg.Exchange.Instruments[1].TickSize != 0.05 {
		t.Fatalf("unexpected instrument details: %+v", cfg.Exchange.Instruments)
	}
	if cfg.Exchange.Paper.StartingCash != 5000 || cfg.Exchange.Paper.Seed != 42 {
		t.Fatalf("unexpected paper section: %+v", cfg.Exchange.Paper)
	}
	if cfg.Quoting.QuotedVolume != 8 || cfg.Quoting.PositionLimit != 50 {
		t.Fatalf("unexpected quoting: %+v", cfg.Quoting)
	}
	if cfg.Signals.RiskThreshold != 0.35 {
		t.Fatalf("unexpected risk threshold: %.2f", cfg.Signals.RiskThreshold)
	}
	if got := cfg.Signals.Aliases["CSCO"]; len(got) != 2 || got[1] != "Cisco's" {
		t.Fatalf("unexpected CSCO aliases: %v", got)
	}
	if cfg.Classifier.Provider != "http" || cfg.Classifier.TimeoutMs != 2500 {
		t.Fatalf("unexpected classifier: %+v", cfg.Classifier)
	}
	if cfg.Feeds.Source != "websocket" || len(cfg.Feeds.Seed) != 1 {
		t.Fatalf("unexpected feeds: %+v", cfg.Feeds)
	}
	if cfg.Schedule.RefreshInterval() != 500*time.Millisecond {
		t.Fatalf("unexpected refresh: %s", cfg.Schedule.RefreshInterval())
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("fixture should validate: %v", err)
	}
}

func TestLoadFillsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "config.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Quoting.FixedMinimumCredit != 0.15 || cfg.Quoting.PriceRetreatPerLot != 0.005 {
		t.Fatalf("expected quoting defaults, got %+v", cfg.Quoting)
	}
	if cfg.Signals.OptimismThreshold != 0.5 || len(cfg.Signals.RiskLabels) != 4 {
		t.Fatalf("expected signal defaults, got %+v", cfg.Signals)
	}
	if cfg.Schedule.Cooldown() != 10*time.Second || cfg.Schedule.OrderDelay() != 50*time.Millisecond {
		t.Fatalf("expected schedule defaults, got %+v", cfg.Schedule)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.Quoting.QuotedVolume = 25
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded.Quoting.QuotedVolume != 25 || len(loaded.Exchange.Instruments) != 5 {
		t.Fatalf("unexpected reloaded config: %+v", loaded.Quoting)
	}
	if err := Save(path, nil); err == nil {
		t.Fatal("expected error saving nil config")
	}
}

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if got := DefaultAliases()["SAN"]; got[1] != "Santander's" {
		t.Fatalf("unexpected SAN aliases: %v", got)
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Exchange.Provider = "binance"
	cfg.Quoting.PositionLimit = 0
	cfg.Classifier.Provider = "http"
	cfg.Feeds.Source = "carrier-pigeon"
	cfg.Signals.Aliases["MSFT"] = []string{"Microsoft"}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"exchange.provider", "position_limit", "classifier.url", "feeds.source", "MSFT"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvClassifierToken, "secret")
	t.Setenv(EnvFeedURL, "ws://feeds")
	t.Setenv(EnvLogLevel, "")
	cfg := Default()
	cfg.ApplyEnv()
	if cfg.Classifier.Token != "secret" || cfg.Feeds.URL != "ws://feeds" {
		t.Fatalf("env not applied: %+v %+v", cfg.Classifier, cfg.Feeds)
	}
	if cfg.App.LogLevel != "info" {
		t.Fatalf("empty env should not override log level, got %s", cfg.App.LogLevel)
	}
}
