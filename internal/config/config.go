// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings.
const (
	EnvClassifierToken = "CLASSIFIER_TOKEN"
	EnvFeedURL         = "FEED_URL"
	EnvFeedToken       = "FEED_TOKEN"
	EnvLogLevel        = "LOG_LEVEL"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Instrument describes one tradable product and, for the paper venue, how to simulate it.
type Instrument struct {
	ID          string  `yaml:"id"`
	TickSize    float64 `yaml:"tick_size"`
	StartPrice  float64 `yaml:"start_price"`
	Volatility  float64 `yaml:"volatility"`
	SpreadTicks int     `yaml:"spread_ticks"`
	Depth       int     `yaml:"depth"`
	LevelVolume int     `yaml:"level_volume"`
}

// Paper captures paper-trading account settings.
type Paper struct {
	StartingCash float64 `yaml:"starting_cash"`
	Seed         int64   `yaml:"seed"`
	FillsPath    string  `yaml:"fills_path"`
}

// Exchange selects the venue and lists the instruments it trades.
type Exchange struct {
	Provider    string       `yaml:"provider"`
	Instruments []Instrument `yaml:"instruments"`
	Paper       Paper        `yaml:"paper"`
}

// Quoting holds the pricing knobs shared by every instrument.
type Quoting struct {
	QuotedVolume       int     `yaml:"quoted_volume"`
	FixedMinimumCredit float64 `yaml:"fixed_minimum_credit"`
	PriceRetreatPerLot float64 `yaml:"price_retreat_per_lot"`
	PositionLimit      int     `yaml:"position_limit"`
}

// Signals configures sentiment flags and which names map to which instrument.
type Signals struct {
	RiskThreshold     float64             `yaml:"risk_threshold"`
	OptimismThreshold float64             `yaml:"optimism_threshold"`
	RiskLabels        []string            `yaml:"risk_labels"`
	OptimismLabels    []string            `yaml:"optimism_labels"`
	Aliases           map[string][]string `yaml:"aliases"`
}

// Classifier selects the sentiment model.
type Classifier struct {
	Provider  string              `yaml:"provider"` // http|lexicon
	URL       string              `yaml:"url"`
	Token     string              `yaml:"token,omitempty"`
	TimeoutMs int                 `yaml:"timeout_ms"`
	Keywords  map[string][]string `yaml:"keywords"`
}

// Feeds selects where social posts come from.
type Feeds struct {
	Source         string   `yaml:"source"` // queue|websocket|http
	URL            string   `yaml:"url"`
	Token          string   `yaml:"token,omitempty"`
	PollIntervalMs int      `yaml:"poll_interval_ms"`
	Buffer         int      `yaml:"buffer"`
	Seed           []string `yaml:"seed"`
}

// Schedule holds the loop timings.
type Schedule struct {
	RefreshIntervalMs int `yaml:"refresh_interval_ms"`
	CooldownMs        int `yaml:"cooldown_ms"`
	OrderDelayMs      int `yaml:"order_delay_ms"`
}

// RefreshInterval is the pause between cycles.
func (s Schedule) RefreshInterval() time.Duration {
	return time.Duration(s.RefreshIntervalMs) * time.Millisecond
}

// Cooldown is the pause after a flatten.
func (s Schedule) Cooldown() time.Duration { return time.Duration(s.CooldownMs) * time.Millisecond }

// OrderDelay is the pause after each insert.
func (s Schedule) OrderDelay() time.Duration { return time.Duration(s.OrderDelayMs) * time.Millisecond }

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App        App        `yaml:"app"`
	Exchange   Exchange   `yaml:"exchange"`
	Quoting    Quoting    `yaml:"quoting"`
	Signals    Signals    `yaml:"signals"`
	Classifier Classifier `yaml:"classifier"`
	Feeds      Feeds      `yaml:"feeds"`
	Schedule   Schedule   `yaml:"schedule"`
}

// DefaultAliases maps each stock instrument to the names posts use for it.
func DefaultAliases() map[string][]string {
	return map[string][]string{
		"CSCO": {"Cisco", "Cisco's"},
		"NVDA": {"Nvidia", "Nvidia's"},
		"ING":  {"ING", "ING's"},
		"PFE":  {"Pfizer", "Pfizer's"},
		"SAN":  {"Santander", "Santander's"},
	}
}

// Default returns a complete configuration for a paper run over the stock instruments.
func Default() *Config {
	return &Config{
		App: App{Name: "quotebot", Env: "dev", MetricsAddr: ":9100", LogLevel: "info"},
		Exchange: Exchange{
			Provider: "paper",
			Instruments: []Instrument{
				{ID: "CSCO", TickSize: 0.01, StartPrice: 50, Volatility: 0.02, SpreadTicks: 4, Depth: 5, LevelVolume: 50},
				{ID: "ING", TickSize: 0.01, StartPrice: 12, Volatility: 0.01, SpreadTicks: 4, Depth: 5, LevelVolume: 50},
				{ID: "NVDA", TickSize: 0.01, StartPrice: 120, Volatility: 0.05, SpreadTicks: 4, Depth: 5, LevelVolume: 50},
				{ID: "PFE", TickSize: 0.01, StartPrice: 28, Volatility: 0.01, SpreadTicks: 4, Depth: 5, LevelVolume: 50},
				{ID: "SAN", TickSize: 0.01, StartPrice: 4, Volatility: 0.005, SpreadTicks: 4, Depth: 5, LevelVolume: 50},
			},
			Paper: Paper{StartingCash: 100_000},
		},
		Quoting: Quoting{
			QuotedVolume:       10,
			FixedMinimumCredit: 0.15,
			PriceRetreatPerLot: 0.005,
			PositionLimit:      100,
		},
		Signals: Signals{
			RiskThreshold:     0.4,
			OptimismThreshold: 0.5,
			RiskLabels:        []string{"Risky", "Worried", "Scared", "Problematic"},
			OptimismLabels:    []string{"Optimistic"},
			Aliases:           DefaultAliases(),
		},
		Classifier: Classifier{Provider: "lexicon", TimeoutMs: 10_000},
		Feeds:      Feeds{Source: "queue", PollIntervalMs: 1000, Buffer: 1024},
		Schedule:   Schedule{RefreshIntervalMs: 2000, CooldownMs: 10_000, OrderDelayMs: 50},
	}
}

// Load reads a YAML file from disk and hydrates a Config struct. Fields the file leaves empty take
// their Default values.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	config.fillDefaults(Default())
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ApplyEnv overrides secrets and endpoints from the environment, reading .env first when present.
// Variables already set in the process win over .env entries.
func (c *Config) ApplyEnv() {
	_ = godotenv.Load() // best-effort
	if v := strings.TrimSpace(os.Getenv(EnvClassifierToken)); v != "" {
		c.Classifier.Token = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvFeedURL)); v != "" {
		c.Feeds.URL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvFeedToken)); v != "" {
		c.Feeds.Token = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.App.LogLevel = v
	}
}

func (c *Config) fillDefaults(d *Config) {
	if c.App.Name == "" {
		c.App.Name = d.App.Name
	}
	if c.App.Env == "" {
		c.App.Env = d.App.Env
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = d.App.LogLevel
	}
	if c.Exchange.Provider == "" {
		c.Exchange.Provider = d.Exchange.Provider
	}
	if len(c.Exchange.Instruments) == 0 {
		c.Exchange.Instruments = d.Exchange.Instruments
	}
	if c.Exchange.Paper.StartingCash == 0 {
		c.Exchange.Paper.StartingCash = d.Exchange.Paper.StartingCash
	}
	if c.Quoting.QuotedVolume == 0 {
		c.Quoting.QuotedVolume = d.Quoting.QuotedVolume
	}
	if c.Quoting.FixedMinimumCredit == 0 {
		c.Quoting.FixedMinimumCredit = d.Quoting.FixedMinimumCredit
	}
	if c.Quoting.PriceRetreatPerLot == 0 {
		c.Quoting.PriceRetreatPerLot = d.Quoting.PriceRetreatPerLot
	}
	if c.Quoting.PositionLimit == 0 {
		c.Quoting.PositionLimit = d.Quoting.PositionLimit
	}
	if c.Signals.RiskThreshold == 0 {
		c.Signals.RiskThreshold = d.Signals.RiskThreshold
	}
	if c.Signals.OptimismThreshold == 0 {
		c.Signals.OptimismThreshold = d.Signals.OptimismThreshold
	}
	if len(c.Signals.RiskLabels) == 0 {
		c.Signals.RiskLabels = d.Signals.RiskLabels
	}
	if len(c.Signals.OptimismLabels) == 0 {
		c.Signals.OptimismLabels = d.Signals.OptimismLabels
	}
	if len(c.Signals.Aliases) == 0 {
		c.Signals.Aliases = d.Signals.Aliases
	}
	if c.Classifier.Provider == "" {
		c.Classifier.Provider = d.Classifier.Provider
	}
	if c.Classifier.TimeoutMs == 0 {
		c.Classifier.TimeoutMs = d.Classifier.TimeoutMs
	}
	if c.Feeds.Source == "" {
		c.Feeds.Source = d.Feeds.Source
	}
	if c.Feeds.PollIntervalMs == 0 {
		c.Feeds.PollIntervalMs = d.Feeds.PollIntervalMs
	}
	if c.Feeds.Buffer == 0 {
		c.Feeds.Buffer = d.Feeds.Buffer
	}
	if c.Schedule.RefreshIntervalMs == 0 {
		c.Schedule.RefreshIntervalMs = d.Schedule.RefreshIntervalMs
	}
	if c.Schedule.CooldownMs == 0 {
		c.Schedule.CooldownMs = d.Schedule.CooldownMs
	}
	if c.Schedule.OrderDelayMs == 0 {
		c.Schedule.OrderDelayMs = d.Schedule.OrderDelayMs
	}
}

// Validate reports every setting the engine cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Exchange.Provider != "paper" {
		errs = append(errs, fmt.Errorf("exchange.provider %q is not supported", c.Exchange.Provider))
	}
	seen := make(map[string]bool, len(c.Exchange.Instruments))
	for i, inst := range c.Exchange.Instruments {
		if inst.ID == "" {
			errs = append(errs, fmt.Errorf("exchange.instruments[%d]: id is required", i))
			continue
		}
		if seen[inst.ID] {
			errs = append(errs, fmt.Errorf("exchange.instruments: duplicate id %s", inst.ID))
		}
		seen[inst.ID] = true
		if inst.TickSize <= 0 {
			errs = append(errs, fmt.Errorf("exchange.instruments[%s]: tick_size must be positive", inst.ID))
		}
		if inst.StartPrice <= 0 {
			errs = append(errs, fmt.Errorf("exchange.instruments[%s]: start_price must be positive", inst.ID))
		}
		if inst.Volatility < 0 {
			errs = append(errs, fmt.Errorf("exchange.instruments[%s]: volatility must not be negative", inst.ID))
		}
	}
	if c.Quoting.QuotedVolume <= 0 {
		errs = append(errs, errors.New("quoting.quoted_volume must be positive"))
	}
	if c.Quoting.FixedMinimumCredit < 0 || c.Quoting.PriceRetreatPerLot < 0 {
		errs = append(errs, errors.New("quoting credit and retreat must not be negative"))
	}
	if c.Quoting.PositionLimit <= 0 {
		errs = append(errs, errors.New("quoting.position_limit must be positive"))
	}
	if c.Signals.RiskThreshold < 0 || c.Signals.RiskThreshold > 1 {
		errs = append(errs, errors.New("signals.risk_threshold must be within [0,1]"))
	}
	if c.Signals.OptimismThreshold < 0 || c.Signals.OptimismThreshold > 1 {
		errs = append(errs, errors.New("signals.optimism_threshold must be within [0,1]"))
	}
	for _, id := range sortedKeys(c.Signals.Aliases) {
		if !seen[id] {
			errs = append(errs, fmt.Errorf("signals.aliases: %s is not a configured instrument", id))
		}
	}
	switch c.Classifier.Provider {
	case "lexicon":
	case "http":
		if c.Classifier.URL == "" {
			errs = append(errs, errors.New("classifier.url is required for the http provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("classifier.provider %q is not supported", c.Classifier.Provider))
	}
	switch c.Feeds.Source {
	case "queue":
	case "websocket", "http":
		if c.Feeds.URL == "" {
			errs = append(errs, fmt.Errorf("feeds.url is required for the %s source", c.Feeds.Source))
		}
	default:
		errs = append(errs, fmt.Errorf("feeds.source %q is not supported", c.Feeds.Source))
	}
	if c.Schedule.RefreshIntervalMs < 0 || c.Schedule.CooldownMs < 0 || c.Schedule.OrderDelayMs < 0 {
		errs = append(errs, errors.New("schedule timings must not be negative"))
	}
	return errors.Join(errs...)
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
