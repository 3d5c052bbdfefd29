package main

import (
	"context"
	"errors"
	"flag"
	"os"
	ossignal "os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"quotebot-go/internal/classifier"
	"quotebot-go/internal/config"
	"quotebot-go/internal/engine"
	"quotebot-go/internal/exchange"
	"quotebot-go/internal/execution"
	"quotebot-go/internal/metrics"
	"quotebot-go/internal/paper"
	sig "quotebot-go/internal/signal"
	"quotebot-go/internal/strategy"
	"quotebot-go/internal/util"
)

const defaultConfigPath = "config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to the YAML config; missing file runs on defaults")
	flag.Parse()

	cfg, loadErr := loadConfig(*configPath)
	cfg.ApplyEnv()
	log := util.NewLogger(cfg.App.LogLevel).With().Str("app", cfg.App.Name).Logger()
	if loadErr != nil {
		log.Warn().Err(loadErr).Str("path", *configPath).Msg("config not loaded, using defaults")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	if cfg.App.MetricsAddr != "" {
		_ = metrics.Serve(cfg.App.MetricsAddr)
		log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")
	}

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	feeds := startFeeds(ctx, cfg, log)

	ledger := paper.NewLedger(1024)
	recorders := []paper.FillRecorder{ledger}
	if path := cfg.Exchange.Paper.FillsPath; path != "" {
		rec, err := paper.NewJSONLRecorder(path)
		if err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("open fills file")
		}
		defer rec.Close()
		recorders = append(recorders, rec)
	}
	account := paper.NewAccount(cfg.Exchange.Paper.StartingCash, cfg.Quoting.PositionLimit, recorders...)

	var venueOpts []exchange.PaperOption
	if cfg.Exchange.Paper.Seed != 0 {
		venueOpts = append(venueOpts, exchange.WithSeed(cfg.Exchange.Paper.Seed))
	}
	venue := exchange.NewPaper(paperInstruments(cfg), account, feeds, log.With().Str("component", "paper").Logger(), venueOpts...)
	if err := venue.Connect(ctx); err != nil {
		log.Fatal().Err(err).Msg("connect exchange")
	}

	matcher, err := sig.NewMatcher(cfg.Signals.Aliases)
	if err != nil {
		log.Fatal().Err(err).Msg("compile aliases")
	}
	agg := sig.NewAggregator(newClassifier(cfg), matcher, sig.Thresholds{
		Risk:           cfg.Signals.RiskThreshold,
		Optimism:       cfg.Signals.OptimismThreshold,
		RiskLabels:     cfg.Signals.RiskLabels,
		OptimismLabels: cfg.Signals.OptimismLabels,
	}, log.With().Str("component", "signals").Logger())

	quoter := strategy.NewQuoter(strategy.Params{
		QuotedVolume:       cfg.Quoting.QuotedVolume,
		FixedMinimumCredit: cfg.Quoting.FixedMinimumCredit,
		PriceRetreatPerLot: cfg.Quoting.PriceRetreatPerLot,
		PositionLimit:      cfg.Quoting.PositionLimit,
	})
	exec := execution.NewExecutor(venue, cfg.Schedule.OrderDelay(), log.With().Str("component", "execution").Logger())
	eng := engine.New(venue, agg, quoter, exec, log,
		engine.WithRefresh(cfg.Schedule.RefreshInterval()),
		engine.WithCooldown(cfg.Schedule.Cooldown()),
	)

	if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("engine stopped")
	}
	logFills(log, ledger, cfg)
	log.Info().Msg("shutting down")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Default(), err
	}
	return cfg, nil
}

// startFeeds builds the configured feed source and starts its receive loop when it has one.
func startFeeds(ctx context.Context, cfg *config.Config, log zerolog.Logger) exchange.FeedSource {
	flog := log.With().Str("component", "feeds").Str("source", cfg.Feeds.Source).Logger()
	switch cfg.Feeds.Source {
	case exchange.FeedWebsocket:
		opts := []exchange.WebsocketOption{exchange.WithBufferSize(cfg.Feeds.Buffer)}
		if cfg.Feeds.Token != "" {
			opts = append(opts, exchange.WithHeader("Authorization", "Bearer "+cfg.Feeds.Token))
		}
		feed := exchange.NewWebsocketFeed(cfg.Feeds.URL, flog, opts...)
		feed.PushPosts(cfg.Feeds.Seed...)
		go runFeed(ctx, flog, feed.Run)
		return feed
	case exchange.FeedHTTP:
		feed := exchange.NewHTTPFeed(cfg.Feeds.URL, flog,
			exchange.WithPollInterval(time.Duration(cfg.Feeds.PollIntervalMs)*time.Millisecond),
			exchange.WithBearerToken(cfg.Feeds.Token),
			exchange.WithPollBufferSize(cfg.Feeds.Buffer),
		)
		feed.PushPosts(cfg.Feeds.Seed...)
		go runFeed(ctx, flog, feed.Run)
		return feed
	default:
		queue := exchange.NewQueueFeed(cfg.Feeds.Buffer)
		queue.PushPosts(cfg.Feeds.Seed...)
		return queue
	}
}

func runFeed(ctx context.Context, log zerolog.Logger, run func(context.Context) error) {
	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("feed stopped")
	}
}

func newClassifier(cfg *config.Config) sig.Classifier {
	if cfg.Classifier.Provider == "http" {
		return classifier.NewHTTP(cfg.Classifier.URL, cfg.Classifier.Token, time.Duration(cfg.Classifier.TimeoutMs)*time.Millisecond)
	}
	return classifier.NewLexicon(cfg.Classifier.Keywords)
}

func paperInstruments(cfg *config.Config) []exchange.PaperInstrument {
	out := make([]exchange.PaperInstrument, 0, len(cfg.Exchange.Instruments))
	for _, inst := range cfg.Exchange.Instruments {
		out = append(out, exchange.PaperInstrument{
			ID:          inst.ID,
			TickSize:    inst.TickSize,
			StartPrice:  inst.StartPrice,
			Volatility:  inst.Volatility,
			SpreadTicks: inst.SpreadTicks,
			Depth:       inst.Depth,
			LevelVolume: inst.LevelVolume,
		})
	}
	return out
}

func logFills(log zerolog.Logger, ledger *paper.Ledger, cfg *config.Config) {
	ids := make([]string, 0, len(cfg.Exchange.Instruments))
	for _, inst := range cfg.Exchange.Instruments {
		ids = append(ids, inst.ID)
	}
	sort.Strings(ids)
	for _, id := range ids {
		bought, sold := ledger.Volume(id)
		if bought == 0 && sold == 0 {
			continue
		}
		log.Info().Str("instrument", id).Int("bought", bought).Int("sold", sold).Msg("session fills")
	}
	log.Info().Int("fills", len(ledger.Snapshot())).Msg("session total")
}
