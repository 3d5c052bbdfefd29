package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"quotebot-go/internal/config"
	"quotebot-go/internal/util"
)

const defaultConfigPath = "config.yaml"

func main() {
	reader := bufio.NewReader(os.Stdin)
	log := util.NewConsoleLogger("info")

	cfg, err := loadConfig()
	if err != nil {
		log.Warn().Err(err).Msg("config not loaded, starting from defaults")
		cfg = config.Default()
	}

	for {
		fmt.Println("\n=== Quotebot Control ===")
		fmt.Println("1) Show configuration summary")
		fmt.Println("2) Edit quoting knobs")
		fmt.Println("3) Edit sentiment thresholds")
		fmt.Println("4) Edit instrument aliases")
		fmt.Println("5) Save config")
		fmt.Println("6) Launch quoter")
		fmt.Println("7) Reload config from disk")
		fmt.Println("0) Exit")
		fmt.Print("Select option: ")

		input, _ := reader.ReadString('\n')
		choice := strings.TrimSpace(input)

		switch choice {
		case "1":
			printSummary(cfg)
		case "2":
			editQuoting(reader, cfg)
		case "3":
			editThresholds(reader, cfg)
		case "4":
			editAliases(reader, cfg)
		case "5":
			if err := cfg.Validate(); err != nil {
				log.Error().Err(err).Msg("not saved, config is invalid")
				continue
			}
			if err := saveConfig(cfg); err != nil {
				log.Error().Err(err).Msg("save failed")
			} else {
				log.Info().Str("path", locateConfig()).Msg("config saved")
			}
		case "6":
			launchQuoter(reader)
		case "7":
			reloaded, err := loadConfig()
			if err != nil {
				log.Error().Err(err).Msg("reload failed")
			} else {
				cfg = reloaded
				log.Info().Msg("config reloaded")
			}
		case "0":
			return
		default:
			fmt.Println("unknown option")
		}
	}
}

func printSummary(cfg *config.Config) {
	fmt.Println("\n--- Configuration Summary ---")
	fmt.Printf("Venue: %s | starting cash: $%.2f\n", cfg.Exchange.Provider, cfg.Exchange.Paper.StartingCash)
	fmt.Printf("Quoted volume: %d | position limit: %d\n", cfg.Quoting.QuotedVolume, cfg.Quoting.PositionLimit)
	fmt.Printf("Minimum credit: %.4f | retreat per lot: %.4f\n", cfg.Quoting.FixedMinimumCredit, cfg.Quoting.PriceRetreatPerLot)
	fmt.Printf("Risk threshold: %.2f on %s\n", cfg.Signals.RiskThreshold, strings.Join(cfg.Signals.RiskLabels, ", "))
	fmt.Printf("Optimism threshold: %.2f on %s\n", cfg.Signals.OptimismThreshold, strings.Join(cfg.Signals.OptimismLabels, ", "))
	fmt.Printf("Classifier: %s | feeds: %s\n", cfg.Classifier.Provider, cfg.Feeds.Source)
	fmt.Printf("Refresh: %s | cooldown: %s | order delay: %s\n", cfg.Schedule.RefreshInterval(), cfg.Schedule.Cooldown(), cfg.Schedule.OrderDelay())
	for _, id := range aliasIDs(cfg) {
		fmt.Printf("  %-5s %s\n", id, strings.Join(cfg.Signals.Aliases[id], ", "))
	}
}

func editQuoting(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Quoting ---")
	cfg.Quoting.QuotedVolume = int(promptFloat(reader, "Quoted volume", float64(cfg.Quoting.QuotedVolume)))
	cfg.Quoting.FixedMinimumCredit = promptFloat(reader, "Fixed minimum credit", cfg.Quoting.FixedMinimumCredit)
	cfg.Quoting.PriceRetreatPerLot = promptFloat(reader, "Price retreat per lot", cfg.Quoting.PriceRetreatPerLot)
	cfg.Quoting.PositionLimit = int(promptFloat(reader, "Position limit", float64(cfg.Quoting.PositionLimit)))
	cfg.Exchange.Paper.StartingCash = promptFloat(reader, "Starting cash", cfg.Exchange.Paper.StartingCash)
}

func editThresholds(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Sentiment Thresholds ---")
	cfg.Signals.RiskThreshold = promptFloat(reader, "Risk threshold (0-1)", cfg.Signals.RiskThreshold)
	cfg.Signals.OptimismThreshold = promptFloat(reader, "Optimism threshold (0-1)", cfg.Signals.OptimismThreshold)
	cfg.Schedule.CooldownMs = int(promptFloat(reader, "Flatten cooldown (ms)", float64(cfg.Schedule.CooldownMs)))
}

func editAliases(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Aliases ---")
	if cfg.Signals.Aliases == nil {
		cfg.Signals.Aliases = map[string][]string{}
	}
	for _, inst := range cfg.Exchange.Instruments {
		current := cfg.Signals.Aliases[inst.ID]
		fmt.Printf("%s aliases [%s] (comma-separated, blank to keep): ", inst.ID, strings.Join(current, ", "))
		line, _ := reader.ReadString('\n')
		if parsed := splitList(line); len(parsed) > 0 {
			cfg.Signals.Aliases[inst.ID] = parsed
		}
	}
}

func launchQuoter(reader *bufio.Reader) {
	fmt.Println("Launching quoter (Ctrl+C to stop)...")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := exec.CommandContext(ctx, "go", "run", "./cmd/quoter", "-config", locateConfig())
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start quoter: %v\n", err)
		return
	}

	go func() {
		_ = cmd.Wait()
		cancel()
	}()

	fmt.Print("\nPress ENTER to stop the quoter and return to menu...")
	_, _ = reader.ReadString('\n')
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func promptFloat(reader *bufio.Reader, label string, current float64) float64 {
	fmt.Printf("%s [%g]: ", label, current)
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	val, err := strconv.ParseFloat(line, 64)
	if err != nil {
		fmt.Printf("invalid number, keeping %g\n", current)
		return current
	}
	return val
}

func splitList(line string) []string {
	var out []string
	for _, p := range strings.Split(strings.TrimSpace(line), ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func aliasIDs(cfg *config.Config) []string {
	ids := make([]string, 0, len(cfg.Signals.Aliases))
	for id := range cfg.Signals.Aliases {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func loadConfig() (*config.Config, error) {
	return config.Load(locateConfig())
}

func saveConfig(cfg *config.Config) error {
	return config.Save(locateConfig(), cfg)
}

func locateConfig() string {
	if path := os.Getenv("QUOTEBOT_CONFIG"); path != "" {
		return filepath.Clean(path)
	}
	return filepath.Clean(defaultConfigPath)
}
