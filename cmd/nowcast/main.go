// nowcast — daily buzz and market-feature pipeline with baseline
// next-day direction models.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/quantlabs/nowcast/api"
	"github.com/quantlabs/nowcast/internal/buzz"
	"github.com/quantlabs/nowcast/internal/config"
	"github.com/quantlabs/nowcast/internal/datasource"
	"github.com/quantlabs/nowcast/internal/market"
	"github.com/quantlabs/nowcast/internal/nowcast"
	"github.com/quantlabs/nowcast/internal/sentiment"
	"github.com/quantlabs/nowcast/internal/store"
	"github.com/quantlabs/nowcast/internal/universe"
	"github.com/quantlabs/nowcast/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var (
	cfg    *config.Config
	logger *zap.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "nowcast",
	Short: "nowcast — news buzz, market features, and next-day direction baselines",
	Long: `nowcast collects daily ticker buzz from financial news and Reddit
feeds, builds leakage-safe OHLCV features, and trains two baseline
classifiers for next-session direction, served through a dashboard API.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Logging.Level = lvl
		}
		logger, err = newLogger(cfg.Logging)
		if err != nil {
			return fmt.Errorf("logger setup: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(buzzCmd)
	rootCmd.AddCommand(pricesCmd)
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
}

// newLogger builds the process logger from config.
func newLogger(lc config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(lc.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	var zc zap.Config
	if lc.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func newHarness() *nowcast.Harness {
	return nowcast.New(logger, cfg.Training.UseBuzz, cfg.Training.Seed, cfg.Training.ForestSize)
}

func newPipeline() *nowcast.Pipeline {
	return nowcast.NewPipeline(logger, cfg.Data.FeatureDB, cfg.Data.BuzzDir, cfg.Training.TestDays, newHarness())
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("nowcast %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Buzz Command ---

var buzzCmd = &cobra.Command{
	Use:   "buzz",
	Short: "Fetch feeds and write today's buzz aggregates",
	Long: `Fetch the configured news and Reddit feeds, detect ticker mentions,
score headline sentiment, and write the per-ticker daily aggregate CSV.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		runDate := utils.Today()
		if s, _ := cmd.Flags().GetString("date"); s != "" {
			var err error
			if runDate, err = utils.ParseDate(s); err != nil {
				return fmt.Errorf("invalid --date: %w", err)
			}
		}

		uni := universe.Load(cfg.Data.UniverseFile)
		fmt.Printf("🔍 Buzz run for %s (%d tickers)\n", utils.FormatDate(runDate), uni.Size())

		feeds := cfg.Buzz.Feeds
		if len(feeds) == 0 {
			feeds = config.DefaultFeeds
		}
		src := datasource.NewFeedSource(feeds, cfg.Buzz.RateLimit,
			time.Duration(cfg.Buzz.FetchTimeout)*time.Second, logger)

		docs, err := src.FetchDocuments(cmd.Context())
		if err != nil {
			return fmt.Errorf("fetch feeds: %w", err)
		}

		stoplist := cfg.Buzz.Stoplist
		if len(stoplist) == 0 {
			stoplist = config.DefaultStoplist
		}
		extractor := buzz.NewExtractor(uni, sentiment.NewScorer(), buzz.WithStoplist(stoplist))
		mentions := extractor.Extract(runDate, docs)
		aggs := buzz.Aggregate(mentions)

		path, err := store.NewBuzzStore(cfg.Data.BuzzDir).Write(runDate, aggs)
		if err != nil {
			return fmt.Errorf("write buzz: %w", err)
		}

		fmt.Printf("   Documents:  %d\n", len(docs))
		fmt.Printf("   Mentions:   %d\n", len(mentions))
		fmt.Printf("   Tickers:    %d\n", len(aggs))
		fmt.Printf("✅ Wrote %s\n", path)
		return nil
	},
}

func init() {
	buzzCmd.Flags().String("date", "", "run date override (YYYY-MM-DD, default: today US Eastern)")
}

// --- Prices Command ---

var pricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "Fetch OHLCV history and rebuild the feature store",
	RunE: func(cmd *cobra.Command, args []string) error {
		uni := universe.Load(cfg.Data.UniverseFile)
		if uni.Empty() {
			return fmt.Errorf("ticker universe is empty, cannot build features")
		}
		period := cfg.Prices.Period
		fmt.Printf("📊 Fetching %s of daily bars for %d tickers\n", period, uni.Size())

		src := datasource.NewPriceSource(logger)
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
		defer cancel()

		bars, err := src.HistoryBatch(ctx, uni.Symbols(), period,
			cfg.Prices.ChunkSize, cfg.Prices.Concurrency)
		if err != nil {
			return fmt.Errorf("fetch history: %w", err)
		}
		if len(bars) == 0 {
			return fmt.Errorf("no bars fetched for any ticker")
		}

		rows := market.BuildFeatures(bars)

		fs, err := store.OpenFeatureStore(cfg.Data.FeatureDB)
		if err != nil {
			return fmt.Errorf("open feature store: %w", err)
		}
		defer fs.Close()
		if err := fs.Replace(rows); err != nil {
			return fmt.Errorf("store features: %w", err)
		}

		fmt.Printf("   Bars:     %d\n", len(bars))
		fmt.Printf("   Features: %d rows\n", len(rows))
		fmt.Printf("✅ Wrote %s\n", cfg.Data.FeatureDB)
		return nil
	},
}

// --- Train Command ---

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Assemble the dataset and evaluate the baseline models",
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := newPipeline().Run()
		if err != nil {
			return err
		}

		fmt.Printf("🧪 Holdout evaluation (cutoff %s, features: %v)\n",
			utils.FormatDate(report.Cutoff), report.FeatureCols)
		for _, mr := range report.Reports {
			fmt.Printf("\n  %s\n", mr.Model)
			fmt.Printf("    accuracy:       %.3f (baseline %.3f)\n", mr.Accuracy, mr.Baseline)
			fmt.Printf("    decile spread:  %+.4f/day  %+.2f%%/yr (toy)\n",
				mr.DecileSpreadDay, mr.DecileSpreadYear*100)
			fmt.Printf("    rows:           %d train / %d holdout\n", mr.TrainRows, mr.HoldoutRows)
		}

		for name, preds := range report.Predictions {
			fmt.Printf("\n  latest probabilities (%s):\n", name)
			for _, p := range preds {
				fmt.Printf("    %-8s %.3f\n", p.Ticker, p.Prob)
			}
		}
		return nil
	},
}

// --- Predict Command ---

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Rank tickers by probability of rising next session",
	RunE: func(cmd *cobra.Command, args []string) error {
		preds, err := newPipeline().Latest()
		if err != nil {
			return err
		}
		for name, ps := range preds {
			if len(ps) == 0 {
				continue
			}
			fmt.Printf("📈 %s — %s\n", name, utils.FormatDate(ps[0].Date))
			for _, p := range ps {
				fmt.Printf("   %-8s %.3f\n", p.Ticker, p.Prob)
			}
			fmt.Println()
		}
		return nil
	},
}

// --- Serve Command (Dashboard API) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		fmt.Printf("🌐 Starting nowcast API server on %s\n", addr)
		srv := api.NewServer(cfg, logger, newPipeline())
		return srv.ListenAndServe(addr)
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pipeline status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		uni := universe.Load(cfg.Data.UniverseFile)
		bs := store.NewBuzzStore(cfg.Data.BuzzDir)
		dates, _ := bs.Dates()

		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  nowcast — Pipeline Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:     %s (%s)\n", version, commit)
		fmt.Printf("  Time (ET):   %s\n", utils.NowEastern().Format("2006-01-02 15:04:05"))
		fmt.Println()
		fmt.Printf("  Universe:    %d tickers (%s)\n", uni.Size(), cfg.Data.UniverseFile)
		fmt.Printf("  Buzz days:   %d (%s)\n", len(dates), cfg.Data.BuzzDir)

		if store.Exists(cfg.Data.FeatureDB) {
			fs, err := store.OpenFeatureStore(cfg.Data.FeatureDB)
			if err == nil {
				if latest, ok, _ := fs.LatestDate(); ok {
					fmt.Printf("  Features:    through %s (%s)\n",
						utils.FormatDate(latest), cfg.Data.FeatureDB)
				}
				fs.Close()
			}
		} else {
			fmt.Printf("  Features:    not built (%s)\n", cfg.Data.FeatureDB)
		}

		fmt.Println()
		fmt.Printf("  Period:      %s, chunk %d, concurrency %d\n",
			cfg.Prices.Period, cfg.Prices.ChunkSize, cfg.Prices.Concurrency)
		fmt.Printf("  Training:    holdout %d bdays, buzz=%v, seed=%d, forest=%d\n",
			cfg.Training.TestDays, cfg.Training.UseBuzz, cfg.Training.Seed, cfg.Training.ForestSize)
		fmt.Printf("  API Server:  %s:%d\n", cfg.API.Host, cfg.API.Port)
		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}
