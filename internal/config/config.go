// Package config handles configuration loading for nowcast.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Data     DataConfig     `mapstructure:"data"     yaml:"data"`
	Buzz     BuzzConfig     `mapstructure:"buzz"     yaml:"buzz"`
	Prices   PricesConfig   `mapstructure:"prices"   yaml:"prices"`
	Training TrainingConfig `mapstructure:"training" yaml:"training"`
	API      APIConfig      `mapstructure:"api"      yaml:"api"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
}

// DataConfig holds filesystem layout for pipeline inputs and outputs.
type DataConfig struct {
	Dir          string `mapstructure:"dir"           yaml:"dir"`           // root data directory
	UniverseFile string `mapstructure:"universe_file" yaml:"universe_file"` // single-column ticker CSV
	BuzzDir      string `mapstructure:"buzz_dir"      yaml:"buzz_dir"`      // per-date buzz CSVs
	FeatureDB    string `mapstructure:"feature_db"    yaml:"feature_db"`    // DuckDB market feature store
}

// BuzzConfig holds buzz ingestion settings.
type BuzzConfig struct {
	Feeds        []string `mapstructure:"feeds"         yaml:"feeds"`
	Stoplist     []string `mapstructure:"stoplist"      yaml:"stoplist"`
	FetchTimeout int      `mapstructure:"fetch_timeout" yaml:"fetch_timeout"` // seconds per feed
	RateLimit    int      `mapstructure:"rate_limit"    yaml:"rate_limit"`    // requests per second
}

// PricesConfig holds market data retrieval settings.
type PricesConfig struct {
	Period      string `mapstructure:"period"      yaml:"period"`      // "6mo", "1y", "2y", "5y"
	ChunkSize   int    `mapstructure:"chunk_size"  yaml:"chunk_size"`  // symbols per fetch batch
	Concurrency int    `mapstructure:"concurrency" yaml:"concurrency"` // parallel chunk fetches
}

// TrainingConfig holds baseline model training settings.
type TrainingConfig struct {
	TestDays   int   `mapstructure:"test_days"   yaml:"test_days"` // business days held out
	UseBuzz    bool  `mapstructure:"use_buzz"    yaml:"use_buzz"`
	Seed       int64 `mapstructure:"seed"        yaml:"seed"` // forest reproducibility
	ForestSize int   `mapstructure:"forest_size" yaml:"forest_size"`
}

// APIConfig holds dashboard API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "console" or "json"
}

// Addr returns the API listen address.
func (c APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DefaultFeeds are the monitored news and Reddit feeds.
var DefaultFeeds = []string{
	"https://feeds.a.dj.com/rss/RSSMarketsMain.xml",
	"https://www.investopedia.com/feedbuilder/feed/GetFeed?feedName=news",
	"https://finance.yahoo.com/news/rssindex",
	"https://www.reddit.com/r/stocks/.rss",
	"https://www.reddit.com/r/investing/.rss",
	"https://www.reddit.com/r/wallstreetbets/.rss",
}

// DefaultStoplist lists common words and acronyms that collide with
// valid-looking ticker symbols.
var DefaultStoplist = []string{
	"A", "I", "AM", "ALL", "FOR", "EVER", "DD", "YOLO",
	"CEO", "CFO", "OPEN", "AI", "USA", "IPO", "EPS", "HOME",
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.nowcast/config.yaml (home directory)
//  3. /etc/nowcast/config.yaml (system)
//
// Environment variables override config file values.
// Format: NOWCAST_<SECTION>_<KEY>, e.g., NOWCAST_DATA_DIR
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".nowcast"))
	v.AddConfigPath("/etc/nowcast")

	v.SetEnvPrefix("NOWCAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file not required to exist; defaults + env vars suffice.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	resolvePaths(&cfg)
	return &cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("NOWCAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	resolvePaths(&cfg)
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("data.dir", "data")
	v.SetDefault("data.universe_file", "") // resolved under data.dir when empty
	v.SetDefault("data.buzz_dir", "")
	v.SetDefault("data.feature_db", "")

	v.SetDefault("buzz.feeds", DefaultFeeds)
	v.SetDefault("buzz.stoplist", DefaultStoplist)
	v.SetDefault("buzz.fetch_timeout", 20)
	v.SetDefault("buzz.rate_limit", 2)

	v.SetDefault("prices.period", "2y")
	v.SetDefault("prices.chunk_size", 40)
	v.SetDefault("prices.concurrency", 4)

	v.SetDefault("training.test_days", 60)
	v.SetDefault("training.use_buzz", true)
	v.SetDefault("training.seed", 42)
	v.SetDefault("training.forest_size", 300)

	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// resolvePaths fills derived paths relative to the data directory.
func resolvePaths(cfg *Config) {
	if cfg.Data.UniverseFile == "" {
		cfg.Data.UniverseFile = filepath.Join(cfg.Data.Dir, "universe", "sp500.csv")
	}
	if cfg.Data.BuzzDir == "" {
		cfg.Data.BuzzDir = filepath.Join(cfg.Data.Dir, "buzz")
	}
	if cfg.Data.FeatureDB == "" {
		cfg.Data.FeatureDB = filepath.Join(cfg.Data.Dir, "market", "daily.duckdb")
	}
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
