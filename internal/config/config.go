// Package config loads the run configuration.
//
// The config file is YAML. A missing file yields DefaultConfig. Scalars left
// out of the file fall back to defaults, but the scoring weight and penalty
// tables are all-or-nothing: a file that provides one must provide every key,
// because a mis-scored run is worse than one that refuses to start.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingWeight is returned when a required weight or penalty key is absent.
	ErrMissingWeight = errors.New("missing scoring key")

	// ErrInvalidConfig is returned for out-of-range values.
	ErrInvalidConfig = errors.New("invalid config")
)

// Required scoring keys.
var (
	WeightKeys  = []string{"velocity", "breadth", "cross_domain", "novelty", "credibility"}
	PenaltyKeys = []string{"spam", "single_source"}
)

// Config is the complete run configuration.
type Config struct {
	Analysis      AnalysisConfig      `yaml:"analysis"`
	Scoring       ScoringConfig       `yaml:"scoring"`
	Evidence      EvidenceConfig      `yaml:"evidence"`
	Clustering    ClusteringConfig    `yaml:"clustering"`
	EntityAliases map[string][]string `yaml:"entity_aliases"`
	Sources       SourcesConfig       `yaml:"sources"`
	Logging       LoggingConfig       `yaml:"logging"`
	Storage       StorageConfig       `yaml:"storage"`
}

// AnalysisConfig controls the analysis window.
type AnalysisConfig struct {
	WindowDays    int   `yaml:"window_days"`
	BaselineDays  int   `yaml:"baseline_days"`
	MaxNarratives int   `yaml:"max_narratives"`
	UseBaseline   *bool `yaml:"use_baseline"`
}

// BaselineEnabled reports whether baseline events feed velocity and novelty.
func (a AnalysisConfig) BaselineEnabled() bool {
	return a.UseBaseline == nil || *a.UseBaseline
}

// ScoringConfig holds the composite score weights, penalties and thresholds.
type ScoringConfig struct {
	Weights    map[string]float64 `yaml:"weights"`
	Penalties  map[string]float64 `yaml:"penalties"`
	Thresholds ThresholdConfig    `yaml:"thresholds"`
}

// ThresholdConfig holds the tunable cut-offs.
type ThresholdConfig struct {
	SpamSimilarity        float64 `yaml:"spam_similarity"`
	SingleSourceDominance float64 `yaml:"single_source_dominance"`
	MinEvents             int     `yaml:"min_events"`
	MinSources            int     `yaml:"min_sources"`
}

// EvidenceConfig controls evidence card selection.
type EvidenceConfig struct {
	MaxCards int `yaml:"max_cards"`
}

// ClusteringConfig controls candidate generation.
type ClusteringConfig struct {
	// FallbackEntity is the generic marker connectors attach when no real
	// entity was recognised. It never forms a cluster of its own.
	FallbackEntity string `yaml:"fallback_entity"`
}

// SourcesConfig configures the connectors.
type SourcesConfig struct {
	RSS RSSConfig `yaml:"rss"`
}

// RSSConfig configures the RSS/blog connector.
type RSSConfig struct {
	Enabled         bool          `yaml:"enabled"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps"`
	Burst           int           `yaml:"burst"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxItemsPerFeed int           `yaml:"max_items_per_feed"`
	Feeds           []FeedConfig  `yaml:"feeds"`
}

// FeedConfig is one RSS/Atom feed.
type FeedConfig struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Category string `yaml:"category"`
}

// LoggingConfig holds the log level.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  bool   `yaml:"file"`
}

// StorageConfig holds the database location.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// DefaultWeights returns the default composite weights.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		"velocity":     0.25,
		"breadth":      0.20,
		"cross_domain": 0.20,
		"novelty":      0.20,
		"credibility":  0.15,
	}
}

// DefaultPenalties returns the default penalty weights.
func DefaultPenalties() map[string]float64 {
	return map[string]float64{
		"spam":          0.10,
		"single_source": 0.15,
	}
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	useBaseline := true
	return &Config{
		Analysis: AnalysisConfig{
			WindowDays:    14,
			BaselineDays:  56,
			MaxNarratives: 10,
			UseBaseline:   &useBaseline,
		},
		Scoring: ScoringConfig{
			Weights:   DefaultWeights(),
			Penalties: DefaultPenalties(),
			Thresholds: ThresholdConfig{
				SpamSimilarity:        0.85,
				SingleSourceDominance: 0.70,
				MinEvents:             3,
				MinSources:            2,
			},
		},
		Evidence:      EvidenceConfig{MaxCards: 8},
		Clustering:    ClusteringConfig{FallbackEntity: "solana-ecosystem"},
		EntityAliases: DefaultAliases(),
		Sources: SourcesConfig{
			RSS: RSSConfig{
				Enabled:         true,
				RateLimitRPS:    2,
				Burst:           1,
				Timeout:         30 * time.Second,
				MaxItemsPerFeed: 20,
				Feeds:           DefaultFeeds(),
			},
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// DefaultAliases is the built-in entity alias table.
func DefaultAliases() map[string][]string {
	return map[string][]string{
		"jupiter":          {"jup", "jupiter exchange", "jup.ag"},
		"jito":             {"jito labs", "jitosol"},
		"firedancer":       {"fd", "jump firedancer"},
		"depin":            {"helium", "hivemapper", "render network"},
		"ai-agents":        {"ai agent", "ai agents", "eliza", "autonomous agents"},
		"defi":             {"decentralized finance", "amm", "lending"},
		"nft":              {"nfts", "tensor", "magic eden"},
		"compressed-nft":   {"cnft", "cnfts", "state compression", "bubblegum"},
		"token-extensions": {"token-2022", "token22", "token extensions"},
		"blinks":           {"solana actions", "blink"},
		"solana-mobile":    {"saga", "seeker", "solana mobile stack"},
		"mev":              {"maximal extractable value", "bundles"},
		"payments":         {"solana pay", "stablecoin payments"},
		"validator":        {"validators", "staking", "stake pool"},
		"svm":              {"solana virtual machine", "svm rollup", "eclipse"},
	}
}

// DefaultFeeds is the built-in feed list.
func DefaultFeeds() []FeedConfig {
	return []FeedConfig{
		{Name: "Solana Foundation", URL: "https://solana.com/news/rss.xml", Category: "official"},
		{Name: "Helius Blog", URL: "https://www.helius.dev/blog/rss.xml", Category: "infra"},
		{Name: "Solana Medium", URL: "https://medium.com/feed/@solana", Category: "official"},
		{Name: "Orca Blog", URL: "https://blog.orca.so/feed", Category: "defi"},
		{Name: "Jito Blog", URL: "https://www.jito.network/blog/rss.xml", Category: "mev"},
	}
}

// DataDir returns ~/.narratives.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".narratives"
	}
	return filepath.Join(home, ".narratives")
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	return filepath.Join(DataDir(), "config.yaml")
}

// Load reads config from path (ConfigPath when empty), or returns defaults
// when the file does not exist. The result is validated.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			cfg.ApplyEnv()
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML and fills unset fields from DefaultConfig.
// It does not validate.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults(DefaultConfig())
	return &cfg, nil
}

func (c *Config) applyDefaults(d *Config) {
	if c.Analysis.WindowDays == 0 {
		c.Analysis.WindowDays = d.Analysis.WindowDays
	}
	if c.Analysis.BaselineDays == 0 {
		c.Analysis.BaselineDays = d.Analysis.BaselineDays
	}
	if c.Analysis.MaxNarratives == 0 {
		c.Analysis.MaxNarratives = d.Analysis.MaxNarratives
	}
	if c.Analysis.UseBaseline == nil {
		c.Analysis.UseBaseline = d.Analysis.UseBaseline
	}

	// Whole tables only; a partial table is left partial for Validate to reject.
	if c.Scoring.Weights == nil {
		c.Scoring.Weights = d.Scoring.Weights
	}
	if c.Scoring.Penalties == nil {
		c.Scoring.Penalties = d.Scoring.Penalties
	}

	th := &c.Scoring.Thresholds
	if th.SpamSimilarity == 0 {
		th.SpamSimilarity = d.Scoring.Thresholds.SpamSimilarity
	}
	if th.SingleSourceDominance == 0 {
		th.SingleSourceDominance = d.Scoring.Thresholds.SingleSourceDominance
	}
	if th.MinEvents == 0 {
		th.MinEvents = d.Scoring.Thresholds.MinEvents
	}
	if th.MinSources == 0 {
		th.MinSources = d.Scoring.Thresholds.MinSources
	}

	if c.Evidence.MaxCards == 0 {
		c.Evidence.MaxCards = d.Evidence.MaxCards
	}
	if c.Clustering.FallbackEntity == "" {
		c.Clustering.FallbackEntity = d.Clustering.FallbackEntity
	}
	if c.EntityAliases == nil {
		c.EntityAliases = d.EntityAliases
	}

	rss := &c.Sources.RSS
	if rss.RateLimitRPS == 0 {
		rss.RateLimitRPS = d.Sources.RSS.RateLimitRPS
	}
	if rss.Burst == 0 {
		rss.Burst = d.Sources.RSS.Burst
	}
	if rss.Timeout == 0 {
		rss.Timeout = d.Sources.RSS.Timeout
	}
	if rss.MaxItemsPerFeed == 0 {
		rss.MaxItemsPerFeed = d.Sources.RSS.MaxItemsPerFeed
	}
	if rss.Feeds == nil {
		rss.Feeds = d.Sources.RSS.Feeds
	}

	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
}

// ApplyEnv overrides selected fields from environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("NARR_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("NARR_DB"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("NARR_MAX_NARRATIVES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Analysis.MaxNarratives = n
		}
	}
}

// Validate checks the scoring tables and thresholds.
func (c *Config) Validate() error {
	if err := c.Scoring.Validate(); err != nil {
		return err
	}
	if c.Analysis.WindowDays < 1 || c.Analysis.BaselineDays < 1 {
		return fmt.Errorf("%w: window_days and baseline_days must be positive", ErrInvalidConfig)
	}
	if c.Analysis.MaxNarratives < 1 {
		return fmt.Errorf("%w: max_narratives must be positive", ErrInvalidConfig)
	}
	if c.Evidence.MaxCards < 1 {
		return fmt.Errorf("%w: evidence.max_cards must be positive", ErrInvalidConfig)
	}
	return nil
}

// Validate reports every missing weight or penalty key in one error.
func (s ScoringConfig) Validate() error {
	var missing []string
	for _, k := range WeightKeys {
		if _, ok := s.Weights[k]; !ok {
			missing = append(missing, "weights."+k)
		}
	}
	for _, k := range PenaltyKeys {
		if _, ok := s.Penalties[k]; !ok {
			missing = append(missing, "penalties."+k)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: %s", ErrMissingWeight, strings.Join(missing, ", "))
	}

	th := s.Thresholds.SingleSourceDominance
	if th <= 0 || th >= 1 {
		return fmt.Errorf("%w: single_source_dominance must be in (0,1), got %v", ErrInvalidConfig, th)
	}
	sim := s.Thresholds.SpamSimilarity
	if sim <= 0 || sim > 1 {
		return fmt.Errorf("%w: spam_similarity must be in (0,1], got %v", ErrInvalidConfig, sim)
	}
	return nil
}
