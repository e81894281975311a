package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the configuration for the clustering service
type Config struct {
	Fetcher    FetcherConfig
	Politeness PolitenessConfig
	Cluster    ClusterConfig
	Storage    StorageConfig
	LLM        LLMConfig
	API        APIConfig
	Log        LogConfig
}

// FetcherConfig controls document acquisition
type FetcherConfig struct {
	Timeout          time.Duration
	UserAgent        string
	AbstractSelector string
	TitleSuffix      string
	Concurrency      int
}

// PolitenessConfig holds politeness manager configuration
type PolitenessConfig struct {
	DefaultMinDelay       time.Duration
	DefaultRequestTimeout time.Duration
	RobotsCacheDuration   time.Duration
	EnableRobotsCheck     bool
	UserAgent             string
}

// ClusterConfig describes the batch: which documents and how to cluster them
type ClusterConfig struct {
	Seeds           []string
	SeedFile        string
	CentroidIndices []int
	Polarity        string
	Precision       int
	Stem            bool
	MinTokenLength  int
}

// StorageConfig holds the fetch cache location. Empty disables caching.
type StorageConfig struct {
	CacheDir string
}

type LLMConfig struct {
	Provider string
	BaseURL  string
	Model    string
	APIKey   string
}

type APIConfig struct {
	Addr string
}

type LogConfig struct {
	Level string
}

// DefaultSeeds are PubMed abstracts returned for "diabetes" with free full text.
var DefaultSeeds = []string{
	"https://www.ncbi.nlm.nih.gov/pubmed/31064043",
	"https://www.ncbi.nlm.nih.gov/pubmed/31064037",
	"https://www.ncbi.nlm.nih.gov/pubmed/31063991",
	"https://www.ncbi.nlm.nih.gov/pubmed/31063971",
	"https://www.ncbi.nlm.nih.gov/pubmed/31063480",
	"https://www.ncbi.nlm.nih.gov/pubmed/31063470",
	"https://www.ncbi.nlm.nih.gov/pubmed/31063459",
	"https://www.ncbi.nlm.nih.gov/pubmed/31063261",
	"https://www.ncbi.nlm.nih.gov/pubmed/31063201",
	"https://www.ncbi.nlm.nih.gov/pubmed/31061403",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("fetcher.timeout", 30*time.Second)
	v.SetDefault("fetcher.user_agent", "AbstractClusterer/1.0")
	v.SetDefault("fetcher.abstract_selector", ".abstr")
	v.SetDefault("fetcher.title_suffix", " - PubMed - NCBI")
	v.SetDefault("fetcher.concurrency", 4)

	v.SetDefault("politeness.default_min_delay", 1*time.Second)
	v.SetDefault("politeness.default_request_timeout", 30*time.Second)
	v.SetDefault("politeness.robots_cache_duration", 24*time.Hour)
	v.SetDefault("politeness.enable_robots_check", true)
	v.SetDefault("politeness.user_agent", "AbstractClusterer/1.0")

	v.SetDefault("cluster.seeds", DefaultSeeds)
	v.SetDefault("cluster.seed_file", "")
	v.SetDefault("cluster.centroid_indices", []int{0, 4, 9})
	v.SetDefault("cluster.polarity", "absence")
	v.SetDefault("cluster.precision", 2)
	v.SetDefault("cluster.stem", false)
	v.SetDefault("cluster.min_token_length", 0)

	v.SetDefault("storage.cache_dir", "")

	v.SetDefault("llm.provider", "none")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "qwen3:1.7b")
	v.SetDefault("llm.api_key", "")

	v.SetDefault("api.addr", ":8080")
	v.SetDefault("log.level", "info")
}

// Load builds the configuration from defaults, the optional YAML file at path
// and environment variables, in increasing order of precedence. Environment
// variables use the upper-cased key with "." replaced by "_", for example
// POLITENESS_DEFAULT_MIN_DELAY.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
		}
	}

	indices, err := intSlice(v, "cluster.centroid_indices")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Fetcher: FetcherConfig{
			Timeout:          v.GetDuration("fetcher.timeout"),
			UserAgent:        v.GetString("fetcher.user_agent"),
			AbstractSelector: v.GetString("fetcher.abstract_selector"),
			TitleSuffix:      v.GetString("fetcher.title_suffix"),
			Concurrency:      v.GetInt("fetcher.concurrency"),
		},
		Politeness: PolitenessConfig{
			DefaultMinDelay:       v.GetDuration("politeness.default_min_delay"),
			DefaultRequestTimeout: v.GetDuration("politeness.default_request_timeout"),
			RobotsCacheDuration:   v.GetDuration("politeness.robots_cache_duration"),
			EnableRobotsCheck:     v.GetBool("politeness.enable_robots_check"),
			UserAgent:             v.GetString("politeness.user_agent"),
		},
		Cluster: ClusterConfig{
			Seeds:           stringSlice(v, "cluster.seeds"),
			SeedFile:        v.GetString("cluster.seed_file"),
			CentroidIndices: indices,
			Polarity:        v.GetString("cluster.polarity"),
			Precision:       v.GetInt("cluster.precision"),
			Stem:            v.GetBool("cluster.stem"),
			MinTokenLength:  v.GetInt("cluster.min_token_length"),
		},
		Storage: StorageConfig{
			CacheDir: v.GetString("storage.cache_dir"),
		},
		LLM: LLMConfig{
			Provider: v.GetString("llm.provider"),
			BaseURL:  v.GetString("llm.base_url"),
			Model:    v.GetString("llm.model"),
			APIKey:   v.GetString("llm.api_key"),
		},
		API: APIConfig{
			Addr: v.GetString("api.addr"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
		},
	}

	if cfg.Cluster.SeedFile != "" {
		seeds, err := LoadSeedURLs(cfg.Cluster.SeedFile)
		if err != nil {
			return nil, err
		}
		cfg.Cluster.Seeds = seeds
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values no component can work with
func (c *Config) Validate() error {
	if c.Fetcher.Concurrency < 1 {
		return fmt.Errorf("fetcher concurrency must be at least 1, got %d", c.Fetcher.Concurrency)
	}
	if c.Fetcher.Timeout <= 0 {
		return fmt.Errorf("fetcher timeout must be positive, got %s", c.Fetcher.Timeout)
	}
	if c.Politeness.DefaultMinDelay < 0 {
		return fmt.Errorf("politeness min delay must not be negative, got %s", c.Politeness.DefaultMinDelay)
	}
	if c.Cluster.Precision < 1 {
		return fmt.Errorf("cluster precision must be at least 1, got %d", c.Cluster.Precision)
	}
	if len(c.Cluster.CentroidIndices) == 0 {
		return fmt.Errorf("at least one centroid index is required")
	}
	return nil
}

// stringSlice accepts a YAML list or a comma/space separated string from the environment.
func stringSlice(v *viper.Viper, key string) []string {
	if raw, ok := v.Get(key).(string); ok {
		return strings.FieldsFunc(raw, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\n' || r == '\t'
		})
	}
	return v.GetStringSlice(key)
}

func intSlice(v *viper.Viper, key string) ([]int, error) {
	raw, ok := v.Get(key).(string)
	if !ok {
		return v.GetIntSlice(key), nil
	}
	var out []int
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("invalid %s entry %q: %w", key, field, err)
		}
		out = append(out, n)
	}
	return out, nil
}
