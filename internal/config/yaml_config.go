package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// YAMLConfig represents the structure of the config.yaml file.
// Tuning knobs and industry aliases that are awkward as env vars.
type YAMLConfig struct {
	Search     SearchConfig        `yaml:"search"`
	Jobs       JobsConfig          `yaml:"jobs"`
	Industries map[string][]string `yaml:"industries"` // Industry name -> search terms
}

// JobsConfig schedules background work. A negative interval disables a job.
type JobsConfig struct {
	GeocodeBackfillInterval time.Duration `yaml:"geocode_backfill_interval"`
}

// SearchConfig bounds and paces searches against the places catalog.
type SearchConfig struct {
	MinRadiusMeters   int           `yaml:"min_radius_meters"`
	MaxRadiusMeters   int           `yaml:"max_radius_meters"`
	MaxPages          int           `yaml:"max_pages"`
	MaxRetries        int           `yaml:"max_retries"`
	InitialBackoff    time.Duration `yaml:"initial_backoff"`
	PageTokenDelay    time.Duration `yaml:"page_token_delay"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	IncludeTextSearch bool          `yaml:"include_text_search"`
	TermConcurrency   int           `yaml:"term_concurrency"`
	GeocodeCacheTTL   time.Duration `yaml:"geocode_cache_ttl"`
}

// DefaultYAMLConfig is used when no config file exists.
func DefaultYAMLConfig() *YAMLConfig {
	cfg := &YAMLConfig{}
	cfg.applyDefaults()
	return cfg
}

// LoadYAMLConfig loads the YAML configuration file at path.
// Returns defaults without error if the file doesn't exist.
func LoadYAMLConfig(path string) (*YAMLConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Config file is optional
			return DefaultYAMLConfig(), nil
		}
		return nil, err
	}

	var cfg YAMLConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

func (c *YAMLConfig) applyDefaults() {
	s := &c.Search
	if s.MinRadiusMeters == 0 {
		s.MinRadiusMeters = 1000
	}
	if s.MaxRadiusMeters == 0 {
		s.MaxRadiusMeters = 50000
	}
	if s.MaxPages == 0 {
		s.MaxPages = 3
	}
	if s.MaxRetries == 0 {
		s.MaxRetries = 3
	}
	if s.InitialBackoff == 0 {
		s.InitialBackoff = 500 * time.Millisecond
	}
	if s.PageTokenDelay == 0 {
		s.PageTokenDelay = 2 * time.Second
	}
	if s.RequestTimeout == 0 {
		s.RequestTimeout = 10 * time.Second
	}
	if s.TermConcurrency == 0 {
		s.TermConcurrency = 4
	}
	if s.GeocodeCacheTTL == 0 {
		s.GeocodeCacheTTL = 30 * 24 * time.Hour
	}
	if c.Jobs.GeocodeBackfillInterval == 0 {
		c.Jobs.GeocodeBackfillInterval = time.Hour
	}
	if c.Industries == nil {
		c.Industries = map[string][]string{}
	}
}

func (c *YAMLConfig) validate() error {
	s := c.Search
	if s.MinRadiusMeters < 0 || s.MaxRadiusMeters < s.MinRadiusMeters {
		return fmt.Errorf("search radius range %d-%d is invalid", s.MinRadiusMeters, s.MaxRadiusMeters)
	}
	if s.MaxPages < 0 || s.TermConcurrency < 0 {
		return fmt.Errorf("search.max_pages and search.term_concurrency must be positive")
	}
	return nil
}
