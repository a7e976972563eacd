package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	StoriesRoot  string `yaml:"stories_root"`
	FetchWorkers int    `yaml:"fetch_workers"`
	Debug        bool   `yaml:"debug"`
	Quiet        bool   `yaml:"quiet"`

	DefaultURL string `yaml:"default_url"`

	Cookie     string `yaml:"cookie"`
	CookieFile string `yaml:"cookie_file"`
	UserAgent  string `yaml:"user_agent"`

	MinDelayMs int `yaml:"min_delay_ms"`
	MaxDelayMs int `yaml:"max_delay_ms"`
	Retries    int `yaml:"retries"`
}

type Options struct {
	IgnoreConfig bool
	Debug        bool
	Quiet        bool
	StoriesRoot  string
	FetchWorkers int
	DefaultURL   string
	Cookie       string
	CookieFile   string
	UserAgent    string
	MinDelayMs   int
	MaxDelayMs   int
	Retries      int
}

func DefaultConfig() *Config {
	return &Config{
		StoriesRoot:  "stories",
		FetchWorkers: 1,
		MinDelayMs:   200,
		MaxDelayMs:   1200,
		Retries:      3,
	}
}

func SaveYAML(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func loadYAML(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	return &c, nil
}

// LoadMerged resolves the effective config: defaults, overlaid by the
// active profile unless ignored, overlaid by non-zero CLI options.
func LoadMerged(opts Options) (*Config, string, error) {
	if opts.IgnoreConfig {
		cfg := DefaultConfig()
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, "(ignored config)", nil
	}

	activePath, err := ActiveConfigPath()
	if err == ErrNoConfig || activePath == "" {
		cfg := DefaultConfig()
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, "(default config in memory)\nRun `storyd config init` to create an actual config\n", nil
	}
	if err != nil {
		return nil, "", err
	}

	cfg, err := loadYAML(activePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config %s: %w", activePath, err)
	}

	mergeConfig(cfg, opts)
	normalizeDefaults(cfg)

	return cfg, activePath, nil
}

func mergeConfig(c *Config, o Options) {
	if o.StoriesRoot != "" {
		c.StoriesRoot = o.StoriesRoot
	}
	if o.FetchWorkers != 0 {
		c.FetchWorkers = o.FetchWorkers
	}
	if o.Debug {
		c.Debug = true
	}
	if o.Quiet {
		c.Quiet = true
	}
	if o.DefaultURL != "" {
		c.DefaultURL = o.DefaultURL
	}
	if o.Cookie != "" {
		c.Cookie = o.Cookie
	}
	if o.CookieFile != "" {
		c.CookieFile = o.CookieFile
	}
	if o.UserAgent != "" {
		c.UserAgent = o.UserAgent
	}
	if o.MinDelayMs != 0 {
		c.MinDelayMs = o.MinDelayMs
	}
	if o.MaxDelayMs != 0 {
		c.MaxDelayMs = o.MaxDelayMs
	}
	if o.Retries != 0 {
		c.Retries = o.Retries
	}
}

func normalizeDefaults(c *Config) {
	if c.StoriesRoot == "" {
		c.StoriesRoot = "stories"
	}
	if c.FetchWorkers < 1 {
		c.FetchWorkers = 1
	}
	if c.MaxDelayMs < c.MinDelayMs {
		c.MaxDelayMs = c.MinDelayMs
	}
	if c.Retries < 1 {
		c.Retries = 3
	}
}

func (c *Config) Print() {
	fmt.Printf(" -stories_root: %s\n", c.StoriesRoot)
	fmt.Printf(" -fetch_workers: %d\n", c.FetchWorkers)
	fmt.Printf(" -delay: %dms..%dms\n", c.MinDelayMs, c.MaxDelayMs)
	fmt.Printf(" -retries: %d\n", c.Retries)
	if c.Debug {
		fmt.Printf(" -debug: %t\n", c.Debug)
	}
	if c.Quiet {
		fmt.Printf(" -quiet: %t\n", c.Quiet)
	}
	if c.DefaultURL != "" {
		fmt.Printf(" -default_url: %s\n", c.DefaultURL)
	}
	if c.CookieFile != "" {
		fmt.Printf(" -cookie_file: %s\n", c.CookieFile)
	}
	if c.UserAgent != "" {
		fmt.Printf(" -user_agent: %s\n", c.UserAgent)
	}
}
