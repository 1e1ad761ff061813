package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"project/cidrfold/cidr"
	"project/cidrfold/resolver"
)

// Config holds the application configuration loaded from a YAML file.
type Config struct {
	// Inputs are JSON or text files holding prefixes.
	Inputs []string `yaml:"inputs"`
	// OutputDir receives the result files.
	OutputDir string `yaml:"outputDir"`
	// ChunkSize is the number of prefixes per chunk file.
	ChunkSize int `yaml:"chunkSize"`
	// SaveChunks additionally splits the result into chunk files.
	SaveChunks bool `yaml:"saveChunks"`
	// Format of the printed result: "text" or "spf".
	Format string `yaml:"format"`
	// Policy for partially overlapping blocks: "split" or "keep-partial".
	Policy string `yaml:"policy"`
	// Exclude lists prefixes carved out of the final result.
	Exclude []string `yaml:"exclude"`
	// SPF configures SPF records as an additional input source.
	SPF SPFConfig `yaml:"spf"`
}

// SPFConfig controls SPF flattening.
type SPFConfig struct {
	// Domains whose SPF records are flattened into the input.
	Domains []string `yaml:"domains"`
	// Nameserver used for lookups, "host:port".
	Nameserver string `yaml:"nameserver"`
	// ConcurrencyLimit for parallel DNS lookups.
	ConcurrencyLimit int `yaml:"concurrencyLimit"`
	// MaxLookups is an optional limit for DNS lookups, typically 10 for SPF.
	MaxLookups int `yaml:"maxLookups"`
	// TXTDomain is the domain used in include: chains when printing the
	// result as SPF TXT records.
	TXTDomain string `yaml:"txtDomain"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig reads and unmarshals the configuration from the specified YAML file path.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filePath, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config file %s: %w", filePath, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", filePath, err)
	}
	return &cfg, nil
}

// applyDefaults fills in sensible values for anything left unset.
func (c *Config) applyDefaults() {
	if c.OutputDir == "" {
		c.OutputDir = "cidr_processed"
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = 1000
	}
	if c.Format == "" {
		c.Format = "text"
	}
	if c.Policy == "" {
		c.Policy = "split"
	}
	if c.SPF.Nameserver == "" {
		c.SPF.Nameserver = "1.1.1.1:53"
	}
	if c.SPF.MaxLookups == 0 {
		c.SPF.MaxLookups = 10 // Default SPF lookup limit
	}
	if c.SPF.ConcurrencyLimit == 0 {
		c.SPF.ConcurrencyLimit = 4
	}
}

// Validate rejects values the processor cannot work with.
func (c *Config) Validate() error {
	var errs []error
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunkSize must be positive, got %d", c.ChunkSize))
	}
	switch c.Format {
	case "text", "spf":
	default:
		errs = append(errs, fmt.Errorf("unknown format %q", c.Format))
	}
	if _, err := resolver.ParsePolicy(c.Policy); err != nil {
		errs = append(errs, err)
	}
	for _, e := range c.Exclude {
		if _, err := cidr.Parse(e); err != nil {
			errs = append(errs, fmt.Errorf("exclude: %w", err))
		}
	}
	if c.SPF.ConcurrencyLimit < 0 {
		errs = append(errs, fmt.Errorf("spf.concurrencyLimit must be positive, got %d", c.SPF.ConcurrencyLimit))
	}
	if c.Format == "spf" && c.SPF.TXTDomain == "" {
		errs = append(errs, errors.New("spf.txtDomain is required for the spf format"))
	}
	return errors.Join(errs...)
}
