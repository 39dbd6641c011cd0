package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"time"
)

type Config struct {
	//===============
	//  Target
	//===============
	// The single absolute http/https URL of the document to archive.
	targetURL url.URL

	//===============
	// Concurrency
	//===============
	// Maximum number of resource downloads in flight at once;
	// a download keeps its slot for the whole retry sequence.
	concurrency int

	//===============
	// Retry
	//===============
	// Additional attempts after the first failure (so maxRetries+1 total attempts)
	maxRetries int
	// Initial delay for exponential backoff
	baseRetryDelay time.Duration
	// Multiplier during exponential backoff
	backoffMultiplier float64
	// Capped maximum delay for backoff to stop exponential multiplication
	backoffMaxDuration time.Duration
	// Randomized variation added on top of the backoff delay
	jitter time.Duration
	// Controls the random number generator
	randomSeed int64

	//===============
	// Fetch
	//===============
	// Maximum time of a single fetch attempt
	timeout time.Duration
	// User agent that will be used in the request header. In raw string
	userAgent string
	// Hard cap on an individual resource body, bytes
	maxResourceSize int64

	//===============
	// Output
	//===============
	// Root directory in which to store the resulting bundle
	outputDir string

	//===============
	// Resource kinds
	//===============
	// Whether images are archived
	downloadImages bool
	// Whether stylesheets are archived
	downloadCSS bool
}

type configDTO struct {
	TargetURL          string        `json:"targetUrl"`
	Concurrency        int           `json:"concurrency,omitempty"`
	MaxRetries         *int          `json:"maxRetries,omitempty"`
	BaseRetryDelay     time.Duration `json:"baseRetryDelay,omitempty"`
	BackoffMultiplier  float64       `json:"backoffMultiplier,omitempty"`
	BackoffMaxDuration time.Duration `json:"backoffMaxDuration,omitempty"`
	Jitter             time.Duration `json:"jitter,omitempty"`
	RandomSeed         int64         `json:"randomSeed,omitempty"`
	Timeout            time.Duration `json:"timeout,omitempty"`
	UserAgent          string        `json:"userAgent,omitempty"`
	MaxResourceSize    int64         `json:"maxResourceSize,omitempty"`
	OutputDir          string        `json:"outputDir,omitempty"`
	NoImages           bool          `json:"noImages,omitempty"`
	NoCSS              bool          `json:"noCss,omitempty"`
}

func newConfigFromDTO(dto configDTO) (Config, error) {
	parsed, err := url.Parse(dto.TargetURL)
	if err != nil {
		return Config{}, fmt.Errorf("%w: bad target URL: %s", ErrInvalidConfig, err.Error())
	}

	// Start with default config
	cfg := WithDefault(*parsed)

	// For other fields, only override if non-zero value is provided
	if dto.Concurrency != 0 {
		cfg = cfg.WithConcurrency(dto.Concurrency)
	}
	// MaxRetries uses a pointer so an explicit 0 (no retries) survives
	if dto.MaxRetries != nil {
		cfg = cfg.WithMaxRetries(*dto.MaxRetries)
	}
	if dto.BaseRetryDelay != 0 {
		cfg = cfg.WithBaseRetryDelay(dto.BaseRetryDelay)
	}
	if dto.BackoffMultiplier != 0 {
		cfg = cfg.WithBackoffMultiplier(dto.BackoffMultiplier)
	}
	if dto.BackoffMaxDuration != 0 {
		cfg = cfg.WithBackoffMaxDuration(dto.BackoffMaxDuration)
	}
	if dto.Jitter != 0 {
		cfg = cfg.WithJitter(dto.Jitter)
	}
	if dto.RandomSeed != 0 {
		cfg = cfg.WithRandomSeed(dto.RandomSeed)
	}
	if dto.Timeout != 0 {
		cfg = cfg.WithTimeout(dto.Timeout)
	}
	if dto.UserAgent != "" {
		cfg = cfg.WithUserAgent(dto.UserAgent)
	}
	if dto.MaxResourceSize != 0 {
		cfg = cfg.WithMaxResourceSize(dto.MaxResourceSize)
	}
	if dto.OutputDir != "" {
		cfg = cfg.WithOutputDir(dto.OutputDir)
	}
	if dto.NoImages {
		cfg = cfg.WithDownloadImages(false)
	}
	if dto.NoCSS {
		cfg = cfg.WithDownloadCSS(false)
	}

	return cfg.Build()
}

func WithConfigFile(path string) (Config, error) {
	_, err := os.Stat(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	configContent, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}
	cfgDTO := configDTO{}

	err = json.Unmarshal(configContent, &cfgDTO)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}

	return newConfigFromDTO(cfgDTO)
}

// WithDefault creates a new Config with the provided target URL and default
// values for all other fields. The target URL is mandatory; Build() rejects
// anything that is not an absolute http or https URL.
func WithDefault(targetURL url.URL) *Config {
	defaultConfig := Config{
		targetURL:          targetURL,
		concurrency:        8,
		maxRetries:         2,
		baseRetryDelay:     time.Second,
		backoffMultiplier:  2.0,
		backoffMaxDuration: 30 * time.Second,
		jitter:             0,
		randomSeed:         time.Now().UnixNano(),
		timeout:            20 * time.Second,
		userAgent:          "page-archiver/1.0",
		maxResourceSize:    50 << 20,
		outputDir:          "archive",
		downloadImages:     true,
		downloadCSS:        true,
	}
	return &defaultConfig
}

func (c *Config) WithTargetURL(u url.URL) *Config {
	c.targetURL = u
	return c
}

func (c *Config) WithConcurrency(concurrency int) *Config {
	c.concurrency = concurrency
	return c
}

func (c *Config) WithMaxRetries(retries int) *Config {
	c.maxRetries = retries
	return c
}

func (c *Config) WithBaseRetryDelay(delay time.Duration) *Config {
	c.baseRetryDelay = delay
	return c
}

func (c *Config) WithBackoffMultiplier(multiplier float64) *Config {
	c.backoffMultiplier = multiplier
	return c
}

func (c *Config) WithBackoffMaxDuration(duration time.Duration) *Config {
	c.backoffMaxDuration = duration
	return c
}

func (c *Config) WithJitter(jitter time.Duration) *Config {
	c.jitter = jitter
	return c
}

func (c *Config) WithRandomSeed(seed int64) *Config {
	c.randomSeed = seed
	return c
}

func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.timeout = timeout
	return c
}

func (c *Config) WithUserAgent(agent string) *Config {
	c.userAgent = agent
	return c
}

func (c *Config) WithMaxResourceSize(size int64) *Config {
	c.maxResourceSize = size
	return c
}

func (c *Config) WithOutputDir(outputDir string) *Config {
	c.outputDir = outputDir
	return c
}

func (c *Config) WithDownloadImages(enabled bool) *Config {
	c.downloadImages = enabled
	return c
}

func (c *Config) WithDownloadCSS(enabled bool) *Config {
	c.downloadCSS = enabled
	return c
}

// Build validates the assembled configuration and returns it by value.
func (c *Config) Build() (Config, error) {
	if c.targetURL.Scheme != "http" && c.targetURL.Scheme != "https" {
		return Config{}, fmt.Errorf("%w: target URL must be absolute http or https, got %q", ErrInvalidConfig, c.targetURL.String())
	}
	if c.targetURL.Host == "" {
		return Config{}, fmt.Errorf("%w: target URL has no host: %q", ErrInvalidConfig, c.targetURL.String())
	}
	if c.concurrency < 1 {
		return Config{}, fmt.Errorf("%w: concurrency must be at least 1, got %d", ErrInvalidConfig, c.concurrency)
	}
	if c.maxRetries < 0 {
		return Config{}, fmt.Errorf("%w: maxRetries cannot be negative, got %d", ErrInvalidConfig, c.maxRetries)
	}
	if c.timeout <= 0 {
		return Config{}, fmt.Errorf("%w: timeout must be positive, got %v", ErrInvalidConfig, c.timeout)
	}
	if c.outputDir == "" {
		return Config{}, fmt.Errorf("%w: output directory cannot be empty", ErrInvalidConfig)
	}
	return *c, nil
}

func (c *Config) TargetURL() url.URL {
	return c.targetURL
}

func (c *Config) Concurrency() int {
	return c.concurrency
}

func (c *Config) MaxRetries() int {
	return c.maxRetries
}

func (c *Config) BaseRetryDelay() time.Duration {
	return c.baseRetryDelay
}

func (c *Config) BackoffMultiplier() float64 {
	return c.backoffMultiplier
}

func (c *Config) BackoffMaxDuration() time.Duration {
	return c.backoffMaxDuration
}

func (c *Config) Jitter() time.Duration {
	return c.jitter
}

func (c *Config) RandomSeed() int64 {
	return c.randomSeed
}

func (c *Config) Timeout() time.Duration {
	return c.timeout
}

func (c *Config) UserAgent() string {
	return c.userAgent
}

func (c *Config) MaxResourceSize() int64 {
	return c.maxResourceSize
}

func (c *Config) OutputDir() string {
	return c.outputDir
}

func (c *Config) DownloadImages() bool {
	return c.downloadImages
}

func (c *Config) DownloadCSS() bool {
	return c.downloadCSS
}
