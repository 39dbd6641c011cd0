package config_test

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohmanhakim/page-archiver/internal/config"
)

func mustURL(t *testing.T, raw string) url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return *u
}

func TestWithDefaultProvidesSaneValues(t *testing.T) {
	cfg, err := config.WithDefault(mustURL(t, "https://en.wikipedia.org/wiki/Go")).Build()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Concurrency())
	assert.Equal(t, 2, cfg.MaxRetries())
	assert.Equal(t, time.Second, cfg.BaseRetryDelay())
	assert.Equal(t, 2.0, cfg.BackoffMultiplier())
	assert.Equal(t, 20*time.Second, cfg.Timeout())
	assert.Equal(t, "archive", cfg.OutputDir())
	assert.Equal(t, "page-archiver/1.0", cfg.UserAgent())
	assert.True(t, cfg.DownloadImages())
	assert.True(t, cfg.DownloadCSS())
}

func TestBuilderOverrides(t *testing.T) {
	cfg, err := config.WithDefault(mustURL(t, "https://example.com/page")).
		WithConcurrency(4).
		WithMaxRetries(0).
		WithBaseRetryDelay(250 * time.Millisecond).
		WithTimeout(5 * time.Second).
		WithOutputDir("bundle").
		WithUserAgent("custom/2.0").
		WithDownloadImages(false).
		Build()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Concurrency())
	assert.Equal(t, 0, cfg.MaxRetries())
	assert.Equal(t, 250*time.Millisecond, cfg.BaseRetryDelay())
	assert.Equal(t, 5*time.Second, cfg.Timeout())
	assert.Equal(t, "bundle", cfg.OutputDir())
	assert.Equal(t, "custom/2.0", cfg.UserAgent())
	assert.False(t, cfg.DownloadImages())
	assert.True(t, cfg.DownloadCSS())
}

func TestBuildValidation(t *testing.T) {
	tests := []struct {
		name  string
		setup func() *config.Config
	}{
		{
			name: "relative target URL rejected",
			setup: func() *config.Config {
				return config.WithDefault(mustURL(t, "/wiki/Go"))
			},
		},
		{
			name: "non-http scheme rejected",
			setup: func() *config.Config {
				return config.WithDefault(mustURL(t, "ftp://example.com/x"))
			},
		},
		{
			name: "zero concurrency rejected",
			setup: func() *config.Config {
				return config.WithDefault(mustURL(t, "https://example.com/x")).WithConcurrency(0)
			},
		},
		{
			name: "negative retries rejected",
			setup: func() *config.Config {
				return config.WithDefault(mustURL(t, "https://example.com/x")).WithMaxRetries(-1)
			},
		},
		{
			name: "empty output dir rejected",
			setup: func() *config.Config {
				return config.WithDefault(mustURL(t, "https://example.com/x")).WithOutputDir("")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.setup().Build()
			assert.ErrorIs(t, err, config.ErrInvalidConfig)
		})
	}
}

func TestWithConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{
		"targetUrl": "https://en.wikipedia.org/wiki/Go",
		"concurrency": 3,
		"maxRetries": 0,
		"timeout": 5000000000,
		"outputDir": "out",
		"noCss": true
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := config.WithConfigFile(path)
	require.NoError(t, err)

	targetURL := cfg.TargetURL()
	assert.Equal(t, "https://en.wikipedia.org/wiki/Go", targetURL.String())
	assert.Equal(t, 3, cfg.Concurrency())
	assert.Equal(t, 0, cfg.MaxRetries(), "explicit zero retries must survive the DTO")
	assert.Equal(t, 5*time.Second, cfg.Timeout())
	assert.Equal(t, "out", cfg.OutputDir())
	assert.False(t, cfg.DownloadCSS())
	assert.True(t, cfg.DownloadImages())
}

func TestWithConfigFileMissing(t *testing.T) {
	_, err := config.WithConfigFile(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, config.ErrFileDoesNotExist)
}

func TestWithConfigFileMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := config.WithConfigFile(path)
	assert.ErrorIs(t, err, config.ErrConfigParsingFail)
}
