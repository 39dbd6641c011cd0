package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/rohmanhakim/page-archiver/internal/config"
	"github.com/rohmanhakim/page-archiver/internal/pipeline"
)

var (
	cfgFile         string
	targetURL       string
	outputDir       string
	concurrency     int
	maxRetries      int
	retryDelay      time.Duration
	jitter          time.Duration
	randomSeed      int64
	timeout         time.Duration
	userAgent       string
	maxResourceSize int64
	noImages        bool
	noCSS           bool
	verbose         bool
)

// parseTargetURL validates the page URL given on the command line.
func parseTargetURL(urlString string) (url.URL, error) {
	if urlString == "" {
		return url.URL{}, fmt.Errorf("target URL cannot be empty")
	}
	parsedURL, err := url.Parse(urlString)
	if err != nil {
		return url.URL{}, fmt.Errorf("error parsing target URL %s: %w", urlString, err)
	}
	return *parsedURL, nil
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "page-archiver [url]",
	Short: "Archive a web page and its embedded resources locally.",
	Long: `page-archiver fetches a single web page, downloads the images and
stylesheets it references, and writes a self-contained local bundle: the
rewritten page as index.html next to images/ and css/ directories.

Resource downloads run concurrently with per-resource retry, and failed
resources never abort the archive; their references are simply left
pointing at the original URLs.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) > 0 {
			targetURL = args[0]
		}
		if targetURL == "" {
			fmt.Fprintf(os.Stderr, "Error: a target URL is required, either as an argument or via --url.\n")
			cmd.Usage()
			os.Exit(1)
		}

		parsedURL, err := parseTargetURL(targetURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}

		cfg := InitConfig(parsedURL)

		logLevel := slog.LevelInfo
		if verbose {
			logLevel = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

		// an interrupt stops new downloads; in-flight tasks wind down
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		archivePipeline := pipeline.NewPipeline(cfg, logger)
		summary, runErr := archivePipeline.Run(ctx)
		if runErr != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", runErr)
			os.Exit(1)
		}

		printSummary(summary)
	},
}

func printSummary(summary pipeline.Summary) {
	stats := summary.Stats
	fmt.Printf("Archive written to %s\n", summary.DocumentPath)
	fmt.Printf("Images: %d saved, %d failed\n", stats.ImagesOk, stats.ImagesFailed)
	fmt.Printf("Stylesheets: %d saved, %d failed\n", stats.StylesheetsOk, stats.StylesheetsFailed)
	fmt.Printf("References rewritten: %d of %d\n", summary.ReferencesRewritten, summary.ReferencesFound)
	fmt.Printf("Bytes written: %d\n", stats.BytesWritten)
	fmt.Printf("Duration: %v\n", stats.Duration.Round(time.Millisecond))

	for _, result := range summary.Results {
		if !result.Success() {
			resourceURL := result.ResourceURL()
			fmt.Printf("Failed: %s (%s, %d attempts): %s\n",
				resourceURL.String(), result.Kind(), result.Attempts(), result.FailReason())
		}
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "config file path (e.g., /home/myuser/config.json)")
	rootCmd.PersistentFlags().StringVar(&targetURL, "url", "", "URL of the page to archive")
	rootCmd.PersistentFlags().StringVar(&outputDir, "output-dir", "", "output directory for the archive bundle")
	rootCmd.PersistentFlags().IntVar(&concurrency, "concurrency", 0, "maximum number of simultaneous resource downloads")
	rootCmd.PersistentFlags().IntVar(&maxRetries, "max-retries", -1, "retries per resource after the first attempt")
	rootCmd.PersistentFlags().DurationVar(&retryDelay, "retry-delay", 0, "base delay before the first retry")
	rootCmd.PersistentFlags().DurationVar(&jitter, "jitter", 0, "random jitter added to retry delays")
	rootCmd.PersistentFlags().Int64Var(&randomSeed, "random-seed", 0, "seed for random number generation (0 for current time)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "timeout per HTTP request attempt")
	rootCmd.PersistentFlags().StringVar(&userAgent, "user-agent", "", "user agent string for HTTP requests")
	rootCmd.PersistentFlags().Int64Var(&maxResourceSize, "max-resource-size", 0, "maximum resource body size in bytes")
	rootCmd.PersistentFlags().BoolVar(&noImages, "no-images", false, "skip downloading images")
	rootCmd.PersistentFlags().BoolVar(&noCSS, "no-css", false, "skip downloading stylesheets")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "emit per-resource debug logging")
}

// InitConfig reads in config file and CLI flags.
// targetURL is mandatory and must be a valid absolute URL.
func InitConfig(targetURL url.URL) config.Config {
	cfg, err := InitConfigWithError(targetURL)
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		os.Exit(1)
	}
	return cfg
}

// InitConfigWithError reads in config file and CLI flags, returning any errors.
// This makes it easier to test error cases.
func InitConfigWithError(targetURL url.URL) (config.Config, error) {
	if cfgFile != "" {
		fmt.Printf("Initializing config from file: %s\n", cfgFile)
		cfg, err := config.WithConfigFile(cfgFile)
		if err != nil {
			return cfg, fmt.Errorf("error initializing config from file: %w", err)
		}
		return cfg, nil
	}

	// Start with default config for the target URL and apply flag overrides
	configBuilder := config.WithDefault(targetURL)

	if outputDir != "" {
		configBuilder = configBuilder.WithOutputDir(outputDir)
	}

	if concurrency > 0 {
		configBuilder = configBuilder.WithConcurrency(concurrency)
	}

	// -1 means the flag was not set; 0 is a valid explicit value
	if maxRetries >= 0 {
		configBuilder = configBuilder.WithMaxRetries(maxRetries)
	}

	if retryDelay > 0 {
		configBuilder = configBuilder.WithBaseRetryDelay(retryDelay)
	}

	if jitter > 0 {
		configBuilder = configBuilder.WithJitter(jitter)
	}

	if randomSeed != 0 {
		configBuilder = configBuilder.WithRandomSeed(randomSeed)
	}

	if timeout > 0 {
		configBuilder = configBuilder.WithTimeout(timeout)
	}

	if userAgent != "" {
		configBuilder = configBuilder.WithUserAgent(userAgent)
	}

	if maxResourceSize > 0 {
		configBuilder = configBuilder.WithMaxResourceSize(maxResourceSize)
	}

	if noImages {
		configBuilder = configBuilder.WithDownloadImages(false)
	}

	if noCSS {
		configBuilder = configBuilder.WithDownloadCSS(false)
	}

	cfg, err := configBuilder.Build()
	if err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func ResetFlags() {
	cfgFile = ""
	targetURL = ""
	outputDir = ""
	concurrency = 0
	maxRetries = -1
	retryDelay = 0
	jitter = 0
	randomSeed = 0
	timeout = 0
	userAgent = ""
	maxResourceSize = 0
	noImages = false
	noCSS = false
	verbose = false
}

// Test helper functions to set flag values from tests
func SetConfigFileForTest(path string) {
	cfgFile = path
}

func SetOutputDirForTest(dir string) {
	outputDir = dir
}

func SetConcurrencyForTest(conc int) {
	concurrency = conc
}

func SetMaxRetriesForTest(retries int) {
	maxRetries = retries
}

func SetRetryDelayForTest(delay time.Duration) {
	retryDelay = delay
}

func SetJitterForTest(j time.Duration) {
	jitter = j
}

func SetRandomSeedForTest(seed int64) {
	randomSeed = seed
}

func SetTimeoutForTest(t time.Duration) {
	timeout = t
}

func SetUserAgentForTest(agent string) {
	userAgent = agent
}

func SetMaxResourceSizeForTest(size int64) {
	maxResourceSize = size
}

func SetNoImagesForTest(skip bool) {
	noImages = skip
}

func SetNoCSSForTest(skip bool) {
	noCSS = skip
}
