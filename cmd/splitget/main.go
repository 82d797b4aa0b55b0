package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"splitget/internal/config"
	"splitget/internal/logging"
	"splitget/internal/output"
)

var version = "dev"

var (
	connections   int
	outputPath    string
	readIncrement string
	timeout       time.Duration
	kaTimeout     time.Duration
	userAgent     string
	headers       []string
	proxyURL      string
	useDoH        bool
	noProgress    bool
	configFile    string
	logFile       string
	logFormat     string
	debug         bool
)

var rootCmd = &cobra.Command{
	Use:     "splitget [url]",
	Short:   "Download a file over several parallel range requests",
	Version: version,
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runDownload(cmd, args[0]); err != nil {
			if errors.Is(err, context.Canceled) {
				output.PrintWarning(os.Stderr, "Download cancelled, nothing was written")
			} else {
				output.PrintError(os.Stderr, err.Error())
			}
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.Flags().IntVarP(&connections, "connections", "n", 4, "Number of concurrent connections")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (derived from the URL if not provided)")
	rootCmd.Flags().StringVar(&readIncrement, "read-increment", "1MiB", "Maximum bytes read per body read (eg. 64KiB, 4MiB)")
	rootCmd.Flags().DurationVarP(&timeout, "timeout", "t", 60*time.Second, "Connect and response-header timeout (eg. 5s, 2m)")
	rootCmd.Flags().DurationVarP(&kaTimeout, "keep-alive-timeout", "k", 90*time.Second, "Idle keep-alive timeout for pooled connections")
	rootCmd.Flags().StringVarP(&userAgent, "user-agent", "a", "splitget", "User agent")
	rootCmd.Flags().StringArrayVarP(&headers, "header", "H", []string{}, "Custom header like 'Authorization: Bearer x'; can be repeated")
	rootCmd.Flags().StringVarP(&proxyURL, "proxy", "p", "", "HTTP/HTTPS proxy URL")
	rootCmd.Flags().BoolVar(&useDoH, "doh", false, "Resolve hostnames with DNS over HTTPS")
	rootCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the progress display")
	rootCmd.Flags().StringVar(&configFile, "config", "", "Path to a YAML config file")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "Log file used while the progress display is active")
	rootCmd.Flags().StringVar(&logFormat, "log-format", "console", "Log format: console or json")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig layers the config file, the environment and explicitly set
// flags, in that order.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if configFile != "" {
		loaded, err := config.LoadFromFile(configFile)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("connections") {
		cfg.Connections = connections
	}
	if flags.Changed("output") {
		cfg.Output = outputPath
	}
	if flags.Changed("read-increment") {
		size, err := config.ParseSize(readIncrement)
		if err != nil {
			return config.Config{}, fmt.Errorf("invalid --read-increment: %w", err)
		}
		cfg.ReadIncrement = size
	}
	if flags.Changed("timeout") {
		cfg.Timeout = timeout
	}
	if flags.Changed("keep-alive-timeout") {
		cfg.KATimeout = kaTimeout
	}
	if flags.Changed("user-agent") {
		cfg.UserAgent = userAgent
	}
	if flags.Changed("header") {
		for k, v := range config.ParseHeaders(headers) {
			cfg.Headers[k] = v
		}
	}
	if flags.Changed("proxy") {
		cfg.Proxy = proxyURL
	}
	if flags.Changed("doh") {
		cfg.DoH = useDoH
	}
	if noProgress {
		cfg.Progress = false
	}
	if flags.Changed("log-file") {
		cfg.LogFile = logFile
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = logFormat
	}
	if debug {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func runDownload(cmd *cobra.Command, url string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// The progress display owns the terminal, so logs go to a file.
	showProgress := cfg.Progress && isatty.IsTerminal(os.Stdout.Fd())
	logOut := os.Stderr
	if showProgress {
		f, err := logging.OpenFile(cfg.LogFile)
		if err != nil {
			return fmt.Errorf("error opening log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	if err := logging.Init(logging.Options{Level: cfg.LogLevel, Output: logOut, JSON: cfg.LogFormat == "json"}); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !showProgress {
		output.PrintInfo(os.Stderr, fmt.Sprintf("Downloading %s over %d connections", url, cfg.Connections))
	}
	dest, size, err := download(ctx, url, cfg, showProgress)
	if err != nil {
		return err
	}
	output.PrintSuccess(os.Stdout, fmt.Sprintf("Saved %s (%s)", dest, formatSize(size)))
	return nil
}
