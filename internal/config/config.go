// Package config loads splitget settings from a YAML file, SPLITGET_*
// environment variables and command-line flags, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"splitget/internal/downloader"
)

// Config defines configuration for the splitget CLI.
type Config struct {
	Connections   int
	ReadIncrement int64
	Timeout       time.Duration
	KATimeout     time.Duration
	UserAgent     string
	Headers       map[string]string
	Proxy         string
	DoH           bool
	DoHEndpoint   string
	Output        string
	Progress      bool
	LogLevel      string
	LogFormat     string
	LogFile       string
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Connections:   4,
		ReadIncrement: downloader.DefaultReadIncrement,
		Timeout:       60 * time.Second,
		KATimeout:     90 * time.Second,
		UserAgent:     "splitget",
		Headers:       map[string]string{},
		DoHEndpoint:   downloader.DefaultDoHEndpoint,
		Progress:      true,
		LogLevel:      "info",
		LogFormat:     "console",
		LogFile:       ".splitget.log",
	}
}

// yamlConfig mirrors Config with human-friendly strings for sizes and
// durations. Pointers distinguish "unset" from false.
type yamlConfig struct {
	Connections   int               `yaml:"connections"`
	ReadIncrement string            `yaml:"read_increment"`
	Timeout       string            `yaml:"timeout"`
	KATimeout     string            `yaml:"keep_alive_timeout"`
	UserAgent     string            `yaml:"user_agent"`
	Headers       map[string]string `yaml:"headers"`
	Proxy         string            `yaml:"proxy"`
	DoH           *bool             `yaml:"doh"`
	DoHEndpoint   string            `yaml:"doh_endpoint"`
	Output        string            `yaml:"output"`
	Progress      *bool             `yaml:"progress"`
	LogLevel      string            `yaml:"log_level"`
	LogFormat     string            `yaml:"log_format"`
	LogFile       string            `yaml:"log_file"`
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()
	if yc.Connections != 0 {
		cfg.Connections = yc.Connections
	}
	if yc.ReadIncrement != "" {
		size, err := ParseSize(yc.ReadIncrement)
		if err != nil {
			return Config{}, fmt.Errorf("parse read_increment: %w", err)
		}
		cfg.ReadIncrement = size
	}
	if yc.Timeout != "" {
		d, err := time.ParseDuration(yc.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if yc.KATimeout != "" {
		d, err := time.ParseDuration(yc.KATimeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse keep_alive_timeout: %w", err)
		}
		cfg.KATimeout = d
	}
	if yc.UserAgent != "" {
		cfg.UserAgent = yc.UserAgent
	}
	for k, v := range yc.Headers {
		cfg.Headers[k] = v
	}
	if yc.Proxy != "" {
		cfg.Proxy = yc.Proxy
	}
	if yc.DoH != nil {
		cfg.DoH = *yc.DoH
	}
	if yc.DoHEndpoint != "" {
		cfg.DoHEndpoint = yc.DoHEndpoint
	}
	if yc.Output != "" {
		cfg.Output = yc.Output
	}
	if yc.Progress != nil {
		cfg.Progress = *yc.Progress
	}
	if yc.LogLevel != "" {
		cfg.LogLevel = yc.LogLevel
	}
	if yc.LogFormat != "" {
		cfg.LogFormat = yc.LogFormat
	}
	if yc.LogFile != "" {
		cfg.LogFile = yc.LogFile
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the SPLITGET_ prefix. Headers can only be set
// from the config file or flags.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("SPLITGET_CONNECTIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse SPLITGET_CONNECTIONS: %w", err)
		}
		c.Connections = n
	}
	if v := os.Getenv("SPLITGET_READ_INCREMENT"); v != "" {
		size, err := ParseSize(v)
		if err != nil {
			return fmt.Errorf("parse SPLITGET_READ_INCREMENT: %w", err)
		}
		c.ReadIncrement = size
	}
	if v := os.Getenv("SPLITGET_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse SPLITGET_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	if v := os.Getenv("SPLITGET_KEEP_ALIVE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse SPLITGET_KEEP_ALIVE_TIMEOUT: %w", err)
		}
		c.KATimeout = d
	}
	if v := os.Getenv("SPLITGET_USER_AGENT"); v != "" {
		c.UserAgent = v
	}
	if v := os.Getenv("SPLITGET_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("SPLITGET_DOH"); v != "" {
		c.DoH = v == "true" || v == "1"
	}
	if v := os.Getenv("SPLITGET_DOH_ENDPOINT"); v != "" {
		c.DoHEndpoint = v
	}
	if v := os.Getenv("SPLITGET_OUTPUT"); v != "" {
		c.Output = v
	}
	if v := os.Getenv("SPLITGET_PROGRESS"); v != "" {
		c.Progress = v == "true" || v == "1"
	}
	if v := os.Getenv("SPLITGET_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("SPLITGET_LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("SPLITGET_LOG_FILE"); v != "" {
		c.LogFile = v
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Connections < 1 {
		return errors.New("config: connections must be at least 1")
	}
	if c.ReadIncrement <= 0 {
		return errors.New("config: read_increment must be positive")
	}
	if c.ReadIncrement > 1<<30 {
		return errors.New("config: read_increment must not exceed 1GiB")
	}
	if c.Timeout < 0 || c.KATimeout < 0 {
		return errors.New("config: timeouts must not be negative")
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("config: log_format must be console or json, got %q", c.LogFormat)
	}
	return nil
}

// Downloader converts the settings into an engine configuration for url.
func (c Config) Downloader(url string) downloader.Config {
	return downloader.Config{
		URL:           url,
		Connections:   c.Connections,
		ReadIncrement: int(c.ReadIncrement),
		Client: downloader.ClientConfig{
			Timeout:     c.Timeout,
			KATimeout:   c.KATimeout,
			UserAgent:   c.UserAgent,
			Headers:     c.Headers,
			ProxyURL:    c.Proxy,
			UseDoH:      c.DoH,
			DoHEndpoint: c.DoHEndpoint,
			MaxConns:    c.Connections,
		},
	}
}

// ParseSize parses sizes such as "1MiB", "512KB" or "4096".
// SI suffixes are decimal (1KB = 1000 bytes), IEC suffixes binary.
func ParseSize(s string) (int64, error) {
	n, err := humanize.ParseBytes(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n > 1<<62 {
		return 0, fmt.Errorf("size %q too large", s)
	}
	return int64(n), nil
}

// ParseHeaders turns "Key: Value" strings into a header map. Entries
// without a colon are ignored.
func ParseHeaders(headers []string) map[string]string {
	result := make(map[string]string)
	for _, header := range headers {
		parts := strings.SplitN(header, ":", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			if key != "" {
				result[key] = value
			}
		}
	}
	return result
}
