package downloader

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultUserAgent = "splitget"

// ClientConfig tunes the HTTP client shared by all range fetches.
type ClientConfig struct {
	// Timeout bounds dialing and waiting for response headers. Body reads
	// are bounded only by the download context.
	Timeout     time.Duration
	KATimeout   time.Duration
	UserAgent   string
	Headers     map[string]string
	ProxyURL    string
	UseDoH      bool
	DoHEndpoint string
	// MaxConns sizes the idle pool; usually the number of ranges.
	MaxConns int
}

// Client wraps an *http.Client and stamps every request with the
// configured User-Agent and extra headers. It is safe for concurrent use.
type Client struct {
	client *http.Client
	config ClientConfig
}

// NewClient builds a Client with a transport suited to many parallel range
// requests against the same host.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.KATimeout == 0 {
		cfg.KATimeout = 90 * time.Second
	}
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = 16
	}

	dialer := &net.Dialer{
		Timeout:   cfg.Timeout,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          cfg.MaxConns * 2,
		MaxIdleConnsPerHost:   cfg.MaxConns,
		IdleConnTimeout:       cfg.KATimeout,
		ResponseHeaderTimeout: cfg.Timeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		// Ranges must arrive as raw bytes.
		DisableCompression: true,
	}

	if cfg.UseDoH {
		resolver := NewDoHResolver(cfg.DoHEndpoint)
		transport.DialContext = resolver.DialContext(dialer)
	}

	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &Client{
		client: &http.Client{Transport: transport},
		config: cfg,
	}, nil
}

// Do sends req after applying the configured headers.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	} else {
		req.Header.Set("User-Agent", defaultUserAgent)
	}
	for k, v := range c.config.Headers {
		if strings.EqualFold(k, "Range") {
			continue
		}
		req.Header.Set(k, v)
	}
	return c.client.Do(req)
}

// CloseIdleConnections releases pooled connections once a download is over.
func (c *Client) CloseIdleConnections() {
	c.client.CloseIdleConnections()
}
