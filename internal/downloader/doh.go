package downloader

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultDoHEndpoint is Cloudflare's JSON DNS-over-HTTPS API.
const DefaultDoHEndpoint = "https://cloudflare-dns.com/dns-query"

type doHAnswer struct {
	Name string `json:"name"`
	Type int    `json:"type"`
	TTL  int    `json:"TTL"`
	Data string `json:"data"`
}

type doHResponse struct {
	Status int         `json:"Status"`
	Answer []doHAnswer `json:"Answer"`
}

// DoHResolver resolves hostnames through a DNS-over-HTTPS JSON endpoint.
// Answers are cached for the resolver's lifetime so parallel range
// connections to one host trigger a single lookup.
type DoHResolver struct {
	Endpoint string
	client   *http.Client

	mu    sync.Mutex
	cache map[string]string
}

// NewDoHResolver returns a resolver for endpoint, or for the default
// endpoint when it is empty.
func NewDoHResolver(endpoint string) *DoHResolver {
	if endpoint == "" {
		endpoint = DefaultDoHEndpoint
	}
	return &DoHResolver{
		Endpoint: endpoint,
		// The endpoint itself is looked up with the system resolver.
		client: &http.Client{Timeout: 5 * time.Second},
		cache:  make(map[string]string),
	}
}

// DialContext wraps dialer so that hostnames are resolved via DoH before
// connecting. Literal IPs are dialed directly.
func (r *DoHResolver) DialContext(dialer *net.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}
		if net.ParseIP(host) != nil {
			return dialer.DialContext(ctx, network, addr)
		}
		ip, err := r.Resolve(ctx, host)
		if err != nil {
			return nil, fmt.Errorf("DoH resolution failed for %s: %w", host, err)
		}
		return dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
	}
}

// Resolve returns the first A record for host.
func (r *DoHResolver) Resolve(ctx context.Context, host string) (string, error) {
	r.mu.Lock()
	ip, ok := r.cache[host]
	r.mu.Unlock()
	if ok {
		return ip, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.Endpoint, nil)
	if err != nil {
		return "", err
	}
	q := req.URL.Query()
	q.Add("name", host)
	q.Add("type", "A") // IPv4 only
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Accept", "application/dns-json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("DoH server returned status: %s", resp.Status)
	}

	var dohResp doHResponse
	if err := json.NewDecoder(resp.Body).Decode(&dohResp); err != nil {
		return "", err
	}
	if dohResp.Status != 0 {
		return "", fmt.Errorf("DNS error code: %d", dohResp.Status)
	}

	for _, ans := range dohResp.Answer {
		if ans.Type == 1 {
			r.mu.Lock()
			r.cache[host] = ans.Data
			r.mu.Unlock()
			log.Debug().Str("op", "downloader/doh").Str("host", host).Str("ip", ans.Data).Msg("resolved via DoH")
			return ans.Data, nil
		}
	}
	return "", fmt.Errorf("no A record found for %s", host)
}
