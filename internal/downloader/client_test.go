package downloader

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
)

func TestClientHeaders(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{
		UserAgent: "test-agent/1.0",
		Headers: map[string]string{
			"Authorization": "Bearer token",
			"Range":         "bytes=0-0",
		},
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	req.Header.Set("Range", "bytes=5-9")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	resp.Body.Close()

	if ua := got.Get("User-Agent"); ua != "test-agent/1.0" {
		t.Errorf("expected User-Agent 'test-agent/1.0', got %q", ua)
	}
	if auth := got.Get("Authorization"); auth != "Bearer token" {
		t.Errorf("expected Authorization header, got %q", auth)
	}
	if rh := got.Get("Range"); rh != "bytes=5-9" {
		t.Errorf("custom headers must not replace Range, got %q", rh)
	}
}

func TestClientDefaultUserAgent(t *testing.T) {
	var ua string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.UserAgent()
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	req, _ := http.NewRequest(http.MethodHead, server.URL, nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	resp.Body.Close()

	if ua != defaultUserAgent {
		t.Errorf("expected User-Agent %q, got %q", defaultUserAgent, ua)
	}
}

func TestClientInvalidProxy(t *testing.T) {
	if _, err := NewClient(ClientConfig{ProxyURL: "://bad"}); err == nil {
		t.Error("expected an error for an invalid proxy URL")
	}
}

func newDoHServer(t *testing.T, answers map[string]string, lookups *atomic.Int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lookups.Add(1)
		if r.Header.Get("Accept") != "application/dns-json" {
			t.Errorf("unexpected Accept header %q", r.Header.Get("Accept"))
		}
		name := r.URL.Query().Get("name")
		resp := doHResponse{Status: 0}
		if ip, ok := answers[name]; ok {
			resp.Answer = []doHAnswer{
				{Name: name, Type: 5, Data: "alias.example."},
				{Name: name, Type: 1, TTL: 60, Data: ip},
			}
		} else {
			resp.Status = 3 // NXDOMAIN
		}
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestDoHResolve(t *testing.T) {
	var lookups atomic.Int32
	server := newDoHServer(t, map[string]string{"files.example": "10.1.2.3"}, &lookups)
	resolver := NewDoHResolver(server.URL)

	for i := 0; i < 3; i++ {
		ip, err := resolver.Resolve(context.Background(), "files.example")
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if ip != "10.1.2.3" {
			t.Errorf("expected 10.1.2.3, got %s", ip)
		}
	}
	if lookups.Load() != 1 {
		t.Errorf("expected a single cached lookup, got %d", lookups.Load())
	}

	if _, err := resolver.Resolve(context.Background(), "missing.example"); err == nil {
		t.Error("expected an error for NXDOMAIN")
	}
}

func TestDoHDialContext(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ok")
	}))
	defer target.Close()

	var lookups atomic.Int32
	dns := newDoHServer(t, map[string]string{"mirror.example": "127.0.0.1"}, &lookups)

	resolver := NewDoHResolver(dns.URL)
	client := &http.Client{Transport: &http.Transport{DialContext: resolver.DialContext(&net.Dialer{})}}

	u, _ := url.Parse(target.URL)
	resp, err := client.Get("http://mirror.example:" + u.Port() + "/")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Errorf("expected 'ok', got %q", body)
	}
	if lookups.Load() != 1 {
		t.Errorf("expected one DoH lookup, got %d", lookups.Load())
	}
}
