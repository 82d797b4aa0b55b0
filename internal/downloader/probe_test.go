package downloader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestProbe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("expected HEAD, got %s", r.Method)
		}
		w.Header().Set("Content-Length", "1024")
		w.Header().Set("Accept-Ranges", "bytes")
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", `attachment; filename="report 2024.tar.gz"`)
	}))
	defer server.Close()

	info, err := Probe(context.Background(), http.DefaultClient, server.URL)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if info.Size != 1024 {
		t.Errorf("expected size 1024, got %d", info.Size)
	}
	if !info.AcceptRanges {
		t.Error("expected AcceptRanges to be true")
	}
	if info.ContentType != "application/octet-stream" {
		t.Errorf("expected content type 'application/octet-stream', got %s", info.ContentType)
	}
	if info.FileName != "report 2024.tar.gz" {
		t.Errorf("expected file name 'report 2024.tar.gz', got %q", info.FileName)
	}
}

func TestProbeMissingLength(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, err := Probe(context.Background(), http.DefaultClient, server.URL)
	var sizeErr *SizeUnknownError
	if !errors.As(err, &sizeErr) {
		t.Fatalf("expected SizeUnknownError, got %v", err)
	}
	if sizeErr.Value != "" {
		t.Errorf("expected empty value, got %q", sizeErr.Value)
	}
}

func TestProbeInvalidLength(t *testing.T) {
	for _, value := range []string{"abc", "-5", "12.5"} {
		client := doerFunc(func(req *http.Request) (*http.Response, error) {
			return response(http.StatusOK, http.Header{"Content-Length": {value}}, ""), nil
		})
		_, err := Probe(context.Background(), client, "http://example.com/file")
		var sizeErr *SizeUnknownError
		if !errors.As(err, &sizeErr) {
			t.Fatalf("Content-Length %q: expected SizeUnknownError, got %v", value, err)
		}
		if sizeErr.Value != value {
			t.Errorf("expected value %q, got %q", value, sizeErr.Value)
		}
	}
}

func TestProbeStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := Probe(context.Background(), http.DefaultClient, server.URL)
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if transportErr.StatusCode != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", transportErr.StatusCode)
	}
	if transportErr.Op != "probe" {
		t.Errorf("expected op 'probe', got %q", transportErr.Op)
	}
}

func TestProbeConnectionError(t *testing.T) {
	cause := errors.New("connection refused")
	client := doerFunc(func(req *http.Request) (*http.Response, error) {
		return nil, cause
	})

	_, err := Probe(context.Background(), client, "http://example.com/file")
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected error to wrap %v", cause)
	}
}

func TestDispositionName(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"inline", ""},
		{`attachment; filename="data.bin"`, "data.bin"},
		{`attachment; filename="../../etc/passwd"`, ".._.._etc_passwd"},
		{`attachment; filename*=UTF-8''caf%C3%A9.txt`, "caf_.txt"},
	}
	for _, tt := range tests {
		if got := dispositionName(tt.header); got != tt.want {
			t.Errorf("dispositionName(%q): expected %q, got %q", tt.header, tt.want, got)
		}
	}
}
