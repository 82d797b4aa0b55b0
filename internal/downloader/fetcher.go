package downloader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// Fetch downloads the bytes of spec from rawURL into memory, reading at most
// increment bytes at a time and advancing sink after every read. The context
// is checked between reads; a cancelled fetch closes its connection without
// draining it and returns the context error.
func Fetch(ctx context.Context, client Doer, rawURL string, spec RangeSpec, sink *Sink, increment int) (FetchResult, error) {
	if increment <= 0 {
		increment = DefaultReadIncrement
	}
	if spec.Len() <= 0 {
		sink.finish()
		return FetchResult{Index: spec.Index, Payload: []byte{}}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return FetchResult{}, &TransportError{Op: "fetch", URL: rawURL, Err: err}
	}
	req.Header.Set("Range", spec.Header())

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return FetchResult{}, ctx.Err()
		}
		return FetchResult{}, &TransportError{Op: "fetch", URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusPartialContent:
	case http.StatusOK:
		return FetchResult{}, &RangeUnsupportedError{URL: rawURL, Range: spec, StatusCode: resp.StatusCode}
	default:
		return FetchResult{}, &TransportError{Op: "fetch", URL: rawURL, StatusCode: resp.StatusCode}
	}
	if cr := resp.Header.Get("Content-Range"); cr != "" {
		start, end, err := parseContentRange(cr)
		if err != nil {
			return FetchResult{}, &TransportError{Op: "fetch", URL: rawURL, StatusCode: resp.StatusCode, Err: err}
		}
		if start != spec.Start || end != spec.End {
			return FetchResult{}, &RangeUnsupportedError{URL: rawURL, Range: spec, StatusCode: resp.StatusCode, ContentRange: cr}
		}
	}

	want := spec.Len()
	var payload bytes.Buffer
	payload.Grow(int(want))
	buf := make([]byte, min(int64(increment), want))
	for {
		select {
		case <-ctx.Done():
			return FetchResult{}, ctx.Err()
		default:
		}

		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if int64(payload.Len()+n) > want {
				return FetchResult{}, &TransportError{Op: "fetch", URL: rawURL, StatusCode: resp.StatusCode,
					Err: fmt.Errorf("range %s: body longer than %d bytes", spec.Header(), want)}
			}
			payload.Write(buf[:n])
			sink.Add(int64(n))
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			if ctx.Err() != nil {
				return FetchResult{}, ctx.Err()
			}
			return FetchResult{}, &TransportError{Op: "fetch", URL: rawURL, StatusCode: resp.StatusCode, Err: readErr}
		}
	}

	if int64(payload.Len()) != want {
		return FetchResult{}, &TransportError{Op: "fetch", URL: rawURL, StatusCode: resp.StatusCode,
			Err: fmt.Errorf("range %s: got %d of %d bytes", spec.Header(), payload.Len(), want)}
	}
	sink.finish()
	return FetchResult{Index: spec.Index, Payload: payload.Bytes()}, nil
}

// parseContentRange reads the interval of a "bytes start-end/total" header.
func parseContentRange(value string) (start, end int64, err error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(value), "bytes ")
	if !ok {
		return 0, 0, fmt.Errorf("malformed Content-Range %q", value)
	}
	interval, _, ok := strings.Cut(rest, "/")
	if !ok {
		return 0, 0, fmt.Errorf("malformed Content-Range %q", value)
	}
	first, last, ok := strings.Cut(interval, "-")
	if !ok {
		return 0, 0, fmt.Errorf("malformed Content-Range %q", value)
	}
	if start, err = strconv.ParseInt(first, 10, 64); err != nil {
		return 0, 0, fmt.Errorf("malformed Content-Range %q", value)
	}
	if end, err = strconv.ParseInt(last, 10, 64); err != nil {
		return 0, 0, fmt.Errorf("malformed Content-Range %q", value)
	}
	return start, end, nil
}
