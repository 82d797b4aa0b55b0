package downloader

import (
	"context"
	"mime"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var fileNameRegex = regexp.MustCompile(`[^a-zA-Z0-9_\-\. ]+`)

// Probe issues a HEAD request for rawURL and reports the declared size of
// the resource along with a few informational headers.
func Probe(ctx context.Context, client Doer, rawURL string) (Info, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return Info{}, &TransportError{Op: "probe", URL: rawURL, Err: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Info{}, ctx.Err()
		}
		return Info{}, &TransportError{Op: "probe", URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Info{}, &TransportError{Op: "probe", URL: rawURL, StatusCode: resp.StatusCode}
	}

	value := resp.Header.Get("Content-Length")
	if value == "" {
		return Info{}, &SizeUnknownError{URL: rawURL}
	}
	size, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || size < 0 {
		return Info{}, &SizeUnknownError{URL: rawURL, Value: value}
	}

	return Info{
		Size:         size,
		FileName:     dispositionName(resp.Header.Get("Content-Disposition")),
		ContentType:  resp.Header.Get("Content-Type"),
		AcceptRanges: resp.Header.Get("Accept-Ranges") == "bytes",
	}, nil
}

func dispositionName(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	if fn := params["filename"]; fn != "" {
		return fileNameRegex.ReplaceAllString(fn, "_")
	}
	// mime decodes RFC 2231 values into "filename"; this catches the raw form
	if fn := params["filename*"]; strings.HasPrefix(fn, "UTF-8''") {
		unescaped, err := url.PathUnescape(strings.TrimPrefix(fn, "UTF-8''"))
		if err == nil {
			return fileNameRegex.ReplaceAllString(unescaped, "_")
		}
	}
	return ""
}
