package fetch

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"

	"github.com/amishk599/jobsieve/internal/model"
)

const userAgent = "jobsieve/1.0 (+https://github.com/amishk599/jobsieve)"

// Ensure HTTPFetcher implements model.Fetcher.
var _ model.Fetcher = (*HTTPFetcher)(nil)

// HTTPFetcher retrieves documents over HTTP. It negotiates brotli and gzip
// itself, so responses are decoded here rather than by net/http.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher returns a fetcher that issues GET requests with client.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	return &HTTPFetcher{client: client}
}

// Fetch returns the decoded body at url. Any failure is a *model.TransportError.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &model.TransportError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Encoding", "br, gzip")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &model.TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &model.TransportError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := decodeBody(resp)
	if err != nil {
		return nil, &model.TransportError{URL: url, StatusCode: resp.StatusCode, Err: err}
	}
	return body, nil
}

func decodeBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "", "identity":
	case "br":
		r = brotli.NewReader(resp.Body)
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer gz.Close()
		r = gz
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", resp.Header.Get("Content-Encoding"))
	}

	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
