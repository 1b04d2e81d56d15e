package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Ensure HTTPFetcher implements Fetcher interface.
var _ Fetcher = (*HTTPFetcher)(nil)

type HTTPFetcher struct {
	client   *http.Client
	hosts    []string
	maxBytes int64
}

// Redirect hops followed before giving up, same as net/http
const maxRedirects = 10

// Only http(s) urls on one of `hosts` are fetched, host comparison ignores case and port.
// Every redirect hop is held to the same hosts. `client` is copied and left untouched.
func NewHTTPFetcher(client *http.Client, maxBytes int64, hosts ...string) *HTTPFetcher {
	lowered := make([]string, len(hosts))
	for i, h := range hosts {
		lowered[i] = strings.ToLower(h)
	}

	if client == nil {
		client = http.DefaultClient
	}

	f := &HTTPFetcher{
		hosts:    lowered,
		maxBytes: maxBytes,
	}

	restricted := *client
	restricted.CheckRedirect = f.checkRedirect
	f.client = &restricted

	return f
}

func (f *HTTPFetcher) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}

	if !f.Allowed(req.URL.String()) {
		return fmt.Errorf("%w: redirected to %s", ErrHostNotAllowed, req.URL.Host)
	}

	return nil
}

func (f *HTTPFetcher) Allowed(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	return slices.Contains(f.hosts, strings.ToLower(u.Hostname()))
}

func (f *HTTPFetcher) Fetch(ctx context.Context, raw string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "HTTPFetcher.Fetch", trace.WithAttributes(
		attribute.String("url", raw),
	))
	defer span.End()

	if !f.Allowed(raw) {
		span.RecordError(ErrHostNotAllowed)
		span.SetStatus(codes.Error, "host not allowed")
		return nil, ErrHostNotAllowed
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSpace(raw), nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to construct request")
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to download file")
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("invalid status code: %d", resp.StatusCode)
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid status code")
		return nil, err
	}

	if resp.ContentLength > f.maxBytes {
		span.RecordError(ErrTooLarge)
		span.SetStatus(codes.Error, "file too large")
		return nil, ErrTooLarge
	}

	buf, err := readLimited(resp.Body, f.maxBytes)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read body")
		return nil, err
	}

	span.SetAttributes(attribute.Int("file.size", len(buf)))
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "fetched file by http")
	return buf, nil
}
