package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/raphaelgruber/legtrack/internal/metrics"
)

const (
	fetchTimeout = 20 * time.Second
	maxRetries   = 2
)

// Fetcher retrieves catalog pages from the legislature site. One instance is
// shared by the listing and detail fetchers; it never runs requests in
// parallel on behalf of a sync job.
type Fetcher struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	extractor  FieldExtractor
	collector  *metrics.Collector
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient overrides the HTTP client (tests).
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.httpClient = c }
}

// WithExtractor overrides the field extractor.
func WithExtractor(e FieldExtractor) Option {
	return func(f *Fetcher) { f.extractor = e }
}

// WithCollector attaches a metrics collector for fetch timings.
func WithCollector(c *metrics.Collector) Option {
	return func(f *Fetcher) { f.collector = c }
}

// NewFetcher creates a fetcher for the given catalog base URL. userAgent is
// the identifying client label sent with every request.
func NewFetcher(baseURL, userAgent string, opts ...Option) *Fetcher {
	f := &Fetcher{
		baseURL:   baseURL,
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: fetchTimeout,
		},
		extractor: NewRegexExtractor(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// listingURL is the per-type catalog page listing filed bills.
func (f *Fetcher) listingURL(sessionCode, billType string) string {
	return fmt.Sprintf("%s/Reports/Report.aspx?LegSess=%s&ID=%sfiled", f.baseURL, sessionCode, billType)
}

// detailURL is the history page for one bill.
func (f *Fetcher) detailURL(sessionCode, billType string, number int) string {
	return fmt.Sprintf("%s/BillLookup/History.aspx?LegSess=%s&Bill=%s%d", f.baseURL, sessionCode, billType, number)
}

// get fetches a URL with bounded exponential-backoff retries. 4xx responses
// are permanent; transport errors and 5xx are retried.
func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	operation := func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", f.userAgent)

		resp, err := f.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, backoff.Permanent(fmt.Errorf("unexpected status: %s", resp.Status))
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status: %s", resp.Status)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		return body, nil
	}

	return backoff.RetryWithData(operation,
		backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx))
}

func (f *Fetcher) record(op string, start time.Time, failed bool) {
	if f.collector != nil {
		f.collector.Record(op, time.Since(start), failed)
	}
}
