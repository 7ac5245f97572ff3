// Package remote refreshes the local cache of the available overlay
// list from its published locations.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-logr/logr"

	"github.com/overlay-tools/ovm/internal/catalog"
	"github.com/overlay-tools/ovm/internal/httpclient"
)

const defaultMaxTries = 4

// Fetcher refreshes the cached available catalog.
type Fetcher interface {
	// Fetch downloads the configured remote lists and replaces the
	// cache file. The cache is only replaced once every remote list
	// has been fetched and validated.
	Fetch(ctx context.Context) error
}

// HTTPFetcher downloads every configured remote list over HTTP,
// merges the documents in order and writes the result to the cache
// path in canonical form.
type HTTPFetcher struct {
	remotes   []string
	cachePath string
	client    httpclient.Client
	maxTries  uint
	log       logr.Logger
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithClient replaces the HTTP client.
func WithClient(client httpclient.Client) FetcherOption {
	return func(f *HTTPFetcher) {
		f.client = client
	}
}

// WithMaxTries bounds the retry attempts per remote.
func WithMaxTries(tries uint) FetcherOption {
	return func(f *HTTPFetcher) {
		f.maxTries = tries
	}
}

// WithLogger sets the message sink.
func WithLogger(log logr.Logger) FetcherOption {
	return func(f *HTTPFetcher) {
		f.log = log
	}
}

// NewHTTPFetcher creates a fetcher for the given remote list URLs
// writing into cachePath.
func NewHTTPFetcher(remotes []string, cachePath string, opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		remotes:   remotes,
		cachePath: cachePath,
		client:    httpclient.NewDefaultClient(0),
		maxTries:  defaultMaxTries,
		log:       logr.Discard(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch implements Fetcher. Any unreachable or malformed remote list
// aborts the refresh and leaves the existing cache untouched.
func (f *HTTPFetcher) Fetch(ctx context.Context) error {
	if len(f.remotes) == 0 {
		return fmt.Errorf("no remote overlay lists configured")
	}

	merged := catalog.New(catalog.WithLogger(f.log))
	for _, url := range f.remotes {
		data, err := f.download(ctx, url)
		if err != nil {
			return fmt.Errorf("failed to fetch the overlay list from %q: %w", url, err)
		}
		if err := merged.Read(data, url); err != nil {
			return err
		}
		f.log.V(1).Info("fetched remote overlay list", "url", url)
	}

	return merged.Write(f.cachePath)
}

func (f *HTTPFetcher) download(ctx context.Context, url string) ([]byte, error) {
	operation := func() ([]byte, error) {
		data, err := f.client.Get(ctx, url)
		if err != nil {
			var httpErr *httpclient.HTTPError
			if errors.As(err, &httpErr) && httpErr.StatusCode < http.StatusInternalServerError {
				// Client-side status codes will not heal on retry.
				return nil, backoff.Permanent(err)
			}
			f.log.V(1).Info("retrying remote overlay list", "url", url, "reason", err.Error())
			return nil, err
		}
		return data, nil
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(f.maxTries),
	)
}
