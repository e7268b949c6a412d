// Package feeds retrieves raw feed bodies and extracts normalized items.
package feeds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/CurationsLA/lemon/internal/domain"
	"github.com/CurationsLA/lemon/internal/logger"
)

// maxBodyBytes caps a single feed body read. Feeds larger than this are
// truncated rather than buffered in full.
const maxBodyBytes = 4 << 20

// FetchOutcome is the result of fetching one feed: a body or an error,
// never both. A failed feed is recorded and skipped, not fatal.
type FetchOutcome struct {
	Source domain.FeedSource
	Body   string
	Err    error
}

// Fetcher retrieves feed bodies over HTTP with per-feed isolation.
type Fetcher struct {
	client        *http.Client
	timeout       time.Duration
	maxConcurrent int
	log           logger.Logger
}

// NewFetcher creates a Fetcher. timeout bounds each individual feed fetch;
// maxConcurrent bounds in-flight requests across one FetchAll call.
func NewFetcher(client *http.Client, timeout time.Duration, maxConcurrent int, log logger.Logger) *Fetcher {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Fetcher{
		client:        client,
		timeout:       timeout,
		maxConcurrent: maxConcurrent,
		log:           log,
	}
}

// FetchAll retrieves every source concurrently, bounded by maxConcurrent.
// The returned slice preserves the input order regardless of completion
// order, so downstream batch assembly is deterministic.
func (f *Fetcher) FetchAll(ctx context.Context, sources []domain.FeedSource) []FetchOutcome {
	outcomes := make([]FetchOutcome, len(sources))
	sem := make(chan struct{}, f.maxConcurrent)

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src domain.FeedSource) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			body, err := f.fetch(ctx, src.URL)
			outcomes[i] = FetchOutcome{Source: src, Body: body, Err: err}
			if err != nil {
				f.log.Warn("feed fetch failed",
					logger.String("feed", src.Name),
					logger.String("url", src.URL),
					logger.Error(err))
			}
		}(i, src)
	}
	wg.Wait()

	return outcomes
}

// fetch performs one GET with the per-feed timeout applied on top of the
// caller's context, so one stalled upstream cannot stall the whole run.
func (f *Fetcher) fetch(ctx context.Context, url string) (string, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("feed fetch new request: %w", err)
	}
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("feed fetch do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("feed fetch unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("feed fetch read body: %w", err)
	}

	return string(raw), nil
}
