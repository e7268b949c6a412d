package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CurationsLA/lemon/internal/classifier"
	"github.com/CurationsLA/lemon/internal/config"
	"github.com/CurationsLA/lemon/internal/domain"
	"github.com/CurationsLA/lemon/internal/feeds"
	"github.com/CurationsLA/lemon/internal/ghost"
	"github.com/CurationsLA/lemon/internal/logger"
	"github.com/CurationsLA/lemon/internal/metrics"
	"github.com/CurationsLA/lemon/internal/store"
)

type fakeFetcher struct {
	outcomes []feeds.FetchOutcome
	called   bool
}

func (f *fakeFetcher) FetchAll(_ context.Context, _ []domain.FeedSource) []feeds.FetchOutcome {
	f.called = true
	return f.outcomes
}

type fakeStore struct {
	put    []*domain.ContentBatch
	putErr error
	batch  *domain.ContentBatch
	getErr error
}

func (f *fakeStore) Put(_ context.Context, batch *domain.ContentBatch) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.put = append(f.put, batch)
	return nil
}

func (f *fakeStore) Get(_ context.Context, _ string) (*domain.ContentBatch, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.batch, nil
}

type fakePublisher struct {
	title string
	html  string
	tags  []string
	calls int
	err   error
}

func (f *fakePublisher) CreateDraft(_ context.Context, title, html string, tags []string) (*ghost.CreatedDraft, error) {
	f.calls++
	f.title, f.html, f.tags = title, html, tags
	if f.err != nil {
		return nil, f.err
	}
	return &ghost.CreatedDraft{PostID: "post-1", EditorURL: "https://cms/ghost/#/editor/post/post-1"}, nil
}

func rssBody(items ...string) string {
	body := `<?xml version="1.0"?><rss version="2.0"><channel><title>Test</title>`
	for i, title := range items {
		body += fmt.Sprintf(`<item><title>%s</title><link>https://a.example/%d</link></item>`, title, i)
	}
	return body + `</channel></rss>`
}

func testConfig() *config.Config {
	return &config.Config{
		Feeds: []domain.FeedSource{
			{Name: "A", URL: "https://a.example/feed", Category: "Local News"},
			{Name: "B", URL: "https://b.example/feed", Category: "Events"},
		},
		Filter: config.FilterConfig{
			BannedKeywords:   []string{"shooting"},
			PositiveKeywords: []string{"free", "festival", "community"},
			LocalityKeywords: []string{"los angeles"},
			MinScore:         2,
			MaxItems:         40,
		},
		CMS: config.CMSConfig{DefaultTags: []string{"good-vibes"}},
	}
}

func newTestPipeline(t *testing.T, cfg *config.Config, fetcher Fetcher, st BatchStore, pub Publisher) (*Pipeline, *metrics.Metrics) {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	p := New(cfg, Deps{
		Fetcher: fetcher,
		Classifier: classifier.New(classifier.Rules{
			Banned:   cfg.Filter.BannedKeywords,
			Positive: cfg.Filter.PositiveKeywords,
			Locality: cfg.Filter.LocalityKeywords,
			MinScore: cfg.Filter.MinScore,
		}),
		Store:     st,
		Publisher: pub,
		Clock:     func() time.Time { return time.Date(2026, 8, 30, 7, 0, 0, 0, time.UTC) },
		Metrics:   m,
		Logger:    logger.Nop(),
	})
	return p, m
}

func TestSourceContent_StoresOneCompleteBatch(t *testing.T) {
	cfg := testConfig()
	fetcher := &fakeFetcher{outcomes: []feeds.FetchOutcome{
		{
			Source: cfg.Feeds[0],
			Body: rssBody(
				"Free community festival in Los Angeles",
				"Shooting reported downtown",
			),
		},
		{
			Source: cfg.Feeds[1],
			Err:    errors.New("feed fetch unexpected status 500"),
		},
	}}
	st := &fakeStore{}
	p, m := newTestPipeline(t, cfg, fetcher, st, nil)

	result, err := p.SourceContent(context.Background(), SourceRequest{})
	require.NoError(t, err)

	require.Len(t, st.put, 1)
	batch := st.put[0]
	assert.Equal(t, result.BatchID, batch.ID)
	assert.Equal(t, "daily", batch.Category)
	assert.Equal(t, domain.BatchStatusSourced, batch.Status)
	assert.Equal(t, []string{"https://a.example/feed", "https://b.example/feed"}, batch.SourceURLs)

	// Feed order follows the registry; the failed feed keeps its slot.
	require.Len(t, batch.Results, 2)
	assert.Equal(t, "A", batch.Results[0].Source.Name)
	assert.Empty(t, batch.Results[0].Error)
	assert.Equal(t, "B", batch.Results[1].Source.Name)
	assert.Contains(t, batch.Results[1].Error, "status 500")

	// Only the accepted item is stored; the banned one is dropped.
	require.Len(t, batch.Results[0].Items, 1)
	assert.Equal(t, "Free community festival in Los Angeles", batch.Results[0].Items[0].Title)
	assert.Equal(t, 3, batch.Results[0].Items[0].Score)

	assert.Equal(t, 1, result.ItemCount)
	assert.Equal(t, "2026-08-30", result.DateKey)
	assert.Equal(t, []string{"B"}, result.FailedFeeds)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ItemsClassified.WithLabelValues(metrics.ResultAccepted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ItemsClassified.WithLabelValues(metrics.ResultRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FeedFailures))
}

func TestSourceContent_AllFeedsFailingStillStoresBatch(t *testing.T) {
	cfg := testConfig()
	fetcher := &fakeFetcher{outcomes: []feeds.FetchOutcome{
		{Source: cfg.Feeds[0], Err: errors.New("dial tcp: connection refused")},
		{Source: cfg.Feeds[1], Err: errors.New("context deadline exceeded")},
	}}
	st := &fakeStore{}
	p, _ := newTestPipeline(t, cfg, fetcher, st, nil)

	result, err := p.SourceContent(context.Background(), SourceRequest{})
	require.NoError(t, err)

	require.Len(t, st.put, 1)
	assert.Equal(t, 0, result.ItemCount)
	assert.Len(t, result.FailedFeeds, 2)
}

func TestSourceContent_StoreFailureFailsRun(t *testing.T) {
	cfg := testConfig()
	fetcher := &fakeFetcher{outcomes: []feeds.FetchOutcome{
		{Source: cfg.Feeds[0], Body: rssBody("Free community festival in Los Angeles")},
	}}
	st := &fakeStore{putErr: errors.New("redis: connection pool timeout")}
	p, m := newTestPipeline(t, cfg, fetcher, st, nil)

	result, err := p.SourceContent(context.Background(), SourceRequest{})

	assert.Nil(t, result)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist batch")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SourcingRuns.WithLabelValues(metrics.StatusFailed)))
}

func TestSourceContent_RejectsNegativeMaxItems(t *testing.T) {
	fetcher := &fakeFetcher{}
	p, _ := newTestPipeline(t, testConfig(), fetcher, &fakeStore{}, nil)

	_, err := p.SourceContent(context.Background(), SourceRequest{MaxItems: -1})

	assert.ErrorIs(t, err, ErrValidation)
	assert.False(t, fetcher.called)
}

func TestSourceContent_RejectsEmptyFeedURL(t *testing.T) {
	fetcher := &fakeFetcher{}
	p, _ := newTestPipeline(t, testConfig(), fetcher, &fakeStore{}, nil)

	_, err := p.SourceContent(context.Background(), SourceRequest{FeedURLs: []string{"https://a.example/feed", ""}})

	assert.ErrorIs(t, err, ErrValidation)
	assert.False(t, fetcher.called)
}

func storedBatch() *domain.ContentBatch {
	return &domain.ContentBatch{
		ID:        "b-123",
		CreatedAt: time.Date(2026, 8, 30, 7, 0, 0, 0, time.UTC),
		Category:  "daily",
		Results: []domain.FeedResult{
			{
				Source: domain.FeedSource{Name: "A", URL: "https://a.example/feed", Category: "Local News"},
				Items: []domain.ClassifiedItem{
					{Title: "Free festival", Link: "https://a.example/1", Accepted: true, Score: 2},
				},
			},
		},
		Status: domain.BatchStatusSourced,
	}
}

func TestCreateDraft_PublishesComposedDigest(t *testing.T) {
	st := &fakeStore{batch: storedBatch()}
	pub := &fakePublisher{}
	p, m := newTestPipeline(t, testConfig(), &fakeFetcher{}, st, pub)

	result, err := p.CreateDraft(context.Background(), domain.DraftRequest{BatchKey: "b-123", Title: "Weekend Vibes"})
	require.NoError(t, err)

	assert.Equal(t, "post-1", result.PostID)
	assert.Equal(t, "b-123", result.BatchID)
	assert.Equal(t, "Weekend Vibes", pub.title)
	assert.Contains(t, pub.html, "<h2>A – Local News</h2>")
	assert.Equal(t, []string{"good-vibes"}, pub.tags)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DraftsPublished.WithLabelValues(metrics.StatusOK)))
}

func TestCreateDraft_RequiresBatchKey(t *testing.T) {
	pub := &fakePublisher{}
	p, _ := newTestPipeline(t, testConfig(), &fakeFetcher{}, &fakeStore{}, pub)

	_, err := p.CreateDraft(context.Background(), domain.DraftRequest{})

	assert.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, pub.calls)
}

func TestCreateDraft_WithoutPublisherIsDisabled(t *testing.T) {
	p, _ := newTestPipeline(t, testConfig(), &fakeFetcher{}, &fakeStore{batch: storedBatch()}, nil)

	_, err := p.CreateDraft(context.Background(), domain.DraftRequest{BatchKey: "b-123"})

	assert.ErrorIs(t, err, ErrPublishingDisabled)
}

func TestCreateDraft_MissingBatchSkipsCMS(t *testing.T) {
	st := &fakeStore{getErr: store.ErrNotFound}
	pub := &fakePublisher{}
	p, _ := newTestPipeline(t, testConfig(), &fakeFetcher{}, st, pub)

	_, err := p.CreateDraft(context.Background(), domain.DraftRequest{BatchKey: "2026-01-01"})

	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Zero(t, pub.calls)
}

func TestCreateDraft_CMSErrorPropagates(t *testing.T) {
	apiErr := &ghost.APIError{StatusCode: 422, Message: "Validation error"}
	pub := &fakePublisher{err: apiErr}
	p, m := newTestPipeline(t, testConfig(), &fakeFetcher{}, &fakeStore{batch: storedBatch()}, pub)

	_, err := p.CreateDraft(context.Background(), domain.DraftRequest{BatchKey: "b-123"})

	var got *ghost.APIError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, 422, got.StatusCode)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DraftsPublished.WithLabelValues(metrics.StatusFailed)))
}

func TestCreateDraft_FallsBackToDefaultTitle(t *testing.T) {
	pub := &fakePublisher{}
	p, _ := newTestPipeline(t, testConfig(), &fakeFetcher{}, &fakeStore{batch: storedBatch()}, pub)

	_, err := p.CreateDraft(context.Background(), domain.DraftRequest{BatchKey: "b-123"})
	require.NoError(t, err)

	assert.Equal(t, "Good Vibes Daily Digest", pub.title)
	assert.Contains(t, pub.html, "<h1>Good Vibes Daily Digest</h1>")
}
