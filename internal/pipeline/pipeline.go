// Package pipeline orchestrates the two core flows: sourcing content into
// a stored batch, and publishing a stored batch as a CMS draft.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/CurationsLA/lemon/internal/classifier"
	"github.com/CurationsLA/lemon/internal/config"
	"github.com/CurationsLA/lemon/internal/digest"
	"github.com/CurationsLA/lemon/internal/domain"
	"github.com/CurationsLA/lemon/internal/feeds"
	"github.com/CurationsLA/lemon/internal/ghost"
	"github.com/CurationsLA/lemon/internal/logger"
	"github.com/CurationsLA/lemon/internal/metrics"
	"github.com/CurationsLA/lemon/internal/store"
)

// ErrValidation marks malformed caller input, rejected before any I/O.
var ErrValidation = errors.New("invalid request")

// ErrPublishingDisabled is returned when draft creation is requested but
// no CMS credentials are configured.
var ErrPublishingDisabled = errors.New("publishing is not configured")

// Fetcher retrieves feed bodies; results follow input order.
type Fetcher interface {
	FetchAll(ctx context.Context, sources []domain.FeedSource) []feeds.FetchOutcome
}

// BatchStore persists and loads content batches.
type BatchStore interface {
	Put(ctx context.Context, batch *domain.ContentBatch) error
	Get(ctx context.Context, key string) (*domain.ContentBatch, error)
}

// Publisher submits a digest as a CMS draft.
type Publisher interface {
	CreateDraft(ctx context.Context, title, html string, tags []string) (*ghost.CreatedDraft, error)
}

// Clock supplies the current time. Substitutable in tests.
type Clock func() time.Time

// Deps are the injected collaborators for a Pipeline.
type Deps struct {
	Fetcher    Fetcher
	Classifier *classifier.Classifier
	Store      BatchStore
	Publisher  Publisher
	Clock      Clock
	Metrics    *metrics.Metrics
	Logger     logger.Logger
}

// Pipeline sequences fetch, extract, classify, store, compose, and publish.
// It holds no mutable state between runs; concurrent runs only share the
// external store.
type Pipeline struct {
	registry     []domain.FeedSource
	filter       config.FilterConfig
	defaultTitle string
	defaultTags  []string

	fetcher    Fetcher
	classifier *classifier.Classifier
	store      BatchStore
	publisher  Publisher
	clock      Clock
	metrics    *metrics.Metrics
	log        logger.Logger
	newID      func() string
}

// New creates a Pipeline bound to the configured feed registry and filter.
func New(cfg *config.Config, deps Deps) *Pipeline {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Pipeline{
		registry:     cfg.Feeds,
		filter:       cfg.Filter,
		defaultTitle: cfg.CMS.DefaultTitle,
		defaultTags:  cfg.CMS.DefaultTags,
		fetcher:      deps.Fetcher,
		classifier:   deps.Classifier,
		store:        deps.Store,
		publisher:    deps.Publisher,
		clock:        clock,
		metrics:      deps.Metrics,
		log:          deps.Logger,
		newID:        uuid.NewString,
	}
}

// SourceRequest triggers a sourcing run. All fields are optional; the
// configured registry and filter defaults apply when unset.
type SourceRequest struct {
	FeedURLs []string `json:"feed_urls,omitempty"`
	Category string   `json:"category,omitempty"`
	MaxItems int      `json:"max_items,omitempty"`
}

// SourceResult reports a completed sourcing run.
type SourceResult struct {
	BatchID     string   `json:"batch_id"`
	DateKey     string   `json:"date_key"`
	ItemCount   int      `json:"item_count"`
	FailedFeeds []string `json:"failed_feeds,omitempty"`
}

// SourceContent runs the source flow: fetch all feeds, extract and
// classify per feed with failures isolated, then write one complete batch.
// The store write happens only after every feed has settled; a partial
// batch is never persisted. Only a store failure fails the run.
func (p *Pipeline) SourceContent(ctx context.Context, req SourceRequest) (*SourceResult, error) {
	if req.MaxItems < 0 {
		return nil, fmt.Errorf("%w: max_items must not be negative", ErrValidation)
	}

	sources, err := p.resolveSources(req)
	if err != nil {
		return nil, err
	}

	maxItems := req.MaxItems
	if maxItems == 0 {
		maxItems = p.filter.MaxItems
	}
	category := req.Category
	if category == "" {
		category = "daily"
	}
	perFeed := feeds.MaxItemsPerFeed(maxItems, len(sources))

	outcomes := p.fetcher.FetchAll(ctx, sources)

	results := make([]domain.FeedResult, len(outcomes))
	sourceURLs := make([]string, len(outcomes))
	for i, outcome := range outcomes {
		sourceURLs[i] = outcome.Source.URL
		results[i] = p.processFeed(outcome, perFeed)
	}

	batch := &domain.ContentBatch{
		ID:         p.newID(),
		CreatedAt:  p.clock().UTC(),
		Category:   category,
		SourceURLs: sourceURLs,
		Results:    results,
		Status:     domain.BatchStatusSourced,
	}

	if err := p.store.Put(ctx, batch); err != nil {
		p.metrics.SourcingRuns.WithLabelValues(metrics.StatusFailed).Inc()
		return nil, fmt.Errorf("persist batch: %w", err)
	}
	p.metrics.SourcingRuns.WithLabelValues(metrics.StatusOK).Inc()

	result := &SourceResult{
		BatchID:     batch.ID,
		DateKey:     batch.CreatedAt.Format(time.DateOnly),
		ItemCount:   batch.AcceptedCount(),
		FailedFeeds: batch.FailedFeeds(),
	}

	p.log.Info("sourcing run complete",
		logger.String("batch_id", result.BatchID),
		logger.Int("accepted_items", result.ItemCount),
		logger.Strings("failed_feeds", result.FailedFeeds))

	return result, nil
}

// processFeed extracts and classifies one feed's outcome. Failures are
// recorded on the result, never propagated.
func (p *Pipeline) processFeed(outcome feeds.FetchOutcome, perFeed int) domain.FeedResult {
	result := domain.FeedResult{Source: outcome.Source, Items: []domain.ClassifiedItem{}}

	if outcome.Err != nil {
		result.Error = outcome.Err.Error()
		p.metrics.FeedFailures.Inc()
		return result
	}

	raw := feeds.Extract(outcome.Body, perFeed)
	for _, item := range raw {
		classified := p.classifier.ClassifyItem(item, feeds.SourceDomain(item.Link))
		if classified.Accepted {
			p.metrics.ItemsClassified.WithLabelValues(metrics.ResultAccepted).Inc()
			result.Items = append(result.Items, classified)
		} else {
			p.metrics.ItemsClassified.WithLabelValues(metrics.ResultRejected).Inc()
		}
	}

	return result
}

// resolveSources returns the configured registry, or ad-hoc sources built
// from caller-supplied feed URLs.
func (p *Pipeline) resolveSources(req SourceRequest) ([]domain.FeedSource, error) {
	if len(req.FeedURLs) == 0 {
		return p.registry, nil
	}

	sources := make([]domain.FeedSource, 0, len(req.FeedURLs))
	for _, u := range req.FeedURLs {
		if u == "" {
			return nil, fmt.Errorf("%w: feed url must not be empty", ErrValidation)
		}
		sources = append(sources, domain.FeedSource{
			Name:     feeds.SourceDomain(u),
			URL:      u,
			Category: req.Category,
		})
	}
	return sources, nil
}

// CreateDraft runs the publish flow: load the batch, compose the digest,
// and submit it as a draft. Fails fast on a missing batch or a CMS
// rejection; nothing is retried and no partial draft is ever submitted.
func (p *Pipeline) CreateDraft(ctx context.Context, req domain.DraftRequest) (*domain.DraftResult, error) {
	if req.BatchKey == "" {
		return nil, fmt.Errorf("%w: batch_key is required", ErrValidation)
	}
	if p.publisher == nil {
		return nil, ErrPublishingDisabled
	}

	batch, err := p.store.Get(ctx, req.BatchKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("batch %s: %w", req.BatchKey, err)
		}
		return nil, fmt.Errorf("load batch %s: %w", req.BatchKey, err)
	}

	title := req.Title
	if title == "" {
		title = p.defaultTitle
	}
	if title == "" {
		title = digest.DefaultTitle
	}
	tags := req.Tags
	if len(tags) == 0 {
		tags = p.defaultTags
	}

	html, err := digest.Compose(batch, title)
	if err != nil {
		return nil, err
	}

	created, err := p.publisher.CreateDraft(ctx, title, html, tags)
	if err != nil {
		p.metrics.DraftsPublished.WithLabelValues(metrics.StatusFailed).Inc()
		return nil, err
	}
	p.metrics.DraftsPublished.WithLabelValues(metrics.StatusOK).Inc()

	p.log.Info("draft published",
		logger.String("batch_id", batch.ID),
		logger.String("post_id", created.PostID))

	return &domain.DraftResult{
		PostID:    created.PostID,
		EditorURL: created.EditorURL,
		BatchID:   batch.ID,
	}, nil
}

// RunScheduled performs the daily sourcing run with registry defaults.
// Drafts remain a manual, explicit operation.
func (p *Pipeline) RunScheduled(ctx context.Context) {
	result, err := p.SourceContent(ctx, SourceRequest{})
	if err != nil {
		p.log.Error("scheduled sourcing run failed", logger.Error(err))
		return
	}
	p.log.Info("scheduled sourcing run complete",
		logger.String("batch_id", result.BatchID),
		logger.Int("accepted_items", result.ItemCount))
}
