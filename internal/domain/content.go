// Package domain holds the core content types shared across the pipeline.
package domain

import (
	"time"
)

// BatchStatus represents the lifecycle state of a content batch.
type BatchStatus string

// BatchStatusSourced is the only status a stored batch can have. Batches are
// written once after a sourcing run and never mutated afterwards.
const BatchStatusSourced BatchStatus = "sourced"

// UnknownDomain is the sentinel source domain for items whose link
// cannot be parsed as a URL.
const UnknownDomain = "Unknown"

// FeedSource is a single configured feed. Immutable after startup.
type FeedSource struct {
	Name     string `yaml:"name"     json:"name"`
	URL      string `yaml:"url"      json:"url"`
	Category string `yaml:"category" json:"category"`
}

// RawItem is one entry extracted from a feed body before classification.
// It is transient and never persisted on its own.
type RawItem struct {
	Title   string
	Link    string
	Excerpt string
}

// ClassifiedItem is a raw item after scoring. Only accepted items make it
// into a stored batch, but the score is kept for observability.
type ClassifiedItem struct {
	Title        string `json:"title"`
	Link         string `json:"link"`
	Excerpt      string `json:"excerpt"`
	SourceDomain string `json:"source_domain"`
	Accepted     bool   `json:"accepted"`
	Score        int    `json:"score"`
}

// FeedResult is the outcome of processing one configured feed: either a set
// of classified items or a recorded failure. A failed feed contributes zero
// items without failing the run.
type FeedResult struct {
	Source FeedSource       `json:"source"`
	Items  []ClassifiedItem `json:"items"`
	Error  string           `json:"error,omitempty"`
}

// ContentBatch is one sourcing run's accepted items, stored as a single
// immutable unit under its id and its creation date.
type ContentBatch struct {
	ID         string       `json:"id"`
	CreatedAt  time.Time    `json:"created_at"`
	Category   string       `json:"category"`
	SourceURLs []string     `json:"source_urls"`
	Results    []FeedResult `json:"results"`
	Status     BatchStatus  `json:"status"`
}

// AcceptedCount returns the number of accepted items across all feeds.
func (b *ContentBatch) AcceptedCount() int {
	n := 0
	for _, r := range b.Results {
		n += len(r.Items)
	}
	return n
}

// FailedFeeds returns the names of feeds whose fetch or parse failed.
func (b *ContentBatch) FailedFeeds() []string {
	var names []string
	for _, r := range b.Results {
		if r.Error != "" {
			names = append(names, r.Source.Name)
		}
	}
	return names
}

// DraftRequest asks for a stored batch to be published as a CMS draft.
// Ephemeral: it exists only for the duration of one publish call.
type DraftRequest struct {
	BatchKey string   `json:"batch_key"`
	Title    string   `json:"title,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// DraftResult reports the created CMS post.
type DraftResult struct {
	PostID    string `json:"post_id"`
	EditorURL string `json:"editor_url"`
	BatchID   string `json:"batch_id"`
}
