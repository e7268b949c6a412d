// Package classifier implements the good-vibes content filter: a
// deterministic veto/threshold/locality classifier over keyword sets.
package classifier

import (
	"strings"

	"github.com/CurationsLA/lemon/internal/domain"
)

// Rules holds the keyword sets and threshold driving classification.
// All keywords are matched as case-insensitive substrings; partial-word
// hits are an accepted trade-off for configuration simplicity.
type Rules struct {
	Banned   []string
	Positive []string
	Locality []string
	MinScore int
}

// Result holds the outcome for a single item.
type Result struct {
	Accepted bool
	Score    int
}

// Classifier scores items against a fixed rule set. It is pure: identical
// input text and rules always yield an identical result.
type Classifier struct {
	banned   []string
	positive []string
	locality []string
	minScore int
}

// New builds a Classifier from the given rules. Keywords are normalized
// to lowercase once here so Classify stays allocation-light.
func New(rules Rules) *Classifier {
	return &Classifier{
		banned:   normalize(rules.Banned),
		positive: normalize(rules.Positive),
		locality: normalize(rules.Locality),
		minScore: rules.MinScore,
	}
}

// Classify decides accept/reject for the item's title+excerpt text.
//
// The algorithm is a veto-then-threshold filter:
//  1. Any banned keyword rejects outright with score 0.
//  2. Score = count of distinct positive keywords present.
//  3. Accept iff score >= MinScore and a locality keyword is present.
func (c *Classifier) Classify(title, excerpt string) Result {
	text := strings.ToLower(title + " " + excerpt)

	for _, kw := range c.banned {
		if strings.Contains(text, kw) {
			return Result{Accepted: false, Score: 0}
		}
	}

	score := 0
	for _, kw := range c.positive {
		if strings.Contains(text, kw) {
			score++
		}
	}

	local := false
	for _, kw := range c.locality {
		if strings.Contains(text, kw) {
			local = true
			break
		}
	}

	return Result{
		Accepted: score >= c.minScore && local,
		Score:    score,
	}
}

// ClassifyItem applies Classify to a raw item and returns the classified
// record with the source domain already resolved by the extractor.
func (c *Classifier) ClassifyItem(item domain.RawItem, sourceDomain string) domain.ClassifiedItem {
	res := c.Classify(item.Title, item.Excerpt)
	return domain.ClassifiedItem{
		Title:        item.Title,
		Link:         item.Link,
		Excerpt:      item.Excerpt,
		SourceDomain: sourceDomain,
		Accepted:     res.Accepted,
		Score:        res.Score,
	}
}

// normalize lowercases and trims keywords, dropping empties so a stray
// blank line in config cannot match everything.
func normalize(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
