package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CurationsLA/lemon/internal/domain"
	"github.com/CurationsLA/lemon/internal/logger"
)

const testRetention = 7 * 24 * time.Hour

func newTestStore(t *testing.T) (*BatchStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client, testRetention, logger.Nop()), mr
}

func testBatch() *domain.ContentBatch {
	return &domain.ContentBatch{
		ID:         "b-123",
		CreatedAt:  time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC),
		Category:   "daily",
		SourceURLs: []string{"https://laist.com/index.atom"},
		Results: []domain.FeedResult{
			{
				Source: domain.FeedSource{Name: "LAist", URL: "https://laist.com/index.atom", Category: "Local News"},
				Items: []domain.ClassifiedItem{
					{
						Title:        "Block Party in LA",
						Link:         "https://laist.com/block-party",
						Excerpt:      "community art festival",
						SourceDomain: "laist.com",
						Accepted:     true,
						Score:        3,
					},
				},
			},
		},
		Status: domain.BatchStatusSourced,
	}
}

func TestPutGet_RoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	batch := testBatch()

	require.NoError(t, s.Put(ctx, batch))

	got, err := s.Get(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, batch, got)
}

func TestGet_ByDateAlias(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	batch := testBatch()

	require.NoError(t, s.Put(ctx, batch))

	got, err := s.Get(ctx, "2026-08-30")
	require.NoError(t, err)
	assert.Equal(t, batch.ID, got.ID)
}

func TestGet_MissingKeyReturnsErrNotFound(t *testing.T) {
	s, _ := newTestStore(t)

	got, err := s.Get(context.Background(), "nope")

	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPut_SetsRetentionTTL(t *testing.T) {
	s, mr := newTestStore(t)
	batch := testBatch()

	require.NoError(t, s.Put(context.Background(), batch))

	assert.Equal(t, testRetention, mr.TTL("batch:"+batch.ID))
	assert.Equal(t, testRetention, mr.TTL("batch:2026-08-30"))
}

func TestList_FiltersByPrefix(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	first := testBatch()
	require.NoError(t, s.Put(ctx, first))

	second := testBatch()
	second.ID = "c-456"
	second.CreatedAt = time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.Put(ctx, second))

	keys, err := s.List(ctx, "2026-08")
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-08-30"}, keys)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestPutGet_ReadBackIsUnchangedByLaterReads(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	batch := testBatch()

	require.NoError(t, s.Put(ctx, batch))

	first, err := s.Get(ctx, batch.ID)
	require.NoError(t, err)
	second, err := s.Get(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
