// Package store persists content batches in Redis with a retention TTL.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/CurationsLA/lemon/internal/domain"
	"github.com/CurationsLA/lemon/internal/logger"
)

// keyPrefix namespaces all batch keys in the shared Redis instance.
const keyPrefix = "batch:"

// dateKeyFormat is the layout for date-keyed batch aliases.
const dateKeyFormat = "2006-01-02"

// scanBatchSize is the page size used when listing keys.
const scanBatchSize = 100

// ErrNotFound is returned when no batch exists under the requested key.
var ErrNotFound = errors.New("batch not found")

// BatchStore persists ContentBatch values. A batch, once written, is never
// mutated; later reads return an identical copy until the TTL expires.
type BatchStore struct {
	client    *redis.Client
	retention time.Duration
	log       logger.Logger
}

// New creates a BatchStore with the given retention window.
func New(client *redis.Client, retention time.Duration, log logger.Logger) *BatchStore {
	return &BatchStore{
		client:    client,
		retention: retention,
		log:       log,
	}
}

// Put writes the batch under its id and under its creation date, both with
// the retention TTL. The date alias lets drafts be requested by ISO date.
func (s *BatchStore) Put(ctx context.Context, batch *domain.ContentBatch) error {
	payload, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}

	idKey := keyPrefix + batch.ID
	dateKey := keyPrefix + batch.CreatedAt.UTC().Format(dateKeyFormat)

	if err := s.client.Set(ctx, idKey, payload, s.retention).Err(); err != nil {
		return fmt.Errorf("store batch %s: %w", batch.ID, err)
	}
	if err := s.client.Set(ctx, dateKey, payload, s.retention).Err(); err != nil {
		return fmt.Errorf("store batch date alias %s: %w", dateKey, err)
	}

	s.log.Info("batch stored",
		logger.String("batch_id", batch.ID),
		logger.String("date_key", dateKey),
		logger.Int("accepted_items", batch.AcceptedCount()),
		logger.Duration("ttl", s.retention))

	return nil
}

// Get loads a batch by logical key: either a batch id or an ISO date.
// Returns ErrNotFound when the key has no live entry.
func (s *BatchStore) Get(ctx context.Context, key string) (*domain.ContentBatch, error) {
	payload, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load batch %s: %w", key, err)
	}

	var batch domain.ContentBatch
	if err := json.Unmarshal(payload, &batch); err != nil {
		return nil, fmt.Errorf("unmarshal batch %s: %w", key, err)
	}
	return &batch, nil
}

// List returns all live logical keys sharing the given prefix, in no
// guaranteed order.
func (s *BatchStore) List(ctx context.Context, prefix string) ([]string, error) {
	pattern := keyPrefix + prefix + "*"
	keys := make([]string, 0)
	var cursor uint64

	for {
		page, next, err := s.client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return nil, fmt.Errorf("scan batch keys: %w", err)
		}
		for _, k := range page {
			keys = append(keys, k[len(keyPrefix):])
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	return keys, nil
}

// Ping reports store reachability for health checks.
func (s *BatchStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// connectionTimeout bounds the startup connection check.
const connectionTimeout = 5 * time.Second

// NewClient creates a Redis client and verifies the connection.
func NewClient(address, password string, db int) (*redis.Client, error) {
	if address == "" {
		return nil, errors.New("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}
