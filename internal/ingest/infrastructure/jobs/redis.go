package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	ingest "energy-dashboard/internal/ingest/domain"
)

const (
	indexKey  = "imports:index"
	jobPrefix = "imports:job:"
)

// RedisStore keeps jobs as JSON values indexed by a sorted set on creation time.
type RedisStore struct {
	client redis.UniversalClient
	max    int
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, max: ingest.MaxJobHistory}
}

// NewRedisStoreFromURL parses a redis:// URL.
func NewRedisStoreFromURL(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("jobs: parse redis url: %w", err)
	}
	return NewRedisStore(redis.NewClient(opts)), nil
}

// Save upserts the job and trims the index to the newest entries.
func (s *RedisStore) Save(ctx context.Context, job ingest.ImportJob) error {
	if job.ID == "" {
		return ErrEmptyID
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	score := float64(job.CreatedAt.UnixMilli())
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, jobPrefix+job.ID, payload, 0)
	pipe.ZAdd(ctx, indexKey, redis.Z{Score: score, Member: job.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("jobs: redis save: %w", err)
	}
	return s.trim(ctx)
}

func (s *RedisStore) trim(ctx context.Context) error {
	count, err := s.client.ZCard(ctx, indexKey).Result()
	if err != nil {
		return fmt.Errorf("jobs: redis zcard: %w", err)
	}
	excess := count - int64(s.max)
	if excess <= 0 {
		return nil
	}
	stale, err := s.client.ZRange(ctx, indexKey, 0, excess-1).Result()
	if err != nil {
		return fmt.Errorf("jobs: redis zrange: %w", err)
	}
	pipe := s.client.TxPipeline()
	for _, id := range stale {
		pipe.Del(ctx, jobPrefix+id)
		pipe.ZRem(ctx, indexKey, id)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// List returns up to limit jobs, newest first.
func (s *RedisStore) List(ctx context.Context, limit int) ([]ingest.ImportJob, error) {
	if limit <= 0 || limit > s.max {
		limit = s.max
	}
	ids, err := s.client.ZRevRange(ctx, indexKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("jobs: redis zrevrange: %w", err)
	}
	if len(ids) == 0 {
		return []ingest.ImportJob{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = jobPrefix + id
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("jobs: redis mget: %w", err)
	}
	out := make([]ingest.ImportJob, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var job ingest.ImportJob
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			continue
		}
		out = append(out, job)
	}
	return out, nil
}
