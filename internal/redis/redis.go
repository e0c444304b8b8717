package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"chatguard/internal/classifier"
)

type Client struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(addr string, ttl time.Duration) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Client{rdb: rdb, ttl: ttl}, nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Verdict cache
func (c *Client) GetVerdicts(ctx context.Context, keys []string) (map[string]classifier.Verdict, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make(map[string]classifier.Verdict, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var verdict classifier.Verdict
		if err := json.Unmarshal([]byte(s), &verdict); err != nil {
			continue
		}
		out[keys[i]] = verdict
	}
	return out, nil
}

func (c *Client) SetVerdicts(ctx context.Context, verdicts map[string]classifier.Verdict) error {
	if len(verdicts) == 0 {
		return nil
	}

	pipe := c.rdb.Pipeline()
	for k, v := range verdicts {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		pipe.Set(ctx, k, data, c.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}
