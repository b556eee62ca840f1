// Package redis implements the index store on Redis. Values live under
// plain namespaced keys; lexicographic ordering comes from a ZSET mirror of
// the keyspace scanned with ZRANGEBYLEX.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"fans3-backend/internal/store"
)

const (
	valueNamespace = "fans3:kv:"
	indexKey       = "fans3:kvindex"
	scanBatch      = 256
)

type Store struct {
	client *redis.Client
}

var _ store.Store = (*Store)(nil)

// Open connects to Redis and pings it to validate the connection.
func Open(ctx context.Context, addr, password string, db int) (*Store, error) {
	if addr == "" {
		return nil, fmt.Errorf("empty redis addr")
	}
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return &Store{client: c}, nil
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, valueNamespace+key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %q: %w", key, err)
	}
	return v, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, valueNamespace+key, value, 0)
		p.ZAdd(ctx, indexKey, redis.Z{Score: 0, Member: key})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, valueNamespace+key)
		p.ZRem(ctx, indexKey, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete %q: %w", key, err)
	}
	return nil
}

func (s *Store) Scan(ctx context.Context, start string, reverse bool, fn func(key, value string) (bool, error)) error {
	// Inclusive bound on the first page, exclusive on every following one.
	bound := "[" + start
	for {
		var keys []string
		var err error
		if reverse {
			keys, err = s.client.ZRevRangeByLex(ctx, indexKey, &redis.ZRangeBy{
				Min: "-", Max: bound, Count: scanBatch,
			}).Result()
		} else {
			keys, err = s.client.ZRangeByLex(ctx, indexKey, &redis.ZRangeBy{
				Min: bound, Max: "+", Count: scanBatch,
			}).Result()
		}
		if err != nil {
			return fmt.Errorf("redis scan from %q: %w", start, err)
		}
		if len(keys) == 0 {
			return nil
		}
		for _, key := range keys {
			value, ok, err := s.Get(ctx, key)
			if err != nil {
				return err
			}
			if !ok {
				// Deleted between the index page and the value read.
				continue
			}
			cont, err := fn(key, value)
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
		}
		if len(keys) < scanBatch {
			return nil
		}
		bound = "(" + keys[len(keys)-1]
	}
}

func (s *Store) Close() error {
	return s.client.Close()
}
