// Package redisrepo holds the Redis-backed adapters: read-through caches,
// the idempotency replay store and the sliding-window limiter.
package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/absolut-cinema/internal/domain"
	redisx "github.com/kirinyoku/absolut-cinema/internal/redis"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

type Cache struct {
	rdb *redis.Client
	sf  singleflight.Group
}

func New(client *redis.Client) *Cache {
	return &Cache{rdb: client}
}

func (c *Cache) GetString(ctx context.Context, key string) (string, bool, error) {
	s, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}

	if err != nil {
		return "", false, err
	}

	return s, true, nil
}

func (c *Cache) SetString(
	ctx context.Context,
	key string,
	val string,
	ttl time.Duration,
) error {
	return c.rdb.Set(ctx, key, val, ttl).Err()
}

func (c *Cache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	return c.rdb.Del(ctx, keys...).Err()
}

func GetJSON[T any](ctx context.Context, c *Cache, key string) (T, bool, error) {
	var zero T

	s, ok, err := c.GetString(ctx, key)
	if err != nil || !ok {
		return zero, ok, err
	}

	var out T
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return zero, false, err
	}

	return out, true, nil
}

func SetJSON(
	ctx context.Context,
	c *Cache,
	key string,
	val any,
	ttl time.Duration,
) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}

	return c.SetString(ctx, key, string(b), ttl)
}

func GetOrSetJSON[T any](
	ctx context.Context,
	c *Cache,
	key string,
	ttl time.Duration,
	loader func(ctx context.Context) (T, error),
) (T, error) {
	if v, ok, err := GetJSON[T](ctx, c, key); err != nil || ok {
		return v, err
	}

	vAny, err, _ := c.sf.Do(key, func() (any, error) {
		if v2, ok2, err2 := GetJSON[T](ctx, c, key); err2 != nil || ok2 {
			return v2, err2
		}
		v3, err3 := loader(ctx)
		if err3 != nil {
			return nil, err3
		}
		_ = SetJSON(ctx, c, key, v3, ttl)
		return v3, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	v, ok := vAny.(T)
	if !ok {
		var zero T
		return zero, errors.New("type assertion failed")
	}

	return v, nil
}

// SeatMap returns the cached seat map of a showtime, loading it once per key
// across concurrent callers on a miss.
func (c *Cache) SeatMap(
	ctx context.Context,
	showtimeID uuid.UUID,
	ttl time.Duration,
	load func(ctx context.Context) ([]domain.SeatView, error),
) ([]domain.SeatView, error) {
	return GetOrSetJSON(ctx, c, redisx.KeyShowtimeSeatMap(showtimeID), ttl, load)
}

func (c *Cache) InvalidateShowtime(ctx context.Context, showtimeID uuid.UUID) error {
	return c.Del(ctx, redisx.KeyShowtimeSeatMap(showtimeID))
}

func (c *Cache) InvalidateMovieShowtimes(ctx context.Context, movieID uuid.UUID) error {
	return c.Del(ctx, redisx.KeyMovieShowtimes(movieID))
}

func (c *Cache) InvalidateCatalog(ctx context.Context) error {
	return c.Del(ctx, redisx.KeyMovies())
}

func (c *Cache) Movies(
	ctx context.Context,
	ttl time.Duration,
	load func(ctx context.Context) ([]domain.Movie, error),
) ([]domain.Movie, error) {
	return GetOrSetJSON(ctx, c, redisx.KeyMovies(), ttl, load)
}

func (c *Cache) MovieShowtimes(
	ctx context.Context,
	movieID uuid.UUID,
	ttl time.Duration,
	load func(ctx context.Context) ([]domain.ShowtimeSummary, error),
) ([]domain.ShowtimeSummary, error) {
	return GetOrSetJSON(ctx, c, redisx.KeyMovieShowtimes(movieID), ttl, load)
}
