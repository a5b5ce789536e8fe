package redisrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	redisx "github.com/kirinyoku/absolut-cinema/internal/redis"
	"github.com/redis/go-redis/v9"
)

// Claims accepted within the window are kept in a sorted set scored by the
// Redis server clock, so every instance counts against the same time base.
// A denied attempt is not recorded.
//
// KEYS[1] = per-user claim log
// ARGV[1] = window_ms
// ARGV[2] = max claims per window
// ARGV[3] = claim id
//
// Returns {1, 0} when the claim is admitted, {0, retry_ms} otherwise.
const luaAdmitClaim = `
local t = redis.call('TIME')
local now = tonumber(t[1]) * 1000 + math.floor(tonumber(t[2]) / 1000)
local window = tonumber(ARGV[1])
local max = tonumber(ARGV[2])

redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', now - window)

if redis.call('ZCARD', KEYS[1]) >= max then
  local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
  local wait = tonumber(oldest[2]) + window - now
  if wait < 1 then wait = 1 end
  return {0, wait}
end

redis.call('ZADD', KEYS[1], now, ARGV[3])
redis.call('PEXPIRE', KEYS[1], window)
return {1, 0}
`

// ClaimLimiter caps how many seat claims one user may make per window.
type ClaimLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	script *redis.Script
}

func NewClaimLimiter(rdb *redis.Client, limit int, window time.Duration) *ClaimLimiter {
	return &ClaimLimiter{
		rdb:    rdb,
		limit:  limit,
		window: window,
		script: redis.NewScript(luaAdmitClaim),
	}
}

// AdmitClaim records a claim attempt by userID. When the user is over the
// limit it returns false and how long until the oldest claim leaves the window.
func (l *ClaimLimiter) AdmitClaim(ctx context.Context, userID uuid.UUID) (bool, time.Duration, error) {
	const op = "redisrepo.ClaimLimiter.AdmitClaim"

	if l.limit <= 0 {
		return true, 0, nil
	}

	res, err := l.script.Run(
		ctx,
		l.rdb,
		[]string{redisx.KeyClaimRate(userID)},
		l.window.Milliseconds(), l.limit, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("%s: %w", op, err)
	}
	if len(res) != 2 {
		return false, 0, fmt.Errorf("%s: unexpected script reply %v", op, res)
	}

	return res[0] == 1, time.Duration(res[1]) * time.Millisecond, nil
}
