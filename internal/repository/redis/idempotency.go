package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	redisx "github.com/kirinyoku/absolut-cinema/internal/redis"
	"github.com/redis/go-redis/v9"
)

// ErrClaimInFlight is returned by Begin while another request with the same
// token is still being processed.
var ErrClaimInFlight = errors.New("claim with this token is in flight")

const claimPending = "pending"

// Returns the stored value, or nil after marking the key pending.
//
// KEYS[1] = replay key
// ARGV[1] = pending marker
// ARGV[2] = pending ttl_ms
const luaBeginClaim = `
local v = redis.call('GET', KEYS[1])
if v then return v end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
return false
`

// ClaimReplays caches the response of a seat claim per user and request
// token, so a resubmitted request gets the first response back without
// reaching the store.
type ClaimReplays struct {
	rdb        *redis.Client
	ttl        time.Duration
	pendingTTL time.Duration
	begin      *redis.Script
}

// NewClaimReplays keeps responses for ttl. A request that dies before
// finishing holds its token for at most pendingTTL.
func NewClaimReplays(rdb *redis.Client, ttl, pendingTTL time.Duration) *ClaimReplays {
	return &ClaimReplays{
		rdb:        rdb,
		ttl:        ttl,
		pendingTTL: pendingTTL,
		begin:      redis.NewScript(luaBeginClaim),
	}
}

// Begin returns the saved response for the token, if any. A nil response and
// nil error mean the caller now owns the token and must Finish or Abort it.
func (r *ClaimReplays) Begin(ctx context.Context, userID uuid.UUID, token string) ([]byte, error) {
	const op = "redisrepo.ClaimReplays.Begin"

	v, err := r.begin.Run(
		ctx,
		r.rdb,
		[]string{redisx.KeyIdemClaim(userID.String(), token)},
		claimPending, r.pendingTTL.Milliseconds(),
	).Text()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("%s: %w", op, err)
	case v == claimPending:
		return nil, ErrClaimInFlight
	}

	return []byte(v), nil
}

// Finish stores resp as the response for the token.
func (r *ClaimReplays) Finish(ctx context.Context, userID uuid.UUID, token string, resp any) error {
	const op = "redisrepo.ClaimReplays.Finish"

	raw, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	key := redisx.KeyIdemClaim(userID.String(), token)
	if err := r.rdb.Set(ctx, key, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Abort frees the token after a failed claim so the client may retry it.
func (r *ClaimReplays) Abort(ctx context.Context, userID uuid.UUID, token string) error {
	key := redisx.KeyIdemClaim(userID.String(), token)
	return r.rdb.Del(ctx, key).Err()
}
