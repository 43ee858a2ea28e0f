package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/xid"
)

// slidingWindowScript trims the window, then admits the hit only while the
// window holds fewer than limit entries. Rejected hits are not recorded.
// Returns {allowed, count, oldest_ms}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = ARGV[1]
local cutoff = ARGV[2]
local limit = tonumber(ARGV[3])
local member = ARGV[4]
local window = ARGV[5]

redis.call('ZREMRANGEBYSCORE', key, '-inf', cutoff)
local count = redis.call('ZCARD', key)
local allowed = 0
if count < limit then
	redis.call('ZADD', key, now, member)
	count = count + 1
	allowed = 1
end
redis.call('PEXPIRE', key, window)

local oldest = tonumber(now)
local first = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
if first[2] then
	oldest = tonumber(first[2])
end
return {allowed, count, oldest}
`)

type RateLimitResult struct {
	Allowed   bool
	Limit     int
	Remaining int
	// ResetAt is when the oldest hit in the window falls out of it.
	ResetAt time.Time
}

type RateLimitRepository interface {
	Hit(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (RateLimitResult, error)
}

type rateLimitRepository struct {
	rdb    redis.UniversalClient
	prefix string
}

func NewRateLimitRepository(rdb redis.UniversalClient) RateLimitRepository {
	return &rateLimitRepository{rdb: rdb, prefix: "jobly:ratelimit:"}
}

func (r *rateLimitRepository) Hit(
	ctx context.Context,
	key string,
	now time.Time,
	window time.Duration,
	limit int,
) (RateLimitResult, error) {
	nowMs := now.UnixMilli()
	windowMs := window.Milliseconds()
	values, err := slidingWindowScript.Run(ctx, r.rdb,
		[]string{r.prefix + key},
		strconv.FormatInt(nowMs, 10),
		strconv.FormatInt(nowMs-windowMs, 10),
		strconv.Itoa(limit),
		xid.New().String(),
		strconv.FormatInt(windowMs, 10),
	).Int64Slice()
	if err != nil {
		return RateLimitResult{}, err
	}

	count := int(values[1])
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return RateLimitResult{
		Allowed:   values[0] == 1,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   time.UnixMilli(values[2]).Add(window),
	}, nil
}
