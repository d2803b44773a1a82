package video

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/guubot/guubot/internal/logging"
)

// CachedProvider memoizes lookups in redis. Metadata for a given video id is
// stable for far longer than a stream lasts, so a miss on the cache is the
// only time the upstream endpoint is hit.
type CachedProvider struct {
	next   Provider
	client *redis.Client
	ttl    time.Duration
}

// NewCachedProvider wraps next with a redis cache.
func NewCachedProvider(next Provider, client *redis.Client, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		next:   next,
		client: client,
		ttl:    ttl,
	}
}

func cacheKey(videoID string) string {
	return "video:info:" + videoID
}

// Lookup serves from cache when possible, falling back to the wrapped
// provider. Cache failures are logged and treated as misses.
func (p *CachedProvider) Lookup(ctx context.Context, videoID string) (*Info, error) {
	key := cacheKey(videoID)

	cached, err := p.client.Get(ctx, key).Result()
	if err == nil {
		var info Info
		if err := json.Unmarshal([]byte(cached), &info); err == nil {
			return &info, nil
		}
	} else if err != redis.Nil {
		logging.WithError(err).Warn().Str("video_id", videoID).Msg("video cache read failed")
	}

	info, err := p.next.Lookup(ctx, videoID)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(info); err == nil {
		if err := p.client.Set(ctx, key, encoded, p.ttl).Err(); err != nil {
			logging.WithError(err).Warn().Str("video_id", videoID).Msg("video cache write failed")
		}
	}

	return info, nil
}
