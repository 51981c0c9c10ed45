package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/scholarbridge/request-service/internal/domain"
)

// DefaultUploadLimitPrefix namespaces upload counters when none is configured.
const DefaultUploadLimitPrefix = "scholarbridge:rate_limit"

const uploadLimitWindow = time.Minute

// RedisUploadLimiter counts document uploads per user in fixed one-minute buckets. Every replica
// of the service shares the same counters.
type RedisUploadLimiter struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedisUploadLimiter(client redis.UniversalClient, prefix string) *RedisUploadLimiter {
	trimmed := strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if trimmed == "" {
		trimmed = DefaultUploadLimitPrefix
	}
	return &RedisUploadLimiter{
		client: client,
		prefix: trimmed,
		now:    time.Now,
	}
}

// CountUpload records one upload for the uploader and reports the bucket total. A nil client
// counts nothing.
func (l *RedisUploadLimiter) CountUpload(ctx context.Context, uploader domain.UserRef) (UploadQuota, error) {
	if l == nil || l.client == nil || strings.TrimSpace(uploader.ID) == "" {
		return UploadQuota{}, nil
	}

	now := l.now()
	bucket := now.Truncate(uploadLimitWindow)
	bucketEnd := bucket.Add(uploadLimitWindow)
	key := l.bucketKey(uploader, bucket)

	var used *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		used = pipe.Incr(ctx, key)
		// The key outlives its bucket by a few seconds.
		pipe.ExpireAt(ctx, key, bucketEnd.Add(5*time.Second))
		return nil
	})
	if err != nil {
		return UploadQuota{}, fmt.Errorf("count upload for %s: %w", uploader, err)
	}

	return UploadQuota{
		Used:       int(used.Val()),
		RetryAfter: bucketEnd.Sub(now),
	}, nil
}

func (l *RedisUploadLimiter) bucketKey(uploader domain.UserRef, bucket time.Time) string {
	return fmt.Sprintf("%s:upload:%s:%s:%d", l.prefix, uploader.Model, uploader.ID, bucket.Unix())
}
