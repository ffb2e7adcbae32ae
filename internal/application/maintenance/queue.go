package maintenance

import (
	"context"
	"errors"
	"fmt"

	"soa-backend/internal/pkg/metrics"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
)

// UsageQueueKey is the Redis list of invite code ids whose usage increment
// failed after a successful redemption.
const UsageQueueKey = "invite_codes:usage_retry"

type UsageQueue struct {
	Rdb *redis.Client
}

func (q *UsageQueue) Push(ctx context.Context, codeID uuid.UUID) error {
	if err := q.Rdb.RPush(ctx, UsageQueueKey, codeID.String()).Err(); err != nil {
		return err
	}
	q.observe(ctx)
	return nil
}

func (q *UsageQueue) Len(ctx context.Context) (int64, error) {
	return q.Rdb.LLen(ctx, UsageQueueKey).Result()
}

// Drain pops every entry present when it starts and passes it to fn.
// Entries fn fails on are pushed back; their errors are combined.
func (q *UsageQueue) Drain(ctx context.Context, fn func(ctx context.Context, codeID uuid.UUID) error) (int, error) {
	n, err := q.Len(ctx)
	if err != nil {
		return 0, err
	}
	var errs error
	var failed []interface{}
	processed := 0
	for i := int64(0); i < n; i++ {
		raw, err := q.Rdb.LPop(ctx, UsageQueueKey).Result()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			errs = multierr.Append(errs, err)
			break
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("usage queue: bad entry %q: %w", raw, err))
			continue
		}
		if err := fn(ctx, id); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("usage queue: %s: %w", id, err))
			failed = append(failed, raw)
			continue
		}
		processed++
	}
	if len(failed) > 0 {
		if err := q.Rdb.RPush(ctx, UsageQueueKey, failed...).Err(); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	q.observe(ctx)
	return processed, errs
}

func (q *UsageQueue) observe(ctx context.Context) {
	if n, err := q.Len(ctx); err == nil {
		metrics.UsageQueueDepth.Set(float64(n))
	}
}
