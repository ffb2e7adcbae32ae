package maintenance

import (
	"context"
	"fmt"
	"os"
	"time"

	"soa-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

const (
	defaultUsageSpec       = "*/5 * * * *"
	defaultJoinRequestSpec = "@hourly"
	defaultCodeSpec        = "@daily"
	lockPrefix             = "maintenance:lock:"
	lockTTL                = 4 * time.Minute
)

// UsageCounter re-applies a usage increment.
type UsageCounter interface {
	IncrementUsage(ctx context.Context, codeID uuid.UUID) (bool, error)
}

// CodeExpirer switches off expired invite codes.
type CodeExpirer interface {
	DeactivateExpired(ctx context.Context) (int64, error)
}

// Scheduler runs the periodic invite-code housekeeping. Each job takes a
// Redis lock first so only one instance runs it per tick.
type Scheduler struct {
	db       *gorm.DB
	rdb      *redis.Client
	queue    *UsageQueue
	usage    UsageCounter
	codes    CodeExpirer
	cron     *cron.Cron
	now      func() time.Time
	instance string

	usageSpec       string
	joinRequestSpec string
	codeSpec        string
}

type Option func(*Scheduler)

// WithCron injects a preconfigured cron instance.
func WithCron(c *cron.Cron) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.cron = c
		}
	}
}

func WithNow(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

func WithUsageSchedule(spec string) Option {
	return func(s *Scheduler) {
		if spec != "" {
			s.usageSpec = spec
		}
	}
}

func NewScheduler(db *gorm.DB, rdb *redis.Client, usage UsageCounter, codes CodeExpirer, opts ...Option) *Scheduler {
	instance, _ := os.Hostname()
	if instance == "" {
		instance = uuid.NewString()
	}
	s := &Scheduler{
		db:              db,
		rdb:             rdb,
		usage:           usage,
		codes:           codes,
		now:             time.Now,
		instance:        instance,
		usageSpec:       defaultUsageSpec,
		joinRequestSpec: defaultJoinRequestSpec,
		codeSpec:        defaultCodeSpec,
	}
	if rdb != nil {
		s.queue = &UsageQueue{Rdb: rdb}
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cron == nil {
		s.cron = cron.New(cron.WithLocation(time.UTC))
	}
	return s
}

// Queue is the usage retry queue the redemption path pushes to, or nil
// without Redis.
func (s *Scheduler) Queue() *UsageQueue {
	return s.queue
}

func (s *Scheduler) Start() error {
	jobs := []struct {
		spec string
		name string
		run  func(context.Context) error
	}{
		{s.usageSpec, "usage_retry", s.drainUsage},
		{s.joinRequestSpec, "expire_join_requests", s.expireJoinRequests},
		{s.codeSpec, "deactivate_codes", s.deactivateCodes},
	}
	for _, j := range jobs {
		if _, err := s.cron.AddFunc(j.spec, func() {
			if err := s.locked(context.Background(), j.name, j.run); err != nil {
				log.Warn().Err(err).Str("job", j.name).Msg("maintenance job failed")
			}
		}); err != nil {
			return fmt.Errorf("schedule %s: %w", j.name, err)
		}
	}
	s.cron.Start()
	log.Info().Str("instance", s.instance).Msg("maintenance scheduler started")
	return nil
}

// Stop halts the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// RunOnce executes every job in sequence without locking.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var errs error
	errs = multierr.Append(errs, s.drainUsage(ctx))
	errs = multierr.Append(errs, s.expireJoinRequests(ctx))
	errs = multierr.Append(errs, s.deactivateCodes(ctx))
	return errs
}

// locked runs fn only if this instance acquires the job lock.
func (s *Scheduler) locked(ctx context.Context, name string, fn func(context.Context) error) error {
	if s.rdb == nil {
		return fn(ctx)
	}
	key := lockPrefix + name
	ok, err := s.rdb.SetNX(ctx, key, s.instance, lockTTL).Result()
	if err != nil {
		return err
	}
	if !ok {
		log.Debug().Str("job", name).Msg("maintenance job held by another instance")
		return nil
	}
	defer func() {
		// The TTL may have lapsed and another instance taken over.
		if err := releaseLock.Run(ctx, s.rdb, []string{key}, s.instance).Err(); err != nil {
			log.Warn().Err(err).Str("job", name).Msg("release maintenance lock failed")
		}
	}()
	return fn(ctx)
}

// releaseLock deletes the key only while it still holds our instance id.
var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (s *Scheduler) drainUsage(ctx context.Context) error {
	if s.queue == nil || s.usage == nil {
		return nil
	}
	n, err := s.queue.Drain(ctx, func(ctx context.Context, id uuid.UUID) error {
		ok, err := s.usage.IncrementUsage(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			log.Warn().Str("code_id", id.String()).Msg("usage retry dropped, code at limit or gone")
		}
		return nil
	})
	if n > 0 {
		log.Info().Int("count", n).Msg("usage increments reconciled")
	}
	return err
}

func (s *Scheduler) expireJoinRequests(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	n, err := ExpireJoinRequests(ctx, s.db, s.now())
	if err != nil {
		return err
	}
	if n > 0 {
		log.Info().Int64("count", n).Msg("join requests expired")
	}
	return nil
}

func (s *Scheduler) deactivateCodes(ctx context.Context) error {
	if s.codes == nil {
		return nil
	}
	n, err := s.codes.DeactivateExpired(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		log.Info().Int64("count", n).Msg("expired invite codes deactivated")
	}
	return nil
}

// ExpireJoinRequests marks pending join requests past their expiry.
func ExpireJoinRequests(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Model(&domain.JoinRequest{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", domain.JoinRequestPending, now).
		Updates(map[string]interface{}{"status": domain.JoinRequestExpired, "updated_at": now})
	if res.Error != nil {
		return 0, fmt.Errorf("expire join requests: %w", res.Error)
	}
	return res.RowsAffected, nil
}
