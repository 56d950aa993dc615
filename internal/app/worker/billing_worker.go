package worker

import (
	"context"
	"errors"
	"fmt"
	"rodo_assess/internal/app/service"
	"rodo_assess/internal/common"
	"rodo_assess/internal/domain/model"
	"rodo_assess/internal/platform/config"
	"rodo_assess/internal/platform/metrics"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const billingLockKey = "billing:sweep:lock"

// Releases the lock only if it still holds our value.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Roller advances due subscriptions.
type Roller interface {
	RollOver(ctx context.Context, asOf time.Time, limit int) (service.RolloverResult, error)
}

// Locker guards a sweep so only one instance runs it at a time.
type Locker interface {
	Acquire(ctx context.Context, ttl time.Duration) (release func(), err error)
}

// RedisLocker is a single key lock with compare-and-delete release.
type RedisLocker struct {
	rdb *redis.Client
	key string
	log *zap.Logger
}

func NewRedisLocker(rdb *redis.Client, log *zap.Logger) *RedisLocker {
	return &RedisLocker{rdb: rdb, key: billingLockKey, log: log}
}

func (l *RedisLocker) Acquire(ctx context.Context, ttl time.Duration) (func(), error) {
	value := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, l.key, value, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", l.key, err)
	}
	if !ok {
		return nil, common.ErrLockNotAcquired
	}
	return func() {
		// The sweep context may already be canceled on shutdown.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		deleted, err := releaseScript.Run(releaseCtx, l.rdb, []string{l.key}, value).Int64()
		if err != nil {
			l.log.Error("failed to release lock", zap.String("key", l.key), zap.Error(err))
		} else if deleted == 0 {
			l.log.Warn("lock expired before release", zap.String("key", l.key))
		}
	}, nil
}

// BillingWorker periodically rolls subscriptions whose billing date has passed.
type BillingWorker struct {
	roller  Roller
	locker  Locker
	cfg     config.BillingConfig
	metrics *metrics.Metrics
	log     *zap.Logger
	now     func() time.Time
}

// NewBillingWorker creates the worker. A nil locker runs every sweep unguarded,
// which is only safe with a single server instance.
func NewBillingWorker(roller Roller, locker Locker, cfg config.BillingConfig, m *metrics.Metrics, log *zap.Logger) *BillingWorker {
	return &BillingWorker{
		roller:  roller,
		locker:  locker,
		cfg:     cfg,
		metrics: m,
		log:     log.Named("billing_worker"),
		now:     time.Now,
	}
}

// Start blocks until ctx is canceled.
func (w *BillingWorker) Start(ctx context.Context) {
	w.log.Info("billing worker started", zap.Duration("interval", w.cfg.SweepInterval))
	ticker := time.NewTicker(w.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		if err := w.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.log.Error("billing sweep failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			w.log.Info("billing worker stopping")
			return
		case <-ticker.C:
		}
	}
}

// Sweep runs one pass. Losing the lock race is not an error.
func (w *BillingWorker) Sweep(ctx context.Context) error {
	if w.locker != nil {
		release, err := w.locker.Acquire(ctx, w.cfg.LockTTL)
		if errors.Is(err, common.ErrLockNotAcquired) {
			w.log.Debug("billing sweep skipped, lock held elsewhere")
			return nil
		}
		if err != nil {
			return err
		}
		defer release()
	}

	res, err := w.roller.RollOver(ctx, w.now(), w.cfg.BatchSize)
	if err != nil {
		return err
	}
	if w.metrics != nil {
		w.metrics.SubscriptionsRolled.WithLabelValues(string(model.SubscriptionActive)).Add(float64(res.Renewed))
		w.metrics.SubscriptionsRolled.WithLabelValues(string(model.SubscriptionExpired)).Add(float64(res.Expired))
	}
	if res.Renewed+res.Expired > 0 {
		w.log.Info("billing sweep done", zap.Int("renewed", res.Renewed), zap.Int("expired", res.Expired))
	}
	return nil
}
