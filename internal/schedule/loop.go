package schedule

import (
	"context"
	"time"

	"go.uber.org/zap"

	"Attendify/internal/model"
	"Attendify/internal/syncer"
	"Attendify/pkg/errors"
)

type Syncer interface {
	Sync(ctx context.Context, identity *model.Identity) (*syncer.Delta, error)
}

type IdentitySource interface {
	Current() *model.Identity
}

// ResyncOnce 为当前身份做一次同步；没有身份时不调用引擎
func ResyncOnce(ctx context.Context, engine Syncer, identities IdentitySource, logger *zap.Logger) bool {
	ident := identities.Current()
	if ident == nil {
		return false
	}
	delta, err := engine.Sync(ctx, ident)
	if err != nil {
		if !errors.IsCancelled(err) {
			logger.Warn("Background resync failed", zap.String("user_id", ident.ID), zap.Error(err))
		}
		return false
	}
	if delta != nil && len(delta.Failures) > 0 {
		logger.Info("Background resync degraded",
			zap.String("user_id", ident.ID),
			zap.Int("failures", len(delta.Failures)),
			zap.Bool("offline", delta.Offline),
		)
	}
	return true
}

// RunResyncLoop 周期性后台重同步，阻塞直到 ctx 取消
func RunResyncLoop(ctx context.Context, engine Syncer, identities IdentitySource, interval time.Duration, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	RunEvery(ctx, "resync", interval, logger, func(runCtx context.Context) error {
		ResyncOnce(runCtx, engine, identities, logger)
		return nil
	})
}

// RunEvery 按固定间隔执行 job，单次执行超时为一个间隔
func RunEvery(ctx context.Context, name string, interval time.Duration, logger *zap.Logger, job func(context.Context) error) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("Periodic job started", zap.String("job", name), zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			logger.Info("Periodic job stopped", zap.String("job", name))
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, interval)
			if err := job(runCtx); err != nil {
				logger.Error("Periodic job run failed", zap.String("job", name), zap.Error(err))
			}
			cancel()
		}
	}
}
