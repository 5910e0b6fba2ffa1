// Package schedule 周期任务：仪表盘重算、后台重同步和发件箱补投
package schedule

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"Attendify/internal/derived"
	"Attendify/internal/model"
)

// MaxTickInterval 仪表盘至少每秒重算一次
const MaxTickInterval = time.Second

type SnapshotSource interface {
	Snapshot() *model.Snapshot
}

// Ticker 定时用最新快照重算派生指标，读者拿到的总是完整的一份结果
type Ticker struct {
	source   SnapshotSource
	logger   *zap.Logger
	now      func() time.Time
	latest   atomic.Pointer[derived.Dashboard]
	ticks    atomic.Int64
	interval time.Duration
}

func NewTicker(source SnapshotSource, interval time.Duration, logger *zap.Logger) *Ticker {
	if interval <= 0 || interval > MaxTickInterval {
		interval = MaxTickInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ticker{source: source, interval: interval, logger: logger, now: time.Now}
}

// WithClock 测试中替换时钟
func (t *Ticker) WithClock(now func() time.Time) *Ticker {
	t.now = now
	return t
}

// WithLocation 按业务时区重算，班次窗口和本月统计都以该时区的日期为准
func (t *Ticker) WithLocation(loc *time.Location) *Ticker {
	t.now = derived.InLocation(t.now, loc)
	return t
}

func (t *Ticker) Interval() time.Duration { return t.interval }

// Tick 重算一次并发布
func (t *Ticker) Tick() derived.Dashboard {
	d := derived.Compute(t.source.Snapshot(), t.now())
	t.latest.Store(&d)
	t.ticks.Add(1)
	return d
}

// Latest 最近一次结果；尚未计算过时现算
func (t *Ticker) Latest() derived.Dashboard {
	if d := t.latest.Load(); d != nil {
		return *d
	}
	return t.Tick()
}

// Ticks 已完成的重算次数
func (t *Ticker) Ticks() int64 { return t.ticks.Load() }

// Run 阻塞运行直到 ctx 取消
func (t *Ticker) Run(ctx context.Context) {
	t.Tick()
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.logger.Info("Dashboard ticker started", zap.Duration("interval", t.interval))
	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Dashboard ticker stopped")
			return
		case <-ticker.C:
			t.Tick()
		}
	}
}
