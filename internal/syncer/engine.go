// Package syncer 同步引擎：为当前会话身份并发拉取全部业务集合，
// 各集合独立成败，失败的集合保留上一次的数据。
//
// 新的同步调用会取消仍在进行的旧调用，只有最新一代的结果会被写入状态。
package syncer

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"Attendify/internal/model"
	"Attendify/internal/normalize"
	"Attendify/pkg/errors"
	"Attendify/pkg/metrics"
	"Attendify/pkg/snowflake"
)

// Source 远端数据来源，网关客户端实现该接口
type Source interface {
	AttendanceLogs(ctx context.Context, userID string, role model.Role) (interface{}, error)
	Leaves(ctx context.Context, userID string, role model.Role) (interface{}, error)
	Announcements(ctx context.Context) (interface{}, error)
	Holidays(ctx context.Context) (interface{}, error)
	Notifications(ctx context.Context, userID string) (interface{}, error)
	Policies(ctx context.Context) (interface{}, error)
	Settings(ctx context.Context) (interface{}, error)
	Employees(ctx context.Context) (interface{}, error)
	Departments(ctx context.Context) (interface{}, error)
}

// SnapshotStore 持久化最近一次成功的快照，进程重启后仍可展示旧数据
type SnapshotStore interface {
	Save(ctx context.Context, snap *model.Snapshot) error
	Load(ctx context.Context, userID string) (*model.Snapshot, bool, error)
}

// Options 引擎依赖
type Options struct {
	Source     Source
	Normalizer *normalize.Normalizer
	Store      SnapshotStore
	Logger     *zap.Logger
	Now        func() time.Time
}

// Engine 同步状态的唯一写入者
type Engine struct {
	src    Source
	norm   *normalize.Normalizer
	store  SnapshotStore
	logger *zap.Logger
	tracer trace.Tracer
	now    func() time.Time

	mu     sync.RWMutex
	state  *model.Snapshot
	gen    uint64
	cancel context.CancelFunc
}

func New(opts Options) *Engine {
	if opts.Normalizer == nil {
		opts.Normalizer = normalize.New(time.Local)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		src:    opts.Source,
		norm:   opts.Normalizer,
		store:  opts.Store,
		logger: opts.Logger,
		tracer: otel.Tracer("attendify/syncer"),
		now:    opts.Now,
		state:  &model.Snapshot{Settings: model.Settings{}},
	}
}

type fetchResult struct {
	err        error
	data       interface{}
	collection Collection
}

// Sync 执行一次同步调用。identity 为空时不发出任何请求
func (e *Engine) Sync(ctx context.Context, identity *model.Identity) (*Delta, error) {
	if identity == nil || identity.ID == "" {
		return &Delta{Skipped: true}, nil
	}
	ident := identity.Clone()

	syncCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	e.gen++
	gen := e.gen
	e.cancel = cancel
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		if e.gen == gen {
			e.cancel = nil
		}
		e.mu.Unlock()
		cancel()
	}()

	delta := &Delta{SyncID: e.nextSyncID(gen)}
	start := time.Now()

	syncCtx, span := e.tracer.Start(syncCtx, "sync", trace.WithAttributes(
		attribute.String("sync.id", delta.SyncID),
		attribute.String("enduser.id", ident.ID),
		attribute.String("enduser.role", string(ident.Role)),
	))
	defer span.End()

	fetches := e.plan(ident)
	results := make([]fetchResult, len(fetches))

	var wg sync.WaitGroup
	for i, f := range fetches {
		wg.Add(1)
		go func(i int, f fetch) {
			defer wg.Done()
			data, err := f.run(syncCtx)
			results[i] = fetchResult{collection: f.collection, data: data, err: err}
		}(i, f)
	}
	wg.Wait()

	e.mu.Lock()
	if gen != e.gen || syncCtx.Err() != nil {
		e.mu.Unlock()
		delta.Cancelled = true
		span.SetStatus(codes.Unset, "superseded")
		metrics.RecordSync(ctx, "cancelled", time.Since(start).Seconds())
		e.logger.Debug("Sync invocation discarded",
			zap.String("sync_id", delta.SyncID),
			zap.Uint64("generation", gen),
		)
		return delta, nil
	}

	next := e.state.Clone()
	if next.Identity != nil && next.Identity.ID != ident.ID {
		next = &model.Snapshot{Settings: model.Settings{}}
	}
	next.Identity = ident

	for _, r := range results {
		if r.err != nil {
			kind := errors.KindOf(r.err)
			delta.Failures = append(delta.Failures, Failure{Collection: r.collection, Kind: kind, Err: r.err})
			if kind == errors.NetworkUnreachable {
				delta.Offline = true
			}
			continue
		}
		e.apply(next, r.collection, r.data)
		delta.Updated = append(delta.Updated, r.collection)
	}

	wasOffline := next.Offline
	next.Offline = delta.Offline
	next.SyncedAt = e.now()
	next.Version++
	delta.Version = next.Version
	e.state = next
	persisted := next.Clone()
	e.mu.Unlock()

	e.observe(ctx, span, delta, wasOffline, start)

	if e.store != nil && len(delta.Updated) > 0 {
		if err := e.store.Save(ctx, persisted); err != nil {
			e.logger.Warn("Failed to persist snapshot", zap.String("sync_id", delta.SyncID), zap.Error(err))
		}
	}
	return delta, nil
}

func (e *Engine) observe(ctx context.Context, span trace.Span, delta *Delta, wasOffline bool, start time.Time) {
	for _, f := range delta.Failures {
		metrics.RecordCollectionFailure(ctx, string(f.Collection), f.Kind.Code)
		e.logger.Warn("Collection fetch failed",
			zap.String("sync_id", delta.SyncID),
			zap.String("collection", string(f.Collection)),
			zap.String("kind", f.Kind.Code),
			zap.Error(f.Err),
		)
	}

	switch {
	case delta.Offline && !wasOffline:
		metrics.SetOffline(ctx, 1)
	case !delta.Offline && wasOffline:
		metrics.SetOffline(ctx, -1)
	}

	outcome := "success"
	if len(delta.Failures) > 0 {
		outcome = "degraded"
		span.SetStatus(codes.Error, "partial failure")
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.SetAttributes(
		attribute.Int("sync.updated", len(delta.Updated)),
		attribute.Int("sync.failures", len(delta.Failures)),
		attribute.Bool("sync.offline", delta.Offline),
	)
	metrics.RecordSync(ctx, outcome, time.Since(start).Seconds())

	e.logger.Debug("Sync invocation committed",
		zap.String("sync_id", delta.SyncID),
		zap.Int("updated", len(delta.Updated)),
		zap.Int("failures", len(delta.Failures)),
		zap.Bool("offline", delta.Offline),
		zap.Uint64("version", delta.Version),
	)
}

// apply 把规范化后的集合写入快照对应槽位
func (e *Engine) apply(s *model.Snapshot, c Collection, data interface{}) {
	switch c {
	case CollectionAttendance:
		records := e.norm.Attendance(data)
		for i := range records {
			if records[i].UserName == "" && records[i].UserID == s.Identity.ID {
				records[i].UserName = s.Identity.Name
			}
		}
		s.Attendance = records
	case CollectionLeaves:
		s.Leaves = e.norm.Leaves(data)
	case CollectionAnnouncements:
		s.Announcements = e.norm.Announcements(data)
	case CollectionHolidays:
		s.Holidays = e.norm.Holidays(data)
	case CollectionNotifications:
		s.Notifications = e.norm.Notifications(data)
	case CollectionPolicies:
		s.Policies = e.norm.Policies(data)
	case CollectionSettings:
		s.Settings = e.norm.Settings(data)
	case CollectionEmployees:
		s.Employees = e.norm.Employees(data)
	case CollectionDepartments:
		s.Departments = e.norm.Departments(data)
	}
}

func (e *Engine) nextSyncID(gen uint64) string {
	if id, err := snowflake.NextIDString(); err == nil {
		return id
	}
	return "gen-" + strconv.FormatUint(gen, 10)
}

// Cancel 取消进行中的同步，不改变已提交的状态
func (e *Engine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.gen++
}

// Reset 登出时清空状态
func (e *Engine) Reset() {
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.gen++
	wasOffline := e.state.Offline
	e.state = &model.Snapshot{Settings: model.Settings{}}
	e.mu.Unlock()

	if wasOffline {
		metrics.SetOffline(context.Background(), -1)
	}
}

// Snapshot 返回当前状态的一致副本
func (e *Engine) Snapshot() *model.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Clone()
}

// Offline 当前是否处于降级模式
func (e *Engine) Offline() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Offline
}

// Hydrate 从持久化快照恢复，仅在尚未同步过且身份一致时生效
func (e *Engine) Hydrate(ctx context.Context, identity *model.Identity) bool {
	if e.store == nil || identity == nil || identity.ID == "" {
		return false
	}
	snap, ok, err := e.store.Load(ctx, identity.ID)
	if err != nil {
		e.logger.Warn("Failed to load persisted snapshot", zap.String("user_id", identity.ID), zap.Error(err))
		return false
	}
	if !ok || snap.Identity == nil || snap.Identity.ID != identity.ID {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Version > 0 {
		return false
	}
	restored := snap.Clone()
	restored.Identity = identity.Clone()
	if restored.Settings == nil {
		restored.Settings = model.Settings{}
	}
	e.state = restored
	return true
}

// MarkNotificationRead 服务端确认后的乐观更新，下一次同步结果优先
func (e *Engine) MarkNotificationRead(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.state.Notifications {
		if e.state.Notifications[i].ID == id {
			notifs := append([]model.Notification(nil), e.state.Notifications...)
			notifs[i].Read = true
			e.state.Notifications = notifs
			return true
		}
	}
	return false
}

// ClearNotifications 清空通知列表
func (e *Engine) ClearNotifications() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Notifications = []model.Notification{}
}

// SetIdentityAvatar 头像更新成功后同步到会话身份
func (e *Engine) SetIdentityAvatar(userID, avatar string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Identity == nil || e.state.Identity.ID != userID {
		return
	}
	ident := e.state.Identity.Clone()
	ident.Avatar = avatar
	e.state.Identity = ident
	for i := range e.state.Employees {
		if e.state.Employees[i].ID == userID {
			emps := append([]model.Employee(nil), e.state.Employees...)
			emps[i].Avatar = avatar
			e.state.Employees = emps
			break
		}
	}
}
