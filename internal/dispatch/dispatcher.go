// Package dispatch 用户操作的写路径：调用远端、发布提示、成功后重新同步。
package dispatch

import (
	"context"
	"time"

	"go.uber.org/zap"

	"Attendify/internal/derived"
	"Attendify/internal/gateway"
	"Attendify/internal/model"
	"Attendify/internal/normalize"
	"Attendify/internal/notice"
	"Attendify/internal/syncer"
	"Attendify/pkg/errors"
)

// 失败提示前缀
const (
	prefixSync  = "Sync Error: "
	prefixError = "Error: "
	prefixSMTP  = "SMTP Error: "
)

// Gateway 写操作使用的远端接口
type Gateway interface {
	CheckIn(ctx context.Context, userID string, fields gateway.Fields) (interface{}, error)
	CheckOut(ctx context.Context, userID string, fields gateway.Fields) (interface{}, error)
	SubmitLeave(ctx context.Context, fields gateway.Fields) (interface{}, error)
	UpdateLeaveStatus(ctx context.Context, id string, status model.LeaveStatus) (interface{}, error)
	UpdatePolicy(ctx context.Context, fields gateway.Fields) (interface{}, error)
	UpdateSetting(ctx context.Context, key, value string) (interface{}, error)
	AddEmployee(ctx context.Context, fields gateway.Fields) (interface{}, error)
	UpdateEmployee(ctx context.Context, id string, fields gateway.Fields) (interface{}, error)
	DeleteEmployee(ctx context.Context, id string) (interface{}, error)
	AddDepartment(ctx context.Context, name string) (interface{}, error)
	UpdateDepartment(ctx context.Context, id, name string) (interface{}, error)
	DeleteDepartment(ctx context.Context, id string) (interface{}, error)
	PostAnnouncement(ctx context.Context, fields gateway.Fields) (interface{}, error)
	AddHoliday(ctx context.Context, fields gateway.Fields) (interface{}, error)
	DeleteHoliday(ctx context.Context, id string) (interface{}, error)
	PostNotification(ctx context.Context, fields gateway.Fields) (interface{}, error)
	MarkNotificationRead(ctx context.Context, id string) (interface{}, error)
	ClearNotifications(ctx context.Context, userID string) (interface{}, error)
	SendEmail(ctx context.Context, to, subject, body string) (interface{}, error)
	EmailLogs(ctx context.Context) (interface{}, error)
	UpdatePassword(ctx context.Context, fields gateway.Fields) (interface{}, error)
	UpdateAvatar(ctx context.Context, userID, avatar string) (interface{}, error)
}

// Engine 写操作完成后的同步与乐观更新
type Engine interface {
	Sync(ctx context.Context, identity *model.Identity) (*syncer.Delta, error)
	Snapshot() *model.Snapshot
	MarkNotificationRead(id string) bool
	ClearNotifications()
}

// Session 当前会话
type Session interface {
	Current() *model.Identity
	SetAvatar(ctx context.Context, avatar string)
}

// Outbox 远端发信失败后的本地发件箱，可选
type Outbox interface {
	Enqueue(ctx context.Context, to, subject, body string, origin model.MailOrigin) (*model.MailDelivery, error)
}

type Options struct {
	Gateway    Gateway
	Engine     Engine
	Session    Session
	Notices    *notice.Board
	Outbox     Outbox
	Locator    Locator
	Normalizer *normalize.Normalizer
	Logger     *zap.Logger
	Now        func() time.Time
	Location   *time.Location
	Device     string
}

// Dispatcher 所有领域写操作的入口
type Dispatcher struct {
	gw      Gateway
	engine  Engine
	session Session
	notices *notice.Board
	outbox  Outbox
	locator Locator
	norm    *normalize.Normalizer
	logger  *zap.Logger
	now     func() time.Time
	device  string
}

func New(opts Options) *Dispatcher {
	if opts.Notices == nil {
		opts.Notices = notice.NewBoard(notice.DefaultTTL)
	}
	if opts.Normalizer == nil {
		opts.Normalizer = normalize.New(nil)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	opts.Now = derived.InLocation(opts.Now, opts.Location)
	if opts.Device == "" {
		opts.Device = "attendify-go"
	}
	return &Dispatcher{
		gw:      opts.Gateway,
		engine:  opts.Engine,
		session: opts.Session,
		notices: opts.Notices,
		outbox:  opts.Outbox,
		locator: opts.Locator,
		norm:    opts.Normalizer,
		logger:  opts.Logger,
		now:     opts.Now,
		device:  opts.Device,
	}
}

// Notices 提示板
func (d *Dispatcher) Notices() *notice.Board {
	return d.notices
}

func (d *Dispatcher) identity() (*model.Identity, error) {
	ident := d.session.Current()
	if ident == nil || ident.ID == "" {
		return nil, errors.NotAuthenticated
	}
	return ident, nil
}

func (d *Dispatcher) snapshot() *model.Snapshot {
	if d.engine == nil {
		return &model.Snapshot{}
	}
	return d.engine.Snapshot()
}

// run 执行一次远端写操作：失败发布错误提示且不改动本地状态，取消静默；成功发布提示并重新同步
func (d *Dispatcher) run(ctx context.Context, action, failPrefix string, call func(ctx context.Context) error, success func() string) error {
	if err := call(ctx); err != nil {
		if errors.IsCancelled(err) {
			d.logger.Debug("Mutation cancelled", zap.String("action", action))
			return err
		}
		d.logger.Warn("Mutation failed",
			zap.String("action", action),
			zap.String("kind", errors.KindOf(err).Code),
			zap.Error(err),
		)
		d.notices.Error(failPrefix + err.Error())
		return err
	}

	if msg := success(); msg != "" {
		d.notices.Success(msg)
	}
	d.logger.Info("Mutation applied", zap.String("action", action))
	d.resync(ctx)
	return nil
}

func (d *Dispatcher) resync(ctx context.Context) {
	ident := d.session.Current()
	if ident == nil || d.engine == nil {
		return
	}
	if _, err := d.engine.Sync(ctx, ident); err != nil {
		d.logger.Warn("Resync after mutation failed", zap.Error(err))
	}
}

func message(s string) func() string {
	return func() string { return s }
}
