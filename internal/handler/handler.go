// Package handler 本地伴随 API：把会话、快照、派生指标和写操作暴露给界面层
package handler

import (
	"context"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"go.uber.org/zap"

	"Attendify/internal/derived"
	"Attendify/internal/dispatch"
	"Attendify/internal/model"
	"Attendify/internal/notice"
	"Attendify/internal/report"
	"Attendify/internal/syncer"
	"Attendify/pkg/errors"
	"Attendify/pkg/response"
	"Attendify/pkg/token"
)

// Session 会话控制
type Session interface {
	Login(ctx context.Context, email, password string) (*model.Identity, error)
	Logout(ctx context.Context) error
	Current() *model.Identity
	Theme(ctx context.Context) string
	SetTheme(ctx context.Context, theme string) error
	Notices() *notice.Board
}

// State 同步引擎的读接口
type State interface {
	Snapshot() *model.Snapshot
	Offline() bool
	Sync(ctx context.Context, identity *model.Identity) (*syncer.Delta, error)
}

// Dashboards 定时重算的派生指标
type Dashboards interface {
	Latest() derived.Dashboard
}

// Deliveries 本地发件箱查询
type Deliveries interface {
	List(ctx context.Context, status model.MailDeliveryStatus, limit, offset int) ([]model.MailDelivery, error)
}

type Options struct {
	Session    Session
	State      State
	Dashboards Dashboards
	Actions    *dispatch.Dispatcher
	Reports    *report.Service
	Deliveries Deliveries
	Tokens     *token.Generator
	CSRFToken  func(c *app.RequestContext) string
	Logger     *zap.Logger
}

type Handler struct {
	session    Session
	state      State
	dashboards Dashboards
	actions    *dispatch.Dispatcher
	reports    *report.Service
	deliveries Deliveries
	tokens     *token.Generator
	csrfToken  func(c *app.RequestContext) string
	logger     *zap.Logger
}

func New(opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Handler{
		session:    opts.Session,
		state:      opts.State,
		dashboards: opts.Dashboards,
		actions:    opts.Actions,
		reports:    opts.Reports,
		deliveries: opts.Deliveries,
		tokens:     opts.Tokens,
		csrfToken:  opts.CSRFToken,
		logger:     opts.Logger,
	}
}

// identity 当前会话身份；请求带的令牌必须属于同一个用户
func (h *Handler) identity(c *app.RequestContext) (*model.Identity, error) {
	ident := h.session.Current()
	if ident == nil {
		return nil, errors.NotAuthenticated
	}
	if v, ok := c.Get(token.IdentityKey); ok {
		if uid, _ := v.(string); uid != ident.ID {
			return nil, errors.NotAuthenticated
		}
	}
	return ident, nil
}

func (h *Handler) requireAuth(ctx context.Context, c *app.RequestContext) bool {
	if _, err := h.identity(c); err != nil {
		response.Error(ctx, c, err)
		return false
	}
	return true
}

func bind(ctx context.Context, c *app.RequestContext, req interface{}) bool {
	if err := c.BindJSON(req); err != nil {
		response.BindError(ctx, c, err)
		return false
	}
	return true
}

// queryInt 解析失败或缺省时返回 def
func queryInt(c *app.RequestContext, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

// queryBool 接受 1/true
func queryBool(c *app.RequestContext, key string) bool {
	b, _ := strconv.ParseBool(c.Query(key))
	return b
}
