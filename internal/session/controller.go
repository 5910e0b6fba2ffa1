// Package session 会话控制器：登录、登出、会话过期处理以及身份持久化。
package session

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"Attendify/internal/model"
	"Attendify/internal/normalize"
	"Attendify/internal/notice"
	"Attendify/internal/prefs"
	"Attendify/internal/syncer"
	"Attendify/pkg/errors"
)

// MessageSessionExpired 被动登出时的提示
const MessageSessionExpired = "Session expired. Please log in again."

// Gateway 会话相关的远端调用
type Gateway interface {
	Login(ctx context.Context, email, password string) (interface{}, error)
	Logout(ctx context.Context) error
}

// Engine 会话依赖的同步能力
type Engine interface {
	Sync(ctx context.Context, identity *model.Identity) (*syncer.Delta, error)
	Hydrate(ctx context.Context, identity *model.Identity) bool
	SetIdentityAvatar(userID, avatar string)
	Cancel()
	Reset()
}

type Options struct {
	Gateway    Gateway
	Engine     Engine
	Prefs      prefs.Store
	Normalizer *normalize.Normalizer
	Notices    *notice.Board
	Logger     *zap.Logger
}

// Controller 持有当前会话身份
type Controller struct {
	gw      Gateway
	engine  Engine
	prefs   prefs.Store
	norm    *normalize.Normalizer
	notices *notice.Board
	logger  *zap.Logger

	mu         sync.RWMutex
	identity   *model.Identity
	loggingOut atomic.Bool
}

func New(opts Options) *Controller {
	if opts.Prefs == nil {
		opts.Prefs = prefs.NewMemoryStore()
	}
	if opts.Normalizer == nil {
		opts.Normalizer = normalize.New(nil)
	}
	if opts.Notices == nil {
		opts.Notices = notice.NewBoard(notice.DefaultTTL)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Controller{
		gw:      opts.Gateway,
		engine:  opts.Engine,
		prefs:   opts.Prefs,
		norm:    opts.Normalizer,
		notices: opts.Notices,
		logger:  opts.Logger,
	}
}

// Current 当前身份副本，未登录为 nil
func (c *Controller) Current() *model.Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identity.Clone()
}

// Login 校验、远端登录、保存身份，然后做一次完整同步
func (c *Controller) Login(ctx context.Context, email, password string) (*model.Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, errors.Validation("email", "Email is required")
	}
	if password == "" {
		return nil, errors.Validation("password", "Password is required")
	}

	data, err := c.gw.Login(ctx, email, password)
	if err != nil {
		c.logger.Info("Login rejected", zap.String("email", email), zap.Error(err))
		return nil, err
	}

	ident, ok := c.norm.Identity(data)
	if !ok {
		return nil, &errors.RemoteError{Kind: errors.ServerError, Endpoint: "login.php", Message: "Authentication failed"}
	}

	if err := c.prefs.Set(ctx, prefs.KeyCurrentUser, ident); err != nil {
		c.logger.Warn("Failed to persist identity", zap.String("user_id", ident.ID), zap.Error(err))
	}
	c.mu.Lock()
	c.identity = ident.Clone()
	c.mu.Unlock()

	c.logger.Info("User logged in",
		zap.String("user_id", ident.ID),
		zap.String("role", string(ident.Role)),
	)
	c.notices.Success("Welcome back, " + ident.Name)

	if _, err := c.engine.Sync(ctx, ident); err != nil {
		c.logger.Warn("Initial sync failed", zap.String("user_id", ident.ID), zap.Error(err))
	}
	return ident.Clone(), nil
}

// Logout 远端结果不影响本地清理；重复调用在进行中时直接返回
func (c *Controller) Logout(ctx context.Context) error {
	if !c.loggingOut.CompareAndSwap(false, true) {
		return nil
	}
	defer c.loggingOut.Store(false)

	c.engine.Cancel()
	err := c.gw.Logout(ctx)
	if err != nil && !errors.IsCancelled(err) {
		c.logger.Warn("Logout request failed", zap.Error(err))
	}

	c.engine.Reset()
	c.mu.Lock()
	userID := ""
	if c.identity != nil {
		userID = c.identity.ID
	}
	c.identity = nil
	c.mu.Unlock()

	cleanup := context.WithoutCancel(ctx)
	if derr := c.prefs.Delete(cleanup, prefs.KeyCurrentUser); derr != nil {
		c.logger.Warn("Failed to clear persisted identity", zap.Error(derr))
	}
	if derr := c.prefs.Delete(cleanup, prefs.KeyCSRFToken); derr != nil {
		c.logger.Warn("Failed to clear csrf token", zap.Error(derr))
	}

	c.logger.Info("User logged out", zap.String("user_id", userID))
	return nil
}

// LoggingOut 是否正在登出
func (c *Controller) LoggingOut() bool {
	return c.loggingOut.Load()
}

// SessionExpired 网关收到 401 时调用。登出进行中或没有会话时忽略
func (c *Controller) SessionExpired() {
	if c.loggingOut.Load() {
		return
	}
	if c.Current() == nil {
		return
	}
	c.logger.Info("Remote session expired, forcing logout")
	_ = c.Logout(context.Background())
	c.notices.Error(MessageSessionExpired)
}

// Restore 启动时从偏好存储恢复身份，并尝试加载上次的快照
func (c *Controller) Restore(ctx context.Context) (*model.Identity, bool) {
	var ident model.Identity
	ok, err := c.prefs.Get(ctx, prefs.KeyCurrentUser, &ident)
	if err != nil {
		c.logger.Warn("Failed to restore identity", zap.Error(err))
		return nil, false
	}
	if !ok || ident.ID == "" {
		return nil, false
	}

	c.mu.Lock()
	c.identity = ident.Clone()
	c.mu.Unlock()

	c.engine.Hydrate(ctx, &ident)
	return ident.Clone(), true
}

// SetAvatar 远端确认头像更新后同步到会话身份
func (c *Controller) SetAvatar(ctx context.Context, avatar string) {
	c.mu.Lock()
	if c.identity == nil {
		c.mu.Unlock()
		return
	}
	c.identity.Avatar = avatar
	ident := c.identity.Clone()
	c.mu.Unlock()

	if err := c.prefs.Set(ctx, prefs.KeyCurrentUser, ident); err != nil {
		c.logger.Warn("Failed to persist identity", zap.String("user_id", ident.ID), zap.Error(err))
	}
	c.engine.SetIdentityAvatar(ident.ID, avatar)
}

// Theme 当前主题
func (c *Controller) Theme(ctx context.Context) string {
	return prefs.Theme(ctx, c.prefs)
}

// SetTheme 切换主题
func (c *Controller) SetTheme(ctx context.Context, theme string) error {
	if err := prefs.SetTheme(ctx, c.prefs, theme); err != nil {
		return errors.Validation("theme", "Theme must be light or dark")
	}
	return nil
}

// Notices 提示板
func (c *Controller) Notices() *notice.Board {
	return c.notices
}
